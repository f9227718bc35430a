package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/pkg/types"
)

type fakeModel struct {
	velocityOK map[string]bool
	clampTo    map[string]float64
	velocity   map[string]float64
	limits     map[string]kinematics.Limit
	posOK      map[string]bool
}

func (f *fakeModel) SatisfiesVelocityBounds(j string) bool { return f.velocityOK[j] }
func (f *fakeModel) EnforceVelocityBounds(j string) (float64, bool) {
	if v, ok := f.clampTo[j]; ok {
		return v, true
	}
	return f.velocity[j], false
}
func (f *fakeModel) SatisfiesPositionBounds(j string, margin float64) bool { return f.posOK[j] }
func (f *fakeModel) JointVelocity(j string) float64                       { return f.velocity[j] }
func (f *fakeModel) VariableBounds(j string) (kinematics.Limit, bool) {
	l, ok := f.limits[j]
	return l, ok
}

func TestApplyVelocityScalingOkThreshold(t *testing.T) {
	delta := []float64{1, 2}
	out, ok := ApplyVelocityScaling(delta, 0.5, 0.3)
	assert.InDelta(t, 0.15, out[0], 1e-9)
	assert.True(t, ok) // 0.5*0.3 = 0.15 >= 0.1
}

func TestApplyVelocityScalingBelowFloor(t *testing.T) {
	delta := []float64{1}
	_, ok := ApplyVelocityScaling(delta, 0.2, 0.2)
	assert.False(t, ok) // 0.04 < 0.1
}

func TestEnforceBoundsClampsVelocity(t *testing.T) {
	model := &fakeModel{
		velocityOK: map[string]bool{"j1": false},
		clampTo:    map[string]float64{"j1": 2.0},
		velocity:   map[string]float64{"j1": 5.0},
		limits:     map[string]kinematics.Limit{},
		posOK:      map[string]bool{"j1": true},
	}
	traj := []float64{5.0}
	ok := EnforceBounds([]string{"j1"}, traj, types.JointStateSnapshot{Name: []string{"j1"}, Position: []float64{0}}, model, 0.1)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, traj[0], 1e-9)
}

func TestEnforceBoundsHaltsOnLimitApproach(t *testing.T) {
	model := &fakeModel{
		velocityOK: map[string]bool{"j1": true},
		velocity:   map[string]float64{"j1": 1.0},
		limits:     map[string]kinematics.Limit{"j1": {Min: -1, Max: 1}},
		posOK:      map[string]bool{"j1": false},
	}
	traj := []float64{1.0}
	ok := EnforceBounds([]string{"j1"}, traj, types.JointStateSnapshot{Name: []string{"j1"}, Position: []float64{0.95}}, model, 0.1)
	assert.False(t, ok)
}

func TestSuddenHaltIdempotent(t *testing.T) {
	p := config.Default()
	orig := types.JointStateSnapshot{Name: []string{"j1"}, Position: []float64{1.5}}
	positions := []float64{9.9}
	velocities := []float64{3.3}
	SuddenHalt([]string{"j1"}, positions, velocities, orig, p)
	first := append([]float64(nil), positions...)
	firstVel := append([]float64(nil), velocities...)
	SuddenHalt([]string{"j1"}, positions, velocities, orig, p)
	assert.Equal(t, first, positions)
	assert.Equal(t, firstVel, velocities)
	assert.InDelta(t, 1.5, positions[0], 1e-9)
	assert.InDelta(t, 0, velocities[0], 1e-9)
}
