package jogcore

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/internal/state"
	"github.com/yangmingustb/moveit/pkg/types"
)

// fakeModel is a minimal two-joint identity-Jacobian model, enough to drive
// the Jog Core's tick logic without a real kinematics library.
type fakeModel struct {
	group     string
	names     []string
	positions []float64
	velocity  []float64

	// frameTransforms overrides GlobalLinkTransform for specific frame
	// names; a frame not present here returns the identity.
	frameTransforms map[string]kinematics.RigidTransform
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		group:     "arm",
		names:     []string{"j1", "j2"},
		positions: []float64{0, 0},
		velocity:  []float64{0, 0},
	}
}

func (m *fakeModel) SetVariables(s types.JointStateSnapshot) error {
	for i, name := range m.names {
		for j, n := range s.Name {
			if n == name {
				m.positions[i] = s.Position[j]
				if j < len(s.Velocity) {
					m.velocity[i] = s.Velocity[j]
				}
			}
		}
	}
	return nil
}
func (m *fakeModel) JointNames(group string) ([]string, error) { return m.names, nil }
func (m *fakeModel) Jacobian(group string) (*mat.Dense, error) {
	return mat.NewDense(2, 2, []float64{1, 0, 0, 1}), nil
}
func (m *fakeModel) GlobalLinkTransform(frame string) (kinematics.RigidTransform, error) {
	if tf, ok := m.frameTransforms[frame]; ok {
		return tf, nil
	}
	return kinematics.Identity(), nil
}
func (m *fakeModel) CopyJointGroupPositions(group string) ([]float64, error) {
	return append([]float64(nil), m.positions...), nil
}
func (m *fakeModel) SetJointGroupPositions(group string, theta []float64) error {
	copy(m.positions, theta)
	return nil
}
func (m *fakeModel) SatisfiesVelocityBounds(joint string) bool          { return true }
func (m *fakeModel) EnforceVelocityBounds(joint string) (float64, bool) { return 0, false }
func (m *fakeModel) SatisfiesPositionBounds(joint string, margin float64) bool {
	return true
}
func (m *fakeModel) JointVelocity(joint string) float64 { return 0 }
func (m *fakeModel) VariableBounds(joint string) (kinematics.Limit, bool) {
	return kinematics.Limit{}, false
}

type fakeFeedback struct {
	snap  types.JointStateSnapshot
	ready bool
}

func (f *fakeFeedback) Latest() (types.JointStateSnapshot, bool) { return f.snap, f.ready }

func testParams() config.JogParameters {
	p := config.Default()
	p.MoveGroupName = "arm"
	p.PlanningFrame = "base_link"
	p.RobotLinkCommandFrame = "base_link"
	p.PublishPeriod = 0.01
	p.LinearScale = 1
	p.RotationalScale = 1
	return p
}

func newTestCore(t *testing.T) (*Core, *fakeModel, *state.Block) {
	model := newFakeModel()
	shared := state.New()
	feedback := &fakeFeedback{
		snap:  types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}, Velocity: []float64{0, 0}},
		ready: true,
	}
	core, err := New(testParams(), model, shared, feedback, logging.NewTestLogger(t))
	require.NoError(t, err)
	return core, model, shared
}

func TestConvertDeltasDerivesVelocity(t *testing.T) {
	core, _, _ := newTestCore(t)
	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}, Velocity: []float64{0, 0}}
	traj, err := core.convertDeltasToOutgoingCmd([]float64{0.02, -0.01}, joints, joints.Clone())
	require.NoError(t, err)
	require.Len(t, traj.Points, 1)
	assert.InDelta(t, 2.0, traj.Points[0].Velocities[0], 1e-9) // 0.02 / 0.01
	assert.InDelta(t, -1.0, traj.Points[0].Velocities[1], 1e-9)
	assert.Equal(t, time.Duration(10*time.Millisecond), traj.Points[0].TimeFromStart)
}

func TestConvertDeltasRejectsSizeMismatch(t *testing.T) {
	core, _, _ := newTestCore(t)
	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}}
	_, err := core.convertDeltasToOutgoingCmd([]float64{0.1}, joints, joints.Clone())
	assert.Error(t, err)
}

func TestGazeboDuplication(t *testing.T) {
	p := testParams()
	p.UseGazebo = true
	p.GazeboRedundantMessageCount = 3
	traj := types.OutgoingTrajectory{
		Points: []types.TrajectoryPoint{{TimeFromStart: 10 * time.Millisecond, Positions: []float64{1, 2}}},
	}
	duplicateForGazebo(&traj, p)
	assert.Len(t, traj.Points, 3)
	assert.Equal(t, []float64{1, 2}, traj.Points[2].Positions)
	assert.Equal(t, 30*time.Millisecond, traj.Points[2].TimeFromStart)
}

func TestRunCartesianJogRejectsNaN(t *testing.T) {
	core, _, shared := newTestCore(t)
	shared.SetCartesianCommand(types.TwistCommand{Linear: r3.Vector{X: math.NaN()}}, false)
	snap := shared.TakeSnapshot()
	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}}
	_, _, err := core.runCartesianJog(snap, joints, joints.Clone())
	assert.Error(t, err)
}

func TestRunTickPublishesAggregateWarning(t *testing.T) {
	core, _, shared := newTestCore(t)

	shared.SetCollisionVelocityScale(0.05) // combined scale below the 0.1 floor
	shared.SetCartesianCommand(types.TwistCommand{}, false)
	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}, Velocity: []float64{0, 0}}

	require.NoError(t, core.runTick(joints))
	assert.True(t, shared.Warning())

	shared.SetCollisionVelocityScale(1)
	shared.SetCartesianCommand(types.TwistCommand{}, true)
	shared.SetJointCommand(types.JointJogCommand{}, true)
	require.NoError(t, core.runTick(joints))
	assert.False(t, shared.Warning())
}

// TestRefreshCommandFrameTransformUsesCorrectCompositionOrder pins down
// tf_moveit_to_cmd_frame = planning_frame.inverse() * command_frame for a
// non-commuting rotation pair (90deg about Z vs. 90deg about Y), where
// applying them in the wrong order gives a visibly different result.
func TestRefreshCommandFrameTransformUsesCorrectCompositionOrder(t *testing.T) {
	core, model, shared := newTestCore(t)

	half := math.Sqrt2 / 2
	rotZ90 := kinematics.NewRigidTransform(quat.Number{Real: half, Kmag: half}, r3.Vector{})
	rotY90 := kinematics.NewRigidTransform(quat.Number{Real: half, Jmag: half}, r3.Vector{})
	model.frameTransforms = map[string]kinematics.RigidTransform{
		"planning": rotZ90,
		"command":  rotY90,
	}
	core.params.PlanningFrame = "planning"
	core.params.RobotLinkCommandFrame = "command"

	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}, Velocity: []float64{0, 0}}
	shared.SetCartesianCommand(types.TwistCommand{}, true)
	shared.SetJointCommand(types.JointJogCommand{}, true)
	require.NoError(t, core.runTick(joints))

	got := shared.CommandFrameTransform()

	v := r3.Vector{X: 1, Y: 2, Z: 3}
	// A^-1 . B applied to v: apply B (command frame) first, then A^-1
	// (inverse planning frame) — the correct order.
	wantCorrect := rotZ90.Inverse().RotateVector(rotY90.RotateVector(v))
	// B . A^-1, the bug this guards against: A^-1 first, then B.
	wantWrong := rotY90.RotateVector(rotZ90.Inverse().RotateVector(v))

	gotV := got.RotateVector(v)
	assert.InDelta(t, wantCorrect.X, gotV.X, 1e-9)
	assert.InDelta(t, wantCorrect.Y, gotV.Y, 1e-9)
	assert.InDelta(t, wantCorrect.Z, gotV.Z, 1e-9)

	// Sanity: for this non-commuting pair the two orders really do disagree,
	// so the assertion above is actually exercising the fix, not a
	// coincidence where both orders land on the same answer.
	diff := math.Abs(wantCorrect.X-wantWrong.X) + math.Abs(wantCorrect.Y-wantWrong.Y) + math.Abs(wantCorrect.Z-wantWrong.Z)
	assert.Greater(t, diff, 0.5)
}

func TestRunCartesianJogZeroTwistYieldsSinglePoint(t *testing.T) {
	core, _, shared := newTestCore(t)
	shared.SetCartesianCommand(types.TwistCommand{}, false)
	snap := shared.TakeSnapshot()
	joints := types.JointStateSnapshot{Name: []string{"j1", "j2"}, Position: []float64{0, 0}}
	traj, _, err := core.runCartesianJog(snap, joints, joints.Clone())
	require.NoError(t, err)
	require.Len(t, traj.Points, 1)
}
