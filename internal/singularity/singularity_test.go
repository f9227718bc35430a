package singularity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/yangmingustb/moveit/pkg/types"
)

func TestRemoveDriftRowsKeepsMoreThanOne(t *testing.T) {
	J := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	dx := []float64{10, 20, 30}
	drift := types.DriftDimensions{true, true, true}
	reduced, reducedDx := RemoveDriftRows(J, dx, drift)
	r, _ := reduced.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, []float64{10, 20}, reducedDx)
}

func TestRemoveDriftRowsNoneSet(t *testing.T) {
	J := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	dx := []float64{1, 2}
	var drift types.DriftDimensions
	reduced, reducedDx := RemoveDriftRows(J, dx, drift)
	r, _ := reduced.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, dx, reducedDx)
}

type fakeProbe struct {
	theta []float64
	jac   func([]float64) *mat.Dense
}

func (f *fakeProbe) CopyJointGroupPositions(group string) ([]float64, error) {
	return append([]float64(nil), f.theta...), nil
}
func (f *fakeProbe) SetJointGroupPositions(group string, theta []float64) error {
	f.theta = append([]float64(nil), theta...)
	return nil
}
func (f *fakeProbe) Jacobian(group string) (*mat.Dense, error) {
	return f.jac(f.theta), nil
}

func identityJacobian(theta []float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{1, 0, 0, 1})
}

// diagJacobian returns a probe Jacobian function for a fixed diagonal matrix
// with singular values s1 >= s2, independent of theta (simplest way to pin
// down a condition number for the ramp/hard-stop branches of Scale).
func diagJacobian(s1, s2 float64) func([]float64) *mat.Dense {
	return func(theta []float64) *mat.Dense {
		return mat.NewDense(2, 2, []float64{s1, 0, 0, s2})
	}
}

func TestScaleMovingAwayReturnsOne(t *testing.T) {
	J := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	jPlus, svd, err := PseudoInverse(J)
	require.NoError(t, err)
	probe := &fakeProbe{theta: []float64{0, 0}, jac: identityJacobian}
	dx := []float64{-1, 0}
	scale, err := Scale(svd, jPlus, dx, "arm", types.DriftDimensions{}, probe, 30, 90, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scale)
}

func TestScaleRampsBetweenThresholds(t *testing.T) {
	J := mat.NewDense(2, 2, []float64{50, 0, 0, 1}) // condition number 50
	jPlus, svd, err := PseudoInverse(J)
	require.NoError(t, err)
	probe := &fakeProbe{theta: []float64{0, 0}, jac: diagJacobian(50, 1)}
	dx := []float64{0, 1} // positive dot product with uLast: moving toward the singularity

	scale, err := Scale(svd, jPlus, dx, "arm", types.DriftDimensions{}, probe, 30, 90, nil)
	require.NoError(t, err)
	// 1 - (50-30)/(90-30) = 1 - 1/3
	assert.InDelta(t, 1-1.0/3.0, scale, 1e-9)
}

func TestScaleHaltsAtHardStop(t *testing.T) {
	J := mat.NewDense(2, 2, []float64{100, 0, 0, 1}) // condition number 100, over the hard-stop threshold
	jPlus, svd, err := PseudoInverse(J)
	require.NoError(t, err)
	probe := &fakeProbe{theta: []float64{0, 0}, jac: diagJacobian(100, 1)}
	dx := []float64{0, 1}

	warned := false
	scale, err := Scale(svd, jPlus, dx, "arm", types.DriftDimensions{}, probe, 30, 90, func() { warned = true })
	require.NoError(t, err)
	assert.Equal(t, 0.0, scale)
	assert.True(t, warned)
}

func TestScaleRestoresProbeState(t *testing.T) {
	J := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	jPlus, svd, err := PseudoInverse(J)
	require.NoError(t, err)
	probe := &fakeProbe{theta: []float64{1, 2}, jac: identityJacobian}
	dx := []float64{1, 0}
	_, err = Scale(svd, jPlus, dx, "arm", types.DriftDimensions{}, probe, 30, 90, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, probe.theta)
}
