// Package singularity implements the Singularity Scaler (spec.md §4.4,
// Component D): drift-dimension row removal, thin-SVD pseudo-inverse, and
// the condition-number-based velocity scale.
package singularity

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/yangmingustb/moveit/pkg/types"
)

// KinematicProbe is the minimal slice of kinematics.Model the singularity
// probe (step 3 of §4.4) needs. kinematics.Model satisfies it structurally;
// this package does not import kinematics, to keep the probe a free
// function over an interface rather than a hidden dependency on one
// concrete model.
type KinematicProbe interface {
	CopyJointGroupPositions(group string) ([]float64, error)
	SetJointGroupPositions(group string, theta []float64) error
	Jacobian(group string) (*mat.Dense, error)
}

// RemoveDriftRows deletes, from J and dx, every Cartesian row i for which
// drift[i] is set, provided more than one row remains afterward. Per
// spec.md §9, iteration proceeds from the highest row index downward so
// that removing a row never renumbers a pending one still to be checked.
func RemoveDriftRows(J *mat.Dense, dx []float64, drift types.DriftDimensions) (*mat.Dense, []float64) {
	rows, cols := J.Dims()
	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}
	remaining := rows
	for i := rows - 1; i >= 0; i-- {
		if i >= len(drift) || !drift[i] {
			continue
		}
		if remaining <= 1 {
			break
		}
		keep[i] = false
		remaining--
	}
	if remaining == rows {
		return J, dx
	}

	reduced := mat.NewDense(remaining, cols, nil)
	reducedDx := make([]float64, 0, remaining)
	r := 0
	for i := 0; i < rows; i++ {
		if !keep[i] {
			continue
		}
		for c := 0; c < cols; c++ {
			reduced.Set(r, c, J.At(i, c))
		}
		if i < len(dx) {
			reducedDx = append(reducedDx, dx[i])
		}
		r++
	}
	return reduced, reducedDx
}

// PseudoInverse computes the thin-SVD Moore-Penrose pseudo-inverse of J,
// J⁺ = V · diag(1/σ) · Uᵀ, returning the inverse and the SVD it was built
// from (the caller needs the SVD again for Scale).
func PseudoInverse(J *mat.Dense) (*mat.Dense, *mat.SVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(J, mat.SVDThin); !ok {
		return nil, nil, errors.New("singularity: SVD factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	_, cols := u.Dims()
	sigInv := mat.NewDiagDense(cols, nil)
	for i := 0; i < cols && i < len(sigma); i++ {
		if sigma[i] > 1e-12 {
			sigInv.SetDiag(i, 1/sigma[i])
		}
	}

	var vSigInv mat.Dense
	vSigInv.Mul(&v, sigInv)
	var jPlus mat.Dense
	jPlus.Mul(&vSigInv, u.T())
	return &jPlus, &svd, nil
}

// MulVec computes J*x (or J⁺*x) as a plain []float64, for callers that do
// not want to carry gonum vector types past this package's boundary.
func MulVec(m *mat.Dense, x []float64) []float64 {
	r, c := m.Dims()
	if c != len(x) {
		return make([]float64, r)
	}
	xv := mat.NewVecDense(len(x), x)
	var yv mat.VecDense
	yv.MulVec(m, xv)
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = yv.AtVec(i)
	}
	return out
}

func conditionNumber(svd *mat.SVD) float64 {
	sigma := svd.Values(nil)
	if len(sigma) == 0 {
		return 0
	}
	last := sigma[len(sigma)-1]
	if last == 0 {
		return math.Inf(1)
	}
	return sigma[0] / last
}

// Scale implements spec.md §4.4 steps 1-8. svd and jPlus must come from
// PseudoInverse applied to the (already drift-reduced) Jacobian; dx is the
// matching drift-reduced command; drift and group let Scale redo the same
// row reduction on the probe Jacobian recomputed at θ'. onWarn, if non-nil,
// is called once if the hard-stop threshold is reached.
func Scale(
	svd *mat.SVD,
	jPlus *mat.Dense,
	dx []float64,
	group string,
	drift types.DriftDimensions,
	probe KinematicProbe,
	lowerThreshold, hardStopThreshold float64,
	onWarn func(),
) (float64, error) {
	var u mat.Dense
	svd.UTo(&u)
	rows, _ := u.Dims()
	if rows == 0 {
		return 1, nil
	}
	uLast := make([]float64, rows)
	for i := 0; i < rows; i++ {
		uLast[i] = u.At(i, rows-1)
	}
	kappa0 := conditionNumber(svd)

	kappa1, err := probeConditionNumber(jPlus, uLast, group, drift, probe)
	if err != nil {
		return 0, err
	}
	if kappa1 > kappa0 {
		for i := range uLast {
			uLast[i] = -uLast[i]
		}
	}

	d := dot(uLast, dx)
	if d <= 0 {
		return 1, nil
	}

	switch {
	case kappa0 > lowerThreshold && kappa0 < hardStopThreshold:
		return 1 - (kappa0-lowerThreshold)/(hardStopThreshold-lowerThreshold), nil
	case kappa0 >= hardStopThreshold:
		if onWarn != nil {
			onWarn()
		}
		return 0, nil
	default:
		return 1, nil
	}
}

// probeConditionNumber implements §4.4 step 3 as a side-effect-free
// function: it saves the probe's current joint positions, applies the
// probe delta, recomputes and reduces the Jacobian, measures κ, and always
// restores the original positions before returning — even on error.
func probeConditionNumber(jPlus *mat.Dense, uLast []float64, group string, drift types.DriftDimensions, probe KinematicProbe) (float64, error) {
	deltaXPrime := make([]float64, len(uLast))
	for i, v := range uLast {
		deltaXPrime[i] = v / 100
	}
	deltaThetaPrime := MulVec(jPlus, deltaXPrime)

	theta0, err := probe.CopyJointGroupPositions(group)
	if err != nil {
		return 0, errors.Wrap(err, "singularity: snapshotting joint positions for probe")
	}
	defer func() {
		_ = probe.SetJointGroupPositions(group, theta0)
	}()

	thetaPrime := make([]float64, len(theta0))
	for i := range theta0 {
		d := 0.0
		if i < len(deltaThetaPrime) {
			d = deltaThetaPrime[i]
		}
		thetaPrime[i] = theta0[i] + d
	}
	if err := probe.SetJointGroupPositions(group, thetaPrime); err != nil {
		return 0, errors.Wrap(err, "singularity: applying probe delta")
	}

	jPrime, err := probe.Jacobian(group)
	if err != nil {
		return 0, errors.Wrap(err, "singularity: probe Jacobian")
	}
	jPrimeReduced, _ := RemoveDriftRows(jPrime, make([]float64, rowsOf(jPrime)), drift)

	var svdPrime mat.SVD
	if ok := svdPrime.Factorize(jPrimeReduced, mat.SVDThin); !ok {
		return 0, errors.New("singularity: probe SVD factorization failed")
	}
	return conditionNumber(&svdPrime), nil
}

func rowsOf(m *mat.Dense) int {
	r, _ := m.Dims()
	return r
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
