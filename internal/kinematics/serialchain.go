package kinematics

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/yangmingustb/moveit/pkg/types"
)

// DHJoint describes one revolute joint of a serial chain using standard
// Denavit-Hartenberg parameters, plus the position/velocity bounds the
// Safety Scaler needs.
type DHJoint struct {
	Name string
	A, Alpha, D float64
	PositionLimit         Limit
	HasPositionLimit      bool
	VelocityLimit         float64 // symmetric, |velocity| <= VelocityLimit
}

// SerialChainModel is a gonum-backed reference implementation of Model for
// a single move group made of revolute joints in a DH chain. It is not the
// "kinematics library" spec.md scopes out — that remains an external
// collaborator behind the Model interface — but a standalone stand-in
// letting cmd/jogd run without one.
type SerialChainModel struct {
	mu        sync.Mutex
	group     string
	joints    []DHJoint
	names     *types.JointNameIndex
	position  []float64
	velocity  []float64
	baseFrame string
}

// NewSerialChainModel constructs a model for the given move group name and
// chain of joints, in canonical base-to-tip order.
func NewSerialChainModel(group string, joints []DHJoint) *SerialChainModel {
	names := make([]string, len(joints))
	for i, j := range joints {
		names[i] = j.Name
	}
	return &SerialChainModel{
		group:    group,
		joints:   joints,
		names:    types.NewJointNameIndex(names),
		position: make([]float64, len(joints)),
		velocity: make([]float64, len(joints)),
	}
}

// NumJoints returns the chain's joint count.
func (m *SerialChainModel) NumJoints() int {
	return m.names.Len()
}

// CanonicalJointNames returns the chain's canonical joint order without
// requiring a group name or returning an error; used by callers (e.g.
// cmd/jogd) that construct the model themselves and already know it is
// valid.
func (m *SerialChainModel) CanonicalJointNames() []string {
	return m.names.Names()
}

// SetBaseFrame configures the frame name that GlobalLinkTransform resolves
// to the identity (pre-first-joint) transform, e.g. a fixed "base_link"
// frame distinct from any joint. Unconfigured (the zero value), no name
// aliases to the base and only an empty frame or a joint name resolves.
func (m *SerialChainModel) SetBaseFrame(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseFrame = name
}

func (m *SerialChainModel) indexOf(joint string) (int, error) {
	i, ok := m.names.Lookup(joint)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownJoint, "%q", joint)
	}
	return i, nil
}

// SetVariables implements Model.
func (m *SerialChainModel) SetVariables(state types.JointStateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.NumJoints() < m.NumJoints() {
		return errors.Wrapf(ErrDimensionMismatch, "got %d joints, need at least %d", state.NumJoints(), m.NumJoints())
	}
	for i, name := range m.names.Names() {
		j, ok := indexOfName(state.Name, name)
		if !ok {
			continue
		}
		m.position[i] = state.Position[j]
		if j < len(state.Velocity) {
			m.velocity[i] = state.Velocity[j]
		}
	}
	return nil
}

func indexOfName(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// dhTransform returns the 4x4 homogeneous transform for one DH link.
func dhTransform(a, alpha, d, theta float64) *mat.Dense {
	ct, st := math.Cos(theta), math.Sin(theta)
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	return mat.NewDense(4, 4, []float64{
		ct, -st * ca, st * sa, a * ct,
		st, ct * ca, -ct * sa, a * st,
		0, sa, ca, d,
		0, 0, 0, 1,
	})
}

// linkTransforms returns the base-to-link-i transform for i = 0..N (link N
// is the end effector), given the current joint positions.
func (m *SerialChainModel) linkTransforms() []*mat.Dense {
	out := make([]*mat.Dense, len(m.joints)+1)
	cur := identity4()
	out[0] = cur
	for i, j := range m.joints {
		next := dhTransform(j.A, j.Alpha, j.D, m.position[i])
		composed := mat.NewDense(4, 4, nil)
		composed.Mul(cur, next)
		out[i+1] = composed
		cur = composed
	}
	return out
}

func identity4() *mat.Dense {
	d := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func transformToRigid(t *mat.Dense) RigidTransform {
	q := rotationMatrixToQuat(t)
	trans := r3.Vector{X: t.At(0, 3), Y: t.At(1, 3), Z: t.At(2, 3)}
	return RigidTransform{Rotation: q, Translation: trans}
}

// rotationMatrixToQuat converts the rotation submatrix of a 4x4 homogeneous
// transform to a unit quaternion (standard Shepperd's method).
func rotationMatrixToQuat(t *mat.Dense) quat.Number {
	m00, m01, m02 := t.At(0, 0), t.At(0, 1), t.At(0, 2)
	m10, m11, m12 := t.At(1, 0), t.At(1, 1), t.At(1, 2)
	m20, m21, m22 := t.At(2, 0), t.At(2, 1), t.At(2, 2)

	trace := m00 + m11 + m22
	var w, x, y, z float64
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		w = 0.25 / s
		x = (m21 - m12) * s
		y = (m02 - m20) * s
		z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}
	return normalize(quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z})
}

// Jacobian implements Model. It computes the 6xN geometric Jacobian for
// revolute joints: column i is [z_i x (p_e - p_i); z_i], where z_i is the
// joint-i rotation axis expressed in the base frame and p_i is the origin
// of joint i's frame, both taken from the current configuration.
func (m *SerialChainModel) Jacobian(group string) (*mat.Dense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group != m.group {
		return nil, errors.Errorf("kinematics: unknown move group %q", group)
	}
	transforms := m.linkTransforms()
	n := len(m.joints)
	end := transforms[n]
	pe := r3.Vector{X: end.At(0, 3), Y: end.At(1, 3), Z: end.At(2, 3)}

	jac := mat.NewDense(6, n, nil)
	for i := 0; i < n; i++ {
		ti := transforms[i]
		zAxis := r3.Vector{X: ti.At(0, 2), Y: ti.At(1, 2), Z: ti.At(2, 2)}
		pi := r3.Vector{X: ti.At(0, 3), Y: ti.At(1, 3), Z: ti.At(2, 3)}
		linear := zAxis.Cross(pe.Sub(pi))
		jac.Set(0, i, linear.X)
		jac.Set(1, i, linear.Y)
		jac.Set(2, i, linear.Z)
		jac.Set(3, i, zAxis.X)
		jac.Set(4, i, zAxis.Y)
		jac.Set(5, i, zAxis.Z)
	}
	return jac, nil
}

// GlobalLinkTransform implements Model. An empty frame returns the
// end-effector transform. A frame matching the configured base frame (see
// SetBaseFrame) returns the identity transform. A frame matching a joint
// name returns the base-to-that-joint's-frame transform. Any other,
// non-empty frame name is unknown to this model and returns ErrUnknownJoint
// rather than silently guessing the end effector.
func (m *SerialChainModel) GlobalLinkTransform(frame string) (RigidTransform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	transforms := m.linkTransforms()
	if frame == "" {
		return transformToRigid(transforms[len(transforms)-1]), nil
	}
	if m.baseFrame != "" && frame == m.baseFrame {
		return transformToRigid(transforms[0]), nil
	}
	for i, j := range m.joints {
		if j.Name == frame {
			return transformToRigid(transforms[i+1]), nil
		}
	}
	return RigidTransform{}, errors.Wrapf(ErrUnknownJoint, "%q", frame)
}

// JointNames implements Model.
func (m *SerialChainModel) JointNames(group string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group != m.group {
		return nil, errors.Errorf("kinematics: unknown move group %q", group)
	}
	return m.names.Names(), nil
}

// CopyJointGroupPositions implements Model.
func (m *SerialChainModel) CopyJointGroupPositions(group string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group != m.group {
		return nil, errors.Errorf("kinematics: unknown move group %q", group)
	}
	return append([]float64(nil), m.position...), nil
}

// SetJointGroupPositions implements Model.
func (m *SerialChainModel) SetJointGroupPositions(group string, theta []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group != m.group {
		return errors.Errorf("kinematics: unknown move group %q", group)
	}
	if len(theta) != len(m.position) {
		return errors.Wrapf(ErrDimensionMismatch, "got %d, want %d", len(theta), len(m.position))
	}
	copy(m.position, theta)
	return nil
}

// SatisfiesVelocityBounds implements Model.
func (m *SerialChainModel) SatisfiesVelocityBounds(joint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(joint)
	if err != nil {
		return true
	}
	limit := m.joints[i].VelocityLimit
	if limit <= 0 {
		return true
	}
	return math.Abs(m.velocity[i]) <= limit
}

// EnforceVelocityBounds implements Model.
func (m *SerialChainModel) EnforceVelocityBounds(joint string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(joint)
	if err != nil {
		return 0, false
	}
	limit := m.joints[i].VelocityLimit
	if limit <= 0 || math.Abs(m.velocity[i]) <= limit {
		return m.velocity[i], false
	}
	if m.velocity[i] > 0 {
		m.velocity[i] = limit
	} else {
		m.velocity[i] = -limit
	}
	return m.velocity[i], true
}

// SatisfiesPositionBounds implements Model.
func (m *SerialChainModel) SatisfiesPositionBounds(joint string, margin float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(joint)
	if err != nil {
		return true
	}
	j := m.joints[i]
	if !j.HasPositionLimit {
		return true
	}
	p := m.position[i]
	return p >= j.PositionLimit.Min-margin && p <= j.PositionLimit.Max+margin
}

// JointVelocity implements Model.
func (m *SerialChainModel) JointVelocity(joint string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(joint)
	if err != nil {
		return 0
	}
	return m.velocity[i]
}

// VariableBounds implements Model.
func (m *SerialChainModel) VariableBounds(joint string) (Limit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.indexOf(joint)
	if err != nil {
		return Limit{}, false
	}
	j := m.joints[i]
	return j.PositionLimit, j.HasPositionLimit
}
