package kinematics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RigidTransform is a rotation-then-translation rigid body transform,
// represented as a unit quaternion plus a translation vector. It backs
// GlobalLinkTransform and the shared state's tf_moveit_to_cmd_frame.
//
// Grounded on the rotation representation used by
// go.viam.com/rdk/spatialmath's DualQuaternion (gonum.org/v1/gonum/num/quat),
// kept self-contained here rather than depending on spatialmath's exact
// construction API.
type RigidTransform struct {
	Rotation    quat.Number
	Translation r3.Vector
}

// Identity returns the identity transform.
func Identity() RigidTransform {
	return RigidTransform{Rotation: quat.Number{Real: 1}}
}

// NewRigidTransform builds a transform from a unit rotation quaternion and a
// translation.
func NewRigidTransform(rot quat.Number, trans r3.Vector) RigidTransform {
	return RigidTransform{Rotation: normalize(rot), Translation: trans}
}

// RotateVector applies only the rotation part of the transform to v. Used
// for rotating twist linear/angular components into a new frame, where
// translation has no effect (spec P2).
func (t RigidTransform) RotateVector(v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	q := t.Rotation
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// TransformPoint applies rotation and translation to a point.
func (t RigidTransform) TransformPoint(p r3.Vector) r3.Vector {
	return t.RotateVector(p).Add(t.Translation)
}

// Inverse returns the inverse rigid transform.
func (t RigidTransform) Inverse() RigidTransform {
	invRot := quat.Conj(t.Rotation)
	invTrans := RigidTransform{Rotation: invRot}.RotateVector(t.Translation.Mul(-1))
	return RigidTransform{Rotation: invRot, Translation: invTrans}
}

// Compose returns the transform equivalent to applying t first, then other:
// result = other * t.
func (t RigidTransform) Compose(other RigidTransform) RigidTransform {
	return RigidTransform{
		Rotation:    normalize(quat.Mul(other.Rotation, t.Rotation)),
		Translation: other.RotateVector(t.Translation).Add(other.Translation),
	}
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
