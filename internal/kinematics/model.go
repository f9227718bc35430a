// Package kinematics adapts an externally supplied robot model (forward
// kinematics, Jacobian, joint bounds) to the interface the Jog Core needs.
// Per spec.md §1, the kinematics library itself is an out-of-scope external
// collaborator; this package defines the adapter contract (Model) and ships
// one concrete, gonum-backed reference implementation (SerialChainModel) so
// the controller is runnable standalone.
package kinematics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/yangmingustb/moveit/pkg/types"
)

// Limit describes a joint's position bounds. Joints with no declared limits
// (continuous joints) are represented by their absence from VariableBounds.
type Limit struct {
	Min float64
	Max float64
}

// Model is the Kinematics Adapter contract (spec.md §4.1, Component A).
// Implementations are pure functions of current kinematic state; the Jog
// Core is the sole caller and enforces single-threaded access.
type Model interface {
	// SetVariables overwrites the model's current joint positions.
	SetVariables(state types.JointStateSnapshot) error

	// Jacobian returns the 6xN joint-velocity-to-Cartesian-velocity map at
	// the model's current configuration, for the named move group.
	Jacobian(group string) (*mat.Dense, error)

	// GlobalLinkTransform returns the transform from the model's base frame
	// to the named link at the current configuration.
	GlobalLinkTransform(frame string) (RigidTransform, error)

	// JointNames returns the group's joints in the canonical order every
	// other per-joint method and Jacobian column corresponds to. Built once
	// at initialization time by callers (spec.md §3, JointNameIndex).
	JointNames(group string) ([]string, error)

	// CopyJointGroupPositions returns the current positions for the group's
	// joints, in canonical order.
	CopyJointGroupPositions(group string) ([]float64, error)

	// SetJointGroupPositions overwrites the group's joint positions.
	SetJointGroupPositions(group string, theta []float64) error

	// SatisfiesVelocityBounds reports whether the joint's current velocity
	// is within its declared velocity bound.
	SatisfiesVelocityBounds(joint string) bool

	// EnforceVelocityBounds clamps the joint's current velocity to its
	// declared bound in place, returning the (possibly clamped) velocity and
	// whether a clamp occurred.
	EnforceVelocityBounds(joint string) (float64, bool)

	// SatisfiesPositionBounds reports whether the joint's current position,
	// expanded by margin on both sides, is within its declared bound.
	// A negative margin shrinks the effective bound (used to detect
	// approach to a limit before it is reached).
	SatisfiesPositionBounds(joint string, margin float64) bool

	// JointVelocity returns the joint's current velocity.
	JointVelocity(joint string) float64

	// VariableBounds returns the joint's declared position limit, if any.
	VariableBounds(joint string) (Limit, bool)
}

// ErrUnknownJoint is returned by Model implementations when asked about a
// joint name outside the model's group.
var ErrUnknownJoint = errors.New("kinematics: unknown joint")

// ErrDimensionMismatch is returned when a joint vector's length does not
// match the model's joint count.
var ErrDimensionMismatch = errors.New("kinematics: dimension mismatch")
