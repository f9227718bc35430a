// Package types holds the data model shared across the jogging controller:
// joint-state snapshots, Cartesian and joint commands, and outgoing
// trajectory points.
package types

import (
	"time"

	"github.com/golang/geo/r3"
)

// CommandInType selects how a command's numeric components are interpreted.
type CommandInType int

const (
	// Unitless means components are in [-1, 1] and must be scaled by the
	// configured linear/rotational/joint scale and the publish period.
	Unitless CommandInType = iota
	// SpeedUnits means components are already physical velocities
	// (m/s, rad/s) and only need to be multiplied by the publish period.
	SpeedUnits
)

// JointStateSnapshot is an ordered snapshot of joint feedback. Name, Position,
// Velocity, and Effort are always the same length (NumJoints), in the
// canonical order returned by the kinematics model for the move group.
type JointStateSnapshot struct {
	Name     []string
	Position []float64
	Velocity []float64
	Effort   []float64
}

// NumJoints returns the number of joints described by this snapshot.
func (j *JointStateSnapshot) NumJoints() int {
	return len(j.Name)
}

// Clone returns a deep copy, so callers can mutate the result without
// affecting the snapshot it was taken from.
func (j *JointStateSnapshot) Clone() JointStateSnapshot {
	out := JointStateSnapshot{
		Name:     append([]string(nil), j.Name...),
		Position: append([]float64(nil), j.Position...),
		Velocity: append([]float64(nil), j.Velocity...),
		Effort:   append([]float64(nil), j.Effort...),
	}
	return out
}

// JointNameIndex is a total function from joint name to index in
// [0, NumJoints), built once at initialization from the kinematics model's
// canonical joint order.
type JointNameIndex struct {
	indexOf map[string]int
	ordered []string
}

// NewJointNameIndex builds a JointNameIndex from the canonical joint order.
func NewJointNameIndex(names []string) *JointNameIndex {
	idx := &JointNameIndex{
		indexOf: make(map[string]int, len(names)),
		ordered: append([]string(nil), names...),
	}
	for i, n := range names {
		idx.indexOf[n] = i
	}
	return idx
}

// Lookup returns the index for name and whether it was found.
func (j *JointNameIndex) Lookup(name string) (int, bool) {
	i, ok := j.indexOf[name]
	return i, ok
}

// Len returns the number of joints in the index.
func (j *JointNameIndex) Len() int {
	return len(j.ordered)
}

// Names returns the canonical joint order.
func (j *JointNameIndex) Names() []string {
	return j.ordered
}

// TwistCommand is a stamped Cartesian velocity command.
type TwistCommand struct {
	FrameID string
	Stamp   time.Time
	Linear  r3.Vector
	Angular r3.Vector
}

// IsFinite reports whether every component of the twist is finite (no NaN
// or Inf). A NaN or Inf component invalidates the sample (spec P1).
func (t *TwistCommand) IsFinite() bool {
	for _, v := range []float64{
		t.Linear.X, t.Linear.Y, t.Linear.Z,
		t.Angular.X, t.Angular.Y, t.Angular.Z,
	} {
		if isNaNOrInf(v) {
			return false
		}
	}
	return true
}

// MaxAbsComponent returns the largest absolute value across all six
// components, used to reject out-of-range unitless commands.
func (t *TwistCommand) MaxAbsComponent() float64 {
	max := 0.0
	for _, v := range []float64{
		t.Linear.X, t.Linear.Y, t.Linear.Z,
		t.Angular.X, t.Angular.Y, t.Angular.Z,
	} {
		if av := abs(v); av > max {
			max = av
		}
	}
	return max
}

// JointJogCommand is a stamped set of per-joint velocity commands.
type JointJogCommand struct {
	Stamp       time.Time
	JointNames  []string
	Velocities  []float64
}

// IsFinite reports whether every velocity is finite.
func (c *JointJogCommand) IsFinite() bool {
	for _, v := range c.Velocities {
		if isNaNOrInf(v) {
			return false
		}
	}
	return true
}

// MaxAbsVelocity returns the largest absolute velocity commanded.
func (c *JointJogCommand) MaxAbsVelocity() float64 {
	max := 0.0
	for _, v := range c.Velocities {
		if av := abs(v); av > max {
			max = av
		}
	}
	return max
}

// DriftDimensions is a six-element boolean vector, one per Cartesian axis
// {x, y, z, rx, ry, rz}. When an entry is true that row is dropped from the
// Jacobian to admit redundant drift along that axis.
type DriftDimensions [6]bool

// AnyEnabled reports whether at least one drift dimension is set.
func (d DriftDimensions) AnyEnabled() bool {
	for _, v := range d {
		if v {
			return true
		}
	}
	return false
}

// TrajectoryPoint is a single point in the outgoing joint trajectory.
type TrajectoryPoint struct {
	TimeFromStart time.Duration
	Positions     []float64
	Velocities    []float64
	Accelerations []float64
}

// OutgoingTrajectory is the trajectory the Jog Core hands off for
// publication: a frame id, joint name order, and one or more points.
type OutgoingTrajectory struct {
	FrameID    string
	Stamp      time.Time
	JointNames []string
	Points     []TrajectoryPoint
}

func isNaNOrInf(v float64) bool {
	return v != v || v > maxFinite || v < -maxFinite
}

const maxFinite = 1.7976931348623157e+308

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
