// Package state implements the Shared State Block (spec.md §4.7, §3,
// Component G): a single mutex-protected record shared between the Jog
// Core and external producers (joint-state, command, collision, staleness
// watchdog, publisher).
//
// Grounded on viam-devrel-so-101/manager.go's SafeSoArmController
// ref-counted, mutex-guarded shared controller pattern.
package state

import (
	"sync"

	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/pkg/types"
)

// Block is the Shared State Block. Every field is read or written only
// while holding mu; critical sections are kept to the minimum time needed
// to copy a value in or out (spec.md §5).
type Block struct {
	mu sync.Mutex

	joints types.JointStateSnapshot

	commandDeltas      types.TwistCommand
	jointCommandDeltas types.JointJogCommand

	zeroCartesianCmd bool
	zeroJointCmd     bool
	commandIsStale   bool

	driftDimensions types.DriftDimensions

	collisionVelocityScale float64

	tfMoveitToCmdFrame kinematics.RigidTransform

	outgoingCommand types.OutgoingTrajectory
	okToPublish     bool

	warningActive bool
}

// New constructs an empty Block with collision scale defaulted to 1 (no
// collision proximity reported yet) and the identity command-frame
// transform.
func New() *Block {
	return &Block{
		collisionVelocityScale: 1,
		tfMoveitToCmdFrame:     kinematics.Identity(),
	}
}

// --- producer-facing setters ---

// SetJoints is called by the joint-feedback producer with the latest
// snapshot.
func (b *Block) SetJoints(j types.JointStateSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joints = j.Clone()
}

// SetCartesianCommand is called by the Cartesian command producer.
func (b *Block) SetCartesianCommand(cmd types.TwistCommand, zero bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commandDeltas = cmd
	b.zeroCartesianCmd = zero
}

// SetJointCommand is called by the joint command producer.
func (b *Block) SetJointCommand(cmd types.JointJogCommand, zero bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jointCommandDeltas = cmd
	b.zeroJointCmd = zero
}

// SetCommandStale is called by the staleness watchdog.
func (b *Block) SetCommandStale(stale bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commandIsStale = stale
}

// SetDriftDimensions is called by the drift-dimension configuration
// producer (typically a one-time or occasional update, not per-tick).
func (b *Block) SetDriftDimensions(d types.DriftDimensions) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.driftDimensions = d
}

// SetCollisionVelocityScale is called by the external collision monitor.
func (b *Block) SetCollisionVelocityScale(scale float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collisionVelocityScale = scale
}

// --- Jog Core-facing setters (the Jog Core is the sole writer of these) ---

// SetCommandFrameTransform records the latest planning-frame to
// command-frame transform.
func (b *Block) SetCommandFrameTransform(tf kinematics.RigidTransform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tfMoveitToCmdFrame = tf
}

// PublishOutgoingCommand writes the trajectory produced by the last cycle
// and sets the publish gate.
func (b *Block) PublishOutgoingCommand(traj types.OutgoingTrajectory, okToPublish bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outgoingCommand = traj
	b.okToPublish = okToPublish
}

// PublishWarning records the aggregate boolean warning signal for the tick
// that just ran (spec.md §4.6.3, §6 Outputs): true if a velocity-scaling
// floor halt or a bounds-enforcement halt occurred this tick.
func (b *Block) PublishWarning(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warningActive = active
}

// --- consumer-facing snapshot getters ---

// Snapshot is an atomic-per-field, consistent-within-itself view of the
// fields the Jog Core reads each tick. Per spec.md §5, it is not
// guaranteed to be consistent *across* fields with a single instant in
// time.
type Snapshot struct {
	Joints                 types.JointStateSnapshot
	CommandDeltas          types.TwistCommand
	JointCommandDeltas     types.JointJogCommand
	ZeroCartesianCmd       bool
	ZeroJointCmd           bool
	CommandIsStale         bool
	DriftDimensions        types.DriftDimensions
	CollisionVelocityScale float64
	TfMoveitToCmdFrame     kinematics.RigidTransform
}

// TakeSnapshot copies out every field the Jog Core needs for one tick.
func (b *Block) TakeSnapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Joints:                 b.joints.Clone(),
		CommandDeltas:          b.commandDeltas,
		JointCommandDeltas:     b.jointCommandDeltas,
		ZeroCartesianCmd:       b.zeroCartesianCmd,
		ZeroJointCmd:           b.zeroJointCmd,
		CommandIsStale:         b.commandIsStale,
		DriftDimensions:        b.driftDimensions,
		CollisionVelocityScale: b.collisionVelocityScale,
		TfMoveitToCmdFrame:     b.tfMoveitToCmdFrame,
	}
}

// Joints returns the latest joint-state snapshot only.
func (b *Block) Joints() types.JointStateSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.joints.Clone()
}

// OutgoingCommand returns the most recently published trajectory and
// whether the publisher is cleared to send it.
func (b *Block) OutgoingCommand() (types.OutgoingTrajectory, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outgoingCommand, b.okToPublish
}

// CommandFrameTransform returns the latest planning-frame to command-frame
// transform.
func (b *Block) CommandFrameTransform() kinematics.RigidTransform {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tfMoveitToCmdFrame
}

// Warning returns the most recently published aggregate boolean warning
// signal.
func (b *Block) Warning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.warningActive
}
