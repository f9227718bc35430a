package jogcore

import (
	"github.com/yangmingustb/moveit/internal/scale"
	"github.com/yangmingustb/moveit/internal/state"
	"github.com/yangmingustb/moveit/pkg/types"
)

// runJointJog implements spec.md §4.6.2.
func (c *Core) runJointJog(snap state.Snapshot, joints, originalState types.JointStateSnapshot) (types.OutgoingTrajectory, bool, error) {
	cmd := snap.JointCommandDeltas

	if !cmd.IsFinite() || cmd.MaxAbsVelocity() > 1 {
		c.warnSink.Warnf("joint.range", "jogcore: rejecting joint jog command with non-finite or out-of-range velocity")
		return types.OutgoingTrajectory{}, false, errRejectedSample
	}

	deltaTheta, err := scale.Joint(cmd, c.params, c.names, func(name string) {
		c.warnSink.Warnf("joint.unknown", "jogcore: ignoring joint jog command for unknown joint %q", name)
	})
	if err != nil {
		return types.OutgoingTrajectory{}, false, err
	}

	if err := c.model.SetVariables(joints); err != nil {
		return types.OutgoingTrajectory{}, false, err
	}

	traj, err := c.convertDeltasToOutgoingCmd(deltaTheta, joints, originalState)
	if err != nil {
		return types.OutgoingTrajectory{}, false, err
	}
	return traj, anyNonZero(deltaTheta), nil
}
