package jogcore

import (
	"math"

	"github.com/pkg/errors"

	"github.com/yangmingustb/moveit/internal/safety"
	"github.com/yangmingustb/moveit/internal/scale"
	"github.com/yangmingustb/moveit/internal/singularity"
	"github.com/yangmingustb/moveit/internal/state"
	"github.com/yangmingustb/moveit/pkg/types"
)

// errRejectedSample signals a malformed command sample (spec.md §7): the
// tick is skipped, prior state retained, nothing published, but this is not
// an operational error worth an error-level log.
var errRejectedSample = errors.New("jogcore: command sample rejected")

// runCartesianJog implements spec.md §4.6.1.
func (c *Core) runCartesianJog(snap state.Snapshot, joints, originalState types.JointStateSnapshot) (types.OutgoingTrajectory, bool, error) {
	cmd := snap.CommandDeltas

	if !cmd.IsFinite() {
		c.warnSink.Warnf("cartesian.nan", "jogcore: rejecting Cartesian command with non-finite component")
		return types.OutgoingTrajectory{}, false, errRejectedSample
	}
	kind, err := c.params.CommandInTypeEnum()
	if err != nil {
		return types.OutgoingTrajectory{}, false, err
	}
	if kind == types.Unitless && cmd.MaxAbsComponent() > 1 {
		c.warnSink.Warnf("cartesian.range", "jogcore: rejecting unitless Cartesian command with component > 1")
		return types.OutgoingTrajectory{}, false, errRejectedSample
	}

	if cmd.FrameID != "" && cmd.FrameID != c.params.PlanningFrame {
		cmd.Linear = snap.TfMoveitToCmdFrame.RotateVector(cmd.Linear)
		cmd.Angular = snap.TfMoveitToCmdFrame.RotateVector(cmd.Angular)
		cmd.FrameID = c.params.PlanningFrame
	}

	dx6, err := scale.Cartesian(cmd, c.params)
	if err != nil {
		return types.OutgoingTrajectory{}, false, err
	}
	dx := dx6[:]

	jac, err := c.model.Jacobian(c.params.MoveGroupName)
	if err != nil {
		return types.OutgoingTrajectory{}, false, errors.Wrap(err, "jogcore: computing Jacobian")
	}

	reducedJac, reducedDx := singularity.RemoveDriftRows(jac, dx, snap.DriftDimensions)

	jPlus, svd, err := singularity.PseudoInverse(reducedJac)
	if err != nil {
		return types.OutgoingTrajectory{}, false, errors.Wrap(err, "jogcore: pseudo-inverting Jacobian")
	}
	deltaTheta := singularity.MulVec(jPlus, reducedDx)

	warnedSingularity := false
	singScale, err := singularity.Scale(
		svd, jPlus, reducedDx, c.params.MoveGroupName, snap.DriftDimensions, c.model,
		c.params.LowerSingularityThreshold, c.params.HardStopSingularityThreshold,
		func() { warnedSingularity = true },
	)
	if err != nil {
		return types.OutgoingTrajectory{}, false, errors.Wrap(err, "jogcore: computing singularity scale")
	}
	if warnedSingularity {
		c.warnSink.Warnf("singularity", "jogcore: close to singularity, scaling velocity to zero")
	}

	scaledDelta, ok := safety.ApplyVelocityScaling(deltaTheta, snap.CollisionVelocityScale, singScale)
	if !ok {
		c.hasWarning = true
		c.warnSink.Warnf("velocity_floor", "jogcore: combined collision/singularity scale below floor, halting")
		traj, err := c.convertDeltasToOutgoingCmd(make([]float64, c.numJoints), joints, originalState)
		if err != nil {
			return types.OutgoingTrajectory{}, false, err
		}
		suddenHalt(&traj, originalState, c.params)
		return traj, false, nil
	}

	traj, err := c.convertDeltasToOutgoingCmd(scaledDelta, joints, originalState)
	if err != nil {
		return types.OutgoingTrajectory{}, false, err
	}
	return traj, anyNonZero(scaledDelta), nil
}

func anyNonZero(v []float64) bool {
	for _, x := range v {
		if x != 0 && !math.IsNaN(x) {
			return true
		}
	}
	return false
}
