package jogcore

import (
	"time"

	"github.com/pkg/errors"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/safety"
	"github.com/yangmingustb/moveit/pkg/types"
)

// convertDeltasToOutgoingCmd implements spec.md §4.6.3: it increments
// joints by deltaTheta, filters the resulting positions, derives
// velocities, composes a single-point trajectory, enforces bounds, and
// duplicates the point for Gazebo if configured.
func (c *Core) convertDeltasToOutgoingCmd(deltaTheta []float64, joints, originalState types.JointStateSnapshot) (types.OutgoingTrajectory, error) {
	if len(deltaTheta) != joints.NumJoints() {
		return types.OutgoingTrajectory{}, errors.Errorf(
			"jogcore: delta_theta size %d does not match joint count %d", len(deltaTheta), joints.NumJoints())
	}

	positions := append([]float64(nil), joints.Position...)
	for i, d := range deltaTheta {
		positions[i] += d
	}

	filtered, err := c.positionFilters.Next(positions)
	if err != nil {
		return types.OutgoingTrajectory{}, errors.Wrap(err, "jogcore: filtering joint positions")
	}
	joints.Position = filtered

	velocities := make([]float64, len(deltaTheta))
	for i, d := range deltaTheta {
		velocities[i] = d / c.params.PublishPeriod
	}
	joints.Velocity = velocities

	point := types.TrajectoryPoint{
		TimeFromStart: time.Duration(c.params.PublishPeriod * float64(time.Second)),
	}
	if c.params.PublishJointPositions {
		point.Positions = append([]float64(nil), joints.Position...)
	}
	if c.params.PublishJointVelocities {
		point.Velocities = append([]float64(nil), joints.Velocity...)
	}
	if c.params.PublishJointAccelerations {
		point.Accelerations = make([]float64, len(deltaTheta))
	}

	traj := types.OutgoingTrajectory{
		FrameID:    c.params.PlanningFrame,
		Stamp:      time.Now(),
		JointNames: append([]string(nil), joints.Name...),
		Points:     []types.TrajectoryPoint{point},
	}

	ok := safety.EnforceBounds(joints.Name, traj.Points[0].Velocities, originalState, c.model, c.params.JointLimitMargin)
	if !ok {
		c.hasWarning = true
		c.warnSink.Warnf("joint_limit", "jogcore: joint approaching limit while still moving toward it, halting")
		suddenHalt(&traj, originalState, c.params)
	}

	if c.params.UseGazebo && c.params.GazeboRedundantMessageCount > 1 {
		duplicateForGazebo(&traj, c.params)
	}

	return traj, nil
}

// suddenHalt zeroes the trajectory's velocities and reverts its positions
// to originalState (spec.md §4.5); it is the jogcore-local wrapper around
// safety.SuddenHalt since the trajectory shape is only known here.
func suddenHalt(traj *types.OutgoingTrajectory, originalState types.JointStateSnapshot, p config.JogParameters) {
	for _, point := range traj.Points {
		safety.SuddenHalt(traj.JointNames, point.Positions, point.Velocities, originalState, p)
	}
}

// duplicateForGazebo implements spec.md §4.6.3's Gazebo redundant-message
// duplication: points[0] is repeated gazebo_redundant_message_count-1
// additional times, each with time_from_start = i * publish_period for
// i = 2..count, since some Gazebo joint trajectory controllers drop the
// first point of a short trajectory.
func duplicateForGazebo(traj *types.OutgoingTrajectory, p config.JogParameters) {
	if len(traj.Points) == 0 {
		return
	}
	first := traj.Points[0]
	for i := 2; i <= p.GazeboRedundantMessageCount; i++ {
		dup := types.TrajectoryPoint{
			TimeFromStart: time.Duration(float64(i) * p.PublishPeriod * float64(time.Second)),
			Positions:     append([]float64(nil), first.Positions...),
			Velocities:    append([]float64(nil), first.Velocities...),
			Accelerations: append([]float64(nil), first.Accelerations...),
		}
		traj.Points = append(traj.Points, dup)
	}
}
