// Package scale implements the Command Scaler (spec.md §4.3, Component C):
// converting unitless or physical-unit twist and joint commands into
// per-cycle deltas.
package scale

import (
	"github.com/pkg/errors"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/pkg/types"
)

// UnknownJointFunc is called for each joint name in a JointJogCommand that
// is not part of the move group, so the caller can route it to the
// throttled warning sink (spec.md §4.3).
type UnknownJointFunc func(name string)

// Cartesian converts a TwistCommand into a 6-vector delta
// [linear.x, linear.y, linear.z, angular.x, angular.y, angular.z], per
// spec.md §4.3.
func Cartesian(cmd types.TwistCommand, p config.JogParameters) ([6]float64, error) {
	kind, err := p.CommandInTypeEnum()
	if err != nil {
		return [6]float64{}, err
	}
	var out [6]float64
	switch kind {
	case types.Unitless:
		out[0] = p.LinearScale * p.PublishPeriod * cmd.Linear.X
		out[1] = p.LinearScale * p.PublishPeriod * cmd.Linear.Y
		out[2] = p.LinearScale * p.PublishPeriod * cmd.Linear.Z
		out[3] = p.RotationalScale * p.PublishPeriod * cmd.Angular.X
		out[4] = p.RotationalScale * p.PublishPeriod * cmd.Angular.Y
		out[5] = p.RotationalScale * p.PublishPeriod * cmd.Angular.Z
	case types.SpeedUnits:
		out[0] = p.PublishPeriod * cmd.Linear.X
		out[1] = p.PublishPeriod * cmd.Linear.Y
		out[2] = p.PublishPeriod * cmd.Linear.Z
		out[3] = p.PublishPeriod * cmd.Angular.X
		out[4] = p.PublishPeriod * cmd.Angular.Y
		out[5] = p.PublishPeriod * cmd.Angular.Z
	default:
		return [6]float64{}, errors.Errorf("scale: unhandled command_in_type %d", kind)
	}
	return out, nil
}

// Joint converts a JointJogCommand into a zero-initialized δθ vector sized
// by names, per spec.md §4.3. Names in cmd not present in names are
// reported via onUnknown (which may be nil) and otherwise ignored.
func Joint(cmd types.JointJogCommand, p config.JogParameters, names *types.JointNameIndex, onUnknown UnknownJointFunc) ([]float64, error) {
	kind, err := p.CommandInTypeEnum()
	if err != nil {
		return nil, err
	}
	delta := make([]float64, names.Len())
	jointGain := 1.0
	if kind == types.Unitless {
		jointGain = p.JointScale
	}
	for i, name := range cmd.JointNames {
		idx, ok := names.Lookup(name)
		if !ok {
			if onUnknown != nil {
				onUnknown(name)
			}
			continue
		}
		delta[idx] = cmd.Velocities[i] * jointGain * p.PublishPeriod
	}
	return delta, nil
}
