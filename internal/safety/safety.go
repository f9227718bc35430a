// Package safety implements the Safety Scaler (spec.md §4.5, Component E):
// combining collision and singularity scalars, enforcing position and
// velocity bounds, and sudden halt.
package safety

import (
	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/pkg/types"
)

// VelocityBoundedModel is the slice of kinematics.Model the Safety Scaler
// needs for bounds enforcement.
type VelocityBoundedModel interface {
	SatisfiesVelocityBounds(joint string) bool
	EnforceVelocityBounds(joint string) (float64, bool)
	SatisfiesPositionBounds(joint string, margin float64) bool
	JointVelocity(joint string) float64
	VariableBounds(joint string) (kinematics.Limit, bool)
}

// ApplyVelocityScaling combines the collision and singularity scalars into
// δθ, returning the scaled delta and whether the combined scale is large
// enough to keep moving (spec.md §4.5: ok requires scale >= 0.1).
func ApplyVelocityScaling(deltaTheta []float64, collisionScale, singularityScale float64) ([]float64, bool) {
	combined := collisionScale * singularityScale
	out := make([]float64, len(deltaTheta))
	for i, v := range deltaTheta {
		out[i] = combined * v
	}
	return out, combined >= 0.1
}

// EnforceBounds implements spec.md §4.5's enforceBounds: it clamps
// out-of-bound velocities in place (on the model and, where the index
// exists, in the trajectory's velocity vector) and reports whether any
// joint is moving further past its position margin, in which case the
// caller must perform a sudden halt.
//
// Per spec.md §4.5's TODO (preserved faithfully, see DESIGN.md): clamping a
// velocity does not also recompute the trajectory's position for that
// joint.
func EnforceBounds(
	jointNames []string,
	trajectoryVelocities []float64,
	originalState types.JointStateSnapshot,
	model VelocityBoundedModel,
	jointLimitMargin float64,
) bool {
	halting := false
	for i, name := range jointNames {
		if !model.SatisfiesVelocityBounds(name) {
			clamped, didClamp := model.EnforceVelocityBounds(name)
			if didClamp && i < len(trajectoryVelocities) {
				trajectoryVelocities[i] = clamped
			}
		}

		origIdx, ok := indexOfName(originalState.Name, name)
		if !ok {
			continue
		}
		limit, hasLimit := model.VariableBounds(name)
		if !hasLimit {
			continue
		}
		if !model.SatisfiesPositionBounds(name, -jointLimitMargin) {
			velocity := model.JointVelocity(name)
			angle := originalState.Position[origIdx]
			if (velocity < 0 && angle < limit.Min+jointLimitMargin) ||
				(velocity > 0 && angle > limit.Max-jointLimitMargin) {
				halting = true
			}
		}
	}
	return !halting
}

// SuddenHalt zeroes velocities and reverts positions to originalState,
// according to the publish-mode flags, per spec.md §4.5. It is idempotent
// (P3): calling it twice in a row on the same trajectory is a no-op the
// second time.
func SuddenHalt(
	jointNames []string,
	positions, velocities []float64,
	originalState types.JointStateSnapshot,
	p config.JogParameters,
) {
	for i, name := range jointNames {
		if p.PublishJointPositions && i < len(positions) {
			if origIdx, ok := indexOfName(originalState.Name, name); ok {
				positions[i] = originalState.Position[origIdx]
			}
		}
		if p.PublishJointVelocities && i < len(velocities) {
			velocities[i] = 0
		}
	}
}

func indexOfName(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
