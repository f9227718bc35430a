// Package config loads and validates JogParameters, the immutable
// configuration record for the jogging controller (spec.md §3).
//
// Grounded on pony-zhang-go_control/internal/config/manager.go's
// ConfigManager.Load/Validate pattern and viam-devrel-so-101/config.go's
// Validate method shape.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yangmingustb/moveit/pkg/types"
)

// JogParameters is the immutable-after-construction configuration for one
// Jog Core instance (spec.md §3).
type JogParameters struct {
	MoveGroupName         string  `yaml:"move_group_name"`
	PlanningFrame         string  `yaml:"planning_frame"`
	RobotLinkCommandFrame string  `yaml:"robot_link_command_frame"`
	PublishPeriod         float64 `yaml:"publish_period"`
	LowPassFilterCoeff    float64 `yaml:"low_pass_filter_coeff"`
	LinearScale           float64 `yaml:"linear_scale"`
	RotationalScale       float64 `yaml:"rotational_scale"`
	JointScale            float64 `yaml:"joint_scale"`
	CommandInType         string  `yaml:"command_in_type"` // "unitless" | "speed_units"

	LowerSingularityThreshold   float64 `yaml:"lower_singularity_threshold"`
	HardStopSingularityThreshold float64 `yaml:"hard_stop_singularity_threshold"`
	JointLimitMargin             float64 `yaml:"joint_limit_margin"`

	NumOutgoingHaltMsgsToPublish int `yaml:"num_outgoing_halt_msgs_to_publish"`

	PublishJointPositions     bool `yaml:"publish_joint_positions"`
	PublishJointVelocities    bool `yaml:"publish_joint_velocities"`
	PublishJointAccelerations bool `yaml:"publish_joint_accelerations"`

	UseGazebo                   bool `yaml:"use_gazebo"`
	GazeboRedundantMessageCount int  `yaml:"gazebo_redundant_message_count"`
}

// CommandInTypeEnum parses CommandInType into the types package's enum. An
// unrecognized value is a configuration error (spec.md §6).
func (p *JogParameters) CommandInTypeEnum() (types.CommandInType, error) {
	switch p.CommandInType {
	case "unitless", "":
		return types.Unitless, nil
	case "speed_units":
		return types.SpeedUnits, nil
	default:
		return 0, errors.Errorf("config: unrecognized command_in_type %q", p.CommandInType)
	}
}

// Default returns a JogParameters with the defaulting this package applies
// before validation: publish-mode flags default to positions+velocities and
// gazebo_redundant_message_count defaults to 1. Validate separately resets a
// non-positive count to 1 when use_gazebo is set.
func Default() JogParameters {
	return JogParameters{
		PublishPeriod:                0.01,
		LowPassFilterCoeff:           0.9,
		LinearScale:                  1,
		RotationalScale:              1,
		JointScale:                   1,
		CommandInType:                "unitless",
		LowerSingularityThreshold:    30,
		HardStopSingularityThreshold: 90,
		JointLimitMargin:             0.1,
		PublishJointPositions:        true,
		PublishJointVelocities:       true,
		GazeboRedundantMessageCount:  1,
	}
}

// Load reads and validates a JogParameters from a YAML file at path,
// starting from Default() so unset fields keep sane defaults.
func Load(path string) (JogParameters, error) {
	p := Default()
	f, err := os.ReadFile(path)
	if err != nil {
		return JogParameters{}, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := yaml.Unmarshal(f, &p); err != nil {
		return JogParameters{}, errors.Wrapf(err, "config: parsing %s", path)
	}
	if err := p.Validate(); err != nil {
		return JogParameters{}, err
	}
	return p, nil
}

// Validate checks JogParameters invariants (spec.md §3) and applies
// defaulting that depends on other fields (gazebo count).
func (p *JogParameters) Validate() error {
	if p.MoveGroupName == "" {
		return errors.New("config: move_group_name is required")
	}
	if p.PlanningFrame == "" {
		return errors.New("config: planning_frame is required")
	}
	if p.RobotLinkCommandFrame == "" {
		return errors.New("config: robot_link_command_frame is required")
	}
	if p.PublishPeriod <= 0 {
		return errors.Errorf("config: publish_period must be > 0, got %f", p.PublishPeriod)
	}
	if p.LowPassFilterCoeff <= 0 || p.LowPassFilterCoeff >= 1 {
		return errors.Errorf("config: low_pass_filter_coeff must be in (0, 1), got %f", p.LowPassFilterCoeff)
	}
	if _, err := p.CommandInTypeEnum(); err != nil {
		return err
	}
	if p.LowerSingularityThreshold >= p.HardStopSingularityThreshold {
		return errors.Errorf("config: lower_singularity_threshold (%f) must be < hard_stop_singularity_threshold (%f)",
			p.LowerSingularityThreshold, p.HardStopSingularityThreshold)
	}
	if p.JointLimitMargin < 0 {
		return errors.New("config: joint_limit_margin must be >= 0")
	}
	if p.NumOutgoingHaltMsgsToPublish < 0 {
		return errors.New("config: num_outgoing_halt_msgs_to_publish must be >= 0")
	}
	if p.UseGazebo && p.GazeboRedundantMessageCount <= 0 {
		p.GazeboRedundantMessageCount = 1
	}
	return nil
}
