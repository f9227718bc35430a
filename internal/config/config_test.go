package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() JogParameters {
	p := Default()
	p.MoveGroupName = "arm"
	p.PlanningFrame = "base_link"
	p.RobotLinkCommandFrame = "tool0"
	return p
}

func TestValidateAcceptsDefaults(t *testing.T) {
	p := validParams()
	assert.NoError(t, p.Validate())
}

func TestValidateRejectsBadPublishPeriod(t *testing.T) {
	p := validParams()
	p.PublishPeriod = 0
	assert.Error(t, p.Validate())
}

func TestValidateRejectsInvertedSingularityThresholds(t *testing.T) {
	p := validParams()
	p.LowerSingularityThreshold = 90
	p.HardStopSingularityThreshold = 30
	assert.Error(t, p.Validate())
}

func TestValidateRejectsUnknownCommandInType(t *testing.T) {
	p := validParams()
	p.CommandInType = "bogus"
	assert.Error(t, p.Validate())
}

func TestValidateDefaultsGazeboCount(t *testing.T) {
	p := validParams()
	p.UseGazebo = true
	p.GazeboRedundantMessageCount = 0
	require.NoError(t, p.Validate())
	assert.Equal(t, 1, p.GazeboRedundantMessageCount)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jog.yaml")
	contents := []byte(`
move_group_name: arm
planning_frame: base_link
robot_link_command_frame: tool0
publish_period: 0.02
linear_scale: 0.4
command_in_type: unitless
`)
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "arm", p.MoveGroupName)
	assert.InDelta(t, 0.02, p.PublishPeriod, 1e-9)
	assert.InDelta(t, 0.4, p.LinearScale, 1e-9)
}
