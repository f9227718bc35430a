// Package jogcore implements the Jog Core (spec.md §4.6, Component F): the
// periodic control loop that reads the Shared State Block, dispatches a
// Cartesian or joint jog, and writes the resulting trajectory back.
//
// Grounded on go.viam.com/rdk/control's control_loop.go Loop.Start
// (utils.ManagedGo + time.Ticker + cooperative cancellation) and
// pony-zhang-go_control's internal/core/eventloop.go state-machine style.
package jogcore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/filter"
	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/internal/state"
	"github.com/yangmingustb/moveit/internal/warn"
	"github.com/yangmingustb/moveit/pkg/types"
)

// State is a Jog Core lifecycle state (spec.md §4.6).
type State int

const (
	StateInit State = iota
	StateWaitingForFirstCommand
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWaitingForFirstCommand:
		return "waiting_for_first_command"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// defaultSleepRate is the poll rate for the "wait for first joint message"
// spin-wait (spec.md §5, 1 kHz). There is no separate wait for the first
// command: ticks run from the start and the first command moves the core to
// Running.
const defaultSleepRate = time.Millisecond

// JointFeedback supplies the latest joint state on demand. The Jog Core
// polls it once per tick; it is the "middleware" collaborator spec.md §1
// scopes out.
type JointFeedback interface {
	// Latest returns the most recent joint-state snapshot and whether it is
	// ready (has at least num_joints names).
	Latest() (types.JointStateSnapshot, bool)
}

// Core is the Jog Core. One Core drives one move group.
type Core struct {
	params   config.JogParameters
	model    kinematics.Model
	shared   *state.Block
	feedback JointFeedback
	logger   logging.Logger
	warnSink *warn.Sink

	names           *types.JointNameIndex
	positionFilters *filter.Bank
	numJoints       int

	mu                   sync.Mutex
	st                   State
	paused               bool
	consecutiveZeroTicks int

	// hasWarning is tick-scoped: cleared at the start of runTick, set by
	// runCartesianJog/convertDeltasToOutgoingCmd on a halt, and published
	// once per tick as the aggregate boolean warning signal (spec.md
	// §4.6.3, §6 Outputs). Touched only from the single tick goroutine, so
	// it needs no lock of its own.
	hasWarning bool

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// New constructs a Core for one move group. Validation of params is the
// caller's responsibility (config.Load / config.JogParameters.Validate).
func New(params config.JogParameters, model kinematics.Model, shared *state.Block, feedback JointFeedback, logger logging.Logger) (*Core, error) {
	names, err := model.JointNames(params.MoveGroupName)
	if err != nil {
		return nil, errors.Wrap(err, "jogcore: resolving joint names")
	}
	bank, err := filter.NewBank(names, params.LowPassFilterCoeff)
	if err != nil {
		return nil, errors.Wrap(err, "jogcore: constructing filter bank")
	}
	return &Core{
		params:          params,
		model:           model,
		shared:          shared,
		feedback:        feedback,
		logger:          logger,
		warnSink:        warn.New(logger, time.Second),
		names:           types.NewJointNameIndex(names),
		positionFilters: bank,
		numJoints:       len(names),
		st:              StateInit,
	}, nil
}

// State returns the Jog Core's current lifecycle state.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// IsInitialized reports whether the Jog Core has completed Init (spec.md
// §6 control surface).
func (c *Core) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st != StateInit
}

// HaltOutgoingJogCmds toggles Running <-> Paused (spec.md §4.6).
func (c *Core) HaltOutgoingJogCmds(halt bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == StateStopped || c.st == StateInit {
		return
	}
	if halt {
		c.st = StatePaused
		c.paused = true
	} else if c.paused {
		c.st = StateRunning
		c.paused = false
	}
}

// StartMainLoop starts the periodic tick goroutine. It returns once the
// Jog Core has completed Init (the first successful joint update).
func (c *Core) StartMainLoop(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.waitForFirstJoints(runCtx); err != nil {
		cancel()
		return err
	}

	c.mu.Lock()
	c.st = StateWaitingForFirstCommand
	c.mu.Unlock()

	ticker := time.NewTicker(time.Duration(c.params.PublishPeriod * float64(time.Second)))
	c.workers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				c.tick(runCtx)
			}
		}
	}, c.workers.Done)
	return nil
}

// StopMainLoop stops the Jog Core cooperatively; the loop exits at the next
// iteration boundary (spec.md §5).
func (c *Core) StopMainLoop() {
	c.mu.Lock()
	c.st = StateStopped
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.workers.Wait()
}

func (c *Core) waitForFirstJoints(ctx context.Context) error {
	ticker := time.NewTicker(defaultSleepRate)
	defer ticker.Stop()
	for {
		if snap, ok := c.feedback.Latest(); ok {
			c.shared.SetJoints(snap)
			if err := c.model.SetVariables(snap); err != nil {
				return errors.Wrap(err, "jogcore: seeding kinematic model")
			}
			positions, err := c.model.CopyJointGroupPositions(c.params.MoveGroupName)
			if err != nil {
				return errors.Wrap(err, "jogcore: seeding filter bank")
			}
			if err := c.positionFilters.Reset(positions); err != nil {
				return errors.Wrap(err, "jogcore: seeding filter bank")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs one iteration of the Running-state control loop (spec.md §4.6).
func (c *Core) tick(ctx context.Context) {
	c.mu.Lock()
	st := c.st
	c.mu.Unlock()

	if st == StateStopped {
		return
	}

	snap, ok := c.feedback.Latest()
	if !ok {
		return // retry next tick; updateJoints not yet ready
	}
	c.shared.SetJoints(snap)

	if st == StatePaused {
		// Reseed filters only, so resuming causes no position step.
		if positions, err := c.model.CopyJointGroupPositions(c.params.MoveGroupName); err == nil {
			_ = c.positionFilters.Reset(positions)
		}
		return
	}

	if err := c.runTick(snap); err != nil {
		if err == errRejectedSample { //nolint:errorlint // sentinel returned unwrapped on purpose
			return // spec.md §7: drop the sample, retain prior state, continue
		}
		c.logger.Errorf("jogcore: tick failed: %v", err)
		return
	}
}

// runTick implements spec.md §4.6 steps 2-7.
func (c *Core) runTick(joints types.JointStateSnapshot) error {
	c.hasWarning = false

	if err := c.model.SetVariables(joints); err != nil {
		return errors.Wrap(err, "pushing joint state into kinematic model")
	}

	if err := c.refreshCommandFrameTransform(); err != nil {
		return errors.Wrap(err, "refreshing command frame transform")
	}

	snap := c.shared.TakeSnapshot()

	originalState := joints.Clone()

	var traj types.OutgoingTrajectory
	var nonZero bool
	var err error

	switch {
	case !snap.ZeroCartesianCmd:
		traj, nonZero, err = c.runCartesianJog(snap, joints, originalState)
		c.noteCommandReceived()
	case !snap.ZeroJointCmd:
		traj, nonZero, err = c.runJointJog(snap, joints, originalState)
		c.noteCommandReceived()
	default:
		traj, err = c.zeroMotionTrajectory(joints)
		nonZero = false
	}
	if err != nil {
		return err
	}

	if snap.CommandIsStale || (snap.ZeroCartesianCmd && snap.ZeroJointCmd) {
		c.haltTrajectory(&traj, originalState)
		nonZero = false
	}

	c.publish(traj, nonZero)
	c.shared.PublishWarning(c.hasWarning)
	return nil
}

func (c *Core) noteCommandReceived() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == StateWaitingForFirstCommand {
		c.st = StateRunning
	}
}

func (c *Core) refreshCommandFrameTransform() error {
	planningTf, err := c.model.GlobalLinkTransform(c.params.PlanningFrame)
	if err != nil {
		return err
	}
	commandTf, err := c.model.GlobalLinkTransform(c.params.RobotLinkCommandFrame)
	if err != nil {
		return err
	}
	// tf_moveit_to_cmd_frame = planning_frame.inverse() * command_frame (the
	// matrix product A⁻¹·B). RigidTransform.Compose(t, other) means "apply t
	// first, then other" = other*t, so A⁻¹·B is commandTf.Compose(planningTf
	// .Inverse()): apply B (commandTf) first, then A⁻¹ (planningTf.Inverse()).
	tf := commandTf.Compose(planningTf.Inverse())
	c.shared.SetCommandFrameTransform(tf)
	return nil
}

func (c *Core) zeroMotionTrajectory(joints types.JointStateSnapshot) (types.OutgoingTrajectory, error) {
	delta := make([]float64, c.numJoints)
	return c.convertDeltasToOutgoingCmd(delta, joints, joints.Clone())
}

// haltTrajectory applies suddenHalt in place (spec.md §4.6 step 5). The
// halted tick is counted toward the consecutive-zero publish budget by
// publish, because runTick passes it nonZero = false.
func (c *Core) haltTrajectory(traj *types.OutgoingTrajectory, originalState types.JointStateSnapshot) {
	if len(traj.Points) == 0 {
		return
	}
	suddenHalt(traj, originalState, c.params)
}

// publish implements spec.md §4.6 step 6: the consecutive-zero-tick
// publish budget.
func (c *Core) publish(traj types.OutgoingTrajectory, nonZero bool) {
	c.mu.Lock()
	if nonZero {
		c.consecutiveZeroTicks = 0
	} else if c.consecutiveZeroTicks < int(^uint(0)>>1) {
		c.consecutiveZeroTicks++
	}
	withinBudget := c.params.NumOutgoingHaltMsgsToPublish == 0 ||
		c.consecutiveZeroTicks <= c.params.NumOutgoingHaltMsgsToPublish
	okToPublish := nonZero || withinBudget
	c.mu.Unlock()

	c.shared.PublishOutgoingCommand(traj, okToPublish)
}
