// Command jogd wires together a SerialChainModel, a Shared State Block, and
// the Jog Core into a runnable standalone controller. It stands in for the
// Viam module registration a production deployment would use, generalized
// to direct construction since this controller is not itself a Viam
// module (spec.md §1 places the middleware that would host it out of
// scope).
//
// Grounded on viam-devrel-so-101/cmd/module/main.go's wiring shape.
package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	"github.com/yangmingustb/moveit/internal/config"
	"github.com/yangmingustb/moveit/internal/jogcore"
	"github.com/yangmingustb/moveit/internal/kinematics"
	"github.com/yangmingustb/moveit/internal/state"
	"github.com/yangmingustb/moveit/pkg/types"
)

// loopbackFeedback simulates a joint-level controller that tracks the Jog
// Core's last published trajectory perfectly: the "feedback" is whatever
// the Jog Core most recently commanded. It lets jogd run end to end with no
// hardware or simulator attached.
type loopbackFeedback struct {
	shared *state.Block
	names  []string
}

func (l *loopbackFeedback) Latest() (types.JointStateSnapshot, bool) {
	traj, _ := l.shared.OutgoingCommand()
	if len(traj.Points) == 0 {
		return types.JointStateSnapshot{
			Name:     l.names,
			Position: make([]float64, len(l.names)),
			Velocity: make([]float64, len(l.names)),
			Effort:   make([]float64, len(l.names)),
		}, true
	}
	p := traj.Points[0]
	return types.JointStateSnapshot{
		Name:     l.names,
		Position: p.Positions,
		Velocity: p.Velocities,
		Effort:   make([]float64, len(l.names)),
	}, true
}

// sineCommandSource is a stand-in for the external Cartesian/joint command
// producer spec.md §1 scopes out (a joystick driver, a DoCommand caller,
// etc.): it drives a small back-and-forth linear jog so jogd visibly moves
// with no hardware or operator input attached.
type sineCommandSource struct {
	shared    *state.Block
	period    time.Duration
	amplitude float64
	omega     float64
}

func (s *sineCommandSource) run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	var elapsed float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed += s.period.Seconds()
			cmd := types.TwistCommand{
				Linear: r3.Vector{X: s.amplitude * math.Sin(s.omega*elapsed)},
			}
			s.shared.SetCartesianCommand(cmd, false)
		}
	}
}

func main() {
	configPath := flag.String("config", "", "path to a JogParameters YAML file; when empty, built-in defaults are used")
	flag.Parse()

	logger := logging.NewLogger("jogd")

	params := config.Default()
	params.MoveGroupName = "arm"
	params.PlanningFrame = "base_link"
	params.RobotLinkCommandFrame = "joint_6"
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("loading config: %v", err)
		}
		params = loaded
	} else if err := params.Validate(); err != nil {
		logger.Fatalf("default config invalid: %v", err)
	}

	model := kinematics.NewSerialChainModel(params.MoveGroupName, defaultChain())
	// "base_link" has no corresponding joint in defaultChain; alias it to the
	// identity (pre-joint-1) frame so PlanningFrame resolves at all (an
	// unaliased non-joint frame name is rejected with ErrUnknownJoint) and to
	// a different transform than RobotLinkCommandFrame.
	model.SetBaseFrame(params.PlanningFrame)
	shared := state.New()
	feedback := &loopbackFeedback{shared: shared, names: model.CanonicalJointNames()}

	core, err := jogcore.New(params, model, shared, feedback, logger)
	if err != nil {
		logger.Fatalf("constructing jog core: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := core.StartMainLoop(ctx); err != nil {
		logger.Fatalf("starting jog core: %v", err)
	}

	source := &sineCommandSource{
		shared:    shared,
		period:    time.Duration(params.PublishPeriod * float64(time.Second)),
		amplitude: 0.3,
		omega:     2 * math.Pi * 0.1, // one back-and-forth cycle every 10s
	}
	var producers sync.WaitGroup
	producers.Add(1)
	utils.ManagedGo(func() { source.run(ctx) }, producers.Done)

	logger.Infow("jogd running", "move_group", params.MoveGroupName, "publish_period", params.PublishPeriod)

	<-ctx.Done()
	logger.Info("shutting down")
	core.StopMainLoop()
	producers.Wait()
}

// defaultChain is a six-joint DH chain used when jogd is run without a real
// kinematics library wired in; dimensions are illustrative, not tied to a
// specific physical arm.
func defaultChain() []kinematics.DHJoint {
	return []kinematics.DHJoint{
		{Name: "joint_1", A: 0, Alpha: 1.5708, D: 0.15, VelocityLimit: 2.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -3.14, Max: 3.14}},
		{Name: "joint_2", A: 0.25, Alpha: 0, D: 0, VelocityLimit: 2.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -1.57, Max: 1.57}},
		{Name: "joint_3", A: 0.2, Alpha: 0, D: 0, VelocityLimit: 2.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -2.6, Max: 2.6}},
		{Name: "joint_4", A: 0, Alpha: 1.5708, D: 0.1, VelocityLimit: 3.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -3.14, Max: 3.14}},
		{Name: "joint_5", A: 0, Alpha: -1.5708, D: 0.1, VelocityLimit: 3.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -1.9, Max: 1.9}},
		{Name: "joint_6", A: 0, Alpha: 0, D: 0.05, VelocityLimit: 3.0, HasPositionLimit: true, PositionLimit: kinematics.Limit{Min: -3.14, Max: 3.14}},
	}
}
