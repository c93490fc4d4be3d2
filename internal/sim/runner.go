package sim

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"trackevo/internal/agent"
	"trackevo/internal/config"
)

// RoundStats summarizes one simulated round
type RoundStats struct {
	Steps    int
	Seconds  float64
	Finished int
	Crashed  int
	TimedOut int
	Killed   int
}

// Runner steps agents through a track on a fixed schedule.
type Runner struct {
	Track   *Track
	Sensors Sensors
	Physics Physics

	StepSeconds     float64
	MaxRoundSeconds float64 // 0 means no cap
	AgentRadius     float64

	// OnStep, when set, is called after every step with the running stats.
	OnStep func(stats RoundStats, bodies []Body)

	workers int
	logger  *slog.Logger
}

// NewRunner creates a runner from the sim section of the config
func NewRunner(track *Track, cfg config.SimConfig, logger *slog.Logger) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		Track:   track,
		Sensors: Sensors{Angles: append([]float64(nil), cfg.SensorAngles...), Range: cfg.SensorRange},
		Physics: Physics{
			Acceleration:  cfg.Acceleration,
			RotationSpeed: cfg.RotationSpeed,
			Drag:          cfg.Drag,
		},
		StepSeconds:     cfg.StepSeconds,
		MaxRoundSeconds: cfg.MaxRoundSeconds,
		AgentRadius:     cfg.AgentRadius,
		workers:         workers,
		logger:          logger,
	}
}

// Run simulates a round until every agent is terminal, the round time cap
// is reached or ctx is cancelled. Agents still active at the cap are killed.
// poses[i] is the starting pose of agents[i].
func (r *Runner) Run(ctx context.Context, agents []*agent.Agent, poses []Pose) (RoundStats, error) {
	bodies := make([]Body, len(agents))
	for i := range agents {
		bodies[i] = Body{Pose: poses[i]}
	}
	sensors := make([][]float64, len(agents))
	for i := range sensors {
		sensors[i] = make([]float64, r.Sensors.NumInputs())
	}
	controls := make([]agent.Control, len(agents))
	errs := make([]error, len(agents))

	var stats RoundStats
	for active(agents) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if r.MaxRoundSeconds > 0 && stats.Seconds >= r.MaxRoundSeconds {
			break
		}

		// Fan out inference; each agent owns its network.
		p := pool.New().WithMaxGoroutines(r.workers)
		for i, a := range agents {
			if a.Status().Terminal() {
				continue
			}
			p.Go(func() {
				r.Sensors.Read(bodies[i].Pose, r.Track, sensors[i])
				controls[i], errs[i] = a.Control(sensors[i])
			})
		}
		p.Wait()
		for _, err := range errs {
			if err != nil {
				return stats, err
			}
		}

		// Physics and fitness run in agent order.
		for i, a := range agents {
			if a.Status().Terminal() {
				continue
			}
			b := &bodies[i]
			b.Apply(controls[i], r.StepSeconds, r.Physics)
			a.Step(agent.Observation{
				DeltaTime: r.StepSeconds,
				Position:  b.Position,
				Speed:     b.Speed(),
				Collided:  r.Track.Collides(b.Position, r.AgentRadius),
				Touched:   r.Track.Touched(b.Position, r.AgentRadius),
			})
		}

		stats.Steps++
		stats.Seconds += r.StepSeconds
		if r.OnStep != nil {
			r.OnStep(stats, bodies)
		}
	}

	for _, a := range agents {
		a.Kill()
		switch a.DeathReason() {
		case agent.DeathCollision:
			stats.Crashed++
		case agent.DeathTimeout:
			stats.TimedOut++
		case agent.DeathKilled:
			stats.Killed++
		}
		if a.Status() == agent.StatusFinished {
			stats.Finished++
		}
	}

	r.logger.Debug("round complete",
		"steps", stats.Steps,
		"seconds", stats.Seconds,
		"finished", stats.Finished,
		"crashed", stats.Crashed,
		"timed_out", stats.TimedOut,
		"killed", stats.Killed)
	return stats, nil
}

func active(agents []*agent.Agent) bool {
	for _, a := range agents {
		if !a.Status().Terminal() {
			return true
		}
	}
	return false
}
