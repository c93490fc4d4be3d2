// Package agent tracks one network-driven agent through a round: it turns
// sensor readings into controls and turns harness observations into fitness.
package agent

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"trackevo/internal/nn"
)

// ErrNoBrain is returned when an agent is created without a network.
var ErrNoBrain = errors.New("agent has no network")

// Params holds the fitness policy settings.
type Params struct {
	Policy Policy

	MoveThreshold     float64 // minimum displacement counted by PolicyDistance
	CheckpointBonus   float64
	FinishBonus       float64
	TimeoutSeconds    float64 // 0 disables the inactivity timer
	TimeoutPenalty    float64
	TimeDecay         float64 // fitness lost per simulated second
	LowSpeedThreshold float64
	LowSpeedPenalty   float64
}

// DefaultParams returns the tuning used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Policy:            PolicyTargetProgress,
		MoveThreshold:     0.01,
		CheckpointBonus:   100,
		FinishBonus:       1000,
		TimeoutSeconds:    10,
		TimeoutPenalty:    50,
		TimeDecay:         0.1,
		LowSpeedThreshold: 0.1,
		LowSpeedPenalty:   1,
	}
}

// Observation is what the harness reports after applying one physics step.
type Observation struct {
	DeltaTime float64 // simulated seconds since the previous step
	Position  r2.Vec
	Speed     float64
	Collided  bool
	Touched   []int // checkpoint indices touched during the step
}

// Agent is the per-round runtime record for one network.
type Agent struct {
	ID    int
	Brain *nn.Network

	params      Params
	checkpoints []r2.Vec

	status Status
	death  DeathReason

	fitness         float64
	travelled       float64
	bonus           float64
	checkpointIndex int
	refDistance     float64
	elapsed         float64
	sinceCheckpoint float64
	lastPos         r2.Vec
}

// New binds brain to a fresh agent starting at start. The checkpoint slice is
// shared, not copied, and must not change during the round.
func New(id int, brain *nn.Network, start r2.Vec, checkpoints []r2.Vec, p Params) (*Agent, error) {
	if brain == nil {
		return nil, ErrNoBrain
	}
	if len(checkpoints) == 0 {
		p.Policy = PolicyDistance
	}

	a := &Agent{
		ID:          id,
		Brain:       brain,
		params:      p,
		checkpoints: checkpoints,
		lastPos:     start,
	}
	if len(checkpoints) > 0 {
		a.refDistance = r2.Norm(r2.Sub(checkpoints[0], start))
	}
	return a, nil
}

// Status returns the current lifecycle state.
func (a *Agent) Status() Status { return a.status }

// DeathReason returns why the agent died, or DeathNone.
func (a *Agent) DeathReason() DeathReason { return a.death }

// Fitness returns the live fitness value.
func (a *Agent) Fitness() float64 { return a.fitness }

// CheckpointIndex returns the index of the current target checkpoint.
func (a *Agent) CheckpointIndex() int { return a.checkpointIndex }

// Elapsed returns the simulated seconds this agent has been active.
func (a *Agent) Elapsed() float64 { return a.elapsed }

// Policy returns the effective fitness policy.
func (a *Agent) Policy() Policy { return a.params.Policy }

// Target returns the current checkpoint position, if any.
func (a *Agent) Target() (r2.Vec, bool) {
	if a.checkpointIndex >= len(a.checkpoints) {
		return r2.Vec{}, false
	}
	return a.checkpoints[a.checkpointIndex], true
}

// Control evaluates the brain on sensors. Terminal agents return a zero Control.
func (a *Agent) Control(sensors []float64) (Control, error) {
	if a.status.Terminal() {
		return Control{}, nil
	}
	outputs, err := a.Brain.Evaluate(sensors)
	if err != nil {
		return Control{}, err
	}
	return ControlFromOutputs(outputs)
}

// Step applies one harness observation and returns the resulting status.
// Terminal agents ignore further observations.
func (a *Agent) Step(obs Observation) Status {
	if a.status.Terminal() {
		return a.status
	}

	a.elapsed += obs.DeltaTime
	a.sinceCheckpoint += obs.DeltaTime

	if obs.Collided {
		a.updateFitness(obs)
		a.die(DeathCollision)
		return a.status
	}

	// At most one advance per step, whatever order touches arrive in.
	if slices.Contains(obs.Touched, a.checkpointIndex) {
		a.advance(obs.Position)
	}

	a.updateFitness(obs)

	if a.status == StatusFinished {
		return a.status
	}

	if a.params.TimeoutSeconds > 0 && a.sinceCheckpoint > a.params.TimeoutSeconds {
		a.fitness -= a.params.TimeoutPenalty
		a.die(DeathTimeout)
	}
	return a.status
}

// Kill ends the round for this agent without a penalty.
func (a *Agent) Kill() {
	if a.status.Terminal() {
		return
	}
	a.die(DeathKilled)
}

func (a *Agent) advance(pos r2.Vec) {
	a.bonus += a.params.CheckpointBonus
	a.checkpointIndex++
	a.sinceCheckpoint = 0

	if a.checkpointIndex >= len(a.checkpoints) {
		a.bonus += a.params.FinishBonus
		a.refDistance = 0
		a.status = StatusFinished
		return
	}
	a.refDistance = r2.Norm(r2.Sub(a.checkpoints[a.checkpointIndex], pos))
}

func (a *Agent) updateFitness(obs Observation) {
	switch a.params.Policy {
	case PolicyTargetProgress:
		a.fitness = a.targetProgress(obs)
	default:
		// Rotating in place must not count as progress.
		if d := r2.Norm(r2.Sub(obs.Position, a.lastPos)); d > a.params.MoveThreshold {
			a.travelled += d
		}
		a.fitness = a.travelled + a.bonus
	}
	a.lastPos = obs.Position
	a.Brain.Fitness = a.fitness
}

func (a *Agent) targetProgress(obs Observation) float64 {
	score := a.bonus
	if target, ok := a.Target(); ok {
		dist := r2.Norm(r2.Sub(target, obs.Position))
		score += math.Max(0, a.refDistance-dist)
	}
	score -= a.params.TimeDecay * a.elapsed
	if obs.Speed < a.params.LowSpeedThreshold {
		score -= a.params.LowSpeedPenalty
	}
	return score
}

func (a *Agent) die(reason DeathReason) {
	a.status = StatusDead
	a.death = reason
	a.Brain.Fitness = a.fitness
}
