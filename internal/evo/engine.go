// Package evo drives the generational loop: it binds a population to agents
// for a round, waits for every agent to finish, then ranks, reports and
// reproduces.
package evo

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"trackevo/internal/agent"
	"trackevo/internal/ga"
	"trackevo/internal/nn"
)

var (
	// ErrSpawnSlots is returned when the number of start positions differs from the population size.
	ErrSpawnSlots = errors.New("spawn slot count does not match population size")
	// ErrRoundInProgress is returned when Evolve is called before every agent is terminal.
	ErrRoundInProgress = errors.New("round still in progress")
	// ErrDone is returned when a round is started after the generation cap.
	ErrDone = errors.New("generation cap reached")
)

// Params configures the engine.
type Params struct {
	Topology       []int
	InitRange      float64
	PopulationSize int
	MaxGenerations int // 0 means no cap
	Reproduction   ga.ReproductionParams
}

// SummarySink receives one summary per completed generation.
type SummarySink interface {
	WriteSummary(s ga.Summary) error
}

// MultiSink writes each summary to every sink in order.
type MultiSink []SummarySink

// WriteSummary implements SummarySink.
func (m MultiSink) WriteSummary(s ga.Summary) error {
	var errs []error
	for _, sink := range m {
		if err := sink.WriteSummary(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Engine owns the population and the generation counter.
type Engine struct {
	params Params
	rng    *rand.Rand
	sink   SummarySink
	logger *slog.Logger

	pop        *ga.Population
	agents     []*agent.Agent
	generation int
	done       bool

	// bestEver survives reproduction; old networks are never mutated again.
	bestEver *nn.Network
}

// NewEngine creates the genesis population. sink may be nil.
func NewEngine(p Params, rng *rand.Rand, sink SummarySink, logger *slog.Logger) (*Engine, error) {
	if p.Reproduction.EliteCount < 0 || p.Reproduction.EliteCount > p.PopulationSize {
		return nil, fmt.Errorf("elite count %d outside [0, %d]", p.Reproduction.EliteCount, p.PopulationSize)
	}
	if p.Reproduction.TournamentSize < 1 {
		return nil, fmt.Errorf("tournament size must be at least 1, got %d", p.Reproduction.TournamentSize)
	}

	pop, err := ga.NewPopulation(p.PopulationSize, p.Topology, p.InitRange, rng)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		params: p,
		rng:    rng,
		sink:   sink,
		logger: logger,
		pop:    pop,
	}, nil
}

// Population returns the current generation.
func (e *Engine) Population() *ga.Population { return e.pop }

// Generation returns the number of completed rounds.
func (e *Engine) Generation() int { return e.generation }

// Done reports whether the generation cap has been reached.
func (e *Engine) Done() bool { return e.done }

// BeginRound binds every network to a new agent at the matching start position.
func (e *Engine) BeginRound(starts []r2.Vec, checkpoints []r2.Vec, ap agent.Params) ([]*agent.Agent, error) {
	if e.done {
		return nil, ErrDone
	}
	if len(starts) != e.pop.Size() {
		return nil, fmt.Errorf("%w: %d slots for %d networks", ErrSpawnSlots, len(starts), e.pop.Size())
	}

	e.pop.ResetFitness()
	agents := make([]*agent.Agent, e.pop.Size())
	for i, brain := range e.pop.Networks {
		a, err := agent.New(i, brain, starts[i], checkpoints, ap)
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}
	e.agents = agents
	return agents, nil
}

// RoundComplete reports whether every bound agent is terminal.
func (e *Engine) RoundComplete() bool {
	if len(e.agents) == 0 {
		return false
	}
	for _, a := range e.agents {
		if !a.Status().Terminal() {
			return false
		}
	}
	return true
}

// Evolve closes the current round: it ranks the population, reports the
// summary and, unless the generation cap is reached, replaces the population
// with the next generation.
func (e *Engine) Evolve() (ga.Summary, error) {
	if !e.RoundComplete() {
		return ga.Summary{}, ErrRoundInProgress
	}

	e.generation++
	ranked := e.pop.Rank()
	summary := ga.Summarize(e.generation, ranked)
	e.agents = nil
	if best := e.pop.Best(); e.bestEver == nil || best.Fitness > e.bestEver.Fitness {
		e.bestEver = best
	}

	e.logger.Info("generation", "summary", summary)
	if e.sink != nil {
		if err := e.sink.WriteSummary(summary); err != nil {
			return summary, fmt.Errorf("write summary: %w", err)
		}
	}

	if e.params.MaxGenerations > 0 && e.generation >= e.params.MaxGenerations {
		e.done = true
		e.logger.Info("experiment finished", "generations", e.generation)
		return summary, nil
	}

	next, err := ga.Reproduce(e.pop, e.params.Reproduction, e.rng)
	if err != nil {
		return summary, fmt.Errorf("reproduce: %w", err)
	}
	e.pop = next
	return summary, nil
}

// Champion returns the fittest network seen in any completed round, or nil
// before the first Evolve. Its Fitness field holds the score it earned.
func (e *Engine) Champion() *nn.Network {
	return e.bestEver
}
