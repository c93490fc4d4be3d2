package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"

	"trackevo/internal/agent"
	"trackevo/internal/config"
	"trackevo/internal/logging"
	"trackevo/internal/nn"
	"trackevo/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or INI config file (empty uses the built-in defaults)")
	championPath := flag.String("champion", "artifacts/champion_final.json", "path to champion JSON")
	seed := flag.Int64("seed", 12345, "random seed for the spawn slot")
	stepsLog := flag.Bool("steps-log", false, "print agent status once per simulated second")
	replayPath := flag.String("replay", "", "write the trajectory to this JSON file")
	flag.Parse()

	cfg, champion, brain, err := load(*configPath, *championPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded champion from gen %d (fitness=%.2f, topology=%v)\n",
		champion.Generation, champion.Fitness, champion.Topology)
	fmt.Printf("Config: %q, Seed: %d\n", *configPath, *seed)
	fmt.Println()

	logger, err := logging.NewSlog(os.Stderr, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	track := sim.NewTrack(cfg.Track)
	runner := sim.NewRunner(track, cfg.Sim, logger)

	poses := track.ShuffledSpawns(1, rand.New(rand.NewSource(*seed)))
	if len(poses) == 0 {
		fmt.Fprintln(os.Stderr, "Track has no spawn slots")
		os.Exit(1)
	}

	brain.Fitness = 0
	a, err := agent.New(0, brain, poses[0].Position, track.Checkpoints, cfg.AgentParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	replay := sim.NewReplay(*seed, champion.Generation)
	perSecond := int(math.Max(1, math.Round(1/cfg.Sim.StepSeconds)))
	runner.OnStep = func(stats sim.RoundStats, bodies []sim.Body) {
		b := bodies[0]
		if *replayPath != "" {
			replay.Record(stats, b, a)
		}
		if *stepsLog && stats.Steps%perSecond == 0 {
			fmt.Printf("  t=%6.2fs | pos=(%7.2f, %7.2f) | heading=%7.1f | speed=%5.2f | checkpoint=%d | fitness=%8.2f\n",
				stats.Seconds, b.Position.X, b.Position.Y, b.Heading, b.Speed(), a.CheckpointIndex(), a.Fitness())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := runner.Run(ctx, []*agent.Agent{a}, poses)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════")
	fmt.Printf("  Round over! Status: %s", a.Status())
	if a.DeathReason() != agent.DeathNone {
		fmt.Printf(" (%s)", a.DeathReason())
	}
	fmt.Println()
	fmt.Printf("  Time: %.2fs, Steps: %d\n", stats.Seconds, stats.Steps)
	fmt.Printf("  Checkpoints: %d/%d\n", a.CheckpointIndex(), len(track.Checkpoints))
	fmt.Printf("  Fitness: %.2f\n", a.Fitness())
	fmt.Println("═══════════════════════════════════")

	if *replayPath != "" {
		replay.Finish(a)
		if err := replay.Save(*replayPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save replay: %v\n", err)
		}
	}
}

// load reads and validates the config, then loads a champion whose inputs
// match the configured sensors.
func load(configPath, championPath string) (*config.Config, *logging.Champion, *nn.Network, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	champion, brain, err := logging.LoadChampion(championPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading champion: %w", err)
	}
	if brain.InputSize() != len(cfg.Sim.SensorAngles) {
		return nil, nil, nil, fmt.Errorf("champion expects %d inputs but %d sensors are configured",
			brain.InputSize(), len(cfg.Sim.SensorAngles))
	}
	return cfg, champion, brain, nil
}
