package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"trackevo/internal/config"
	"trackevo/internal/evo"
	"trackevo/internal/logging"
	"trackevo/internal/nn"
	"trackevo/internal/sim"
	"trackevo/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or INI config file (empty uses the built-in defaults)")
	generations := flag.Int("generations", 0, "override ga.max_generations (0 keeps the config value)")
	seed := flag.Int64("seed", 0, "override the config seed (0 keeps the config value)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *generations > 0 {
		cfg.GA.MaxGenerations = *generations
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logging.NewSlog(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	params := cfg.EngineParams()
	rng := rand.New(rand.NewSource(cfg.Seed))

	metrics, err := logging.NewLogger(cfg.Logging.CSVPath, cfg.Logging.JSONPath, os.Stdout)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	if err := metrics.Init(); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer metrics.Close()

	sinks := evo.MultiSink{metrics}

	var archive *storage.Archive
	var runID string
	if cfg.Storage.SQLitePath != "" {
		archive = storage.NewArchive(cfg.Storage.SQLitePath)
		if err := archive.Init(ctx); err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer archive.Close()

		snapshot, err := cfg.YAML()
		if err != nil {
			return err
		}
		runID, err = archive.StartRun(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("starting run: %w", err)
		}
		sinks = append(sinks, archive.Sink(ctx, runID))
		logger.Info("archiving run", "path", cfg.Storage.SQLitePath, "run_id", runID)
	}

	engine, err := evo.NewEngine(params, rng, sinks, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Track Trainer - %d checkpoints, %d obstacles\n", len(cfg.Track.Checkpoints), len(cfg.Track.Obstacles))
	fmt.Printf("Topology: %v (%s weights), Policy: %s\n",
		params.Topology, humanize.Comma(int64(engine.Population().Networks[0].GenomeSize())), cfg.Fitness.Policy)
	fmt.Printf("Population: %d, Elites: %d, Tournament K: %d\n", cfg.GA.Population, cfg.GA.Elites, cfg.GA.TournamentK)
	fmt.Println("---")

	track := sim.NewTrack(cfg.Track)
	runner := sim.NewRunner(track, cfg.Sim, logger)
	agentParams := cfg.AgentParams()

	saveChampion := func(name string, n *nn.Network, gen int) {
		path := filepath.Join(cfg.Logging.ChampionDir, name)
		if err := logging.SaveChampion(path, n, gen); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save champion: %v\n", err)
		}
		if archive != nil {
			if err := archive.SaveChampion(ctx, runID, gen, n); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to archive champion: %v\n", err)
			}
		}
	}

	startTime := time.Now()
	var simulated float64

	for !engine.Done() {
		poses := track.ShuffledSpawns(cfg.GA.Population, rng)
		agents, err := engine.BeginRound(sim.Positions(poses), track.Checkpoints, agentParams)
		if err != nil {
			return err
		}

		stats, err := runner.Run(ctx, agents, poses)
		if err != nil {
			return fmt.Errorf("generation %d: %w", engine.Generation()+1, err)
		}
		simulated += stats.Seconds

		summary, err := engine.Evolve()
		if err != nil {
			return err
		}
		logger.Debug("round", "generation", summary.Generation, "finished", stats.Finished, "crashed", stats.Crashed)

		every := cfg.Logging.SaveChampionEvery
		if every > 0 && summary.Generation%every == 0 {
			saveChampion(fmt.Sprintf("champion_gen%d.json", summary.Generation), engine.Champion(), summary.Generation)
		}
	}

	elapsed := time.Since(startTime)
	fmt.Println("---")
	fmt.Printf("Training complete! %d generations in %v (%s simulated seconds)\n",
		engine.Generation(), elapsed.Round(time.Millisecond), humanize.Commaf(float64(int64(simulated))))

	if best := engine.Champion(); best != nil {
		fmt.Printf("Best ever: Fitness=%.2f\n", best.Fitness)
		saveChampion("champion_final.json", best, engine.Generation())
	}
	return nil
}
