// Package config loads the trainer configuration: embedded YAML defaults
// overlaid by a user YAML file or scalar INI overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"trackevo/internal/agent"
	"trackevo/internal/evo"
	"trackevo/internal/ga"
	"trackevo/internal/nn"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the root configuration structure
type Config struct {
	Seed    int64         `yaml:"seed"`
	Network NetworkConfig `yaml:"network"`
	GA      GAConfig      `yaml:"ga"`
	Fitness FitnessConfig `yaml:"fitness"`
	Sim     SimConfig     `yaml:"sim"`
	Track   TrackConfig   `yaml:"track"`
	Logging LogConfig     `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
}

// NetworkConfig defines neural network architecture
type NetworkConfig struct {
	Topology  []int   `yaml:"topology" ini:"topology" delim:","`
	InitRange float64 `yaml:"init_range" ini:"init_range"`
}

// GAConfig defines genetic algorithm parameters
type GAConfig struct {
	Population       int     `yaml:"population" ini:"population"`
	Elites           int     `yaml:"elites" ini:"elites"`
	TournamentK      int     `yaml:"tournament_k" ini:"tournament_k"`
	MutationRate     float64 `yaml:"mutation_rate" ini:"mutation_rate"`
	MutationStrength float64 `yaml:"mutation_strength" ini:"mutation_strength"`
	MaxGenerations   int     `yaml:"max_generations" ini:"max_generations"`
}

// FitnessConfig defines fitness function parameters
type FitnessConfig struct {
	Policy            string  `yaml:"policy" ini:"policy"` // distance|target_progress
	MoveThreshold     float64 `yaml:"move_threshold" ini:"move_threshold"`
	CheckpointBonus   float64 `yaml:"checkpoint_bonus" ini:"checkpoint_bonus"`
	FinishBonus       float64 `yaml:"finish_bonus" ini:"finish_bonus"`
	TimeoutSeconds    float64 `yaml:"timeout_seconds" ini:"timeout_seconds"`
	TimeoutPenalty    float64 `yaml:"timeout_penalty" ini:"timeout_penalty"`
	TimeDecay         float64 `yaml:"time_decay" ini:"time_decay"`
	LowSpeedThreshold float64 `yaml:"low_speed_threshold" ini:"low_speed_threshold"`
	LowSpeedPenalty   float64 `yaml:"low_speed_penalty" ini:"low_speed_penalty"`
}

// SimConfig defines the built-in physics harness
type SimConfig struct {
	StepSeconds     float64   `yaml:"step_seconds" ini:"step_seconds"`
	MaxRoundSeconds float64   `yaml:"max_round_seconds" ini:"max_round_seconds"`
	Acceleration    float64   `yaml:"acceleration" ini:"acceleration"`
	RotationSpeed   float64   `yaml:"rotation_speed" ini:"rotation_speed"` // degrees per second at full steer
	Drag            float64   `yaml:"drag" ini:"drag"`
	AgentRadius     float64   `yaml:"agent_radius" ini:"agent_radius"`
	SensorRange     float64   `yaml:"sensor_range" ini:"sensor_range"`
	SensorAngles    []float64 `yaml:"sensor_angles" ini:"sensor_angles" delim:","`
	Workers         int       `yaml:"workers" ini:"workers"`
}

// Point is a planar coordinate.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// ObstacleConfig is a circular obstacle.
type ObstacleConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
}

// SpawnConfig lays out spawn slots in a grid starting at (X, Y).
type SpawnConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"` // degrees, 0 = +X, 90 = +Y
	Columns int     `yaml:"columns"`
	Spacing float64 `yaml:"spacing"`
	Slots   int     `yaml:"slots"`
}

// TrackConfig defines the course geometry
type TrackConfig struct {
	CheckpointRadius float64          `yaml:"checkpoint_radius"`
	Checkpoints      []Point          `yaml:"checkpoints"`
	Obstacles        []ObstacleConfig `yaml:"obstacles"`
	Spawn            SpawnConfig      `yaml:"spawn"`
}

// LogConfig defines logging parameters
type LogConfig struct {
	Level             string `yaml:"level" ini:"level"`
	CSVPath           string `yaml:"csv_path" ini:"csv_path"`
	JSONPath          string `yaml:"json_path" ini:"json_path"`
	ChampionDir       string `yaml:"champion_dir" ini:"champion_dir"`
	SaveChampionEvery int    `yaml:"save_champion_every" ini:"save_champion_every"`
}

// StorageConfig defines the optional run archive
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path" ini:"sqlite_path"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load reads a config file over the defaults. ".ini" files override scalar
// settings only; anything else is parsed as YAML. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		if err := overlayINI(cfg, path); err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return cfg, nil
}

func overlayINI(cfg *Config, path string) error {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	if key, err := file.Section(ini.DefaultSection).GetKey("seed"); err == nil {
		seed, err := key.Int64()
		if err != nil {
			return fmt.Errorf("parsing seed: %w", err)
		}
		cfg.Seed = seed
	}

	sections := []struct {
		name   string
		target interface{}
	}{
		{"network", &cfg.Network},
		{"ga", &cfg.GA},
		{"fitness", &cfg.Fitness},
		{"sim", &cfg.Sim},
		{"logging", &cfg.Logging},
		{"storage", &cfg.Storage},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		// MapTo leaves fields without a matching key untouched.
		if err := file.Section(s.name).MapTo(s.target); err != nil {
			return fmt.Errorf("mapping section [%s]: %w", s.name, err)
		}
	}
	return nil
}

// Validate rejects configurations the engine cannot run. The population is
// never shrunk to fit the spawn slots.
func (c *Config) Validate() error {
	var errs []error

	if err := nn.ValidateTopology(c.Network.Topology); err != nil {
		errs = append(errs, err)
	} else if c.Network.Topology[0] != len(c.Sim.SensorAngles) {
		errs = append(errs, fmt.Errorf("network has %d inputs but %d sensor angles are configured",
			c.Network.Topology[0], len(c.Sim.SensorAngles)))
	}
	if c.Network.InitRange <= 0 || c.Network.InitRange > 1 {
		errs = append(errs, fmt.Errorf("network.init_range %v outside (0, 1]", c.Network.InitRange))
	}
	if c.GA.Population <= 0 {
		errs = append(errs, fmt.Errorf("ga.population must be positive, got %d", c.GA.Population))
	}
	if c.GA.Elites < 0 || c.GA.Elites > c.GA.Population {
		errs = append(errs, fmt.Errorf("ga.elites %d outside [0, %d]", c.GA.Elites, c.GA.Population))
	}
	if c.GA.TournamentK < 1 {
		errs = append(errs, fmt.Errorf("ga.tournament_k must be at least 1, got %d", c.GA.TournamentK))
	}
	if c.GA.MutationRate < 0 || c.GA.MutationRate > 1 {
		errs = append(errs, fmt.Errorf("ga.mutation_rate %v outside [0, 1]", c.GA.MutationRate))
	}
	if c.GA.MutationStrength < 0 {
		errs = append(errs, fmt.Errorf("ga.mutation_strength must be non-negative, got %v", c.GA.MutationStrength))
	}
	if _, err := agent.ParsePolicy(c.Fitness.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Sim.StepSeconds <= 0 {
		errs = append(errs, fmt.Errorf("sim.step_seconds must be positive, got %v", c.Sim.StepSeconds))
	}
	// An agent that never collides or finishes must still end the round.
	if c.Fitness.TimeoutSeconds <= 0 && c.Sim.MaxRoundSeconds <= 0 {
		errs = append(errs, errors.New("fitness.timeout_seconds or sim.max_round_seconds must be positive"))
	}
	if c.Track.Spawn.Slots < c.GA.Population {
		errs = append(errs, fmt.Errorf("population %d exceeds %d spawn slots", c.GA.Population, c.Track.Spawn.Slots))
	}
	if c.Track.Spawn.Columns <= 0 {
		errs = append(errs, fmt.Errorf("track.spawn.columns must be positive, got %d", c.Track.Spawn.Columns))
	}

	return errors.Join(errs...)
}

// AgentParams converts the fitness section. Call Validate first.
func (c *Config) AgentParams() agent.Params {
	policy, _ := agent.ParsePolicy(c.Fitness.Policy)
	return agent.Params{
		Policy:            policy,
		MoveThreshold:     c.Fitness.MoveThreshold,
		CheckpointBonus:   c.Fitness.CheckpointBonus,
		FinishBonus:       c.Fitness.FinishBonus,
		TimeoutSeconds:    c.Fitness.TimeoutSeconds,
		TimeoutPenalty:    c.Fitness.TimeoutPenalty,
		TimeDecay:         c.Fitness.TimeDecay,
		LowSpeedThreshold: c.Fitness.LowSpeedThreshold,
		LowSpeedPenalty:   c.Fitness.LowSpeedPenalty,
	}
}

// EngineParams converts the network and ga sections.
func (c *Config) EngineParams() evo.Params {
	return evo.Params{
		Topology:       append([]int(nil), c.Network.Topology...),
		InitRange:      c.Network.InitRange,
		PopulationSize: c.GA.Population,
		MaxGenerations: c.GA.MaxGenerations,
		Reproduction: ga.ReproductionParams{
			EliteCount:        c.GA.Elites,
			TournamentSize:    c.GA.TournamentK,
			MutationChance:    c.GA.MutationRate,
			MutationMagnitude: c.GA.MutationStrength,
		},
	}
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
