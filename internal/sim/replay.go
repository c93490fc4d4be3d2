package sim

import (
	"encoding/json"
	"os"
	"path/filepath"

	"trackevo/internal/agent"
)

// Frame is one recorded step of a single agent.
type Frame struct {
	Time       float64 `json:"t"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Heading    float64 `json:"heading"`
	Speed      float64 `json:"speed"`
	Checkpoint int     `json:"checkpoint"`
	Fitness    float64 `json:"fitness"`
}

// Replay stores the trajectory of one agent for offline inspection
type Replay struct {
	Seed       int64   `json:"seed"`
	Generation int     `json:"generation"`
	Frames     []Frame `json:"frames"`
	Status     string  `json:"status"`
	Death      string  `json:"death,omitempty"`
	Elapsed    float64 `json:"elapsed"` // seconds the agent was active
	Fitness    float64 `json:"fitness"`
}

// NewReplay creates a new replay recorder
func NewReplay(seed int64, generation int) *Replay {
	return &Replay{
		Seed:       seed,
		Generation: generation,
		Frames:     make([]Frame, 0, 256),
	}
}

// Record appends the current state of a.
func (r *Replay) Record(stats RoundStats, b Body, a *agent.Agent) {
	r.Frames = append(r.Frames, Frame{
		Time:       stats.Seconds,
		X:          b.Position.X,
		Y:          b.Position.Y,
		Heading:    b.Heading,
		Speed:      b.Speed(),
		Checkpoint: a.CheckpointIndex(),
		Fitness:    a.Fitness(),
	})
}

// Finish stores the final outcome of a.
func (r *Replay) Finish(a *agent.Agent) {
	r.Status = a.Status().String()
	if a.DeathReason() != agent.DeathNone {
		r.Death = a.DeathReason().String()
	}
	r.Elapsed = a.Elapsed()
	r.Fitness = a.Fitness()
}

// Save writes the replay to a file
func (r *Replay) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReplay loads a replay from a file
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Replay
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
