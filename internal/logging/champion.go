package logging

import (
	"encoding/json"
	"os"
	"path/filepath"

	"trackevo/internal/nn"
)

// Champion is the saved form of a network.
type Champion struct {
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	Topology   []int     `json:"topology"`
	Genome     []float64 `json:"genome"`
}

// SaveChampion saves the network's weights and fitness to a JSON file
func SaveChampion(path string, n *nn.Network, gen int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data := Champion{
		Generation: gen,
		Fitness:    n.Fitness,
		Topology:   n.Topology(),
		Genome:     n.Genome(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, jsonData, 0644)
}

// LoadChampion loads a champion file and rebuilds its network
func LoadChampion(path string) (*Champion, *nn.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var saved Champion
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, nil, err
	}

	n, err := nn.FromGenome(saved.Topology, saved.Genome)
	if err != nil {
		return nil, nil, err
	}
	n.Fitness = saved.Fitness
	return &saved, n, nil
}
