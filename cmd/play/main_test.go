package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trackevo/internal/logging"
	"trackevo/internal/nn"
)

func saveTestChampion(t *testing.T, dir string, topology []int) string {
	t.Helper()
	n, err := nn.NewNetwork(topology, nn.DefaultInitRange, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	n.Fitness = 42
	path := filepath.Join(dir, "champion.json")
	if err := logging.SaveChampion(path, n, 7); err != nil {
		t.Fatalf("SaveChampion: %v", err)
	}
	return path
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "play.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		topology []int
		wantErr  string
	}{
		{"defaults", "", []int{5, 10, 10, 2}, ""},
		{"misspelled policy", "fitness:\n  policy: target_progres\n", []int{5, 10, 10, 2}, "fitness policy"},
		{"zero step", "sim:\n  step_seconds: 0\n", []int{5, 10, 10, 2}, "step_seconds"},
		{"sensor mismatch", "", []int{3, 4, 2}, "inputs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			championPath := saveTestChampion(t, dir, tt.topology)
			configPath := ""
			if tt.config != "" {
				configPath = writeConfig(t, dir, tt.config)
			}

			cfg, champion, brain, err := load(configPath, championPath)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("load error = %v, want error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg == nil || champion.Generation != 7 || brain.Fitness != 42 {
				t.Errorf("champion = %+v, fitness %v", champion, brain.Fitness)
			}
		})
	}
}
