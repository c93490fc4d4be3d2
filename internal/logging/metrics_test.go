package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trackevo/internal/ga"
	"trackevo/internal/nn"
)

func TestFixed2(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{40, "40.00"},
		{1.005, "1.00"},
		{-46.126, "-46.13"},
		{0, "0.00"},
		{1234567.891, "1234567.89"},
	}
	for _, tt := range tests {
		got, _ := Fixed2(tt.in).MarshalCSV()
		if got != tt.want {
			t.Errorf("Fixed2(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoggerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "runs", "evolution_data.csv")
	jsonPath := filepath.Join(dir, "runs", "run.jsonl")
	var console bytes.Buffer

	l, err := NewLogger(csvPath, jsonPath, &console)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	summaries := []ga.Summary{
		{Generation: 1, BestFitness: 40, AvgFitness: 20, WorstFitness: 5},
		{Generation: 2, BestFitness: 52.457, AvgFitness: 21.1, WorstFitness: -46},
	}
	for _, s := range summaries {
		if err := l.WriteSummary(s); err != nil {
			t.Fatalf("WriteSummary: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := "Generation,BestFitness,AvgFitness,WorstFitness\n" +
		"1,40.00,20.00,5.00\n" +
		"2,52.46,21.10,-46.00\n"
	if string(data) != want {
		t.Errorf("csv =\n%s\nwant\n%s", data, want)
	}

	records, err := ReadRecords(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 || records[1].BestFitness != 52.46 {
		t.Errorf("records = %+v", records)
	}

	f, err := os.Open(jsonPath)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()
	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s ga.Summary
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			t.Fatalf("jsonl line %d: %v", lines, err)
		}
		if s != summaries[lines] {
			t.Errorf("jsonl line %d = %+v, want %+v", lines, s, summaries[lines])
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("jsonl has %d lines, want 2", lines)
	}

	if !strings.Contains(console.String(), "Gen    1 | Best:    40.00") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestLoggerRequiresInit(t *testing.T) {
	l, err := NewLogger(filepath.Join(t.TempDir(), "x.csv"), "", nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if err := l.WriteSummary(ga.Summary{}); err == nil {
		t.Error("WriteSummary before Init succeeded")
	}
}

func TestChampionSaveLoad(t *testing.T) {
	n, err := nn.NewNetwork([]int{5, 10, 10, 2}, nn.DefaultInitRange, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	n.Fitness = 123.5

	path := filepath.Join(t.TempDir(), "artifacts", "champion.json")
	if err := SaveChampion(path, n, 17); err != nil {
		t.Fatalf("SaveChampion: %v", err)
	}

	meta, loaded, err := LoadChampion(path)
	if err != nil {
		t.Fatalf("LoadChampion: %v", err)
	}
	if meta.Generation != 17 || loaded.Fitness != 123.5 {
		t.Errorf("meta = %+v, fitness = %v", meta, loaded.Fitness)
	}

	inputs := []float64{0.1, 0.9, 0, 0.4, 0.2}
	want, _ := n.Evaluate(inputs)
	got, _ := loaded.Evaluate(inputs)
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("output[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewSlog(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewSlog(&buf, "warn")
	if err != nil {
		t.Fatalf("NewSlog: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output = %q", buf.String())
	}
	if _, err := NewSlog(&buf, "loud"); err == nil {
		t.Error("NewSlog accepted unknown level")
	}
}
