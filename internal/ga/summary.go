package ga

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trackevo/internal/nn"
)

// Summary holds per-generation fitness statistics.
type Summary struct {
	Generation   int     `json:"generation"`
	BestFitness  float64 `json:"best_fitness"`
	AvgFitness   float64 `json:"avg_fitness"`
	WorstFitness float64 `json:"worst_fitness"`
}

// Summarize computes best, mean and worst fitness across networks.
func Summarize(generation int, networks []*nn.Network) Summary {
	s := Summary{Generation: generation}
	if len(networks) == 0 {
		return s
	}

	fitness := make([]float64, len(networks))
	for i, n := range networks {
		fitness[i] = n.Fitness
	}
	s.BestFitness = floats.Max(fitness)
	s.AvgFitness = stat.Mean(fitness, nil)
	s.WorstFitness = floats.Min(fitness)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best", s.BestFitness),
		slog.Float64("avg", s.AvgFitness),
		slog.Float64("worst", s.WorstFitness),
	)
}
