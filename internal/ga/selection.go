package ga

import (
	"math/rand"

	"trackevo/internal/nn"
)

// TournamentSelect samples k networks uniformly with replacement and returns
// the fittest. The earliest sample wins ties.
func TournamentSelect(networks []*nn.Network, k int, rng *rand.Rand) *nn.Network {
	if len(networks) == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}

	best := networks[rng.Intn(len(networks))]
	for i := 1; i < k; i++ {
		candidate := networks[rng.Intn(len(networks))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}
