package ga

import (
	"fmt"
	"math/rand"

	"trackevo/internal/nn"
)

// ReproductionParams controls how the next generation is built.
type ReproductionParams struct {
	EliteCount        int
	TournamentSize    int
	MutationChance    float64
	MutationMagnitude float64
}

// Reproduce ranks p and builds the next generation: the top EliteCount
// networks are cloned unchanged, every other slot is a mutated clone of a
// tournament winner. There is no crossover; each child has one parent.
// Children start with zero fitness.
func Reproduce(p *Population, params ReproductionParams, rng *rand.Rand) (*Population, error) {
	size := p.Size()
	if params.EliteCount < 0 || params.EliteCount > size {
		return nil, fmt.Errorf("elite count %d outside [0, %d]", params.EliteCount, size)
	}

	ranked := p.Rank()
	next := make([]*nn.Network, 0, size)

	// 1. Keep elites
	for i := 0; i < params.EliteCount; i++ {
		next = append(next, ranked[i].Clone())
	}

	// 2. Fill the rest with mutated offspring
	for len(next) < size {
		parent := TournamentSelect(ranked, params.TournamentSize, rng)
		child := parent.Clone()
		child.Mutate(params.MutationChance, params.MutationMagnitude, rng)
		next = append(next, child)
	}

	if len(next) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPopulationSizeMismatch, len(next), size)
	}
	return &Population{Networks: next}, nil
}
