package ga

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"trackevo/internal/nn"
)

// ErrPopulationSizeMismatch is returned when reproduction does not fill exactly N slots.
var ErrPopulationSizeMismatch = errors.New("population size mismatch")

// Population is one generation of networks, in a fixed order.
type Population struct {
	Networks []*nn.Network
}

// NewPopulation creates size randomly initialized networks.
func NewPopulation(size int, topology []int, initRange float64, rng *rand.Rand) (*Population, error) {
	if size <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", size)
	}

	p := &Population{Networks: make([]*nn.Network, size)}
	for i := 0; i < size; i++ {
		n, err := nn.NewNetwork(topology, initRange, rng)
		if err != nil {
			return nil, err
		}
		p.Networks[i] = n
	}
	return p, nil
}

// Size returns the population size
func (p *Population) Size() int {
	return len(p.Networks)
}

// Rank sorts networks by fitness (descending) and returns them. The sort is
// stable, so equal fitness keeps the original order.
func (p *Population) Rank() []*nn.Network {
	sort.SliceStable(p.Networks, func(i, j int) bool {
		return nn.Compare(p.Networks[i], p.Networks[j]) > 0
	})
	return p.Networks
}

// Best returns the network with highest fitness
func (p *Population) Best() *nn.Network {
	if len(p.Networks) == 0 {
		return nil
	}
	best := p.Networks[0]
	for _, n := range p.Networks[1:] {
		if n.Fitness > best.Fitness {
			best = n
		}
	}
	return best
}

// ResetFitness resets all networks' fitness to 0
func (p *Population) ResetFitness() {
	for _, n := range p.Networks {
		n.Fitness = 0
	}
}
