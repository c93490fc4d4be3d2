package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidTopology is returned when a topology has fewer than two layers
	// or a layer with no neurons.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrInputSizeMismatch is returned when Evaluate gets the wrong number of inputs.
	ErrInputSizeMismatch = errors.New("input size mismatch")
	// ErrGenomeSizeMismatch is returned when a flat genome does not fit the topology.
	ErrGenomeSizeMismatch = errors.New("genome size mismatch")
)

// DefaultInitRange bounds genesis weights to [-0.5, 0.5].
const DefaultInitRange = 0.5

// Network is a bias-free feedforward network with tanh activations.
// Weights for transition i -> i+1 form a neurons[i+1] x neurons[i] matrix.
//
// A Network is not safe for concurrent use: Evaluate reuses per-network
// layer buffers. Distinct networks may be evaluated in parallel.
type Network struct {
	// Fitness is written by the owning agent and read when ranking.
	Fitness float64

	topology []int
	weights  []*mat.Dense

	// Pre-allocated layer buffers (no allocations in hot path)
	neurons []*mat.VecDense
}

// NewNetwork creates a network with weights drawn uniformly from [-initRange, initRange].
func NewNetwork(topology []int, initRange float64, rng *rand.Rand) (*Network, error) {
	n, err := newShell(topology)
	if err != nil {
		return nil, err
	}
	for _, w := range n.weights {
		data := w.RawMatrix().Data
		for i := range data {
			data[i] = Uniform(rng, -initRange, initRange)
		}
	}
	return n, nil
}

// ValidateTopology reports whether topology describes a usable network.
func ValidateTopology(topology []int) error {
	if len(topology) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidTopology, len(topology))
	}
	for i, size := range topology {
		if size <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidTopology, i, size)
		}
	}
	return nil
}

// newShell allocates zeroed weights and buffers for topology.
func newShell(topology []int) (*Network, error) {
	if err := ValidateTopology(topology); err != nil {
		return nil, err
	}

	n := &Network{
		topology: append([]int(nil), topology...),
		weights:  make([]*mat.Dense, len(topology)-1),
		neurons:  make([]*mat.VecDense, len(topology)),
	}
	for i, size := range topology {
		n.neurons[i] = mat.NewVecDense(size, nil)
	}
	for i := 0; i < len(topology)-1; i++ {
		n.weights[i] = mat.NewDense(topology[i+1], topology[i], nil)
	}
	return n, nil
}

// Clone returns an independent deep copy. The copy starts with zero fitness.
func (n *Network) Clone() *Network {
	c := &Network{
		topology: append([]int(nil), n.topology...),
		weights:  make([]*mat.Dense, len(n.weights)),
		neurons:  make([]*mat.VecDense, len(n.neurons)),
	}
	for i, w := range n.weights {
		c.weights[i] = mat.DenseCopyOf(w)
	}
	for i, size := range c.topology {
		c.neurons[i] = mat.NewVecDense(size, nil)
	}
	return c
}

// Topology returns a copy of the layer sizes.
func (n *Network) Topology() []int {
	return append([]int(nil), n.topology...)
}

// InputSize returns the number of input neurons.
func (n *Network) InputSize() int {
	return n.topology[0]
}

// Evaluate runs a forward pass and returns a fresh slice of outputs.
func (n *Network) Evaluate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.topology[0] {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSizeMismatch, len(inputs), n.topology[0])
	}

	copy(n.neurons[0].RawVector().Data, inputs)

	for i, w := range n.weights {
		next := n.neurons[i+1]
		next.MulVec(w, n.neurons[i])
		data := next.RawVector().Data
		for j := range data {
			data[j] = math.Tanh(data[j])
		}
	}

	out := n.neurons[len(n.neurons)-1].RawVector().Data
	result := make([]float64, len(out))
	copy(result, out)
	return result, nil
}

// Mutate perturbs each weight with probability chance by a uniform amount in
// [-magnitude, magnitude], clamping the result to [-1, 1].
func (n *Network) Mutate(chance, magnitude float64, rng *rand.Rand) {
	if chance <= 0 || magnitude == 0 {
		return
	}
	for _, w := range n.weights {
		data := w.RawMatrix().Data
		for i := range data {
			if rng.Float64() < chance {
				data[i] = Clamp(data[i]+Uniform(rng, -magnitude, magnitude), -1, 1)
			}
		}
	}
}

// GenomeSize returns the total number of weights.
func (n *Network) GenomeSize() int {
	size := 0
	for i := 0; i < len(n.topology)-1; i++ {
		size += n.topology[i] * n.topology[i+1]
	}
	return size
}

// Genome flattens the weights layer by layer, row-major.
func (n *Network) Genome() []float64 {
	genome := make([]float64, 0, n.GenomeSize())
	for _, w := range n.weights {
		genome = append(genome, w.RawMatrix().Data...)
	}
	return genome
}

// SetGenome copies a flat genome produced by Genome back into the weights.
func (n *Network) SetGenome(genome []float64) error {
	if len(genome) != n.GenomeSize() {
		return fmt.Errorf("%w: got %d, want %d", ErrGenomeSizeMismatch, len(genome), n.GenomeSize())
	}
	offset := 0
	for _, w := range n.weights {
		data := w.RawMatrix().Data
		copy(data, genome[offset:offset+len(data)])
		offset += len(data)
	}
	return nil
}

// FromGenome builds a network for topology with the given weights.
func FromGenome(topology []int, genome []float64) (*Network, error) {
	n, err := newShell(topology)
	if err != nil {
		return nil, err
	}
	if err := n.SetGenome(genome); err != nil {
		return nil, err
	}
	return n, nil
}

// Compare orders networks by ascending fitness.
func Compare(a, b *Network) int {
	switch {
	case a.Fitness < b.Fitness:
		return -1
	case a.Fitness > b.Fitness:
		return 1
	default:
		return 0
	}
}
