package evo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Selector builds the next generation's parents from the current population
// and its fitness values. The returned slice always has len(candidates)
// entries, each an independent copy.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, candidates []Candidate, fitness []float64) ([]Candidate, error)
}

// RouletteSelector samples with replacement, proportionally to fitness.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) Select(rng *rand.Rand, candidates []Candidate, fitness []float64) ([]Candidate, error) {
	if err := checkSelectionInput(rng, candidates, fitness); err != nil {
		return nil, err
	}

	cumulative := make([]float64, len(fitness))
	total := 0.0
	for i, f := range fitness {
		total += f
		cumulative[i] = total
	}
	if total <= 0 {
		return nil, &DegenerateFitnessError{Size: len(candidates)}
	}

	out := make([]Candidate, len(candidates))
	for i := range out {
		u := rng.Float64() * total
		idx := sort.Search(len(cumulative), func(j int) bool {
			return cumulative[j] > u
		})
		if idx == len(cumulative) {
			idx = lastPositive(fitness)
		}
		out[i] = candidates[idx].Clone()
	}
	return out, nil
}

// UniformSelector ignores fitness and samples uniformly with replacement.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) Select(rng *rand.Rand, candidates []Candidate, fitness []float64) ([]Candidate, error) {
	if err := checkSelectionInput(rng, candidates, fitness); err != nil {
		return nil, err
	}
	out := make([]Candidate, len(candidates))
	for i := range out {
		out[i] = candidates[rng.Intn(len(candidates))].Clone()
	}
	return out, nil
}

// TournamentSelector samples Size candidates per draw and keeps the fittest.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(rng *rand.Rand, candidates []Candidate, fitness []float64) ([]Candidate, error) {
	if err := checkSelectionInput(rng, candidates, fitness); err != nil {
		return nil, err
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(candidates) {
		size = len(candidates)
	}

	out := make([]Candidate, len(candidates))
	for i := range out {
		best := rng.Intn(len(candidates))
		for j := 1; j < size; j++ {
			challenger := rng.Intn(len(candidates))
			if fitness[challenger] > fitness[best] {
				best = challenger
			}
		}
		out[i] = candidates[best].Clone()
	}
	return out, nil
}

func checkSelectionInput(rng *rand.Rand, candidates []Candidate, fitness []float64) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(candidates) == 0 {
		return fmt.Errorf("selection requires a non-empty population")
	}
	if len(candidates) != len(fitness) {
		return fmt.Errorf("fitness count mismatch: candidates=%d fitness=%d", len(candidates), len(fitness))
	}
	for i, f := range fitness {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid fitness %v at index %d", f, i)
		}
	}
	return nil
}

// lastPositive guards against u landing on the accumulated rounding error
// above the final cumulative entry.
func lastPositive(fitness []float64) int {
	for i := len(fitness) - 1; i >= 0; i-- {
		if fitness[i] > 0 {
			return i
		}
	}
	return len(fitness) - 1
}
