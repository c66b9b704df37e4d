package evo

import "math/rand"

// Crossover performs single-point recombination. Each child keeps its own
// parent's bits before point and takes the other parent's bits from point on.
// Parents are not modified.
func Crossover(a, b Candidate, point int) (Candidate, Candidate) {
	childA := a.Clone()
	childB := b.Clone()
	n := len(childA.Bits)
	if len(childB.Bits) < n {
		n = len(childB.Bits)
	}
	if point < 0 {
		point = 0
	}
	for i := point; i < n; i++ {
		childA.Bits[i], childB.Bits[i] = b.Bits[i], a.Bits[i]
	}
	return childA, childB
}

// ApplyCrossover recombines the disjoint pairs (0,1), (2,3), ... with one
// uniformly drawn point per pair. A trailing unpaired candidate is kept as is.
func ApplyCrossover(rng *rand.Rand, candidates []Candidate) {
	for i := 0; i+1 < len(candidates); i += 2 {
		length := candidates[i].Len()
		if length == 0 {
			continue
		}
		point := rng.Intn(length)
		candidates[i], candidates[i+1] = Crossover(candidates[i], candidates[i+1], point)
	}
}

// Mutate flips every bit of every candidate independently with probability
// rate.
func Mutate(rng *rand.Rand, candidates []Candidate, rate float64) {
	if rate <= 0 {
		return
	}
	for i := range candidates {
		bits := candidates[i].Bits
		for j := range bits {
			if rate >= 1 || rng.Float64() < rate {
				bits[j] = !bits[j]
			}
		}
	}
}
