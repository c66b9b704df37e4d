package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrossoverSwapsTailFromPoint(t *testing.T) {
	a := mustCandidate(t, "1100")
	b := mustCandidate(t, "0011")

	childA, childB := Crossover(a, b, 2)
	require.Equal(t, "1111", childA.String())
	require.Equal(t, "0000", childB.String())

	// parents untouched
	require.Equal(t, "1100", a.String())
	require.Equal(t, "0011", b.String())
}

func TestCrossoverAtZeroSwapsEverything(t *testing.T) {
	childA, childB := Crossover(mustCandidate(t, "1010"), mustCandidate(t, "0110"), 0)
	require.Equal(t, "0110", childA.String())
	require.Equal(t, "1010", childB.String())
}

func TestApplyCrossoverLeavesOddCandidateAlone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	candidates := []Candidate{
		mustCandidate(t, "11111111"),
		mustCandidate(t, "00000000"),
		mustCandidate(t, "10101010"),
	}
	ApplyCrossover(rng, candidates)

	require.Equal(t, "10101010", candidates[2].String())
	ones := 0
	for _, c := range candidates[:2] {
		ones += len(c.Selected())
	}
	require.Equal(t, 8, ones, "pairwise crossover must conserve bits per position")
	for i := 0; i < 8; i++ {
		require.NotEqual(t, candidates[0].Bits[i], candidates[1].Bits[i])
	}
}

func TestApplyCrossoverIsDeterministicForSeed(t *testing.T) {
	build := func() []Candidate {
		rng := rand.New(rand.NewSource(11))
		out := make([]Candidate, 6)
		for i := range out {
			out[i] = RandomCandidate(rng, 16)
		}
		ApplyCrossover(rng, out)
		return out
	}
	first, second := build(), build()
	for i := range first {
		require.True(t, first[i].Equal(second[i]))
	}
}

func TestMutateZeroRateLeavesCandidatesUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []Candidate{RandomCandidate(rng, 32), RandomCandidate(rng, 32)}
	before := cloneCandidates(candidates)

	Mutate(rng, candidates, 0)
	for i := range candidates {
		require.True(t, before[i].Equal(candidates[i]))
	}
}

func TestMutateFullRateFlipsEveryBit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []Candidate{RandomCandidate(rng, 32), RandomCandidate(rng, 32)}
	before := cloneCandidates(candidates)

	Mutate(rng, candidates, 1)
	for i := range candidates {
		for j := range candidates[i].Bits {
			require.NotEqual(t, before[i].Bits[j], candidates[i].Bits[j])
		}
	}
}

func TestMutateRateApproximatesExpectedFlips(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const length = 200
	candidates := make([]Candidate, 100)
	for i := range candidates {
		candidates[i] = Candidate{Bits: make([]bool, length)}
	}
	Mutate(rng, candidates, 1.0/length)

	flipped := 0
	for _, c := range candidates {
		flipped += len(c.Selected())
	}
	// expected 100 flips overall
	require.InDelta(t, 100, flipped, 40)
}

func TestParseCandidateRejectsInvalidBits(t *testing.T) {
	_, err := ParseCandidate("10x1")
	require.Error(t, err)
}
