package evo

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"knapevo/internal/model"
)

func runScenario(t *testing.T, seed int64, workers int, policy PenaltyPolicy) RunResult {
	t.Helper()
	items := scenarioItems()
	eval, err := NewEvaluator(items, 7, policy)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(seed))
	pop, err := NewPopulation(rng, PopulationConfig{
		Size:         50,
		BitLength:    len(items),
		MutationRate: 1.0 / float64(len(items)),
		Items:        items,
		Evaluator:    eval,
		Workers:      workers,
	})
	require.NoError(t, err)

	result, err := Driver{Generations: 30}.Run(context.Background(), rng, pop)
	require.NoError(t, err)
	return result
}

func TestDriverScenarioReachesOptimum(t *testing.T) {
	result := runScenario(t, 1, 1, nil)
	require.Len(t, result.History, 30)

	require.Equal(t, 14.0, result.BestEver.Fitness)
	for i, record := range result.History {
		require.Equal(t, i+1, record.Generation)
		require.LessOrEqual(t, record.Best, 14.0)
		require.GreaterOrEqual(t, record.Worst, 0.0)
	}
	// The evolved population, not just the random start, must hold an optimum.
	require.Equal(t, 30, result.Final.Generation)
	require.Equal(t, 14.0, result.Final.Fitness)
	require.Equal(t, 14.0, result.History[len(result.History)-1].Best)
}

func TestDriverEvolvesOptimumFromPoorStart(t *testing.T) {
	cfg := scenarioConfig(t, 50)
	start := make([]Candidate, 50)
	for i := range start {
		start[i] = mustCandidate(t, "0001")
	}
	pop, err := NewPopulationFrom(cfg, start)
	require.NoError(t, err)
	initial, initialFitness := pop.Best()
	require.Equal(t, "0001", initial.String())
	require.Equal(t, 4.0, initialFitness)

	rng := rand.New(rand.NewSource(5))
	result, err := Driver{Generations: 30}.Run(context.Background(), rng, pop)
	require.NoError(t, err)

	require.Equal(t, 14.0, result.BestEver.Fitness)
	require.Greater(t, result.BestEver.Generation, 0)
	require.Equal(t, 14.0, result.Final.Fitness)
}

func TestDriverScenarioWithDeathPenaltyFindsFeasibleOptimum(t *testing.T) {
	result := runScenario(t, 3, 1, DeathPenalty{})
	require.Equal(t, 14.0, result.BestEver.Fitness)

	eval, err := NewEvaluator(scenarioItems(), 7, DeathPenalty{})
	require.NoError(t, err)
	inspected := eval.Inspect(result.BestEver.Candidate)
	require.True(t, inspected.Feasible)
	require.Equal(t, 7.0, inspected.Cost)
}

func TestDriverIsDeterministicForSeed(t *testing.T) {
	first := runScenario(t, 77, 1, nil)
	second := runScenario(t, 77, 1, nil)
	parallel := runScenario(t, 77, 4, nil)

	a, err := json.Marshal(first.History)
	require.NoError(t, err)
	b, err := json.Marshal(second.History)
	require.NoError(t, err)
	c, err := json.Marshal(parallel.History)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	require.Equal(t, string(a), string(c))
	require.Equal(t, first.Final.Candidate.String(), second.Final.Candidate.String())
}

func TestDriverZeroGenerationsYieldsEmptyHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pop, err := NewPopulation(rng, scenarioConfig(t, 10))
	require.NoError(t, err)

	result, err := Driver{Generations: 0}.Run(context.Background(), rng, pop)
	require.NoError(t, err)
	require.Empty(t, result.History)
	require.Equal(t, 0, result.Final.Generation)
	require.Equal(t, 4, result.Final.Candidate.Len())
}

func TestDriverRejectsNegativeGenerations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pop, err := NewPopulation(rng, scenarioConfig(t, 10))
	require.NoError(t, err)

	_, err = Driver{Generations: -1}.Run(context.Background(), rng, pop)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDriverObserverSeesEveryGeneration(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pop, err := NewPopulation(rng, scenarioConfig(t, 12))
	require.NoError(t, err)

	var seen []model.FitnessRecord
	driver := Driver{
		Generations: 6,
		Logger:      zap.NewNop(),
		Observer: func(generation int, record model.FitnessRecord) {
			require.Equal(t, generation, record.Generation)
			seen = append(seen, record)
		},
	}
	result, err := driver.Run(context.Background(), rng, pop)
	require.NoError(t, err)
	require.Equal(t, result.History, seen)

	best, average, worst := Histories(result.History)
	require.Len(t, best, 6)
	require.Len(t, average, 6)
	require.Len(t, worst, 6)
	for i := range best {
		require.LessOrEqual(t, worst[i], average[i])
		require.LessOrEqual(t, average[i], best[i])
	}
}

func TestDriverStopsAtGenerationBoundaryOnCancel(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pop, err := NewPopulation(rng, scenarioConfig(t, 12))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	driver := Driver{
		Generations: 50,
		Observer: func(generation int, _ model.FitnessRecord) {
			if generation == 3 {
				cancel()
			}
		},
	}
	_, err = driver.Run(ctx, rng, pop)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, 3, pop.Generation())
}

func TestDriverAllZeroValuesFailsWithDegenerateFitness(t *testing.T) {
	items := []model.Item{{ID: 1, Cost: 5}, {ID: 2, Cost: 4}, {ID: 3, Cost: 3}}
	eval, err := NewEvaluator(items, 7, nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	pop, err := NewPopulation(rng, PopulationConfig{
		Size:         10,
		BitLength:    3,
		MutationRate: 0.1,
		Items:        items,
		Evaluator:    eval,
	})
	require.NoError(t, err)

	result, err := Driver{Generations: 5}.Run(context.Background(), rng, pop)
	var degenerate *DegenerateFitnessError
	require.ErrorAs(t, err, &degenerate)
	require.Equal(t, 1, degenerate.Generation)
	require.Empty(t, result.History)
}
