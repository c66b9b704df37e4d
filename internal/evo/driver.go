package evo

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"knapevo/internal/model"
)

// Observer receives the fitness record of every completed generation.
type Observer func(generation int, record model.FitnessRecord)

type BestCandidate struct {
	Generation int
	Candidate  Candidate
	Fitness    float64
}

type RunResult struct {
	History  []model.FitnessRecord
	Final    BestCandidate
	BestEver BestCandidate
}

// Driver runs a fixed number of generations. There is no early stopping.
type Driver struct {
	Generations int
	Observer    Observer
	Logger      *zap.Logger
}

// Run steps pop Generations times and records best, average and worst fitness
// after each step. ctx is only consulted between generations.
func (d Driver) Run(ctx context.Context, rng *rand.Rand, pop *Population) (RunResult, error) {
	if pop == nil {
		return RunResult{}, configError("population", "is required")
	}
	if rng == nil {
		return RunResult{}, configError("random source", "is required")
	}
	if d.Generations < 0 {
		return RunResult{}, configError("generations", "must be >= 0, got %d", d.Generations)
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	started := time.Now()
	logger.Info("evolution started",
		zap.Int("population", pop.Size()),
		zap.Int("bit_length", pop.BitLength()),
		zap.Float64("mutation_rate", pop.MutationRate()),
		zap.Int("generations", d.Generations),
	)

	initial, initialFitness := pop.Best()
	bestEver := BestCandidate{Generation: pop.Generation(), Candidate: initial, Fitness: initialFitness}
	history := make([]model.FitnessRecord, 0, d.Generations)

	for gen := 0; gen < d.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		if err := pop.Step(rng); err != nil {
			logger.Warn("generation failed", zap.Int("generation", pop.Generation()+1), zap.Error(err))
			return RunResult{}, err
		}

		record := pop.Record()
		history = append(history, record)
		if record.Best > bestEver.Fitness {
			candidate, fitness := pop.Best()
			bestEver = BestCandidate{Generation: record.Generation, Candidate: candidate, Fitness: fitness}
		}
		logger.Debug("generation complete",
			zap.Int("generation", record.Generation),
			zap.Float64("best", record.Best),
			zap.Float64("average", record.Average),
			zap.Float64("worst", record.Worst),
		)
		if d.Observer != nil {
			d.Observer(record.Generation, record)
		}
	}

	final, finalFitness := pop.Best()
	result := RunResult{
		History:  history,
		Final:    BestCandidate{Generation: pop.Generation(), Candidate: final, Fitness: finalFitness},
		BestEver: bestEver,
	}
	logger.Info("evolution finished",
		zap.Int("generations", len(history)),
		zap.Float64("final_best", finalFitness),
		zap.Float64("best_ever", bestEver.Fitness),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Histories splits records into parallel best, average and worst series.
func Histories(records []model.FitnessRecord) (best, average, worst []float64) {
	best = make([]float64, len(records))
	average = make([]float64, len(records))
	worst = make([]float64, len(records))
	for i, r := range records {
		best[i] = r.Best
		average[i] = r.Average
		worst[i] = r.Worst
	}
	return best, average, worst
}

func summarizeFitness(generation int, fitness []float64) model.FitnessRecord {
	if len(fitness) == 0 {
		return model.FitnessRecord{Generation: generation}
	}
	best, worst, total := fitness[0], fitness[0], 0.0
	for _, f := range fitness {
		total += f
		if f > best {
			best = f
		}
		if f < worst {
			worst = f
		}
	}
	return model.FitnessRecord{
		Generation: generation,
		Best:       best,
		Average:    total / float64(len(fitness)),
		Worst:      worst,
	}
}
