package knapevo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"knapevo/internal/model"
	"knapevo/internal/stats"
)

type BenchmarkRequest struct {
	Run  RunRequest
	Runs int
	// SeedStart is the first run's seed, 1 when nil. Later runs use
	// consecutive seeds.
	SeedStart *int64
	// Target, when set, counts a run as successful when its best fitness,
	// initial population included, reaches it.
	Target *float64
}

type BenchmarkSummary struct {
	ID         string
	ReportPath string
	Report     stats.BenchmarkReport
}

// Benchmark repeats one run configuration over consecutive seeds. Every
// repetition is a normal recorded run.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if req.Runs <= 0 {
		return BenchmarkSummary{}, errors.New("benchmark runs must be > 0")
	}
	if req.Run.RunID != "" {
		return BenchmarkSummary{}, errors.New("benchmark assigns run ids; leave run id empty")
	}
	seedStart := int64(1)
	if req.SeedStart != nil {
		seedStart = *req.SeedStart
	}

	id := uuid.NewString()
	runs := make([]stats.BenchmarkRun, 0, req.Runs)
	histories := make([][]model.FitnessRecord, 0, req.Runs)
	for i := 0; i < req.Runs; i++ {
		runReq := req.Run
		seed := seedStart + int64(i)
		runReq.Seed = &seed
		runReq.RunID = fmt.Sprintf("%s-%d", id, i+1)
		summary, err := c.Run(ctx, runReq)
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("benchmark run %d: %w", i+1, err)
		}
		runs = append(runs, stats.BenchmarkRun{
			RunID:          summary.RunID,
			Seed:           summary.Seed,
			FinalBest:      summary.FinalBestFitness,
			BestFitness:    summary.BestFitness,
			BestGeneration: summary.BestEver.Generation,
		})
		histories = append(histories, summary.History)
	}

	report, err := stats.BuildBenchmarkReport(id, runs, histories, req.Target)
	if err != nil {
		return BenchmarkSummary{}, err
	}
	path, err := stats.WriteBenchmarkReport(filepath.Join(c.benchmarksDir, "benchmark-"+id), report)
	if err != nil {
		return BenchmarkSummary{}, err
	}
	c.logger.Info("benchmark finished",
		zap.String("benchmark_id", id),
		zap.Int("runs", report.TotalRuns),
		zap.Float64("best_mean", report.BestMean),
		zap.Float64("success_rate", report.SuccessRate),
	)
	return BenchmarkSummary{ID: id, ReportPath: path, Report: report}, nil
}
