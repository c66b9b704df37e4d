package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"knapevo/internal/model"
)

const benchmarkReportFile = "benchmark_report.json"

// BenchmarkRun is the outcome of one seeded run inside a benchmark.
type BenchmarkRun struct {
	RunID       string  `json:"run_id"`
	Seed        int64   `json:"seed"`
	FinalBest   float64 `json:"final_best"`
	BestFitness float64 `json:"best_fitness"`
	// BestGeneration is where BestFitness was first seen; 0 is the initial
	// population.
	BestGeneration int  `json:"best_generation"`
	Success        bool `json:"success"`
	// ReachedGeneration is the first generation whose best met the target.
	// Only meaningful when Success is set.
	ReachedGeneration int `json:"reached_generation"`
}

type BenchmarkReport struct {
	ID          string         `json:"id"`
	Target      *float64       `json:"target,omitempty"`
	TotalRuns   int            `json:"total_runs"`
	SuccessRuns int            `json:"success_runs"`
	SuccessRate float64        `json:"success_rate"`
	BestMean    float64        `json:"best_mean"`
	BestStd     float64        `json:"best_std"`
	BestMin     float64        `json:"best_min"`
	BestMax     float64        `json:"best_max"`
	MeanBest    []PlotPoint    `json:"mean_best"`
	Runs        []BenchmarkRun `json:"runs"`
}

type PlotPoint struct {
	Generation int     `json:"generation"`
	Value      float64 `json:"value"`
}

// BuildBenchmarkReport aggregates histories of repeated runs. histories and
// runs are parallel slices.
func BuildBenchmarkReport(id string, runs []BenchmarkRun, histories [][]model.FitnessRecord, target *float64) (BenchmarkReport, error) {
	if len(runs) == 0 {
		return BenchmarkReport{}, fmt.Errorf("benchmark requires at least one run")
	}
	if len(runs) != len(histories) {
		return BenchmarkReport{}, fmt.Errorf("benchmark runs/histories mismatch: %d != %d", len(runs), len(histories))
	}

	report := BenchmarkReport{
		ID:        id,
		TotalRuns: len(runs),
		Runs:      make([]BenchmarkRun, len(runs)),
	}
	if target != nil {
		t := *target
		report.Target = &t
	}

	bestValues := make([]float64, len(runs))
	bestSeries := make([][]float64, len(histories))
	for i, run := range runs {
		bestValues[i] = run.BestFitness
		series := make([]float64, len(histories[i]))
		for j, record := range histories[i] {
			series[j] = record.Best
		}
		bestSeries[i] = series

		run.Success = false
		run.ReachedGeneration = 0
		if target != nil && run.BestFitness >= *target {
			run.Success = true
			run.ReachedGeneration = reachedGeneration(run, histories[i], *target)
			report.SuccessRuns++
		}
		report.Runs[i] = run
	}

	report.SuccessRate = float64(report.SuccessRuns) / float64(report.TotalRuns)
	report.BestMean = stat.Mean(bestValues, nil)
	if len(bestValues) > 1 {
		report.BestStd = stat.StdDev(bestValues, nil)
	}
	report.BestMin = floats.Min(bestValues)
	report.BestMax = floats.Max(bestValues)
	report.MeanBest = AverageSeries(bestSeries, 1)
	return report, nil
}

// reachedGeneration is the earliest generation at which the run held the
// target. The initial population is not in the history, so a best seen there
// wins over any later record.
func reachedGeneration(run BenchmarkRun, history []model.FitnessRecord, target float64) int {
	if run.BestGeneration == 0 {
		return 0
	}
	for _, record := range history {
		if record.Best >= target {
			return record.Generation
		}
	}
	return run.BestGeneration
}

// AverageSeries averages lists position by position. Shorter lists drop out
// once exhausted, so every point averages only the lists that reach it.
func AverageSeries(lists [][]float64, startGeneration int) []PlotPoint {
	maxLen := 0
	for _, list := range lists {
		if len(list) > maxLen {
			maxLen = len(list)
		}
	}
	points := make([]PlotPoint, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		values := make([]float64, 0, len(lists))
		for _, list := range lists {
			if i < len(list) {
				values = append(values, list[i])
			}
		}
		points = append(points, PlotPoint{Generation: startGeneration + i, Value: stat.Mean(values, nil)})
	}
	return points
}

func WriteBenchmarkReport(dir string, report BenchmarkReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, benchmarkReportFile)
	return path, writeJSON(path, report)
}
