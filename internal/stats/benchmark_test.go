package stats

import (
	"path/filepath"
	"testing"

	"knapevo/internal/model"
)

func TestAverageSeries(t *testing.T) {
	lists := [][]float64{
		{1, 2, 3},
		{2, 4},
		{3},
	}
	points := AverageSeries(lists, 1)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d (%+v)", len(points), points)
	}
	if points[0].Generation != 1 || points[1].Generation != 2 || points[2].Generation != 3 {
		t.Fatalf("unexpected generations: %+v", points)
	}
	if points[0].Value != 2 || points[1].Value != 3 || points[2].Value != 3 {
		t.Fatalf("unexpected averages: %+v", points)
	}
}

func TestBuildBenchmarkReport(t *testing.T) {
	target := 14.0
	runs := []BenchmarkRun{
		{RunID: "a", Seed: 1, FinalBest: 14, BestFitness: 14, BestGeneration: 3},
		{RunID: "b", Seed: 2, FinalBest: 12, BestFitness: 12, BestGeneration: 2},
	}
	histories := [][]model.FitnessRecord{
		sampleHistory(),
		{
			{Generation: 1, Best: 8},
			{Generation: 2, Best: 12},
		},
	}
	report, err := BuildBenchmarkReport("bench-1", runs, histories, &target)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.TotalRuns != 2 || report.SuccessRuns != 1 || report.SuccessRate != 0.5 {
		t.Fatalf("unexpected success stats: %+v", report)
	}
	if !report.Runs[0].Success || report.Runs[0].ReachedGeneration != 3 {
		t.Fatalf("expected first run to reach target at generation 3: %+v", report.Runs[0])
	}
	if report.Runs[1].Success || report.Runs[1].ReachedGeneration != 0 {
		t.Fatalf("expected second run to miss target: %+v", report.Runs[1])
	}
	if report.BestMean != 13 || report.BestMin != 12 || report.BestMax != 14 {
		t.Fatalf("unexpected best stats: %+v", report)
	}
	if len(report.MeanBest) != 3 || report.MeanBest[0].Value != 9 {
		t.Fatalf("unexpected mean best series: %+v", report.MeanBest)
	}

	path, err := WriteBenchmarkReport(t.TempDir(), report)
	if err != nil {
		t.Fatalf("write report: %v", err)
	}
	if filepath.Base(path) != "benchmark_report.json" {
		t.Fatalf("unexpected report path: %s", path)
	}
}

func TestBuildBenchmarkReportCountsTargetMetByInitialPopulation(t *testing.T) {
	target := 14.0
	runs := []BenchmarkRun{
		{RunID: "early", Seed: 1, FinalBest: 12, BestFitness: 14, BestGeneration: 0},
	}
	histories := [][]model.FitnessRecord{
		{
			{Generation: 1, Best: 12},
			{Generation: 2, Best: 12},
		},
	}
	report, err := BuildBenchmarkReport("bench-early", runs, histories, &target)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.BestMax != 14 {
		t.Fatalf("expected best max 14, got %v", report.BestMax)
	}
	if report.SuccessRuns != 1 || report.SuccessRate != 1 {
		t.Fatalf("expected run to count as success: %+v", report)
	}
	if !report.Runs[0].Success || report.Runs[0].ReachedGeneration != 0 {
		t.Fatalf("expected target reached at initial population: %+v", report.Runs[0])
	}
}

func TestBuildBenchmarkReportReachedGenerationUsesFirstHit(t *testing.T) {
	target := 12.0
	runs := []BenchmarkRun{
		{RunID: "late", Seed: 3, FinalBest: 14, BestFitness: 14, BestGeneration: 3},
	}
	report, err := BuildBenchmarkReport("bench-late", runs, [][]model.FitnessRecord{sampleHistory()}, &target)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if !report.Runs[0].Success || report.Runs[0].ReachedGeneration != 2 {
		t.Fatalf("expected target first met at generation 2: %+v", report.Runs[0])
	}
}

func TestBuildBenchmarkReportWithoutTarget(t *testing.T) {
	runs := []BenchmarkRun{{RunID: "a", BestFitness: 14, Success: true, ReachedGeneration: 5}}
	report, err := BuildBenchmarkReport("bench-none", runs, [][]model.FitnessRecord{sampleHistory()}, nil)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.SuccessRuns != 0 || report.Runs[0].Success || report.Runs[0].ReachedGeneration != 0 {
		t.Fatalf("expected no success without target: %+v", report)
	}
}

func TestBuildBenchmarkReportRejectsMismatch(t *testing.T) {
	if _, err := BuildBenchmarkReport("x", nil, nil, nil); err == nil {
		t.Fatal("expected empty runs error")
	}
	if _, err := BuildBenchmarkReport("x", []BenchmarkRun{{}}, nil, nil); err == nil {
		t.Fatal("expected mismatch error")
	}
}
