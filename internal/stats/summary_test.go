package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleHistory())
	if summary.Generations != 3 {
		t.Fatalf("unexpected generations: %d", summary.Generations)
	}
	if summary.InitialBest != 10 || summary.FinalBest != 14 || summary.BestMax != 14 {
		t.Fatalf("unexpected best values: %+v", summary)
	}
	if summary.BestMean != 12 {
		t.Fatalf("unexpected best mean: %v", summary.BestMean)
	}
	if math.Abs(summary.BestStd-2) > 1e-9 {
		t.Fatalf("unexpected best std: %v", summary.BestStd)
	}
	if summary.Improvement != 4 || summary.FirstBestGeneration != 3 {
		t.Fatalf("unexpected improvement: %+v", summary)
	}
	if summary.FinalWorst != 4 {
		t.Fatalf("unexpected final worst: %v", summary.FinalWorst)
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	if got := Summarize(nil); got != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}
