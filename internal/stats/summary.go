package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"knapevo/internal/model"
)

// Summary condenses a run's per-generation history.
type Summary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestMax     float64 `json:"best_max"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	AverageMean float64 `json:"average_mean"`
	FinalWorst  float64 `json:"final_worst"`
	Improvement float64 `json:"improvement"`
	// FirstBestGeneration is the first generation reaching BestMax.
	FirstBestGeneration int `json:"first_best_generation"`
}

func Summarize(history []model.FitnessRecord) Summary {
	if len(history) == 0 {
		return Summary{}
	}
	best := make([]float64, len(history))
	average := make([]float64, len(history))
	for i, record := range history {
		best[i] = record.Best
		average[i] = record.Average
	}

	summary := Summary{
		Generations: len(history),
		InitialBest: best[0],
		FinalBest:   best[len(best)-1],
		BestMax:     floats.Max(best),
		BestMean:    stat.Mean(best, nil),
		AverageMean: stat.Mean(average, nil),
		FinalWorst:  history[len(history)-1].Worst,
	}
	if len(best) > 1 {
		summary.BestStd = stat.StdDev(best, nil)
	}
	summary.Improvement = summary.FinalBest - summary.InitialBest
	summary.FirstBestGeneration = history[floats.MaxIdx(best)].Generation
	return summary
}
