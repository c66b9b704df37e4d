package storage

import (
	"context"
	"sort"

	"knapevo/internal/model"
)

// Store defines transaction-like persistence operations for finished runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []model.FitnessRecord) error
	GetFitnessHistory(ctx context.Context, runID string) ([]model.FitnessRecord, bool, error)
	SaveBestCandidate(ctx context.Context, runID string, best model.CandidateRecord) error
	GetBestCandidate(ctx context.Context, runID string) (model.CandidateRecord, bool, error)
	DeleteRun(ctx context.Context, runID string) error
}

// sortRuns orders newest first; ties fall back to id so listings are stable.
func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}
