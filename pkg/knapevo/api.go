// Package knapevo is the public client for running and inspecting knapsack
// evolution runs.
package knapevo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"knapevo/internal/dataset"
	"knapevo/internal/evo"
	"knapevo/internal/logging"
	"knapevo/internal/model"
	"knapevo/internal/stats"
	"knapevo/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "knapevo.db"

	defaultPopulation  = 500
	defaultGenerations = 500
	defaultWorkers     = 1
	defaultRunsLimit   = 20

	// createdAtLayout keeps fractional seconds fixed-width so timestamps
	// sort as strings.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
	Logger        *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool

	benchmarksDir string
	exportsDir    string
}

// RunRequest describes one evolution run. Zero values select defaults; the
// dataset comes from Dataset when set, otherwise from DatasetPath.
// MutationRate and Seed are pointers so that 0 stays a valid explicit choice.
type RunRequest struct {
	RunID       string
	DatasetPath string
	Sheet       string
	Dataset     *model.Dataset
	Capacity    float64
	// CapacityRatio, when > 0, replaces Capacity with that fraction of the
	// dataset's total cost.
	CapacityRatio float64
	Population    int
	Generations   int
	// MutationRate defaults to 1/items when nil.
	MutationRate *float64
	// Seed defaults to one derived from the clock when nil.
	Seed             *int64
	Workers          int
	Selection        string
	Penalty          string
	PenaltyParam     float64
	DegeneratePolicy string
	Plot             bool
	Observer         evo.Observer
}

// RunSummary reports a finished run with every default resolved.
type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	ChartPath        string
	Seed             int64
	Capacity         float64
	Population       int
	Generations      int
	MutationRate     float64
	History          []model.FitnessRecord
	FinalBest        model.CandidateRecord
	BestEver         model.CandidateRecord
	FinalBestFitness float64
	BestFitness      float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Dataset          string
	Items            int
	Capacity         float64
	Seed             int64
	Population       int
	Generations      int
	Selection        string
	Penalty          string
	FinalBestFitness float64
	BestFitness      float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BestCandidateRequest struct {
	RunID  string
	Latest bool
}

type PlotRequest struct {
	RunID   string
	Latest  bool
	OutPath string
	Title   string
}

type DescribeRequest struct {
	RunID  string
	Latest bool
}

type RunDetails struct {
	RunID        string
	CreatedAtUTC string
	Config       stats.RunConfig
	Summary      stats.Summary
}

type DeleteRequest struct {
	RunID string
}

type PlotSummary struct {
	RunID string
	Path  string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == storage.KindSQLite {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		logger:        logging.OrNop(opts.Logger),
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	ds, err := resolveDataset(req)
	if err != nil {
		return RunSummary{}, err
	}
	if ds.Len() == 0 {
		return RunSummary{}, errors.New("dataset has no items")
	}

	if req.CapacityRatio > 0 {
		req.Capacity = dataset.SuggestCapacity(ds, req.CapacityRatio)
	}
	if req.Population == 0 {
		req.Population = defaultPopulation
	}
	if req.Generations == 0 {
		req.Generations = defaultGenerations
	}
	mutationRate := 1 / float64(ds.Len())
	if req.MutationRate != nil {
		mutationRate = *req.MutationRate
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}
	if req.Selection == "" {
		req.Selection = "roulette"
	}
	if req.Penalty == "" {
		req.Penalty = "proportional"
	}
	if req.DegeneratePolicy == "" {
		req.DegeneratePolicy = string(evo.DegenerateFail)
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	selector, err := evo.SelectorFromName(req.Selection)
	if err != nil {
		return RunSummary{}, err
	}
	penalty, err := evo.PenaltyFromName(req.Penalty, req.PenaltyParam, ds.Items, req.Capacity)
	if err != nil {
		return RunSummary{}, err
	}
	degenerate, err := evo.ParseDegeneratePolicy(req.DegeneratePolicy)
	if err != nil {
		return RunSummary{}, err
	}
	evaluator, err := evo.NewEvaluator(ds.Items, req.Capacity, penalty)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	logger := c.logger.With(zap.String("run_id", req.RunID), zap.String("dataset", ds.Name))
	rng := rand.New(rand.NewSource(seed))
	pop, err := evo.NewPopulation(rng, evo.PopulationConfig{
		Size:             req.Population,
		BitLength:        ds.Len(),
		MutationRate:     mutationRate,
		Items:            ds.Items,
		Evaluator:        evaluator,
		Selector:         selector,
		DegeneratePolicy: degenerate,
		Workers:          req.Workers,
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := evo.Driver{
		Generations: req.Generations,
		Observer:    req.Observer,
		Logger:      logger,
	}.Run(ctx, rng, pop)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", req.RunID, err)
	}

	created := time.Now().UTC().Format(createdAtLayout)
	finalBest := candidateRecord(evaluator, ds, result.Final)
	bestEver := candidateRecord(evaluator, ds, result.BestEver)
	penaltyParam := evo.PenaltyParam(penalty)

	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:            req.RunID,
			DatasetPath:      req.DatasetPath,
			Dataset:          ds.Name,
			Items:            ds.Len(),
			Capacity:         req.Capacity,
			PopulationSize:   req.Population,
			Generations:      req.Generations,
			MutationRate:     mutationRate,
			Seed:             seed,
			Workers:          req.Workers,
			Selection:        selector.Name(),
			Penalty:          penalty.Name(),
			PenaltyParam:     penaltyParam,
			DegeneratePolicy: string(degenerate),
		},
		History: result.History,
		Summary: stats.Summarize(result.History),
		Best:    bestEver,
		Final:   finalBest,
	})
	if err != nil {
		return RunSummary{}, err
	}

	chartPath := ""
	if req.Plot && len(result.History) > 0 {
		chartPath = filepath.Join(runDir, stats.ChartFile)
		if err := stats.PlotFitness(result.History, fmt.Sprintf("Fitness evolution (%s)", ds.Name), chartPath); err != nil {
			return RunSummary{}, err
		}
	}

	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:            req.RunID,
		Dataset:          ds.Name,
		Items:            ds.Len(),
		Capacity:         req.Capacity,
		PopulationSize:   req.Population,
		Generations:      req.Generations,
		Seed:             seed,
		Selection:        selector.Name(),
		Penalty:          penalty.Name(),
		BestFitness:      bestEver.Fitness,
		FinalBestFitness: finalBest.Fitness,
		CreatedAtUTC:     created,
	}); err != nil {
		return RunSummary{}, err
	}

	run := storage.StampVersion(model.RunRecord{
		ID:               req.RunID,
		Dataset:          ds.Name,
		Items:            ds.Len(),
		Capacity:         req.Capacity,
		PopulationSize:   req.Population,
		Generations:      req.Generations,
		MutationRate:     mutationRate,
		Seed:             seed,
		Workers:          req.Workers,
		Selection:        selector.Name(),
		Penalty:          penalty.Name(),
		PenaltyParam:     penaltyParam,
		DegeneratePolicy: string(degenerate),
		FinalBestFitness: finalBest.Fitness,
		BestFitness:      bestEver.Fitness,
		CreatedAtUTC:     created,
	})
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, req.RunID, result.History); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveBestCandidate(ctx, req.RunID, bestEver); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            req.RunID,
		ArtifactsDir:     filepath.Clean(runDir),
		ChartPath:        chartPath,
		Seed:             seed,
		Capacity:         req.Capacity,
		Population:       req.Population,
		Generations:      req.Generations,
		MutationRate:     mutationRate,
		History:          append([]model.FitnessRecord(nil), result.History...),
		FinalBest:        finalBest,
		BestEver:         bestEver,
		FinalBestFitness: finalBest.Fitness,
		BestFitness:      bestEver.Fitness,
	}, nil
}

// Runs lists recorded runs newest first. Store records win; the run index
// supplies runs the store never saw, such as those from earlier processes
// using the in-memory backend.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	out := make([]RunItem, 0, len(records)+len(entries))
	for _, r := range records {
		seen[r.ID] = true
		out = append(out, RunItem{
			RunID:            r.ID,
			CreatedAtUTC:     r.CreatedAtUTC,
			Dataset:          r.Dataset,
			Items:            r.Items,
			Capacity:         r.Capacity,
			Seed:             r.Seed,
			Population:       r.PopulationSize,
			Generations:      r.Generations,
			Selection:        r.Selection,
			Penalty:          r.Penalty,
			FinalBestFitness: r.FinalBestFitness,
			BestFitness:      r.BestFitness,
		})
	}
	for _, e := range entries {
		if seen[e.RunID] {
			continue
		}
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Dataset:          e.Dataset,
			Items:            e.Items,
			Capacity:         e.Capacity,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			Selection:        e.Selection,
			Penalty:          e.Penalty,
			FinalBestFitness: e.FinalBestFitness,
			BestFitness:      e.BestFitness,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// Describe returns a run's resolved configuration and history summary.
func (c *Client) Describe(ctx context.Context, req DescribeRequest) (RunDetails, error) {
	if req.RunID != "" && req.Latest {
		return RunDetails{}, errors.New("use either run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "describe")
	if err != nil {
		return RunDetails{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunDetails{}, err
	}

	details := RunDetails{RunID: runID}
	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if ok {
		details.CreatedAtUTC = record.CreatedAtUTC
		details.Config = runConfigFromRecord(record)
	}
	// The artifact copy also carries the dataset path.
	cfg, found, err := stats.ReadRunConfig(c.benchmarksDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if found {
		details.Config = cfg
	} else if !ok {
		return RunDetails{}, fmt.Errorf("run not found: %s", runID)
	}

	summary, found, err := stats.ReadSummary(c.benchmarksDir, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if !found {
		history, err := c.loadHistory(ctx, runID)
		if err != nil {
			return RunDetails{}, err
		}
		summary = stats.Summarize(history)
	}
	details.Summary = summary

	if details.CreatedAtUTC == "" {
		entries, err := stats.ListRunIndex(c.benchmarksDir)
		if err != nil {
			return RunDetails{}, err
		}
		for _, e := range entries {
			if e.RunID == runID {
				details.CreatedAtUTC = e.CreatedAtUTC
				break
			}
		}
	}
	return details, nil
}

// Delete removes a run from the store, its artifact directory and the run
// index. Deleting an unknown run is not an error.
func (c *Client) Delete(ctx context.Context, req DeleteRequest) error {
	if strings.TrimSpace(req.RunID) == "" {
		return errors.New("delete requires run id")
	}
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	if err := c.store.DeleteRun(ctx, req.RunID); err != nil {
		return err
	}
	if err := stats.RemoveRunArtifacts(c.benchmarksDir, req.RunID); err != nil {
		return err
	}
	c.logger.Info("run deleted", zap.String("run_id", req.RunID))
	return nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory reads from the store first and falls back to the run's
// artifacts, so runs recorded by an earlier process stay readable with the
// in-memory backend.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]model.FitnessRecord, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}
	history, err := c.loadHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]model.FitnessRecord(nil), history...), nil
}

func (c *Client) BestCandidate(ctx context.Context, req BestCandidateRequest) (model.CandidateRecord, error) {
	if req.RunID != "" && req.Latest {
		return model.CandidateRecord{}, errors.New("use either run id or latest")
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "best candidate")
	if err != nil {
		return model.CandidateRecord{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return model.CandidateRecord{}, err
	}

	best, ok, err := c.store.GetBestCandidate(ctx, runID)
	if err != nil {
		return model.CandidateRecord{}, err
	}
	if ok {
		return best, nil
	}
	best, ok, err = stats.ReadBestCandidate(c.benchmarksDir, runID)
	if err != nil {
		return model.CandidateRecord{}, err
	}
	if !ok {
		return model.CandidateRecord{}, fmt.Errorf("best candidate not found for run id: %s", runID)
	}
	return best, nil
}

// Plot renders a recorded run's fitness history. The chart lands in the run's
// artifact directory unless OutPath is set.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (PlotSummary, error) {
	if req.RunID != "" && req.Latest {
		return PlotSummary{}, errors.New("use either run id or latest")
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "plot")
	if err != nil {
		return PlotSummary{}, err
	}
	history, err := c.loadHistory(ctx, runID)
	if err != nil {
		return PlotSummary{}, err
	}
	if len(history) == 0 {
		return PlotSummary{}, fmt.Errorf("run %s has no generations to plot", runID)
	}

	path := req.OutPath
	if path == "" {
		path = filepath.Join(c.benchmarksDir, runID, stats.ChartFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return PlotSummary{}, err
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Fitness evolution (%s)", runID)
	}
	if err := stats.PlotFitness(history, title, path); err != nil {
		return PlotSummary{}, err
	}
	return PlotSummary{RunID: runID, Path: filepath.Clean(path)}, nil
}

func (c *Client) loadHistory(ctx context.Context, runID string) ([]model.FitnessRecord, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return history, nil
	}
	history, ok, err = stats.ReadFitnessHistory(c.benchmarksDir, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return history, nil
	}
	// Exported or hand-edited runs may only carry the CSV series.
	history, ok, err = stats.ReadFitnessSeries(c.benchmarksDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	return history, nil
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if latest {
		return stats.LatestRunID(c.benchmarksDir)
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}
	return runID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func resolveDataset(req RunRequest) (model.Dataset, error) {
	if req.Dataset != nil {
		return *req.Dataset, nil
	}
	if req.DatasetPath == "" {
		return model.Dataset{}, errors.New("run requires a dataset or dataset path")
	}
	if req.Sheet != "" {
		return dataset.ReadXLSX(req.DatasetPath, req.Sheet)
	}
	return dataset.Load(req.DatasetPath)
}

func runConfigFromRecord(r model.RunRecord) stats.RunConfig {
	return stats.RunConfig{
		RunID:            r.ID,
		Dataset:          r.Dataset,
		Items:            r.Items,
		Capacity:         r.Capacity,
		PopulationSize:   r.PopulationSize,
		Generations:      r.Generations,
		MutationRate:     r.MutationRate,
		Seed:             r.Seed,
		Workers:          r.Workers,
		Selection:        r.Selection,
		Penalty:          r.Penalty,
		PenaltyParam:     r.PenaltyParam,
		DegeneratePolicy: r.DegeneratePolicy,
	}
}

// candidateRecord reports the selection by item id.
func candidateRecord(evaluator *evo.Evaluator, ds model.Dataset, best evo.BestCandidate) model.CandidateRecord {
	inspected := evaluator.Inspect(best.Candidate)
	indices := best.Candidate.Selected()
	ids := make([]int, 0, len(indices))
	for _, idx := range indices {
		ids = append(ids, ds.Items[idx].ID)
	}
	return model.CandidateRecord{
		Generation: best.Generation,
		Bits:       best.Candidate.String(),
		Fitness:    best.Fitness,
		Value:      inspected.Value,
		Cost:       inspected.Cost,
		Feasible:   inspected.Feasible,
		Selected:   ids,
	}
}
