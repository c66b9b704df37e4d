package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"knapevo/internal/dataset"
	"knapevo/internal/evo"
	"knapevo/internal/logging"
	"knapevo/internal/model"
	"knapevo/internal/storage"
	knapapi "knapevo/pkg/knapevo"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "knapevo.db"
)

var printer = message.NewPrinter(language.English)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// runFlags are shared by run and benchmark.
type runFlags struct {
	configPath    *string
	runID         *string
	dataPath      *string
	sheet         *string
	capacity      *float64
	capacityRatio *float64
	population    *int
	generations   *int
	mutationRate  *float64
	seed          *int64
	workers       *int
	selection     *string
	penalty       *string
	penaltyParam  *float64
	degenerate    *string
	plot          *bool
	storeKind     *string
	dbPath        *string
	logLevel      *string
	logFormat     *string
}

func registerRunFlags(fs *flag.FlagSet) runFlags {
	return runFlags{
		configPath:    fs.String("config", "", "optional run config path (.json, .yaml or .yml)"),
		runID:         fs.String("run-id", "", "explicit run id (optional)"),
		dataPath:      fs.String("data", "", "dataset path (.csv or .xlsx)"),
		sheet:         fs.String("sheet", "", "xlsx sheet name (defaults to the first sheet)"),
		capacity:      fs.Float64("capacity", 0, "knapsack capacity"),
		capacityRatio: fs.Float64("capacity-ratio", 0, "derive capacity as this fraction of total cost (0 disables)"),
		population:    fs.Int("pop", 500, "population size"),
		generations:   fs.Int("gens", 500, "generation count"),
		mutationRate:  fs.Float64("mutation", 0, "per-bit mutation rate (defaults to 1/items when unset)"),
		seed:          fs.Int64("seed", 0, "rng seed (derived from the clock when unset)"),
		workers:       fs.Int("workers", 1, "fitness evaluation workers"),
		selection:     fs.String("selection", "roulette", "selection strategy: "+strings.Join(evo.SelectorNames, "|")),
		penalty:       fs.String("penalty", "proportional", "penalty policy: "+strings.Join(evo.PenaltyNames, "|")),
		penaltyParam:  fs.Float64("penalty-param", 0, "proportional factor or capacity multiple (0 uses the policy default)"),
		degenerate:    fs.String("degenerate", string(evo.DegenerateFail), "all-zero fitness policy: fail|uniform"),
		plot:          fs.Bool("plot", false, "render fitness_evolution.png into the run artifacts"),
		storeKind:     fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite"),
		dbPath:        fs.String("db-path", "", "sqlite database file or badger directory"),
		logLevel:      fs.String("log-level", "info", "log level: debug|info|warn|error"),
		logFormat:     fs.String("log-format", logging.FormatConsole, "log format: console|json"),
	}
}

// request builds the run request from a config file (when given) and the
// flags the user set explicitly; unset flags never override file values.
func (f runFlags) request(fs *flag.FlagSet) (knapapi.RunRequest, error) {
	setFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = true
	})

	if *f.configPath == "" {
		req := knapapi.RunRequest{
			RunID:            *f.runID,
			DatasetPath:      *f.dataPath,
			Sheet:            *f.sheet,
			Capacity:         *f.capacity,
			CapacityRatio:    *f.capacityRatio,
			Population:       *f.population,
			Generations:      *f.generations,
			Workers:          *f.workers,
			Selection:        *f.selection,
			Penalty:          *f.penalty,
			PenaltyParam:     *f.penaltyParam,
			DegeneratePolicy: *f.degenerate,
			Plot:             *f.plot,
		}
		if setFlags["mutation"] {
			req.MutationRate = f.mutationRate
		}
		if setFlags["seed"] {
			req.Seed = f.seed
		}
		return req, nil
	}

	req, err := loadOrDefaultRunRequest(*f.configPath)
	if err != nil {
		return knapapi.RunRequest{}, err
	}
	err = overrideFromFlags(&req, setFlags, map[string]any{
		"run-id":         *f.runID,
		"data":           *f.dataPath,
		"sheet":          *f.sheet,
		"capacity":       *f.capacity,
		"capacity-ratio": *f.capacityRatio,
		"pop":            *f.population,
		"gens":           *f.generations,
		"mutation":       *f.mutationRate,
		"seed":           *f.seed,
		"workers":        *f.workers,
		"selection":      *f.selection,
		"penalty":        *f.penalty,
		"penalty-param":  *f.penaltyParam,
		"degenerate":     *f.degenerate,
		"plot":           *f.plot,
	})
	if err != nil {
		return knapapi.RunRequest{}, err
	}
	return req, nil
}

func (f runFlags) client() (*knapapi.Client, *zap.Logger, error) {
	logger, err := logging.New(*f.logLevel, *f.logFormat)
	if err != nil {
		return nil, nil, err
	}
	client, err := newClient(*f.storeKind, *f.dbPath, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return client, logger, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := registerRunFlags(fs)
	quiet := fs.Bool("quiet", false, "omit per-generation lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req, err := flags.request(fs)
	if err != nil {
		return err
	}
	if req.DatasetPath == "" {
		return errors.New("run requires --data or a config with dataset")
	}

	client, logger, err := flags.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = logger.Sync()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s pop=%d gens=%d mutation=%v seed=%d capacity=%s\n",
		summary.RunID, summary.Population, summary.Generations, summary.MutationRate, summary.Seed, formatNumber(summary.Capacity))
	if !*quiet {
		for _, record := range summary.History {
			fmt.Printf("generation=%d best=%.6f average=%.6f worst=%.6f\n", record.Generation, record.Best, record.Average, record.Worst)
		}
	}
	printer.Printf("best fitness achieved: %v\n", summary.BestFitness)
	fmt.Printf("best_candidate=%s generation=%d selected=%v feasible=%t\n",
		summary.BestEver.Bits, summary.BestEver.Generation, summary.BestEver.Selected, summary.BestEver.Feasible)
	fmt.Printf("final_best_fitness=%.6f\n", summary.FinalBestFitness)
	if summary.ChartPath != "" {
		fmt.Printf("chart=%s\n", summary.ChartPath)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	flags := registerRunFlags(fs)
	runs := fs.Int("runs", 10, "number of seeded runs")
	seedStart := fs.Int64("seed-start", 1, "seed of the first run; later runs use consecutive seeds")
	target := fs.Float64("target", 0, "fitness that counts a run as successful (0 disables)")
	jsonOut := fs.Bool("json", false, "emit the benchmark report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}
	req, err := flags.request(fs)
	if err != nil {
		return err
	}
	if req.DatasetPath == "" {
		return errors.New("benchmark requires --data or a config with dataset")
	}
	if req.RunID != "" {
		return errors.New("benchmark assigns run ids; drop --run-id")
	}

	client, logger, err := flags.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = logger.Sync()
	}()

	benchReq := knapapi.BenchmarkRequest{Run: req, Runs: *runs, SeedStart: seedStart}
	if *target > 0 {
		benchReq.Target = target
	}
	summary, err := client.Benchmark(ctx, benchReq)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary.Report)
	}

	report := summary.Report
	for _, r := range report.Runs {
		fmt.Printf("run_id=%s seed=%d best_fitness=%.6f final_best_fitness=%.6f\n", r.RunID, r.Seed, r.BestFitness, r.FinalBest)
	}
	printer.Printf("benchmark completed id=%s runs=%d best_mean=%.4f best_std=%.4f best_min=%v best_max=%v\n",
		report.ID, report.TotalRuns, report.BestMean, report.BestStd, report.BestMin, report.BestMax)
	if report.Target != nil {
		fmt.Printf("target=%.6f success=%d/%d\n", *report.Target, report.SuccessRuns, report.TotalRuns)
	}
	fmt.Printf("report=%s\n", summary.ReportPath)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, knapapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID            string  `json:"run_id"`
			CreatedAtUTC     string  `json:"created_at_utc"`
			Dataset          string  `json:"dataset"`
			Items            int     `json:"items"`
			Capacity         float64 `json:"capacity"`
			Seed             int64   `json:"seed"`
			PopulationSize   int     `json:"population_size"`
			Generations      int     `json:"generations"`
			Selection        string  `json:"selection"`
			Penalty          string  `json:"penalty"`
			BestFitness      float64 `json:"best_fitness"`
			FinalBestFitness float64 `json:"final_best_fitness"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem{
				RunID:            item.RunID,
				CreatedAtUTC:     item.CreatedAtUTC,
				Dataset:          item.Dataset,
				Items:            item.Items,
				Capacity:         item.Capacity,
				Seed:             item.Seed,
				PopulationSize:   item.Population,
				Generations:      item.Generations,
				Selection:        item.Selection,
				Penalty:          item.Penalty,
				BestFitness:      item.BestFitness,
				FinalBestFitness: item.FinalBestFitness,
			})
		}
		return writeJSON(out)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created=%q dataset=%s items=%d capacity=%s seed=%d pop=%d gens=%d selection=%s penalty=%s best_fitness=%.6f\n",
			item.RunID,
			createdAgo(item.CreatedAtUTC),
			item.Dataset,
			item.Items,
			formatNumber(item.Capacity),
			item.Seed,
			item.Population,
			item.Generations,
			item.Selection,
			item.Penalty,
			item.BestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "fitness"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, knapapi.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}

	for _, record := range history {
		fmt.Printf("generation=%d best=%.6f average=%.6f worst=%.6f\n", record.Generation, record.Best, record.Average, record.Worst)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the best candidate of the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit the best candidate as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "best"); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	best, err := client.BestCandidate(ctx, knapapi.BestCandidateRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(best)
	}
	printBestCandidate(best)
	return nil
}

func printBestCandidate(best model.CandidateRecord) {
	printer.Printf("best fitness achieved: %v\n", best.Fitness)
	fmt.Printf("bits=%s generation=%d value=%s cost=%s feasible=%t selected=%v\n",
		best.Bits, best.Generation, formatNumber(best.Value), formatNumber(best.Cost), best.Feasible, best.Selected)
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit run config and summary as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "show"); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	details, err := client.Describe(ctx, knapapi.DescribeRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(struct {
			RunID   string `json:"run_id"`
			Config  any    `json:"config"`
			Summary any    `json:"summary"`
		}{details.RunID, details.Config, details.Summary})
	}

	cfg := details.Config
	fmt.Printf("run_id=%s dataset=%s items=%d capacity=%s\n", details.RunID, cfg.Dataset, cfg.Items, formatNumber(cfg.Capacity))
	if details.CreatedAtUTC != "" {
		fmt.Printf("created=%q\n", createdAgo(details.CreatedAtUTC))
	}
	fmt.Printf("pop=%d gens=%d mutation=%v seed=%d workers=%d selection=%s penalty=%s penalty_param=%v degenerate=%s\n",
		cfg.PopulationSize, cfg.Generations, cfg.MutationRate, cfg.Seed, cfg.Workers, cfg.Selection, cfg.Penalty, cfg.PenaltyParam, cfg.DegeneratePolicy)
	sum := details.Summary
	fmt.Printf("initial_best=%.6f final_best=%.6f best_max=%.6f first_best_generation=%d improvement=%.6f\n",
		sum.InitialBest, sum.FinalBest, sum.BestMax, sum.FirstBestGeneration, sum.Improvement)
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("delete requires --run-id")
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Delete(ctx, knapapi.DeleteRequest{RunID: *runID}); err != nil {
		return err
	}
	fmt.Printf("deleted run_id=%s\n", *runID)
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "plot the most recent run from run index")
	out := fs.String("out", "", "output PNG path (defaults to the run's artifact directory)")
	title := fs.String("title", "", "chart title")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|badger|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database file or badger directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "plot"); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Plot(ctx, knapapi.PlotRequest{RunID: *runID, Latest: *latest, OutPath: *out, Title: *title})
	if err != nil {
		return err
	}
	fmt.Printf("plotted run_id=%s to=%s\n", summary.RunID, summary.Path)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "export"); err != nil {
		return err
	}

	client, err := newClient(storage.KindMemory, "", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, knapapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runGenerate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	out := fs.String("out", "", "output dataset path (.csv or .xlsx)")
	items := fs.Int("items", 50, "item count")
	maxValue := fs.Int("max-value", 100, "maximum item value")
	maxCost := fs.Int("max-cost", 100, "maximum item cost")
	seed := fs.Int64("seed", 1, "rng seed")
	capacityRatio := fs.Float64("capacity-ratio", 0.5, "fraction of total cost reported as suggested capacity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("generate requires --out")
	}

	ds, err := dataset.Generate(*seed, *items, *maxValue, *maxCost)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := dataset.Save(*out, ds); err != nil {
		return err
	}
	info, err := os.Stat(*out)
	if err != nil {
		return err
	}

	fmt.Printf("generated dataset=%s items=%d path=%s size=%s\n", ds.Name, ds.Len(), filepath.Clean(*out), humanize.Bytes(uint64(info.Size())))
	fmt.Printf("total_value=%s total_cost=%s suggested_capacity=%s\n",
		formatNumber(ds.TotalValue()), formatNumber(ds.TotalCost()), formatNumber(dataset.SuggestCapacity(ds, *capacityRatio)))
	return nil
}

func newClient(storeKind, dbPath string, logger *zap.Logger) (*knapapi.Client, error) {
	if dbPath == "" && storeKind == storage.KindSQLite {
		dbPath = defaultDBPath
	}
	return knapapi.New(knapapi.Options{
		StoreKind:     storeKind,
		DBPath:        dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
		Logger:        logger,
	})
}

func checkRunSelector(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func createdAgo(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(created)
}

func formatNumber(v float64) string {
	return printer.Sprintf("%v", v)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: knapevoctl <run|benchmark|runs|show|fitness|best|plot|export|delete|generate> [flags]", msg)
}
