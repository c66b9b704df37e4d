package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"knapevo/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	historyFile        = "fitness_history.json"
	historyCSVFile     = "fitness_history.csv"
	bestCandidateFile  = "best_candidate.json"
	finalCandidateFile = "final_candidate.json"
	summaryFile        = "summary.json"
	// ChartFile is the conventional name of the fitness chart inside a run
	// directory.
	ChartFile = "fitness_evolution.png"
)

type RunConfig struct {
	RunID            string  `json:"run_id"`
	DatasetPath      string  `json:"dataset_path,omitempty"`
	Dataset          string  `json:"dataset"`
	Items            int     `json:"items"`
	Capacity         float64 `json:"capacity"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	MutationRate     float64 `json:"mutation_rate"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	Selection        string  `json:"selection"`
	Penalty          string  `json:"penalty"`
	PenaltyParam     float64 `json:"penalty_param"`
	DegeneratePolicy string  `json:"degenerate_policy"`
}

type RunArtifacts struct {
	Config  RunConfig             `json:"config"`
	History []model.FitnessRecord `json:"history"`
	Summary Summary               `json:"summary"`
	Best    model.CandidateRecord `json:"best"`
	Final   model.CandidateRecord `json:"final"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Dataset          string  `json:"dataset"`
	Items            int     `json:"items"`
	Capacity         float64 `json:"capacity"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Selection        string  `json:"selection"`
	Penalty          string  `json:"penalty"`
	BestFitness      float64 `json:"best_fitness"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := WriteRunConfig(baseDir, artifacts.Config.RunID, artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), artifacts.History); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.History); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, bestCandidateFile), artifacts.Best); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, finalCandidateFile), artifacts.Final); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Equal timestamps: the run appended last wins.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// LatestRunID returns the newest run id from the index.
func LatestRunID(baseDir string) (string, error) {
	entries, err := ListRunIndex(baseDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no runs available")
	}
	return entries[0].RunID, nil
}

// RemoveRunArtifacts deletes a run's directory and drops it from the index.
// Missing runs are ignored.
func RemoveRunArtifacts(baseDir, runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.RemoveAll(filepath.Join(baseDir, runID)); err != nil {
		return err
	}

	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	kept := entries[:0]
	for _, entry := range entries {
		if entry.RunID != runID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return writeJSON(path, kept)
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{configFile, historyFile, historyCSVFile, bestCandidateFile, finalCandidateFile, summaryFile}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	chartPath := filepath.Join(src, ChartFile)
	if _, err := os.Stat(chartPath); err == nil {
		if err := copyFile(chartPath, filepath.Join(dst, ChartFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, configFile), cfg)
}

func ReadFitnessHistory(baseDir, runID string) ([]model.FitnessRecord, bool, error) {
	var history []model.FitnessRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, historyFile), &history)
	return history, ok, err
}

func ReadBestCandidate(baseDir, runID string) (model.CandidateRecord, bool, error) {
	var best model.CandidateRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, bestCandidateFile), &best)
	return best, ok, err
}

func ReadSummary(baseDir, runID string) (Summary, bool, error) {
	var summary Summary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

func WriteFitnessSeries(runDir string, history []model.FitnessRecord) error {
	file, err := os.Create(filepath.Join(runDir, historyCSVFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best", "average", "worst"}); err != nil {
		return err
	}
	for _, record := range history {
		if err := writer.Write([]string{
			strconv.Itoa(record.Generation),
			strconv.FormatFloat(record.Best, 'f', -1, 64),
			strconv.FormatFloat(record.Average, 'f', -1, 64),
			strconv.FormatFloat(record.Worst, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]model.FitnessRecord, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, historyCSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.FitnessRecord{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 4 {
		return nil, false, fmt.Errorf("fitness series header must have 4 columns")
	}

	series := make([]model.FitnessRecord, 0, 128)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(row) < 4 {
			return nil, false, fmt.Errorf("fitness series row must have 4 columns")
		}
		var record model.FitnessRecord
		if record.Generation, err = strconv.Atoi(row[0]); err != nil {
			return nil, false, err
		}
		values := []*float64{&record.Best, &record.Average, &record.Worst}
		for i, dst := range values {
			if *dst, err = strconv.ParseFloat(row[i+1], 64); err != nil {
				return nil, false, err
			}
		}
		series = append(series, record)
	}
	return series, true, nil
}

func readJSON(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
