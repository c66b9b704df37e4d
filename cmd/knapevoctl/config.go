package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	knapapi "knapevo/pkg/knapevo"
)

// loadRunRequestFromConfig reads a JSON or YAML run config. The penalty may
// be a policy name or a block with policy and param keys.
func loadRunRequestFromConfig(path string) (knapapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return knapapi.RunRequest{}, err
	}
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return knapapi.RunRequest{}, err
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return knapapi.RunRequest{}, err
		}
	}

	var req knapapi.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["dataset"]); ok {
		req.DatasetPath = resolveConfigPath(path, v)
	}
	if v, ok := asString(raw["sheet"]); ok {
		req.Sheet = v
	}
	if v, ok := asFloat64(raw["capacity"]); ok {
		req.Capacity = v
	}
	if v, ok := asFloat64(raw["capacity_ratio"]); ok {
		req.CapacityRatio = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = &v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = &v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asString(raw["degenerate_policy"]); ok {
		req.DegeneratePolicy = v
	}
	if v, ok := asBool(raw["plot"]); ok {
		req.Plot = v
	}

	switch penalty := raw["penalty"].(type) {
	case string:
		req.Penalty = penalty
	case map[string]any:
		if v, ok := asString(penalty["policy"]); ok {
			req.Penalty = v
		}
		if v, ok := asFloat64(penalty["param"]); ok {
			req.PenaltyParam = v
		}
	case nil:
	default:
		return knapapi.RunRequest{}, fmt.Errorf("penalty must be a policy name or a block, got %T", penalty)
	}
	if v, ok := asFloat64(raw["penalty_param"]); ok {
		req.PenaltyParam = v
	}
	return req, nil
}

// resolveConfigPath makes a relative dataset path relative to the config file.
func resolveConfigPath(configPath, value string) string {
	if value == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(filepath.Dir(configPath), value)
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *knapapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "data":
			req.DatasetPath = v.(string)
		case "sheet":
			req.Sheet = v.(string)
		case "capacity":
			req.Capacity = v.(float64)
		case "capacity-ratio":
			req.CapacityRatio = v.(float64)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "mutation":
			rate := v.(float64)
			req.MutationRate = &rate
		case "seed":
			seed := v.(int64)
			req.Seed = &seed
		case "workers":
			req.Workers = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "penalty":
			req.Penalty = v.(string)
		case "penalty-param":
			req.PenaltyParam = v.(float64)
		case "degenerate":
			req.DegeneratePolicy = v.(string)
		case "plot":
			req.Plot = v.(bool)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (knapapi.RunRequest, error) {
	if configPath == "" {
		return knapapi.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return knapapi.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
