package evo

import (
	"fmt"
	"strings"

	"knapevo/internal/model"
)

const defaultTournamentSize = 3

// SelectorNames lists the names accepted by SelectorFromName.
var SelectorNames = []string{"roulette", "tournament", "uniform"}

// PenaltyNames lists the names accepted by PenaltyFromName.
var PenaltyNames = []string{"proportional", "capacity_fraction", "death"}

func SelectorFromName(name string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "roulette":
		return RouletteSelector{}, nil
	case "tournament":
		return TournamentSelector{Size: defaultTournamentSize}, nil
	case "uniform":
		return UniformSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

// PenaltyFromName resolves a penalty policy. param is the proportional factor
// or the capacity multiple; values <= 0 select the policy's default.
func PenaltyFromName(name string, param float64, items []model.Item, capacity float64) (PenaltyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "proportional":
		if param <= 0 {
			param = DefaultPenaltyFactor(items, capacity)
		}
		return ProportionalPenalty{Factor: param}, nil
	case "capacity_fraction":
		if param <= 0 {
			param = defaultCapacityMultiple
		}
		return CapacityFractionPenalty{Multiple: param, Capacity: capacity}, nil
	case "death":
		return DeathPenalty{}, nil
	default:
		return nil, fmt.Errorf("unsupported penalty policy: %s", name)
	}
}

// PenaltyParam reports the effective parameter of a resolved policy.
func PenaltyParam(policy PenaltyPolicy) float64 {
	switch p := policy.(type) {
	case ProportionalPenalty:
		return p.Factor
	case CapacityFractionPenalty:
		return p.Multiple
	default:
		return 0
	}
}

func ParseDegeneratePolicy(name string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", DegenerateFail:
		return DegenerateFail, nil
	case DegenerateUniform:
		return DegenerateUniform, nil
	default:
		return "", fmt.Errorf("unsupported degenerate policy: %s", name)
	}
}
