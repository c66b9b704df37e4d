package evo

import (
	"math"

	"knapevo/internal/model"
)

const defaultCapacityMultiple = 2.0

// PenaltyPolicy maps a capacity overshoot to the amount subtracted from the
// raw value of an infeasible selection. Implementations must be monotonic
// non-decreasing in overshoot and return values >= 0.
type PenaltyPolicy interface {
	Name() string
	Penalty(rawValue, overshoot float64) float64
}

// ProportionalPenalty subtracts Factor per unit of cost above capacity.
type ProportionalPenalty struct {
	Factor float64
}

func (ProportionalPenalty) Name() string {
	return "proportional"
}

func (p ProportionalPenalty) Penalty(_, overshoot float64) float64 {
	if overshoot <= 0 || p.Factor <= 0 {
		return 0
	}
	return p.Factor * overshoot
}

// CapacityFractionPenalty subtracts a fixed multiple of the capacity from any
// selection that overshoots, regardless of by how much.
type CapacityFractionPenalty struct {
	Multiple float64
	Capacity float64
}

func (CapacityFractionPenalty) Name() string {
	return "capacity_fraction"
}

func (p CapacityFractionPenalty) Penalty(_, overshoot float64) float64 {
	if overshoot <= 0 {
		return 0
	}
	multiple := p.Multiple
	if multiple <= 0 {
		multiple = defaultCapacityMultiple
	}
	return multiple * math.Max(p.Capacity, 0)
}

// DeathPenalty zeroes the fitness of every infeasible selection.
type DeathPenalty struct{}

func (DeathPenalty) Name() string {
	return "death"
}

func (DeathPenalty) Penalty(rawValue, overshoot float64) float64 {
	if overshoot <= 0 {
		return 0
	}
	return rawValue
}

// DefaultPenaltyFactor scales the proportional penalty so that one unit of
// overshoot costs the average value carried per unit of capacity.
func DefaultPenaltyFactor(items []model.Item, capacity float64) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Value
	}
	if capacity <= 0 {
		return math.Max(total, 1)
	}
	return math.Max(total/capacity, 1)
}
