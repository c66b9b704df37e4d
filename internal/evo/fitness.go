package evo

import (
	"fmt"
	"math"

	"knapevo/internal/model"
)

// Evaluation is the full breakdown behind a fitness value.
type Evaluation struct {
	Value     float64
	Cost      float64
	Overshoot float64
	Fitness   float64
	Feasible  bool
}

// Evaluator scores candidates against a fixed item set and capacity. It holds
// no mutable state and is safe for concurrent use.
type Evaluator struct {
	items    []model.Item
	capacity float64
	policy   PenaltyPolicy
	total    float64
}

func NewEvaluator(items []model.Item, capacity float64, policy PenaltyPolicy) (*Evaluator, error) {
	if len(items) == 0 {
		return nil, configError("items", "at least one item is required")
	}
	if capacity < 0 || math.IsNaN(capacity) || math.IsInf(capacity, 0) {
		return nil, configError("capacity", "must be a finite value >= 0, got %v", capacity)
	}
	total := 0.0
	for i, item := range items {
		if item.Value < 0 || item.Cost < 0 {
			return nil, configError("items", "item %d (id=%d) has negative value or cost", i, item.ID)
		}
		total += item.Value
	}
	if policy == nil {
		policy = ProportionalPenalty{Factor: DefaultPenaltyFactor(items, capacity)}
	}
	return &Evaluator{
		items:    append([]model.Item(nil), items...),
		capacity: capacity,
		policy:   policy,
		total:    total,
	}, nil
}

func (e *Evaluator) Items() int {
	return len(e.items)
}

func (e *Evaluator) Capacity() float64 {
	return e.capacity
}

func (e *Evaluator) Policy() PenaltyPolicy {
	return e.policy
}

// MaxFitness is the sum of all item values, an upper bound for Evaluate.
func (e *Evaluator) MaxFitness() float64 {
	return e.total
}

func (e *Evaluator) Evaluate(c Candidate) float64 {
	return e.Inspect(c).Fitness
}

func (e *Evaluator) Inspect(c Candidate) Evaluation {
	var out Evaluation
	n := len(c.Bits)
	if n > len(e.items) {
		n = len(e.items)
	}
	for i := 0; i < n; i++ {
		if !c.Bits[i] {
			continue
		}
		out.Value += e.items[i].Value
		out.Cost += e.items[i].Cost
	}

	if out.Cost <= e.capacity {
		out.Feasible = true
		out.Fitness = out.Value
		return out
	}

	out.Overshoot = out.Cost - e.capacity
	penalty := e.policy.Penalty(out.Value, out.Overshoot)
	if penalty < 0 || math.IsNaN(penalty) {
		penalty = 0
	}
	out.Fitness = math.Max(out.Value-penalty, 0)
	return out
}

func (e *Evaluator) String() string {
	return fmt.Sprintf("evaluator(items=%d capacity=%v penalty=%s)", len(e.items), e.capacity, e.policy.Name())
}
