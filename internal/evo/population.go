package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"knapevo/internal/model"
)

// DegeneratePolicy decides what selection does when every candidate has zero
// fitness.
type DegeneratePolicy string

const (
	DegenerateFail    DegeneratePolicy = "fail"
	DegenerateUniform DegeneratePolicy = "uniform"
)

type PopulationConfig struct {
	Size             int
	BitLength        int
	MutationRate     float64
	Items            []model.Item
	Evaluator        *Evaluator
	Selector         Selector
	DegeneratePolicy DegeneratePolicy
	Workers          int
}

// Population owns the candidates of a run and advances them one generation
// at a time. It is not safe for concurrent use.
type Population struct {
	cfg        PopulationConfig
	candidates []Candidate
	fitness    []float64
	generation int
}

func (cfg *PopulationConfig) validate() error {
	if cfg.Size <= 0 {
		return configError("population size", "must be > 0, got %d", cfg.Size)
	}
	if cfg.BitLength <= 0 {
		return configError("bit length", "must be > 0, got %d", cfg.BitLength)
	}
	if !(cfg.MutationRate >= 0 && cfg.MutationRate <= 1) {
		return configError("mutation rate", "must be in [0,1], got %v", cfg.MutationRate)
	}
	if cfg.Evaluator == nil {
		return configError("evaluator", "is required")
	}
	items := len(cfg.Items)
	if cfg.Items == nil {
		items = cfg.Evaluator.Items()
	}
	if cfg.BitLength != items {
		return &DatasetMismatchError{BitLength: cfg.BitLength, Items: items}
	}
	if cfg.Evaluator.Items() != items {
		return &DatasetMismatchError{BitLength: cfg.BitLength, Items: cfg.Evaluator.Items()}
	}
	switch cfg.DegeneratePolicy {
	case "":
		cfg.DegeneratePolicy = DegenerateFail
	case DegenerateFail, DegenerateUniform:
	default:
		return configError("degenerate policy", "unsupported value %q", cfg.DegeneratePolicy)
	}
	if cfg.Selector == nil {
		cfg.Selector = RouletteSelector{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return nil
}

// NewPopulation creates cfg.Size random candidates and evaluates them.
func NewPopulation(rng *rand.Rand, cfg PopulationConfig) (*Population, error) {
	if rng == nil {
		return nil, configError("random source", "is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	candidates := make([]Candidate, cfg.Size)
	for i := range candidates {
		candidates[i] = RandomCandidate(rng, cfg.BitLength)
	}
	return newPopulation(cfg, candidates), nil
}

// NewPopulationFrom seeds a population with caller-supplied candidates. The
// candidate count overrides cfg.Size.
func NewPopulationFrom(cfg PopulationConfig, candidates []Candidate) (*Population, error) {
	cfg.Size = len(candidates)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.Len() != cfg.BitLength {
			return nil, &DatasetMismatchError{BitLength: c.Len(), Items: cfg.BitLength}
		}
	}
	return newPopulation(cfg, cloneCandidates(candidates)), nil
}

func newPopulation(cfg PopulationConfig, candidates []Candidate) *Population {
	p := &Population{cfg: cfg, candidates: candidates}
	p.fitness = p.evaluate(candidates)
	return p
}

func (p *Population) Size() int {
	return len(p.candidates)
}

func (p *Population) BitLength() int {
	return p.cfg.BitLength
}

func (p *Population) MutationRate() float64 {
	return p.cfg.MutationRate
}

// Generation is the number of completed steps.
func (p *Population) Generation() int {
	return p.generation
}

func (p *Population) Evaluator() *Evaluator {
	return p.cfg.Evaluator
}

func (p *Population) Candidates() []Candidate {
	return cloneCandidates(p.candidates)
}

func (p *Population) Fitness() []float64 {
	return append([]float64(nil), p.fitness...)
}

// Best returns the fittest candidate; ties go to the lowest index.
func (p *Population) Best() (Candidate, float64) {
	best := 0
	for i, f := range p.fitness {
		if f > p.fitness[best] {
			best = i
		}
	}
	return p.candidates[best].Clone(), p.fitness[best]
}

// Record summarizes the current fitness values.
func (p *Population) Record() model.FitnessRecord {
	return summarizeFitness(p.generation, p.fitness)
}

// Step advances one generation: select, crossover, mutate, evaluate. On error
// the population keeps its previous state.
func (p *Population) Step(rng *rand.Rand) error {
	if rng == nil {
		return configError("random source", "is required")
	}
	next := p.generation + 1

	parents, err := p.cfg.Selector.Select(rng, p.candidates, p.fitness)
	if err != nil {
		var degenerate *DegenerateFitnessError
		if !errors.As(err, &degenerate) {
			return fmt.Errorf("select generation %d: %w", next, err)
		}
		degenerate.Generation = next
		if p.cfg.DegeneratePolicy != DegenerateUniform {
			return degenerate
		}
		parents, err = UniformSelector{}.Select(rng, p.candidates, p.fitness)
		if err != nil {
			return fmt.Errorf("select generation %d: %w", next, err)
		}
	}
	if len(parents) != len(p.candidates) {
		return fmt.Errorf("selector %s returned %d candidates, want %d", p.cfg.Selector.Name(), len(parents), len(p.candidates))
	}

	ApplyCrossover(rng, parents)
	Mutate(rng, parents, p.cfg.MutationRate)

	p.fitness = p.evaluate(parents)
	p.candidates = parents
	p.generation = next
	return nil
}

func (p *Population) evaluate(candidates []Candidate) []float64 {
	fitness := make([]float64, len(candidates))
	workerCount := p.cfg.Workers
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}
	if workerCount <= 1 {
		for i := range candidates {
			fitness[i] = p.cfg.Evaluator.Evaluate(candidates[i])
		}
		return fitness
	}

	type result struct {
		idx     int
		fitness float64
	}

	jobs := make(chan int)
	results := make(chan result, len(candidates))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- result{idx: idx, fitness: p.cfg.Evaluator.Evaluate(candidates[idx])}
			}
		}()
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		fitness[res.idx] = res.fitness
	}
	return fitness
}

func (p *Population) String() string {
	var b strings.Builder
	for i, c := range p.candidates {
		fmt.Fprintf(&b, "x_%-2d: %s %v\n", i, c, p.fitness[i])
	}
	return b.String()
}
