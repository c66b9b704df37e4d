package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Item is one selectable entry of a knapsack instance.
type Item struct {
	ID    int     `json:"id"`
	Value float64 `json:"value"`
	Cost  float64 `json:"cost"`
	Flag  int     `json:"flag"`
}

type Dataset struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

func (d Dataset) Len() int {
	return len(d.Items)
}

func (d Dataset) TotalValue() float64 {
	total := 0.0
	for _, item := range d.Items {
		total += item.Value
	}
	return total
}

func (d Dataset) TotalCost() float64 {
	total := 0.0
	for _, item := range d.Items {
		total += item.Cost
	}
	return total
}

// FitnessRecord summarizes one generation's fitness distribution.
type FitnessRecord struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Average    float64 `json:"average"`
	Worst      float64 `json:"worst"`
}

type CandidateRecord struct {
	Generation int     `json:"generation"`
	Bits       string  `json:"bits"`
	Fitness    float64 `json:"fitness"`
	Value      float64 `json:"value"`
	Cost       float64 `json:"cost"`
	Feasible   bool    `json:"feasible"`
	Selected   []int   `json:"selected"`
}

type RunRecord struct {
	VersionedRecord
	ID               string  `json:"id"`
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
	FinalBestFitness float64 `json:"final_best_fitness"`
	BestFitness      float64 `json:"best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}
