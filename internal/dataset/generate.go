package dataset

import (
	"fmt"
	"math/rand"

	"knapevo/internal/model"
)

// Generate builds an uncorrelated random instance: values in [1,maxValue]
// and costs in [1,maxCost], drawn independently.
func Generate(seed int64, n, maxValue, maxCost int) (model.Dataset, error) {
	if n <= 0 {
		return model.Dataset{}, fmt.Errorf("item count must be > 0")
	}
	if maxValue <= 0 || maxCost <= 0 {
		return model.Dataset{}, fmt.Errorf("max value and max cost must be > 0")
	}
	rng := rand.New(rand.NewSource(seed))
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:    i + 1,
			Value: float64(rng.Intn(maxValue) + 1),
			Cost:  float64(rng.Intn(maxCost) + 1),
		}
	}
	return model.Dataset{
		Name:  fmt.Sprintf("uncorrelated_%d_%d", n, seed),
		Items: items,
	}, nil
}

// SuggestCapacity returns ratio times the total cost, the usual way random
// instances pick a binding capacity.
func SuggestCapacity(ds model.Dataset, ratio float64) float64 {
	if ratio <= 0 {
		ratio = 0.5
	}
	return float64(int64(ds.TotalCost() * ratio))
}
