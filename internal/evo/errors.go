package evo

import "fmt"

// ConfigurationError reports an invalid run or population parameter. It is
// returned before any generation runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DegenerateFitnessError is returned by fitness-proportionate selection when
// the population's total fitness is zero.
type DegenerateFitnessError struct {
	Generation int
	Size       int
}

func (e *DegenerateFitnessError) Error() string {
	return fmt.Sprintf("degenerate fitness: total fitness of %d candidates is 0 at generation %d", e.Size, e.Generation)
}

// DatasetMismatchError reports candidates whose bit length differs from the
// number of items in the dataset.
type DatasetMismatchError struct {
	BitLength int
	Items     int
}

func (e *DatasetMismatchError) Error() string {
	return fmt.Sprintf("dataset mismatch: bit length=%d items=%d", e.BitLength, e.Items)
}

func configError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
