//go:build !sqlite

package storage

import (
	"errors"
	"fmt"
)

// ErrSQLiteUnavailable is returned for the sqlite backend in builds without the
// sqlite tag.
var ErrSQLiteUnavailable = errors.New("sqlite run store not compiled in; rebuild knapevoctl with -tags sqlite")

func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("open run store %q: %w", path, ErrSQLiteUnavailable)
}
