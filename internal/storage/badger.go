package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"knapevo/internal/model"
)

const (
	prefixRun     = "run:"
	prefixFitness = "fitness:"
	prefixBest    = "best:"
)

// BadgerStore keeps runs in an embedded badger key-value store. Each run owns
// three keys: run:<id>, fitness:<id> and best:<id>.
type BadgerStore struct {
	path string

	mu sync.RWMutex
	db *badger.DB
}

// NewBadgerStore opens lazily in Init. An empty path runs badger in memory.
func NewBadgerStore(path string) *BadgerStore {
	return &BadgerStore{path: path}
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	var opts badger.Options
	if s.path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(s.path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) SaveRun(_ context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixRun+run.ID), payload)
	})
}

func (s *BadgerStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	payload, ok, err := getValue(db, prefixRun+id)
	if err != nil || !ok {
		return model.RunRecord{}, ok, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *BadgerStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	runs := make([]model.RunRecord, 0)
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRun)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var run model.RunRecord
			if err := item.Value(func(val []byte) error {
				var err error
				run, err = DecodeRun(val)
				return err
			}); err != nil {
				return fmt.Errorf("decode run %s: %w", item.Key(), err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRuns(runs)
	return runs, nil
}

func (s *BadgerStore) SaveFitnessHistory(_ context.Context, runID string, history []model.FitnessRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixFitness+runID), payload)
	})
}

func (s *BadgerStore) GetFitnessHistory(_ context.Context, runID string) ([]model.FitnessRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	payload, ok, err := getValue(db, prefixFitness+runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *BadgerStore) SaveBestCandidate(_ context.Context, runID string, best model.CandidateRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCandidate(best)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixBest+runID), payload)
	})
}

func (s *BadgerStore) GetBestCandidate(_ context.Context, runID string) (model.CandidateRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CandidateRecord{}, false, err
	}

	payload, ok, err := getValue(db, prefixBest+runID)
	if err != nil || !ok {
		return model.CandidateRecord{}, ok, err
	}
	best, err := DecodeCandidate(payload)
	if err != nil {
		return model.CandidateRecord{}, false, fmt.Errorf("decode best candidate %s: %w", runID, err)
	}
	return best, true, nil
}

func (s *BadgerStore) DeleteRun(_ context.Context, runID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixRun, prefixFitness, prefixBest} {
			if err := txn.Delete([]byte(prefix + runID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func getValue(db *badger.DB, key string) ([]byte, bool, error) {
	var payload []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}
