package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store/memory"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails inserts for one enrollid and counts every store call.
type flakyStore struct {
	*memory.PunchStore

	mu      sync.Mutex
	failFor int64
	inserts int
	reads   int
}

func newFlakyStore(failFor int64) *flakyStore {
	return &flakyStore{PunchStore: memory.NewPunchStore(), failFor: failFor}
}

func (s *flakyStore) Insert(ctx context.Context, rec store.PunchRecord) (int64, error) {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	if s.failFor != 0 && rec.EnrollID == s.failFor {
		return 0, errDiskFull
	}
	return s.PunchStore.Insert(ctx, rec)
}

func (s *flakyStore) ListByEmployee(ctx context.Context, q store.EmployeeQuery) ([]store.PunchRow, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.PunchStore.ListByEmployee(ctx, q)
}

func (s *flakyStore) calls() (inserts, reads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts, s.reads
}
