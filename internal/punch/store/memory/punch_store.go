package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
)

// PunchStore is an in-memory punch log with the same ordering and filter
// semantics as the SQLite store, within the timestamp forms ParseTimestamp
// understands.  It is intended for tests and dev runs.
type PunchStore struct {
	mu     sync.RWMutex
	rows   []store.PunchRow
	nextID int64
	// failWith, when set, makes Insert fail.  Test-only hook.
	failWith error
}

func NewPunchStore() *PunchStore {
	return &PunchStore{nextID: 1}
}

var _ store.PunchStore = (*PunchStore)(nil)

func (s *PunchStore) Insert(_ context.Context, rec store.PunchRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return 0, s.failWith
	}
	if rec.ReceivedAt == "" {
		rec.ReceivedAt = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}

	id := s.nextID
	s.nextID++
	s.rows = append(s.rows, store.PunchRow{ID: id, PunchRecord: rec})
	return id, nil
}

// FailInserts makes every following Insert return err (nil restores normal
// behavior).  Test-only helper.
func (s *PunchStore) FailInserts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Rows returns a copy of all rows in insertion order.  Test-only helper.
func (s *PunchStore) Rows() []store.PunchRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.PunchRow, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *PunchStore) ListLatest(_ context.Context, limit int) ([]store.PunchRow, error) {
	return s.list(nil, limit, 0), nil
}

func (s *PunchStore) ListLogs(_ context.Context, q store.LogsQuery) ([]store.PunchRow, error) {
	if q.Since == nil {
		return s.list(nil, q.Limit, q.Offset), nil
	}

	since, ok := ParseTimestamp(*q.Since)
	return s.list(func(r store.PunchRow) bool {
		if !ok {
			// NULL >= x is never true in SQL.
			return false
		}
		t, valid := ParseTimestamp(r.PunchTime)
		return valid && t >= since
	}, q.Limit, q.Offset), nil
}

func (s *PunchStore) ListByEmployee(_ context.Context, q store.EmployeeQuery) ([]store.PunchRow, error) {
	return s.list(func(r store.PunchRow) bool {
		return r.EnrollID == q.EnrollID
	}, q.Limit, q.Offset), nil
}

type keyed struct {
	row   store.PunchRow
	ts    int64
	valid bool
}

func (s *PunchStore) list(keep func(store.PunchRow) bool, limit, offset int) []store.PunchRow {
	s.mu.RLock()
	matched := make([]keyed, 0, len(s.rows))
	for _, r := range s.rows {
		if keep != nil && !keep(r) {
			continue
		}
		ts, ok := ParseTimestamp(r.PunchTime)
		matched = append(matched, keyed{row: r, ts: ts, valid: ok})
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.valid != b.valid {
			return a.valid // unparseable times behave like NULL and sort last
		}
		if a.valid && a.ts != b.ts {
			return a.ts > b.ts
		}
		return a.row.ID > b.row.ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]store.PunchRow, 0, end-offset)
	for _, k := range matched[offset:end] {
		out = append(out, k.row)
	}
	return out
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp covers the subset of SQLite's datetime() input grammar that
// devices send: ISO-8601 dates and date-times with optional zone, and "now".
// It returns UTC Unix seconds (sub-second part dropped).  Time-only values,
// Julian day numbers and modifiers are not parsed and sort like NULL here,
// while SQLite would accept them.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.EqualFold(s, "now") {
		return time.Now().UTC().Unix(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Unix(), true
		}
	}
	return 0, false
}
