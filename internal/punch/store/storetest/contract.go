// Package storetest holds the behavior every store.PunchStore must share.
// Each implementation runs Run against a fresh, empty store.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
)

// Factory returns a new empty store for one subtest.
type Factory func(t *testing.T) store.PunchStore

func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) { insertAssignsIncreasingIDs(t, newStore(t)) })
	t.Run("RoundTripsColumns", func(t *testing.T) { roundTripsColumns(t, newStore(t)) })
	t.Run("LatestOrdersByTimeThenID", func(t *testing.T) { latestOrdersByTimeThenID(t, newStore(t)) })
	t.Run("LatestTieBreakLaterInsertFirst", func(t *testing.T) { latestTieBreak(t, newStore(t)) })
	t.Run("NowTimeIsStoredAsSent", func(t *testing.T) { nowTimeIsStoredAsSent(t, newStore(t)) })
	t.Run("LatestRespectsLimit", func(t *testing.T) { latestRespectsLimit(t, newStore(t)) })
	t.Run("LogsSinceIsChronological", func(t *testing.T) { logsSinceIsChronological(t, newStore(t)) })
	t.Run("LogsPagesAreSlices", func(t *testing.T) { logsPagesAreSlices(t, newStore(t)) })
	t.Run("LogsIdempotent", func(t *testing.T) { logsIdempotent(t, newStore(t)) })
	t.Run("ByEmployeeOnlyMatches", func(t *testing.T) { byEmployeeOnlyMatches(t, newStore(t)) })
	t.Run("EmptyStoreReturnsEmptySlice", func(t *testing.T) { emptyStore(t, newStore(t)) })
}

// Punch builds a minimal valid record.
func Punch(enrollID int64, punchTime string) store.PunchRecord {
	return store.PunchRecord{
		EnrollID:   enrollID,
		PunchTime:  punchTime,
		RawJSON:    fmt.Sprintf(`{"msg":{},"rec":{"enrollid":%d}}`, enrollID),
		ReceivedAt: "2024-01-01T00:00:00.000Z",
	}
}

func mustInsert(t *testing.T, s store.PunchStore, rec store.PunchRecord) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func ids(rows []store.PunchRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func insertAssignsIncreasingIDs(t *testing.T, s store.PunchStore) {
	var prev int64
	for i := 0; i < 5; i++ {
		id := mustInsert(t, s, Punch(1, "2024-01-01T08:00:00Z"))
		assert.Greater(t, id, prev)
		prev = id
	}
}

func roundTripsColumns(t *testing.T, s store.PunchStore) {
	sn := "DEV1"
	in, mode, ev, vm := int64(1), int64(2), int64(0), int64(15)
	temp := 36.6
	img := "aGVsbG8="
	rec := store.PunchRecord{
		DeviceSN:    &sn,
		EnrollID:    42,
		PunchTime:   "2024-01-01T08:00:00Z",
		InOut:       &in,
		Mode:        &mode,
		Event:       &ev,
		VerifyMode:  &vm,
		Temp:        &temp,
		ImageBase64: &img,
		RawJSON:     `{"msg":{"cmd":"sendlog"},"rec":{"enrollid":42}}`,
		ReceivedAt:  "2024-01-01T08:00:01.000Z",
	}
	id := mustInsert(t, s, rec)
	bare := mustInsert(t, s, Punch(43, "2024-01-01T07:00:00Z"))

	rows, err := s.ListLatest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, store.PunchRow{ID: id, PunchRecord: rec}, rows[0])

	assert.Equal(t, bare, rows[1].ID)
	assert.Nil(t, rows[1].DeviceSN)
	assert.Nil(t, rows[1].InOut)
	assert.Nil(t, rows[1].Mode)
	assert.Nil(t, rows[1].Event)
	assert.Nil(t, rows[1].VerifyMode)
	assert.Nil(t, rows[1].Temp)
	assert.Nil(t, rows[1].ImageBase64)
}

func latestOrdersByTimeThenID(t *testing.T, s store.PunchStore) {
	a := mustInsert(t, s, Punch(1, "2024-01-01T08:00:00Z"))
	b := mustInsert(t, s, Punch(2, "2024-01-03T08:00:00Z"))
	c := mustInsert(t, s, Punch(3, "2024-01-02T08:00:00Z"))
	d := mustInsert(t, s, Punch(4, "not a time"))

	rows, err := s.ListLatest(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, c, a, d}, ids(rows))
}

func latestTieBreak(t *testing.T, s store.PunchStore) {
	first := mustInsert(t, s, Punch(1, "2024-01-01T08:00:00Z"))
	second := mustInsert(t, s, Punch(2, "2024-01-01T08:00:00Z"))

	rows, err := s.ListLatest(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{second, first}, ids(rows))
}

// Devices may send "now" as their time; it must persist verbatim and sort
// as the current time.
func nowTimeIsStoredAsSent(t *testing.T, s store.PunchStore) {
	old := mustInsert(t, s, Punch(1, "2024-01-01T08:00:00Z"))
	lower := mustInsert(t, s, Punch(2, "now"))
	upper := mustInsert(t, s, Punch(3, "NOW"))

	rows, err := s.ListLatest(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []int64{upper, lower, old}, ids(rows))
	assert.Equal(t, "NOW", rows[0].PunchTime)
	assert.Equal(t, "now", rows[1].PunchTime)

	since := "2024-06-01T00:00:00Z"
	rows, err = s.ListLogs(context.Background(), store.LogsQuery{Since: &since, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{upper, lower}, ids(rows))
}

func latestRespectsLimit(t *testing.T, s store.PunchStore) {
	for i := 0; i < 7; i++ {
		mustInsert(t, s, Punch(int64(i+1), fmt.Sprintf("2024-01-01T08:%02d:00Z", i)))
	}
	rows, err := s.ListLatest(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-01T08:06:00Z", rows[0].PunchTime)
}

func logsSinceIsChronological(t *testing.T, s store.PunchStore) {
	// 10:00+02:00 is 08:00Z: lexicographically after the bound, chronologically before.
	mustInsert(t, s, Punch(1, "2024-01-01T10:00:00+02:00"))
	inside := mustInsert(t, s, Punch(2, "2024-01-01T09:00:00Z"))
	later := mustInsert(t, s, Punch(3, "2024-01-01 09:30:00"))
	mustInsert(t, s, Punch(4, "garbage"))

	since := "2024-01-01T09:00:00Z"
	rows, err := s.ListLogs(context.Background(), store.LogsQuery{Since: &since, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{later, inside}, ids(rows))
}

func logsPagesAreSlices(t *testing.T, s store.PunchStore) {
	for i := 0; i < 9; i++ {
		// Three rows share each timestamp so the id tie-break matters.
		mustInsert(t, s, Punch(int64(i+1), fmt.Sprintf("2024-01-0%dT08:00:00Z", i/3+1)))
	}
	ctx := context.Background()

	all, err := s.ListLogs(ctx, store.LogsQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, all, 9)

	for offset := 0; offset <= 9; offset += 2 {
		page, err := s.ListLogs(ctx, store.LogsQuery{Limit: 4, Offset: offset})
		require.NoError(t, err)
		end := offset + 4
		if end > len(all) {
			end = len(all)
		}
		assert.Equal(t, ids(all[offset:end]), ids(page), "offset=%d", offset)
	}
}

func logsIdempotent(t *testing.T, s store.PunchStore) {
	for i := 0; i < 4; i++ {
		mustInsert(t, s, Punch(int64(i+1), "2024-01-01T08:00:00Z"))
	}
	ctx := context.Background()
	since := "2023-12-31"

	first, err := s.ListLogs(ctx, store.LogsQuery{Since: &since, Limit: 2, Offset: 1})
	require.NoError(t, err)
	second, err := s.ListLogs(ctx, store.LogsQuery{Since: &since, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func byEmployeeOnlyMatches(t *testing.T, s store.PunchStore) {
	ctx := context.Background()
	var want []int64
	for i := 0; i < 6; i++ {
		enroll := int64(7)
		if i%2 == 1 {
			enroll = 8
		}
		id := mustInsert(t, s, Punch(enroll, fmt.Sprintf("2024-01-01T08:0%d:00Z", i)))
		if enroll == 7 {
			want = append([]int64{id}, want...)
		}
	}

	rows, err := s.ListByEmployee(ctx, store.EmployeeQuery{EnrollID: 7, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, want, ids(rows))
	for _, r := range rows {
		assert.Equal(t, int64(7), r.EnrollID)
	}

	page, err := s.ListByEmployee(ctx, store.EmployeeQuery{EnrollID: 7, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, want[1:2], ids(page))

	none, err := s.ListByEmployee(ctx, store.EmployeeQuery{EnrollID: 99, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func emptyStore(t *testing.T, s store.PunchStore) {
	rows, err := s.ListLatest(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
