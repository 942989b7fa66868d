package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// DeviceSN tags the demo punch.  Defaults to "DEV-SEED".
	DeviceSN string
	// EnrollID of the demo punch.  Defaults to 1.
	EnrollID int64
}

// SeedDev inserts a single demo punch through w when the punches table is
// empty, so a fresh dev database has something to query.  It returns true if
// a row was written.
func SeedDev(ctx context.Context, db *sql.DB, w *Worker, opt SeedDevOptions) (bool, error) {
	if opt.DeviceSN == "" {
		opt.DeviceSN = "DEV-SEED"
	}
	if opt.EnrollID <= 0 {
		opt.EnrollID = 1
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM punches;`).Scan(&n); err != nil {
		return false, fmt.Errorf("seed count punches: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	event := map[string]any{"enrollid": opt.EnrollID, "time": now, "inout": 0}
	raw, err := json.Marshal(map[string]any{
		"msg": map[string]any{"cmd": "sendlog", "sn": opt.DeviceSN, "record": []any{event}},
		"rec": event,
	})
	if err != nil {
		return false, fmt.Errorf("seed raw_json: %w", err)
	}

	err = w.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO punches(device_sn, enrollid, punch_time, inout, raw_json, received_at)
VALUES (?, ?, ?, 0, ?, ?);`, opt.DeviceSN, opt.EnrollID, now, string(raw), now)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("seed punch: %w", err)
	}
	return true, nil
}
