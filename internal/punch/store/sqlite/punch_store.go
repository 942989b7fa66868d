package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/punchbridge/internal/db"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
)

const selectColumns = `
SELECT id, device_sn, enrollid, punch_time, inout, mode, event, verifymode,
       temp, image_base64, raw_json, received_at
FROM punches`

// datetime() makes the ordering chronological rather than lexicographic;
// rows whose punch_time SQLite cannot parse sort last.
const orderBy = `
ORDER BY datetime(punch_time) DESC, id DESC`

type PunchStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPunchStore(db *sql.DB, writer *dbpkg.Worker) *PunchStore {
	return &PunchStore{db: db, writer: writer}
}

var _ store.PunchStore = (*PunchStore)(nil)

func (s *PunchStore) Insert(ctx context.Context, rec store.PunchRecord) (int64, error) {
	if rec.ReceivedAt == "" {
		rec.ReceivedAt = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO punches(
  device_sn, enrollid, punch_time, inout, mode, event, verifymode,
  temp, image_base64, raw_json, received_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			nullable(rec.DeviceSN), rec.EnrollID, rec.PunchTime,
			nullable(rec.InOut), nullable(rec.Mode), nullable(rec.Event), nullable(rec.VerifyMode),
			nullable(rec.Temp), nullable(rec.ImageBase64), rec.RawJSON, rec.ReceivedAt,
		)
		if err != nil {
			return fmt.Errorf("Insert: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Insert last id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *PunchStore) ListLatest(ctx context.Context, limit int) ([]store.PunchRow, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+orderBy+`
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListLatest: %w", err)
	}
	return scanRows(rows, "ListLatest")
}

func (s *PunchStore) ListLogs(ctx context.Context, q store.LogsQuery) ([]store.PunchRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.Since != nil {
		rows, err = s.db.QueryContext(ctx, selectColumns+`
WHERE datetime(punch_time) >= datetime(?)`+orderBy+`
LIMIT ? OFFSET ?;`, *q.Since, q.Limit, q.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx, selectColumns+orderBy+`
LIMIT ? OFFSET ?;`, q.Limit, q.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("ListLogs: %w", err)
	}
	return scanRows(rows, "ListLogs")
}

func (s *PunchStore) ListByEmployee(ctx context.Context, q store.EmployeeQuery) ([]store.PunchRow, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
WHERE enrollid = ?`+orderBy+`
LIMIT ? OFFSET ?;`, q.EnrollID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("ListByEmployee: %w", err)
	}
	return scanRows(rows, "ListByEmployee")
}

func scanRows(rows *sql.Rows, op string) ([]store.PunchRow, error) {
	defer rows.Close()

	out := []store.PunchRow{}
	for rows.Next() {
		var (
			r          store.PunchRow
			deviceSN   sql.NullString
			enrollID   sql.NullInt64
			punchTime  sql.NullString
			inout      sql.NullInt64
			mode       sql.NullInt64
			event      sql.NullInt64
			verifyMode sql.NullInt64
			temp       sql.NullFloat64
			image      sql.NullString
			rawJSON    sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &deviceSN, &enrollID, &punchTime, &inout, &mode, &event, &verifyMode,
			&temp, &image, &rawJSON, &r.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}

		r.DeviceSN = stringPtr(deviceSN)
		r.EnrollID = enrollID.Int64
		r.PunchTime = punchTime.String
		r.InOut = int64Ptr(inout)
		r.Mode = int64Ptr(mode)
		r.Event = int64Ptr(event)
		r.VerifyMode = int64Ptr(verifyMode)
		if temp.Valid {
			v := temp.Float64
			r.Temp = &v
		}
		r.ImageBase64 = stringPtr(image)
		r.RawJSON = rawJSON.String

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}

// nullable turns a nil pointer into a SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
