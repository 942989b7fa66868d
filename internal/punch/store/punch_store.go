package store

import "context"

// PunchRecord is one normalized attendance event, ready to persist.
// Pointer fields are nullable columns; nil means the device did not send it.
type PunchRecord struct {
	DeviceSN    *string  `json:"device_sn"`
	EnrollID    int64    `json:"enrollid"`
	PunchTime   string   `json:"punch_time"`
	InOut       *int64   `json:"inout"`
	Mode        *int64   `json:"mode"`
	Event       *int64   `json:"event"`
	VerifyMode  *int64   `json:"verifymode"`
	Temp        *float64 `json:"temp"`
	ImageBase64 *string  `json:"image_base64"`
	RawJSON     string   `json:"raw_json"`
	ReceivedAt  string   `json:"received_at"`
}

// PunchRow is a persisted PunchRecord with its store-assigned id.
type PunchRow struct {
	ID int64 `json:"id"`
	PunchRecord
}

// LogsQuery selects rows at or after Since (nil: no bound), newest first.
type LogsQuery struct {
	Since  *string
	Limit  int
	Offset int
}

// EmployeeQuery selects rows for one enrollid, newest first.
type EmployeeQuery struct {
	EnrollID int64
	Limit    int
	Offset   int
}

// PunchStore is the append-only punch log.  Reads order by punch_time
// (as a timestamp) descending, then id descending.
type PunchStore interface {
	Insert(ctx context.Context, rec PunchRecord) (int64, error)
	ListLatest(ctx context.Context, limit int) ([]PunchRow, error)
	ListLogs(ctx context.Context, q LogsQuery) ([]PunchRow, error)
	ListByEmployee(ctx context.Context, q EmployeeQuery) ([]PunchRow, error)
}
