package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/types"
)

var (
	ErrInvalidEnrollID = errors.New("invalid enrollid")
)

const (
	DefaultLatestLimit = 50
	MaxLatestLimit     = 500
	DefaultPageLimit   = 200
	MaxPageLimit       = 1000
)

// Query parameters arrive exactly as the client sent them; empty means
// the parameter was not given.
type LatestRequest struct {
	Limit string
}

type LogsRequest struct {
	Since  string
	Limit  string
	Offset string
}

type EmployeeRequest struct {
	EnrollID string
	Limit    string
	Offset   string
}

// QueryService is the read side of the punch log.  It validates and clamps
// client parameters before touching the store.
type QueryService struct {
	store store.PunchStore
}

func NewQueryService(s store.PunchStore) *QueryService {
	return &QueryService{store: s}
}

func (s *QueryService) Latest(ctx context.Context, req LatestRequest) (types.LatestResponse, error) {
	limit := clamp(parseIntDefault(req.Limit, DefaultLatestLimit), 1, MaxLatestLimit)

	rows, err := s.store.ListLatest(ctx, limit)
	if err != nil {
		return types.LatestResponse{}, err
	}
	return types.LatestResponse{Count: len(rows), Limit: limit, Rows: rows}, nil
}

func (s *QueryService) Logs(ctx context.Context, req LogsRequest) (types.LogsResponse, error) {
	limit := clamp(parseIntDefault(req.Limit, DefaultPageLimit), 1, MaxPageLimit)
	offset := max(parseIntDefault(req.Offset, 0), 0)

	var since *string
	if v := strings.TrimSpace(req.Since); v != "" {
		since = &v
	}

	rows, err := s.store.ListLogs(ctx, store.LogsQuery{Since: since, Limit: limit, Offset: offset})
	if err != nil {
		return types.LogsResponse{}, err
	}
	return types.LogsResponse{
		Count:  len(rows),
		Limit:  limit,
		Offset: offset,
		Since:  since,
		Rows:   rows,
	}, nil
}

func (s *QueryService) ByEmployee(ctx context.Context, req EmployeeRequest) (types.EmployeeResponse, error) {
	enrollID, err := strconv.ParseInt(strings.TrimSpace(req.EnrollID), 10, 64)
	if err != nil || enrollID <= 0 {
		return types.EmployeeResponse{}, ErrInvalidEnrollID
	}

	limit := clamp(parseIntDefault(req.Limit, DefaultPageLimit), 1, MaxPageLimit)
	offset := max(parseIntDefault(req.Offset, 0), 0)

	rows, err := s.store.ListByEmployee(ctx, store.EmployeeQuery{EnrollID: enrollID, Limit: limit, Offset: offset})
	if err != nil {
		return types.EmployeeResponse{}, err
	}
	return types.EmployeeResponse{
		Count:    len(rows),
		EnrollID: enrollID,
		Limit:    limit,
		Offset:   offset,
		Rows:     rows,
	}, nil
}

func parseIntDefault(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
