package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/metrics"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/normalize"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/store"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/types"
)

// Outcome is what happened to a single event of a processed message.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeRejected
	OutcomePersisted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomePersisted:
		return "persisted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventResult describes one element of the message's record list.
type EventResult struct {
	Index    int
	Outcome  Outcome
	ID       int64 // store id when Persisted
	EnrollID int64
	Err      error // store error when Failed
}

// Result describes one inbound message.  Ignored messages carry a Reason
// and no events; processed ones carry one EventResult per record, in order.
type Result struct {
	Topic   string
	Ignored bool
	Reason  string
	Events  []EventResult
}

// Count returns how many events ended with outcome o.
func (r Result) Count(o Outcome) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Outcome == o {
			n++
		}
	}
	return n
}

// Dispatcher turns raw MQTT payloads into persisted punches.  It never
// returns an error: every message and event ends in an explicit outcome.
type Dispatcher struct {
	store   store.PunchStore
	logger  *zap.Logger
	metrics *metrics.Ingest
	now     func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithClock overrides the time source used for received_at and fallback
// punch times.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(s store.PunchStore, logger *zap.Logger, m *metrics.Ingest, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		store:   s,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one message.  Events are handled in list order and a
// rejected or failed event does not stop its siblings.
func (d *Dispatcher) Handle(ctx context.Context, topic string, payload []byte) Result {
	res := Result{Topic: topic}

	env, reason := decodeEnvelope(payload)
	if reason != "" {
		res.Ignored = true
		res.Reason = reason
		d.metrics.RecordMessage(reason)
		d.logger.Debug("message ignored",
			zap.String("topic", topic),
			zap.String("reason", reason),
			zap.Int("bytes", len(payload)),
		)
		return res
	}

	deviceSN, _ := normalize.Text(env.SN)
	res.Events = make([]EventResult, 0, len(env.Records))
	for i, event := range env.Records {
		res.Events = append(res.Events, d.handleEvent(ctx, topic, deviceSN, i, env, event))
	}

	d.metrics.RecordMessage("processed")
	d.logger.Info("sendlog processed",
		zap.String("topic", topic),
		zap.String("device_sn", deviceSN),
		zap.Int("records", len(res.Events)),
		zap.Int("persisted", res.Count(OutcomePersisted)),
		zap.Int("rejected", res.Count(OutcomeRejected)),
		zap.Int("failed", res.Count(OutcomeFailed)),
	)
	return res
}

func (d *Dispatcher) handleEvent(ctx context.Context, topic, deviceSN string, idx int, env types.Envelope, event json.RawMessage) EventResult {
	rec := normalize.Normalize(deviceSN, env, event, d.now())
	ev := EventResult{Index: idx, EnrollID: rec.EnrollID}

	if rec.EnrollID <= 0 {
		ev.Outcome = OutcomeRejected
		d.metrics.RecordEvent(ev.Outcome.String())
		d.logger.Debug("event rejected: enrollid not positive",
			zap.String("topic", topic),
			zap.Int("index", idx),
		)
		return ev
	}

	start := time.Now()
	id, err := d.store.Insert(ctx, rec)
	d.metrics.ObserveInsert(time.Since(start))
	if err != nil {
		ev.Outcome = OutcomeFailed
		ev.Err = err
		d.metrics.RecordEvent(ev.Outcome.String())
		d.logger.Error("punch insert failed",
			zap.String("topic", topic),
			zap.String("device_sn", deviceSN),
			zap.Int64("enrollid", rec.EnrollID),
			zap.Int("index", idx),
			zap.Error(err),
		)
		return ev
	}

	ev.Outcome = OutcomePersisted
	ev.ID = id
	d.metrics.RecordEvent(ev.Outcome.String())
	return ev
}
