package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIngest_Counts(t *testing.T) {
	m := NewIngest(prometheus.NewRegistry())

	m.RecordMessage("processed")
	m.RecordMessage("processed")
	m.RecordMessage("unsupported_cmd")
	m.RecordEvent("persisted")
	m.ObserveInsert(3 * time.Millisecond)

	if got := testutil.ToFloat64(m.messages.WithLabelValues("processed")); got != 2 {
		t.Fatalf("expected 2 processed messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.messages.WithLabelValues("unsupported_cmd")); got != 1 {
		t.Fatalf("expected 1 ignored message, got %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("persisted")); got != 1 {
		t.Fatalf("expected 1 persisted event, got %v", got)
	}
	if got := testutil.CollectAndCount(m.insertDuration); got != 1 {
		t.Fatalf("expected insert histogram to be collected, got %d", got)
	}
}

func TestIngest_NilSafe(t *testing.T) {
	var m *Ingest
	m.RecordMessage("processed")
	m.RecordEvent("failed")
	m.ObserveInsert(time.Second)

	var h *HTTP
	h.Observe("/logs", 200, time.Millisecond)
}

func TestHTTP_Observe(t *testing.T) {
	m := NewHTTP(prometheus.NewRegistry())

	m.Observe("/logs/latest", 200, time.Millisecond)
	m.Observe("", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/logs/latest", "200")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", "404")); got != 1 {
		t.Fatalf("expected unknown route bucket, got %v", got)
	}
}
