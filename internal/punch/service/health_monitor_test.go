package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/punch/service"
)

type recordingReporter struct {
	mu       sync.Mutex
	statuses []bool
}

func (r *recordingReporter) SetServing(serving bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, serving)
}

func (r *recordingReporter) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.statuses...)
}

func probe(name string, err *error, mu *sync.Mutex) service.HealthProbe {
	return service.HealthProbe{Name: name, Check: func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		return *err
	}}
}

func TestHealthMonitor_CheckCombinesProbes(t *testing.T) {
	var mu sync.Mutex
	var dbErr, mqttErr error
	rep := &recordingReporter{}
	m := service.NewHealthMonitor(rep, service.MonitorConfig{IntervalSeconds: 60}, zap.NewNop(),
		probe("db", &dbErr, &mu), probe("mqtt", &mqttErr, &mu))

	ctx := context.Background()
	assert.True(t, m.Check(ctx))

	mu.Lock()
	mqttErr = errors.New("not connected")
	mu.Unlock()
	assert.False(t, m.Check(ctx))

	mu.Lock()
	mqttErr = nil
	mu.Unlock()
	assert.True(t, m.Check(ctx))

	assert.Equal(t, []bool{true, false, true}, rep.snapshot())
}

func TestHealthMonitor_StartReportsImmediately(t *testing.T) {
	var mu sync.Mutex
	dbErr := errors.New("locked")
	rep := &recordingReporter{}
	m := service.NewHealthMonitor(rep, service.MonitorConfig{IntervalSeconds: 3600}, zap.NewNop(),
		probe("db", &dbErr, &mu))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	require.Eventually(t, func() bool { return len(rep.snapshot()) > 0 }, time.Second, 10*time.Millisecond)
	m.Stop()

	assert.False(t, rep.snapshot()[0])
}

func TestHealthMonitor_DisabledWithoutReporter(t *testing.T) {
	m := service.NewHealthMonitor(nil, service.MonitorConfig{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	// Stop should return immediately.
	m.Stop()
}

func TestHealthMonitor_StopWithoutStart(t *testing.T) {
	m := service.NewHealthMonitor(&recordingReporter{}, service.MonitorConfig{}, nil)
	m.Stop()
}
