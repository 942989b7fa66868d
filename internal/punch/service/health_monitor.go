package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthProbe is one dependency check.  Check returns nil when healthy.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// StatusReporter receives the combined result of every probe.
type StatusReporter interface {
	SetServing(serving bool)
}

// HealthMonitor periodically runs its probes and pushes the combined
// status to a reporter.  It runs as a background goroutine and is safe to
// stop via its context or the Stop method.
//
// A monitor without a reporter does not start.
type HealthMonitor struct {
	probes   []HealthProbe
	reporter StatusReporter
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	serving *bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// MonitorConfig holds the parameters for NewHealthMonitor.
type MonitorConfig struct {
	// IntervalSeconds is how often the probes run.  Defaults to 15.
	IntervalSeconds int
}

// NewHealthMonitor creates a monitor but does not start it.
// Call Start to begin the background loop.
func NewHealthMonitor(reporter StatusReporter, cfg MonitorConfig, logger *zap.Logger, probes ...HealthProbe) *HealthMonitor {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HealthMonitor{
		probes:   probes,
		reporter: reporter,
		interval: interval,
		timeout:  min(interval, 3*time.Second),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs an immediate check, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop is called.
func (m *HealthMonitor) Start(ctx context.Context) {
	if m.reporter == nil {
		m.logger.Info("health monitor disabled (no reporter)")
		m.once.Do(func() { close(m.done) })
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)

	go m.loop(ctx)

	m.logger.Info("health monitor started",
		zap.Duration("interval", m.interval),
		zap.Int("probes", len(m.probes)),
	)
}

// Stop signals the monitor to exit and waits for it to finish.
func (m *HealthMonitor) Stop() {
	if m.cancel == nil {
		m.once.Do(func() { close(m.done) })
	} else {
		m.cancel()
	}
	<-m.done
}

func (m *HealthMonitor) loop(ctx context.Context) {
	defer m.once.Do(func() { close(m.done) })

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs every probe once, reports the result and returns it.
// Status changes are logged; steady state is not.
func (m *HealthMonitor) Check(ctx context.Context) bool {
	serving := true
	for _, p := range m.probes {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := p.Check(pctx)
		cancel()
		if err != nil {
			serving = false
			m.logger.Debug("health probe failed", zap.String("probe", p.Name), zap.Error(err))
		}
	}

	m.mu.Lock()
	changed := m.serving == nil || *m.serving != serving
	m.serving = &serving
	m.mu.Unlock()

	if m.reporter != nil {
		m.reporter.SetServing(serving)
	}
	if changed {
		m.logger.Info("health status changed", zap.Bool("serving", serving))
	}
	return serving
}
