package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/UnknownOlympus/paddos/internal/safety"
)

// Default loop timings.
const (
	DefaultInterval   = 30 * time.Second
	DefaultRetryDelay = 5 * time.Second
)

// ErrEmptySessionID is returned when a session is started without an id.
var ErrEmptySessionID = errors.New("session id is required")

// ErrMonitorClosed is returned when a session is started after Close.
var ErrMonitorClosed = errors.New("monitor is closed")

// errSessionStopped ends an iteration whose session was stopped while it was scoring.
var errSessionStopped = errors.New("session stopped")

// Sink receives the reports produced for one session, in order.
type Sink interface {
	Push(ctx context.Context, report models.SafetyReport) error
}

// Monitor runs one scoring loop per active session.
type Monitor struct {
	registry   *Registry
	scorer     safety.Scorer
	interval   time.Duration
	retryDelay time.Duration
	log        *slog.Logger
	metrics    *metrics.Metrics

	base   context.Context // parent of every loop, cancelled by Close
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // guards closed against Start
	closed bool
}

// NewMonitor creates a monitor. Non-positive timings fall back to the defaults.
func NewMonitor(
	scorer safety.Scorer,
	interval time.Duration,
	retryDelay time.Duration,
	log *slog.Logger,
	metrics *metrics.Metrics,
) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	base, cancel := context.WithCancel(context.Background())

	return &Monitor{
		registry:   NewRegistry(),
		scorer:     scorer,
		interval:   interval,
		retryDelay: retryDelay,
		log:        log,
		metrics:    metrics,
		base:       base,
		cancel:     cancel,
	}
}

// Registry exposes the session table for inspection.
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// Start begins monitoring coords for the session id and pushes every report to sink.
// A session already running under the same id is stopped first, so at most one loop exists per id.
func (m *Monitor) Start(id string, coords models.Coordinates, countryCode string, sink Sink) error {
	if id == "" {
		return ErrEmptySessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMonitorClosed
	}

	ctx, cancel := context.WithCancel(m.base)
	sess := &Session{
		ID:          id,
		Coordinates: coords,
		CountryCode: countryCode,
		cancel:      cancel,
	}

	if prev := m.registry.put(sess); prev != nil {
		prev.cancel()
		m.log.InfoContext(ctx, "Replaced running monitoring session", "session", id)
	}
	m.metrics.ActiveSessions.Set(float64(m.registry.Len()))

	m.wg.Add(1)
	go m.run(ctx, sess, sink)

	m.log.InfoContext(ctx, "Monitoring started", "session", id,
		"lat", coords.Latitude, "lon", coords.Longitude, "country", countryCode)

	return nil
}

// Stop ends monitoring for id. The loop exits at its next boundary check.
func (m *Monitor) Stop(id string) error {
	sess, ok := m.registry.remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.cancel()
	m.metrics.ActiveSessions.Set(float64(m.registry.Len()))
	m.log.Info("Monitoring stopped", "session", id)

	return nil
}

// Disconnect has the effect of Stop and is a no-op for unknown ids.
func (m *Monitor) Disconnect(id string) {
	if err := m.Stop(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.log.Error("Failed to stop session on disconnect", "session", id, "error", err)
	}
}

// Close stops every session and waits for all loops to return.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	for _, sess := range m.registry.removeAll() {
		sess.cancel()
	}
	m.cancel()
	m.metrics.ActiveSessions.Set(0)
	m.wg.Wait()
}

// run is the loop owned by a single session.
func (m *Monitor) run(ctx context.Context, sess *Session, sink Sink) {
	defer m.wg.Done()

	for {
		if !m.registry.isActive(sess) {
			m.log.DebugContext(ctx, "Monitoring loop finished", "session", sess.ID)
			return
		}

		delay := m.interval
		if err := m.iterate(ctx, sess, sink); err != nil {
			if errors.Is(err, errSessionStopped) {
				m.log.DebugContext(ctx, "Monitoring loop finished", "session", sess.ID)
				return
			}
			m.log.ErrorContext(ctx, "Monitoring iteration failed", "session", sess.ID, "error", err)
			m.metrics.MonitorFaults.Inc()
			delay = m.retryDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.log.DebugContext(ctx, "Monitoring loop cancelled", "session", sess.ID)
			return
		case <-timer.C:
		}
	}
}

// iterate scores the session once and pushes the report if the session is still live.
func (m *Monitor) iterate(ctx context.Context, sess *Session, sink Sink) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("monitoring iteration panicked: %v", rec)
		}
	}()

	report := m.scorer.Score(ctx, sess.Coordinates, sess.CountryCode)

	if ctx.Err() != nil || !m.registry.recordUpdate(sess) {
		return errSessionStopped
	}

	if err = sink.Push(ctx, report); err != nil {
		return fmt.Errorf("failed to push safety update: %w", err)
	}
	m.metrics.MonitorUpdates.Inc()

	return nil
}
