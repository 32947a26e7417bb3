// Package session runs the background monitoring loop: tail logs, match
// pairs, apply pricing, recompute metrics, persist the day.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pnlmonitor/internal/analytics"
	"pnlmonitor/internal/domain"
	"pnlmonitor/internal/matching"
	"pnlmonitor/internal/ports"
	"pnlmonitor/internal/pricing"
	"pnlmonitor/internal/wblog"
)

// stopPoll bounds how long a stop request waits for the scan timer.
const stopPoll = 250 * time.Millisecond

// Settings are the runtime-adjustable knobs of the monitor loop. Changes
// take effect on the next cycle.
type Settings struct {
	ScanInterval     time.Duration
	PricingMode      string
	TimeframeMinutes int
}

// Snapshot is a point-in-time copy of session state, safe to use after the
// session moves on.
type Snapshot struct {
	Running          bool
	LastScan         time.Time
	Executions       []*domain.Execution
	TradePairs       []*domain.TradePair
	OpenPositions    map[string]float64
	PositionWarnings []string
	Diagnostics      []wblog.Reject
	Metrics          analytics.Snapshot
}

// Session owns the monitor goroutine and all derived trading state. All
// exported methods are safe for concurrent use.
type Session struct {
	logger ports.Logger
	repo   ports.TradeHistoryRepository
	tailer *wblog.Tailer

	// cycleMu serializes pipeline passes. The tailer's cursor state has no
	// locking of its own, so a manual cycle must never overlap a worker
	// cycle. Always acquired before mu.
	cycleMu sync.Mutex

	mu       sync.Mutex
	settings Settings
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	executions       []*domain.Execution
	pairs            []*domain.TradePair
	openPositions    map[string]float64
	positionWarnings []string
	diagnostics      []wblog.Reject
	metrics          analytics.Snapshot
	lastScan         time.Time
}

// New creates a stopped session. repo may be nil, in which case persistence
// is skipped.
func New(logger ports.Logger, repo ports.TradeHistoryRepository, tailer *wblog.Tailer, settings Settings) *Session {
	if settings.ScanInterval <= 0 {
		settings.ScanInterval = 10 * time.Second
	}
	return &Session{
		logger:        logger,
		repo:          repo,
		tailer:        tailer,
		settings:      settings,
		openPositions: make(map[string]float64),
	}
}

// Start launches the monitor loop. Starting an already running session is a
// no-op. The loop runs one cycle immediately, then every scan interval.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if _, err := pricing.ForMode(s.settings.PricingMode, s.settings.TimeframeMinutes); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session start: %w", err)
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.logger.Info(ctx, "Monitoring session started", map[string]interface{}{
		"scanInterval": s.interval().String(),
		"pricingMode":  s.pricingMode(),
	})

	go s.run(ctx, stopCh, doneCh)
	return nil
}

func (s *Session) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		s.runCycle(ctx)

		// Sleep the scan interval in short slices so a stop request is
		// honored within stopPoll rather than a full interval.
		deadline := time.Now().Add(s.interval())
		for time.Now().Before(deadline) {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(stopPoll):
			}
		}
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// runCycle performs one scan/match/price/compute pass. A panic in any stage
// is logged and the loop continues on the next interval.
func (s *Session) runCycle(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, fmt.Errorf("cycle panic: %v", r), "Monitor cycle failed, retrying next interval", nil)
		}
	}()

	scan := s.tailer.Scan(ctx)
	for _, rej := range scan.Rejects {
		s.logger.Warn(ctx, "Order record rejected", map[string]interface{}{
			"orderId": rej.OrderID,
			"reason":  rej.Reason,
		})
	}

	s.mu.Lock()
	s.executions = append(s.executions, scan.Executions...)
	s.diagnostics = append(s.diagnostics, scan.Rejects...)
	execs := make([]*domain.Execution, len(s.executions))
	copy(execs, s.executions)
	mode, tf := s.settings.PricingMode, s.settings.TimeframeMinutes
	s.mu.Unlock()

	if len(scan.Executions) > 0 {
		s.logger.Info(ctx, "New executions detected", map[string]interface{}{"count": len(scan.Executions)})
		s.persistToday(ctx, execs)
	}

	matched := matching.Match(execs)
	for _, w := range matched.Warnings {
		s.logger.Warn(ctx, w, nil)
	}

	pairs := matched.Pairs
	strategy, err := pricing.ForMode(mode, tf)
	if err != nil {
		s.logger.Error(ctx, err, "Invalid pricing settings, using raw prices", nil)
	} else {
		pairs = strategy.Apply(pairs)
	}

	metrics := analytics.Compute(pairs)

	s.mu.Lock()
	s.pairs = pairs
	s.openPositions = matched.OpenPositions
	s.positionWarnings = matched.Warnings
	s.metrics = metrics
	s.lastScan = time.Now()
	s.mu.Unlock()
}

// persistToday writes today's slice of the execution history through the
// repository. Persistence failures are logged, never fatal.
func (s *Session) persistToday(ctx context.Context, execs []*domain.Execution) {
	if s.repo == nil {
		return
	}
	today := time.Now().Format("2006-01-02")
	var todays []*domain.Execution
	for _, e := range execs {
		if e.Date() == today {
			todays = append(todays, e)
		}
	}
	if len(todays) == 0 {
		return
	}
	if err := s.repo.SaveDay(ctx, today, todays); err != nil {
		s.logger.Error(ctx, err, "Failed to persist trade history", map[string]interface{}{"date": today})
	}
}

// Stop signals the loop to exit without waiting for it.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// StopWait stops the loop and waits up to timeout for the goroutine to
// finish. Returns false on timeout. Safe to call on a stopped session.
func (s *Session) StopWait(timeout time.Duration) bool {
	s.mu.Lock()
	doneCh := s.doneCh
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	if doneCh == nil {
		return true
	}
	select {
	case <-doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Reset stops the worker if running, clears all derived state and tailer
// cursors, then restarts the worker if it had been running.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.mu.Unlock()

	if wasRunning && !s.StopWait(5*time.Second) {
		return fmt.Errorf("session reset: worker did not stop")
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.mu.Lock()
	s.executions = nil
	s.pairs = nil
	s.openPositions = make(map[string]float64)
	s.positionWarnings = nil
	s.diagnostics = nil
	s.metrics = analytics.Snapshot{}
	s.lastScan = time.Time{}
	s.tailer.Reset()
	s.mu.Unlock()

	s.logger.Info(ctx, "Session state reset", nil)

	if wasRunning {
		return s.Start(ctx)
	}
	return nil
}

// UpdateSettings replaces the runtime settings. The change is picked up on
// the next cycle; an invalid pricing mode is rejected up front.
func (s *Session) UpdateSettings(settings Settings) error {
	if settings.ScanInterval <= 0 {
		return fmt.Errorf("update settings: scan interval must be positive")
	}
	if _, err := pricing.ForMode(settings.PricingMode, settings.TimeframeMinutes); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current session state. Slices and maps are
// duplicated; mutating the snapshot does not touch the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running:          s.running,
		LastScan:         s.lastScan,
		Executions:       make([]*domain.Execution, len(s.executions)),
		TradePairs:       make([]*domain.TradePair, len(s.pairs)),
		OpenPositions:    make(map[string]float64, len(s.openPositions)),
		PositionWarnings: append([]string(nil), s.positionWarnings...),
		Diagnostics:      append([]wblog.Reject(nil), s.diagnostics...),
		Metrics:          s.metrics,
	}
	copy(snap.Executions, s.executions)
	copy(snap.TradePairs, s.pairs)
	for sym, qty := range s.openPositions {
		snap.OpenPositions[sym] = qty
	}
	return snap
}

// RunCycleNow executes a single scan cycle synchronously, independent of the
// background loop's schedule. Useful for on-demand refresh; serialized
// against the worker's own cycles.
func (s *Session) RunCycleNow(ctx context.Context) {
	s.runCycle(ctx)
}

func (s *Session) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.ScanInterval
}

func (s *Session) pricingMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.PricingMode == "" {
		return pricing.ModeOff
	}
	return s.settings.PricingMode
}
