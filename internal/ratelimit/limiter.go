package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paceline/internal/config"
)

const (
	windowSleepBuffer = 1 * time.Second
	dailySleepBuffer  = 5 * time.Second
)

// Limiter enforces the platform's sliding-window and calendar-day request
// quotas. It never fails; it only delays the caller. A Limiter is safe for
// concurrent use, though callers sharing one instance serialize on its sleeps.
type Limiter struct {
	window      time.Duration
	windowLimit int
	dailyLimit  int
	margin      float64

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger

	mu         sync.Mutex
	calls      []time.Time
	dailyCalls int
	dailyDate  time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSleeper overrides how sleeps are performed (useful for tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithLogger attaches a logger for sleep announcements.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New constructs a Limiter from the rate-limit configuration section.
func New(cfg config.RateLimit, opts ...Option) *Limiter {
	l := &Limiter{
		window:      time.Duration(cfg.WindowSeconds) * time.Second,
		windowLimit: cfg.WindowLimit,
		dailyLimit:  cfg.DailyLimit,
		margin:      cfg.SafetyMargin,
		now:         time.Now,
		sleep:       sleepContext,
		logger:      slog.New(slog.DiscardHandler),
	}
	if l.margin <= 0 || l.margin > 1 {
		l.margin = 0.9
	}
	for _, opt := range opts {
		opt(l)
	}
	l.dailyDate = dateOf(l.now())
	return l
}

// Wait blocks until another outbound call is admissible under both quotas.
// It returns early only when the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// A new calendar day resets the daily counter.
	if dateOf(now).After(l.dailyDate) {
		l.dailyCalls = 0
		l.dailyDate = dateOf(now)
	}

	if l.dailyLimit > 0 && l.dailyCalls >= l.threshold(l.dailyLimit) {
		wait := untilMidnight(now) + dailySleepBuffer
		l.logger.Warn("daily quota reached, sleeping until midnight",
			slog.Duration("wait", wait),
			slog.Int("calls", l.dailyCalls))
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		now = l.now()
		l.dailyCalls = 0
		l.dailyDate = dateOf(now)
	}

	l.prune(now)

	if l.windowLimit > 0 && len(l.calls) >= l.threshold(l.windowLimit) {
		oldest := l.calls[0]
		wait := l.window - now.Sub(oldest) + windowSleepBuffer
		if wait > 0 {
			l.logger.Info("request window saturated, sleeping",
				slog.Duration("wait", wait),
				slog.Int("calls", len(l.calls)))
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		l.calls = l.calls[1:]
	}

	return nil
}

// Record notes that an outbound call is being made right now.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if dateOf(now).After(l.dailyDate) {
		l.dailyCalls = 0
		l.dailyDate = dateOf(now)
	}
	l.calls = append(l.calls, now)
	l.dailyCalls++
}

// Pending returns the number of calls currently retained in the window and
// the daily counter, for diagnostics.
func (l *Limiter) Pending() (window int, daily int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls), l.dailyCalls
}

func (l *Limiter) threshold(limit int) int {
	t := int(float64(limit) * l.margin)
	if t < 1 {
		t = 1
	}
	return t
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func untilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
