package actor

import (
	"log/slog"
	"time"

	"github.com/creastat/statehub/scheduler"
)

// Defaults for actor tunables.
const (
	DefaultSessionTTL        = 24 * time.Hour
	DefaultDecisionCap       = 100
	DefaultDecisionRetention = 7 * 24 * time.Hour
	DefaultDecisionLimit     = 10
	DefaultSweepInterval     = time.Hour
	DefaultIdleTimeout       = 60 * time.Second
)

// Option is a functional option for configuring an Actor (and, through
// the Router, every actor it creates).
type Option func(*settings)

// settings holds per-actor configuration.
type settings struct {
	logger            *slog.Logger
	now               func() time.Time
	sessionTTL        time.Duration
	decisionCap       int
	decisionRetention time.Duration
	decisionLimit     int
	sweepInterval     time.Duration
	idleTimeout       time.Duration
	newScheduler      func(fire func()) scheduler.Scheduler
	onIdle            func(entityID string)
}

func defaultSettings() settings {
	return settings{
		logger:            slog.Default(),
		now:               time.Now,
		sessionTTL:        DefaultSessionTTL,
		decisionCap:       DefaultDecisionCap,
		decisionRetention: DefaultDecisionRetention,
		decisionLimit:     DefaultDecisionLimit,
		sweepInterval:     DefaultSweepInterval,
		idleTimeout:       DefaultIdleTimeout,
		newScheduler: func(fire func()) scheduler.Scheduler {
			return scheduler.NewTimer(fire)
		},
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClock sets the time source, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithSessionTTL sets how long a new session lives before expiring.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.sessionTTL = ttl
	}
}

// WithDecisionCap sets the maximum decision log length; the oldest
// records are evicted first.
func WithDecisionCap(n int) Option {
	return func(s *settings) {
		s.decisionCap = n
	}
}

// WithDecisionRetention sets the age beyond which the periodic sweep
// purges decision records.
func WithDecisionRetention(d time.Duration) Option {
	return func(s *settings) {
		s.decisionRetention = d
	}
}

// WithDecisionLimit sets the default number of records ListDecisions
// returns when the caller passes no limit.
func WithDecisionLimit(n int) Option {
	return func(s *settings) {
		s.decisionLimit = n
	}
}

// WithSweepInterval sets the period of the self-rearming cleanup sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		s.sweepInterval = d
	}
}

// WithIdleTimeout sets how long an actor may sit idle before it is
// offered back to its router for unloading. Zero disables idle
// tracking.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.idleTimeout = d
	}
}

// WithSchedulerFactory sets how sweep schedulers are built, used by
// tests to substitute a manual scheduler.
func WithSchedulerFactory(f func(fire func()) scheduler.Scheduler) Option {
	return func(s *settings) {
		s.newScheduler = f
	}
}

// WithOnIdle sets the callback invoked when the actor's idle timeout
// elapses with no activity. The Router uses this to unload actors.
func WithOnIdle(f func(entityID string)) Option {
	return func(s *settings) {
		s.onIdle = f
	}
}
