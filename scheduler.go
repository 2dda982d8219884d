package authclient

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RefreshScheduler periodically asks its Refresher whether the token is close
// enough to expiry to warrant a proactive refresh. The session arms it on
// entering the authenticated state and disarms it on leaving; both operations
// are idempotent.
//
// The scheduler is a safety net, not a guarantee: a refresh can still be
// triggered on demand (CheckNow) when the application regains focus after a
// long suspend.
type RefreshScheduler struct {
	refresher Refresher
	logger    Logger
	timeout   time.Duration

	mu       sync.Mutex
	runner   *cron.Cron
	interval time.Duration
}

type SchedulerOption func(*RefreshScheduler)

func WithSchedulerLogger(logger Logger) SchedulerOption {
	return func(rs *RefreshScheduler) {
		if logger != nil {
			rs.logger = logger
		}
	}
}

// WithSchedulerTimeout bounds each background refresh attempt. Defaults to 30
// seconds.
func WithSchedulerTimeout(timeout time.Duration) SchedulerOption {
	return func(rs *RefreshScheduler) {
		if timeout > 0 {
			rs.timeout = timeout
		}
	}
}

func NewRefreshScheduler(refresher Refresher, opts ...SchedulerOption) *RefreshScheduler {
	rs := &RefreshScheduler{
		refresher: refresher,
		logger:    defLogger{},
		timeout:   30 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(rs)
		}
	}

	return rs
}

// Arm starts the periodic check at the given interval. Re-arming with the same
// interval is a no-op; a different interval replaces the running schedule.
func (rs *RefreshScheduler) Arm(interval time.Duration) {
	if interval <= 0 {
		rs.logger.Warn("refusing to arm refresh scheduler with interval %s", interval)
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.runner != nil && rs.interval == interval {
		return
	}

	if rs.runner != nil {
		rs.runner.Stop()
		rs.runner = nil
	}

	runner := cron.New()
	if _, err := runner.AddFunc("@every "+interval.String(), rs.tick); err != nil {
		rs.logger.Error("unable to schedule refresh check: %v", err)
		return
	}
	runner.Start()

	rs.runner = runner
	rs.interval = interval
	rs.logger.Debug("refresh scheduler armed, checking every %s", interval)
}

// Disarm stops the periodic check. Safe to call when not armed.
func (rs *RefreshScheduler) Disarm() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.runner == nil {
		return
	}

	rs.runner.Stop()
	rs.runner = nil
	rs.interval = 0
	rs.logger.Debug("refresh scheduler disarmed")
}

// Armed reports whether the periodic check is running.
func (rs *RefreshScheduler) Armed() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.runner != nil
}

// CheckNow runs one refresh check immediately, outside the schedule. Returns
// true when a refresh was performed and succeeded. Useful when the host
// application regains focus or connectivity.
func (rs *RefreshScheduler) CheckNow(ctx context.Context) (bool, error) {
	if !rs.refresher.ShouldRefresh() {
		return false, nil
	}

	ok, err := rs.refresher.Refresh(ctx)
	if err != nil {
		return ok, err
	}
	return ok, nil
}

func (rs *RefreshScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	refreshed, err := rs.CheckNow(ctx)
	if err != nil {
		rs.logger.Warn("scheduled refresh failed: %v", err)
		return
	}
	if refreshed {
		rs.logger.Info("scheduled refresh completed")
	}
}
