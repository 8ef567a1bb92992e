package app

import (
	"context"
	"time"

	"quiz-orchestrator/internal/telemetry"
)

const (
	DefaultSessionTimeout = 2 * time.Hour
	DefaultSweepInterval  = 5 * time.Minute
)

// Reaper evicts sessions that have been idle longer than the timeout.
type Reaper struct {
	router   *Router
	timeout  time.Duration
	interval time.Duration
}

func NewReaper(router *Router, timeout, interval time.Duration) *Reaper {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reaper{router: router, timeout: timeout, interval: interval}
}

// Run sweeps on every tick until ctx is canceled. Sweeps run on the router's
// event loop so they never interleave with event handling.
func (rp *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rp.router.post(func() {
				rp.router.sweep(rp.router.now(), rp.timeout)
			})
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep queues one sweep against the given time.
func (rp *Reaper) Sweep(now time.Time) {
	rp.router.post(func() {
		rp.router.sweep(now, rp.timeout)
	})
}

// sweep deletes every session idle for strictly longer than timeout and
// refreshes external leases of the rest.
func (r *Router) sweep(now time.Time, timeout time.Duration) {
	var alive []string
	for _, s := range r.sessions.Sessions() {
		idle := now.Sub(s.LastActivity())
		if idle <= timeout {
			alive = append(alive, s.ID())
			continue
		}
		ctx, cancel := r.storageCtx()
		deleted := r.sessions.Delete(ctx, s.ID())
		cancel()
		if !deleted {
			continue
		}
		r.detach(s)
		telemetry.SessionsEvicted.Inc()
		r.log.Info("reaper: session evicted",
			"session", s.ID(),
			"participants", len(s.participants),
			"idle", idle.Round(time.Second),
		)
	}
	telemetry.SessionsActive.Set(float64(r.sessions.Len()))

	ka, ok := r.sessions.(KeepAliver)
	if !ok || len(alive) == 0 {
		return
	}
	r.async(func(ctx context.Context) func() {
		err := ka.KeepAlive(ctx, alive)
		return func() {
			if err != nil {
				r.log.Warn("reaper: refresh session leases failed", "sessions", len(alive), "error", err)
			}
		}
	})
}
