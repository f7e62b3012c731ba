// Package refresh turns "refresh requested" events into rate-limited,
// non-overlapping refresh cycles.
package refresh

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"fieldsync-backend/config"
	"fieldsync-backend/internal/syncer"
)

// Refresher runs one refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) syncer.Result
}

// Worker serves refresh requests and the periodic timer from one goroutine.
type Worker struct {
	refresher Refresher
	periodic  bool
	interval  time.Duration
	limiter   *rate.Limiter
	requests  chan struct{}

	mu      sync.RWMutex
	last    syncer.Result
	hasLast bool
	hooks   []func(syncer.Result)
}

// NewWorker creates a worker. Requests coalesce: at most one is pending.
func NewWorker(r Refresher, cfg config.SyncConfig) *Worker {
	gap := cfg.MinGap
	limit := rate.Inf
	if gap > 0 {
		limit = rate.Every(gap)
	}
	return &Worker{
		refresher: r,
		periodic:  cfg.Enabled && cfg.Interval > 0,
		interval:  cfg.Interval,
		limiter:   rate.NewLimiter(limit, 1),
		requests:  make(chan struct{}, 1),
	}
}

// Request asks for a refresh without blocking. A request made while one is
// already pending is dropped.
func (w *Worker) Request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

// Requests returns the request channel for testing.
func (w *Worker) Requests() chan struct{} {
	return w.requests
}

// OnComplete registers fn to run after every completed cycle.
func (w *Worker) OnComplete(fn func(syncer.Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, fn)
}

// Last returns the most recent completed cycle.
func (w *Worker) Last() (syncer.Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.hasLast
}

// Start launches the worker goroutine. It stops when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// RunNow runs a cycle on the caller's goroutine, bypassing the rate limit.
func (w *Worker) RunNow(ctx context.Context) syncer.Result {
	return w.run(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	log.WithFields(log.Fields{"periodic": w.periodic, "interval": w.interval}).Info("Refresh worker started")

	var tick <-chan time.Time
	var timer *time.Timer
	if w.periodic {
		timer = time.NewTimer(w.interval)
		defer timer.Stop()
		tick = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("Refresh worker shutting down.")
			return
		case <-w.requests:
		case <-tick:
			timer.Reset(w.interval)
		}
		if err := w.limiter.Wait(ctx); err != nil {
			log.Info("Refresh worker shutting down.")
			return
		}
		w.run(ctx)
	}
}

func (w *Worker) run(ctx context.Context) syncer.Result {
	res := w.refresher.Refresh(ctx)
	if res.Skipped {
		return res
	}

	w.mu.Lock()
	w.last = res
	w.hasLast = true
	hooks := append(([]func(syncer.Result))(nil), w.hooks...)
	w.mu.Unlock()

	for _, fn := range hooks {
		fn(res)
	}
	return res
}
