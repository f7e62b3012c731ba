// Package syncer runs refresh cycles: push the dirty set, pull the remote
// collection, reconcile, persist, and push any residual once.
package syncer

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"fieldsync-backend/internal/metrics"
	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/reconcile"
	"fieldsync-backend/internal/remote"
	"fieldsync-backend/internal/store"
)

// Source values reported by a refresh.
const (
	SourceCloud = "cloud"
	SourceLocal = "local"
)

// Remote is the part of the remote client a refresh needs.
type Remote interface {
	Push(ctx context.Context, reports []model.Report, pending []model.PendingItem) remote.Ack
	PullItems(ctx context.Context) ([]model.PendingItem, bool)
	PullStats(ctx context.Context) *model.Stats
}

// Result describes one refresh cycle.
type Result struct {
	Skipped       bool         `json:"skipped,omitempty"`
	Source        string       `json:"source"`
	Stats         *model.Stats `json:"stats,omitempty"`
	PushAttempted bool         `json:"pushAttempted"`
	PushAck       remote.Ack   `json:"pushAck"`
	PushedReports int          `json:"pushedReports"`
	PushedPending int          `json:"pushedPending"`
	Merged        int          `json:"merged"`
	Residual      int          `json:"residual"`
	Error         string       `json:"error,omitempty"`
	StartedAt     time.Time    `json:"startedAt"`
	FinishedAt    time.Time    `json:"finishedAt"`
}

// Controller is the Lifecycle Controller. It holds no state besides the
// in-flight guard; the store is the source of truth.
type Controller struct {
	store    store.Store
	remote   Remote
	inFlight atomic.Bool
	now      func() time.Time
}

// NewController wires a controller to its store and remote.
func NewController(s store.Store, r Remote) *Controller {
	return &Controller{store: s, remote: r, now: time.Now}
}

// InFlight reports whether a refresh is running.
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Refresh runs one cycle. A call made while another cycle is running returns
// immediately with Skipped set.
func (c *Controller) Refresh(ctx context.Context) Result {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		log.Debug("refresh already in flight; skipping")
		return Result{Skipped: true, Source: SourceLocal}
	}
	defer c.inFlight.Store(false)
	metrics.RefreshInFlight.Set(1)
	defer metrics.RefreshInFlight.Set(0)

	res := c.refresh(ctx)

	outcome := metrics.OutcomeSuccess
	if res.Source != SourceCloud {
		outcome = metrics.OutcomeLocal
	} else {
		metrics.LastRefreshSeconds.Set(metrics.NowUnixSeconds())
	}
	metrics.RefreshTotal.WithLabelValues(outcome).Inc()
	metrics.RefreshDurationSeconds.WithLabelValues(outcome).Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	return res
}

func (c *Controller) refresh(ctx context.Context) (res Result) {
	res = Result{Source: SourceLocal, StartedAt: c.now()}
	defer func() { res.FinishedAt = c.now() }()

	snap := c.store.Load(ctx)
	dirtyReports := model.UnsyncedReports(snap.Reports)
	dirtyPending := model.UnsyncedPendingItems(snap.PendingItems)

	pushed := false
	if len(dirtyReports) > 0 || len(dirtyPending) > 0 {
		res.PushAttempted = true
		res.PushAck = c.remote.Push(ctx, dirtyReports, dirtyPending)
		pushed = res.PushAck.Success
		if pushed {
			res.PushedReports = len(dirtyReports)
			res.PushedPending = len(dirtyPending)
		} else {
			log.WithField("message", res.PushAck.Message).Warn("push not dispatched; continuing with pull")
		}
	}

	remoteItems, ok := c.remote.PullItems(ctx)
	res.Stats = c.remote.PullStats(ctx)
	if !ok {
		log.Warn("pull failed; local collections left untouched")
		c.observeDirty(dirtyReports, dirtyPending)
		return res
	}

	var pushedReports []model.Report
	var pushedPending []model.PendingItem
	if pushed {
		pushedReports, pushedPending = dirtyReports, dirtyPending
	}
	reports, merged, err := c.persist(ctx, remoteItems, pushedReports, pushedPending)
	if err != nil {
		log.WithError(err).Error("failed to persist reconciled collections")
		res.Error = err.Error()
		c.observeDirty(dirtyReports, dirtyPending)
		return res
	}
	res.Merged = len(merged)
	res.Source = SourceCloud

	residual := model.UnsyncedPendingItems(merged)
	residualReports := model.UnsyncedReports(reports)
	res.Residual = len(residual)
	if len(residual) > 0 || len(residualReports) > 0 {
		ack := c.remote.Push(ctx, residualReports, residual)
		if ack.Success {
			res.PushedReports += len(residualReports)
			res.PushedPending += len(residual)
			reports, merged, err = c.markSynced(ctx, residualReports, residual)
			if err != nil {
				log.WithError(err).Error("failed to persist residual sync flags")
				res.Error = err.Error()
			}
		} else {
			log.WithFields(log.Fields{"residual": len(residual), "residualReports": len(residualReports), "message": ack.Message}).
				Warn("residual push not dispatched; records stay dirty")
		}
	}

	c.observeDirty(model.UnsyncedReports(reports), model.UnsyncedPendingItems(merged))
	log.WithFields(log.Fields{
		"pushedReports": res.PushedReports,
		"pushedPending": res.PushedPending,
		"merged":        res.Merged,
		"residual":      res.Residual,
	}).Info("refresh complete")
	return res
}

// persist reconciles the pulled items against a fresh read of the store and
// saves the result, all under the store's write lock. Records written while
// the cycle was on the network are part of that read, so they survive; only
// the pushed versions are flipped to synced.
func (c *Controller) persist(ctx context.Context, remoteItems []model.PendingItem, pushedReports []model.Report, pushedPending []model.PendingItem) ([]model.Report, []model.PendingItem, error) {
	c.store.Lock()
	defer c.store.Unlock()

	fresh := c.store.Load(ctx)
	merged := reconcile.UniqueIDs(reconcile.Reconcile(remoteItems, fresh.PendingItems))
	reports := markReportsSynced(fresh.Reports, pushedReports)
	merged = markPendingSynced(merged, pushedPending)
	if err := c.store.Save(ctx, reports, merged); err != nil {
		return nil, nil, err
	}
	return reports, merged, nil
}

// markSynced flips the pushed records in the current store contents.
func (c *Controller) markSynced(ctx context.Context, pushedReports []model.Report, pushedPending []model.PendingItem) ([]model.Report, []model.PendingItem, error) {
	c.store.Lock()
	defer c.store.Unlock()

	fresh := c.store.Load(ctx)
	reports := markReportsSynced(fresh.Reports, pushedReports)
	items := markPendingSynced(fresh.PendingItems, pushedPending)
	if err := c.store.Save(ctx, reports, items); err != nil {
		return fresh.Reports, fresh.PendingItems, err
	}
	return reports, items, nil
}

func (c *Controller) observeDirty(reports []model.Report, pending []model.PendingItem) {
	metrics.Unsynced.WithLabelValues("reports").Set(float64(len(reports)))
	metrics.Unsynced.WithLabelValues("pending_items").Set(float64(len(pending)))
}

// markReportsSynced flips the reports present in pushed, matched by ID.
func markReportsSynced(reports, pushed []model.Report) []model.Report {
	if len(pushed) == 0 {
		return reports
	}
	ids := make(map[string]struct{}, len(pushed))
	for _, r := range pushed {
		ids[r.ID] = struct{}{}
	}
	out := make([]model.Report, len(reports))
	for i, r := range reports {
		if _, ok := ids[r.ID]; ok {
			r.Synced = true
		}
		out[i] = r
	}
	return out
}

type pushedKey struct {
	id        string
	timestamp int64
	status    model.PendingStatus
}

// markPendingSynced flips the items whose (ID, Timestamp, Status) equals a
// pushed record. A record edited after the push snapshot keeps its dirty flag.
func markPendingSynced(items, pushed []model.PendingItem) []model.PendingItem {
	if len(pushed) == 0 {
		return items
	}
	keys := make(map[pushedKey]struct{}, len(pushed))
	for _, p := range pushed {
		keys[pushedKey{p.ID, p.Timestamp, p.Status}] = struct{}{}
	}
	out := make([]model.PendingItem, len(items))
	for i, it := range items {
		if _, ok := keys[pushedKey{it.ID, it.Timestamp, it.Status}]; ok {
			it.Synced = true
		}
		out[i] = it
	}
	return out
}
