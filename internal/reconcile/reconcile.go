// Package reconcile converges a remote and a local PendingItem collection into
// one collection keyed by normalized tag.
//
// Precedence for a tag present on both sides, first match wins:
//
//  1. the local record is resolved (resolution never regresses)
//  2. the local record is unsynced (the remote has not seen it yet)
//  3. the local record is strictly newer
//  4. otherwise the remote record is kept
//
// A winning record replaces the other in full; only the append-only comment
// list of the loser is carried over. Records without a tag are never merged;
// local ones pass through untouched.
package reconcile

import (
	log "github.com/sirupsen/logrus"

	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/parse"
	"fieldsync-backend/internal/pending"
)

// Key returns the merge identity of a pending item.
func Key(item model.PendingItem) string {
	return parse.NormalizeTag(item.Tag)
}

// Reconcile merges local into remote. Neither input is modified. Output order
// is remote key order, then keys first seen locally, then untagged local
// records.
//
// Local records sharing a key are collapsed first, so each key is decided by
// a single comparison against the remote baseline. That keeps
// Reconcile(R, Reconcile(R, L)) == Reconcile(R, L) even when the local
// collection carries duplicates.
func Reconcile(remote, local []model.PendingItem) []model.PendingItem {
	merged := make(map[string]model.PendingItem, len(remote)+len(local))
	order := make([]string, 0, len(remote)+len(local))

	for _, r := range remote {
		key := Key(r)
		if key == "" {
			continue
		}
		if _, seen := merged[key]; !seen {
			order = append(order, key)
		}
		merged[key] = r
	}

	localBest, localOrder, untagged := collapseLocal(local)

	for _, key := range localOrder {
		l := localBest[key]
		m, exists := merged[key]
		if !exists {
			order = append(order, key)
			merged[key] = l
			continue
		}
		if LocalWins(l, m) {
			merged[key] = carryComments(l, m)
		} else {
			merged[key] = carryComments(m, l)
		}
	}

	out := make([]model.PendingItem, 0, len(order)+len(untagged))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return append(out, untagged...)
}

// LocalWins applies the precedence rules to a local record l and the current
// holder m of the same key. The order of the checks matters: a resolved local
// record wins even when it is older than an open remote one.
func LocalWins(l, m model.PendingItem) bool {
	switch {
	case l.Status == model.StatusResolved:
		return true
	case !l.Synced:
		return true
	case l.Timestamp > m.Timestamp:
		return true
	default:
		return false
	}
}

// UniqueIDs gives every record a distinct ID. Records are keyed by tag but
// stored by ID, and the remote can hand back one id for several tags. The
// first holder of an ID keeps it; later ones take cloud-<TAG>, or a fresh id
// when that is taken too. items is not modified.
func UniqueIDs(items []model.PendingItem) []model.PendingItem {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}
	if len(seen) == len(items) {
		return items
	}

	used := make(map[string]struct{}, len(items))
	out := make([]model.PendingItem, len(items))
	for i, it := range items {
		if _, dup := used[it.ID]; dup {
			id := pending.NewID()
			if key := Key(it); key != "" {
				if _, taken := seen["cloud-"+key]; !taken {
					id = "cloud-" + key
				}
			}
			log.WithFields(log.Fields{"id": it.ID, "tag": it.Tag, "newID": id}).Warn("duplicate pending item id; re-keyed")
			it.ID = id
			seen[id] = struct{}{}
		}
		used[it.ID] = struct{}{}
		out[i] = it
	}
	return out
}

// collapseLocal picks one local record per key. A later record displaces an
// earlier one under LocalWins, except that an open record never displaces a
// resolved one.
func collapseLocal(local []model.PendingItem) (map[string]model.PendingItem, []string, []model.PendingItem) {
	best := make(map[string]model.PendingItem, len(local))
	var order []string
	var untagged []model.PendingItem

	for _, l := range local {
		key := Key(l)
		if key == "" {
			untagged = append(untagged, l)
			continue
		}
		prev, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = l
			continue
		}
		if prev.Resolved() && !l.Resolved() {
			best[key] = carryComments(prev, l)
			continue
		}
		if LocalWins(l, prev) {
			best[key] = carryComments(l, prev)
		} else {
			best[key] = carryComments(prev, l)
		}
	}
	return best, order, untagged
}

// carryComments appends the loser's comments that the kept record lacks.
// Comments are append-only and are not carried by the remote contract.
func carryComments(kept, loser model.PendingItem) model.PendingItem {
	if len(loser.Comments) == 0 {
		return kept
	}
	have := make(map[string]struct{}, len(kept.Comments))
	for _, c := range kept.Comments {
		have[c.ID] = struct{}{}
	}
	var extra []model.Comment
	for _, c := range loser.Comments {
		if _, ok := have[c.ID]; !ok {
			extra = append(extra, c)
		}
	}
	if len(extra) == 0 {
		return kept
	}
	comments := make([]model.Comment, 0, len(kept.Comments)+len(extra))
	comments = append(comments, kept.Comments...)
	kept.Comments = append(comments, extra...)
	return kept
}
