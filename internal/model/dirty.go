package model

// Syncable is any record carrying a synced flag.
type Syncable interface {
	IsSynced() bool
}

// Unsynced returns the records whose synced flag is false, preserving order.
// It is recomputed on every call.
func Unsynced[T Syncable](records []T) []T {
	var dirty []T
	for _, r := range records {
		if !r.IsSynced() {
			dirty = append(dirty, r)
		}
	}
	return dirty
}

// UnsyncedReports is the dirty set of the Reports collection.
func UnsyncedReports(reports []Report) []Report {
	return Unsynced(reports)
}

// UnsyncedPendingItems is the dirty set of the PendingItems collection.
func UnsyncedPendingItems(items []PendingItem) []PendingItem {
	return Unsynced(items)
}
