package model

// PendingStatus is the lifecycle state of a PendingItem.
type PendingStatus string

const (
	StatusOpen     PendingStatus = "open"
	StatusResolved PendingStatus = "resolved"
)

// Priority ranks a pending item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// PendingItem is one open-or-resolved anomaly, the unit of reconciliation.
// Tag, not ID, is its merge identity.
type PendingItem struct {
	ID             string        `gorm:"primaryKey;size:128" json:"id"`
	Tag            string        `gorm:"size:256;index" json:"tag"`
	Description    string        `json:"description"`
	Priority       Priority      `gorm:"size:16;not null" json:"priority"`
	Area           string        `gorm:"size:128" json:"area"`
	Discipline     string        `gorm:"size:64" json:"discipline"`
	Status         PendingStatus `gorm:"size:16;not null;index" json:"status"`
	Operator       string        `gorm:"size:128" json:"operator"`
	Crew           Crew          `gorm:"size:1" json:"crew"`
	ResolvedBy     string        `gorm:"size:128" json:"resolvedBy,omitempty"`
	ResolvedByCrew Crew          `gorm:"size:1" json:"resolvedByCrew,omitempty"`
	Timestamp      int64         `gorm:"not null" json:"timestamp"`
	Synced         bool          `gorm:"not null;index" json:"synced"`
	Comments       []Comment     `gorm:"serializer:json" json:"comments,omitempty"`
	Position       int           `gorm:"not null" json:"-"`
}

func (p PendingItem) IsSynced() bool { return p.Synced }

// Resolved reports whether the item reached its terminal state.
func (p PendingItem) Resolved() bool { return p.Status == StatusResolved }
