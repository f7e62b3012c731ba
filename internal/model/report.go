package model

// Crew identifies one of the four operating crews.
type Crew string

const (
	CrewA Crew = "A"
	CrewB Crew = "B"
	CrewC Crew = "C"
	CrewD Crew = "D"
)

// Valid reports whether c is one of the known crews.
func (c Crew) Valid() bool {
	switch c {
	case CrewA, CrewB, CrewC, CrewD:
		return true
	}
	return false
}

// Shift is one of the three operating windows.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

// Valid reports whether s is one of the known shifts.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// ItemStatus is the outcome of one inspected checklist point.
type ItemStatus string

const (
	ItemOK      ItemStatus = "ok"
	ItemFail    ItemStatus = "fail"
	ItemStandby ItemStatus = "standby"
	ItemWarning ItemStatus = "warning"
)

// Valid reports whether s is a known checklist status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemOK, ItemFail, ItemStandby, ItemWarning:
		return true
	}
	return false
}

// Flagged reports whether the status raises a pending item.
func (s ItemStatus) Flagged() bool {
	return s == ItemFail || s == ItemWarning
}

// ChecklistItem is one inspected point within a Report.
type ChecklistItem struct {
	Label       string     `json:"label"`
	Status      ItemStatus `json:"status"`
	Observation string     `json:"observation,omitempty"`
	Discipline  string     `json:"discipline,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
}

// Report is one inspection pass over one area at one point in time.
// Apart from Synced and item comments it is immutable after creation.
type Report struct {
	ID           string          `gorm:"primaryKey;size:64" json:"id"`
	Timestamp    int64           `gorm:"not null;index" json:"timestamp"`
	Area         string          `gorm:"size:128;not null" json:"area"`
	Operator     string          `gorm:"size:128;not null" json:"operator"`
	Crew         Crew            `gorm:"size:1;not null" json:"crew"`
	Shift        Shift           `gorm:"size:16;not null" json:"shift"`
	Items        []ChecklistItem `gorm:"serializer:json" json:"items"`
	GeneralNotes string          `json:"generalNotes"`
	Synced       bool            `gorm:"not null;index" json:"synced"`
	Position     int             `gorm:"not null" json:"-"`
}

func (r Report) IsSynced() bool { return r.Synced }
