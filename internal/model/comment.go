package model

// Comment is an append-only annotation on a PendingItem or ChecklistItem.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
}

// Stats holds the remote aggregate health counts. Display only.
type Stats struct {
	OK      int `json:"ok"`
	Warning int `json:"warning"`
	Fail    int `json:"fail"`
	NA      int `json:"na"`
	Total   int `json:"total"`
}

// SchemaMeta records the version of the local persisted layout.
type SchemaMeta struct {
	ID      int `gorm:"primaryKey"`
	Version int `gorm:"not null"`
}

func (SchemaMeta) TableName() string { return "schema_meta" }
