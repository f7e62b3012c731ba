package remote

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/parse"
)

// ProtocolVersion is sent with every push and accepted as a ping marker.
const ProtocolVersion = "1.3_stable"

const (
	placeholder       = "-"
	defaultDiscipline = "OPERATION"
	defaultOperator   = "SYSTEM"
	defaultCrew       = model.CrewA
)

// Payload is the body of a push.
type Payload struct {
	Action    string          `json:"action"`
	Version   string          `json:"version"`
	PeriodKey string          `json:"periodKey"`
	Reports   []ReportRecord  `json:"reports"`
	Pending   []PendingRecord `json:"pending"`
}

// ReportRecord is the remote shape of a Report.
type ReportRecord struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Area             string `json:"area"`
	Operator         string `json:"operator"`
	Crew             string `json:"crew"`
	Shift            string `json:"shift"`
	FailedItemLabels string `json:"failedItemLabels"`
	Notes            string `json:"notes"`
}

// PendingRecord is the remote shape of a PendingItem, used in both
// directions.
type PendingRecord struct {
	ID             string `json:"id"`
	Tag            string `json:"tag"`
	Area           string `json:"area"`
	Discipline     string `json:"discipline"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	OriginOperator string `json:"originOperator"`
	OriginCrew     string `json:"originCrew"`
	ResolvedBy     string `json:"resolvedBy"`
	ResolvedByCrew string `json:"resolvedByCrew"`
	Date           string `json:"date"`
}

// BuildPayload converts local records to the push body. Times are rendered in
// loc; now selects the period key.
func BuildPayload(reports []model.Report, pending []model.PendingItem, loc *time.Location, now time.Time) Payload {
	p := Payload{
		Action:    "sync",
		Version:   ProtocolVersion,
		PeriodKey: parse.PeriodKey(now.In(loc)),
		Reports:   make([]ReportRecord, 0, len(reports)),
		Pending:   make([]PendingRecord, 0, len(pending)),
	}
	for _, r := range reports {
		p.Reports = append(p.Reports, toReportRecord(r, loc))
	}
	for _, it := range pending {
		p.Pending = append(p.Pending, toPendingRecord(it, loc))
	}
	return p
}

func toReportRecord(r model.Report, loc *time.Location) ReportRecord {
	var failed []string
	for _, item := range r.Items {
		if item.Status.Flagged() {
			failed = append(failed, parse.Sanitize(item.Label))
		}
	}
	return ReportRecord{
		ID:               r.ID,
		Date:             parse.FormatDate(r.Timestamp, loc),
		Time:             parse.FormatClock(r.Timestamp, loc),
		Area:             r.Area,
		Operator:         parse.Sanitize(r.Operator),
		Crew:             string(r.Crew),
		Shift:            parse.Sanitize(string(r.Shift)),
		FailedItemLabels: strings.Join(failed, ", "),
		Notes:            parse.Sanitize(r.GeneralNotes),
	}
}

func toPendingRecord(it model.PendingItem, loc *time.Location) PendingRecord {
	return PendingRecord{
		ID:             it.ID,
		Tag:            parse.Sanitize(it.Tag),
		Area:           it.Area,
		Discipline:     parse.Sanitize(it.Discipline),
		Description:    parse.Sanitize(it.Description),
		Priority:       parse.Sanitize(string(it.Priority)),
		Status:         parse.Sanitize(string(it.Status)),
		OriginOperator: parse.Sanitize(it.Operator),
		OriginCrew:     string(it.Crew),
		ResolvedBy:     orPlaceholder(parse.Sanitize(it.ResolvedBy)),
		ResolvedByCrew: orPlaceholder(parse.Sanitize(string(it.ResolvedByCrew))),
		Date:           parse.FormatDateTime(it.Timestamp, loc),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// FromRemote translates a pulled record into the local shape. ok is false for
// records without a usable tag.
func FromRemote(rec PendingRecord, loc *time.Location) (model.PendingItem, bool) {
	tag := parse.NormalizeTag(rec.Tag)
	if tag == "" {
		return model.PendingItem{}, false
	}

	item := model.PendingItem{
		ID:          strings.TrimSpace(rec.ID),
		Tag:         tag,
		Area:        strings.TrimSpace(rec.Area),
		Description: parse.Sanitize(strings.TrimSpace(rec.Description)),
		Priority:    translatePriority(rec.Priority),
		Discipline:  strings.ToUpper(strings.TrimSpace(rec.Discipline)),
		Status:      translateStatus(rec.Status),
		Operator:    strings.TrimSpace(rec.OriginOperator),
		Crew:        model.Crew(strings.ToUpper(strings.TrimSpace(rec.OriginCrew))),
		Synced:      true,
	}
	if item.ID == "" {
		item.ID = "cloud-" + tag
	}
	if item.Discipline == "" {
		item.Discipline = defaultDiscipline
	}
	if item.Operator == "" {
		item.Operator = defaultOperator
	}
	if !item.Crew.Valid() {
		item.Crew = defaultCrew
	}

	if item.Resolved() {
		item.ResolvedBy = dropPlaceholder(rec.ResolvedBy)
		item.ResolvedByCrew = model.Crew(strings.ToUpper(dropPlaceholder(rec.ResolvedByCrew)))
		if item.ResolvedBy == "" {
			item.ResolvedBy = defaultOperator
		}
	}

	if ts, err := parse.ParseDateTime(rec.Date, loc); err == nil {
		item.Timestamp = ts
	} else if strings.TrimSpace(rec.Date) != "" && rec.Date != placeholder {
		log.WithFields(log.Fields{"tag": tag, "date": rec.Date}).Debug("unparseable remote date; using 0")
	}
	return item, true
}

func translateStatus(raw string) model.PendingStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RESOLVED", "OK", "CLOSED":
		return model.StatusResolved
	default:
		return model.StatusOpen
	}
}

func translatePriority(raw string) model.Priority {
	p := model.Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return model.PriorityLow
	}
	return p
}

func dropPlaceholder(s string) string {
	s = strings.TrimSpace(s)
	if s == placeholder {
		return ""
	}
	return s
}
