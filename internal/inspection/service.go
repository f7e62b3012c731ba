// Package inspection holds the write paths of the field app: checklist
// submission, resolution and comments. Every mutation is persisted before it
// returns and then asks for a refresh.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/pending"
	"fieldsync-backend/internal/store"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Requester receives "refresh requested" events.
type Requester interface {
	Request()
}

// NewReport is a checklist submission.
type NewReport struct {
	Area         string                `json:"area" binding:"required"`
	Operator     string                `json:"operator" binding:"required"`
	Crew         model.Crew            `json:"crew" binding:"required"`
	Shift        model.Shift           `json:"shift" binding:"required"`
	Items        []model.ChecklistItem `json:"items" binding:"required"`
	GeneralNotes string                `json:"generalNotes"`
}

// Counts summarizes the local replica for the status view.
type Counts struct {
	Reports         int `json:"reports"`
	Pending         int `json:"pending"`
	Open            int `json:"open"`
	Resolved        int `json:"resolved"`
	UnsyncedReports int `json:"unsyncedReports"`
	UnsyncedPending int `json:"unsyncedPending"`
}

// Service serializes mutations of the local replica through the store's write
// lock, which the refresh cycle takes for its own persist steps.
type Service struct {
	store   store.Store
	areas   map[string]struct{}
	refresh Requester
	now     func() time.Time
}

// NewService creates the service. refresh may be nil.
func NewService(s store.Store, areas []string, refresh Requester) *Service {
	set := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		set[a] = struct{}{}
	}
	return &Service{store: s, areas: set, refresh: refresh, now: time.Now}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Service) requestRefresh() {
	if s.refresh != nil {
		s.refresh.Request()
	}
}

// SubmitReport validates and stores a new report together with the pending
// items its failed and warning points raise.
func (s *Service) SubmitReport(ctx context.Context, in NewReport) (model.Report, []model.PendingItem, error) {
	report, err := s.buildReport(in)
	if err != nil {
		return model.Report{}, nil, err
	}
	derived := pending.FromChecklist(report, report.Timestamp)

	s.store.Lock()
	defer s.store.Unlock()

	snap := s.store.Load(ctx)
	reports := append(snap.Reports, report)
	items := append(snap.PendingItems, derived...)
	if err := s.store.Save(ctx, reports, items); err != nil {
		return model.Report{}, nil, fmt.Errorf("failed to store report: %w", err)
	}

	log.WithFields(log.Fields{
		"report":  report.ID,
		"area":    report.Area,
		"pending": len(derived),
	}).Info("report submitted")
	s.requestRefresh()
	return report, derived, nil
}

func (s *Service) buildReport(in NewReport) (model.Report, error) {
	area := strings.TrimSpace(in.Area)
	if _, ok := s.areas[area]; !ok {
		return model.Report{}, fmt.Errorf("%w: unknown area %q", ErrInvalidInput, in.Area)
	}
	operator := strings.ToUpper(strings.TrimSpace(in.Operator))
	if operator == "" {
		return model.Report{}, fmt.Errorf("%w: operator is required", ErrInvalidInput)
	}
	if !in.Crew.Valid() {
		return model.Report{}, fmt.Errorf("%w: unknown crew %q", ErrInvalidInput, in.Crew)
	}
	if !in.Shift.Valid() {
		return model.Report{}, fmt.Errorf("%w: unknown shift %q", ErrInvalidInput, in.Shift)
	}
	if len(in.Items) == 0 {
		return model.Report{}, fmt.Errorf("%w: a report needs at least one checklist item", ErrInvalidInput)
	}

	items := make([]model.ChecklistItem, len(in.Items))
	for i, item := range in.Items {
		if !item.Status.Valid() {
			return model.Report{}, fmt.Errorf("%w: item %d has unknown status %q", ErrInvalidInput, i, item.Status)
		}
		items[i] = model.ChecklistItem{
			Label:       strings.TrimSpace(item.Label),
			Status:      item.Status,
			Observation: strings.TrimSpace(item.Observation),
			Discipline:  strings.TrimSpace(item.Discipline),
		}
	}

	return model.Report{
		ID:           pending.NewID(),
		Timestamp:    s.nowMillis(),
		Area:         area,
		Operator:     operator,
		Crew:         in.Crew,
		Shift:        in.Shift,
		Items:        items,
		GeneralNotes: strings.TrimSpace(in.GeneralNotes),
		Synced:       false,
	}, nil
}

// ResolvePending closes the pending item with the given id. The resolver is
// validated before anything is written.
func (s *Service) ResolvePending(ctx context.Context, id, resolvedBy string, crew model.Crew) (model.PendingItem, error) {
	s.store.Lock()
	defer s.store.Unlock()

	snap := s.store.Load(ctx)
	idx := indexPending(snap.PendingItems, id)
	if idx < 0 {
		return model.PendingItem{}, fmt.Errorf("%w: pending item %q", ErrNotFound, id)
	}

	resolved, err := pending.Resolve(snap.PendingItems[idx], resolvedBy, crew, s.nowMillis())
	if err != nil {
		return snap.PendingItems[idx], err
	}

	items := append([]model.PendingItem(nil), snap.PendingItems...)
	items[idx] = resolved
	if err := s.store.SavePendingItems(ctx, items); err != nil {
		return model.PendingItem{}, fmt.Errorf("failed to store resolution: %w", err)
	}

	log.WithFields(log.Fields{"pending": id, "tag": resolved.Tag, "resolvedBy": resolved.ResolvedBy}).Info("pending item resolved")
	s.requestRefresh()
	return resolved, nil
}

// CommentPending appends a comment to a pending item. Comments are local
// annotations and do not mark the item dirty.
func (s *Service) CommentPending(ctx context.Context, id, text, author string) (model.PendingItem, error) {
	s.store.Lock()
	defer s.store.Unlock()

	snap := s.store.Load(ctx)
	idx := indexPending(snap.PendingItems, id)
	if idx < 0 {
		return model.PendingItem{}, fmt.Errorf("%w: pending item %q", ErrNotFound, id)
	}

	updated, err := pending.AddComment(snap.PendingItems[idx], text, author, s.nowMillis())
	if err != nil {
		return model.PendingItem{}, err
	}

	items := append([]model.PendingItem(nil), snap.PendingItems...)
	items[idx] = updated
	if err := s.store.SavePendingItems(ctx, items); err != nil {
		return model.PendingItem{}, fmt.Errorf("failed to store comment: %w", err)
	}
	return updated, nil
}

// CommentReportItem appends a comment to the checklist item at index.
func (s *Service) CommentReportItem(ctx context.Context, reportID string, index int, text, author string) (model.Report, error) {
	s.store.Lock()
	defer s.store.Unlock()

	snap := s.store.Load(ctx)
	idx := -1
	for i, r := range snap.Reports {
		if r.ID == reportID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Report{}, fmt.Errorf("%w: report %q", ErrNotFound, reportID)
	}
	report := snap.Reports[idx]
	if index < 0 || index >= len(report.Items) {
		return model.Report{}, fmt.Errorf("%w: report %q has no item %d", ErrNotFound, reportID, index)
	}

	c, err := pending.NewComment(text, author, s.nowMillis())
	if err != nil {
		return model.Report{}, err
	}

	items := append([]model.ChecklistItem(nil), report.Items...)
	item := items[index]
	item.Comments = append(append([]model.Comment(nil), item.Comments...), c)
	items[index] = item
	report.Items = items

	reports := append([]model.Report(nil), snap.Reports...)
	reports[idx] = report
	if err := s.store.SaveReports(ctx, reports); err != nil {
		return model.Report{}, fmt.Errorf("failed to store comment: %w", err)
	}
	return report, nil
}

// Reports returns all reports, newest first.
func (s *Service) Reports(ctx context.Context) []model.Report {
	reports := s.store.Load(ctx).Reports
	out := make([]model.Report, 0, len(reports))
	for i := len(reports) - 1; i >= 0; i-- {
		out = append(out, reports[i])
	}
	return out
}

// PendingItems returns the pending items, optionally filtered by status.
func (s *Service) PendingItems(ctx context.Context, status string) ([]model.PendingItem, error) {
	items := s.store.Load(ctx).PendingItems
	if status == "" {
		return items, nil
	}
	want := model.PendingStatus(strings.ToLower(status))
	if want != model.StatusOpen && want != model.StatusResolved {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	out := make([]model.PendingItem, 0, len(items))
	for _, it := range items {
		if it.Status == want {
			out = append(out, it)
		}
	}
	return out, nil
}

// Counts summarizes the replica.
func (s *Service) Counts(ctx context.Context) Counts {
	snap := s.store.Load(ctx)
	c := Counts{
		Reports:         len(snap.Reports),
		Pending:         len(snap.PendingItems),
		UnsyncedReports: len(model.UnsyncedReports(snap.Reports)),
		UnsyncedPending: len(model.UnsyncedPendingItems(snap.PendingItems)),
	}
	for _, it := range snap.PendingItems {
		if it.Resolved() {
			c.Resolved++
		} else {
			c.Open++
		}
	}
	return c
}

func indexPending(items []model.PendingItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
