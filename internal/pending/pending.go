// Package pending holds the PendingItem lifecycle: open -> resolved, with no
// transition back out of resolved.
package pending

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"fieldsync-backend/internal/model"
	"fieldsync-backend/internal/parse"
)

var (
	ErrResolverRequired = errors.New("resolver name is required")
	ErrInvalidCrew      = errors.New("resolver crew must be one of A, B, C, D")
	ErrAlreadyResolved  = errors.New("pending item is already resolved")
	ErrEmptyComment     = errors.New("comment text is required")
)

const (
	defaultDiscipline    = "OPERATION"
	defaultCommentAuthor = "OPERATOR"
	failDescription      = "OUT OF SERVICE"
	warningDescription   = "ANOMALY / ATTENTION"
)

// NewID returns a time-ordered identifier for locally created records.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Resolve moves an open item to resolved. The resolver identity is validated
// before anything changes; item itself is never modified.
func Resolve(item model.PendingItem, resolvedBy string, crew model.Crew, now int64) (model.PendingItem, error) {
	name := strings.ToUpper(strings.TrimSpace(resolvedBy))
	if name == "" {
		return item, ErrResolverRequired
	}
	if !crew.Valid() {
		return item, ErrInvalidCrew
	}
	if item.Resolved() {
		return item, ErrAlreadyResolved
	}

	resolved := item
	resolved.Status = model.StatusResolved
	resolved.ResolvedBy = name
	resolved.ResolvedByCrew = crew
	resolved.Synced = false
	resolved.Timestamp = now
	return resolved, nil
}

// NewComment builds an append-only comment.
func NewComment(text, author string, now int64) (model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Comment{}, ErrEmptyComment
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = defaultCommentAuthor
	}
	return model.Comment{ID: NewID(), Text: text, Author: author, Timestamp: now}, nil
}

// AddComment appends a comment to a copy of item.
func AddComment(item model.PendingItem, text, author string, now int64) (model.PendingItem, error) {
	c, err := NewComment(text, author, now)
	if err != nil {
		return item, err
	}
	out := item
	out.Comments = append(append([]model.Comment(nil), item.Comments...), c)
	return out, nil
}

// FromChecklist derives one open pending item for every failed or warning
// checklist point in report.
func FromChecklist(report model.Report, now int64) []model.PendingItem {
	labels := make([]string, len(report.Items))
	for i, item := range report.Items {
		labels[i] = item.Label
	}

	var out []model.PendingItem
	for i, item := range report.Items {
		if !item.Status.Flagged() || parse.IsSection(item.Label) {
			continue
		}

		description := strings.TrimSpace(item.Observation)
		priority := model.PriorityMedium
		if item.Status == model.ItemFail {
			priority = model.PriorityHigh
			if description == "" {
				description = failDescription
			}
		} else if description == "" {
			description = warningDescription
		}

		discipline := strings.ToUpper(strings.TrimSpace(item.Discipline))
		if discipline == "" {
			discipline = defaultDiscipline
		}

		out = append(out, model.PendingItem{
			ID:          NewID(),
			Tag:         parse.DeriveTag(labels, i),
			Description: description,
			Priority:    priority,
			Area:        report.Area,
			Discipline:  discipline,
			Status:      model.StatusOpen,
			Operator:    report.Operator,
			Crew:        report.Crew,
			Timestamp:   now,
			Synced:      false,
		})
	}
	return out
}
