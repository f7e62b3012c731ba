package store

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fieldsync-backend/internal/model"
)

const insertBatchSize = 200

// Snapshot is the full local replica at one point in time.
type Snapshot struct {
	Reports      []model.Report
	PendingItems []model.PendingItem
}

// Store defines the local record store. Load never fails: a collection that
// cannot be read comes back empty. Writes replace a collection atomically.
//
// Lock guards a Load-modify-Save sequence. Every writer that rebuilds a
// collection from a Load must hold it from the Load through the Save; Load
// and the Save methods do not take it themselves.
type Store interface {
	sync.Locker
	Load(ctx context.Context) Snapshot
	Save(ctx context.Context, reports []model.Report, items []model.PendingItem) error
	SaveReports(ctx context.Context, reports []model.Report) error
	SavePendingItems(ctx context.Context, items []model.PendingItem) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Lock()   { s.mu.Lock() }
func (s *gormStore) Unlock() { s.mu.Unlock() }

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Load reads both collections in their stored order.
func (s *gormStore) Load(ctx context.Context) Snapshot {
	var snap Snapshot

	if err := s.db.WithContext(ctx).Order("position").Find(&snap.Reports).Error; err != nil {
		log.WithError(err).Error("failed to load reports; continuing with an empty collection")
		snap.Reports = nil
	}
	if err := s.db.WithContext(ctx).Order("position").Find(&snap.PendingItems).Error; err != nil {
		log.WithError(err).Error("failed to load pending items; continuing with an empty collection")
		snap.PendingItems = nil
	}
	return snap
}

// Save replaces both collections in a single transaction.
func (s *gormStore) Save(ctx context.Context, reports []model.Report, items []model.PendingItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceReports(tx, reports); err != nil {
			return err
		}
		return replacePendingItems(tx, items)
	})
}

// SaveReports replaces the Reports collection.
func (s *gormStore) SaveReports(ctx context.Context, reports []model.Report) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceReports(tx, reports)
	})
}

// SavePendingItems replaces the PendingItems collection.
func (s *gormStore) SavePendingItems(ctx context.Context, items []model.PendingItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replacePendingItems(tx, items)
	})
}

func replaceReports(tx *gorm.DB, reports []model.Report) error {
	if err := tx.Where("1 = 1").Delete(&model.Report{}).Error; err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	if len(reports) == 0 {
		return nil
	}
	rows := make([]model.Report, len(reports))
	for i, r := range reports {
		r.Position = i
		rows[i] = r
	}
	if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to write %d reports: %w", len(rows), err)
	}
	return nil
}

func replacePendingItems(tx *gorm.DB, items []model.PendingItem) error {
	if err := tx.Where("1 = 1").Delete(&model.PendingItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear pending items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]model.PendingItem, len(items))
	for i, it := range items {
		it.Position = i
		rows[i] = it
	}
	if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to write %d pending items: %w", len(rows), err)
	}
	return nil
}
