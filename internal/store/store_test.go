package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldsync-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore opens a private in-memory database with the store tables.
func newSQLiteStore(t *testing.T, name string) Store {
	testDB, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(&model.Report{}, &model.PendingItem{}))
	return NewGormStore(testDB)
}

func sampleReports() []model.Report {
	return []model.Report{
		{
			ID: "r2", Timestamp: 200, Area: "BOMBEAMENTO", Operator: "ANA", Crew: model.CrewA, Shift: model.ShiftNight,
			Items: []model.ChecklistItem{
				{Label: "BOMBA 01", Status: model.ItemFail, Comments: []model.Comment{{ID: "c1", Text: "NOISE"}}},
			},
		},
		{ID: "r1", Timestamp: 100, Area: "DFP 2", Operator: "JOAO", Crew: model.CrewB, Shift: model.ShiftMorning, Synced: true},
	}
}

func samplePending() []model.PendingItem {
	return []model.PendingItem{
		{ID: "p2", Tag: "BOMBA 01", Priority: model.PriorityHigh, Status: model.StatusOpen, Timestamp: 200},
		{
			ID: "p1", Tag: "V-22", Priority: model.PriorityLow, Status: model.StatusResolved,
			ResolvedBy: "ANA", ResolvedByCrew: model.CrewC, Timestamp: 100, Synced: true,
			Comments: []model.Comment{{ID: "c9", Text: "DONE", Author: "ANA", Timestamp: 150}},
		},
	}
}

func TestGormStore_SaveAndLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "save_load")

	require.NoError(t, s.Save(ctx, sampleReports(), samplePending()))

	snap := s.Load(ctx)
	require.Len(t, snap.Reports, 2)
	require.Len(t, snap.PendingItems, 2)

	assert.Equal(t, "r2", snap.Reports[0].ID)
	assert.Equal(t, "r1", snap.Reports[1].ID)
	assert.Equal(t, "NOISE", snap.Reports[0].Items[0].Comments[0].Text)
	assert.True(t, snap.Reports[1].Synced)

	assert.Equal(t, "p2", snap.PendingItems[0].ID)
	assert.Equal(t, "p1", snap.PendingItems[1].ID)
	assert.Equal(t, model.StatusResolved, snap.PendingItems[1].Status)
	assert.Equal(t, "ANA", snap.PendingItems[1].ResolvedBy)
	assert.Equal(t, []model.Comment{{ID: "c9", Text: "DONE", Author: "ANA", Timestamp: 150}}, snap.PendingItems[1].Comments)
}

func TestGormStore_SaveReplacesCollections(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "save_replace")

	require.NoError(t, s.Save(ctx, sampleReports(), samplePending()))
	require.NoError(t, s.SavePendingItems(ctx, samplePending()[:1]))

	snap := s.Load(ctx)
	assert.Len(t, snap.Reports, 2, "reports are untouched by a pending-only save")
	require.Len(t, snap.PendingItems, 1)
	assert.Equal(t, "p2", snap.PendingItems[0].ID)

	require.NoError(t, s.SaveReports(ctx, nil))
	assert.Empty(t, s.Load(ctx).Reports)
}

func TestGormStore_FailedSaveLeavesNothingPartial(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "save_atomic")
	require.NoError(t, s.Save(ctx, sampleReports(), samplePending()))

	duplicate := []model.PendingItem{{ID: "dup", Tag: "A"}, {ID: "dup", Tag: "B"}}
	err := s.Save(ctx, []model.Report{{ID: "other", Area: "DFP 2", Operator: "X", Crew: model.CrewA, Shift: model.ShiftNight}}, duplicate)
	require.Error(t, err)

	snap := s.Load(ctx)
	require.Len(t, snap.Reports, 2, "the report replacement was rolled back")
	assert.Equal(t, "r2", snap.Reports[0].ID)
	assert.Len(t, snap.PendingItems, 2)
}

func TestGormStore_LoadDegradesUnreadableCollection(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, "load_degrade")
	require.NoError(t, s.Save(ctx, sampleReports(), samplePending()))

	require.NoError(t, s.DB().Migrator().DropTable(&model.PendingItem{}))

	snap := s.Load(ctx)
	assert.Len(t, snap.Reports, 2)
	assert.Empty(t, snap.PendingItems)
}

func TestGormStore_LoadCorruptColumn(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reports" ORDER BY position`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "items"}).AddRow("r1", "{not json"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pending_items" ORDER BY position`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tag", "status", "synced"}).AddRow("p1", "BOMBA 01", "open", true))

	snap := s.Load(context.Background())

	assert.Empty(t, snap.Reports)
	require.Len(t, snap.PendingItems, 1)
	assert.Equal(t, "BOMBA 01", snap.PendingItems[0].Tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LoadDriverError(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reports"`)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pending_items"`)).
		WillReturnError(errors.New("disk I/O error"))

	snap := s.Load(context.Background())

	assert.Empty(t, snap.Reports)
	assert.Empty(t, snap.PendingItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SaveRollsBackOnDeleteFailure(t *testing.T) {
	db, mock := newTestDB(t)
	s := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reports" WHERE 1 = 1`)).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), sampleReports(), samplePending())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear reports")
	assert.NoError(t, mock.ExpectationsWereMet())
}
