package repository

import (
	"context"
	"testing"
	"time"

	"anoa.com/attachments/internal/entity"
	"anoa.com/attachments/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.Attachment{}))
	return db
}

func strPtr(s string) *string {
	return &s
}

func newAttachment(owner string, parentID *string, ts time.Time) *entity.Attachment {
	return &entity.Attachment{
		Filename:  "report.pdf",
		Mimetype:  "application/pdf",
		Size:      2048,
		Path:      "attachments/report.pdf",
		Timestamp: ts,
		UserID:    owner,
		ParentID:  parentID,
	}
}

func TestCreateAssignsIDAndCountsRows(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))
	ctx := context.Background()

	att := newAttachment("user-a", strPtr("p1"), time.Now().UTC())
	inserted, err := repo.Create(ctx, att)

	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)
	assert.NotEmpty(t, att.ID)

	got, err := repo.FindByID(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-a", got.UserID)
	assert.Equal(t, "p1", *got.ParentID)
}

func TestFindByIDMissingIsNotFound(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))

	got, err := repo.FindByID(context.Background(), "missing")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateReturnsNewDocument(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))
	ctx := context.Background()

	att := newAttachment("user-a", strPtr("p1"), time.Now().UTC())
	_, err := repo.Create(ctx, att)
	require.NoError(t, err)

	replaced, updated, err := repo.Update(ctx, att.ID, map[string]any{
		entity.FieldParentID:   "p2",
		entity.FieldParentType: nil,
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, replaced)
	require.NotNil(t, updated)
	assert.Equal(t, "p2", *updated.ParentID)
	assert.Nil(t, updated.ParentType)
	assert.Equal(t, att.Path, updated.Path)
	assert.Equal(t, att.UserID, updated.UserID)
}

func TestUpdateMissingRowReplacesNothing(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))

	replaced, updated, err := repo.Update(context.Background(), "missing", map[string]any{entity.FieldParentID: "p2"})

	require.NoError(t, err)
	assert.Zero(t, replaced)
	assert.Nil(t, updated)
}

func TestUpdateRejectsImmutableField(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))

	_, _, err := repo.Update(context.Background(), "any", map[string]any{"path": "elsewhere"})

	assert.Error(t, err)
}

func TestDeleteReturnsOldDocument(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))
	ctx := context.Background()

	att := newAttachment("user-a", nil, time.Now().UTC())
	_, err := repo.Create(ctx, att)
	require.NoError(t, err)

	deleted, old, err := repo.Delete(ctx, att.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	require.NotNil(t, old)
	assert.Equal(t, "attachments/report.pdf", old.Path)

	deleted, old, err = repo.Delete(ctx, att.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Nil(t, old)

	_, err = repo.FindByID(ctx, att.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFindOrphans(t *testing.T) {
	repo := NewAttachmentRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	oldOrphan := newAttachment("user-a", nil, now.Add(-48*time.Hour))
	freshOrphan := newAttachment("user-a", nil, now.Add(-time.Hour))
	linked := newAttachment("user-a", strPtr("p1"), now.Add(-48*time.Hour))
	for _, att := range []*entity.Attachment{oldOrphan, freshOrphan, linked} {
		_, err := repo.Create(ctx, att)
		require.NoError(t, err)
	}

	orphans, err := repo.FindOrphans(ctx, now.Add(-24*time.Hour))

	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, oldOrphan.ID, orphans[0].ID)
}
