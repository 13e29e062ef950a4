package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/attachments/internal/entity"
	"anoa.com/attachments/pkg/apperror"
	"gorm.io/gorm"
)

// AttachmentRepository is the document store of attachments. Every write
// reports how many rows it touched together with the affected document.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *entity.Attachment) (inserted int64, err error)
	FindByID(ctx context.Context, id string) (*entity.Attachment, error)
	Update(ctx context.Context, id string, fields map[string]any) (replaced int64, updated *entity.Attachment, err error)
	Delete(ctx context.Context, id string) (deleted int64, old *entity.Attachment, err error)
	FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *entity.Attachment) (int64, error) {
	result := r.db.WithContext(ctx).Create(attachment)
	return result.RowsAffected, result.Error
}

func (r *attachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var attachment entity.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attachment %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &attachment, nil
}

// Update applies fields (keyed by JSON name) to the row with id and reads the
// row back inside the same transaction. A missing row yields replaced == 0.
func (r *attachmentRepository) Update(ctx context.Context, id string, fields map[string]any) (int64, *entity.Attachment, error) {
	columns := make(map[string]any, len(fields))
	for field, value := range fields {
		column, ok := entity.MutableColumns[field]
		if !ok {
			return 0, nil, fmt.Errorf("field %q is not mutable", field)
		}
		columns[column] = value
	}
	if len(columns) == 0 {
		return 0, nil, nil
	}

	var (
		replaced int64
		updated  entity.Attachment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Attachment{}).Where("id = ?", id).Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		replaced = result.RowsAffected
		if replaced == 0 {
			return nil
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return 0, nil, err
	}
	if replaced == 0 {
		return 0, nil, nil
	}
	return replaced, &updated, nil
}

// Delete removes the row with id and returns it as it was before deletion.
func (r *attachmentRepository) Delete(ctx context.Context, id string) (int64, *entity.Attachment, error) {
	var (
		deleted int64
		old     entity.Attachment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Attachment{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if deleted == 0 {
		return 0, nil, nil
	}
	return deleted, &old, nil
}

// FindOrphans lists attachments never linked to a parent and older than cutoffTime.
func (r *attachmentRepository) FindOrphans(ctx context.Context, cutoffTime time.Time) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	err := r.db.WithContext(ctx).
		Where(`parent_id IS NULL AND "timestamp" < ?`, cutoffTime).
		Order(`"timestamp" ASC`).
		Find(&attachments).Error
	return attachments, err
}
