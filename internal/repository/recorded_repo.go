package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/tvrec/internal/models"
	"gorm.io/gorm"
)

// recordedRepository implements RecordedRepository using GORM.
type recordedRepository struct {
	db *gorm.DB
}

// NewRecordedRepository creates a new RecordedRepository.
func NewRecordedRepository(db *gorm.DB) RecordedRepository {
	return &recordedRepository{db: db}
}

// Create creates a new recording.
func (r *recordedRepository) Create(ctx context.Context, rec *models.Recorded) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validating recording: %w", err)
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// GetByID retrieves a recording by ID.
func (r *recordedRepository) GetByID(ctx context.Context, id int64) (*models.Recorded, error) {
	var rec models.Recorded
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Exists reports whether a recording exists.
func (r *recordedRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Recorded{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAll retrieves all recordings.
func (r *recordedRepository) GetAll(ctx context.Context) ([]*models.Recorded, error) {
	var recs []*models.Recorded
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete deletes a recording together with its encoded copies.
func (r *recordedRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Encoded{}, "recorded_id = ?", id).Error; err != nil {
			return fmt.Errorf("deleting encoded copies: %w", err)
		}
		return tx.Delete(&models.Recorded{}, "id = ?", id).Error
	})
}
