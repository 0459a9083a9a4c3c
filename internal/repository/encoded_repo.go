package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/tvrec/internal/models"
	"gorm.io/gorm"
)

// encodedRepository implements EncodedRepository using GORM.
type encodedRepository struct {
	db *gorm.DB
}

// NewEncodedRepository creates a new EncodedRepository.
func NewEncodedRepository(db *gorm.DB) EncodedRepository {
	return &encodedRepository{db: db}
}

// Create creates a new encoded entry.
func (r *encodedRepository) Create(ctx context.Context, enc *models.Encoded) error {
	if err := enc.Validate(); err != nil {
		return fmt.Errorf("validating encoded entry: %w", err)
	}
	return r.db.WithContext(ctx).Create(enc).Error
}

// FindByID retrieves an encoded entry by ID.
func (r *encodedRepository) FindByID(ctx context.Context, id int64) (*models.Encoded, error) {
	var enc models.Encoded
	if err := r.db.WithContext(ctx).First(&enc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enc, nil
}

// GetByRecordedID retrieves the encoded copies of a recording.
func (r *encodedRepository) GetByRecordedID(ctx context.Context, recordedID int64) ([]*models.Encoded, error) {
	var encs []*models.Encoded
	if err := r.db.WithContext(ctx).
		Where("recorded_id = ?", recordedID).
		Order("id ASC").
		Find(&encs).Error; err != nil {
		return nil, err
	}
	return encs, nil
}
