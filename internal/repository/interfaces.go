// Package repository defines data access interfaces for tvrec entities.
// Recordings and encoded media go through GORM; thumbnails go through the raw
// SQL operator so that they share its connection and transaction handling.
package repository

import (
	"context"

	"github.com/jmylchreest/tvrec/internal/models"
)

// RecordedRepository defines operations for recording persistence.
type RecordedRepository interface {
	// Create creates a new recording.
	Create(ctx context.Context, rec *models.Recorded) error
	// GetByID retrieves a recording by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, id int64) (*models.Recorded, error)
	// Exists reports whether a recording with the given ID exists.
	Exists(ctx context.Context, id int64) (bool, error)
	// GetAll retrieves all recordings, newest first.
	GetAll(ctx context.Context) ([]*models.Recorded, error)
	// Delete deletes a recording and its encoded copies.
	Delete(ctx context.Context, id int64) error
}

// EncodedRepository defines operations for encoded media persistence.
type EncodedRepository interface {
	// Create creates a new encoded entry.
	Create(ctx context.Context, enc *models.Encoded) error
	// FindByID retrieves an encoded entry by ID. Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*models.Encoded, error)
	// GetByRecordedID retrieves all encoded copies of a recording.
	GetByRecordedID(ctx context.Context, recordedID int64) ([]*models.Encoded, error)
}

// ThumbnailRepository defines operations for thumbnail persistence.
type ThumbnailRepository interface {
	// Add stores the thumbnail path for a recording, replacing any existing
	// one, and returns its ID.
	Add(ctx context.Context, recordedID int64, path string) (int64, error)
	// FindByRecordedID retrieves the thumbnail of a recording. Returns nil, nil if not found.
	FindByRecordedID(ctx context.Context, recordedID int64) (*models.Thumbnail, error)
	// List retrieves thumbnails ordered by ID.
	List(ctx context.Context, limit, offset int) ([]*models.Thumbnail, error)
	// DeleteByRecordedID removes the thumbnail of a recording.
	DeleteByRecordedID(ctx context.Context, recordedID int64) error
}
