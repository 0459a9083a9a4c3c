package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/tvrec/internal/database"
	"github.com/jmylchreest/tvrec/internal/models"
)

const thumbnailColumns = "id, recorded_id, file_path, created_at, updated_at"

// thumbnailRepository implements ThumbnailRepository on the raw SQL operator.
type thumbnailRepository struct {
	op     database.Operator
	logger *slog.Logger
}

// NewThumbnailRepository creates a new ThumbnailRepository.
func NewThumbnailRepository(op database.Operator, logger *slog.Logger) ThumbnailRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &thumbnailRepository{op: op, logger: logger}
}

// Add stores path as the thumbnail of recordedID. Backends with on-conflict
// support upsert in one statement; the rest delete and insert in a transaction.
func (r *thumbnailRepository) Add(ctx context.Context, recordedID int64, path string) (int64, error) {
	thumb := &models.Thumbnail{RecordedID: recordedID, FilePath: path}
	if err := thumb.Validate(); err != nil {
		return 0, fmt.Errorf("validating thumbnail: %w", err)
	}

	values, err := r.op.CreateValueStr(1, 4)
	if err != nil {
		return 0, err
	}
	insert := "insert into thumbnails (recorded_id, file_path, created_at, updated_at) values (" + values + ")"
	now := time.Now().UTC()

	switch upsert := r.op.UpsertType(); upsert {
	case database.UpsertConflict:
		query := insert + " on conflict (recorded_id) do update set file_path = excluded.file_path, updated_at = excluded.updated_at"
		if returning := r.op.ReturningStr(); returning != "" {
			query += " " + returning
		}
		id, err := r.op.Insert(ctx, query, recordedID, path, now, now)
		if err != nil {
			return 0, fmt.Errorf("upserting thumbnail for recording %d: %w", recordedID, err)
		}
		return id, nil

	case database.UpsertReplace:
		where, err := r.op.CreateValueStr(1, 1)
		if err != nil {
			return 0, err
		}
		err = r.op.Transaction(ctx, func(ctx context.Context, exec database.ExecFunc) error {
			if err := exec(ctx, "delete from thumbnails where recorded_id = "+where, recordedID); err != nil {
				return err
			}
			return exec(ctx, insert, recordedID, path, now, now)
		})
		if err != nil {
			return 0, fmt.Errorf("replacing thumbnail for recording %d: %w", recordedID, err)
		}

		stored, err := r.FindByRecordedID(ctx, recordedID)
		if err != nil {
			return 0, err
		}
		if stored == nil {
			r.logger.WarnContext(ctx, "replaced thumbnail not found", slog.Int64("recorded_id", recordedID))
			return 0, nil
		}
		return stored.ID, nil

	default:
		return 0, fmt.Errorf("%w: upsert type %q", database.ErrUnsupportedDialect, upsert)
	}
}

// FindByRecordedID retrieves the thumbnail of a recording.
func (r *thumbnailRepository) FindByRecordedID(ctx context.Context, recordedID int64) (*models.Thumbnail, error) {
	where, err := r.op.CreateValueStr(1, 1)
	if err != nil {
		return nil, err
	}
	query := "select " + thumbnailColumns + " from thumbnails where recorded_id = " + where + " " + r.op.CreateLimitStr(1)

	thumbs, err := database.QueryAs[models.Thumbnail](ctx, r.op, query, recordedID)
	if err != nil {
		return nil, fmt.Errorf("finding thumbnail for recording %d: %w", recordedID, err)
	}
	if len(thumbs) == 0 {
		return nil, nil
	}
	return &thumbs[0], nil
}

// List retrieves thumbnails ordered by ID.
func (r *thumbnailRepository) List(ctx context.Context, limit, offset int) ([]*models.Thumbnail, error) {
	query := "select " + thumbnailColumns + " from thumbnails order by id asc " + r.op.CreateLimitStr(limit, offset)

	thumbs, err := database.QueryAs[models.Thumbnail](ctx, r.op, query)
	if err != nil {
		return nil, fmt.Errorf("listing thumbnails: %w", err)
	}

	result := make([]*models.Thumbnail, len(thumbs))
	for i := range thumbs {
		result[i] = &thumbs[i]
	}
	return result, nil
}

// DeleteByRecordedID removes the thumbnail of a recording.
func (r *thumbnailRepository) DeleteByRecordedID(ctx context.Context, recordedID int64) error {
	where, err := r.op.CreateValueStr(1, 1)
	if err != nil {
		return err
	}
	if _, err := r.op.Query(ctx, "delete from thumbnails where recorded_id = "+where, recordedID); err != nil {
		return fmt.Errorf("deleting thumbnail for recording %d: %w", recordedID, err)
	}
	return nil
}
