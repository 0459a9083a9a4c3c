package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/jmylchreest/tvrec/internal/models"
	"github.com/jmylchreest/tvrec/internal/observability"
	"github.com/jmylchreest/tvrec/internal/urlutil"
)

// Defaults applied when WorkerConfig leaves a field empty.
const (
	DefaultSize     = "480x270"
	DefaultPosition = 5
)

// Reasons a job is abandoned. None of them stop the queue.
var (
	ErrFFmpegNotFound = errors.New("ffmpeg not found")
	ErrSourceNotFound = errors.New("thumbnail source not found")
	ErrGenerateFailed = errors.New("thumbnail generation failed")
	ErrRecordedGone   = errors.New("recording no longer exists")
)

// EncodedFinder looks up encoded renditions of a recording.
type EncodedFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Encoded, error)
}

// RecordedChecker reports whether a recording still exists.
type RecordedChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// WorkerConfig holds thumbnail generation settings.
type WorkerConfig struct {
	Dir        string
	FFmpegPath string
	Size       string
	Position   int
}

// Worker processes one thumbnail job at a time.
type Worker struct {
	fs        afero.Fs
	encoded   EncodedFinder
	recorded  RecordedChecker
	generator Generator
	cfg       WorkerConfig
	logger    *slog.Logger
	listeners *listeners
}

// NewWorker creates a worker. A nil generator uses ffmpeg.
func NewWorker(fs afero.Fs, encoded EncodedFinder, generator Generator, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if generator == nil {
		generator = NewFFmpegGenerator()
	}
	if cfg.Size == "" {
		cfg.Size = DefaultSize
	}
	if cfg.Position <= 0 {
		cfg.Position = DefaultPosition
	}
	logger = observability.WithComponent(logger, "thumbnail")

	return &Worker{
		fs:        fs,
		encoded:   encoded,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		listeners: &listeners{logger: logger},
	}
}

// WithRecordedChecker enables deleting thumbnails whose recording vanished
// while ffmpeg was running.
func (w *Worker) WithRecordedChecker(rc RecordedChecker) *Worker {
	w.recorded = rc
	return w
}

// AddListener registers fn for completion events.
func (w *Worker) AddListener(fn Listener) {
	w.listeners.add(fn)
}

// OutputPath returns where the thumbnail for recordedID is written.
func (w *Worker) OutputPath(recordedID int64) string {
	return filepath.Join(w.cfg.Dir, strconv.FormatInt(recordedID, 10)+".jpg")
}

// Process runs one job. On success listeners are notified with the output
// path. A returned error means the job was abandoned.
func (w *Worker) Process(ctx context.Context, job Job) (err error) {
	correlationID := uuid.NewString()
	logger := observability.WithCorrelationID(w.logger, correlationID).With(slog.Any("job", job))
	ctx = observability.ContextWithCorrelationID(ctx, correlationID)
	ctx = observability.ContextWithLogger(ctx, logger)

	done := observability.TimedOperationWithError(ctx, logger, "create_thumbnail", &err)
	defer done()

	if err := w.ensureDir(ctx, logger); err != nil {
		return err
	}

	if _, err := w.fs.Stat(w.cfg.FFmpegPath); err != nil {
		logger.ErrorContext(ctx, "ffmpeg is not found", slog.String("path", w.cfg.FFmpegPath))
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, w.cfg.FFmpegPath)
	}

	input, err := w.resolveSource(ctx, job)
	if err != nil {
		logger.ErrorContext(ctx, "thumbnail source path is unavailable", slog.String("error", err.Error()))
		return err
	}

	output := w.OutputPath(job.RecordedID)
	result, err := w.generator.Generate(ctx, Request{
		FFmpegPath: w.cfg.FFmpegPath,
		Input:      input,
		Output:     output,
		Size:       w.cfg.Size,
		Position:   w.cfg.Position,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGenerateFailed, err)
	}
	if !result.Success() {
		return fmt.Errorf("%w: ffmpeg exited with status %d", ErrGenerateFailed, result.ExitCode)
	}

	if gone := w.recordingGone(ctx, logger, job.RecordedID); gone {
		logger.ErrorContext(ctx, "deleting thumbnail, recording not found", slog.String("path", output))
		if rmErr := w.fs.Remove(output); rmErr != nil {
			logger.ErrorContext(ctx, "delete thumbnail failed",
				slog.String("path", output),
				slog.String("error", rmErr.Error()))
		}
		return ErrRecordedGone
	}

	logger.InfoContext(ctx, "created thumbnail", slog.String("path", output))
	w.listeners.notify(job.RecordedID, output)
	return nil
}

func (w *Worker) ensureDir(ctx context.Context, logger *slog.Logger) error {
	exists, err := afero.DirExists(w.fs, w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("checking thumbnail directory: %w", err)
	}
	if exists {
		return nil
	}

	logger.InfoContext(ctx, "creating thumbnail directory", slog.String("dir", w.cfg.Dir))
	if err := w.fs.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating thumbnail directory: %w", err)
	}
	return nil
}

// resolveSource returns the ffmpeg input for job.
func (w *Worker) resolveSource(ctx context.Context, job Job) (string, error) {
	location := job.RecPath
	if job.FromEncoded() {
		if w.encoded == nil {
			return "", fmt.Errorf("%w: no media index for encoded %d", ErrSourceNotFound, *job.EncodedID)
		}
		encoded, err := w.encoded.FindByID(ctx, *job.EncodedID)
		if err != nil {
			return "", fmt.Errorf("%w: looking up encoded %d: %w", ErrSourceNotFound, *job.EncodedID, err)
		}
		if encoded == nil {
			return "", fmt.Errorf("%w: encoded %d", ErrSourceNotFound, *job.EncodedID)
		}
		location = encoded.Path
	}

	if location == "" {
		return "", fmt.Errorf("%w: empty path for recorded %d", ErrSourceNotFound, job.RecordedID)
	}

	input, err := urlutil.ResolveMediaInput(location)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}
	return input.Input, nil
}

// recordingGone reports whether the recording was deleted. Lookup failures
// keep the thumbnail.
func (w *Worker) recordingGone(ctx context.Context, logger *slog.Logger, recordedID int64) bool {
	if w.recorded == nil {
		return false
	}
	exists, err := w.recorded.Exists(ctx, recordedID)
	if err != nil {
		logger.WarnContext(ctx, "checking recording failed", slog.String("error", err.Error()))
		return false
	}
	return !exists
}
