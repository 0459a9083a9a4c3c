package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvrec/internal/config"
	"github.com/jmylchreest/tvrec/internal/database"
	"github.com/jmylchreest/tvrec/internal/ffmpeg"
	"github.com/jmylchreest/tvrec/internal/repository"
	"github.com/jmylchreest/tvrec/internal/scheduler"
	"github.com/jmylchreest/tvrec/internal/thumbnail"
	"github.com/jmylchreest/tvrec/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tvrec thumbnail service",
	Long: `Start the tvrec thumbnail service.

On startup the database schema is migrated and, unless --backfill=false is
given, every recording without a thumbnail is queued. Generated thumbnails are
recorded in the thumbnails table. The service runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("data-dir", "./data", "Data directory for thumbnails")
	serveCmd.Flags().String("ffmpeg", "", "Path to the ffmpeg binary (default: auto-detect)")
	serveCmd.Flags().Bool("backfill", true, "Queue thumbnails for recordings that have none")

	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
	mustBindPFlag("ffmpeg.binary_path", serveCmd.Flags().Lookup("ffmpeg"))
}

// app holds the wired components shared by commands that touch the database.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *database.PoolManager
	op       *database.SQLOperator
	recorded repository.RecordedRepository
	encoded  repository.EncodedRepository
	thumbs   repository.ThumbnailRepository
}

// openApp connects to the database, migrates it and builds the repositories.
// The caller must call close.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	pool := database.NewPoolManager(cfg.Database, logger)
	op, err := database.NewOperatorForDriver(pool, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, pool: pool, op: op}
	if err := op.Ping(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db, err := pool.Pool(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	if err := repository.Migrate(ctx, db.DB, logger); err != nil {
		a.close(ctx)
		return nil, err
	}

	a.recorded = repository.NewRecordedRepository(db.DB)
	a.encoded = repository.NewEncodedRepository(db.DB)
	a.thumbs = repository.NewThumbnailRepository(op, logger)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.op.End(context.WithoutCancel(ctx)); err != nil {
		a.logger.Error("closing database pool", slog.String("error", err.Error()))
	}
}

// newWorker builds a thumbnail worker from configuration. A missing ffmpeg is
// logged; jobs are then abandoned by the worker until one is installed.
func (a *app) newWorker(ctx context.Context) *thumbnail.Worker {
	ffmpegPath := a.cfg.FFmpeg.BinaryPath
	info, err := ffmpeg.NewBinaryDetector(ffmpegPath).Detect(ctx)
	if err != nil {
		a.logger.Warn("ffmpeg detection failed", slog.String("error", err.Error()))
		if ffmpegPath == "" {
			ffmpegPath = "ffmpeg"
		}
	} else {
		ffmpegPath = info.FFmpegPath
		a.logger.Info("ffmpeg detected",
			slog.String("path", info.FFmpegPath),
			slog.String("version", info.Version))
	}

	return thumbnail.NewWorker(afero.NewOsFs(), a.encoded, nil, thumbnail.WorkerConfig{
		Dir:        a.cfg.Storage.ThumbnailPath(),
		FFmpegPath: ffmpegPath,
		Size:       a.cfg.Thumbnail.EffectiveSize(),
		Position:   a.cfg.Thumbnail.EffectivePosition(),
	}, a.logger).WithRecordedChecker(a.recorded)
}

// persistThumbnail returns a listener that records generated thumbnails.
func (a *app) persistThumbnail(ctx context.Context) thumbnail.Listener {
	return func(recordedID int64, path string) {
		id, err := a.thumbs.Add(ctx, recordedID, path)
		if err != nil {
			a.logger.Error("storing thumbnail failed",
				slog.Int64("recorded_id", recordedID),
				slog.String("error", err.Error()))
			return
		}
		a.logger.Debug("stored thumbnail",
			slog.Int64("recorded_id", recordedID),
			slog.Int64("thumbnail_id", id))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	logger.Info("starting tvrec",
		slog.Any("build", version.GetInfo()),
		slog.Bool("snapshot", version.IsSnapshot()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	manager := thumbnail.NewManager(a.newWorker(ctx), logger)
	manager.AddListener(a.persistThumbnail(ctx))
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	backfill, _ := cmd.Flags().GetBool("backfill")
	if backfill {
		queued, err := backfillThumbnails(ctx, a, manager)
		if err != nil {
			return err
		}
		logger.Info("queued missing thumbnails", slog.Int("count", queued))
	}

	if expr := cfg.Thumbnail.BackfillSchedule; expr != "" {
		sched := scheduler.NewScheduler().WithLogger(logger)
		err := sched.Add("thumbnail_backfill", expr, func(ctx context.Context) error {
			queued, err := backfillThumbnails(ctx, a, manager)
			if queued > 0 {
				logger.Info("queued missing thumbnails", slog.Int("count", queued))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("thumbnail.backfill_schedule: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	<-ctx.Done()
	logger.Info("received shutdown signal", slog.Int("pending", manager.Pending()))
	return nil
}

// backfillThumbnails queues every recording that has no stored thumbnail.
func backfillThumbnails(ctx context.Context, a *app, manager *thumbnail.Manager) (int, error) {
	recordings, err := a.recorded.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing recordings: %w", err)
	}

	queued := 0
	for _, rec := range recordings {
		existing, err := a.thumbs.FindByRecordedID(ctx, rec.ID)
		if err != nil {
			return queued, err
		}
		if existing != nil {
			continue
		}
		if manager.Push(thumbnail.Job{RecordedID: rec.ID, RecPath: rec.RecPath}) {
			queued++
		}
	}
	return queued, nil
}
