package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvrec/internal/database"
	"github.com/jmylchreest/tvrec/internal/database/migrations"
	"github.com/jmylchreest/tvrec/internal/repository"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database commands",
	Long:  `Commands for checking the tvrec database.`,
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check database connectivity",
	Args:  cobra.NoArgs,
	RunE:  runDBPing,
}

var dbExistsCmd = &cobra.Command{
	Use:   "exists <table>",
	Short: "Check whether a table exists (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBExists,
}

var dbThumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "List stored thumbnails",
	Args:  cobra.NoArgs,
	RunE:  runDBThumbnails,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
			return m.Up(cmd.Context())
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last applied schema migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
			return m.Down(cmd.Context())
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema migration status",
	Args:  cobra.NoArgs,
	RunE:  runDBStatus,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPingCmd, dbExistsCmd, dbThumbnailsCmd, dbMigrateCmd, dbRollbackCmd, dbStatusCmd)

	dbThumbnailsCmd.Flags().Int("limit", 50, "Maximum number of thumbnails to list")
	dbThumbnailsCmd.Flags().Int("offset", 0, "Number of thumbnails to skip")
}

// withOperator runs fn against a fresh pool and always ends it.
func withOperator(ctx context.Context, fn func(op *database.SQLOperator) error) error {
	return withPool(ctx, func(_ *database.PoolManager, op *database.SQLOperator) error {
		return fn(op)
	})
}

// withMigrator runs fn with a migrator bound to a fresh pool.
func withMigrator(ctx context.Context, fn func(m *migrations.Migrator) error) error {
	return withPool(ctx, func(pool *database.PoolManager, _ *database.SQLOperator) error {
		db, err := pool.Pool(ctx)
		if err != nil {
			return err
		}
		return fn(repository.NewMigrator(db.DB, slog.Default()))
	})
}

func withPool(ctx context.Context, fn func(pool *database.PoolManager, op *database.SQLOperator) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	pool := database.NewPoolManager(cfg.Database, logger)
	op, err := database.NewOperatorForDriver(pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if endErr := op.End(context.WithoutCancel(ctx)); endErr != nil && err == nil {
			err = endErr
		}
	}()

	return fn(pool, op)
}

func runDBPing(cmd *cobra.Command, _ []string) error {
	return withOperator(cmd.Context(), func(op *database.SQLOperator) error {
		if err := op.Ping(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	})
}

func runDBExists(cmd *cobra.Command, args []string) error {
	return withOperator(cmd.Context(), func(op *database.SQLOperator) error {
		exists, err := op.Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), exists)
		return nil
	})
}

func runDBThumbnails(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	thumbs, err := a.thumbs.List(cmd.Context(), limit, offset)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(thumbs))
	for _, t := range thumbs {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.RecordedID, 10),
			t.FilePath,
			t.UpdatedAt.Format(time.DateTime),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Recorded", "Path", "Updated"}, rows, 0, 1))
	return nil
}

func runDBStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
		statuses, err := m.Status(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			applied := "pending"
			if s.AppliedAt != nil {
				applied = s.AppliedAt.Format(time.DateTime)
			}
			rows = append(rows, []string{s.Version, applied, s.Description})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Version", "Applied", "Description"}, rows))
		return nil
	})
}
