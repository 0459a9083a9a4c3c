package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvrec/internal/thumbnail"
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail",
	Short: "Generate the thumbnail of one recording",
	Long: `Generate the thumbnail of one recording and store it in the thumbnails table.

The source is the recording's own file unless --encoded-id selects an
encoded rendition. --rec-path overrides the stored recording path.`,
	Args: cobra.NoArgs,
	RunE: runThumbnail,
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)

	thumbnailCmd.Flags().Int64("recorded-id", 0, "Recording to generate a thumbnail for (required)")
	thumbnailCmd.Flags().Int64("encoded-id", 0, "Encoded rendition to read instead of the recording")
	thumbnailCmd.Flags().String("rec-path", "", "Source path or URL overriding the stored recording path")
	_ = thumbnailCmd.MarkFlagRequired("recorded-id")
}

func runThumbnail(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	recordedID, _ := cmd.Flags().GetInt64("recorded-id")
	recPath, _ := cmd.Flags().GetString("rec-path")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	job := thumbnail.Job{RecordedID: recordedID, RecPath: recPath}
	if cmd.Flags().Changed("encoded-id") {
		encodedID, _ := cmd.Flags().GetInt64("encoded-id")
		job.EncodedID = &encodedID
	}
	if job.RecPath == "" && job.EncodedID == nil {
		rec, err := a.recorded.GetByID(ctx, recordedID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("recording %d not found", recordedID)
		}
		job.RecPath = rec.RecPath
	}

	var written string
	worker := a.newWorker(ctx)
	worker.AddListener(a.persistThumbnail(ctx))
	worker.AddListener(func(_ int64, path string) { written = path })

	if err := worker.Process(ctx, job); err != nil {
		if errors.Is(err, thumbnail.ErrGenerateFailed) {
			return fmt.Errorf("%w (run with --log-level debug to see ffmpeg output)", err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), written)
	return nil
}
