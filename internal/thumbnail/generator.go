package thumbnail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmylchreest/tvrec/internal/ffmpeg"
	"github.com/jmylchreest/tvrec/internal/observability"
)

// stderrTailLines is how much ffmpeg stderr is kept in the failure log.
const stderrTailLines = 5

// Request describes one frame extraction.
type Request struct {
	FFmpegPath string
	Input      string
	Output     string
	Size       string
	Position   int
}

// Generator extracts a single frame from a media source.
type Generator interface {
	Generate(ctx context.Context, req Request) (*ffmpeg.Result, error)
}

// FFmpegGenerator runs ffmpeg as a child process.
type FFmpegGenerator struct{}

// NewFFmpegGenerator creates a generator backed by the ffmpeg binary named in each Request.
func NewFFmpegGenerator() *FFmpegGenerator {
	return &FFmpegGenerator{}
}

// Generate runs
//
//	ffmpeg -y -i <input> -ss <position> -vframes 1 -f image2 -s <size> <output>
//
// and logs ffmpeg's stderr at debug level through the logger carried by ctx.
// A non-zero exit also logs the last stderr lines at warn level.
func (g *FFmpegGenerator) Generate(ctx context.Context, req Request) (*ffmpeg.Result, error) {
	logger := observability.LoggerFromContext(ctx)

	cmd := ffmpeg.NewCommandBuilder(req.FFmpegPath).
		Overwrite().
		Input(req.Input).
		Seek(req.Position).
		Frames(1).
		Format("image2").
		Size(req.Size).
		Output(req.Output).
		StderrHandler(func(line string) {
			logger.DebugContext(ctx, "ffmpeg", slog.String("stderr", line))
		}).
		Build()

	logger.DebugContext(ctx, "running ffmpeg", slog.String("command", cmd.String()))
	result, err := cmd.Run(ctx)
	if err == nil && !result.Success() {
		stderr := cmd.RecentStderr()
		if len(stderr) > stderrTailLines {
			stderr = stderr[len(stderr)-stderrTailLines:]
		}
		logger.WarnContext(ctx, "ffmpeg exited with error",
			slog.Int("exit_code", result.ExitCode),
			slog.String("stderr", strings.Join(stderr, "\n")))
	}
	return result, err
}
