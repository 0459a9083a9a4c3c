package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvrec/internal/ffmpeg"
	"github.com/jmylchreest/tvrec/internal/models"
)

const (
	testFFmpegPath = "/usr/bin/ffmpeg"
	testDir        = "/data/thumbnail"
)

// fakeGenerator writes a placeholder image and reports the configured exit code.
type fakeGenerator struct {
	fs       afero.Fs
	exitCode int
	err      error

	mu       sync.Mutex
	requests []Request
}

func (g *fakeGenerator) Generate(_ context.Context, req Request) (*ffmpeg.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	if g.exitCode == 0 {
		if err := afero.WriteFile(g.fs, req.Output, []byte("jpeg"), 0o644); err != nil {
			return nil, err
		}
	}
	return &ffmpeg.Result{ExitCode: g.exitCode}, nil
}

func (g *fakeGenerator) calls() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

type fakeEncoded map[int64]*models.Encoded

func (f fakeEncoded) FindByID(_ context.Context, id int64) (*models.Encoded, error) {
	if id < 0 {
		return nil, errors.New("connection reset")
	}
	return f[id], nil
}

type fakeRecorded struct {
	exists bool
	err    error
}

func (f fakeRecorded) Exists(context.Context, int64) (bool, error) {
	return f.exists, f.err
}

type event struct {
	id   int64
	path string
}

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testFFmpegPath, []byte("#!/bin/sh\n"), 0o755))
	return fs
}

func newTestWorker(t *testing.T, fs afero.Fs, gen Generator, logger *slog.Logger) (*Worker, *[]event) {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	w := NewWorker(fs, fakeEncoded{
		7: {BaseModel: models.BaseModel{ID: 7}, RecordedID: 12, Name: "h264", Path: "/encoded/12.mp4"},
		8: {BaseModel: models.BaseModel{ID: 8}, RecordedID: 13, Name: "broken"},
	}, gen, WorkerConfig{Dir: testDir, FFmpegPath: testFFmpegPath}, logger)

	var mu sync.Mutex
	events := &[]event{}
	w.AddListener(func(id int64, path string) {
		mu.Lock()
		*events = append(*events, event{id, path})
		mu.Unlock()
	})
	return w, events
}

func TestWorker_Process_RecPath(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs}
	w, events := newTestWorker(t, fs, gen, nil)

	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"})
	require.NoError(t, err)

	calls := gen.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Request{
		FFmpegPath: testFFmpegPath,
		Input:      "/recorded/12.ts",
		Output:     "/data/thumbnail/12.jpg",
		Size:       DefaultSize,
		Position:   DefaultPosition,
	}, calls[0])

	isDir, err := afero.DirExists(fs, testDir)
	require.NoError(t, err)
	assert.True(t, isDir)

	assert.Equal(t, []event{{12, "/data/thumbnail/12.jpg"}}, *events)
}

func TestWorker_Process_ConfiguredSizeAndPosition(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs}
	w := NewWorker(fs, nil, gen, WorkerConfig{
		Dir:        testDir,
		FFmpegPath: testFFmpegPath,
		Size:       "320x180",
		Position:   30,
	}, nil)

	require.NoError(t, w.Process(context.Background(), Job{RecordedID: 1, RecPath: "file:///recorded/1.ts"}))

	calls := gen.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/recorded/1.ts", calls[0].Input)
	assert.Equal(t, "320x180", calls[0].Size)
	assert.Equal(t, 30, calls[0].Position)
}

func TestWorker_Process_Encoded(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs}
	w, events := newTestWorker(t, fs, gen, nil)

	encodedID := int64(7)
	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts", EncodedID: &encodedID})
	require.NoError(t, err)

	calls := gen.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/encoded/12.mp4", calls[0].Input)
	assert.Len(t, *events, 1)
}

func TestWorker_Process_SourceUnavailable(t *testing.T) {
	tests := []struct {
		name string
		job  func() Job
	}{
		{"encoded missing", func() Job { id := int64(99); return Job{RecordedID: 12, EncodedID: &id} }},
		{"encoded without path", func() Job { id := int64(8); return Job{RecordedID: 13, EncodedID: &id} }},
		{"lookup error", func() Job { id := int64(-1); return Job{RecordedID: 14, EncodedID: &id} }},
		{"empty rec path", func() Job { return Job{RecordedID: 15} }},
		{"unsupported scheme", func() Job { return Job{RecordedID: 16, RecPath: "rtmp://host/live"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFs(t)
			gen := &fakeGenerator{fs: fs}
			w, events := newTestWorker(t, fs, gen, nil)

			err := w.Process(context.Background(), tt.job())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSourceNotFound)
			assert.Empty(t, gen.calls())
			assert.Empty(t, *events)
		})
	}
}

func TestWorker_Process_EncodedWithoutIndex(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs}
	w := NewWorker(fs, nil, gen, WorkerConfig{Dir: testDir, FFmpegPath: testFFmpegPath}, nil)

	id := int64(7)
	err := w.Process(context.Background(), Job{RecordedID: 12, EncodedID: &id})
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Empty(t, gen.calls())
}

func TestWorker_Process_MissingFFmpeg(t *testing.T) {
	fs := afero.NewMemMapFs()
	gen := &fakeGenerator{fs: fs}
	var buf bytes.Buffer
	w, events := newTestWorker(t, fs, gen, slog.New(slog.NewJSONHandler(&buf, nil)))

	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFFmpegNotFound)
	assert.Empty(t, gen.calls())
	assert.Empty(t, *events)
	assert.Contains(t, buf.String(), "ffmpeg is not found")

	// The output directory is still prepared.
	isDir, err := afero.DirExists(fs, testDir)
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestWorker_Process_NonZeroExit(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs, exitCode: 1}
	w, events := newTestWorker(t, fs, gen, nil)

	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerateFailed)
	assert.Contains(t, err.Error(), "status 1")
	assert.Empty(t, *events)
}

func TestWorker_Process_SpawnError(t *testing.T) {
	fs := newTestFs(t)
	spawnErr := errors.New("exec format error")
	gen := &fakeGenerator{fs: fs, err: spawnErr}
	w, events := newTestWorker(t, fs, gen, nil)

	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerateFailed)
	assert.ErrorIs(t, err, spawnErr)
	assert.Empty(t, *events)
}

func TestWorker_Process_RecordingDeletedWhileRunning(t *testing.T) {
	fs := newTestFs(t)
	gen := &fakeGenerator{fs: fs}
	var buf bytes.Buffer
	w, events := newTestWorker(t, fs, gen, slog.New(slog.NewJSONHandler(&buf, nil)))
	w.WithRecordedChecker(fakeRecorded{exists: false})

	err := w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"})
	assert.ErrorIs(t, err, ErrRecordedGone)
	assert.Empty(t, *events)

	exists, err := afero.Exists(fs, "/data/thumbnail/12.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "orphaned thumbnail removed")
	assert.Contains(t, buf.String(), "deleting thumbnail, recording not found")
}

func TestWorker_Process_RecordingCheck(t *testing.T) {
	t.Run("still exists", func(t *testing.T) {
		fs := newTestFs(t)
		w, events := newTestWorker(t, fs, &fakeGenerator{fs: fs}, nil)
		w.WithRecordedChecker(fakeRecorded{exists: true})

		require.NoError(t, w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"}))
		assert.Len(t, *events, 1)
	})

	t.Run("lookup error keeps thumbnail", func(t *testing.T) {
		fs := newTestFs(t)
		w, events := newTestWorker(t, fs, &fakeGenerator{fs: fs}, nil)
		w.WithRecordedChecker(fakeRecorded{err: errors.New("timeout")})

		require.NoError(t, w.Process(context.Background(), Job{RecordedID: 12, RecPath: "/recorded/12.ts"}))
		assert.Len(t, *events, 1)

		exists, err := afero.Exists(fs, "/data/thumbnail/12.jpg")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestWorker_ListenerPanicIsolated(t *testing.T) {
	fs := newTestFs(t)
	var buf bytes.Buffer
	w := NewWorker(fs, nil, &fakeGenerator{fs: fs}, WorkerConfig{Dir: testDir, FFmpegPath: testFFmpegPath},
		slog.New(slog.NewJSONHandler(&buf, nil)))

	var got []event
	w.AddListener(func(int64, string) { panic("listener exploded") })
	w.AddListener(func(id int64, path string) { got = append(got, event{id, path}) })
	w.AddListener(nil)

	require.NotPanics(t, func() {
		require.NoError(t, w.Process(context.Background(), Job{RecordedID: 3, RecPath: "/recorded/3.ts"}))
	})
	assert.Equal(t, []event{{3, "/data/thumbnail/3.jpg"}}, got)
	assert.Contains(t, buf.String(), "thumbnail listener panicked")
	assert.Contains(t, buf.String(), "listener exploded")
}

func TestWorker_CorrelationID(t *testing.T) {
	fs := newTestFs(t)
	var buf bytes.Buffer
	w := NewWorker(fs, nil, &fakeGenerator{fs: fs}, WorkerConfig{Dir: testDir, FFmpegPath: testFFmpegPath},
		slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, w.Process(context.Background(), Job{RecordedID: 3, RecPath: "/recorded/3.ts"}))
	assert.Contains(t, buf.String(), `"correlation_id":"`)
	assert.Contains(t, buf.String(), `"component":"thumbnail"`)
}

func TestWorker_OutputPath(t *testing.T) {
	w := NewWorker(afero.NewMemMapFs(), nil, nil, WorkerConfig{Dir: "/srv/thumbs"}, nil)
	assert.Equal(t, "/srv/thumbs/42.jpg", w.OutputPath(42))
}

func TestWorker_FFmpegGenerator(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	// Writes its final argument, like ffmpeg writing the output image.
	script := `#!/bin/sh
echo "Input #0, mpegts, from '$3':" >&2
for arg; do out="$arg"; done
printf 'jpeg' > "$out"
`
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	thumbs := filepath.Join(dir, "thumbnail")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := NewWorker(afero.NewOsFs(), nil, nil, WorkerConfig{Dir: thumbs, FFmpegPath: bin}, logger)

	var got []event
	w.AddListener(func(id int64, path string) { got = append(got, event{id, path}) })

	require.NoError(t, w.Process(context.Background(), Job{RecordedID: 21, RecPath: "/recorded/21.ts"}))

	out := filepath.Join(thumbs, "21.jpg")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, []event{{21, out}}, got)
	assert.Contains(t, buf.String(), "Input #0, mpegts, from '/recorded/21.ts':")
	assert.Contains(t, buf.String(), "-y -i /recorded/21.ts -ss 5 -vframes 1 -f image2 -s 480x270 "+out)
}

func TestWorker_FFmpegGenerator_Failure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'Invalid data found' >&2\nexit 1\n"), 0o755))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	w := NewWorker(afero.NewOsFs(), nil, nil, WorkerConfig{Dir: filepath.Join(dir, "thumbnail"), FFmpegPath: bin}, logger)

	var fired bool
	w.AddListener(func(int64, string) { fired = true })

	err := w.Process(context.Background(), Job{RecordedID: 21, RecPath: "/recorded/21.ts"})
	assert.ErrorIs(t, err, ErrGenerateFailed)
	assert.False(t, fired)
	assert.Contains(t, buf.String(), `"msg":"ffmpeg exited with error"`)
	assert.Contains(t, buf.String(), `"exit_code":1`)
	assert.Contains(t, buf.String(), `"stderr":"Invalid data found"`)
}
