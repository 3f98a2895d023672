package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hls-ingest/internal/catalog"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/manifest"
	"hls-ingest/internal/platform/logger"
)

// fakeFFmpegScript answers -version, prints a duration line when probed and
// otherwise writes three segments plus a variant manifest per output.
// FAKE_FFMPEG_MODE=fail makes the encode fail; hang makes it never finish.
const fakeFFmpegScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 6.1-test Copyright (c) 2000-2023 the FFmpeg developers"
  echo "built with gcc"
  exit 0
fi
if [ "$#" -eq 3 ]; then
  echo "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from '$3':" >&2
  echo "  Duration: 00:01:02.50, start: 0.000000, bitrate: 1000 kb/s" >&2
  echo "At least one output file must be specified" >&2
  exit 1
fi
case "$FAKE_FFMPEG_MODE" in
fail)
  echo "frame=    0 fps=0.0" >&2
  echo "source.mp4: Invalid data found when processing input" >&2
  exit 1 ;;
hang)
  exec sleep 10 ;;
esac
prev=""
for a in "$@"; do
  if [ "$prev" = "-hls_segment_filename" ]; then
    for i in 0 1 2; do : > "$(printf "$a" "$i")"; done
  fi
  case "$a" in
  *.m3u8) printf '#EXTM3U\n#EXT-X-ENDLIST\n' > "$a" ;;
  esac
  prev="$a"
done
exit 0
`

var testShape = catalog.URLShape{BaseURL: "http://localhost:8000", Prefix: "uploads/hls-videos"}

func writeFakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake encoder is a shell script")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(fakeFFmpegScript), 0o755))
	return path
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 3*1024*1024), 0o644))
	return path
}

type failingStore struct {
	catalog.Store
}

func (failingStore) Append(catalog.Record) error { return os.ErrPermission }

type recorder struct {
	states []State
}

func (r *recorder) observe(j TranscodeJob) { r.states = append(r.states, j.State) }

func newTestOrchestrator(t *testing.T, bin string, store catalog.Store, timeout time.Duration) (*Orchestrator, *recorder) {
	t.Helper()
	engine := NewEngine(bin, timeout)
	rec := &recorder{}
	o := New(Options{
		Engine:   engine,
		Prober:   NewFFmpegProber(engine),
		Catalog:  store,
		Shape:    testShape,
		Ladder:   ladder.Default(),
		Logger:   logger.Discard(),
		Observer: rec.observe,
	})
	return o, rec
}

func TestRun_success(t *testing.T) {
	bin := writeFakeFFmpeg(t)
	root := t.TempDir()
	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "videoLinks.txt"), testShape)
	o, rec := newTestOrchestrator(t, bin, store, time.Minute)

	job := o.Run(context.Background(), NewJob("abc123", writeSource(t), "clip.mp4", root))

	require.Equal(t, StateSucceeded, job.State, "failure: %s", job.Failure)
	assert.Equal(t, []State{StateRunning, StateSucceeded}, rec.states)
	assert.Equal(t, "http://localhost:8000/uploads/hls-videos/abc123/playlist.m3u8", job.URL)
	require.NotNil(t, job.Duration)
	assert.InDelta(t, 62.5, *job.Duration, 1e-9)

	for _, tier := range ladder.Default().Tiers() {
		assert.FileExists(t, filepath.Join(job.OutputDir, tier.VariantFile()))
		assert.FileExists(t, filepath.Join(job.OutputDir, tier.Name+"_002.ts"))
	}
	master, err := os.ReadFile(filepath.Join(job.OutputDir, manifest.MasterFile))
	require.NoError(t, err)
	assert.Equal(t, manifest.MasterTemplate(ladder.Default()), string(master))

	e, ok, err := store.FindByAssetID("abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.URL, e.URL)
	require.NotNil(t, e.FileSizeMB)
	assert.Equal(t, 3.0, *e.FileSizeMB)
	require.NotNil(t, e.OriginalName)
	assert.Equal(t, "clip.mp4", *e.OriginalName)
	assert.False(t, e.UploadDate.IsZero())
}

func TestRun_engine_unavailable(t *testing.T) {
	root := t.TempDir()
	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "videoLinks.txt"), testShape)
	o, rec := newTestOrchestrator(t, filepath.Join(t.TempDir(), "no-such-ffmpeg"), store, time.Minute)

	job := o.Run(context.Background(), NewJob("a1", writeSource(t), "", root))

	assert.Equal(t, StateFailed, job.State)
	assert.ErrorIs(t, job.Err, ErrEngineUnavailable)
	assert.Equal(t, "engine_unavailable", job.Kind)
	assert.Equal(t, []State{StateFailed}, rec.states)
	assert.NoDirExists(t, job.OutputDir)
}

func TestRun_engine_failure_keeps_partial_output(t *testing.T) {
	bin := writeFakeFFmpeg(t)
	t.Setenv("FAKE_FFMPEG_MODE", "fail")
	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "videoLinks.txt"), testShape)
	o, _ := newTestOrchestrator(t, bin, store, time.Minute)

	job := o.Run(context.Background(), NewJob("a2", writeSource(t), "", t.TempDir()))

	assert.Equal(t, StateFailed, job.State)
	assert.ErrorIs(t, job.Err, ErrEngineFailure)
	assert.Contains(t, job.Failure, "Invalid data found when processing input")
	assert.DirExists(t, job.OutputDir)
	assert.NoFileExists(t, filepath.Join(job.OutputDir, manifest.MasterFile))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_engine_timeout(t *testing.T) {
	bin := writeFakeFFmpeg(t)
	t.Setenv("FAKE_FFMPEG_MODE", "hang")
	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "videoLinks.txt"), testShape)
	o, _ := newTestOrchestrator(t, bin, store, 200*time.Millisecond)

	start := time.Now()
	job := o.Run(context.Background(), NewJob("a3", writeSource(t), "", t.TempDir()))

	assert.Equal(t, StateFailed, job.State)
	assert.ErrorIs(t, job.Err, ErrEngineTimeout)
	assert.Equal(t, "engine_timeout", job.Kind)
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestRun_catalog_write_failure(t *testing.T) {
	bin := writeFakeFFmpeg(t)
	o, rec := newTestOrchestrator(t, bin, failingStore{}, time.Minute)

	job := o.Run(context.Background(), NewJob("a4", writeSource(t), "", t.TempDir()))

	assert.Equal(t, StateFailed, job.State)
	assert.ErrorIs(t, job.Err, ErrCatalogWrite)
	assert.ErrorIs(t, job.Err, os.ErrPermission)
	assert.Empty(t, job.URL)
	assert.Equal(t, []State{StateRunning, StateFailed}, rec.states)
	// Media and master exist; only the catalog step is missing.
	assert.FileExists(t, filepath.Join(job.OutputDir, manifest.MasterFile))
}

func TestRun_probe_failure_is_not_fatal(t *testing.T) {
	bin := writeFakeFFmpeg(t)
	store := catalog.NewFileStore(filepath.Join(t.TempDir(), "videoLinks.txt"), testShape)
	engine := NewEngine(bin, time.Minute)
	o := New(Options{
		Engine:  engine,
		Prober:  probeFunc(func(context.Context, string) (float64, bool) { return 0, false }),
		Catalog: store,
		Shape:   testShape,
		Logger:  logger.Discard(),
	})

	job := o.Run(context.Background(), NewJob("a5", writeSource(t), "", t.TempDir()))

	require.Equal(t, StateSucceeded, job.State, "failure: %s", job.Failure)
	assert.Nil(t, job.Duration)
	e, ok, err := store.FindByAssetID("a5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, e.Duration)
}

type probeFunc func(context.Context, string) (float64, bool)

func (f probeFunc) Probe(ctx context.Context, source string) (float64, bool) { return f(ctx, source) }

func TestEngine_Status(t *testing.T) {
	bin := writeFakeFFmpeg(t)

	st := NewEngine(bin, 0).Status(context.Background())
	assert.True(t, st.Available)
	assert.Equal(t, bin, st.Path)
	assert.Equal(t, "ffmpeg version 6.1-test Copyright (c) 2000-2023 the FFmpeg developers", st.Version)

	missing := NewEngine(filepath.Join(t.TempDir(), "nope"), 0).Status(context.Background())
	assert.False(t, missing.Available)
	assert.NotEmpty(t, missing.Error)
}

func TestBuildArgs(t *testing.T) {
	l := ladder.Default()
	args := BuildArgs("/in/src.mp4", "/out/abc", l)

	assert.Equal(t, []string{"-hide_banner", "-y", "-i", "/in/src.mp4"}, args[:4])
	assert.Equal(t, 1, strings.Count(strings.Join(args, " "), "-i "))

	var outputs, patterns []string
	for i, a := range args {
		if a == "-hls_segment_filename" {
			patterns = append(patterns, args[i+1])
			outputs = append(outputs, args[i+2])
		}
	}
	assert.Equal(t, []string{
		"/out/abc/360p_%03d.ts", "/out/abc/480p_%03d.ts", "/out/abc/720p_%03d.ts", "/out/abc/1080p_%03d.ts",
	}, patterns)
	assert.Equal(t, []string{
		"/out/abc/360p.m3u8", "/out/abc/480p.m3u8", "/out/abc/720p.m3u8", "/out/abc/1080p.m3u8",
	}, outputs)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-vf scale=w=1280:h=720:force_original_aspect_ratio=decrease")
	assert.Contains(t, joined, "-hls_time 4 -hls_playlist_type vod -b:v 2800k -maxrate 2996k -bufsize 4200k -b:a 128k")
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "  Duration: 00:01:02.50, start: 0.000000", want: 62.5, ok: true},
		{in: "Duration: 01:00:00.00, bitrate", want: 3600, ok: true},
		{in: "Duration: 10:02:03, start", want: 36123, ok: true},
		{in: "Duration: N/A, bitrate: N/A"},
		{in: ""},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestTailBuffer(t *testing.T) {
	tb := tailBuffer{max: 8}
	_, _ = tb.Write([]byte("hello "))
	_, _ = tb.Write([]byte("world"))
	assert.Equal(t, "lo world", tb.String())

	_, _ = tb.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", tb.String())
}

func TestJobError(t *testing.T) {
	err := error(&JobError{Kind: ErrCatalogWrite, Detail: "disk full", Err: os.ErrPermission})
	assert.True(t, errors.Is(err, ErrCatalogWrite))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.False(t, errors.Is(err, ErrEngineFailure))
	assert.Equal(t, "catalog write failed: disk full", err.Error())
	assert.Equal(t, "catalog_write", KindName(err))
	assert.Equal(t, "", KindName(nil))
	assert.Equal(t, "other", KindName(errors.New("x")))
}
