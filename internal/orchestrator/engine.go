package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hls-ingest/internal/ladder"
)

// stderrTail is how much encoder diagnostic output is kept for failure detail.
const stderrTail = 4 << 10

// Engine drives the external encoder binary.
type Engine struct {
	// Binary is the configured location: a bare name looked up on PATH, or a path.
	Binary  string
	Timeout time.Duration
}

// NewEngine returns an Engine for binary with a per-invocation time bound.
// A zero timeout means no bound beyond the caller's context.
func NewEngine(binary string, timeout time.Duration) *Engine {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Engine{Binary: binary, Timeout: timeout}
}

// Resolve returns the absolute path of the encoder binary or an error wrapping
// ErrEngineUnavailable.
func (e *Engine) Resolve() (string, error) {
	path, err := exec.LookPath(e.Binary)
	if err != nil {
		return "", &JobError{Kind: ErrEngineUnavailable, Detail: e.Binary, Err: err}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

// EngineStatus describes the encoder as seen from this process.
type EngineStatus struct {
	Configured string `json:"configured"`
	Path       string `json:"path,omitempty"`
	Available  bool   `json:"available"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Status resolves the binary and asks it for its version.
func (e *Engine) Status(ctx context.Context) EngineStatus {
	st := EngineStatus{Configured: e.Binary}
	path, err := e.Resolve()
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Path = path

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		st.Error = fmt.Sprintf("run %s -version: %v", path, err)
		return st
	}
	st.Available = true
	st.Version, _, _ = strings.Cut(strings.TrimSpace(string(out)), "\n")
	return st
}

// Transcode runs the encoder at bin with args. It returns a *JobError of kind
// ErrEngineTimeout when the time bound expires (the process is killed) and
// ErrEngineFailure on any other failure, with the tail of stderr as detail.
func (e *Engine) Transcode(ctx context.Context, bin string, args []string) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stderr tailBuffer
	stderr.max = stderrTail
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &JobError{Kind: ErrEngineTimeout, Detail: "killed after " + e.Timeout.String(), Err: ctx.Err()}
	}
	detail := lastLines(stderr.String(), 5)
	if detail == "" {
		detail = err.Error()
	} else {
		detail = err.Error() + ": " + detail
	}
	return &JobError{Kind: ErrEngineFailure, Detail: detail, Err: err}
}

// BuildArgs returns one encoder invocation that writes every ladder tier into
// outDir: <tier>_%03d.<ext> segments and a <tier>.m3u8 variant manifest each.
func BuildArgs(source, outDir string, l *ladder.Ladder) []string {
	args := []string{"-hide_banner", "-y", "-i", source}
	for _, t := range l.Tiers() {
		seg := strconv.Itoa(t.SegmentSeconds)
		args = append(args,
			"-vf", fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", t.Width, t.Height),
			"-c:a", "aac", "-ar", "48000",
			"-c:v", "h264", "-profile:v", "main", "-crf", "20",
			"-sc_threshold", "0", "-g", "48", "-keyint_min", "48",
			"-hls_time", seg, "-hls_playlist_type", "vod",
			"-b:v", kbps(t.VideoBitrate), "-maxrate", kbps(t.MaxRate), "-bufsize", kbps(t.BufSize),
			"-b:a", kbps(t.AudioBitrate),
			"-f", "hls",
			"-hls_segment_filename", filepath.Join(outDir, t.SegmentPattern(l.SegmentExt)),
			filepath.Join(outDir, t.VariantFile()),
		)
	}
	return args
}

func kbps(n int) string { return strconv.Itoa(n) + "k" }

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf.Reset()
		p = p[len(p)-t.max:]
	} else if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }

// lastLines returns the last n non-blank lines of s joined by " | ".
func lastLines(s string, n int) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
