package orchestrator

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// DurationProber extracts a source's duration in seconds. ok is false when the
// duration could not be determined; that never fails a job.
type DurationProber interface {
	Probe(ctx context.Context, source string) (seconds float64, ok bool)
}

// probeTimeout bounds one metadata probe.
const probeTimeout = 30 * time.Second

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// FFmpegProber reads the "Duration: HH:MM:SS.cc" line the encoder prints for
// its input.
type FFmpegProber struct {
	engine *Engine
}

// NewFFmpegProber returns a prober that uses e's binary.
func NewFFmpegProber(e *Engine) *FFmpegProber {
	return &FFmpegProber{engine: e}
}

// Probe implements DurationProber.
func (p *FFmpegProber) Probe(ctx context.Context, source string) (float64, bool) {
	bin, err := p.engine.Resolve()
	if err != nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// Without an output file the encoder exits nonzero after printing the
	// input summary, so the exit status is ignored.
	out, _ := exec.CommandContext(ctx, bin, "-hide_banner", "-i", source).CombinedOutput()
	return ParseDuration(string(out))
}

// ParseDuration finds the first duration line in encoder output.
func ParseDuration(output string) (float64, bool) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h*3600+mins*60) + sec, true
}
