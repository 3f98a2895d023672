package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "FFMPEG_PATH", "ENGINE_TIMEOUT", "AUDIT_SCHEDULE", "MAX_CONCURRENT_JOBS"} {
		t.Setenv(k, "")
	}

	c := FromEnv()
	if c.Port != "8000" || c.FFmpegPath != "ffmpeg" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.EngineTimeout != 30*time.Minute {
		t.Errorf("engine timeout: got %v", c.EngineTimeout)
	}
	if c.AuditSchedule != "@every 1h" || c.MaxConcurrentJobs != 2 {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestFromEnv_overrides(t *testing.T) {
	t.Setenv("ENGINE_TIMEOUT", "90s")
	t.Setenv("MAX_CONCURRENT_JOBS", "not-a-number")
	t.Setenv("AUDIT_SCHEDULE", "off")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	c := FromEnv()
	if c.EngineTimeout != 90*time.Second {
		t.Errorf("engine timeout: got %v", c.EngineTimeout)
	}
	if c.MaxConcurrentJobs != 2 {
		t.Errorf("invalid int should fall back: got %d", c.MaxConcurrentJobs)
	}
	if c.AuditSchedule != "" {
		t.Errorf("schedule should be disabled: %q", c.AuditSchedule)
	}
	if c.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg path: got %q", c.FFmpegPath)
	}
}

func TestLoad_dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HLS_TEST_LOAD_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("HLS_TEST_LOAD_KEY") })

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("HLS_TEST_LOAD_KEY", "fallback"); got != "from-file" {
		t.Errorf("got %q", got)
	}
}
