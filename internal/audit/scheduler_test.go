package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hls-ingest/internal/manifest"
	"hls-ingest/internal/platform/logger"
)

func TestNewScheduler_rejects_bad_schedule(t *testing.T) {
	f := newFixture(t)
	_, err := NewScheduler(f.auditor, "every now and then", logger.Discard())
	assert.Error(t, err)
}

func TestScheduler_Sweep_repairs(t *testing.T) {
	f := newFixture(t)
	dir := f.asset(t, "late", map[string]string{"360p_000.ts": "x", "360p_001.ts": "x"})

	s, err := NewScheduler(f.auditor, "@every 1h", logger.Discard())
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.Sweep()

	assert.FileExists(t, filepath.Join(dir, manifest.MasterFile))
	assert.FileExists(t, filepath.Join(dir, "360p.m3u8"))
}
