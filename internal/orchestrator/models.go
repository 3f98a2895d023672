package orchestrator

import (
	"path/filepath"
	"time"

	"hls-ingest/internal/ladder"
)

// State is a job's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// TranscodeJob is one uploaded source on its way to publication.
// It is owned by the goroutine running it; others see copies.
type TranscodeJob struct {
	AssetID      string `json:"asset_id"`
	SourcePath   string `json:"source_path"`
	OriginalName string `json:"original_name,omitempty"`
	// OutputDir is <published root>/<AssetID>.
	OutputDir string         `json:"output_dir"`
	Ladder    *ladder.Ladder `json:"-"`

	State    State    `json:"state"`
	Duration *float64 `json:"duration,omitempty"`
	URL      string   `json:"url,omitempty"`
	Failure  string   `json:"failure,omitempty"`
	// Kind is the KindName of Err, empty on success.
	Kind string `json:"failure_kind,omitempty"`
	Err  error  `json:"-"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// NewJob returns a pending job writing into root/assetID.
func NewJob(assetID, sourcePath, originalName, root string) *TranscodeJob {
	return &TranscodeJob{
		AssetID:      assetID,
		SourcePath:   sourcePath,
		OriginalName: originalName,
		OutputDir:    filepath.Join(root, assetID),
		State:        StatePending,
		CreatedAt:    time.Now().UTC(),
	}
}

func (j *TranscodeJob) fail(err error) {
	j.State = StateFailed
	j.Err = err
	j.Failure = err.Error()
	j.Kind = KindName(err)
	j.FinishedAt = time.Now().UTC()
}
