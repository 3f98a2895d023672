package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"hls-ingest/internal/catalog"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/manifest"
)

// Orchestrator runs transcode jobs. It holds no per-job state, so Run may be
// called concurrently for jobs with distinct asset ids.
type Orchestrator struct {
	engine   *Engine
	prober   DurationProber
	catalog  catalog.Store
	shape    catalog.URLShape
	ladder   *ladder.Ladder
	log      *slog.Logger
	observer func(TranscodeJob)
}

// Options wires an Orchestrator. Prober and Observer are optional.
type Options struct {
	Engine  *Engine
	Prober  DurationProber
	Catalog catalog.Store
	Shape   catalog.URLShape
	Ladder  *ladder.Ladder
	Logger  *slog.Logger
	// Observer receives a copy of the job after each state change.
	Observer func(TranscodeJob)
}

// New returns an Orchestrator. A nil Ladder means ladder.Default().
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		engine:   opts.Engine,
		prober:   opts.Prober,
		catalog:  opts.Catalog,
		shape:    opts.Shape,
		ladder:   opts.Ladder,
		log:      opts.Logger,
		observer: opts.Observer,
	}
	if o.ladder == nil {
		o.ladder = ladder.Default()
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Run drives job to a terminal state and returns it. Failures are recorded
// on the job (State, Err, Failure), never returned separately.
//
// The order is fixed: resolve the encoder, create the output directory,
// probe duration, encode all tiers in one pass, write the master manifest,
// append the catalog record. The job succeeds only after the append.
func (o *Orchestrator) Run(ctx context.Context, job *TranscodeJob) *TranscodeJob {
	if job.Ladder == nil {
		job.Ladder = o.ladder
	}
	log := o.log.With(slog.String("asset_id", job.AssetID))

	bin, err := o.engine.Resolve()
	if err != nil {
		return o.finish(log, job, err)
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return o.finish(log, job, &JobError{Kind: ErrEngineFailure, Detail: "create output directory", Err: err})
	}

	if o.prober != nil {
		if d, ok := o.prober.Probe(ctx, job.SourcePath); ok {
			job.Duration = &d
		} else {
			log.Warn("source duration unavailable", slog.String("source", job.SourcePath))
		}
	}

	job.State = StateRunning
	job.StartedAt = time.Now().UTC()
	o.notify(job)
	log.Info("transcode started", slog.String("source", job.SourcePath), slog.Any("tiers", job.Ladder.Names()))

	if err := o.engine.Transcode(ctx, bin, BuildArgs(job.SourcePath, job.OutputDir, job.Ladder)); err != nil {
		return o.finish(log, job, err)
	}

	masterPath := filepath.Join(job.OutputDir, manifest.MasterFile)
	if err := manifest.WriteFile(masterPath, manifest.MasterTemplate(job.Ladder)); err != nil {
		return o.finish(log, job, &JobError{Kind: ErrEngineFailure, Detail: "write master manifest", Err: err})
	}

	rec := catalog.Record{
		URL:        o.shape.ManifestURL(job.AssetID),
		ID:         job.AssetID,
		UploadDate: time.Now().UTC(),
		Duration:   job.Duration,
	}
	if info, err := os.Stat(job.SourcePath); err == nil {
		size := catalog.SizeMB(info.Size())
		rec.FileSizeMB = &size
	}
	if job.OriginalName != "" {
		name := job.OriginalName
		rec.OriginalName = &name
	}
	if err := o.catalog.Append(rec); err != nil {
		return o.finish(log, job, &JobError{Kind: ErrCatalogWrite, Detail: err.Error(), Err: err})
	}

	job.URL = rec.URL
	return o.finish(log, job, nil)
}

func (o *Orchestrator) finish(log *slog.Logger, job *TranscodeJob, err error) *TranscodeJob {
	if err != nil {
		job.fail(err)
		log.Error("transcode failed",
			slog.String("kind", job.Kind),
			slog.String("error", job.Failure))
	} else {
		job.State = StateSucceeded
		job.FinishedAt = time.Now().UTC()
		log.Info("transcode succeeded", slog.String("url", job.URL))
	}
	o.notify(job)
	return job
}

func (o *Orchestrator) notify(job *TranscodeJob) {
	if o.observer != nil {
		o.observer(*job)
	}
}
