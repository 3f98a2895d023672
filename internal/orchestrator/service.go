package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"hls-ingest/internal/audit"
	"hls-ingest/internal/catalog"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/platform/metrics"
)

// DefaultMaxConcurrent is the default number of jobs encoding at once.
const DefaultMaxConcurrent = 2

// ErrServiceClosed is returned by SubmitJob after Shutdown has begun.
var ErrServiceClosed = errors.New("service is shutting down")

// Auditor is the part of audit.Auditor the Service needs.
type Auditor interface {
	Scan(ctx context.Context) (*audit.Report, error)
	Repair(ctx context.Context) (*audit.Report, error)
}

// ServiceConfig wires a Service. Prober, Auditor and Metrics are optional.
type ServiceConfig struct {
	Engine        *Engine
	Prober        DurationProber
	Catalog       catalog.Store
	Shape         catalog.URLShape
	Ladder        *ladder.Ladder
	Auditor       Auditor
	PublishedRoot string
	MaxConcurrent int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Service is the upstream caller contract: submit jobs, await them, list the
// catalog and run audits. Jobs run in the background, at most MaxConcurrent
// at a time.
type Service struct {
	orch    *Orchestrator
	jobs    *Registry
	engine  *Engine
	catalog catalog.Store
	auditor Auditor
	root    string
	log     *slog.Logger
	metrics *metrics.Metrics

	sem    chan struct{}
	newID  func() string
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService returns a running Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		jobs:    NewRegistry(),
		engine:  cfg.Engine,
		catalog: cfg.Catalog,
		auditor: cfg.Auditor,
		root:    cfg.PublishedRoot,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		newID:   uuid.NewString,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.orch = New(Options{
		Engine:   cfg.Engine,
		Prober:   cfg.Prober,
		Catalog:  cfg.Catalog,
		Shape:    cfg.Shape,
		Ladder:   cfg.Ladder,
		Logger:   cfg.Logger,
		Observer: s.jobs.Update,
	})
	return s
}

// SubmitJob validates the source, registers a pending job and starts it in
// the background. It returns the generated asset id.
func (s *Service) SubmitJob(sourcePath, originalName string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidSource, sourcePath)
	}

	job := NewJob(s.newID(), sourcePath, originalName, s.root)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrServiceClosed
	}
	if err := s.jobs.Add(*job); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncJobsSubmitted()
	}
	s.log.Info("job submitted",
		slog.String("asset_id", job.AssetID),
		slog.String("source", sourcePath),
		slog.String("original_name", originalName))

	go s.execute(job)
	return job.AssetID, nil
}

func (s *Service) execute(job *TranscodeJob) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
	case <-s.ctx.Done():
		job.fail(&JobError{Kind: ErrEngineFailure, Detail: "service shut down before start", Err: s.ctx.Err()})
		s.jobs.Update(*job)
		return
	}
	defer func() { <-s.sem }()

	if s.metrics != nil {
		s.metrics.JobStarted()
	}
	start := time.Now()
	s.orch.Run(s.ctx, job)
	if s.metrics != nil {
		s.metrics.JobFinished(string(job.State), job.Kind, time.Since(start))
	}
}

// Await blocks until the job is terminal and returns it. The job is then
// forgotten; a second Await for the same id returns ErrJobNotFound.
func (s *Service) Await(ctx context.Context, assetID string) (TranscodeJob, error) {
	return s.jobs.Wait(ctx, assetID)
}

// Job returns the current state of a job. Terminal jobs are forgotten once
// returned.
func (s *Service) Job(assetID string) (TranscodeJob, bool) {
	return s.jobs.Take(assetID)
}

// ActiveJobs returns the number of jobs not yet terminal.
func (s *Service) ActiveJobs() int {
	return s.jobs.ActiveCount()
}

// ListCatalog returns every catalog entry, oldest first.
func (s *Service) ListCatalog() ([]catalog.Entry, error) {
	return s.catalog.ReadAll()
}

// AuditNow runs a sweep over the published root. With repair set, broken
// master manifests are rewritten.
func (s *Service) AuditNow(ctx context.Context, repair bool) (*audit.Report, error) {
	if s.auditor == nil {
		return nil, errors.New("auditor not configured")
	}
	if repair {
		return s.auditor.Repair(ctx)
	}
	return s.auditor.Scan(ctx)
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Engine         EngineStatus `json:"engine"`
	ActiveJobs     int          `json:"active_jobs"`
	CatalogRecords int          `json:"catalog_records"`
	PublishedRoot  string       `json:"published_root"`
}

// Status reports encoder availability, in-flight jobs and catalog size.
func (s *Service) Status(ctx context.Context) (Status, error) {
	entries, err := s.catalog.ReadAll()
	if err != nil {
		return Status{}, err
	}
	return Status{
		Engine:         s.engine.Status(ctx),
		ActiveJobs:     s.jobs.ActiveCount(),
		CatalogRecords: len(entries),
		PublishedRoot:  s.root,
	}, nil
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running encoders are killed and their jobs fail.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
