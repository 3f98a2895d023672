package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hls-ingest/internal/audit"
	"hls-ingest/internal/catalog"
	"hls-ingest/internal/ladder"
	"hls-ingest/internal/orchestrator"
	"hls-ingest/internal/platform/config"
	"hls-ingest/internal/platform/logger"
	"hls-ingest/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := os.MkdirAll(cfg.PublishedRoot, 0o755); err != nil {
		log.Error("create published root", "root", cfg.PublishedRoot, "error", err)
		os.Exit(1)
	}

	l := ladder.Default()
	shape := catalog.URLShape{BaseURL: cfg.PublicBaseURL, Prefix: cfg.PublicPrefix}
	store := catalog.NewFileStore(cfg.CatalogPath, shape)
	engine := orchestrator.NewEngine(cfg.FFmpegPath, cfg.EngineTimeout)
	met := metrics.New()

	auditor := audit.New(cfg.PublishedRoot, l, store,
		audit.WithWorkers(cfg.AuditWorkers),
		audit.WithLogger(log),
		audit.WithMetrics(met),
	)

	svc := orchestrator.NewService(orchestrator.ServiceConfig{
		Engine:        engine,
		Prober:        orchestrator.NewFFmpegProber(engine),
		Catalog:       store,
		Shape:         shape,
		Ladder:        l,
		Auditor:       auditor,
		PublishedRoot: cfg.PublishedRoot,
		MaxConcurrent: cfg.MaxConcurrentJobs,
		Logger:        log,
		Metrics:       met,
	})
	h := orchestrator.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			if n, err := store.Count(); err == nil {
				met.SetCatalogRecords(n)
			}
		}).ServeHTTP(w, r)
	})
	h.Routes(r)

	// Published assets are served where the catalog URLs point.
	prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
	r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.PublishedRoot))))

	var sched *audit.Scheduler
	if cfg.AuditSchedule != "" {
		s, err := audit.NewScheduler(auditor, cfg.AuditSchedule, log)
		if err != nil {
			log.Error("invalid audit schedule", "error", err)
			os.Exit(1)
		}
		sched = s
		sched.Start()
	}

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	status := engine.Status(context.Background())
	log.Info("server starting",
		"port", cfg.Port,
		"published_root", cfg.PublishedRoot,
		"catalog", cfg.CatalogPath,
		"engine_available", status.Available,
		"max_concurrent_jobs", cfg.MaxConcurrentJobs,
		"audit_schedule", cfg.AuditSchedule,
		"log_level", cfg.LogLevel,
	)
	if !status.Available {
		log.Warn("encoder unavailable, jobs will fail until it is installed", "error", status.Error)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := svc.Shutdown(ctx); err != nil {
		log.Error("jobs did not drain", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
