package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"hls-ingest/internal/audit"
	"hls-ingest/internal/catalog"
	"hls-ingest/internal/platform/metrics"
)

// Handler exposes the Service over HTTP using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ping", h.Ping)
	r.Get("/status", h.Status)
	r.Get("/videos", h.ListVideos)
	r.Post("/audit", h.Audit)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/{asset_id}", h.GetJob)
	})
}

type submitRequest struct {
	SourcePath   string `json:"source_path"`
	OriginalName string `json:"original_name"`
	// Wait holds the request open until the job is terminal.
	Wait bool `json:"wait"`
}

// SubmitJob handles POST /jobs.
// Body: { "source_path": "/tmp/upload.mp4", "original_name": "clip.mp4", "wait": false }.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid job body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SourcePath == "" {
		writeError(w, http.StatusBadRequest, "source_path is required")
		return
	}

	id, err := h.svc.SubmitJob(req.SourcePath, req.OriginalName)
	switch {
	case errors.Is(err, ErrInvalidSource):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrServiceClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.log.Error("submit job failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not submit job")
		return
	}

	if !req.Wait {
		writeJSON(w, http.StatusAccepted, map[string]string{"asset_id": id})
		return
	}

	job, err := h.svc.Await(r.Context(), id)
	if err != nil {
		// Client went away; the job keeps running and stays queryable.
		h.log.Info("wait for job abandoned", slog.String("asset_id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusAccepted, map[string]string{"asset_id": id})
		return
	}
	writeJSON(w, jobStatusCode(job), job)
}

// GetJob handles GET /jobs/{asset_id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "asset_id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	job, ok := h.svc.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrJobNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type videosResponse struct {
	VideoURLs  []string       `json:"videoUrls"`
	VideosData []videoPayload `json:"videosData"`
}

type videoPayload struct {
	catalog.Record
	Degraded bool `json:"degraded,omitempty"`
}

// ListVideos handles GET /videos.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListCatalog()
	if err != nil {
		h.log.Error("read catalog failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "could not read catalog")
		return
	}
	if h.metrics != nil {
		h.metrics.SetCatalogRecords(len(entries))
	}
	writeJSON(w, http.StatusOK, videosResponse{
		VideoURLs: lo.Map(entries, func(e catalog.Entry, _ int) string { return e.URL }),
		VideosData: lo.Map(entries, func(e catalog.Entry, _ int) videoPayload {
			return videoPayload{Record: e.Record, Degraded: e.Degraded}
		}),
	})
}

// Audit handles POST /audit?repair=true.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	repair := false
	if v := r.URL.Query().Get("repair"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "repair must be a boolean")
			return
		}
		repair = b
	}

	rep, err := h.svc.AuditNow(r.Context(), repair)
	if errors.Is(err, audit.ErrSweepInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error("audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "audit failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.log.Error("status failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Ping handles GET /ping.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "server is working"})
}

func jobStatusCode(job TranscodeJob) int {
	switch {
	case job.State == StateSucceeded:
		return http.StatusCreated
	case errors.Is(job.Err, ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(job.Err, ErrEngineTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
