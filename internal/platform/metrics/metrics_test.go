package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics, update func()) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(update).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMetrics_job_lifecycle(t *testing.T) {
	m := New()
	m.IncJobsSubmitted()
	m.JobStarted()
	m.JobStarted()
	m.JobFinished("failed", "engine_timeout", 3*time.Second)

	body := scrape(t, m, nil)
	for _, want := range []string{
		"hls_jobs_submitted_total 1",
		"hls_active_jobs 1",
		`hls_jobs_finished_total{kind="engine_timeout",state="failed"} 1`,
		"hls_transcode_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestMetrics_Handler_refreshes_gauges(t *testing.T) {
	m := New()
	body := scrape(t, m, func() { m.SetCatalogRecords(7) })
	if !strings.Contains(body, "hls_catalog_records 7") {
		t.Errorf("gauge not refreshed:\n%s", body)
	}
}

func TestRequestMiddleware_counts_errors_by_route(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(RequestMiddleware(m))
	r.Get("/jobs/{asset_id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "asset_id") == "gone" {
			w.WriteHeader(http.StatusNotFound)
		}
	})

	for _, p := range []string{"/jobs/a", "/jobs/gone", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	body := scrape(t, m, nil)
	for _, want := range []string{
		"hls_requests_total 3",
		"hls_errors_total 2",
		`hls_request_duration_seconds_count{method="GET",route="/jobs/{asset_id}"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}
