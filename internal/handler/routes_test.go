package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"service-a/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer downstream.Close()

	cfg := newTestConfig(downstream.URL)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	fwd := newTestForwarder(t, cfg)

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), NewForwardHandler(fwd, discardLogger()), NewHealthHandler(fwd, "test"))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /status", http.MethodGet, "/status", http.StatusOK},
		{"GET /call-b", http.MethodGet, "/call-b", http.StatusOK},
		{"GET /call-b with query", http.MethodGet, "/call-b?x=1", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"POST /call-b not allowed", http.MethodPost, "/call-b", http.StatusMethodNotAllowed},
		{"GET /ping not routed", http.MethodGet, "/ping", http.StatusNotFound},
		{"GET /unknown", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := newTestConfig("http://service-b:8000")
	cfg.Metrics.Path = "/metrics"
	fwd := newTestForwarder(t, cfg)

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), NewForwardHandler(fwd, discardLogger()), NewHealthHandler(fwd, "test"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterRoutes_MetricsExposition(t *testing.T) {
	cfg := newTestConfig("http://service-b:8000")
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/internal/metrics"
	fwd := newTestForwarder(t, cfg)

	m := metrics.New()
	m.DownstreamErrors.WithLabelValues("transport").Inc()

	e := echo.New()
	RegisterRoutes(e, cfg, m, NewForwardHandler(fwd, discardLogger()), NewHealthHandler(fwd, "test"))

	req := httptest.NewRequest(http.MethodGet, "/internal/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `service_a_downstream_errors_total{kind="transport"} 1`) {
		t.Errorf("exposition missing downstream error counter:\n%s", rec.Body.String())
	}
}
