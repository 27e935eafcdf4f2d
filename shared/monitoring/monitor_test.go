package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor()
	m.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	if !m.IsHealthy() {
		t.Error("a monitor with no runs should be healthy")
	}
	if got := m.GetStatusSummary(); got != "No runs yet" {
		t.Errorf("GetStatusSummary() = %q", got)
	}

	m.RecordPartialFailure(errors.New("one video failed"), time.Second)
	if !m.IsHealthy() {
		t.Error("partial failures should not change health")
	}

	m.RecordCriticalFailure(errors.New("gemini unreachable"), time.Second)
	if m.IsHealthy() {
		t.Error("monitor should be unhealthy after a critical failure")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "gemini unreachable") || !strings.Contains(got, "Mar 14 09:00") {
		t.Errorf("GetStatusSummary() = %q", got)
	}

	m.RecordSuccess("analyzed 2 videos", time.Second)
	if !m.IsHealthy() {
		t.Error("monitor should recover after a successful run")
	}
	if got := m.GetStatusSummary(); !strings.Contains(got, "[2 runs, 1 failed]") {
		t.Errorf("GetStatusSummary() = %q", got)
	}
}

func TestHealthServerHandlers(t *testing.T) {
	m := NewMonitor()
	h := NewHealthServer(m, "")
	handler := h.Handler()

	tests := []struct {
		name       string
		path       string
		fail       bool
		wantStatus int
		wantPrefix string
	}{
		{"Healthy", "/health", false, http.StatusOK, "OK - "},
		{"Unhealthy", "/health", true, http.StatusServiceUnavailable, "Service unhealthy - "},
		{"Status", "/status", true, http.StatusOK, "❌ Last run failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fail {
				m.RecordCriticalFailure(errors.New("boom"), 0)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.HasPrefix(rec.Body.String(), tt.wantPrefix) {
				t.Errorf("body = %q, want prefix %q", rec.Body.String(), tt.wantPrefix)
			}
		})
	}
}
