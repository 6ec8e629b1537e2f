package control

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(5 * time.Millisecond)
	m.SetSessions(2, 1)
	m.AddScriptErrors(3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "lodestone_tick_duration_seconds") {
		t.Fatalf("expected tick duration metric in output, got:\n%s", body)
	}
	if !strings.Contains(body, "lodestone_script_errors_total 3") {
		t.Fatalf("expected script error count in output, got:\n%s", body)
	}
}

func TestTwoLoopsDoNotCollideOnRegistration(t *testing.T) {
	// Each NewLoop call registers its own Metrics; a shared default
	// registry would panic here on the second registration.
	_ = newTestLoop(t)
	_ = newTestLoop(t)
}
