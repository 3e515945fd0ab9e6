package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendRequest("login", 200, 120*time.Millisecond)
	c.RecordBackendRequest("list_decisions", 401, 30*time.Millisecond)
	c.RecordBackendRequest("list_decisions", 0, time.Second)
	c.RecordLogin("credentials")
	c.RecordLoginFailure()
	c.RecordAIRequest("strategy")
	c.RecordForcedLogout()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	want := []string{
		"kimeru_backend_requests_total",
		"kimeru_backend_latency_seconds",
		"kimeru_logins_total",
		"kimeru_login_failures_total",
		"kimeru_ai_requests_total",
		"kimeru_forced_logouts_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("credentials")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kimeru_logins_total") {
		t.Error("scrape output should contain kimeru_logins_total")
	}
}
