package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollector_RecordRun(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	collector.RecordRun("frankfurt-stadtevents", 12, 10, 8, 5, 1, 3*time.Second)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	checks := []string{
		`festcal_scrape_events_found_total{source="frankfurt-stadtevents"} 12`,
		`festcal_scrape_events_stored_total{source="frankfurt-stadtevents"} 5`,
		`festcal_scrape_run_errors_total{source="frankfurt-stadtevents"} 1`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollector_InstrumentHandler(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	handler := collector.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	metricsRec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `festcal_http_requests_total{method="GET",path="/api/events",status="202"} 1`
	if !strings.Contains(metricsRec.Body.String(), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
