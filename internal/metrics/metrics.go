package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and
// scrape pipeline runs. It satisfies the pipeline's run recorder.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	eventsFound  *prometheus.CounterVec
	eventsValid  *prometheus.CounterVec
	eventsUnique *prometheus.CounterVec
	eventsStored *prometheus.CounterVec
	runErrors    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "festcal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	eventsFound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "events_found_total",
		Help:      "Event occurrences extracted from source pages.",
	}, []string{"source"})

	eventsValid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "events_valid_total",
		Help:      "Event occurrences that passed validation.",
	}, []string{"source"})

	eventsUnique := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "events_unique_total",
		Help:      "Event occurrences remaining after deduplication.",
	}, []string{"source"})

	eventsStored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "events_stored_total",
		Help:      "New event rows created in the store.",
	}, []string{"source"})

	runErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "run_errors_total",
		Help:      "Errors encountered during scrape runs.",
	}, []string{"source"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "festcal",
		Subsystem: "scrape",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of per-source scrape runs.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"source"})

	collectors := []prometheus.Collector{
		requestDuration, requestTotal,
		eventsFound, eventsValid, eventsUnique, eventsStored,
		runErrors, runDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		eventsFound:     eventsFound,
		eventsValid:     eventsValid,
		eventsUnique:    eventsUnique,
		eventsStored:    eventsStored,
		runErrors:       runErrors,
		runDuration:     runDuration,
	}, nil
}

// RecordRun records the outcome of one per-source scrape run.
func (c *Collector) RecordRun(source string, found, valid, unique, stored, errors int, duration time.Duration) {
	c.eventsFound.WithLabelValues(source).Add(float64(found))
	c.eventsValid.WithLabelValues(source).Add(float64(valid))
	c.eventsUnique.WithLabelValues(source).Add(float64(unique))
	c.eventsStored.WithLabelValues(source).Add(float64(stored))
	c.runErrors.WithLabelValues(source).Add(float64(errors))
	c.runDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
