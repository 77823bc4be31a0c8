package api

import (
	"log/slog"
	"net/http"

	"github.com/festcal/festcal/internal/export"
	"github.com/festcal/festcal/internal/metrics"
)

// SetupRoutes configures all API routes on the provided mux.
func SetupRoutes(mux *http.ServeMux, store EventStore, calendar *export.Generator, collector *metrics.Collector, logger *slog.Logger) {
	handler := NewHandler(store, calendar, logger)
	caldavHandler := NewCalDAVHandler(calendar, logger)

	instrument := func(fn http.HandlerFunc) http.Handler {
		if collector == nil {
			return fn
		}
		return collector.InstrumentHandler(fn)
	}

	mux.Handle("/api/events", instrument(handler.GetEventsHandler))
	mux.Handle("/api/events/", instrument(handler.GetEventsHandler))
	mux.Handle("/api/cities", instrument(handler.GetCitiesHandler))
	mux.Handle("/api/categories", instrument(handler.GetCategoriesHandler))
	mux.Handle("/api/stats", instrument(handler.GetStatsHandler))
	mux.Handle("/calendar.ics", instrument(handler.GetCalendarHandler))
	mux.Handle("/caldav/", instrument(caldavHandler.ServeHTTP))

	mux.HandleFunc("/health", handler.HealthHandler)
	if collector != nil {
		mux.Handle("/metrics", collector.Handler())
	}
}
