package api

import (
	"log/slog"
	"net/http"

	"github.com/festcal/festcal/internal/export"
	"github.com/festcal/festcal/internal/models"
)

// CalDAVHandler serves a minimal read-only CalDAV surface: clients can
// discover the collection and fetch the aggregate calendar, nothing is
// writable.
type CalDAVHandler struct {
	calendar *export.Generator
	logger   *slog.Logger
}

func NewCalDAVHandler(calendar *export.Generator, logger *slog.Logger) *CalDAVHandler {
	return &CalDAVHandler{calendar: calendar, logger: logger}
}

const propfindResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/caldav/events/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <d:displayname>Rhein-Main Events</d:displayname>
        <c:supported-calendar-component-set>
          <c:comp name="VEVENT"/>
        </c:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

func (h *CalDAVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("DAV", "1, calendar-access")
		w.Header().Set("Allow", "OPTIONS, GET, PROPFIND, REPORT")
		w.WriteHeader(http.StatusOK)
	case "PROPFIND":
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		if _, err := w.Write([]byte(propfindResponse)); err != nil {
			h.logger.Error("failed to write propfind response", "error", err)
		}
	case http.MethodGet, "REPORT":
		h.serveCalendar(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalDAVHandler) serveCalendar(w http.ResponseWriter, r *http.Request) {
	data, count, err := h.calendar.Bytes(r.Context(), models.EventFilter{})
	if err != nil {
		h.logger.Error("failed to build caldav calendar", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("serving caldav calendar", "events", count)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write caldav response", "error", err)
	}
}
