package handlers

import (
	"net/http"
	"time"

	"github.com/HollandReese/bulwark/internal/services"
	pkghttp "github.com/HollandReese/bulwark/pkg/http"
)

// ReportHandler serves the read-only reporting surface
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// EventReport returns grouped event counts over a lookback window.
// The window defaults to 24h and accepts a Go duration in ?lookback=.
func (h *ReportHandler) EventReport(w http.ResponseWriter, r *http.Request) {
	lookback := 24 * time.Hour
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			pkghttp.WriteBadRequest(w, "invalid lookback duration")
			return
		}
		lookback = parsed
	}

	report, err := h.reports.EventReport(r.Context(), lookback)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to build event report")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, report)
}

// Summary returns the dashboard snapshot
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to build summary")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

// TopOffenders returns the worst offending addresses of the last 24 hours
func (h *ReportHandler) TopOffenders(w http.ResponseWriter, r *http.Request) {
	offenders, err := h.reports.TopOffenders(r.Context(), 10)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to list top offenders")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, offenders)
}
