package api

import (
	"fmt"
	"net/http"

	"github.com/soaringjerry/MoodMetrics/internal/middleware"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

// GET /api/dashboard/metrics
func (rt *Router) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := rt.dashboard.Metrics(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GET /api/dashboard/dynamics
func (rt *Router) handleDynamics(w http.ResponseWriter, r *http.Request) {
	pts, err := rt.dashboard.Dynamics(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

// GET /api/dashboard/problem-zones
func (rt *Router) handleProblemZones(w http.ResponseWriter, r *http.Request) {
	zones, err := rt.dashboard.ProblemZones(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

// GET /api/dashboard/recommendations
func (rt *Router) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := rt.dashboard.Recommendations(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GET /api/zones/heatmap
func (rt *Router) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	cells, err := rt.dashboard.Heatmap(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

// GET /api/notifications
func (rt *Router) handleNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := rt.dashboard.Notifications(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/dashboard/export?format=xlsx|csv|zones
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	var (
		contentType string
		ext         string
		render      func(*services.DashboardReport) ([]byte, error)
	)
	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = "xlsx"
		render = services.ExportWorkbook
	case "csv":
		contentType = "text/csv; charset=utf-8"
		ext = "csv"
		render = func(rep *services.DashboardReport) ([]byte, error) { return services.ExportLongCSV(rep.Answers) }
	case "zones":
		contentType = "text/csv; charset=utf-8"
		ext = "csv"
		render = func(rep *services.DashboardReport) ([]byte, error) { return services.ExportZonesCSV(rep.Zones) }
	default:
		writeMessage(w, http.StatusBadRequest, "unsupported format")
		return
	}

	rep, err := rt.dashboard.Report(r.Context(), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	b, err := render(rep)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("moodmetrics-%s-%s.%s", format, rep.GeneratedAt.Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	_, _ = w.Write(b)
}
