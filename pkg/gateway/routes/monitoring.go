package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/earlycare-ai/gateway/pkg/gateway"
	"github.com/earlycare-ai/gateway/pkg/monitoring"
	obsmetrics "github.com/earlycare-ai/gateway/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

// MonitoringHandler exposes the observers' views: aggregate metrics, the
// performance summary, and the audit trail.
type MonitoringHandler struct {
	gw      *gateway.Gateway
	metrics *monitoring.MetricsObserver
	perf    *monitoring.PerformanceObserver
	audit   *monitoring.AuditObserver
}

func NewMonitoringHandler(gw *gateway.Gateway, metrics *monitoring.MetricsObserver, perf *monitoring.PerformanceObserver, audit *monitoring.AuditObserver) *MonitoringHandler {
	return &MonitoringHandler{gw: gw, metrics: metrics, perf: perf, audit: audit}
}

func (h *MonitoringHandler) Register(r *mux.Router) {
	r.HandleFunc("/monitoring/metrics", h.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/performance", h.handlePerformance).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/alerts", h.handleAlerts).Methods(http.MethodGet)
	r.HandleFunc("/audit/trail", h.handleAuditTrail).Methods(http.MethodGet)
	r.HandleFunc("/statistics", h.handleStatistics).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handlePrometheus).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

func (h *MonitoringHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.Error(w, "metrics observer not attached", http.StatusNotImplemented)
		return
	}
	writeJSON(w, h.metrics.Snapshot())
}

func (h *MonitoringHandler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if h.perf == nil {
		http.Error(w, "performance observer not attached", http.StatusNotImplemented)
		return
	}
	writeJSON(w, h.perf.Summary())
}

func (h *MonitoringHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if h.perf == nil {
		http.Error(w, "performance observer not attached", http.StatusNotImplemented)
		return
	}

	count := 20
	if val := r.URL.Query().Get("count"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			count = parsed
		}
	}
	writeJSON(w, map[string]interface{}{"alerts": h.perf.RecentAlerts(count)})
}

// handleAuditTrail filters the in-memory trail by start/end (RFC3339),
// event_type and patient_id query parameters.
func (h *MonitoringHandler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		http.Error(w, "audit observer not attached", http.StatusNotImplemented)
		return
	}

	filter := monitoring.TrailFilter{
		EventType: r.URL.Query().Get("event_type"),
		PatientID: r.URL.Query().Get("patient_id"),
	}
	if val := r.URL.Query().Get("start"); val != "" {
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			http.Error(w, "invalid start timestamp", http.StatusBadRequest)
			return
		}
		filter.Start = t
	}
	if val := r.URL.Query().Get("end"); val != "" {
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			http.Error(w, "invalid end timestamp", http.StatusBadRequest)
			return
		}
		filter.End = t
	}

	entries := h.audit.Trail(filter)
	writeJSON(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *MonitoringHandler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.gw.Statistics())
}

func (h *MonitoringHandler) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		obsmetrics.ObserveRequestCounts(snap.RequestsTotal, snap.RequestsCompleted,
			snap.RequestsFailed, snap.DiagnosesMade, snap.AvgProcessingTimeMs)
		obsmetrics.ObserveUrgencyLevels(snap.UrgencyLevels)
	}
	obsmetrics.WritePrometheus(w)
}

func (h *MonitoringHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.gw.HealthCheck())
}
