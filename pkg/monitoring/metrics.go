package monitoring

import (
	"sync"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/models"
)

// MetricsSnapshot is a point-in-time view of gateway metrics.
type MetricsSnapshot struct {
	RequestsTotal         int64              `json:"requests_total"`
	RequestsCompleted     int64              `json:"requests_completed"`
	RequestsFailed        int64              `json:"requests_failed"`
	TotalProcessingTimeMs float64            `json:"total_processing_time_ms"`
	AvgProcessingTimeMs   float64            `json:"avg_processing_time_ms"`
	DiagnosesMade         int64              `json:"diagnoses_made"`
	UrgencyLevels         map[string]int64   `json:"urgency_levels"`
	UptimeSeconds         float64            `json:"uptime_seconds"`
	RequestsPerSecond     float64            `json:"requests_per_second"`
	SuccessRate           float64            `json:"success_rate"`
	Timestamp             time.Time          `json:"timestamp"`
}

// MetricsObserver aggregates request counters, a running average of
// processing time and an urgency-level histogram.
type MetricsObserver struct {
	mu                sync.Mutex
	started           int64
	completed         int64
	failed            int64
	totalProcessingMs float64
	diagnosesMade     int64
	urgencyLevels     map[string]int64
	startTime         time.Time
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		urgencyLevels: make(map[string]int64),
		startTime:     time.Now(),
	}
}

func (m *MetricsObserver) Update(eventType string, data map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch eventType {
	case models.EventRequestStarted:
		m.started++
	case models.EventRequestCompleted:
		m.completed++
		if ms, ok := asFloat(data["processing_time_ms"]); ok {
			m.totalProcessingMs += ms
		}
		if count, ok := asFloat(data["diagnoses_count"]); ok {
			m.diagnosesMade += int64(count)
		}
		if urgency, ok := data["urgency_level"].(string); ok {
			m.urgencyLevels[urgency]++
		}
	case models.EventRequestFailed:
		m.failed++
	}
}

func (m *MetricsObserver) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	uptime := time.Since(m.startTime).Seconds()
	snap := MetricsSnapshot{
		RequestsTotal:         m.started,
		RequestsCompleted:     m.completed,
		RequestsFailed:        m.failed,
		TotalProcessingTimeMs: m.totalProcessingMs,
		DiagnosesMade:         m.diagnosesMade,
		UrgencyLevels:         make(map[string]int64, len(m.urgencyLevels)),
		UptimeSeconds:         uptime,
		Timestamp:             time.Now(),
	}
	for k, v := range m.urgencyLevels {
		snap.UrgencyLevels[k] = v
	}
	if m.completed > 0 {
		snap.AvgProcessingTimeMs = m.totalProcessingMs / float64(m.completed)
	}
	if uptime > 0 {
		snap.RequestsPerSecond = float64(m.started) / uptime
	}
	if m.started > 0 {
		snap.SuccessRate = float64(m.completed) / float64(m.started)
	}
	return snap
}

func (m *MetricsObserver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = 0
	m.completed = 0
	m.failed = 0
	m.totalProcessingMs = 0
	m.diagnosesMade = 0
	m.urgencyLevels = make(map[string]int64)
	m.startTime = time.Now()
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
