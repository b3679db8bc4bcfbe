package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
)

type perfEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	PatientID        string    `json:"patient_id"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
}

// PerformanceSummary aggregates the completed requests observed so far.
type PerformanceSummary struct {
	TotalRequests       int     `json:"total_requests"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	MinProcessingTimeMs float64 `json:"min_processing_time_ms"`
	MaxProcessingTimeMs float64 `json:"max_processing_time_ms"`
	SlowRequestsCount   int     `json:"slow_requests_count"`
	AlertsCount         int     `json:"alerts_count"`
}

// PerformanceObserver flags completed requests slower than a configurable
// threshold and records an alert for every failed request.
type PerformanceObserver struct {
	mu          sync.Mutex
	thresholdMs float64
	requests    []perfEntry
	slow        []perfEntry
	alerts      []string
}

func NewPerformanceObserver(thresholdMs float64) *PerformanceObserver {
	if thresholdMs <= 0 {
		thresholdMs = 5000
	}
	return &PerformanceObserver{thresholdMs: thresholdMs}
}

func (p *PerformanceObserver) Update(eventType string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch eventType {
	case models.EventRequestCompleted:
		ms, _ := asFloat(data["processing_time_ms"])
		requestID, _ := data["request_id"].(string)
		patientID, _ := data["patient_id"].(string)

		entry := perfEntry{
			Timestamp:        time.Now(),
			RequestID:        requestID,
			PatientID:        patientID,
			ProcessingTimeMs: ms,
		}
		p.requests = append(p.requests, entry)

		if ms > p.thresholdMs {
			p.slow = append(p.slow, entry)
			alert := fmt.Sprintf("Slow request detected: %s took %.2fms (threshold: %.0fms)",
				requestID, ms, p.thresholdMs)
			p.alerts = append(p.alerts, alert)
			logger.Log.WithFields(map[string]interface{}{
				"request_id":         requestID,
				"processing_time_ms": ms,
			}).Warn("Slow request")
		}

	case models.EventRequestFailed:
		requestID, _ := data["request_id"].(string)
		patientID, _ := data["patient_id"].(string)
		errMsg, _ := data["error"].(string)
		alert := fmt.Sprintf("Request failed: %s for patient %s - %s", requestID, patientID, errMsg)
		p.alerts = append(p.alerts, alert)
	}
}

func (p *PerformanceObserver) Summary() PerformanceSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	summary := PerformanceSummary{
		TotalRequests:     len(p.requests),
		SlowRequestsCount: len(p.slow),
		AlertsCount:       len(p.alerts),
	}
	if len(p.requests) == 0 {
		return summary
	}

	var total float64
	min := p.requests[0].ProcessingTimeMs
	max := p.requests[0].ProcessingTimeMs
	for _, r := range p.requests {
		total += r.ProcessingTimeMs
		if r.ProcessingTimeMs < min {
			min = r.ProcessingTimeMs
		}
		if r.ProcessingTimeMs > max {
			max = r.ProcessingTimeMs
		}
	}
	summary.AvgProcessingTimeMs = total / float64(len(p.requests))
	summary.MinProcessingTimeMs = min
	summary.MaxProcessingTimeMs = max
	return summary
}

// RecentAlerts returns up to count of the most recent alert messages.
func (p *PerformanceObserver) RecentAlerts(count int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count <= 0 || count > len(p.alerts) {
		count = len(p.alerts)
	}
	out := make([]string, count)
	copy(out, p.alerts[len(p.alerts)-count:])
	return out
}

func (p *PerformanceObserver) ClearAlerts() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = nil
}
