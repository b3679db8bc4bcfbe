package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	requestsStarted     atomic.Int64
	requestsCompleted   atomic.Int64
	requestsFailed      atomic.Int64
	diagnosesMade       atomic.Int64
	avgProcessingMicros atomic.Int64

	urgencyMu     sync.Mutex
	urgencyLevels = map[string]int64{}
)

func Init() {}

// ObserveRequestCounts replaces the request-level gauges with the latest
// sampling-window values.
func ObserveRequestCounts(started, completed, failed, diagnoses int64, avgProcessingMs float64) {
	requestsStarted.Store(started)
	requestsCompleted.Store(completed)
	requestsFailed.Store(failed)
	diagnosesMade.Store(diagnoses)
	avgProcessingMicros.Store(int64(avgProcessingMs * 1000))
}

func ObserveUrgencyLevels(levels map[string]int64) {
	urgencyMu.Lock()
	defer urgencyMu.Unlock()
	urgencyLevels = make(map[string]int64, len(levels))
	for level, count := range levels {
		urgencyLevels[level] = count
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP earlycare_gateway_requests_started_total Number of decision requests received.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_requests_started_total gauge\n")
	fmt.Fprintf(w, "earlycare_gateway_requests_started_total %d\n", requestsStarted.Load())

	fmt.Fprintf(w, "# HELP earlycare_gateway_requests_completed_total Number of decision requests completed.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_requests_completed_total gauge\n")
	fmt.Fprintf(w, "earlycare_gateway_requests_completed_total %d\n", requestsCompleted.Load())

	fmt.Fprintf(w, "# HELP earlycare_gateway_requests_failed_total Number of decision requests failed.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_requests_failed_total gauge\n")
	fmt.Fprintf(w, "earlycare_gateway_requests_failed_total %d\n", requestsFailed.Load())

	fmt.Fprintf(w, "# HELP earlycare_gateway_diagnoses_made_total Number of diagnoses produced across completed requests.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_diagnoses_made_total gauge\n")
	fmt.Fprintf(w, "earlycare_gateway_diagnoses_made_total %d\n", diagnosesMade.Load())

	fmt.Fprintf(w, "# HELP earlycare_gateway_avg_processing_ms Average end-to-end processing time in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_avg_processing_ms gauge\n")
	fmt.Fprintf(w, "earlycare_gateway_avg_processing_ms %.3f\n", float64(avgProcessingMicros.Load())/1000.0)

	urgencyMu.Lock()
	levels := make([]string, 0, len(urgencyLevels))
	for level := range urgencyLevels {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	fmt.Fprintf(w, "# HELP earlycare_gateway_urgency_level_total Completed requests by final urgency level.\n")
	fmt.Fprintf(w, "# TYPE earlycare_gateway_urgency_level_total gauge\n")
	for _, level := range levels {
		fmt.Fprintf(w, "earlycare_gateway_urgency_level_total{level=%q} %d\n", level, urgencyLevels[level])
	}
	urgencyMu.Unlock()
}
