package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type countingObserver struct {
	calls int
}

func (c *countingObserver) Update(string, map[string]interface{}) {
	c.calls++
}

type panickingObserver struct{}

func (panickingObserver) Update(string, map[string]interface{}) {
	panic("observer exploded")
}

func TestAttachIsIdempotent(t *testing.T) {
	subject := NewSubject()
	obs := &countingObserver{}

	subject.Attach(obs)
	subject.Attach(obs)
	if subject.ObserverCount() != 1 {
		t.Fatalf("observer count %d, want 1 after duplicate attach", subject.ObserverCount())
	}

	subject.Notify("test_event", nil)
	if obs.calls != 1 {
		t.Fatalf("observer called %d times, want 1", obs.calls)
	}

	subject.Detach(obs)
	if subject.ObserverCount() != 0 {
		t.Fatalf("observer count %d after detach, want 0", subject.ObserverCount())
	}
	subject.Detach(obs) // no-op
}

func TestNotifyIsolatesPanics(t *testing.T) {
	subject := NewSubject()
	after := &countingObserver{}
	subject.Attach(panickingObserver{})
	subject.Attach(after)

	subject.Notify("test_event", nil)
	if after.calls != 1 {
		t.Fatal("observer after the panicking one was not notified")
	}
}

func TestMetricsObserverAggregates(t *testing.T) {
	m := NewMetricsObserver()

	m.Update(models.EventRequestStarted, map[string]interface{}{"request_id": "r1"})
	m.Update(models.EventRequestCompleted, map[string]interface{}{
		"request_id":         "r1",
		"processing_time_ms": 100.0,
		"diagnoses_count":    2,
		"urgency_level":      "urgent",
	})
	m.Update(models.EventRequestStarted, map[string]interface{}{"request_id": "r2"})
	m.Update(models.EventRequestCompleted, map[string]interface{}{
		"request_id":         "r2",
		"processing_time_ms": 300.0,
		"diagnoses_count":    1,
		"urgency_level":      "urgent",
	})
	m.Update(models.EventRequestStarted, map[string]interface{}{"request_id": "r3"})
	m.Update(models.EventRequestFailed, map[string]interface{}{"request_id": "r3"})

	snap := m.Snapshot()
	if snap.RequestsTotal != 3 || snap.RequestsCompleted != 2 || snap.RequestsFailed != 1 {
		t.Fatalf("counters %d/%d/%d", snap.RequestsTotal, snap.RequestsCompleted, snap.RequestsFailed)
	}
	if snap.AvgProcessingTimeMs != 200 {
		t.Fatalf("avg %v, want 200", snap.AvgProcessingTimeMs)
	}
	if snap.DiagnosesMade != 3 {
		t.Fatalf("diagnoses %d, want 3", snap.DiagnosesMade)
	}
	if snap.UrgencyLevels["urgent"] != 2 {
		t.Fatalf("urgency histogram %v", snap.UrgencyLevels)
	}

	m.Reset()
	if reset := m.Snapshot(); reset.RequestsTotal != 0 || len(reset.UrgencyLevels) != 0 {
		t.Fatalf("snapshot after reset: %+v", reset)
	}
}

func TestAuditObserverRingBuffer(t *testing.T) {
	audit := NewAuditObserver("")
	for i := 0; i < maxAuditEntries+50; i++ {
		audit.Update("request_started", map[string]interface{}{
			"request_id": fmt.Sprintf("r%d", i),
		})
	}
	if audit.Len() != maxAuditEntries {
		t.Fatalf("trail holds %d entries, want cap %d", audit.Len(), maxAuditEntries)
	}

	// Oldest entries were evicted
	trail := audit.Trail(TrailFilter{})
	if first := trail[0].Data["request_id"]; first != "r50" {
		t.Fatalf("oldest surviving entry %v, want r50", first)
	}
}

func TestAuditTrailFilters(t *testing.T) {
	audit := NewAuditObserver("")
	audit.Update("request_started", map[string]interface{}{"patient_id": "pat-1"})
	audit.Update("request_completed", map[string]interface{}{"patient_id": "pat-1"})
	audit.Update("request_started", map[string]interface{}{"patient_id": "pat-2"})

	if got := audit.Trail(TrailFilter{EventType: "request_started"}); len(got) != 2 {
		t.Fatalf("event type filter returned %d entries, want 2", len(got))
	}
	if got := audit.PatientTrail("pat-1"); len(got) != 2 {
		t.Fatalf("patient filter returned %d entries, want 2", len(got))
	}
	if got := audit.Trail(TrailFilter{End: time.Now().Add(-time.Hour)}); len(got) != 0 {
		t.Fatalf("time filter returned %d entries, want 0", len(got))
	}
	if got := audit.Trail(TrailFilter{Start: time.Now().Add(-time.Hour)}); len(got) != 3 {
		t.Fatalf("start filter returned %d entries, want 3", len(got))
	}
}

func TestAuditObserverWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	audit := NewAuditObserver(path)
	audit.Update("request_started", map[string]interface{}{"request_id": "r1"})

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("audit file not written: %v", err)
	}
	if !strings.Contains(string(content), `"request_started"`) {
		t.Fatalf("audit file content: %s", content)
	}
}

func TestPerformanceObserverFlagsSlowRequests(t *testing.T) {
	perf := NewPerformanceObserver(100)

	perf.Update(models.EventRequestCompleted, map[string]interface{}{
		"request_id": "fast", "processing_time_ms": 50.0,
	})
	perf.Update(models.EventRequestCompleted, map[string]interface{}{
		"request_id": "slow", "processing_time_ms": 250.0,
	})

	summary := perf.Summary()
	if summary.TotalRequests != 2 || summary.SlowRequestsCount != 1 {
		t.Fatalf("summary %+v", summary)
	}
	if summary.MinProcessingTimeMs != 50 || summary.MaxProcessingTimeMs != 250 || summary.AvgProcessingTimeMs != 150 {
		t.Fatalf("summary %+v", summary)
	}

	alerts := perf.RecentAlerts(10)
	if len(alerts) != 1 || !strings.Contains(alerts[0], "Slow request detected: slow") {
		t.Fatalf("alerts %v", alerts)
	}
}

func TestPerformanceObserverAlertsOnFailure(t *testing.T) {
	perf := NewPerformanceObserver(0)
	perf.Update(models.EventRequestFailed, map[string]interface{}{
		"request_id": "r1", "patient_id": "pat-1", "error": "validation failed",
	})

	alerts := perf.RecentAlerts(1)
	if len(alerts) != 1 || !strings.Contains(alerts[0], "Request failed: r1 for patient pat-1") {
		t.Fatalf("alerts %v", alerts)
	}
	// Failed requests do not count toward the latency summary
	if perf.Summary().TotalRequests != 0 {
		t.Fatal("failed request counted in latency summary")
	}

	perf.ClearAlerts()
	if len(perf.RecentAlerts(10)) != 0 {
		t.Fatal("alerts survived clear")
	}
}
