package monitoring

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
)

// maxAuditEntries caps the in-memory trail; the oldest entries are evicted
// first.
const maxAuditEntries = 10000

type AuditEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// AuditObserver keeps a bounded in-memory audit trail and best-effort
// appends each entry to a log file. File write failures are logged and never
// surface to the request path.
type AuditObserver struct {
	mu      sync.Mutex
	logPath string
	entries []AuditEntry
}

func NewAuditObserver(logPath string) *AuditObserver {
	return &AuditObserver{logPath: logPath}
}

func (a *AuditObserver) Update(eventType string, data map[string]interface{}) {
	entry := AuditEntry{
		Timestamp: time.Now(),
		EventType: eventType,
		Data:      data,
	}

	a.mu.Lock()
	a.entries = append(a.entries, entry)
	if len(a.entries) > maxAuditEntries {
		a.entries = a.entries[len(a.entries)-maxAuditEntries:]
	}
	a.mu.Unlock()

	a.appendToFile(entry)
}

func (a *AuditObserver) appendToFile(entry AuditEntry) {
	if a.logPath == "" {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to marshal audit entry")
		return
	}

	f, err := os.OpenFile(a.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open audit log")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		logger.Log.WithError(err).Error("Failed to write audit log")
	}
}

// TrailFilter narrows the entries returned by Trail. Zero-valued fields
// match everything.
type TrailFilter struct {
	Start     time.Time
	End       time.Time
	EventType string
	PatientID string
}

// Trail returns the in-memory entries matching the filter, oldest first.
func (a *AuditObserver) Trail(filter TrailFilter) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []AuditEntry
	for _, entry := range a.entries {
		if filter.EventType != "" && entry.EventType != filter.EventType {
			continue
		}
		if !filter.Start.IsZero() && entry.Timestamp.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && entry.Timestamp.After(filter.End) {
			continue
		}
		if filter.PatientID != "" {
			pid, _ := entry.Data["patient_id"].(string)
			if pid != filter.PatientID {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}

// PatientTrail returns every entry recorded for one patient.
func (a *AuditObserver) PatientTrail(patientID string) []AuditEntry {
	return a.Trail(TrailFilter{PatientID: patientID})
}

func (a *AuditObserver) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
