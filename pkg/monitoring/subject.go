package monitoring

import (
	"sync"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
)

// Observer receives lifecycle events from a MonitoringSubject. Update must
// not block the request path; a panicking observer is isolated by the
// subject.
type Observer interface {
	Update(eventType string, data map[string]interface{})
}

// MonitoringSubject fans one lifecycle event out to every attached observer.
// The observer list is shared across all requests served by one gateway, so
// attach, detach and notify are lock-guarded.
type MonitoringSubject struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewSubject() *MonitoringSubject {
	return &MonitoringSubject{}
}

// Attach registers an observer. Attaching the same observer twice is a
// no-op; notification order follows attachment order.
func (s *MonitoringSubject) Attach(obs Observer) {
	if obs == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing == obs {
			return
		}
	}
	s.observers = append(s.observers, obs)
}

// Detach removes an observer; detaching an unknown observer is a no-op.
func (s *MonitoringSubject) Detach(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.observers {
		if existing == obs {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *MonitoringSubject) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Notify delivers the event to every observer in attachment order. A panic
// in one observer is logged and does not prevent the remaining observers
// from being notified.
func (s *MonitoringSubject) Notify(eventType string, data map[string]interface{}) {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, obs := range observers {
		notifyOne(obs, eventType, data)
	}
}

func notifyOne(obs Observer, eventType string, data map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"event_type": eventType,
				"panic":      r,
			}).Error("Observer notification failed")
		}
	}()
	obs.Update(eventType, data)
}
