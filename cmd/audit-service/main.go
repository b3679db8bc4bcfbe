package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/config"
	"github.com/earlycare-ai/gateway/pkg/common/kafka"
	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/earlycare-ai/gateway/pkg/monitoring"
	"github.com/gorilla/mux"
)

// AuditService consumes request lifecycle events off the bus and keeps a
// queryable audit trail independent of the gateway process.
type AuditService struct {
	consumer *kafka.Consumer
	audit    *monitoring.AuditObserver
}

func main() {
	logger.Init()
	cfg := config.Load()

	service := &AuditService{
		audit: monitoring.NewAuditObserver(cfg.AuditLogPath),
	}

	service.consumer = kafka.NewConsumer(cfg.LifecycleTopic, "audit-service")
	defer service.consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := service.consumer.Consume(ctx, service.processEvent); err != nil && err != context.Canceled {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/audit/trail", service.handleTrail).Methods("GET")
	router.HandleFunc("/audit/patients/{patientID}", service.handlePatientTrail).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, "8085"),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  "8085",
			"topic": cfg.LifecycleTopic,
		}).Info("Audit service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down audit service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Audit service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *AuditService) processEvent(ctx context.Context, event models.Event) error {
	s.audit.Update(event.Type, event.Data)
	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"source":     event.Source,
	}).Debug("Audit entry recorded")
	return nil
}

func (s *AuditService) handleTrail(w http.ResponseWriter, r *http.Request) {
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

	writeEntries(w, s.audit.Trail(filter))
}

func (s *AuditService) handlePatientTrail(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientID"]
	writeEntries(w, s.audit.PatientTrail(patientID))
}

func writeEntries(w http.ResponseWriter, entries []monitoring.AuditEntry) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	}); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
