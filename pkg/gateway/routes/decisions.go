package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/earlycare-ai/gateway/pkg/gateway"
	"github.com/earlycare-ai/gateway/pkg/storage"
	"github.com/earlycare-ai/gateway/pkg/strategy"
	"github.com/gorilla/mux"
)

// DecisionsHandler serves the decision-support request surface. Repository
// and cache are optional; without them decisions are computed but not
// persisted.
type DecisionsHandler struct {
	gw    *gateway.Gateway
	repo  *storage.Repository
	cache *storage.DecisionCache
}

func NewDecisionsHandler(gw *gateway.Gateway, repo *storage.Repository, cache *storage.DecisionCache) *DecisionsHandler {
	return &DecisionsHandler{gw: gw, repo: repo, cache: cache}
}

func (h *DecisionsHandler) Register(r *mux.Router) {
	r.HandleFunc("/decisions", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/decisions/{requestID}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/patients/{patientID}/decisions", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/{patientID}/decisions/latest", h.handleLatest).Methods(http.MethodGet)
}

type decisionRequest struct {
	Record          *models.PatientRecord  `json:"record"`
	Anonymize       bool                   `json:"anonymize"`
	ConsentVerified *bool                  `json:"consent_verified"`
	Options         map[string]interface{} `json:"options"`
}

func (h *DecisionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Record == nil {
		http.Error(w, "record is required", http.StatusBadRequest)
		return
	}

	opts := &gateway.ProcessOptions{
		Anonymize:       req.Anonymize,
		ConsentVerified: req.ConsentVerified,
		Options:         req.Options,
	}

	decision, err := h.gw.Process(r.Context(), req.Record, opts)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRecord(r.Context(), req.Record); err != nil {
			logger.Log.WithError(err).Warn("Failed to persist patient record")
		}
		if err := h.repo.SaveDecision(r.Context(), decision); err != nil {
			logger.Log.WithError(err).Warn("Failed to persist decision")
		}
	}
	if h.cache != nil {
		h.cache.Put(r.Context(), decision)
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, decision)
}

// writeProcessError maps pipeline failures onto HTTP statuses: caller input
// problems are 4xx, a missing strategy is a server-side configuration gap.
func (h *DecisionsHandler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrNoStrategy):
		logger.Log.WithError(err).Error("No strategy available for request")
		http.Error(w, "no diagnostic strategy available", http.StatusInternalServerError)
	case strings.Contains(err.Error(), "validation failed"):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Log.WithError(err).Error("Request processing failed")
		http.Error(w, "request processing failed", http.StatusInternalServerError)
	}
}

func (h *DecisionsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "persistence not configured", http.StatusNotImplemented)
		return
	}

	requestID := mux.Vars(r)["requestID"]
	decision, err := h.repo.GetDecision(r.Context(), requestID)
	if errors.Is(err, storage.ErrDecisionNotFound) {
		http.Error(w, "decision not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load decision")
		http.Error(w, "failed to load decision", http.StatusInternalServerError)
		return
	}

	writeJSON(w, decision)
}

func (h *DecisionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "persistence not configured", http.StatusNotImplemented)
		return
	}

	patientID := mux.Vars(r)["patientID"]
	limit := 20
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	decisions, err := h.repo.ListPatientDecisions(r.Context(), patientID, limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list decisions")
		http.Error(w, "failed to list decisions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"decisions": decisions})
}

// handleLatest answers from the cache when it can, falling back to the
// repository.
func (h *DecisionsHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientID"]

	if h.cache != nil {
		decision, err := h.cache.GetLatest(r.Context(), patientID)
		if err != nil {
			logger.Log.WithError(err).Warn("Decision cache lookup failed")
		} else if decision != nil {
			writeJSON(w, decision)
			return
		}
	}

	if h.repo == nil {
		http.Error(w, "decision not found", http.StatusNotFound)
		return
	}

	decisions, err := h.repo.ListPatientDecisions(r.Context(), patientID, 1)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load latest decision")
		http.Error(w, "failed to load latest decision", http.StatusInternalServerError)
		return
	}
	if len(decisions) == 0 {
		http.Error(w, "decision not found", http.StatusNotFound)
		return
	}

	writeJSON(w, decisions[0])
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
