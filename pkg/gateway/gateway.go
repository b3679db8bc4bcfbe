package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/earlycare-ai/gateway/pkg/monitoring"
	"github.com/earlycare-ai/gateway/pkg/strategy"
	"github.com/google/uuid"
)

// NarrativeGenerator produces a free-text diagnostic narrative for formatted
// patient text. The gateway treats the result as an opaque string.
type NarrativeGenerator interface {
	Generate(ctx context.Context, patientText string) (string, error)
}

// ProcessOptions carries per-request caller options.
type ProcessOptions struct {
	Anonymize       bool
	ConsentVerified *bool
	Options         map[string]interface{}
}

// Gateway routes one clinical encounter through the processing chain,
// selects a diagnostic strategy and assembles the decision support result,
// emitting lifecycle events to its observers along the way.
type Gateway struct {
	*monitoring.MonitoringSubject

	chain        *ChainHandler
	stageNames   []string
	selector     *strategy.StrategySelector
	narrative    NarrativeGenerator
	requestCount atomic.Int64
}

// New builds a gateway with the default validate, enrich, triage chain.
func New(selector *strategy.StrategySelector) *Gateway {
	g := &Gateway{
		MonitoringSubject: monitoring.NewSubject(),
		selector:          selector,
	}
	g.SetChain(ValidationStage{}, EnrichmentStage{}, TriageStage{})
	return g
}

// SetChain replaces the processing chain with the given stages in order.
func (g *Gateway) SetChain(stages ...Stage) {
	g.chain = BuildChain(stages...)
	g.stageNames = make([]string, 0, len(stages))
	for _, s := range stages {
		g.stageNames = append(g.stageNames, s.Name())
	}
}

// SetNarrative installs an optional diagnostic narrative backend. When set,
// its output replaces the strategy's canned explanation on success.
func (g *Gateway) SetNarrative(n NarrativeGenerator) {
	g.narrative = n
}

// Process runs one record through the pipeline and returns its decision
// support. Validation and selection failures are fatal to the request and
// propagate after a request_failed event; everything downstream degrades
// gracefully.
func (g *Gateway) Process(ctx context.Context, record *models.PatientRecord, opts *ProcessOptions) (*models.DecisionSupport, error) {
	requestID := uuid.New().String()
	pctx := models.NewProcessingContext(requestID)
	if opts != nil {
		pctx.Anonymize = opts.Anonymize
		if opts.ConsentVerified != nil {
			pctx.ConsentVerified = *opts.ConsentVerified
		}
		pctx.Options = opts.Options
	}

	patientID := ""
	if record.Patient != nil {
		patientID = record.Patient.PatientID
	}

	kinds := make([]string, 0, len(record.Observations))
	for _, obs := range record.Observations {
		kinds = append(kinds, string(obs.Kind()))
	}
	g.Notify(models.EventRequestStarted, map[string]interface{}{
		"request_id": requestID,
		"patient_id": patientID,
		"data_types": kinds,
	})

	decision, err := g.process(ctx, record, pctx)
	if err != nil {
		g.Notify(models.EventRequestFailed, map[string]interface{}{
			"request_id": requestID,
			"patient_id": patientID,
			"error":      err.Error(),
		})
		return nil, err
	}

	g.requestCount.Add(1)
	g.Notify(models.EventRequestCompleted, map[string]interface{}{
		"request_id":         requestID,
		"patient_id":         decision.PatientID,
		"processing_time_ms": decision.ProcessingTimeMs,
		"diagnoses_count":    len(decision.Diagnoses),
		"urgency_level":      string(decision.UrgencyLevel),
	})
	return decision, nil
}

func (g *Gateway) process(ctx context.Context, record *models.PatientRecord, pctx *models.ProcessingContext) (*models.DecisionSupport, error) {
	if g.chain != nil {
		if _, err := g.chain.Handle(record, pctx); err != nil {
			return nil, err
		}
	}

	selected, err := g.selector.Select(record, pctx)
	if err != nil {
		return nil, err
	}

	patientID := ""
	if record.Patient != nil {
		patientID = record.Patient.PatientID
	}
	decision := models.NewDecisionSupport(pctx.RequestID, patientID)
	if err := selected.Execute(record, decision, pctx); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", selected.Name(), err)
	}
	// Ensemble members record their own names during execution.
	if _, isEnsemble := selected.(*strategy.EnsembleStrategy); !isEnsemble {
		decision.ModelsUsed = append(decision.ModelsUsed, selected.Name())
	}

	if pctx.Triage != nil {
		decision.TriageScore = pctx.Triage.Score
		decision.RaiseUrgency(pctx.Triage.Priority)
	}

	g.generateNarrative(ctx, record, decision)

	decision.ProcessingTimeMs = float64(time.Since(pctx.StartTime).Microseconds()) / 1000.0
	decision.Metadata["context"] = pctx.Snapshot()
	return decision, nil
}

// generateNarrative asks the optional diagnostic backend for a free-text
// explanation. Failures degrade to a warning; they never abort the request.
func (g *Gateway) generateNarrative(ctx context.Context, record *models.PatientRecord, decision *models.DecisionSupport) {
	if g.narrative == nil {
		return
	}

	text, err := g.narrative.Generate(ctx, FormatPatientText(record))
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", decision.RequestID).
			Warn("Narrative generation failed")
		decision.AddWarning("diagnostic narrative unavailable")
		return
	}
	if text != "" {
		decision.Explanation = text
	}
}

// FormatPatientText flattens the encounter into the text shape the
// diagnostic backend expects.
func FormatPatientText(record *models.PatientRecord) string {
	var b strings.Builder
	if record.Patient != nil {
		fmt.Fprintf(&b, "Patient %s", record.Patient.PatientID)
		if record.Patient.Age != nil {
			fmt.Fprintf(&b, ", age %d", *record.Patient.Age)
		}
		b.WriteString("\n")
		if len(record.Patient.MedicalHistory) > 0 {
			fmt.Fprintf(&b, "History: %s\n", strings.Join(record.Patient.MedicalHistory, "; "))
		}
	}
	if record.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n", record.ChiefComplaint)
	}
	for _, obs := range record.Observations {
		if text, ok := obs.(*models.TextObservation); ok {
			fmt.Fprintf(&b, "Note: %s\n", text.TextContent)
		}
	}
	return b.String()
}

// Statistics reports gateway-level counters for the monitoring surface.
func (g *Gateway) Statistics() map[string]interface{} {
	return map[string]interface{}{
		"total_requests": g.requestCount.Load(),
		"chain_handlers": g.stageNames,
		"observer_count": g.ObserverCount(),
	}
}

// HealthCheck reports component status; a gateway without a chain is
// degraded, not broken.
func (g *Gateway) HealthCheck() map[string]interface{} {
	status := "healthy"
	var warnings []string
	if g.chain == nil {
		status = "degraded"
		warnings = append(warnings, "No chain handlers configured")
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"components": map[string]interface{}{
			"chain_handlers":    g.chain != nil,
			"strategy_selector": g.selector != nil,
			"observers":         g.ObserverCount(),
		},
	}
	if len(warnings) > 0 {
		health["warnings"] = warnings
	}
	return health
}
