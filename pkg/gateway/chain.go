package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/earlycare-ai/gateway/pkg/privacy"
)

// Stage is one step of the processing pipeline. Process mutates the record
// in place and writes its result to the stage's own context field. Only the
// validation stage returns a non-nil error, which aborts the chain.
type Stage interface {
	Name() string
	Process(record *models.PatientRecord, pctx *models.ProcessingContext) error
}

// ChainHandler links a stage into the chain of responsibility. Handle times
// the stage, records the elapsed milliseconds under the stage name, then
// delegates to the next link.
type ChainHandler struct {
	stage Stage
	next  *ChainHandler
}

func NewHandler(stage Stage) *ChainHandler {
	return &ChainHandler{stage: stage}
}

// SetNext links the next handler and returns it so calls can be chained.
func (h *ChainHandler) SetNext(next *ChainHandler) *ChainHandler {
	h.next = next
	return next
}

func (h *ChainHandler) Name() string { return h.stage.Name() }

func (h *ChainHandler) Handle(record *models.PatientRecord, pctx *models.ProcessingContext) (*models.PatientRecord, error) {
	start := time.Now()
	err := h.stage.Process(record, pctx)
	pctx.RecordTiming(h.stage.Name(), time.Since(start))

	if err != nil {
		return nil, err
	}
	if h.next != nil {
		return h.next.Handle(record, pctx)
	}
	return record, nil
}

// BuildChain links stages in order and returns the head handler.
func BuildChain(stages ...Stage) *ChainHandler {
	if len(stages) == 0 {
		return nil
	}
	head := NewHandler(stages[0])
	current := head
	for _, stage := range stages[1:] {
		current = current.SetNext(NewHandler(stage))
	}
	return head
}

// ValidationStage checks the patient identifier and runs every observation's
// structural validator. All failures are aggregated into one error; any
// failure aborts the pipeline.
type ValidationStage struct{}

func (ValidationStage) Name() string { return "validation" }

func (ValidationStage) Process(record *models.PatientRecord, pctx *models.ProcessingContext) error {
	result := &models.ValidationResult{IsValid: true}

	if record.Patient == nil || record.Patient.PatientID == "" {
		result.Errors = append(result.Errors, "Missing patient ID")
		result.IsValid = false
	}

	for idx, obs := range record.Observations {
		if err := obs.Validate(); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Clinical data %d (%s) failed validation: %v", idx, obs.Kind(), err))
			result.IsValid = false
		}
	}

	if len(record.Observations) == 0 {
		result.Warnings = append(result.Warnings, "No clinical data provided")
	}

	pctx.Validation = result

	if !result.IsValid {
		return fmt.Errorf("validation failed: %s", strings.Join(result.Errors, ", "))
	}
	return nil
}

// criticalHistoryKeywords flag chronic conditions that raise triage weight.
var criticalHistoryKeywords = []string{"diabetes", "hypertension", "cancer", "cardiac", "renal"}

// EnrichmentStage fills in derived fields: patient age, default quality
// scores, per-kind presence flags and the critical-history flag. It never
// fails.
type EnrichmentStage struct{}

func (EnrichmentStage) Name() string { return "enrichment" }

func (EnrichmentStage) Process(record *models.PatientRecord, pctx *models.ProcessingContext) error {
	result := &models.EnrichmentResult{
		DataCount:      len(record.Observations),
		AverageQuality: 1.0,
	}

	if record.Patient != nil && record.Patient.Age == nil {
		record.Patient.CalculateAge()
		result.AgeCalculated = true
	}

	var qualitySum float64
	for _, obs := range record.Observations {
		base := obs.Base()
		if base.QualityScore == nil {
			score := 0.5
			if base.IsValidated {
				score = 1.0
			}
			base.QualityScore = &score
		}
		qualitySum += *base.QualityScore

		switch obs.Kind() {
		case models.KindText:
			result.HasText = true
		case models.KindSignal:
			result.HasSignal = true
		case models.KindImage:
			result.HasImage = true
		}
	}
	if len(record.Observations) > 0 {
		result.AverageQuality = qualitySum / float64(len(record.Observations))
	}

	if record.Patient != nil {
	history:
		for _, condition := range record.Patient.MedicalHistory {
			lower := strings.ToLower(condition)
			for _, keyword := range criticalHistoryKeywords {
				if strings.Contains(lower, keyword) {
					result.HasCriticalHistory = true
					break history
				}
			}
		}
	}

	pctx.Enrichment = result
	return nil
}

// TriageStage sums fixed weighted factors into a 0-100 score, derives the
// priority band and upgrades the record priority when the band outranks the
// original. It never fails and never downgrades.
type TriageStage struct{}

func (TriageStage) Name() string { return "triage" }

func (TriageStage) Process(record *models.PatientRecord, pctx *models.ProcessingContext) error {
	score := float64(record.Priority.Rank())
	factors := []string{fmt.Sprintf("Base priority: %s", record.Priority)}

	if record.Patient != nil && record.Patient.Age != nil {
		age := *record.Patient.Age
		if age < 2 || age > 75 {
			score += 15
			factors = append(factors, fmt.Sprintf("Age factor: %d", age))
		}
	}

	if record.Patient != nil && len(record.Patient.MedicalHistory) > 3 {
		score += 10
		factors = append(factors, "Complex medical history")
	}

	if pctx.Enrichment != nil && pctx.Enrichment.HasCriticalHistory {
		score += 20
		factors = append(factors, "Critical medical history")
	}

	if pctx.AverageQuality() < 0.7 {
		score += 10
		factors = append(factors, "Low data quality")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	priority := models.PriorityForScore(score)
	pctx.Triage = &models.TriageResult{
		Score:    score,
		Priority: priority,
		Factors:  factors,
	}

	if record.UpgradePriority(priority) {
		logger.Log.WithFields(map[string]interface{}{
			"request_id": pctx.RequestID,
			"priority":   priority,
			"score":      score,
		}).Info("Record priority upgraded by triage")
	}
	return nil
}

// NormalizationStage trims text observations to a canonical form. Optional;
// not part of the default chain.
type NormalizationStage struct{}

func (NormalizationStage) Name() string { return "normalization" }

func (NormalizationStage) Process(record *models.PatientRecord, pctx *models.ProcessingContext) error {
	result := &models.NormalizationResult{}

	for _, obs := range record.Observations {
		text, ok := obs.(*models.TextObservation)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(text.TextContent)
		if len(trimmed) != len(text.TextContent) {
			text.TextContent = trimmed
			result.NormalizedCount++
			result.Operations = append(result.Operations,
				fmt.Sprintf("Trimmed whitespace from text data %s", text.ObservationID))
		}
	}

	pctx.Normalization = result
	return nil
}

// PrivacyStage scans text observations for PHI and masks them when the
// request asked for anonymization. Optional; not part of the default chain.
// It never fails.
type PrivacyStage struct {
	Detector *privacy.Detector
}

func (PrivacyStage) Name() string { return "privacy" }

func (s PrivacyStage) Process(record *models.PatientRecord, pctx *models.ProcessingContext) error {
	result := &models.PrivacyResult{}

	for _, obs := range record.Observations {
		text, ok := obs.(*models.TextObservation)
		if !ok {
			continue
		}
		if len(s.Detector.Detect(text.TextContent)) > 0 {
			result.PHIDetected = true
		}
		if pctx.Anonymize {
			text.TextContent = s.Detector.Mask(text.TextContent)
		}
	}

	if pctx.Anonymize {
		result.AnonymizationRequired = true
		result.ComplianceFlags = append(result.ComplianceFlags, "Data anonymized")
	}
	if !pctx.ConsentVerified {
		result.ComplianceFlags = append(result.ComplianceFlags, "Consent verification required")
	}

	pctx.Privacy = result
	return nil
}
