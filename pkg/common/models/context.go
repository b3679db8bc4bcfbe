package models

import "time"

// ValidationResult is written once by the validation stage.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// EnrichmentResult is written once by the enrichment stage.
type EnrichmentResult struct {
	AgeCalculated      bool    `json:"age_calculated"`
	DataCount          int     `json:"data_count"`
	AverageQuality     float64 `json:"average_quality"`
	HasText            bool    `json:"has_text"`
	HasSignal          bool    `json:"has_signal"`
	HasImage           bool    `json:"has_image"`
	HasCriticalHistory bool    `json:"has_critical_history"`
}

// TriageResult is written once by the triage stage.
type TriageResult struct {
	Score    float64  `json:"score"`
	Priority Priority `json:"priority"`
	Factors  []string `json:"factors"`
}

// NormalizationResult is written by the optional normalization stage.
type NormalizationResult struct {
	NormalizedCount int      `json:"normalized_count"`
	Operations      []string `json:"operations,omitempty"`
}

// PrivacyResult is written by the optional privacy stage.
type PrivacyResult struct {
	PHIDetected           bool     `json:"phi_detected"`
	AnonymizationRequired bool     `json:"anonymization_required"`
	ComplianceFlags       []string `json:"compliance_flags,omitempty"`
}

// ProcessingContext accumulates per-stage results while a record traverses
// the pipeline. Each stage writes its own field exactly once; later stages
// may read earlier results but never overwrite them. A context is private to
// one request.
type ProcessingContext struct {
	RequestID string
	StartTime time.Time

	// Request options supplied by the caller.
	Anonymize       bool
	ConsentVerified bool
	Options         map[string]interface{}

	Validation    *ValidationResult
	Enrichment    *EnrichmentResult
	Triage        *TriageResult
	Normalization *NormalizationResult
	Privacy       *PrivacyResult

	// ProcessingTimes holds elapsed milliseconds per handler name.
	ProcessingTimes map[string]float64
}

func NewProcessingContext(requestID string) *ProcessingContext {
	return &ProcessingContext{
		RequestID:       requestID,
		StartTime:       time.Now(),
		ConsentVerified: true,
		ProcessingTimes: make(map[string]float64),
	}
}

func (c *ProcessingContext) RecordTiming(handler string, elapsed time.Duration) {
	c.ProcessingTimes[handler] = float64(elapsed.Microseconds()) / 1000.0
}

// AverageQuality returns the enrichment average quality, defaulting to 1.0
// before enrichment ran.
func (c *ProcessingContext) AverageQuality() float64 {
	if c.Enrichment == nil {
		return 1.0
	}
	return c.Enrichment.AverageQuality
}

// Snapshot returns the per-stage results in a serializable shape for
// decision metadata.
func (c *ProcessingContext) Snapshot() map[string]interface{} {
	out := map[string]interface{}{
		"processing_times": c.ProcessingTimes,
	}
	if c.Validation != nil {
		out["validation"] = c.Validation
	}
	if c.Enrichment != nil {
		out["enrichment"] = c.Enrichment
	}
	if c.Triage != nil {
		out["triage"] = c.Triage
	}
	if c.Normalization != nil {
		out["normalization"] = c.Normalization
	}
	if c.Privacy != nil {
		out["privacy"] = c.Privacy
	}
	return out
}
