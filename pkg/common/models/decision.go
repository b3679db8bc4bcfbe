package models

import (
	"strings"
	"time"
)

type ConfidenceLevel string

const (
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// ConfidenceLevelFor bands a confidence score. Boundaries are inclusive on
// the lower edge of each band.
func ConfidenceLevelFor(score float64) ConfidenceLevel {
	switch {
	case score >= 0.9:
		return ConfidenceVeryHigh
	case score >= 0.7:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	case score >= 0.3:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// DiagnosisResult is one candidate diagnosis with its supporting evidence.
// The confidence level is a pure function of the score and is recomputed
// whenever the score changes.
type DiagnosisResult struct {
	Condition              string          `json:"condition"`
	ICDCode                string          `json:"icd_code,omitempty"`
	ConfidenceScore        float64         `json:"confidence_score"`
	ConfidenceLevel        ConfidenceLevel `json:"confidence_level"`
	Evidence               []string        `json:"evidence,omitempty"`
	RiskFactors            []string        `json:"risk_factors,omitempty"`
	DifferentialDiagnoses  []string        `json:"differential_diagnoses,omitempty"`
	RecommendedTests       []string        `json:"recommended_tests,omitempty"`
	RecommendedSpecialists []string        `json:"recommended_specialists,omitempty"`
}

func NewDiagnosis(condition string, score float64) *DiagnosisResult {
	return &DiagnosisResult{
		Condition:       condition,
		ConfidenceScore: score,
		ConfidenceLevel: ConfidenceLevelFor(score),
	}
}

func (d *DiagnosisResult) SetConfidenceScore(score float64) {
	d.ConfidenceScore = score
	d.ConfidenceLevel = ConfidenceLevelFor(score)
}

var (
	emergencyConditionTerms = []string{"sepsis", "stroke", "infarction"}
	urgentConditionTerms    = []string{"pneumonia", "fracture"}
)

// DecisionSupport is the structured result of one processed request. It is
// created empty by the gateway, populated by exactly one strategy invocation
// (or several when an ensemble runs), and immutable once returned.
type DecisionSupport struct {
	RequestID         string                 `json:"request_id"`
	PatientID         string                 `json:"patient_id"`
	Timestamp         time.Time              `json:"timestamp"`
	Diagnoses         []*DiagnosisResult     `json:"diagnoses"`
	UrgencyLevel      Priority               `json:"urgency_level"`
	TriageScore       float64                `json:"triage_score"`
	Alerts            []string               `json:"alerts"`
	Warnings          []string               `json:"warnings"`
	ClinicalNotes     []string               `json:"clinical_notes,omitempty"`
	ModelsUsed        []string               `json:"models_used"`
	ProcessingTimeMs  float64                `json:"processing_time_ms"`
	Explanation       string                 `json:"explanation,omitempty"`
	FeatureImportance map[string]float64     `json:"feature_importance,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

func NewDecisionSupport(requestID, patientID string) *DecisionSupport {
	return &DecisionSupport{
		RequestID:    requestID,
		PatientID:    patientID,
		Timestamp:    time.Now().UTC(),
		UrgencyLevel: PriorityRoutine,
		Metadata:     make(map[string]interface{}),
	}
}

// AddDiagnosis appends a diagnosis and, for high-confidence findings,
// escalates urgency based on the condition text. Escalation only ever raises
// the urgency level.
func (ds *DecisionSupport) AddDiagnosis(d *DiagnosisResult) {
	ds.Diagnoses = append(ds.Diagnoses, d)
	if d.ConfidenceScore > 0.8 {
		ds.escalateUrgency(d)
	}
}

func (ds *DecisionSupport) escalateUrgency(d *DiagnosisResult) {
	condition := strings.ToLower(d.Condition)
	target := ds.UrgencyLevel
	for _, term := range emergencyConditionTerms {
		if strings.Contains(condition, term) {
			target = PriorityEmergency
		}
	}
	if target != PriorityEmergency {
		for _, term := range urgentConditionTerms {
			if strings.Contains(condition, term) {
				target = PriorityUrgent
			}
		}
	}
	if target.Rank() > ds.UrgencyLevel.Rank() {
		ds.UrgencyLevel = target
	}
}

// RaiseUrgency sets the urgency level to p only if p outranks the current
// level.
func (ds *DecisionSupport) RaiseUrgency(p Priority) {
	if p.Rank() > ds.UrgencyLevel.Rank() {
		ds.UrgencyLevel = p
	}
}

// TopDiagnosis returns the diagnosis with the highest confidence score, or
// nil when none were produced. Ties resolve to the first maximum in list
// order.
func (ds *DecisionSupport) TopDiagnosis() *DiagnosisResult {
	var top *DiagnosisResult
	for _, d := range ds.Diagnoses {
		if top == nil || d.ConfidenceScore > top.ConfidenceScore {
			top = d
		}
	}
	return top
}

func (ds *DecisionSupport) AddAlert(alert string) {
	ds.Alerts = append(ds.Alerts, alert)
}

func (ds *DecisionSupport) AddWarning(warning string) {
	ds.Warnings = append(ds.Warnings, warning)
}
