package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Priority is the four-valued urgency band used both for the record's
// priority label and for the decision's urgency level.
type Priority string

const (
	PriorityRoutine   Priority = "routine"
	PrioritySoon      Priority = "soon"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// Rank returns the base triage score for a priority. Higher outranks lower.
func (p Priority) Rank() int {
	switch p {
	case PriorityEmergency:
		return 100
	case PriorityUrgent:
		return 75
	case PrioritySoon:
		return 50
	case PriorityRoutine:
		return 25
	default:
		return 25
	}
}

// PriorityForScore maps a clamped triage score to its priority band.
func PriorityForScore(score float64) Priority {
	switch {
	case score >= 90:
		return PriorityEmergency
	case score >= 70:
		return PriorityUrgent
	case score >= 40:
		return PrioritySoon
	default:
		return PriorityRoutine
	}
}

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// Patient holds demographic and longitudinal clinical information.
type Patient struct {
	PatientID       string     `json:"patient_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	BirthDate       time.Time  `json:"birth_date"`
	Gender          Gender     `json:"gender,omitempty"`
	FiscalCode      string     `json:"fiscal_code,omitempty"`
	DeceasedAt      *time.Time `json:"deceased_at,omitempty"`
	Allergies       []string   `json:"allergies,omitempty"`
	MedicalHistory  []string   `json:"medical_history,omitempty"`
	Age             *int       `json:"age,omitempty"`
	PrimaryLanguage string     `json:"primary_language,omitempty"`
}

// CalculateAge derives the patient's age from the birth date and stores it.
func (p *Patient) CalculateAge() int {
	now := time.Now()
	age := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		age--
	}
	p.Age = &age
	return age
}

// Anonymize returns a copy with direct identifiers blanked. The birth date
// keeps its year only.
func (p *Patient) Anonymize() *Patient {
	out := &Patient{
		PatientID:       "ANONYMIZED",
		FirstName:       "ANONYMIZED",
		LastName:        "ANONYMIZED",
		BirthDate:       time.Date(p.BirthDate.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:          p.Gender,
		DeceasedAt:      p.DeceasedAt,
		Allergies:       append([]string(nil), p.Allergies...),
		MedicalHistory:  append([]string(nil), p.MedicalHistory...),
		PrimaryLanguage: p.PrimaryLanguage,
	}
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	return out
}

// PatientRecord is a single clinical encounter: the patient plus the
// observations attached to it. It is mutable during pipeline traversal; the
// pipeline may upgrade Priority but never downgrades it.
type PatientRecord struct {
	Patient            *Patient               `json:"patient"`
	Observations       []ClinicalObservation  `json:"observations"`
	EncounterID        string                 `json:"encounter_id,omitempty"`
	EncounterTimestamp time.Time              `json:"encounter_timestamp"`
	Priority           Priority               `json:"priority"`
	ChiefComplaint     string                 `json:"chief_complaint,omitempty"`
	CurrentMedications []string               `json:"current_medications,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

func (r *PatientRecord) AddObservation(obs ClinicalObservation) {
	r.Observations = append(r.Observations, obs)
}

// ObservationsByKind returns the observations of a given kind, in order.
func (r *PatientRecord) ObservationsByKind(kind ObservationKind) []ClinicalObservation {
	var out []ClinicalObservation
	for _, obs := range r.Observations {
		if obs.Kind() == kind {
			out = append(out, obs)
		}
	}
	return out
}

// UpgradePriority raises the record priority to p if p outranks the current
// value. It never downgrades.
func (r *PatientRecord) UpgradePriority(p Priority) bool {
	if p.Rank() > r.Priority.Rank() {
		r.Priority = p
		return true
	}
	return false
}

// Anonymize returns a copy of the record with patient identifiers blanked
// and text observations passed through maskText (nil leaves text untouched).
// Non-text observations are shared, not copied.
func (r *PatientRecord) Anonymize(maskText func(string) string) *PatientRecord {
	out := &PatientRecord{
		Observations:       make([]ClinicalObservation, 0, len(r.Observations)),
		EncounterID:        r.EncounterID,
		EncounterTimestamp: r.EncounterTimestamp,
		Priority:           r.Priority,
		ChiefComplaint:     r.ChiefComplaint,
		CurrentMedications: append([]string(nil), r.CurrentMedications...),
		Metadata:           r.Metadata,
	}
	if r.Patient != nil {
		out.Patient = r.Patient.Anonymize()
	}
	for _, obs := range r.Observations {
		if text, ok := obs.(*TextObservation); ok && maskText != nil {
			masked := *text
			masked.TextContent = maskText(text.TextContent)
			out.Observations = append(out.Observations, &masked)
			continue
		}
		out.Observations = append(out.Observations, obs)
	}
	return out
}

type recordAlias struct {
	Patient            *Patient               `json:"patient"`
	Observations       []json.RawMessage      `json:"observations"`
	EncounterID        string                 `json:"encounter_id,omitempty"`
	EncounterTimestamp time.Time              `json:"encounter_timestamp"`
	Priority           Priority               `json:"priority"`
	ChiefComplaint     string                 `json:"chief_complaint,omitempty"`
	CurrentMedications []string               `json:"current_medications,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// UnmarshalJSON dispatches each observation on its "kind" tag.
func (r *PatientRecord) UnmarshalJSON(data []byte) error {
	var alias recordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	r.Patient = alias.Patient
	r.EncounterID = alias.EncounterID
	r.EncounterTimestamp = alias.EncounterTimestamp
	r.Priority = alias.Priority
	r.ChiefComplaint = alias.ChiefComplaint
	r.CurrentMedications = alias.CurrentMedications
	r.Metadata = alias.Metadata

	r.Observations = nil
	for i, raw := range alias.Observations {
		obs, err := UnmarshalObservation(raw)
		if err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		r.Observations = append(r.Observations, obs)
	}
	return nil
}
