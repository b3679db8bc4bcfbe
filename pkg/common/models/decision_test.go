package models

import (
	"encoding/json"
	"testing"
)

func TestConfidenceLevelBands(t *testing.T) {
	cases := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{0.95, ConfidenceVeryHigh},
		{0.9, ConfidenceVeryHigh},
		{0.8999, ConfidenceHigh},
		{0.7, ConfidenceHigh},
		{0.69, ConfidenceMedium},
		{0.5, ConfidenceMedium},
		{0.3, ConfidenceLow},
		{0.29, ConfidenceVeryLow},
		{0, ConfidenceVeryLow},
	}
	for _, c := range cases {
		if got := ConfidenceLevelFor(c.score); got != c.want {
			t.Errorf("score %v: got %s, want %s", c.score, got, c.want)
		}
	}
}

func TestSetConfidenceScoreRecomputesLevel(t *testing.T) {
	d := NewDiagnosis("Pneumonia", 0.95)
	if d.ConfidenceLevel != ConfidenceVeryHigh {
		t.Fatalf("got %s, want very_high", d.ConfidenceLevel)
	}
	d.SetConfidenceScore(0.4)
	if d.ConfidenceLevel != ConfidenceLow {
		t.Fatalf("got %s after update, want low", d.ConfidenceLevel)
	}
}

func TestAddDiagnosisEscalatesUrgency(t *testing.T) {
	ds := NewDecisionSupport("req-1", "pat-1")
	if ds.UrgencyLevel != PriorityRoutine {
		t.Fatalf("initial urgency %s, want routine", ds.UrgencyLevel)
	}

	// High confidence urgent condition
	ds.AddDiagnosis(NewDiagnosis("Community-acquired Pneumonia", 0.85))
	if ds.UrgencyLevel != PriorityUrgent {
		t.Fatalf("urgency %s after pneumonia, want urgent", ds.UrgencyLevel)
	}

	// High confidence emergency condition
	ds.AddDiagnosis(NewDiagnosis("Septic shock with sepsis", 0.9))
	if ds.UrgencyLevel != PriorityEmergency {
		t.Fatalf("urgency %s after sepsis, want emergency", ds.UrgencyLevel)
	}

	// A lower-severity finding must never downgrade
	ds.AddDiagnosis(NewDiagnosis("Hip Fracture", 0.95))
	if ds.UrgencyLevel != PriorityEmergency {
		t.Fatalf("urgency downgraded to %s", ds.UrgencyLevel)
	}
}

func TestAddDiagnosisIgnoresLowConfidence(t *testing.T) {
	ds := NewDecisionSupport("req-1", "pat-1")
	ds.AddDiagnosis(NewDiagnosis("Possible stroke", 0.8))
	if ds.UrgencyLevel != PriorityRoutine {
		t.Fatalf("urgency %s, escalation requires confidence above 0.8", ds.UrgencyLevel)
	}
	ds.AddDiagnosis(NewDiagnosis("Possible stroke", 0.81))
	if ds.UrgencyLevel != PriorityEmergency {
		t.Fatalf("urgency %s, want emergency at confidence 0.81", ds.UrgencyLevel)
	}
}

func TestRaiseUrgencyNeverDowngrades(t *testing.T) {
	ds := NewDecisionSupport("req-1", "pat-1")
	ds.RaiseUrgency(PriorityUrgent)
	if ds.UrgencyLevel != PriorityUrgent {
		t.Fatalf("got %s, want urgent", ds.UrgencyLevel)
	}
	ds.RaiseUrgency(PrioritySoon)
	if ds.UrgencyLevel != PriorityUrgent {
		t.Fatalf("urgency downgraded to %s", ds.UrgencyLevel)
	}
}

func TestTopDiagnosisTieResolvesToFirst(t *testing.T) {
	ds := NewDecisionSupport("req-1", "pat-1")
	if ds.TopDiagnosis() != nil {
		t.Fatal("expected nil top diagnosis on empty decision")
	}

	first := NewDiagnosis("Condition A", 0.7)
	second := NewDiagnosis("Condition B", 0.7)
	third := NewDiagnosis("Condition C", 0.6)
	ds.AddDiagnosis(first)
	ds.AddDiagnosis(second)
	ds.AddDiagnosis(third)

	if top := ds.TopDiagnosis(); top != first {
		t.Fatalf("got %s, want first-listed maximum", top.Condition)
	}
}

func TestDecisionSupportJSONRoundTrip(t *testing.T) {
	ds := NewDecisionSupport("req-9", "pat-9")
	ds.AddDiagnosis(NewDiagnosis("Cardiology Condition Detected", 0.72))
	ds.TriageScore = 85
	ds.ModelsUsed = []string{"domain_cardiology"}
	ds.AddAlert("Slow request detected")

	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded DecisionSupport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.RequestID != "req-9" || decoded.TriageScore != 85 {
		t.Fatalf("round trip lost fields: %+v", decoded)
	}
	if len(decoded.Diagnoses) != 1 || decoded.Diagnoses[0].ConfidenceLevel != ConfidenceHigh {
		t.Fatalf("round trip lost diagnoses: %+v", decoded.Diagnoses)
	}
}
