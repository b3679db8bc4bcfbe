package strategy

import (
	"os"
	"testing"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func textRecord(complaint, note string) *models.PatientRecord {
	record := &models.PatientRecord{
		Patient:        &models.Patient{PatientID: "pat-1"},
		ChiefComplaint: complaint,
	}
	if note != "" {
		record.AddObservation(&models.TextObservation{TextContent: note})
	}
	return record
}

func TestDomainStrategyMatching(t *testing.T) {
	cardio := NewDomainStrategy("cardiology", []string{"heart", "cardiac", "chest pain"})
	pctx := models.NewProcessingContext("req-1")

	if !cardio.CanHandle(textRecord("chest pain on exertion", ""), pctx) {
		t.Fatal("chief complaint keyword not matched")
	}
	if !cardio.CanHandle(textRecord("", "suspected cardiac arrhythmia"), pctx) {
		t.Fatal("text observation keyword not matched")
	}

	history := textRecord("", "")
	history.Patient.MedicalHistory = []string{"Congestive heart failure"}
	if !cardio.CanHandle(history, pctx) {
		t.Fatal("medical history keyword not matched")
	}

	if cardio.CanHandle(textRecord("sprained ankle", "swelling around the joint"), pctx) {
		t.Fatal("unrelated record matched")
	}

	general := NewDomainStrategy("general", nil)
	if !general.CanHandle(textRecord("sprained ankle", ""), pctx) {
		t.Fatal("general domain must match everything")
	}
}

func TestDomainStrategyExecute(t *testing.T) {
	cardio := NewDomainStrategy("cardiology", []string{"heart"})
	decision := models.NewDecisionSupport("req-1", "pat-1")

	if err := cardio.Execute(textRecord("heart palpitations", ""), decision, nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(decision.Diagnoses) != 1 {
		t.Fatalf("got %d diagnoses, want 1", len(decision.Diagnoses))
	}
	d := decision.Diagnoses[0]
	if d.ConfidenceScore != 0.72 || d.ConfidenceLevel != models.ConfidenceHigh {
		t.Fatalf("confidence %v/%s, want 0.72/high", d.ConfidenceScore, d.ConfidenceLevel)
	}
	if d.Condition != "Cardiology Condition Detected" {
		t.Fatalf("condition %q", d.Condition)
	}
	if decision.FeatureImportance["clinical_data"] != 0.5 {
		t.Fatalf("feature importance %v", decision.FeatureImportance)
	}
}

func TestDeviceStrategyPerSignalDiagnoses(t *testing.T) {
	cardiac := NewDeviceStrategy("cardiac", []string{"ECG", "EKG"})
	pctx := models.NewProcessingContext("req-2")

	record := &models.PatientRecord{Patient: &models.Patient{PatientID: "pat-1"}}
	record.AddObservation(&models.SignalObservation{SignalType: "ecg", SignalValues: []float64{1}, SamplingRate: 1, Duration: 1})
	record.AddObservation(&models.SignalObservation{SignalType: "EEG", SignalValues: []float64{1}, SamplingRate: 1, Duration: 1})
	record.AddObservation(&models.SignalObservation{SignalType: "EKG", SignalValues: []float64{1}, SamplingRate: 1, Duration: 1})

	// Signal type match is case insensitive
	if !cardiac.CanHandle(record, pctx) {
		t.Fatal("cardiac signals not matched")
	}

	decision := models.NewDecisionSupport("req-2", "pat-1")
	if err := cardiac.Execute(record, decision, pctx); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(decision.Diagnoses) != 2 {
		t.Fatalf("got %d diagnoses, want one per matching signal", len(decision.Diagnoses))
	}
	for _, d := range decision.Diagnoses {
		if d.ConfidenceScore != 0.68 {
			t.Fatalf("confidence %v, want 0.68", d.ConfidenceScore)
		}
		if d.RecommendedSpecialists[0] != "Cardiologist" {
			t.Fatalf("specialists %v", d.RecommendedSpecialists)
		}
	}

	textOnly := textRecord("chest pain", "note")
	if cardiac.CanHandle(textOnly, pctx) {
		t.Fatal("record without signals matched")
	}
}

func TestPathologyStrategyMatching(t *testing.T) {
	cancer := NewPathologyStrategy("cancer", []string{"PATHOLOGY", "MRI"}, []string{"biopsy", "lesion"})
	pctx := models.NewProcessingContext("req-3")

	imaging := &models.PatientRecord{Patient: &models.Patient{PatientID: "pat-1"}}
	imaging.AddObservation(&models.ImageObservation{ImagePath: "/x", Modality: "mri", Dimensions: []int{64}})
	if !cancer.CanHandle(imaging, pctx) {
		t.Fatal("matching modality not detected")
	}

	// The pathology type itself acts as a keyword
	if !cancer.CanHandle(textRecord("", "family history of cancer"), pctx) {
		t.Fatal("pathology type keyword not matched")
	}
	if !cancer.CanHandle(textRecord("", "biopsy scheduled"), pctx) {
		t.Fatal("configured keyword not matched")
	}
	if cancer.CanHandle(textRecord("headache", "tension headache"), pctx) {
		t.Fatal("unrelated record matched")
	}

	decision := models.NewDecisionSupport("req-3", "pat-1")
	if err := cancer.Execute(imaging, decision, pctx); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if decision.Diagnoses[0].ConfidenceScore != 0.75 {
		t.Fatalf("confidence %v, want 0.75", decision.Diagnoses[0].ConfidenceScore)
	}
}

func TestEnsembleExecutesMatchingMembersInOrder(t *testing.T) {
	cardio := NewDomainStrategy("cardiology", []string{"heart"})
	neuro := NewDomainStrategy("neurology", []string{"seizure"})
	general := NewDomainStrategy("general", nil)
	ensemble := NewEnsembleStrategy([]ModelStrategy{cardio, neuro, general})

	pctx := models.NewProcessingContext("req-4")
	record := textRecord("heart palpitations", "")

	if !ensemble.CanHandle(record, pctx) {
		t.Fatal("ensemble should match when any member matches")
	}

	decision := models.NewDecisionSupport("req-4", "pat-1")
	if err := ensemble.Execute(record, decision, pctx); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	want := []string{"domain_cardiology", "domain_general"}
	if len(decision.ModelsUsed) != len(want) {
		t.Fatalf("models used %v, want %v", decision.ModelsUsed, want)
	}
	for i, name := range want {
		if decision.ModelsUsed[i] != name {
			t.Fatalf("models used %v, want %v in registration order", decision.ModelsUsed, want)
		}
	}
	if decision.Explanation != "Ensemble of 2 models" {
		t.Fatalf("explanation %q", decision.Explanation)
	}
}
