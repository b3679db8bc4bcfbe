package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTextObservationValidate(t *testing.T) {
	obs := &TextObservation{
		ObservationBase: ObservationBase{ObservationID: "obs-1", PatientID: "pat-1"},
		TextContent:     "Patient reports chest pain radiating to the left arm.",
	}
	if err := obs.Validate(); err != nil {
		t.Fatalf("valid text rejected: %v", err)
	}
	if !obs.IsValidated {
		t.Fatal("observation not marked validated")
	}

	empty := &TextObservation{TextContent: "   "}
	if err := empty.Validate(); err == nil {
		t.Fatal("whitespace-only content accepted")
	}
	if empty.IsValidated {
		t.Fatal("failed validation must not mark observation validated")
	}

	huge := &TextObservation{TextContent: strings.Repeat("x", MaxTextContentBytes+1)}
	if err := huge.Validate(); err == nil {
		t.Fatal("oversized content accepted")
	}
}

func TestSignalObservationSampleTolerance(t *testing.T) {
	base := func(n int) *SignalObservation {
		return &SignalObservation{
			ObservationBase: ObservationBase{ObservationID: "sig-1"},
			SignalType:      "ECG",
			SignalValues:    make([]float64, n),
			SamplingRate:    10,
			Duration:        10,
		}
	}

	// Expected 100 samples, 10% tolerance
	if err := base(100).Validate(); err != nil {
		t.Fatalf("exact sample count rejected: %v", err)
	}
	if err := base(110).Validate(); err != nil {
		t.Fatalf("count at tolerance edge rejected: %v", err)
	}
	if err := base(90).Validate(); err != nil {
		t.Fatalf("count at lower tolerance edge rejected: %v", err)
	}
	if err := base(111).Validate(); err == nil {
		t.Fatal("count beyond tolerance accepted")
	}

	noSamples := base(0)
	if err := noSamples.Validate(); err == nil {
		t.Fatal("empty sample list accepted")
	}

	badRate := base(100)
	badRate.SamplingRate = 0
	if err := badRate.Validate(); err == nil {
		t.Fatal("zero sampling rate accepted")
	}
}

func TestImageObservationValidate(t *testing.T) {
	obs := &ImageObservation{
		ObservationBase: ObservationBase{ObservationID: "img-1"},
		ImagePath:       "/data/scans/img-1.dcm",
		Modality:        "CT",
		Dimensions:      []int{512, 512},
	}
	if err := obs.Validate(); err != nil {
		t.Fatalf("valid image rejected: %v", err)
	}

	noPath := &ImageObservation{Dimensions: []int{512, 512}}
	if err := noPath.Validate(); err == nil {
		t.Fatal("missing image path accepted")
	}

	badDim := &ImageObservation{ImagePath: "/x", Dimensions: []int{512, 0}}
	if err := badDim.Validate(); err == nil {
		t.Fatal("zero dimension accepted")
	}
}

func TestPatientRecordJSONDispatch(t *testing.T) {
	record := &PatientRecord{
		Patient: &Patient{
			PatientID: "pat-7",
			BirthDate: time.Date(1950, 3, 12, 0, 0, 0, 0, time.UTC),
		},
		Priority:       PriorityUrgent,
		ChiefComplaint: "shortness of breath",
	}
	record.AddObservation(&TextObservation{
		ObservationBase: ObservationBase{ObservationID: "obs-text"},
		TextContent:     "productive cough for three days",
	})
	record.AddObservation(&SignalObservation{
		ObservationBase: ObservationBase{ObservationID: "obs-sig"},
		SignalType:      "SpO2",
		SignalValues:    []float64{0.94, 0.93, 0.95},
		SamplingRate:    1,
		Duration:        3,
	})
	record.AddObservation(&ImageObservation{
		ObservationBase: ObservationBase{ObservationID: "obs-img"},
		ImagePath:       "/data/xr/obs-img.png",
		Modality:        "X-RAY",
		Dimensions:      []int{1024, 1024},
	})

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded PatientRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded.Observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(decoded.Observations))
	}
	if _, ok := decoded.Observations[0].(*TextObservation); !ok {
		t.Fatalf("observation 0 decoded as %T, want text", decoded.Observations[0])
	}
	if sig, ok := decoded.Observations[1].(*SignalObservation); !ok || sig.SignalType != "SpO2" {
		t.Fatalf("observation 1 decoded as %T", decoded.Observations[1])
	}
	if img, ok := decoded.Observations[2].(*ImageObservation); !ok || img.Modality != "X-RAY" {
		t.Fatalf("observation 2 decoded as %T", decoded.Observations[2])
	}
}

func TestPatientRecordUnmarshalUnknownKind(t *testing.T) {
	payload := `{"patient":{"patient_id":"p"},"observations":[{"kind":"genomic"}]}`
	var record PatientRecord
	if err := json.Unmarshal([]byte(payload), &record); err == nil {
		t.Fatal("unknown observation kind accepted")
	}
}
