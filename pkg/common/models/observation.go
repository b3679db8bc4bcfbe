package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type ObservationKind string

const (
	KindText   ObservationKind = "text"
	KindSignal ObservationKind = "signal"
	KindImage  ObservationKind = "image"
)

type ObservationSource string

const (
	SourceEHR      ObservationSource = "electronic_health_record"
	SourceLab      ObservationSource = "laboratory"
	SourceImaging  ObservationSource = "imaging"
	SourceWearable ObservationSource = "wearable_device"
	SourceManual   ObservationSource = "manual_entry"
)

// MaxTextContentBytes caps the size of a single text observation.
const MaxTextContentBytes = 1_000_000

// ClinicalObservation is the sealed variant type over text, signal and image
// observations. An observation counts as validated only after its
// kind-specific structural check passed.
type ClinicalObservation interface {
	Kind() ObservationKind
	Base() *ObservationBase
	// Validate runs the kind-specific structural check. On success it marks
	// the observation validated; on failure it returns the reason.
	Validate() error
}

// ObservationBase carries the fields shared by every observation kind.
type ObservationBase struct {
	ObservationID string                 `json:"observation_id"`
	PatientID     string                 `json:"patient_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Source        ObservationSource      `json:"source"`
	QualityScore  *float64               `json:"quality_score,omitempty"`
	IsValidated   bool                   `json:"is_validated"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

func (b *ObservationBase) Base() *ObservationBase { return b }

// TextObservation holds free-text clinical content (notes, reports,
// transcriptions).
type TextObservation struct {
	ObservationBase
	TextContent  string `json:"text_content"`
	Language     string `json:"language,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

func (o *TextObservation) Kind() ObservationKind { return KindText }

func (o *TextObservation) Validate() error {
	if strings.TrimSpace(o.TextContent) == "" {
		return fmt.Errorf("text observation %s: empty content", o.ObservationID)
	}
	if len(o.TextContent) > MaxTextContentBytes {
		return fmt.Errorf("text observation %s: content exceeds %d bytes", o.ObservationID, MaxTextContentBytes)
	}
	o.IsValidated = true
	return nil
}

// SignalObservation holds sampled waveform data (ECG, EEG, vital signs).
type SignalObservation struct {
	ObservationBase
	SignalType   string    `json:"signal_type"`
	SignalValues []float64 `json:"signal_values"`
	SamplingRate float64   `json:"sampling_rate"`
	Units        string    `json:"units,omitempty"`
	Duration     float64   `json:"duration"`
}

func (o *SignalObservation) Kind() ObservationKind { return KindSignal }

func (o *SignalObservation) Validate() error {
	if len(o.SignalValues) == 0 {
		return fmt.Errorf("signal observation %s: no samples", o.ObservationID)
	}
	if o.SamplingRate <= 0 {
		return fmt.Errorf("signal observation %s: non-positive sampling rate", o.ObservationID)
	}
	// Sample count must be within 10% of duration * sampling rate.
	expected := o.Duration * o.SamplingRate
	if math.Abs(float64(len(o.SignalValues))-expected) > expected*0.1 {
		return fmt.Errorf("signal observation %s: %d samples, expected about %.0f", o.ObservationID, len(o.SignalValues), expected)
	}
	o.IsValidated = true
	return nil
}

// ImageObservation references stored imaging data (X-ray, CT, MRI, pathology
// slides).
type ImageObservation struct {
	ObservationBase
	ImagePath    string `json:"image_path"`
	ImageFormat  string `json:"image_format,omitempty"`
	Modality     string `json:"modality"`
	Dimensions   []int  `json:"dimensions"`
	BodyPart     string `json:"body_part,omitempty"`
	ContrastUsed bool   `json:"contrast_used,omitempty"`
}

func (o *ImageObservation) Kind() ObservationKind { return KindImage }

func (o *ImageObservation) Validate() error {
	if o.ImagePath == "" {
		return fmt.Errorf("image observation %s: missing image path", o.ObservationID)
	}
	if len(o.Dimensions) == 0 {
		return fmt.Errorf("image observation %s: missing dimensions", o.ObservationID)
	}
	for _, d := range o.Dimensions {
		if d <= 0 {
			return fmt.Errorf("image observation %s: non-positive dimension %d", o.ObservationID, d)
		}
	}
	o.IsValidated = true
	return nil
}

func (o *TextObservation) MarshalJSON() ([]byte, error) {
	type plain TextObservation
	return json.Marshal(struct {
		Kind ObservationKind `json:"kind"`
		*plain
	}{KindText, (*plain)(o)})
}

func (o *SignalObservation) MarshalJSON() ([]byte, error) {
	type plain SignalObservation
	return json.Marshal(struct {
		Kind ObservationKind `json:"kind"`
		*plain
	}{KindSignal, (*plain)(o)})
}

func (o *ImageObservation) MarshalJSON() ([]byte, error) {
	type plain ImageObservation
	return json.Marshal(struct {
		Kind ObservationKind `json:"kind"`
		*plain
	}{KindImage, (*plain)(o)})
}

// UnmarshalObservation decodes one observation, dispatching on its "kind" tag.
func UnmarshalObservation(data []byte) (ClinicalObservation, error) {
	var probe struct {
		Kind ObservationKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Kind {
	case KindText:
		var obs TextObservation
		if err := json.Unmarshal(data, &obs); err != nil {
			return nil, err
		}
		return &obs, nil
	case KindSignal:
		var obs SignalObservation
		if err := json.Unmarshal(data, &obs); err != nil {
			return nil, err
		}
		return &obs, nil
	case KindImage:
		var obs ImageObservation
		if err := json.Unmarshal(data, &obs); err != nil {
			return nil, err
		}
		return &obs, nil
	default:
		return nil, fmt.Errorf("unknown observation kind %q", probe.Kind)
	}
}
