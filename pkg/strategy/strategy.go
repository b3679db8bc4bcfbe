package strategy

import (
	"fmt"
	"strings"

	"github.com/earlycare-ai/gateway/pkg/common/models"
)

// ModelStrategy is the capability interface every diagnostic strategy
// implements. CanHandle decides applicability from record content; Execute
// populates the decision with this strategy's candidate diagnoses.
//
// The confidence scores produced here are fixed per strategy family; they
// stand in for the output of a real diagnostic model.
type ModelStrategy interface {
	Name() string
	Version() string
	ConfidenceThreshold() float64
	CanHandle(record *models.PatientRecord, pctx *models.ProcessingContext) bool
	Execute(record *models.PatientRecord, decision *models.DecisionSupport, pctx *models.ProcessingContext) error
}

type baseStrategy struct {
	name                string
	version             string
	confidenceThreshold float64
}

func newBase(name string) baseStrategy {
	return baseStrategy{name: name, version: "1.0.0", confidenceThreshold: 0.5}
}

func (b baseStrategy) Name() string                 { return b.name }
func (b baseStrategy) Version() string              { return b.version }
func (b baseStrategy) ConfidenceThreshold() float64 { return b.confidenceThreshold }

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DomainStrategy matches records relevant to one clinical specialty by
// keyword. The "general" domain has no keywords and matches everything,
// which makes it the usual default fallback.
type DomainStrategy struct {
	baseStrategy
	domain   string
	keywords []string
}

func NewDomainStrategy(domain string, keywords []string) *DomainStrategy {
	return &DomainStrategy{
		baseStrategy: newBase("domain_" + domain),
		domain:       domain,
		keywords:     keywords,
	}
}

func (s *DomainStrategy) Domain() string { return s.domain }

func (s *DomainStrategy) CanHandle(record *models.PatientRecord, _ *models.ProcessingContext) bool {
	if s.domain == "general" || len(s.keywords) == 0 {
		return true
	}

	if containsAny(record.ChiefComplaint, s.keywords) {
		return true
	}
	for _, obs := range record.Observations {
		if text, ok := obs.(*models.TextObservation); ok && containsAny(text.TextContent, s.keywords) {
			return true
		}
	}
	if record.Patient != nil {
		for _, condition := range record.Patient.MedicalHistory {
			if containsAny(condition, s.keywords) {
				return true
			}
		}
	}
	return false
}

func (s *DomainStrategy) Execute(record *models.PatientRecord, decision *models.DecisionSupport, _ *models.ProcessingContext) error {
	diagnosis := models.NewDiagnosis(fmt.Sprintf("%s Condition Detected", title(s.domain)), 0.72)
	diagnosis.Evidence = []string{
		fmt.Sprintf("%s indicators found", title(s.domain)),
		"Clinical correlation",
	}
	diagnosis.RecommendedTests = []string{fmt.Sprintf("%s specialist consultation", title(s.domain))}
	diagnosis.RecommendedSpecialists = []string{fmt.Sprintf("%s specialist", title(s.domain))}

	decision.AddDiagnosis(diagnosis)
	decision.Explanation = fmt.Sprintf("Domain analysis for %s completed", s.domain)
	decision.FeatureImportance = map[string]float64{
		"chief_complaint": 0.3,
		"medical_history": 0.2,
		"clinical_data":   0.5,
	}
	return nil
}

// DeviceStrategy matches records carrying signal observations produced by a
// class of monitoring device.
type DeviceStrategy struct {
	baseStrategy
	deviceType  string
	signalTypes []string
}

func NewDeviceStrategy(deviceType string, signalTypes []string) *DeviceStrategy {
	return &DeviceStrategy{
		baseStrategy: newBase("device_" + deviceType),
		deviceType:   deviceType,
		signalTypes:  signalTypes,
	}
}

func (s *DeviceStrategy) matches(signalType string) bool {
	for _, st := range s.signalTypes {
		if strings.EqualFold(st, signalType) {
			return true
		}
	}
	return false
}

func (s *DeviceStrategy) CanHandle(record *models.PatientRecord, _ *models.ProcessingContext) bool {
	for _, obs := range record.Observations {
		if signal, ok := obs.(*models.SignalObservation); ok && s.matches(signal.SignalType) {
			return true
		}
	}
	return false
}

func (s *DeviceStrategy) Execute(record *models.PatientRecord, decision *models.DecisionSupport, _ *models.ProcessingContext) error {
	for _, obs := range record.Observations {
		signal, ok := obs.(*models.SignalObservation)
		if !ok || !s.matches(signal.SignalType) {
			continue
		}

		diagnosis := models.NewDiagnosis(fmt.Sprintf("Abnormal %s Pattern", signal.SignalType), 0.68)
		diagnosis.Evidence = []string{
			fmt.Sprintf("%s signal analysis", signal.SignalType),
			"Pattern recognition",
		}
		diagnosis.RecommendedTests = []string{fmt.Sprintf("Extended %s monitoring", signal.SignalType)}
		if s.deviceType == "cardiac" {
			diagnosis.RecommendedSpecialists = []string{"Cardiologist"}
		} else {
			diagnosis.RecommendedSpecialists = []string{"Specialist"}
		}
		decision.AddDiagnosis(diagnosis)
	}

	decision.Explanation = fmt.Sprintf("Device analysis for %s signals completed", s.deviceType)
	return nil
}

// PathologyStrategy matches records with pathology-relevant imaging or text.
type PathologyStrategy struct {
	baseStrategy
	pathologyType string
	modalities    []string
	keywords      []string
}

func NewPathologyStrategy(pathologyType string, modalities, keywords []string) *PathologyStrategy {
	return &PathologyStrategy{
		baseStrategy:  newBase("pathology_" + pathologyType),
		pathologyType: pathologyType,
		modalities:    modalities,
		keywords:      append(append([]string(nil), keywords...), pathologyType),
	}
}

func (s *PathologyStrategy) CanHandle(record *models.PatientRecord, _ *models.ProcessingContext) bool {
	for _, obs := range record.Observations {
		if image, ok := obs.(*models.ImageObservation); ok {
			for _, modality := range s.modalities {
				if strings.EqualFold(modality, image.Modality) {
					return true
				}
			}
		}
	}
	for _, obs := range record.Observations {
		if text, ok := obs.(*models.TextObservation); ok && containsAny(text.TextContent, s.keywords) {
			return true
		}
	}
	return false
}

func (s *PathologyStrategy) Execute(record *models.PatientRecord, decision *models.DecisionSupport, _ *models.ProcessingContext) error {
	diagnosis := models.NewDiagnosis(fmt.Sprintf("%s Analysis Required", title(s.pathologyType)), 0.75)
	diagnosis.Evidence = []string{"Pathology imaging detected", "Clinical indicators present"}
	diagnosis.RecommendedTests = []string{"Detailed pathology review", "Molecular testing"}
	diagnosis.RecommendedSpecialists = []string{"Pathologist", "Oncologist"}

	decision.AddDiagnosis(diagnosis)
	decision.Explanation = fmt.Sprintf("Pathology analysis for %s completed", s.pathologyType)
	return nil
}

// EnsembleStrategy combines several strategies: it matches when any member
// matches and executes every matching member in registration order.
type EnsembleStrategy struct {
	baseStrategy
	strategies []ModelStrategy
}

func NewEnsembleStrategy(strategies []ModelStrategy) *EnsembleStrategy {
	return &EnsembleStrategy{
		baseStrategy: newBase("ensemble"),
		strategies:   strategies,
	}
}

func (s *EnsembleStrategy) Members() []ModelStrategy { return s.strategies }

func (s *EnsembleStrategy) CanHandle(record *models.PatientRecord, pctx *models.ProcessingContext) bool {
	for _, member := range s.strategies {
		if member.CanHandle(record, pctx) {
			return true
		}
	}
	return false
}

func (s *EnsembleStrategy) Execute(record *models.PatientRecord, decision *models.DecisionSupport, pctx *models.ProcessingContext) error {
	executed := 0
	for _, member := range s.strategies {
		if !member.CanHandle(record, pctx) {
			continue
		}
		if err := member.Execute(record, decision, pctx); err != nil {
			return fmt.Errorf("ensemble member %s: %w", member.Name(), err)
		}
		decision.ModelsUsed = append(decision.ModelsUsed, member.Name())
		executed++
	}

	decision.Explanation = fmt.Sprintf("Ensemble of %d models", executed)
	return nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
