package strategy

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Catalog describes the strategies a selector should register, in order.
type Catalog struct {
	Ensemble    bool              `yaml:"ensemble" json:"ensemble"`
	Domains     []DomainSpec      `yaml:"domains" json:"domains"`
	Devices     []DeviceSpec      `yaml:"devices" json:"devices"`
	Pathologies []PathologySpec   `yaml:"pathologies" json:"pathologies"`
	Default     string            `yaml:"default" json:"default"`
}

type DomainSpec struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type DeviceSpec struct {
	Name        string   `yaml:"name" json:"name"`
	SignalTypes []string `yaml:"signal_types" json:"signal_types"`
}

type PathologySpec struct {
	Name       string   `yaml:"name" json:"name"`
	Modalities []string `yaml:"modalities" json:"modalities"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
}

// LoadCatalog reads a catalog file, falling back to the compiled defaults
// when no path is given.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}

	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return Catalog{}, err
	}

	if len(catalog.Domains) == 0 && len(catalog.Devices) == 0 && len(catalog.Pathologies) == 0 {
		return Catalog{}, errors.New("strategy catalog is empty")
	}

	return catalog, nil
}

// DefaultCatalog mirrors the built-in strategy set: specialty domains,
// device classes and pathology families, with the general domain registered
// last as the fallback.
func DefaultCatalog() Catalog {
	return Catalog{
		Domains: []DomainSpec{
			{Name: "cardiology", Keywords: []string{"heart", "cardiac", "cardiovascular", "chest pain", "ecg"}},
			{Name: "neurology", Keywords: []string{"brain", "neurological", "seizure", "stroke", "headache"}},
			{Name: "pulmonology", Keywords: []string{"lung", "respiratory", "breathing", "pneumonia", "copd"}},
			{Name: "oncology", Keywords: []string{"cancer", "tumor", "malignancy", "chemotherapy", "radiation"}},
			{Name: "radiology", Keywords: []string{"x-ray", "ct", "mri", "imaging", "scan"}},
		},
		Devices: []DeviceSpec{
			{Name: "cardiac", SignalTypes: []string{"ECG", "EKG"}},
			{Name: "neurological", SignalTypes: []string{"EEG"}},
			{Name: "respiratory", SignalTypes: []string{"SpO2", "Respiration"}},
		},
		Pathologies: []PathologySpec{
			{Name: "cancer", Modalities: []string{"PATHOLOGY", "MRI", "CT"}, Keywords: []string{"biopsy", "tumor", "lesion", "pathology"}},
			{Name: "tissue", Modalities: []string{"PATHOLOGY", "MRI", "CT"}, Keywords: []string{"biopsy", "tumor", "lesion", "pathology"}},
		},
		Default: "general",
	}
}

// BuildSelector registers the catalog's strategies in order: domains, then
// devices, then pathologies, then the general fallback (registered last and
// set as default).
func BuildSelector(catalog Catalog) *StrategySelector {
	selector := NewSelector()
	selector.EnableEnsemble(catalog.Ensemble)

	for _, spec := range catalog.Domains {
		selector.Register(NewDomainStrategy(spec.Name, spec.Keywords))
	}
	for _, spec := range catalog.Devices {
		selector.Register(NewDeviceStrategy(spec.Name, spec.SignalTypes))
	}
	for _, spec := range catalog.Pathologies {
		selector.Register(NewPathologyStrategy(spec.Name, spec.Modalities, spec.Keywords))
	}

	if catalog.Default != "" {
		fallback := NewDomainStrategy(catalog.Default, nil)
		selector.Register(fallback)
		selector.SetDefault(fallback)
	}

	return selector
}

// DefaultSelector builds a selector from the compiled default catalog.
func DefaultSelector() *StrategySelector {
	return BuildSelector(DefaultCatalog())
}
