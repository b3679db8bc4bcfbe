package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/earlycare-ai/gateway/pkg/common/models"
)

func TestSelectFirstMatchWins(t *testing.T) {
	selector := NewSelector()
	cardio := NewDomainStrategy("cardiology", []string{"heart"})
	general := NewDomainStrategy("general", nil)
	selector.Register(cardio)
	selector.Register(general)

	pctx := models.NewProcessingContext("req-1")
	selected, err := selector.Select(textRecord("heart murmur", ""), pctx)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if selected != cardio {
		t.Fatalf("selected %s, want first registered match", selected.Name())
	}
}

func TestSelectFallsBackToDefault(t *testing.T) {
	selector := NewSelector()
	cardio := NewDomainStrategy("cardiology", []string{"heart"})
	fallback := NewDomainStrategy("general", []string{"never-matches"})
	selector.Register(cardio)
	selector.SetDefault(fallback)

	pctx := models.NewProcessingContext("req-2")
	selected, err := selector.Select(textRecord("sprained ankle", ""), pctx)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if selected != fallback {
		t.Fatalf("selected %s, want the default", selected.Name())
	}
}

func TestSelectErrNoStrategy(t *testing.T) {
	selector := NewSelector()
	selector.Register(NewDomainStrategy("cardiology", []string{"heart"}))

	pctx := models.NewProcessingContext("req-3")
	if _, err := selector.Select(textRecord("sprained ankle", ""), pctx); !errors.Is(err, ErrNoStrategy) {
		t.Fatalf("got %v, want ErrNoStrategy", err)
	}
}

func TestSelectEnsembleWrapsMultipleMatches(t *testing.T) {
	selector := NewSelector()
	selector.Register(NewDomainStrategy("cardiology", []string{"heart"}))
	selector.Register(NewDomainStrategy("general", nil))
	selector.EnableEnsemble(true)

	pctx := models.NewProcessingContext("req-4")
	selected, err := selector.Select(textRecord("heart murmur", ""), pctx)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	ensemble, ok := selected.(*EnsembleStrategy)
	if !ok {
		t.Fatalf("selected %T, want ensemble", selected)
	}
	if len(ensemble.Members()) != 2 {
		t.Fatalf("ensemble has %d members, want 2", len(ensemble.Members()))
	}

	// A single match is returned directly even with ensemble mode on
	single, err := selector.Select(textRecord("sprained ankle", ""), pctx)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, ok := single.(*EnsembleStrategy); ok {
		t.Fatal("single match wrapped in ensemble")
	}
}

func TestBuildSelectorRegistersFallbackLast(t *testing.T) {
	selector := BuildSelector(DefaultCatalog())
	names := selector.Available()
	if len(names) == 0 {
		t.Fatal("no strategies registered")
	}
	if names[len(names)-1] != "domain_general" {
		t.Fatalf("last registered strategy %s, want the general fallback", names[len(names)-1])
	}

	// The fallback catches records no specific strategy matches
	pctx := models.NewProcessingContext("req-5")
	selected, err := selector.Select(textRecord("sprained ankle", ""), pctx)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if selected.Name() != "domain_general" {
		t.Fatalf("selected %s, want the general fallback", selected.Name())
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	content := `
ensemble: true
domains:
  - name: cardiology
    keywords: ["heart"]
default: general
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !catalog.Ensemble || len(catalog.Domains) != 1 || catalog.Default != "general" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
}

func TestLoadCatalogDefaults(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("empty path should load defaults: %v", err)
	}
	if len(catalog.Domains) != 5 || len(catalog.Devices) != 3 || len(catalog.Pathologies) != 2 {
		t.Fatalf("unexpected default catalog: %+v", catalog)
	}

	// Missing file falls back to defaults but reports the error
	fallback, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("missing catalog file should surface an error")
	}
	if len(fallback.Domains) == 0 {
		t.Fatal("missing catalog file should still return the defaults")
	}
}

func TestLoadCatalogRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("default: general\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("catalog without strategies accepted")
	}
}
