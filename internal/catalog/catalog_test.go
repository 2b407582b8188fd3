package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/docugraph/docugraph-backend/internal/domain"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
)

const validYAML = `entity_types:
  - type_name: person
    description: Individual people
    examples: ["John Doe"]
  - type_name: organization
    description: Companies and institutions
`

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entity-types.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog file: %v", err)
	}
	return path
}

func TestLoadValidCatalog(t *testing.T) {
	cat, err := Load(writeCatalogFile(t, validYAML), logger.NewNop())
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 types, got %d", cat.Len())
	}
	if !cat.Contains("person") || !cat.Contains("organization") {
		t.Fatalf("expected person and organization in catalog")
	}
	if cat.Contains("spaceship") {
		t.Fatalf("did not expect spaceship in catalog")
	}
	def, ok := cat.Lookup("person")
	if !ok || def.Description != "Individual people" {
		t.Fatalf("unexpected person definition: %+v ok=%v", def, ok)
	}
	if got := cat.Types(); got[0].TypeName != "person" || got[1].TypeName != "organization" {
		t.Fatalf("expected file order preserved, got %+v", got)
	}
}

func TestLoadRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"uppercase": "entity_types:\n  - type_name: Person\n    description: d\n",
		"spaces":    "entity_types:\n  - type_name: legal entity\n    description: d\n",
		"empty":     "entity_types: []\n",
		"duplicate": "entity_types:\n  - type_name: person\n    description: a\n  - type_name: person\n    description: b\n",
	}
	for name, content := range cases {
		if _, err := Load(writeCatalogFile(t, content), logger.NewNop()); err == nil {
			t.Fatalf("case %s: expected load to fail", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), logger.NewNop()); err == nil {
		t.Fatalf("expected load of missing file to fail")
	}
}

func TestReloadKeepsSnapshotOnError(t *testing.T) {
	path := writeCatalogFile(t, validYAML)
	cat, err := Load(path, logger.NewNop())
	if err != nil {
		t.Fatalf("initial load: %v", err)
	}

	if err := os.WriteFile(path, []byte("entity_types: []\n"), 0o644); err != nil {
		t.Fatalf("overwrite catalog file: %v", err)
	}
	if err := cat.Reload(); err == nil {
		t.Fatalf("expected reload of empty catalog to fail")
	}
	if cat.Len() != 2 {
		t.Fatalf("expected previous snapshot to survive failed reload, got %d types", cat.Len())
	}

	next := validYAML + "  - type_name: location\n    description: Places\n"
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatalf("overwrite catalog file: %v", err)
	}
	if err := cat.Reload(); err != nil {
		t.Fatalf("expected reload to succeed, got %v", err)
	}
	if cat.Len() != 3 || !cat.Contains("location") {
		t.Fatalf("expected reloaded catalog with location, got %d types", cat.Len())
	}
}

func TestNewStatic(t *testing.T) {
	cat, err := NewStatic([]domain.EntityTypeDefinition{
		{TypeName: "concept", Description: "Abstract ideas"},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("expected static catalog, got %v", err)
	}
	if !cat.Contains("concept") {
		t.Fatalf("expected concept in static catalog")
	}
	if err := cat.Reload(); err == nil {
		t.Fatalf("expected reload of pathless catalog to fail")
	}
}
