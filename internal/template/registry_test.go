package template_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"slate/internal/template"
)

const registryYAML = `
keys:
  Shot:
    type: str
  version:
    type: int
    format_spec: "03"
templates:
  mobu_routine_work: "routines/{Shot}/work/{Shot}.v{version}.fbx"
  mobu_routine_publish: "routines/{Shot}/publish/{Shot}.v{version}.fbx"
`

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yml")
	if err := os.WriteFile(path, []byte(registryYAML), 0o644); err != nil {
		t.Fatalf("write templates file: %v", err)
	}

	reg, err := template.LoadRegistry(path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 templates, got %d", reg.Len())
	}

	ok, err := reg.Matches("mobu_routine_work", "/proj/routines/shot010/work/shot010.v001.fbx")
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if !ok {
		t.Fatal("expected work path to match")
	}

	if _, err := reg.Get("unknown_template"); !errors.Is(err, template.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestLoadRegistryMissingFileYieldsEmpty(t *testing.T) {
	reg, err := template.LoadRegistry(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("load missing registry: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d templates", reg.Len())
	}
}

func TestLoadRegistryRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yml")
	if err := os.WriteFile(path, []byte("templates: [not a map"), 0o644); err != nil {
		t.Fatalf("write templates file: %v", err)
	}
	if _, err := template.LoadRegistry(path); err == nil {
		t.Fatal("expected parse error")
	}
}
