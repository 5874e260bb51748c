package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const customRego = `# Keep the status LED away from the radio pins.
# Applies to every board.
package board.status

import rego.v1

deny contains msg if {
	input.hardware.gpio.STATUS.pin == 18
	msg := "STATUS must not use pin 18"
}
`

func TestLoadFromPaths(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"status.rego":      customRego,
		"limits.json":      `{"name": "limits", "rego": "package limits\n", "enabled": true}`,
		"notes.txt":        "ignored",
		"nested/more.rego": "package more\n",
		"broken.json":      "{",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths() error = %v", err)
	}

	byName := make(map[string]Policy)
	for _, p := range policies {
		byName[p.Name] = p
	}
	if len(byName) != 3 {
		t.Fatalf("loaded %d policies, want 3: %v", len(byName), byName)
	}

	status := byName["status"]
	if status.Description != "Keep the status LED away from the radio pins. Applies to every board." {
		t.Errorf("Description = %q", status.Description)
	}
	if status.Severity != SeverityWarning || !status.Enabled {
		t.Errorf("status defaults = %+v", status)
	}
	if byName["limits"].Severity != SeverityWarning {
		t.Errorf("JSON policy severity = %q", byName["limits"].Severity)
	}
}

func TestLoadFromPathsMissing(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestEngineLoadPolicies(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "status.rego"), []byte(customRego), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}
	p, err := eng.GetPolicy("status")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if p.Metadata["source"] != filepath.Join(dir, "status.rego") {
		t.Errorf("source = %v", p.Metadata["source"])
	}
}
