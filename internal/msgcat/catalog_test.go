package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	got, err := c.Render("result.timeout", map[string]any{"Winner": "White"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "White") || !strings.Contains(got, "time") {
		t.Fatalf("unexpected render: %q", got)
	}
	for _, key := range []string{
		"reject.out_of_turn",
		"reject.illegal_move",
		"reject.no_timeout",
		"result.checkmate",
		"result.draw",
	} {
		if _, err := c.Render(key, map[string]any{"Winner": "Black"}); err != nil {
			t.Fatalf("missing key %s: %v", key, err)
		}
	}
}

func TestRenderMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if got := c.RenderOr("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	content := "result:\n  draw: \"Nobody wins today\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("load with overrides: %v", err)
	}
	got, err := c.Render("result.draw", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Nobody wins today" {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their defaults.
	if _, err := c.Render("reject.out_of_turn", nil); err != nil {
		t.Fatalf("default lost after override: %v", err)
	}
}

func TestOverrideDuplicateKeyRejected(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("result:\n  draw: \"dup\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
