package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocateWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "data", "functions")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("creating nested dirs failed: %v", err)
	}
	want := writeConfig(t, root, "packsmith.yml", "id: demo\n")

	got, err := Locate(nested)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestLocatePrefersYAMLOverJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "packsmith.json", `{"id": "demo"}`)
	want := writeConfig(t, dir, "packsmith.yaml", "id: demo\n")

	got, err := Locate(dir)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
}

func TestLocateNothingFound(t *testing.T) {
	got, err := Locate(t.TempDir())
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty result, got %q", got)
	}
}

func TestLoadOrLocate(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "packsmith.yaml", "id: demo\n")

	cfg, err := LoadOrLocate("", dir)
	if err != nil {
		t.Fatalf("LoadOrLocate failed: %v", err)
	}
	if cfg.ID != "demo" {
		t.Errorf("Got id %q, want %q", cfg.ID, "demo")
	}

	if _, err := LoadOrLocate("", t.TempDir()); err == nil {
		t.Fatal("Expected error when no config exists")
	}
}
