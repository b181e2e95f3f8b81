package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "packsmith.yaml", `
name: Demo Project
description: A test project
version: "1.2.3"
output: dist
templates:
  - templates
  - shared/templates
data_pack:
  format: 48
  zipped: true
meta:
  generate_namespace: demo
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ID != "demo_project" {
		t.Errorf("Got id %q, want %q", cfg.ID, "demo_project")
	}
	if cfg.Name != "Demo Project" {
		t.Errorf("Got name %q, want %q", cfg.Name, "Demo Project")
	}
	if cfg.Directory != dir {
		t.Errorf("Got directory %q, want %q", cfg.Directory, dir)
	}
	if got := cfg.OutputDirectory(); got != filepath.Join(dir, "dist") {
		t.Errorf("Got output directory %q, want %q", got, filepath.Join(dir, "dist"))
	}
	if cfg.DataPack.Format != 48 {
		t.Errorf("Got data pack format %d, want 48", cfg.DataPack.Format)
	}
	if cfg.DataPack.Zipped == nil || !*cfg.DataPack.Zipped {
		t.Errorf("Expected data pack zipped to be true")
	}
	if cfg.ResourcePack.Zipped != nil {
		t.Errorf("Expected resource pack zipped to stay unset")
	}
	if got := cfg.MetaString("generate_namespace", ""); got != "demo" {
		t.Errorf("Got meta namespace %q, want %q", got, "demo")
	}
	dirs := cfg.TemplateDirectories()
	if len(dirs) != 2 || dirs[0] != filepath.Join(dir, "templates") {
		t.Errorf("Unexpected template directories: %v", dirs)
	}
}

func TestLoadFormatsAgree(t *testing.T) {
	yamlSrc := `
id: demo
name: Demo
output: dist
require:
  - packsmith.contrib.autoload
data_pack:
  format: 48
`
	jsonSrc := `{
  // comments are allowed in JSON configs
  "id": "demo",
  "name": "Demo",
  "output": "dist",
  "require": ["packsmith.contrib.autoload"],
  "data_pack": {"format": 48},
}`
	tomlSrc := `
id = "demo"
name = "Demo"
output = "dist"
require = ["packsmith.contrib.autoload"]

[data_pack]
format = 48
`

	cases := []struct {
		file, src string
	}{
		{"packsmith.yaml", yamlSrc},
		{"packsmith.json", jsonSrc},
		{"packsmith.toml", tomlSrc},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			dir := t.TempDir()
			cfg, err := Load(writeConfig(t, dir, tc.file, tc.src))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.ID != "demo" || cfg.Name != "Demo" || cfg.Output != "dist" {
				t.Errorf("Unexpected identity fields: %+v", cfg)
			}
			if len(cfg.Require) != 1 || cfg.Require[0] != "packsmith.contrib.autoload" {
				t.Errorf("Got require %v, want one autoload entry", cfg.Require)
			}
			if cfg.DataPack.Format != 48 {
				t.Errorf("Got data pack format %d, want 48", cfg.DataPack.Format)
			}
		})
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("PACKSMITH_TEST_AUTHOR", "alex")
	dir := t.TempDir()
	path := writeConfig(t, dir, "packsmith.yaml", `
id: demo
author: ${PACKSMITH_TEST_AUTHOR}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Author != "alex" {
		t.Errorf("Got author %q, want %q", cfg.Author, "alex")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".env", "PACKSMITH_TEST_DOTENV_VERSION=9.9.9\n")
	path := writeConfig(t, dir, "packsmith.yaml", `
id: demo
version: ${PACKSMITH_TEST_DOTENV_VERSION}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Version != "9.9.9" {
		t.Errorf("Got version %q, want %q", cfg.Version, "9.9.9")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "packsmith.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Errorf("Got category %q, want config", apperrors.GetCategory(err))
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "packsmith.ini", "id=demo\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unsupported config format")
	}
}

func TestExtendMergesBase(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
id: base
description: Base description
templates:
  - base_templates
meta:
  tier: base
  shared: base
data_pack:
  format: 41
  load:
    - vanilla
`)
	path := writeConfig(t, dir, "packsmith.yaml", `
extend: base.yaml
id: derived
templates:
  - overrides
meta:
  shared: derived
data_pack:
  format: 48
  load:
    - extra
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ID != "derived" {
		t.Errorf("Got id %q, want %q", cfg.ID, "derived")
	}
	if cfg.Description != "Base description" {
		t.Errorf("Base description not inherited: %q", cfg.Description)
	}
	if len(cfg.Templates) != 2 || cfg.Templates[0] != "overrides" || cfg.Templates[1] != "base_templates" {
		t.Errorf("Derived templates should be searched first, got %v", cfg.Templates)
	}
	if cfg.Meta["tier"] != "base" || cfg.Meta["shared"] != "derived" {
		t.Errorf("Unexpected merged meta: %v", cfg.Meta)
	}
	if cfg.DataPack.Format != 48 {
		t.Errorf("Got data pack format %d, want 48", cfg.DataPack.Format)
	}
	if len(cfg.DataPack.Load) != 2 || cfg.DataPack.Load[0] != "vanilla" || cfg.DataPack.Load[1] != "extra" {
		t.Errorf("Load entries should accumulate base first, got %v", cfg.DataPack.Load)
	}
	if cfg.Source != path {
		t.Errorf("Got source %q, want %q", cfg.Source, path)
	}
}

func TestExtendCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "extend: b.yaml\nid: a\n")
	writeConfig(t, dir, "b.yaml", "extend: a.yaml\nid: b\n")

	if _, err := Load(filepath.Join(dir, "a.yaml")); err == nil {
		t.Fatal("Expected extend cycle to be rejected")
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "packsmith.yaml", `
id: demo
watch:
  interval: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected invalid watch.interval to be rejected")
	}
}

func TestValidateRejectsUnnormalizedID(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "packsmith.yaml", "id: Demo Project\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected unnormalized id to be rejected")
	}
}

func TestWatchDurations(t *testing.T) {
	w := WatchConfig{}
	if got := w.IntervalDuration().Milliseconds(); got != 600 {
		t.Errorf("Got default interval %dms, want 600ms", got)
	}
	if got := w.RebuildEveryDuration(); got != 0 {
		t.Errorf("Got default rebuild period %v, want 0", got)
	}
	w = WatchConfig{Interval: "2s", RebuildEvery: "5m"}
	if got := w.IntervalDuration().Seconds(); got != 2 {
		t.Errorf("Got interval %vs, want 2s", got)
	}
	if got := w.RebuildEveryDuration().Minutes(); got != 5 {
		t.Errorf("Got rebuild period %vm, want 5m", got)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packsmith.yaml")

	if err := Init(path, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(path, false); err == nil {
		t.Fatal("Expected second Init without force to fail")
	}
	if err := Init(path, true); err != nil {
		t.Fatalf("Init with force failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Loading generated config failed: %v", err)
	}
	if cfg.ID != "my_pack" {
		t.Errorf("Got id %q, want %q", cfg.ID, "my_pack")
	}
	if cfg.DataPack.Format != 48 {
		t.Errorf("Got data pack format %d, want 48", cfg.DataPack.Format)
	}
}
