package templating

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/packsmith/internal/pack"
)

func TestRenderStringWithGlobals(t *testing.T) {
	m := NewManager()
	m.SetGlobal("ProjectName", "demo")

	got, err := m.RenderString("test", "pack {{.ProjectName}} v{{.Version}}", map[string]any{"Version": "1.2.0"})
	if err != nil {
		t.Fatalf("RenderString failed: %v", err)
	}
	if got != "pack demo v1.2.0" {
		t.Errorf("RenderString = %q", got)
	}
}

func TestRenderDataOverridesGlobals(t *testing.T) {
	m := NewManager()
	m.SetGlobal("Name", "global")

	got, err := m.RenderString("test", "{{.Name}}", map[string]any{"Name": "local"})
	if err != nil {
		t.Fatalf("RenderString failed: %v", err)
	}
	if got != "local" {
		t.Errorf("RenderString = %q, want local", got)
	}
}

func TestRenderStringMissingKeyFails(t *testing.T) {
	m := NewManager()
	if _, err := m.RenderString("test", "{{.Nope}}", nil); err == nil {
		t.Fatal("missing key should fail the render")
	}
}

func TestRenderNamedSearchesDirectories(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "greeting.txt"), []byte("hello {{.Who}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(first, second)
	got, err := m.RenderNamed("greeting.txt", map[string]any{"Who": "world"})
	if err != nil {
		t.Fatalf("RenderNamed failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("RenderNamed = %q", got)
	}

	if _, err := m.RenderNamed("absent.txt", nil); err == nil {
		t.Error("RenderNamed for missing template should fail")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should mention lookup failure: %v", err)
	}
}

func TestRenderFileUpdatesContent(t *testing.T) {
	m := NewManager()

	fn := pack.NewFunction("say {{.RenderPath}} in {{.RenderGroup}}")
	err := m.RenderFile(fn, map[string]any{
		"RenderPath":  "demo:generated_0",
		"RenderGroup": "functions",
	})
	if err != nil {
		t.Fatalf("RenderFile failed: %v", err)
	}
	if fn.Lines[0] != "say demo:generated_0 in functions" {
		t.Errorf("rendered line = %q", fn.Lines[0])
	}
}

func TestRenderJSON(t *testing.T) {
	m := NewManager()

	decoded, err := m.RenderJSON("test", `{
		// generated advancement
		"title": "{{.Title}}",
		"experience": {{.XP}},
	}`, map[string]any{"Title": "First Steps", "XP": 10})
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}
	if decoded["title"] != "First Steps" {
		t.Errorf("title = %v", decoded["title"])
	}
	if decoded["experience"] != float64(10) {
		t.Errorf("experience = %v", decoded["experience"])
	}

	if _, err := m.RenderJSON("test", `{{.Value}}`, map[string]any{"Value": "not json"}); err == nil {
		t.Error("non-JSON output should fail to decode")
	}
}

func TestJSONHelper(t *testing.T) {
	m := NewManager()

	got, err := m.RenderString("test", `{"display": {{json .Title}}}`, map[string]any{"Title": `He said "hi"`})
	if err != nil {
		t.Fatalf("RenderString failed: %v", err)
	}
	if got != `{"display": "He said \"hi\""}` {
		t.Errorf("json helper output = %q", got)
	}
}
