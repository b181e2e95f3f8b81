// Package templating renders project templates: standalone template files
// looked up in configured directories, inline template sources, and the
// content of registered pack files.
package templating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tidwall/jsonc"

	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// Manager holds the template search path and the globals merged into every
// render. Missing keys are errors, matching the strictness of generated
// names: a template referring to data that is not there should fail the
// build, not silently render "<no value>".
type Manager struct {
	dirs    []string
	globals map[string]any
}

// NewManager creates a manager searching the given directories, in order,
// for named templates.
func NewManager(dirs ...string) *Manager {
	return &Manager{
		dirs:    dirs,
		globals: make(map[string]any),
	}
}

// SetGlobal registers a value available to every render under the given
// name. Render data with the same name wins.
func (m *Manager) SetGlobal(name string, value any) {
	m.globals[name] = value
}

// Directories returns the template search path.
func (m *Manager) Directories() []string {
	return append([]string(nil), m.dirs...)
}

// RenderString renders an inline template source. The name only labels error
// messages.
func (m *Manager) RenderString(name, source string, data map[string]any) (string, error) {
	tpl, err := template.New(name).Funcs(m.funcs()).Option("missingkey=error").Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, m.mergedData(data)); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderNamed locates name in the search directories and renders it.
func (m *Manager) RenderNamed(name string, data map[string]any) (string, error) {
	for _, dir := range m.dirs {
		path := filepath.Join(dir, name)
		source, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("read template %s: %w", path, err)
		}
		return m.RenderString(name, string(source), data)
	}
	return "", fmt.Errorf("template %s not found in %v", name, m.dirs)
}

// RenderJSON renders an inline template source and decodes the result as
// JSON. Comments and trailing commas in the rendered output are tolerated,
// matching the project config loader.
func (m *Manager) RenderJSON(name, source string, data map[string]any) (map[string]any, error) {
	rendered, err := m.RenderString(name, source, data)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(rendered)), &decoded); err != nil {
		return nil, fmt.Errorf("decode rendered template %s: %w", name, err)
	}
	return decoded, nil
}

// RenderFile re-renders a pack file's content in place. This is the render
// hook used for registered files; data carries RenderPath and RenderGroup
// alongside the caller's variables.
func (m *Manager) RenderFile(file pack.RenderableFile, data map[string]any) error {
	text, err := file.Text()
	if err != nil {
		return fmt.Errorf("read file content: %w", err)
	}
	rendered, err := m.RenderString("file", text, data)
	if err != nil {
		return err
	}
	return file.SetText(rendered)
}

// funcs returns the helper functions available in templates.
func (m *Manager) funcs() template.FuncMap {
	return template.FuncMap{
		"json": func(value any) (string, error) {
			encoded, err := json.Marshal(value)
			if err != nil {
				return "", fmt.Errorf("json helper: %w", err)
			}
			return string(encoded), nil
		},
	}
}

// mergedData overlays render data on the globals.
func (m *Manager) mergedData(data map[string]any) map[string]any {
	merged := make(map[string]any, len(m.globals)+len(data))
	for k, v := range m.globals {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}
