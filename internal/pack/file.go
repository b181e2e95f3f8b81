package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// File is a single pack artifact. Serialize produces the exact bytes written
// to disk; it is also what content hashing feeds on, so it must be
// deterministic for equal content.
type File interface {
	Kind() Kind
	Serialize() ([]byte, error)
}

// RenderableFile is a File whose content can round-trip through text, which
// is what template rendering operates on.
type RenderableFile interface {
	File
	Text() (string, error)
	SetText(text string) error
}

// Merger is implemented by files with structural merge semantics. Merge folds
// other into the receiver; files without it are replaced wholesale.
type Merger interface {
	Merge(other File) error
}

// Function is a line-oriented command file.
type Function struct {
	Lines []string
}

func NewFunction(lines ...string) *Function { return &Function{Lines: lines} }

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) Append(lines ...string) { f.Lines = append(f.Lines, lines...) }

func (f *Function) Serialize() ([]byte, error) {
	if len(f.Lines) == 0 {
		return nil, nil
	}
	return []byte(strings.Join(f.Lines, "\n") + "\n"), nil
}

func (f *Function) Text() (string, error) {
	data, err := f.Serialize()
	return string(data), err
}

func (f *Function) SetText(text string) error {
	f.Lines = splitLines(text)
	return nil
}

func parseFunction(data []byte) (File, error) {
	return &Function{Lines: splitLines(string(data))}, nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Tag is a registry tag file (function tags, block tags). Values merge
// append-style unless Replace is set on the incoming tag.
type Tag struct {
	kind    Kind
	Replace bool
	Values  []string
}

func NewFunctionTag(values ...string) *Tag { return &Tag{kind: KindFunctionTag, Values: values} }
func NewBlockTag(values ...string) *Tag    { return &Tag{kind: KindBlockTag, Values: values} }

func (t *Tag) Kind() Kind { return t.kind }

func (t *Tag) Serialize() ([]byte, error) {
	payload := map[string]any{"values": t.Values}
	if t.Values == nil {
		payload["values"] = []string{}
	}
	if t.Replace {
		payload["replace"] = true
	}
	return marshalJSON(payload)
}

func (t *Tag) Text() (string, error) {
	data, err := t.Serialize()
	return string(data), err
}

func (t *Tag) SetText(text string) error {
	parsed, err := parseTagData([]byte(text), t.kind)
	if err != nil {
		return err
	}
	t.Replace = parsed.Replace
	t.Values = parsed.Values
	return nil
}

func (t *Tag) Merge(other File) error {
	o, ok := other.(*Tag)
	if !ok {
		return fmt.Errorf("cannot merge %T into tag", other)
	}
	if o.Replace {
		t.Replace = o.Replace
		t.Values = append([]string(nil), o.Values...)
		return nil
	}
	seen := make(map[string]bool, len(t.Values))
	for _, v := range t.Values {
		seen[v] = true
	}
	for _, v := range o.Values {
		if !seen[v] {
			t.Values = append(t.Values, v)
			seen[v] = true
		}
	}
	return nil
}

func tagParser(kind Kind) func(data []byte) (File, error) {
	return func(data []byte) (File, error) {
		return parseTagData(data, kind)
	}
}

func parseTagData(data []byte, kind Kind) (*Tag, error) {
	var raw struct {
		Replace bool     `json:"replace"`
		Values  []string `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing tag: %w", err)
	}
	return &Tag{kind: kind, Replace: raw.Replace, Values: raw.Values}, nil
}

// Language holds translation entries. Merging overlays the incoming map.
type Language struct {
	Translations map[string]string
}

func NewLanguage(translations map[string]string) *Language {
	if translations == nil {
		translations = make(map[string]string)
	}
	return &Language{Translations: translations}
}

func (l *Language) Kind() Kind { return KindLanguage }

func (l *Language) Serialize() ([]byte, error) {
	if l.Translations == nil {
		return marshalJSON(map[string]string{})
	}
	return marshalJSON(l.Translations)
}

func (l *Language) Text() (string, error) {
	data, err := l.Serialize()
	return string(data), err
}

func (l *Language) SetText(text string) error {
	translations := make(map[string]string)
	if err := json.Unmarshal([]byte(text), &translations); err != nil {
		return fmt.Errorf("parsing language file: %w", err)
	}
	l.Translations = translations
	return nil
}

func (l *Language) Merge(other File) error {
	o, ok := other.(*Language)
	if !ok {
		return fmt.Errorf("cannot merge %T into language file", other)
	}
	if l.Translations == nil {
		l.Translations = make(map[string]string)
	}
	for k, v := range o.Translations {
		l.Translations[k] = v
	}
	return nil
}

func parseLanguage(data []byte) (File, error) {
	l := &Language{}
	if err := l.SetText(string(data)); err != nil {
		return nil, err
	}
	return l, nil
}

// JSONFile is the shared representation for structured JSON artifacts
// (advancements, loot tables, recipes, predicates, models, blockstates).
type JSONFile struct {
	kind Kind
	Data map[string]any
}

func NewAdvancement(data map[string]any) *JSONFile { return newJSONFile(KindAdvancement, data) }
func NewLootTable(data map[string]any) *JSONFile   { return newJSONFile(KindLootTable, data) }
func NewRecipe(data map[string]any) *JSONFile      { return newJSONFile(KindRecipe, data) }
func NewPredicate(data map[string]any) *JSONFile   { return newJSONFile(KindPredicate, data) }
func NewModel(data map[string]any) *JSONFile       { return newJSONFile(KindModel, data) }
func NewBlockstate(data map[string]any) *JSONFile  { return newJSONFile(KindBlockstate, data) }

func newJSONFile(kind Kind, data map[string]any) *JSONFile {
	if data == nil {
		data = make(map[string]any)
	}
	return &JSONFile{kind: kind, Data: data}
}

func (j *JSONFile) Kind() Kind { return j.kind }

func (j *JSONFile) Serialize() ([]byte, error) { return marshalJSON(j.Data) }

func (j *JSONFile) Text() (string, error) {
	data, err := j.Serialize()
	return string(data), err
}

func (j *JSONFile) SetText(text string) error {
	data := make(map[string]any)
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return fmt.Errorf("parsing %s file: %w", j.kind, err)
	}
	j.Data = data
	return nil
}

func jsonParser(kind Kind) func(data []byte) (File, error) {
	return func(data []byte) (File, error) {
		f := &JSONFile{kind: kind}
		if err := f.SetText(string(data)); err != nil {
			return nil, err
		}
		return f, nil
	}
}

// Texture holds raw image bytes, stored verbatim.
type Texture struct {
	Data []byte
}

func NewTexture(data []byte) *Texture { return &Texture{Data: data} }

func (t *Texture) Kind() Kind { return KindTexture }

func (t *Texture) Serialize() ([]byte, error) { return t.Data, nil }

func parseTexture(data []byte) (File, error) {
	return &Texture{Data: append([]byte(nil), data...)}, nil
}

// TextFile is a plain text asset.
type TextFile struct {
	Content string
}

func NewTextFile(content string) *TextFile { return &TextFile{Content: content} }

func (t *TextFile) Kind() Kind { return KindText }

func (t *TextFile) Serialize() ([]byte, error) { return []byte(t.Content), nil }

func (t *TextFile) Text() (string, error) { return t.Content, nil }

func (t *TextFile) SetText(text string) error {
	t.Content = text
	return nil
}

func parseText(data []byte) (File, error) {
	return &TextFile{Content: string(data)}, nil
}

// marshalJSON renders JSON with stable key order and a trailing newline so
// serialized content is byte-stable for hashing and diffing.
func marshalJSON(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sortedKeys is shared by container listings.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
