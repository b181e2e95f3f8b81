package pack

import (
	"fmt"
	"sort"
	"strings"
)

// Default pack format versions written to pack.mcmeta when a project does not
// pin its own.
const (
	DefaultDataFormat     = 48
	DefaultResourceFormat = 34
)

// Pack is a container of namespaced files belonging to one category. The zero
// value is not usable; construct with NewDataPack or NewResourcePack.
type Pack struct {
	Name        string
	Description string
	Format      int
	Zipped      bool

	category   Category
	namespaces map[string]*namespaceFiles
}

type namespaceFiles struct {
	files map[Kind]map[string]File
}

// NewDataPack returns an empty data pack.
func NewDataPack() *Pack {
	return &Pack{
		Format:     DefaultDataFormat,
		category:   CategoryData,
		namespaces: make(map[string]*namespaceFiles),
	}
}

// NewResourcePack returns an empty resource pack.
func NewResourcePack() *Pack {
	return &Pack{
		Format:     DefaultResourceFormat,
		category:   CategoryAssets,
		namespaces: make(map[string]*namespaceFiles),
	}
}

// Category returns the pack's category.
func (p *Pack) Category() Category { return p.category }

// ParseKey splits a "namespace:path" key and validates both halves.
func ParseKey(key string) (namespace, path string, err error) {
	namespace, path, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", fmt.Errorf("key %q missing namespace separator", key)
	}
	if !validName(namespace, false) {
		return "", "", fmt.Errorf("key %q has invalid namespace", key)
	}
	if !validName(path, true) {
		return "", "", fmt.Errorf("key %q has invalid path", key)
	}
	return namespace, path, nil
}

// validName enforces the lowercase identifier charset used for namespaces and
// paths. Paths additionally allow the slash separator.
func validName(s string, allowSlash bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
		case r == '/' && allowSlash:
		default:
			return false
		}
	}
	return true
}

// Set stores a file under the given key, replacing any previous file of the
// same kind at that key.
func (p *Pack) Set(key string, file File) error {
	if file == nil {
		return fmt.Errorf("nil file for key %q", key)
	}
	kind := file.Kind()
	if !kind.Known() {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}
	if kind.Category() != p.category {
		return fmt.Errorf("kind %q belongs to %s packs, not %s packs", kind, kind.Category(), p.category)
	}
	namespace, path, err := ParseKey(key)
	if err != nil {
		return err
	}
	ns := p.namespaces[namespace]
	if ns == nil {
		ns = &namespaceFiles{files: make(map[Kind]map[string]File)}
		p.namespaces[namespace] = ns
	}
	byPath := ns.files[kind]
	if byPath == nil {
		byPath = make(map[string]File)
		ns.files[kind] = byPath
	}
	byPath[path] = file
	return nil
}

// Get returns the file of the given kind at key, or nil.
func (p *Pack) Get(key string, kind Kind) File {
	namespace, path, err := ParseKey(key)
	if err != nil {
		return nil
	}
	ns := p.namespaces[namespace]
	if ns == nil {
		return nil
	}
	return ns.files[kind][path]
}

// Has reports whether a file of the given kind exists at key.
func (p *Pack) Has(key string, kind Kind) bool {
	return p.Get(key, kind) != nil
}

// Ensure returns the file of the given kind at key, creating and storing the
// result of create when absent.
func (p *Pack) Ensure(key string, kind Kind, create func() File) (File, error) {
	if existing := p.Get(key, kind); existing != nil {
		return existing, nil
	}
	file := create()
	if err := p.Set(key, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Delete removes the file of the given kind at key.
func (p *Pack) Delete(key string, kind Kind) {
	namespace, path, err := ParseKey(key)
	if err != nil {
		return
	}
	if ns := p.namespaces[namespace]; ns != nil {
		delete(ns.files[kind], path)
	}
}

// Len returns the total number of files in the pack.
func (p *Pack) Len() int {
	total := 0
	for _, ns := range p.namespaces {
		for _, byPath := range ns.files {
			total += len(byPath)
		}
	}
	return total
}

// Empty reports whether the pack holds no files.
func (p *Pack) Empty() bool { return p.Len() == 0 }

// Keys lists "namespace:path" keys for one kind, sorted.
func (p *Pack) Keys(kind Kind) []string {
	var keys []string
	for name, ns := range p.namespaces {
		for path := range ns.files[kind] {
			keys = append(keys, name+":"+path)
		}
	}
	sort.Strings(keys)
	return keys
}

// Namespaces lists namespace names, sorted.
func (p *Pack) Namespaces() []string {
	return sortedKeys(p.namespaces)
}

// Walk visits every file in deterministic order (namespace, kind, path).
func (p *Pack) Walk(visit func(key string, file File) error) error {
	for _, name := range p.Namespaces() {
		ns := p.namespaces[name]
		kinds := make([]Kind, 0, len(ns.files))
		for kind := range ns.files {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, kind := range kinds {
			for _, path := range sortedKeys(ns.files[kind]) {
				if err := visit(name+":"+path, ns.files[kind][path]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Merge folds other into p. Files implementing Merger merge structurally;
// everything else is replaced by the incoming file. Categories must match.
func (p *Pack) Merge(other *Pack) error {
	if other == nil || other.Empty() {
		return nil
	}
	if other.category != p.category {
		return fmt.Errorf("cannot merge %s pack into %s pack", other.category, p.category)
	}
	return other.Walk(func(key string, incoming File) error {
		existing := p.Get(key, incoming.Kind())
		if existing != nil {
			if merger, ok := existing.(Merger); ok {
				if err := merger.Merge(incoming); err != nil {
					return fmt.Errorf("merging %q: %w", key, err)
				}
				return nil
			}
		}
		return p.Set(key, incoming)
	})
}

// Clear removes all files, keeping pack metadata.
func (p *Pack) Clear() {
	p.namespaces = make(map[string]*namespaceFiles)
}
