package pack

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// packMeta mirrors the pack.mcmeta layout at the root of a serialized pack.
type packMeta struct {
	Pack packMetaInner `json:"pack"`
}

type packMetaInner struct {
	Format      int    `json:"pack_format"`
	Description string `json:"description"`
}

const metaFileName = "pack.mcmeta"

// Save writes the pack to path. A ".zip" suffix selects archive output,
// anything else a directory tree. With overwrite set, an existing target is
// replaced; otherwise saving onto an existing target fails.
func (p *Pack) Save(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("output %q already exists", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing previous output: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking output %q: %w", path, err)
	}

	if strings.HasSuffix(path, ".zip") {
		return p.saveZip(path)
	}
	return p.saveDir(path)
}

func (p *Pack) saveDir(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating pack directory: %w", err)
	}
	meta, err := p.metaBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, metaFileName), meta, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaFileName, err)
	}
	return p.Walk(func(key string, file File) error {
		rel, err := p.entryName(key, file.Kind())
		if err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %q: %w", key, err)
		}
		data, err := file.Serialize()
		if err != nil {
			return fmt.Errorf("serializing %q: %w", key, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("writing %q: %w", key, err)
		}
		return nil
	})
}

func (p *Pack) saveZip(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	meta, err := p.metaBytes()
	if err != nil {
		return err
	}
	entry, err := w.Create(metaFileName)
	if err != nil {
		return fmt.Errorf("adding %s: %w", metaFileName, err)
	}
	if _, err := entry.Write(meta); err != nil {
		return fmt.Errorf("writing %s: %w", metaFileName, err)
	}
	err = p.Walk(func(key string, file File) error {
		rel, err := p.entryName(key, file.Kind())
		if err != nil {
			return err
		}
		entry, err := w.Create(rel)
		if err != nil {
			return fmt.Errorf("adding %q: %w", key, err)
		}
		data, err := file.Serialize()
		if err != nil {
			return fmt.Errorf("serializing %q: %w", key, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("writing %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return out.Close()
}

// entryName maps a key and kind to the forward-slash path inside the pack.
func (p *Pack) entryName(key string, kind Kind) (string, error) {
	namespace, path, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	spec := kind.Spec()
	return strings.Join([]string{string(p.category), namespace, spec.Directory, path + spec.Extension}, "/"), nil
}

func (p *Pack) metaBytes() ([]byte, error) {
	meta := packMeta{Pack: packMetaInner{Format: p.Format, Description: p.Description}}
	data, err := marshalJSON(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", metaFileName, err)
	}
	return data, nil
}

// Load reads a pack from a directory or zip archive and merges it into p
// using the same semantics as Merge, so tags and languages accumulate across
// sources. Metadata from the source fills fields the pack does not have yet.
func (p *Pack) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("opening pack source %q: %w", path, err)
	}

	loaded := &Pack{category: p.category, namespaces: make(map[string]*namespaceFiles)}
	if info.IsDir() {
		err = loaded.loadDir(path)
	} else if strings.HasSuffix(path, ".zip") {
		err = loaded.loadZip(path)
	} else {
		return fmt.Errorf("pack source %q is neither a directory nor a zip archive", path)
	}
	if err != nil {
		return err
	}

	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, ".zip")
	}
	if p.Description == "" && loaded.Description != "" {
		p.Description = loaded.Description
	}
	if loaded.Format != 0 {
		p.Format = loaded.Format
	}
	return p.Merge(loaded)
}

func (p *Pack) loadDir(root string) error {
	metaPath := filepath.Join(root, metaFileName)
	if data, err := os.ReadFile(metaPath); err == nil {
		if err := p.applyMeta(data); err != nil {
			return fmt.Errorf("reading %s: %w", metaPath, err)
		}
	}

	base := filepath.Join(root, string(p.category))
	namespaces, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading pack contents: %w", err)
	}

	for _, nsEntry := range namespaces {
		if !nsEntry.IsDir() {
			continue
		}
		namespace := nsEntry.Name()
		for _, kind := range Kinds(p.category) {
			spec := kind.Spec()
			kindRoot := filepath.Join(base, namespace, filepath.FromSlash(spec.Directory))
			err := filepath.WalkDir(kindRoot, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					if os.IsNotExist(err) {
						return fs.SkipAll
					}
					return err
				}
				if d.IsDir() || !strings.HasSuffix(path, spec.Extension) {
					return nil
				}
				rel, err := filepath.Rel(kindRoot, path)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %q: %w", path, err)
				}
				name := strings.TrimSuffix(filepath.ToSlash(rel), spec.Extension)
				return p.addParsed(namespace+":"+name, kind, data)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pack) loadZip(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %q: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		name := filepath.ToSlash(f.Name)
		if name == metaFileName {
			data, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := p.applyMeta(data); err != nil {
				return fmt.Errorf("reading archive %s: %w", metaFileName, err)
			}
			continue
		}
		prefix := string(p.category) + "/"
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		namespace, rest, ok := strings.Cut(strings.TrimPrefix(name, prefix), "/")
		if !ok {
			continue
		}
		for _, kind := range Kinds(p.category) {
			spec := kind.Spec()
			dirPrefix := spec.Directory + "/"
			if !strings.HasPrefix(rest, dirPrefix) || !strings.HasSuffix(rest, spec.Extension) {
				continue
			}
			data, err := readZipEntry(f)
			if err != nil {
				return err
			}
			entry := strings.TrimSuffix(strings.TrimPrefix(rest, dirPrefix), spec.Extension)
			if err := p.addParsed(namespace+":"+entry, kind, data); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading archive entry %q: %w", f.Name, err)
	}
	return data, nil
}

func (p *Pack) addParsed(key string, kind Kind, data []byte) error {
	file, err := kind.Spec().Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", key, err)
	}
	return p.Set(key, file)
}

func (p *Pack) applyMeta(data []byte) error {
	var meta packMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	if meta.Pack.Format != 0 {
		p.Format = meta.Pack.Format
	}
	if meta.Pack.Description != "" {
		p.Description = meta.Pack.Description
	}
	return nil
}
