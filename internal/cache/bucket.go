package cache

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const indexFileName = "index.json"

// Bucket is one named cache compartment: a directory for arbitrary files
// plus a flat string index persisted as index.json inside it. Index updates
// write through immediately so a crashed build never leaves a stale key
// pointing at missing data for longer than the write that follows it.
type Bucket struct {
	name   string
	dir    string
	index  map[string]string
	logger *slog.Logger
}

func openBucket(name, dir string, logger *slog.Logger) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache bucket %q: %w", name, err)
	}
	bucket := &Bucket{
		name:   name,
		dir:    dir,
		index:  make(map[string]string),
		logger: logger,
	}
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return bucket, nil
		}
		return nil, fmt.Errorf("reading cache index for %q: %w", name, err)
	}
	if err := json.Unmarshal(data, &bucket.index); err != nil {
		// A corrupt index is treated as empty: the bucket degrades to a
		// miss instead of failing the build.
		logger.Warn("Resetting corrupt cache index", "bucket", name, "error", err)
		bucket.index = make(map[string]string)
	}
	return bucket, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Directory returns the bucket's data directory.
func (b *Bucket) Directory() string { return b.dir }

// JSON returns the indexed value for key, or "" when absent.
func (b *Bucket) JSON(key string) string { return b.index[key] }

// SetJSON stores a value in the index and persists it.
func (b *Bucket) SetJSON(key, value string) error {
	b.index[key] = value
	return b.saveIndex()
}

// DeleteJSON removes a key from the index and persists the change.
func (b *Bucket) DeleteJSON(key string) error {
	delete(b.index, key)
	return b.saveIndex()
}

// Keys returns the index keys, sorted.
func (b *Bucket) Keys() []string {
	keys := make([]string, 0, len(b.index))
	for key := range b.index {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes everything in the bucket directory and resets the index.
func (b *Bucket) Clear() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("clearing cache bucket %q: %w", b.name, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(b.dir, entry.Name())); err != nil {
			return fmt.Errorf("clearing cache bucket %q: %w", b.name, err)
		}
	}
	b.index = make(map[string]string)
	return nil
}

func (b *Bucket) saveIndex() error {
	data, err := json.MarshalIndent(b.index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache index for %q: %w", b.name, err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, indexFileName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing cache index for %q: %w", b.name, err)
	}
	return nil
}

// String renders a human-readable inspection summary: the index entries and
// the size of the stored data, the way the cache CLI prints buckets.
func (b *Bucket) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s:\n", b.name)
	if len(b.index) == 0 {
		out.WriteString("  (no index entries)\n")
	}
	for _, key := range b.Keys() {
		fmt.Fprintf(&out, "  %s = %s\n", key, b.index[key])
	}
	files, size := b.usage()
	fmt.Fprintf(&out, "  %d file(s), %d byte(s)\n", files, size)
	return out.String()
}

func (b *Bucket) usage() (files int, size int64) {
	_ = filepath.WalkDir(b.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}
