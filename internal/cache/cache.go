// Package cache implements the on-disk project cache: named buckets that
// pair a data directory with a small persistent string index. Buckets back
// draft snapshots, link settings, and anything else plugins want to keep
// between builds.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

const (
	// DefaultDirName is the cache directory created inside a project.
	DefaultDirName = ".packsmith_cache"

	lockFileName      = ".lock"
	gitignoreFileName = ".gitignore"
)

// ProjectCache is the root of all cache buckets for one project. Opening is
// cheap; buckets are created lazily on first access and memoized.
type ProjectCache struct {
	root    string
	lock    *flock.Flock
	buckets map[string]*Bucket
	logger  *slog.Logger
}

// Open prepares the cache root, creating the directory and a covering
// .gitignore so cache content never ends up in version control.
func Open(root string) (*ProjectCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryCache, apperrors.SeverityFatal,
			"creating cache directory")
	}
	gitignore := filepath.Join(root, gitignoreFileName)
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte("*\n"), 0o644); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryCache, apperrors.SeverityFatal,
				"writing cache .gitignore")
		}
	}
	return &ProjectCache{
		root:    root,
		lock:    flock.New(filepath.Join(root, lockFileName)),
		buckets: make(map[string]*Bucket),
		logger:  slog.Default(),
	}, nil
}

// WithLogger replaces the cache logger.
func (c *ProjectCache) WithLogger(logger *slog.Logger) *ProjectCache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Directory returns the cache root.
func (c *ProjectCache) Directory() string { return c.root }

// Transaction runs fn while holding the cache file lock, serializing
// concurrent builds over the same project. The lock is released on every
// exit path, including fn failures.
func (c *ProjectCache) Transaction(fn func() error) error {
	if err := c.lock.Lock(); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryCache, apperrors.SeverityFatal,
			"acquiring cache lock")
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			c.logger.Warn("Failed to release cache lock", "error", err)
		}
	}()
	return fn()
}

// Bucket returns the named bucket, creating its directory and loading its
// index on first access. Names must be plain path segments.
func (c *ProjectCache) Bucket(name string) (*Bucket, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, apperrors.InvalidArgument("cache", fmt.Sprintf("invalid bucket name %q", name))
	}
	if bucket, ok := c.buckets[name]; ok {
		return bucket, nil
	}
	bucket, err := openBucket(name, filepath.Join(c.root, name), c.logger)
	if err != nil {
		return nil, err
	}
	c.buckets[name] = bucket
	return bucket, nil
}

// Keys lists existing bucket names, sorted.
func (c *ProjectCache) Keys() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryCache, apperrors.SeverityError,
			"listing cache buckets")
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			keys = append(keys, entry.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Match lists bucket names matching any of the glob patterns. Without
// patterns every bucket matches.
func (c *ProjectCache) Match(patterns ...string) ([]string, error) {
	keys, err := c.Keys()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return keys, nil
	}
	var matched []string
	for _, key := range keys {
		for _, pattern := range patterns {
			ok, err := path.Match(pattern, key)
			if err != nil {
				return nil, apperrors.InvalidArgument("cache", fmt.Sprintf("bad pattern %q", pattern))
			}
			if ok {
				matched = append(matched, key)
				break
			}
		}
	}
	return matched, nil
}

// Delete removes a bucket and all its content.
func (c *ProjectCache) Delete(name string) error {
	delete(c.buckets, name)
	if err := os.RemoveAll(filepath.Join(c.root, name)); err != nil {
		return apperrors.CacheError(name, err)
	}
	return nil
}

// Clear removes every bucket, keeping the cache root itself.
func (c *ProjectCache) Clear() error {
	keys, err := c.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Flush persists the index of every open bucket. Buckets write through on
// every update, so this is a safety net for crash-resilience at the end of a
// build rather than the primary persistence path.
func (c *ProjectCache) Flush() error {
	for _, name := range sortedBucketNames(c.buckets) {
		if err := c.buckets[name].saveIndex(); err != nil {
			return err
		}
	}
	return nil
}

func sortedBucketNames(buckets map[string]*Bucket) []string {
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
