// Package watch monitors a project directory tree and coalesces filesystem
// events into debounced change batches for the rebuild loop.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// DefaultInterval is the debounce window applied when none is configured.
const DefaultInterval = 600 * time.Millisecond

// Changes maps affected paths, relative to the watch root and slash-separated,
// to the union of operations observed during one debounce window.
type Changes map[string]fsnotify.Op

// Options configures a Watcher.
type Options struct {
	// Root is the directory tree to watch.
	Root string
	// Interval is the debounce quiet window. Values <= 0 use DefaultInterval.
	Interval time.Duration
	// Ignore holds glob patterns matched against relative paths and base
	// names. Matching a pattern also ignores everything below it. Dotfiles
	// and *.tmp files are always ignored.
	Ignore []string
}

// Watcher delivers debounced batches of filesystem changes. Events arriving
// within one interval of each other collapse into a single batch, and batches
// keep accumulating while the consumer is busy, so a slow build never loses
// changes.
type Watcher struct {
	root     string
	interval time.Duration
	ignore   []string

	fsw      *fsnotify.Watcher
	changes  chan Changes
	stop     chan struct{}
	stopOnce sync.Once

	// pending is owned by the Run goroutine.
	pending Changes
}

// New creates a watcher rooted at opts.Root and registers the existing
// directory tree. Call Run to start delivering batches.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "resolving watch root")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "opening watch root")
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.CategoryWatch, apperrors.SeverityFatal, "watch root %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "creating file watcher")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	w := &Watcher{
		root:     root,
		interval: interval,
		ignore:   opts.Ignore,
		fsw:      fsw,
		changes:  make(chan Changes, 1),
		stop:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Changes returns the channel batches are delivered on. The channel is closed
// when Run returns.
func (w *Watcher) Changes() <-chan Changes { return w.changes }

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if err := w.fsw.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	})
}

// Run consumes filesystem events until the context is cancelled or Close is
// called. It registers newly created subdirectories as it sees them.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)

	slog.Info("Watching for changes", "root", w.root, "interval", w.interval)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil
		case <-w.stop:
			stopTimer(timer)
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			rel, ok := w.relativize(event.Name)
			if !ok {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						slog.Debug("Could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if w.pending == nil {
				w.pending = make(Changes)
			}
			w.pending[rel] |= event.Op
			resetTimer(timer, w.interval)
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		case <-timerC:
			timerC = nil
			if len(w.pending) == 0 {
				continue
			}
			select {
			case w.changes <- w.pending:
				w.pending = nil
			default:
				// Consumer still busy with the previous batch; keep
				// accumulating and try again after another interval.
				resetTimer(timer, w.interval)
				timerC = timer.C
			}
		}
	}
}

// addTree registers dir and every non-ignored subdirectory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fs.SkipAll
			}
			return apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "scanning watch root")
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir {
			if _, ok := w.relativize(p); !ok {
				return fs.SkipDir
			}
		}
		if err := w.fsw.Add(p); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "watching "+p)
		}
		return nil
	})
}

// relativize maps an absolute event path to a slash-separated path relative to
// the root. The second return is false for the root itself, for paths outside
// the root, and for paths matching the ignore rules.
func (w *Watcher) relativize(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, !w.ignored(rel)
}

func (w *Watcher) ignored(rel string) bool {
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	if strings.HasSuffix(rel, ".tmp") || strings.HasSuffix(rel, "~") {
		return true
	}
	for _, pattern := range w.ignore {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
		if strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}
	return false
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
