package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

func startWatcher(t *testing.T, root string, ignore ...string) *Watcher {
	t.Helper()
	w, err := New(Options{Root: root, Interval: 50 * time.Millisecond, Ignore: ignore})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	go func() { _ = w.Run(t.Context()) }()
	return w
}

func waitBatch(t *testing.T, w *Watcher) Changes {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change batch")
		return nil
	}
}

func TestWatcherDeliversBatches(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "pack.yml"), []byte("name: demo\n"), 0o644))

	batch := waitBatch(t, w)
	require.Contains(t, batch, "pack.yml")
	assert.NotZero(t, batch["pack.yml"]&fsnotify.Create)
}

func TestWatcherSkipsIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "dist"), 0o755))
	w := startWatcher(t, root, "dist")

	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "out.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), nil, 0o644))

	batch := waitBatch(t, w)
	assert.Equal(t, []string{"keep.txt"}, keysOf(batch))
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	first := waitBatch(t, w)
	require.Contains(t, first, "sub")

	// The new directory is watched by the time its batch arrives.
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "inner.txt"), nil, 0o644))
	second := waitBatch(t, w)
	assert.Contains(t, second, "sub/inner.txt")
}

func TestWatcherRejectsMissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryWatch))
}

func TestIgnoreRules(t *testing.T) {
	w := &Watcher{ignore: []string{"dist", "*.bak"}}

	cases := []struct {
		rel  string
		want bool
	}{
		{"src/file.txt", false},
		{".git/config", true},
		{"a/.cache/x", true},
		{"build.tmp", true},
		{"notes~", true},
		{"dist", true},
		{"dist/out.zip", true},
		{"backup.bak", true},
		{"nested/deep.bak", true},
		{"distx/file", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, w.ignored(tc.rel), "path %q", tc.rel)
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	ticks := make(chan struct{}, 1)
	require.NoError(t, s.EveryDuration("tick", 20*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}))
	s.Start()

	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	err = s.EveryDuration("tick", 0, func() {})
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryArgument))
}

func keysOf(batch Changes) []string {
	keys := make([]string, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}
	return keys
}
