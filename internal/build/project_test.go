package build

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectConfigMemoizedUntilReset(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "name: demo\nversion: 1.0.0\n")
	project, _ := newTestProject(t, dir)

	cfg, err := project.Config()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)

	writeProjectConfig(t, dir, "name: demo\nversion: 2.0.0\n")

	stale, err := project.Config()
	require.NoError(t, err)
	assert.Same(t, cfg, stale)

	project.Reset()

	fresh, err := project.Config()
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", fresh.Version)
}

func TestProjectClearCache(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "name: demo\n")
	project, _ := newTestProject(t, dir)

	projectCache, err := project.Cache()
	require.NoError(t, err)
	_, err = projectCache.Bucket("alpha")
	require.NoError(t, err)
	_, err = projectCache.Bucket("beta")
	require.NoError(t, err)

	cleared, err := project.ClearCache("al*")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, cleared)

	remaining, err := projectCache.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, remaining)
}

func TestProjectInspectCache(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "name: demo\n")
	project, _ := newTestProject(t, dir)

	projectCache, err := project.Cache()
	require.NoError(t, err)
	bucket, err := projectCache.Bucket("alpha")
	require.NoError(t, err)
	require.NoError(t, bucket.SetJSON("greeting", "hello"))

	summaries, err := project.InspectCache()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Contains(t, summaries[0], "alpha")
}

func TestProjectLinkAndClearLink(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "name: demo\n")
	project, _ := newTestProject(t, dir)

	dataDir := filepath.Join(t.TempDir(), "packs")
	summary, err := project.Link("", "", dataDir, "")
	require.NoError(t, err)
	assert.Contains(t, summary, dataDir)

	require.NoError(t, project.ClearLink())

	assetsDir := filepath.Join(t.TempDir(), "textures")
	summary, err = project.Link("", "", "", assetsDir)
	require.NoError(t, err)
	assert.Contains(t, summary, assetsDir)
	assert.Contains(t, summary, "Data pack: -")
}

func TestProjectWatcher(t *testing.T) {
	dir := t.TempDir()
	writeProjectConfig(t, dir, "name: demo\noutput: dist\n")
	project, _ := newTestProject(t, dir)

	watcher, err := project.Watcher(0)
	require.NoError(t, err)
	require.NotNil(t, watcher)
	watcher.Close()
}
