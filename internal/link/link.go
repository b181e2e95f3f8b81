// Package link associates a project with a Minecraft installation so built
// packs are copied where the game picks them up. Targets persist in the
// project cache under the "link" bucket and survive across builds.
package link

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/packsmith/internal/cache"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/pack"
)

const (
	bucketName   = "link"
	keyDataDir   = "data_pack"
	keyAssetsDir = "resource_pack"
)

// Manager reads and writes the project's link targets.
type Manager struct {
	bucket *cache.Bucket
}

// NewManager opens the link bucket in the project cache.
func NewManager(projectCache *cache.ProjectCache) (*Manager, error) {
	bucket, err := projectCache.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return &Manager{bucket: bucket}, nil
}

// Setup resolves and stores link targets. world points at a world save whose
// datapacks folder receives the data pack; appDir at a Minecraft installation
// whose resourcepacks folder receives the resource pack. dataDir and
// assetsDir name target directories directly and take precedence. At least
// one target must result.
func (m *Manager) Setup(world, appDir, dataDir, assetsDir string) error {
	if world != "" && dataDir == "" {
		resolved, err := resolveDir(world, "world save")
		if err != nil {
			return err
		}
		dataDir = filepath.Join(resolved, "datapacks")
	}
	if appDir != "" && assetsDir == "" {
		resolved, err := resolveDir(appDir, "minecraft directory")
		if err != nil {
			return err
		}
		assetsDir = filepath.Join(resolved, "resourcepacks")
	}
	if dataDir == "" && assetsDir == "" {
		return apperrors.New(apperrors.CategoryLink, apperrors.SeverityError,
			"nothing to link: provide a world, a minecraft directory, or explicit target directories")
	}

	if dataDir != "" {
		target, err := prepareTarget(dataDir)
		if err != nil {
			return err
		}
		if err := m.bucket.SetJSON(keyDataDir, target); err != nil {
			return apperrors.CacheError(bucketName, err)
		}
	}
	if assetsDir != "" {
		target, err := prepareTarget(assetsDir)
		if err != nil {
			return err
		}
		if err := m.bucket.SetJSON(keyAssetsDir, target); err != nil {
			return apperrors.CacheError(bucketName, err)
		}
	}
	return nil
}

// DataDir returns the linked data pack directory, or "" when not linked.
func (m *Manager) DataDir() string { return m.bucket.JSON(keyDataDir) }

// AssetsDir returns the linked resource pack directory, or "" when not
// linked.
func (m *Manager) AssetsDir() string { return m.bucket.JSON(keyAssetsDir) }

// Summary describes the current link targets, one per line.
func (m *Manager) Summary() string {
	var out strings.Builder
	fmt.Fprintf(&out, "Resource pack: %s\n", valueOrDash(m.AssetsDir()))
	fmt.Fprintf(&out, "Data pack: %s", valueOrDash(m.DataDir()))
	return out.String()
}

// Clear removes the stored link targets.
func (m *Manager) Clear() error {
	if err := m.bucket.DeleteJSON(keyDataDir); err != nil {
		return apperrors.CacheError(bucketName, err)
	}
	if err := m.bucket.DeleteJSON(keyAssetsDir); err != nil {
		return apperrors.CacheError(bucketName, err)
	}
	return nil
}

// Autosave copies the built packs into the linked directories. Packs that
// are empty, and targets that are not configured, are skipped.
func (m *Manager) Autosave(assets, data *pack.Pack) error {
	if dir := m.AssetsDir(); dir != "" && assets != nil && !assets.Empty() {
		if err := savePack(assets, dir); err != nil {
			return err
		}
	}
	if dir := m.DataDir(); dir != "" && data != nil && !data.Empty() {
		if err := savePack(data, dir); err != nil {
			return err
		}
	}
	return nil
}

func savePack(p *pack.Pack, dir string) error {
	name := p.Name
	if name == "" {
		name = "untitled"
	}
	target := filepath.Join(dir, name)
	if p.Zipped {
		target += ".zip"
	}
	if err := p.Save(target, true); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryLink, apperrors.SeverityError,
			"copying pack to linked directory")
	}
	return nil
}

// resolveDir validates that path exists and is a directory, returning its
// absolute form.
func resolveDir(path, what string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", apperrors.LinkTargetInvalid(path, "cannot resolve path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", apperrors.LinkTargetInvalid(abs, what+" does not exist")
	}
	if !info.IsDir() {
		return "", apperrors.LinkTargetInvalid(abs, what+" is not a directory")
	}
	return abs, nil
}

// prepareTarget creates the target directory if needed and returns its
// absolute form.
func prepareTarget(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", apperrors.LinkTargetInvalid(dir, "cannot resolve path")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", apperrors.LinkTargetInvalid(abs, "cannot create target directory")
	}
	return abs, nil
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
