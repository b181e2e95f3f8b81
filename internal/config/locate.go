package config

import (
	"os"
	"path/filepath"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// Locate walks from dir up to the filesystem root looking for a config file,
// trying the names in FileNames at each level. It returns the first match or
// an empty string when nothing was found.
func Locate(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "resolving search directory")
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(current, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// LoadOrLocate loads the config at path, or discovers one from dir when path
// is empty. A missing config is a CategoryConfig error.
func LoadOrLocate(path, dir string) (*Config, error) {
	if path == "" {
		located, err := Locate(dir)
		if err != nil {
			return nil, err
		}
		if located == "" {
			return nil, apperrors.ConfigRequired("packsmith.yaml")
		}
		path = located
	}
	return Load(path)
}
