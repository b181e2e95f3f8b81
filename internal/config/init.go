package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// Init writes an example configuration file. An existing file is only
// replaced when force is set.
func Init(configPath string, force bool) error {
	if configPath == "" {
		configPath = FileNames[0]
	}
	if _, err := os.Stat(configPath); err == nil && !force {
		return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Name:        "My Pack",
		Description: "Generated with packsmith",
		Version:     "0.1.0",
		Output:      "dist",
		Templates:   []string{"templates"},
		DataPack: PackConfig{
			Format: 48,
		},
		ResourcePack: PackConfig{
			Format: 34,
		},
		Pipeline: []string{},
		Watch: WatchConfig{
			Interval: "600ms",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal,
			"marshaling example config")
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal,
				"creating config directory")
		}
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal,
			"writing config file")
	}
	return nil
}
