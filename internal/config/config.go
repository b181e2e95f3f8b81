// Package config loads and validates packsmith project configuration.
//
// A project is described by a packsmith.yaml (or .yml, .toml, .json) file at
// the project root. JSON files may carry comments; TOML and YAML are parsed
// with their usual libraries. Environment variables referenced as $VAR or
// ${VAR} inside the file are expanded before parsing, and .env/.env.local
// files are loaded into the process environment first.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// FileNames lists the config file names probed during discovery, in order.
var FileNames = []string{
	"packsmith.yaml",
	"packsmith.yml",
	"packsmith.toml",
	"packsmith.json",
}

// Config is the root project configuration.
type Config struct {
	ID          string `yaml:"id" json:"id" toml:"id"`
	Name        string `yaml:"name" json:"name" toml:"name"`
	Description string `yaml:"description" json:"description" toml:"description"`
	Author      string `yaml:"author" json:"author" toml:"author"`
	Version     string `yaml:"version" json:"version" toml:"version"`

	// Directory is the project root all relative paths resolve against.
	// Defaults to the directory containing the config file.
	Directory string `yaml:"directory" json:"directory" toml:"directory"`

	// Extend names a base config file merged underneath this one.
	Extend string `yaml:"extend" json:"extend" toml:"extend"`

	// Output is where built packs are written. Empty disables saving.
	Output string `yaml:"output" json:"output" toml:"output"`

	// Ignore holds glob patterns excluded from watch mode.
	Ignore []string `yaml:"ignore" json:"ignore" toml:"ignore"`

	// Require lists plugins activated before the pipeline runs.
	Require []string `yaml:"require" json:"require" toml:"require"`

	// Templates lists directories searched for templates, in order.
	Templates []string `yaml:"templates" json:"templates" toml:"templates"`

	// Pipeline lists plugin names and/or nested config files to build.
	Pipeline []string `yaml:"pipeline" json:"pipeline" toml:"pipeline"`

	// Meta is free-form metadata exposed to plugins and generators.
	Meta map[string]any `yaml:"meta" json:"meta" toml:"meta"`

	ResourcePack PackConfig `yaml:"resource_pack" json:"resource_pack" toml:"resource_pack"`
	DataPack     PackConfig `yaml:"data_pack" json:"data_pack" toml:"data_pack"`

	Watch  WatchConfig  `yaml:"watch" json:"watch" toml:"watch"`
	Notify NotifyConfig `yaml:"notify" json:"notify" toml:"notify"`

	// Source is the absolute path of the loaded config file.
	Source string `yaml:"-" json:"-" toml:"-"`
}

// PackConfig configures one output pack (resource or data).
type PackConfig struct {
	Name        string `yaml:"name" json:"name" toml:"name"`
	Description string `yaml:"description" json:"description" toml:"description"`
	Format      int    `yaml:"format" json:"format" toml:"format"`

	// Zipped selects zip output; nil inherits the pack default (false).
	Zipped *bool `yaml:"zipped,omitempty" json:"zipped,omitempty" toml:"zipped,omitempty"`

	// Load lists existing pack paths merged into the pack before plugins run.
	// Entries prefixed with "git+" are cloned and loaded from the clone.
	Load []string `yaml:"load" json:"load" toml:"load"`

	// Render maps file kinds to key patterns rendered through the template
	// manager at the end of the build, e.g. functions: ["demo:*"].
	Render map[string][]string `yaml:"render" json:"render" toml:"render"`
}

// WatchConfig tunes watch mode. Durations are Go duration strings.
type WatchConfig struct {
	Interval     string `yaml:"interval" json:"interval" toml:"interval"`
	RebuildEvery string `yaml:"rebuild_every" json:"rebuild_every" toml:"rebuild_every"`
}

// NotifyConfig enables build event publishing. An empty URL disables it.
type NotifyConfig struct {
	URL     string `yaml:"url" json:"url" toml:"url"`
	Subject string `yaml:"subject" json:"subject" toml:"subject"`
}

// IntervalDuration returns the debounce interval, defaulting to 600ms.
func (w WatchConfig) IntervalDuration() time.Duration {
	if w.Interval == "" {
		return 600 * time.Millisecond
	}
	d, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 600 * time.Millisecond
	}
	return d
}

// RebuildEveryDuration returns the forced rebuild period, or zero if unset.
func (w WatchConfig) RebuildEveryDuration() time.Duration {
	if w.RebuildEvery == "" {
		return 0
	}
	d, err := time.ParseDuration(w.RebuildEvery)
	if err != nil {
		return 0
	}
	return d
}

// Load reads, expands and parses the config file at path, resolves its
// Extend chain, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path, nil)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile parses a single config file and merges its Extend base under it.
// seen guards against extend cycles.
func loadFile(path string, seen map[string]bool) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "resolving config path")
	}
	if seen == nil {
		seen = make(map[string]bool)
	}
	if seen[abs] {
		return nil, apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal, "config extend cycle at %s", abs)
	}
	seen[abs] = true

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return nil, apperrors.ConfigNotFound(abs)
	}

	loadEnv(filepath.Dir(abs))

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "reading config file")
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	if err := unmarshalByExtension(abs, []byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.Source = abs
	if cfg.Directory == "" {
		cfg.Directory = filepath.Dir(abs)
	} else if !filepath.IsAbs(cfg.Directory) {
		cfg.Directory = filepath.Join(filepath.Dir(abs), cfg.Directory)
	}

	if cfg.Extend != "" {
		basePath := cfg.Extend
		if !filepath.IsAbs(basePath) {
			basePath = filepath.Join(filepath.Dir(abs), basePath)
		}
		base, err := loadFile(basePath, seen)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "loading extended config")
		}
		base.overlay(cfg)
		base.Source = abs
		cfg = base
	}
	return cfg, nil
}

// unmarshalByExtension picks the parser from the file extension.
func unmarshalByExtension(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parsing YAML config")
		}
	case ".json":
		// Strip comments and trailing commas before parsing as standard JSON.
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parsing JSON config")
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parsing TOML config")
		}
	default:
		return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal, "unsupported config format %q", ext)
	}
	return nil
}

// loadEnv loads .env then .env.local from dir without overriding variables
// already present in the process environment.
func loadEnv(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// overlay merges non-zero fields of other on top of c. Used by Extend so a
// derived config overrides its base field by field.
func (c *Config) overlay(other *Config) {
	if other.ID != "" {
		c.ID = other.ID
	}
	if other.Name != "" {
		c.Name = other.Name
	}
	if other.Description != "" {
		c.Description = other.Description
	}
	if other.Author != "" {
		c.Author = other.Author
	}
	if other.Version != "" {
		c.Version = other.Version
	}
	if other.Directory != "" {
		c.Directory = other.Directory
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if len(other.Ignore) > 0 {
		c.Ignore = append(c.Ignore, other.Ignore...)
	}
	if len(other.Require) > 0 {
		c.Require = append(c.Require, other.Require...)
	}
	if len(other.Templates) > 0 {
		c.Templates = append(other.Templates, c.Templates...)
	}
	if len(other.Pipeline) > 0 {
		c.Pipeline = other.Pipeline
	}
	if len(other.Meta) > 0 {
		if c.Meta == nil {
			c.Meta = make(map[string]any, len(other.Meta))
		}
		for k, v := range other.Meta {
			c.Meta[k] = v
		}
	}
	c.ResourcePack.overlay(other.ResourcePack)
	c.DataPack.overlay(other.DataPack)
	if other.Watch.Interval != "" {
		c.Watch.Interval = other.Watch.Interval
	}
	if other.Watch.RebuildEvery != "" {
		c.Watch.RebuildEvery = other.Watch.RebuildEvery
	}
	if other.Notify.URL != "" {
		c.Notify.URL = other.Notify.URL
	}
	if other.Notify.Subject != "" {
		c.Notify.Subject = other.Notify.Subject
	}
}

func (p *PackConfig) overlay(other PackConfig) {
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Description != "" {
		p.Description = other.Description
	}
	if other.Format != 0 {
		p.Format = other.Format
	}
	if other.Zipped != nil {
		p.Zipped = other.Zipped
	}
	if len(other.Load) > 0 {
		p.Load = append(p.Load, other.Load...)
	}
	if len(other.Render) > 0 {
		if p.Render == nil {
			p.Render = make(map[string][]string, len(other.Render))
		}
		for k, v := range other.Render {
			p.Render[k] = v
		}
	}
}

// applyDefaults fills derived fields after parsing.
func (c *Config) applyDefaults() {
	if c.Name == "" && c.ID != "" {
		c.Name = c.ID
	}
	if c.ID == "" {
		if c.Name != "" {
			c.ID = NormalizeName(c.Name)
		} else if c.Directory != "" {
			c.ID = NormalizeName(filepath.Base(c.Directory))
		}
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
}

// Validate reports configuration problems a build cannot proceed with.
func (c *Config) Validate() error {
	if c.ID == "" {
		return apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal, "project id is required (set id or name)")
	}
	if c.ID != NormalizeName(c.ID) {
		return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"project id %q is not normalized (want %q)", c.ID, NormalizeName(c.ID))
	}
	if c.Watch.Interval != "" {
		if _, err := time.ParseDuration(c.Watch.Interval); err != nil {
			return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal, "invalid watch.interval %q", c.Watch.Interval)
		}
	}
	if c.Watch.RebuildEvery != "" {
		if _, err := time.ParseDuration(c.Watch.RebuildEvery); err != nil {
			return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal, "invalid watch.rebuild_every %q", c.Watch.RebuildEvery)
		}
	}
	for _, dir := range c.Templates {
		if strings.TrimSpace(dir) == "" {
			return apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal, "templates entries must not be empty")
		}
	}
	return nil
}

// OutputDirectory resolves the output path against the project directory.
// Empty means saving is disabled.
func (c *Config) OutputDirectory() string {
	if c.Output == "" {
		return ""
	}
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.Directory, c.Output)
}

// TemplateDirectories resolves template search paths against the project
// directory, keeping configured order.
func (c *Config) TemplateDirectories() []string {
	dirs := make([]string, 0, len(c.Templates))
	for _, dir := range c.Templates {
		if filepath.IsAbs(dir) {
			dirs = append(dirs, dir)
		} else {
			dirs = append(dirs, filepath.Join(c.Directory, dir))
		}
	}
	return dirs
}

// MetaString returns a string-valued meta entry, or fallback when absent.
func (c *Config) MetaString(key, fallback string) string {
	if v, ok := c.Meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return fallback
}
