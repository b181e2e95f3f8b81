package build

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/packsmith/internal/cache"
	"git.home.luguber.info/inful/packsmith/internal/config"
	"git.home.luguber.info/inful/packsmith/internal/link"
	"git.home.luguber.info/inful/packsmith/internal/metrics"
	"git.home.luguber.info/inful/packsmith/internal/pipeline"
	"git.home.luguber.info/inful/packsmith/internal/watch"
	"git.home.luguber.info/inful/packsmith/internal/worker"
)

// Project is the entry point for interacting with a packsmith project. The
// zero value locates its configuration from the working directory; fields
// customize discovery and collaborators. Config, cache, and worker pool are
// resolved lazily and cached until Reset.
type Project struct {
	// ConfigPath points at an explicit config file. When empty, the config is
	// located by walking up from Directory (or the working directory).
	ConfigPath string
	Directory  string

	// Registry resolves plugin names. Nil uses DefaultRegistry.
	Registry *pipeline.Registry[*Context]

	// Recorder receives build metrics. Nil uses the no-op recorder.
	Recorder metrics.Recorder

	resolvedConfig *config.Config
	resolvedCache  *cache.ProjectCache
	resolvedPool   *worker.Pool
}

// Config resolves and memoizes the project configuration.
func (p *Project) Config() (*config.Config, error) {
	if p.resolvedConfig != nil {
		return p.resolvedConfig, nil
	}
	cfg, err := config.LoadOrLocate(p.ConfigPath, p.Directory)
	if err != nil {
		return nil, err
	}
	p.resolvedConfig = cfg
	return cfg, nil
}

// Cache opens and memoizes the project cache, rooted inside the project
// directory.
func (p *Project) Cache() (*cache.ProjectCache, error) {
	if p.resolvedCache != nil {
		return p.resolvedCache, nil
	}
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	projectCache, err := cache.Open(filepath.Join(cfg.Directory, cache.DefaultDirName))
	if err != nil {
		return nil, err
	}
	p.resolvedCache = projectCache
	return projectCache, nil
}

// WorkerPool returns the shared worker pool, creating it on first use. The
// pool survives Reset so watch mode reuses workers across rebuilds; callers
// owning the project close it when done.
func (p *Project) WorkerPool() *worker.Pool {
	if p.resolvedPool == nil {
		p.resolvedPool = worker.NewPool(0)
	}
	return p.resolvedPool
}

// Reset clears the memoized config and cache so the next operation reloads
// them. The watch loop calls this between rebuilds to pick up config edits.
func (p *Project) Reset() {
	p.resolvedConfig = nil
	p.resolvedCache = nil
}

// Build runs one build. With noLink set the finished packs are not copied to
// the linked Minecraft directories.
func (p *Project) Build(noLink bool) (*Context, error) {
	builder, err := NewBuilder(p, !noLink)
	if err != nil {
		return nil, err
	}
	ctx, buildErr := builder.Build()
	if p.resolvedCache != nil {
		if err := p.resolvedCache.Flush(); err != nil {
			slog.Warn("Failed to flush project cache", "error", err)
		}
	}
	return ctx, buildErr
}

// Watcher creates a directory watcher over the project, ignoring the
// configured patterns and the output directory. A zero interval uses the
// configured debounce window.
func (p *Project) Watcher(interval time.Duration) (*watch.Watcher, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = cfg.Watch.IntervalDuration()
	}

	ignore := append([]string(nil), cfg.Ignore...)
	if out := cfg.OutputDirectory(); out != "" {
		if rel, err := filepath.Rel(cfg.Directory, out); err == nil && !strings.HasPrefix(rel, "..") {
			ignore = append(ignore, filepath.ToSlash(rel))
		}
	}
	return watch.New(watch.Options{
		Root:     cfg.Directory,
		Interval: interval,
		Ignore:   ignore,
	})
}

// InspectCache returns a human-readable summary for each matching cache
// bucket. Without patterns every bucket is included.
func (p *Project) InspectCache(patterns ...string) ([]string, error) {
	projectCache, err := p.Cache()
	if err != nil {
		return nil, err
	}
	names, err := projectCache.Match(patterns...)
	if err != nil {
		return nil, err
	}
	summaries := make([]string, 0, len(names))
	for _, name := range names {
		bucket, err := projectCache.Bucket(name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, bucket.String())
	}
	return summaries, nil
}

// ClearCache removes each matching cache bucket and returns their names.
func (p *Project) ClearCache(patterns ...string) ([]string, error) {
	projectCache, err := p.Cache()
	if err != nil {
		return nil, err
	}
	var cleared []string
	err = projectCache.Transaction(func() error {
		names, err := projectCache.Match(patterns...)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := projectCache.Delete(name); err != nil {
				return err
			}
		}
		cleared = names
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// Link associates target directories with the project and returns a summary.
func (p *Project) Link(world, appDir, dataDir, assetsDir string) (string, error) {
	projectCache, err := p.Cache()
	if err != nil {
		return "", err
	}
	var summary string
	err = projectCache.Transaction(func() error {
		manager, err := link.NewManager(projectCache)
		if err != nil {
			return err
		}
		if err := manager.Setup(world, appDir, dataDir, assetsDir); err != nil {
			return err
		}
		summary = manager.Summary()
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// ClearLink removes the linked target directories.
func (p *Project) ClearLink() error {
	projectCache, err := p.Cache()
	if err != nil {
		return err
	}
	return projectCache.Transaction(func() error {
		manager, err := link.NewManager(projectCache)
		if err != nil {
			return err
		}
		return manager.Clear()
	})
}

func (p *Project) registry() *pipeline.Registry[*Context] {
	if p.Registry != nil {
		return p.Registry
	}
	return DefaultRegistry
}

func (p *Project) recorder() metrics.Recorder {
	if p.Recorder != nil {
		return p.Recorder
	}
	return metrics.NoopRecorder{}
}
