// Package build orchestrates project builds: it assembles the build context,
// runs the plugin pipeline, finalizes pack metadata, and saves the results.
package build

import (
	"time"

	"git.home.luguber.info/inful/packsmith/internal/cache"
	"git.home.luguber.info/inful/packsmith/internal/generate"
	"git.home.luguber.info/inful/packsmith/internal/metrics"
	"git.home.luguber.info/inful/packsmith/internal/pack"
	"git.home.luguber.info/inful/packsmith/internal/pipeline"
	"git.home.luguber.info/inful/packsmith/internal/templating"
	"git.home.luguber.info/inful/packsmith/internal/worker"
)

// Plugin is a pipeline step operating on the build context. Plugins are
// addressed by name through a registry, required by project configuration, or
// applied anonymously by other plugins.
type Plugin = pipeline.Plugin[*Context]

// DefaultRegistry resolves plugin names from project configuration. Programs
// embedding packsmith register their plugins here, or install a custom
// registry on the Project.
var DefaultRegistry = pipeline.NewRegistry[*Context]()

// RegisterPlugin adds a named plugin to the default registry.
func RegisterPlugin(name string, plugin Plugin) error {
	return DefaultRegistry.Register(name, plugin)
}

// Context carries everything one build touches. It is created by the builder,
// threaded through every plugin, and returned to the caller when the build
// finishes. Contexts are single-build values and are not safe for concurrent
// use.
type Context struct {
	// BuildID uniquely identifies this build run.
	BuildID string

	ProjectID          string
	ProjectName        string
	ProjectDescription string
	ProjectAuthor      string
	ProjectVersion     string

	// Directory is the project root all relative paths resolve against.
	Directory string

	// OutputDirectory is where finished packs are saved. Empty disables
	// saving.
	OutputDirectory string

	// Meta is the build's copy of the project metadata. Plugins may mutate it
	// freely without affecting subsequent builds.
	Meta map[string]any

	Cache    *cache.ProjectCache
	Template *templating.Manager
	Worker   *worker.Pool

	// LinkAutosave controls whether finished packs are copied to the linked
	// Minecraft directories at the end of the build.
	LinkAutosave bool

	assets   *pack.Pack
	data     *pack.Pack
	root     *generate.Generator
	runner   *pipeline.Runner[*Context]
	recorder metrics.Recorder

	cacheHits   int
	cacheMisses int
}

// Assets returns the working resource pack.
func (c *Context) Assets() *pack.Pack { return c.assets }

// Data returns the working data pack.
func (c *Context) Data() *pack.Pack { return c.data }

// Generate returns the root generator. Plugins derive scoped generators from
// it with WithScope.
func (c *Context) Generate() *generate.Generator { return c.root }

// Require runs the named plugin unless it already ran during this build.
func (c *Context) Require(name string) error {
	start := time.Now()
	err := c.runner.Require(c, name)
	c.recorder.ObservePluginDuration(name, time.Since(start))
	return err
}

// Apply runs an anonymous plugin directly, without dedupe.
func (c *Context) Apply(plugin Plugin) error {
	return c.runner.Apply(c, plugin)
}

// OnExit registers a task executed after the main pipeline phase, in reverse
// registration order.
func (c *Context) OnExit(task func() error) {
	c.runner.OnExit(task)
}

// CacheStats reports how many draft cache lookups hit and missed during the
// build.
func (c *Context) CacheStats() (hits, misses int) {
	return c.cacheHits, c.cacheMisses
}

func (c *Context) noteDraftCache(hit bool) {
	if hit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
}

// namespace returns the generation namespace: the generate_namespace meta
// override or the project id.
func (c *Context) namespace() string {
	if value, ok := c.Meta[generate.MetaNamespace].(string); ok && value != "" {
		return value
	}
	return c.ProjectID
}

// deepCopyMeta clones nested maps and slices so plugin mutations never leak
// into the shared project configuration.
func deepCopyMeta(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = deepCopyValue(value)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return deepCopyMeta(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
