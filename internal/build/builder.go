package build

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/packsmith/internal/config"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/generate"
	"git.home.luguber.info/inful/packsmith/internal/link"
	"git.home.luguber.info/inful/packsmith/internal/metrics"
	"git.home.luguber.info/inful/packsmith/internal/pack"
	"git.home.luguber.info/inful/packsmith/internal/pipeline"
	"git.home.luguber.info/inful/packsmith/internal/templating"
)

// configExtensions marks pipeline entries that are nested project configs
// rather than plugin names.
var configExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".toml": true,
	".json": true,
}

// Builder runs one build of a project.
type Builder struct {
	project *Project
	cfg     *config.Config
	link    bool
}

// NewBuilder resolves the project configuration and prepares a builder. The
// link flag controls whether the build autosaves into linked directories.
func NewBuilder(project *Project, link bool) (*Builder, error) {
	cfg, err := project.Config()
	if err != nil {
		return nil, err
	}
	return &Builder{project: project, cfg: cfg, link: link}, nil
}

// Build creates the context, runs the pipeline, and returns the context. The
// context is returned even on failure so callers can inspect identifiers and
// cache statistics.
func (b *Builder) Build() (*Context, error) {
	ctx, err := b.newContext()
	if err != nil {
		return nil, err
	}

	slog.Info("Building project", "project", ctx.ProjectName, "build_id", ctx.BuildID)

	start := time.Now()
	err = b.run(ctx)
	duration := time.Since(start)

	ctx.recorder.ObserveBuildDuration(duration)
	if err != nil {
		ctx.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		slog.Error("Build failed", "project", ctx.ProjectName, "duration", duration, "error", err)
		return ctx, err
	}
	ctx.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	hits, misses := ctx.CacheStats()
	slog.Info("Build finished", "project", ctx.ProjectName, "duration", duration,
		"cache_hits", hits, "cache_misses", misses)
	return ctx, nil
}

func (b *Builder) newContext() (*Context, error) {
	cfg := b.cfg
	projectCache, err := b.project.Cache()
	if err != nil {
		return nil, err
	}

	manager := templating.NewManager(cfg.TemplateDirectories()...)
	recorder := b.project.recorder()

	ctx := &Context{
		BuildID:            uuid.NewString(),
		ProjectID:          cfg.ID,
		ProjectName:        cfg.Name,
		ProjectDescription: cfg.Description,
		ProjectAuthor:      cfg.Author,
		ProjectVersion:     cfg.Version,
		Directory:          cfg.Directory,
		OutputDirectory:    cfg.OutputDirectory(),
		Meta:               deepCopyMeta(cfg.Meta),
		Cache:              projectCache,
		Template:           manager,
		Worker:             b.project.WorkerPool(),
		LinkAutosave:       b.link,
		assets:             pack.NewResourcePack(),
		data:               pack.NewDataPack(),
		recorder:           recorder,
	}
	ctx.runner = pipeline.NewRunner(b.project.registry())
	ctx.root = generate.New(generate.Target{
		ProjectID: ctx.ProjectID,
		Meta:      ctx.Meta,
		Assets:    ctx.assets,
		Data:      ctx.data,
		Cache:     projectCache,
		Renderer:  manager,
		DraftCacheObserver: func(name string, hit bool) {
			ctx.noteDraftCache(hit)
			recorder.IncDraftCache(name, hit)
		},
	})

	manager.SetGlobal("Project", map[string]any{
		"ID":      ctx.ProjectID,
		"Name":    ctx.ProjectName,
		"Author":  ctx.ProjectAuthor,
		"Version": ctx.ProjectVersion,
	})
	return ctx, nil
}

// run executes bootstrap, the configured pipeline, and the exit phase. Exit
// tasks only run when the main phase succeeded: a failed build never saves.
func (b *Builder) run(ctx *Context) error {
	if err := b.bootstrap(ctx); err != nil {
		return err
	}
	for _, entry := range b.cfg.Pipeline {
		if isConfigPath(entry) {
			if err := b.runSubBuild(ctx, entry); err != nil {
				return err
			}
			continue
		}
		if err := ctx.Require(entry); err != nil {
			return err
		}
	}
	return ctx.runner.Finalize()
}

// bootstrap applies the project configuration: it schedules the exit phase,
// activates required plugins, merges configured pack sources, and renders
// configured file groups.
func (b *Builder) bootstrap(ctx *Context) error {
	// Exit tasks run in reverse registration order, so the sequence at the
	// end of a build is: plugin exit tasks, metadata finalization, output
	// saving, link autosave.
	ctx.OnExit(func() error { return b.autosaveLink(ctx) })
	ctx.OnExit(func() error { return b.saveOutputs(ctx) })
	ctx.OnExit(func() error { return b.finalizeMetadata(ctx) })

	for _, name := range b.cfg.Require {
		if err := ctx.Require(name); err != nil {
			return err
		}
	}
	if err := loadSources(ctx, b.cfg); err != nil {
		return err
	}
	return renderConfigured(ctx, b.cfg)
}

// runSubBuild builds a nested project config and merges its packs into the
// parent, sharing the parent's cache and worker pool. Sub-builds with their
// own output directory save there instead of merging.
func (b *Builder) runSubBuild(ctx *Context, entry string) error {
	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(ctx.Directory, entry)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	sub := &Project{
		Registry:       b.project.Registry,
		Recorder:       b.project.Recorder,
		resolvedConfig: cfg,
		resolvedCache:  ctx.Cache,
		resolvedPool:   ctx.Worker,
	}
	builder, err := NewBuilder(sub, false)
	if err != nil {
		return err
	}
	child, err := builder.Build()
	if err != nil {
		return err
	}

	if child.OutputDirectory != "" {
		return nil
	}
	if err := ctx.assets.Merge(child.assets); err != nil {
		return apperrors.BuildFailed("merging sub-pipeline resource pack", err)
	}
	if err := ctx.data.Merge(child.data); err != nil {
		return apperrors.BuildFailed("merging sub-pipeline data pack", err)
	}
	return nil
}

// finalizeMetadata emits the generated scoreboard and applies the configured
// pack metadata, rendering names and descriptions as templates.
func (b *Builder) finalizeMetadata(ctx *Context) error {
	if err := b.emitScoreboard(ctx); err != nil {
		return err
	}
	description := defaultDescription(ctx)
	if err := b.finalizePack(ctx, ctx.assets, b.cfg.ResourcePack, "_resource_pack", description); err != nil {
		return err
	}
	return b.finalizePack(ctx, ctx.data, b.cfg.DataPack, "_data_pack", description)
}

// emitScoreboard turns the shared objective map into a setup function at
// <namespace>:generated_scoreboard, one sorted "scoreboard objectives add"
// command per objective.
func (b *Builder) emitScoreboard(ctx *Context) error {
	board, ok := ctx.Meta[generate.MetaScoreboard].(map[string]string)
	if !ok || len(board) == 0 {
		return nil
	}
	objectives := make([]string, 0, len(board))
	for objective := range board {
		objectives = append(objectives, objective)
	}
	sort.Strings(objectives)

	lines := make([]string, 0, len(objectives))
	for _, objective := range objectives {
		lines = append(lines, "scoreboard objectives add "+objective+" "+board[objective])
	}
	key := ctx.namespace() + ":generated_scoreboard"
	if override, ok := ctx.Meta[generate.MetaScoreboardPath].(string); ok && override != "" {
		key = override
	}
	if err := ctx.data.Set(key, pack.NewFunction(lines...)); err != nil {
		return apperrors.BuildFailed("emitting scoreboard function", err)
	}
	return nil
}

// defaultDescription joins the project description with author and version
// lines, skipping empty parts.
func defaultDescription(ctx *Context) string {
	parts := make([]string, 0, 3)
	if ctx.ProjectDescription != "" {
		parts = append(parts, ctx.ProjectDescription)
	}
	if ctx.ProjectAuthor != "" {
		parts = append(parts, "Author: "+ctx.ProjectAuthor)
	}
	if ctx.ProjectVersion != "" {
		parts = append(parts, "Version: "+ctx.ProjectVersion)
	}
	return strings.Join(parts, "\n")
}

// finalizePack applies one pack's configured metadata. Explicit config fields
// win over values plugins set on the pack, which win over the computed
// defaults.
func (b *Builder) finalizePack(ctx *Context, p *pack.Pack, cfg config.PackConfig, suffix, description string) error {
	name := cfg.Name
	if name == "" {
		name = ctx.ProjectID
		if ctx.ProjectVersion != "" {
			name += "_" + ctx.ProjectVersion
		}
		name += suffix
	}
	rendered, err := ctx.Template.RenderString("pack name", name, nil)
	if err != nil {
		return apperrors.BuildFailed("rendering pack name", err)
	}
	p.Name = rendered

	desc := cfg.Description
	if desc == "" {
		desc = p.Description
	}
	if desc == "" {
		desc = description
	}
	rendered, err = ctx.Template.RenderString("pack description", desc, nil)
	if err != nil {
		return apperrors.BuildFailed("rendering pack description", err)
	}
	p.Description = rendered

	if cfg.Format != 0 {
		p.Format = cfg.Format
	}
	if cfg.Zipped != nil {
		p.Zipped = *cfg.Zipped
	}
	return nil
}

// saveOutputs writes both non-empty packs into the output directory, saving
// them concurrently through the worker pool.
func (b *Builder) saveOutputs(ctx *Context) error {
	if ctx.OutputDirectory == "" {
		return nil
	}
	if ctx.assets.Empty() && ctx.data.Empty() {
		return nil
	}
	if err := os.MkdirAll(ctx.OutputDirectory, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryBuild, apperrors.SeverityError,
			"creating output directory")
	}
	for _, p := range []*pack.Pack{ctx.assets, ctx.data} {
		if p.Empty() {
			continue
		}
		target := filepath.Join(ctx.OutputDirectory, packFileName(p))
		save := p
		if err := ctx.Worker.Submit(func() error {
			slog.Debug("Saving pack", "target", target)
			if err := save.Save(target, true); err != nil {
				return apperrors.PackIOError(target, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return ctx.Worker.Wait()
}

// autosaveLink copies finished packs into the linked Minecraft directories.
func (b *Builder) autosaveLink(ctx *Context) error {
	if !ctx.LinkAutosave {
		return nil
	}
	manager, err := link.NewManager(ctx.Cache)
	if err != nil {
		return err
	}
	return manager.Autosave(ctx.assets, ctx.data)
}

func packFileName(p *pack.Pack) string {
	name := p.Name
	if name == "" {
		name = "untitled"
	}
	if p.Zipped {
		name += ".zip"
	}
	return name
}

func isConfigPath(entry string) bool {
	return configExtensions[strings.ToLower(filepath.Ext(entry))]
}
