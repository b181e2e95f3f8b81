// Package generate implements the deterministic generation subsystem: scoped
// generators that hand out collision-free resource paths, ids, hashes, and
// scoreboard objectives, plus drafts whose content can be snapshotted and
// restored through the project cache so unchanged generation bodies are
// skipped entirely.
package generate

import (
	"encoding/json"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/packsmith/internal/cache"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// Meta keys consulted by generators. All are optional overrides; defaults are
// derived from the project id and scope.
const (
	MetaNamespace  = "generate_namespace"
	MetaPrefix     = "generate_prefix"
	MetaPath       = "generate_path"
	MetaID         = "generate_id"
	MetaHash       = "generate_hash"
	MetaObjective  = "generate_objective"
	MetaScoreboard = "generate_scoreboard"

	// MetaScoreboardPath overrides where the build writes the generated
	// scoreboard setup function.
	MetaScoreboardPath = "generate_scoreboard_path"
)

// Renderer renders a file's content as a template in place. Satisfied by
// templating.Manager.
type Renderer interface {
	RenderFile(file pack.RenderableFile, data map[string]any) error
}

// Target bundles everything a generator family operates on: project identity,
// the shared meta map, the destination containers, and optional collaborators.
// The build context owns one Target and passes the root generator around
// explicitly; there is no ambient or global generator state.
type Target struct {
	ProjectID string
	Meta      map[string]any
	Assets    *pack.Pack
	Data      *pack.Pack
	Cache     *cache.ProjectCache
	Renderer  Renderer

	// DraftCacheObserver, when set, is invoked once per Draft.Cache call with
	// the bucket name and whether the stored snapshot was reused. The build
	// layer uses it to feed metrics and build history.
	DraftCacheObserver func(name string, hit bool)
}

// Generator derives deterministic names inside a scope and registers
// generated files into its working containers. Derived generators returned by
// WithScope share the registry, meta, and containers of their parent; only
// the scope differs. Generators are single-build values and are not safe for
// concurrent use.
type Generator struct {
	projectID     string
	meta          map[string]any
	registry      *Registry
	scope         []any
	assets        *pack.Pack
	data          *pack.Pack
	cache         *cache.ProjectCache
	renderer      Renderer
	draftObserver func(name string, hit bool)
}

// New returns the root generator for a target. Nil containers and meta are
// replaced with empty ones so a zero-configured target still works.
func New(target Target) *Generator {
	meta := target.Meta
	if meta == nil {
		meta = make(map[string]any)
	}
	assets := target.Assets
	if assets == nil {
		assets = pack.NewResourcePack()
	}
	data := target.Data
	if data == nil {
		data = pack.NewDataPack()
	}
	return &Generator{
		projectID:     target.ProjectID,
		meta:          meta,
		registry:      NewRegistry(),
		assets:        assets,
		data:          data,
		cache:         target.Cache,
		renderer:      target.Renderer,
		draftObserver: target.DraftCacheObserver,
	}
}

// Assets returns the generator's working resource pack.
func (g *Generator) Assets() *pack.Pack { return g.assets }

// Data returns the generator's working data pack.
func (g *Generator) Data() *pack.Pack { return g.data }

// Scope returns a copy of the scope segments.
func (g *Generator) Scope() []any {
	return append([]any(nil), g.scope...)
}

// WithScope returns a derived generator with the segments appended to the
// scope. The receiver is never mutated; registry and containers are shared.
func (g *Generator) WithScope(segments ...any) *Generator {
	scope := make([]any, 0, len(g.scope)+len(segments))
	scope = append(scope, g.scope...)
	scope = append(scope, segments...)
	derived := *g
	derived.scope = scope
	return &derived
}

// Prefix joins the configured namespace prefix and the plain string scope
// segments, each followed by separator. Non-string segments (artifact kinds)
// are skipped: they partition counters without appearing in names.
func (g *Generator) Prefix(separator string) string {
	var out strings.Builder
	if prefix := g.metaString(MetaPrefix, ""); prefix != "" {
		out.WriteString(prefix)
		out.WriteString(separator)
	}
	for _, segment := range g.scope {
		if s, ok := segment.(string); ok && s != "" {
			out.WriteString(s)
			out.WriteString(separator)
		}
	}
	return out.String()
}

// Increment returns the next counter for the scope plus extra key parts.
// Distinct keys advance independently, starting at 0.
func (g *Generator) Increment(extra ...any) int {
	key := make([]any, 0, 1+len(g.scope)+len(extra))
	key = append(key, g.projectID)
	key = append(key, g.scope...)
	key = append(key, extra...)
	return g.registry.Next(key...)
}

// Format substitutes the generation placeholders in template:
//
//	{namespace}   configured namespace, default the project id
//	{path}        scope prefix joined with "/"
//	{scope}       scope prefix joined with "."
//	{incr}        next counter, keyed by the template string itself
//	{hash}        stable hash of hashValue (requires hashValue)
//	{short_hash}  truncated stable hash of hashValue (requires hashValue)
//
// Placeholders with side effects are lazy: {incr} only draws a counter when
// the template mentions it, and each lazy is forced at most once even when
// referenced repeatedly.
func (g *Generator) Format(template string, hashValue any) (string, error) {
	env := map[string]any{
		"namespace": g.metaString(MetaNamespace, g.projectID),
		"path":      NewLazy(func() string { return g.Prefix("/") }),
		"scope":     NewLazy(func() string { return g.Prefix(".") }),
		"incr":      NewLazy(func() string { return strconv.Itoa(g.Increment(template)) }),
	}
	if hashValue != nil {
		value := hashValue
		env["hash"] = NewLazy(func() string { return StableHash(resolveHashInput(value)) })
		env["short_hash"] = NewLazy(func() string { return StableShortHash(resolveHashInput(value)) })
	}
	return formatMap(template, env)
}

// resolveHashInput forces deferred hash inputs. Registering a file defaults
// its hash input to a lazy serialization, which must feed the hasher raw
// content rather than the wrapper.
func resolveHashInput(value any) any {
	if lazy, ok := value.(*Lazy); ok {
		return lazy.Value()
	}
	return value
}

// Path generates a scoped resource path. An empty template means the default
// "generated_{incr}"; the prefix template comes from meta generate_path,
// default "{namespace}:{path}".
func (g *Generator) Path(template string, hashValue any) (string, error) {
	if template == "" {
		template = "generated_{incr}"
	}
	return g.Format(g.metaString(MetaPath, "{namespace}:{path}")+template, hashValue)
}

// ID generates a scoped id. An empty template means the default "{incr}"; the
// prefix template comes from meta generate_id, default "{namespace}.{scope}".
func (g *Generator) ID(template string, hashValue any) (string, error) {
	if template == "" {
		template = "{incr}"
	}
	return g.Format(g.metaString(MetaID, "{namespace}.{scope}")+template, hashValue)
}

// Hash formats the template under the meta generate_hash prefix (default
// "{namespace}.{scope}") and returns the stable hash of the formatted key.
func (g *Generator) Hash(template string, hashValue any) (string, error) {
	key, err := g.Format(g.metaString(MetaHash, "{namespace}.{scope}")+template, hashValue)
	if err != nil {
		return "", err
	}
	return StableHash(key), nil
}

// ShortHash is Hash with the truncated digest form.
func (g *Generator) ShortHash(template string, hashValue any) (string, error) {
	key, err := g.Format(g.metaString(MetaHash, "{namespace}.{scope}")+template, hashValue)
	if err != nil {
		return "", err
	}
	return StableShortHash(key), nil
}

// Objective generates a scoreboard objective: the formatted key (meta
// generate_objective prefix, default "{namespace}.{scope}"; empty template
// means "{incr}") is stable-hashed into the objective name, and the objective
// is recorded in the shared scoreboard map together with its criterion and
// JSON display text (default: the key itself). The map lives in meta under
// generate_scoreboard; emitting it as an actual setup function is the
// builder's job.
func (g *Generator) Objective(template string, hashValue any, criterion string, display any) (string, error) {
	if template == "" {
		template = "{incr}"
	}
	if criterion == "" {
		criterion = "dummy"
	}
	key, err := g.Format(g.metaString(MetaObjective, "{namespace}.{scope}")+template, hashValue)
	if err != nil {
		return "", err
	}
	objective := StableHash(key)
	if display == nil {
		display = key
	}
	displayJSON, err := json.Marshal(display)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryArgument, apperrors.SeverityError,
			"objective display is not serializable")
	}
	g.Scoreboard()[objective] = criterion + " " + string(displayJSON)
	return objective, nil
}

// Scoreboard returns the shared objective map, creating it on first use.
func (g *Generator) Scoreboard() map[string]string {
	if m, ok := g.meta[MetaScoreboard].(map[string]string); ok {
		return m
	}
	m := make(map[string]string)
	g.meta[MetaScoreboard] = m
	return m
}

// RegisterAt stores a file at an explicit destination key in the container
// matching the file's kind and returns the key unchanged.
func (g *Generator) RegisterAt(key string, file pack.File) (string, error) {
	if file == nil {
		return "", apperrors.InvalidArgument("register", "nil file")
	}
	if key == "" {
		return "", apperrors.InvalidArgument("register", "empty destination key")
	}
	container, err := g.containerFor(file.Kind())
	if err != nil {
		return "", err
	}
	if err := container.Set(key, file); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryArgument, apperrors.SeverityError,
			"invalid destination key")
	}
	return key, nil
}

// Register stores a file under a generated path using the default naming
// template and a lazy content hash, and returns the destination key.
func (g *Generator) Register(file pack.File) (string, error) {
	return g.RegisterNamed("", file, nil)
}

// RegisterNamed stores a file under a path generated from template. A nil
// hashValue defaults to the file's serialized content, computed lazily so
// templates that never mention {hash} never serialize. Path generation is
// scoped by the file's kind, keeping counters per artifact kind without
// changing the textual prefix.
func (g *Generator) RegisterNamed(template string, file pack.File, hashValue any) (string, error) {
	if file == nil {
		return "", apperrors.InvalidArgument("register", "nil file")
	}
	kind := file.Kind()
	container, err := g.containerFor(kind)
	if err != nil {
		return "", err
	}
	if hashValue == nil {
		hashValue = NewLazy(func() string {
			data, err := file.Serialize()
			if err != nil {
				return "unserializable"
			}
			return string(data)
		})
	}
	key, err := g.WithScope(kind).Path(template, hashValue)
	if err != nil {
		return "", err
	}
	if err := container.Set(key, file); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryArgument, apperrors.SeverityError,
			"generated key rejected by container")
	}
	return key, nil
}

// RegisterRendered stores a renderable file under a generated path and then
// renders its content as a template. The render data receives RenderPath and
// RenderGroup describing the destination, plus the caller's vars. No default
// content hash applies: the content is not final until after rendering.
func (g *Generator) RegisterRendered(template string, file pack.RenderableFile, hashValue any, vars map[string]any) (string, error) {
	if file == nil {
		return "", apperrors.InvalidArgument("register", "nil file")
	}
	if g.renderer == nil {
		return "", apperrors.InvalidArgument("register", "no template renderer configured")
	}
	kind := file.Kind()
	container, err := g.containerFor(kind)
	if err != nil {
		return "", err
	}
	key, err := g.WithScope(kind).Path(template, hashValue)
	if err != nil {
		return "", err
	}
	if err := container.Set(key, file); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryArgument, apperrors.SeverityError,
			"generated key rejected by container")
	}
	data := make(map[string]any, len(vars)+2)
	for k, v := range vars {
		data[k] = v
	}
	data["RenderPath"] = key
	data["RenderGroup"] = kind.Group()
	if err := g.renderer.RenderFile(file, data); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryFormat, apperrors.SeverityError,
			"rendering registered file")
	}
	return key, nil
}

// Draft returns a new draft scoped like the receiver, with fresh working
// containers whose parents are the receiver's containers.
func (g *Generator) Draft() *Draft {
	draft := &Draft{
		Generator: Generator{
			projectID:     g.projectID,
			meta:          g.meta,
			registry:      g.registry,
			scope:         g.scope,
			assets:        pack.NewResourcePack(),
			data:          pack.NewDataPack(),
			cache:         g.cache,
			renderer:      g.renderer,
			draftObserver: g.draftObserver,
		},
		parentAssets: g.assets,
		parentData:   g.data,
	}
	return draft
}

func (g *Generator) containerFor(kind pack.Kind) (*pack.Pack, error) {
	switch kind.Category() {
	case pack.CategoryData:
		return g.data, nil
	case pack.CategoryAssets:
		return g.assets, nil
	default:
		return nil, apperrors.InvalidArgument("register", "unknown artifact kind "+strconv.Quote(string(kind)))
	}
}

func (g *Generator) metaString(key, fallback string) string {
	if value, ok := g.meta[key].(string); ok && value != "" {
		return value
	}
	return fallback
}
