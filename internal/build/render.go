package build

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/packsmith/internal/config"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// renderConfigured renders the configured file groups as templates. Groups
// name a kind directory (functions, models, ...) and map to key patterns where
// "*" matches across path separators, so "demo:*" covers nested paths.
func renderConfigured(ctx *Context, cfg *config.Config) error {
	if err := renderGroups(ctx, ctx.assets, cfg.ResourcePack.Render); err != nil {
		return err
	}
	return renderGroups(ctx, ctx.data, cfg.DataPack.Render)
}

func renderGroups(ctx *Context, p *pack.Pack, groups map[string][]string) error {
	if len(groups) == 0 {
		return nil
	}
	names := make([]string, 0, len(groups))
	for group := range groups {
		names = append(names, group)
	}
	sort.Strings(names)

	for _, group := range names {
		kind, ok := kindForGroup(p.Category(), group)
		if !ok {
			return apperrors.InvalidArgument("render", fmt.Sprintf("unknown file group %q", group))
		}
		for _, pattern := range groups[group] {
			matched := false
			for _, key := range p.Keys(kind) {
				if !globMatch(pattern, key) {
					continue
				}
				matched = true
				renderable, ok := p.Get(key, kind).(pack.RenderableFile)
				if !ok {
					return apperrors.InvalidArgument("render",
						fmt.Sprintf("file group %q is not renderable", group))
				}
				data := map[string]any{"RenderPath": key, "RenderGroup": group}
				if err := ctx.Template.RenderFile(renderable, data); err != nil {
					return apperrors.Wrap(err, apperrors.CategoryFormat, apperrors.SeverityError,
						"rendering "+key)
				}
			}
			if !matched {
				return apperrors.Newf(apperrors.CategoryBuild, apperrors.SeverityError,
					"render pattern %q matched nothing in %s", pattern, group)
			}
		}
	}
	return nil
}

func kindForGroup(category pack.Category, group string) (pack.Kind, bool) {
	for _, kind := range pack.Kinds(category) {
		if kind.Group() == group {
			return kind, true
		}
	}
	return "", false
}

// globMatch matches keys against patterns where "*" spans any characters,
// including ":" and "/", and "?" matches a single character.
func globMatch(pattern, s string) bool {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	ok, err := regexp.MatchString("^"+quoted+"$", s)
	return err == nil && ok
}
