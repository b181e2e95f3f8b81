package build

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/packsmith/internal/config"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/generate"
	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// loadBucketName is the cache bucket holding clones of git pack sources.
const loadBucketName = "load"

// loadSources merges configured pack sources into the working containers.
// Local entries are globs relative to the project directory; entries prefixed
// with "git+" are cloned and loaded from the clone.
func loadSources(ctx *Context, cfg *config.Config) error {
	if err := loadInto(ctx, ctx.assets, cfg.ResourcePack.Load); err != nil {
		return err
	}
	return loadInto(ctx, ctx.data, cfg.DataPack.Load)
}

func loadInto(ctx *Context, target *pack.Pack, entries []string) error {
	for _, entry := range entries {
		if strings.HasPrefix(entry, "git+") {
			dir, err := fetchGitSource(ctx, entry)
			if err != nil {
				return err
			}
			if err := target.Load(dir); err != nil {
				return apperrors.PackIOError(dir, err)
			}
			continue
		}

		pattern := entry
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(ctx.Directory, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return apperrors.InvalidArgument("load", fmt.Sprintf("bad pattern %q", entry))
		}
		if len(matches) == 0 {
			return apperrors.Newf(apperrors.CategoryBuild, apperrors.SeverityError,
				"pack source %q matched nothing", entry)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if err := target.Load(match); err != nil {
				return apperrors.PackIOError(match, err)
			}
		}
	}
	return nil
}

// fetchGitSource resolves a "git+<url>[@<branch>][#<subdir>]" entry to a local
// directory. Clones live in the load cache bucket and are reused until the
// bucket is cleared, so watch-mode rebuilds never touch the network.
func fetchGitSource(ctx *Context, entry string) (string, error) {
	url, branch, subdir := parseGitSource(entry)
	bucket, err := ctx.Cache.Bucket(loadBucketName)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(bucket.Directory(), generate.StableShortHash(entry))

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		slog.Debug("Reusing cached pack source", "url", url)
	} else {
		slog.Info("Cloning pack source", "url", url, "branch", branch)
		options := &git.CloneOptions{URL: url}
		if branch != "" {
			options.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
			options.SingleBranch = true
		}
		if _, err := git.PlainClone(dir, false, options); err != nil {
			_ = os.RemoveAll(dir)
			return "", apperrors.Wrap(err, apperrors.CategoryBuild, apperrors.SeverityError,
				"cloning "+url)
		}
		if err := bucket.SetJSON(entry, dir); err != nil {
			return "", err
		}
	}

	if subdir != "" {
		dir = filepath.Join(dir, filepath.FromSlash(subdir))
	}
	return dir, nil
}

// parseGitSource splits a git+ entry into clone URL, optional branch, and
// optional subdirectory. The branch marker is an "@" after the last slash, so
// scp-style remotes like git@host:repo keep their user prefix.
func parseGitSource(entry string) (url, branch, subdir string) {
	url = strings.TrimPrefix(entry, "git+")
	if i := strings.Index(url, "#"); i >= 0 {
		url, subdir = url[:i], url[i+1:]
	}
	if at := strings.LastIndex(url, "@"); at > strings.LastIndex(url, "/") {
		url, branch = url[:at], url[at+1:]
	}
	return url, branch, subdir
}
