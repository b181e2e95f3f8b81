package generate

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/pack"
)

// Snapshot file names inside a draft cache bucket. A ".zip" suffix is added
// for zipped snapshots.
const (
	draftAssetsSnapshot = "draft_resource_pack"
	draftDataSnapshot   = "draft_data_pack"
	draftKeyField       = "draft_key"
)

// Draft is a generator working on intermediate containers. Content
// accumulates in the draft until Apply folds it into the parent containers;
// a draft can also be populated from a cache snapshot instead of running its
// generation body.
type Draft struct {
	Generator
	parentAssets *pack.Pack
	parentData   *pack.Pack
	applied      bool
}

// Applied reports whether the draft content has been folded into the parents.
func (d *Draft) Applied() bool { return d.applied }

// Apply merges the draft containers into the parent containers. Applying is
// idempotent: only the first call merges, later calls are no-ops, so a draft
// never double-applies regardless of how many code paths call Apply.
func (d *Draft) Apply() error {
	if d.applied {
		return nil
	}
	if err := d.parentAssets.Merge(d.assets); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryPack, apperrors.SeverityError,
			"applying draft resource pack")
	}
	if err := d.parentData.Merge(d.data); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryPack, apperrors.SeverityError,
			"applying draft data pack")
	}
	d.applied = true
	return nil
}

// CacheOptions controls draft snapshot persistence.
type CacheOptions struct {
	// Zipped stores the snapshots as zip archives instead of directories.
	// The flag is part of the effective cache key, so toggling it
	// invalidates previous snapshots.
	Zipped bool
	// Apply folds the draft into its parents after a hit is loaded or a
	// miss is populated and persisted.
	Apply bool
}

// Cache populates the draft from a named cache bucket when the stored key
// matches, skipping populate entirely. On a miss it runs populate exactly
// once, persists the non-empty containers as snapshots, and stores the key.
// Errors returned by populate propagate unchanged and leave the bucket
// untouched; snapshot and bucket IO failures surface as cache errors.
func (d *Draft) Cache(name, key string, options CacheOptions, populate func(*Draft) error) error {
	if d.cache == nil {
		return apperrors.InvalidArgument("cache", "no project cache configured")
	}
	bucket, err := d.cache.Bucket(name)
	if err != nil {
		return err
	}

	suffix := ""
	if options.Zipped {
		suffix = ".zip"
	}
	assetsPath := filepath.Join(bucket.Directory(), draftAssetsSnapshot+suffix)
	dataPath := filepath.Join(bucket.Directory(), draftDataSnapshot+suffix)
	effectiveKey := fmt.Sprintf("%s zipped=%t", key, options.Zipped)

	hit := bucket.JSON(draftKeyField) == effectiveKey
	if d.draftObserver != nil {
		d.draftObserver(name, hit)
	}

	if hit {
		if err := loadSnapshot(d.assets, assetsPath); err != nil {
			return apperrors.CacheError(name, err)
		}
		if err := loadSnapshot(d.data, dataPath); err != nil {
			return apperrors.CacheError(name, err)
		}
		if options.Apply {
			return d.Apply()
		}
		return nil
	}

	if err := populate(d); err != nil {
		return err
	}

	if !d.assets.Empty() {
		if err := d.assets.Save(assetsPath, true); err != nil {
			return apperrors.CacheError(name, err)
		}
	}
	if !d.data.Empty() {
		if err := d.data.Save(dataPath, true); err != nil {
			return apperrors.CacheError(name, err)
		}
	}
	if err := bucket.SetJSON(draftKeyField, effectiveKey); err != nil {
		return apperrors.CacheError(name, err)
	}
	if options.Apply {
		return d.Apply()
	}
	return nil
}

// loadSnapshot merges a stored snapshot into the container. A missing
// snapshot means the corresponding container was empty when cached.
func loadSnapshot(p *pack.Pack, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return p.Load(path)
}
