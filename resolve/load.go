package resolve

import (
	"context"
	"io"

	"github.com/stupid-simple/assets/asset"
)

// Load resolves key and reads the asset behind it. Override files become
// refreshing assets, bundled resources are read once.
func (r *Resolver) Load(ctx context.Context, key string) (asset.Asset, error) {
	loc, err := r.Resolve(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := r.logger.With().Str("key", key).Str("source", loc.Path).Logger()
	if loc.Override {
		logger.Debug().Msg("loading override file")
		return asset.NewRefreshing(loc.Path, logger)
	}

	logger.Debug().Msg("loading bundled resource")
	return r.loadResource(loc.Path)
}

func (r *Resolver) loadResource(name string) (asset.Asset, error) {
	f, err := r.resources.Open(name)
	if err != nil {
		return nil, &asset.LoadError{Path: name, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &asset.LoadError{Path: name, Err: err}
	}
	if err := asset.CheckSize(info.Size()); err != nil {
		return nil, &asset.LoadError{Path: name, Err: err}
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, &asset.LoadError{Path: name, Err: err}
	}
	return asset.NewStatic(name, content, info.ModTime()), nil
}
