package assets

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LoadShaders reads every named SPIR-V file from dir concurrently.
// The first failure cancels the rest.
func LoadShaders(ctx context.Context, dir string, names ...string) (map[string][]uint32, error) {
	loader := &ShaderLoader{}
	out := make(map[string][]uint32, len(names))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := loader.Load(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = res.Data.([]uint32)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
