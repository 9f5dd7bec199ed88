//go:generate mockgen -source=deps.go -destination=deps_mock_test.go -package=enrich

package enrich

import (
	"context"

	"github.com/mxpv/ytenrich/pkg/cache"
	"github.com/mxpv/ytenrich/pkg/model"
)

// Source fetches metadata from the remote API.
// Errors matching model.ErrNotFound mean the item does not exist (or is not retrievable),
// any other error is treated as a transient failure.
type Source interface {
	FetchVideo(ctx context.Context, id string) (*model.Video, error)
	FetchChannel(ctx context.Context, id string) (*model.Channel, error)
}

// Cache is the part of cache.Storage used by the engine.
type Cache interface {
	Get(ctx context.Context, kind cache.Kind, id string, out interface{}) error
	Put(ctx context.Context, kind cache.Kind, id string, obj interface{}) error
}
