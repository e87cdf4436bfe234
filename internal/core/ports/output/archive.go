package ports

import (
	"context"
)

// ManifestArchive stores the manifests of purged deletion sets.
type ManifestArchive interface {
	// Put writes (or overwrites) the object stored under key.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
