package adapter

import (
	"context"
	"fmt"
	"sync"
)

// NameCache lazily resolves and caches a node's system name. Only a
// successful, non-empty resolution is cached, so a transient failure is
// retried on the next call.
type NameCache struct {
	mu      sync.Mutex
	name    string
	resolve func(ctx context.Context) (string, error)
}

// NewNameCache returns a cache that fills itself with resolve.
func NewNameCache(resolve func(ctx context.Context) (string, error)) *NameCache {
	return &NameCache{resolve: resolve}
}

// Get returns the cached name, resolving it first if needed.
func (c *NameCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.name != "" {
		return c.name, nil
	}
	name, err := c.resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve system name: %w", err)
	}
	if name == "" {
		return "", fmt.Errorf("resolve system name: %w", ErrNoSystemName)
	}
	c.name = name
	return name, nil
}
