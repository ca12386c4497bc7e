// Package cache stores JSON-encoded query results under string keys.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is implemented by every cache backend. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Flush(ctx context.Context) error
}

// Backend names accepted by New
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options configures the cache built by New
type Options struct {
	Backend string
	TTL     time.Duration
	Prefix  string
	Redis   RedisOptions
}

// New builds the cache selected by opts.Backend
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendNone, "":
		return Noop{}, nil
	case BackendMemory:
		return NewMemory(opts.TTL), nil
	case BackendRedis:
		return NewRedis(ctx, opts.Redis, opts.Prefix, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Flush(context.Context) error                     { return nil }
