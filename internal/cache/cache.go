package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

// Metadata describes a cache entry. CreatedAt and TTL are stamped by the
// backend on Put; an entry whose TTL has elapsed is reported as a miss.
type Metadata struct {
	ContentType string        `json:"contentType"`
	CreatedAt   time.Time     `json:"createdAt"`
	TTL         time.Duration `json:"ttl"`
}

// Expired reports whether the entry's lifetime has ended at the given
// instant. A zero TTL means the entry never expires.
func (metadata Metadata) Expired(now time.Time) bool {
	if metadata.TTL == 0 {
		return false
	}

	return now.After(metadata.CreatedAt.Add(metadata.TTL))
}

// Cache stores transformed image blobs keyed by their derived cache key.
//
// Implementations commit entries atomically: a concurrent Get never
// observes a partially written entry, and entries are replaced whole,
// never mutated in place. Expired entries are reported as ErrNotFound.
type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, Metadata, error)
	Put(ctx context.Context, key string, contentType string, blobReader io.Reader) error
	EvictExpired(ctx context.Context) error
}
