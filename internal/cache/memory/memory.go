package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/fgribreau/img-optimizer/internal/cache"
)

// Memory is an in-process cache backend. Entries are kept whole in a
// mutex-guarded map and replaced atomically, so readers never observe a
// partial write. Mostly useful for tests and single-node deployments
// without persistent storage.
type Memory struct {
	mtx     sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
}

type entry struct {
	blob     []byte
	metadata cache.Metadata
}

func New(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

func (memory *Memory) Get(_ context.Context, key string) (io.ReadCloser, cache.Metadata, error) {
	memory.mtx.RLock()
	found, ok := memory.entries[key]
	memory.mtx.RUnlock()

	if !ok {
		return nil, cache.Metadata{}, cache.ErrNotFound
	}

	// An entry past its TTL is a miss, remove it lazily
	if found.metadata.Expired(time.Now()) {
		memory.mtx.Lock()
		delete(memory.entries, key)
		memory.mtx.Unlock()

		return nil, cache.Metadata{}, cache.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(found.blob)), found.metadata, nil
}

func (memory *Memory) Put(_ context.Context, key string, contentType string, blobReader io.Reader) error {
	blob, err := io.ReadAll(blobReader)
	if err != nil {
		return err
	}

	memory.mtx.Lock()
	memory.entries[key] = &entry{
		blob: blob,
		metadata: cache.Metadata{
			ContentType: contentType,
			CreatedAt:   time.Now(),
			TTL:         memory.ttl,
		},
	}
	memory.mtx.Unlock()

	return nil
}

func (memory *Memory) EvictExpired(_ context.Context) error {
	now := time.Now()

	memory.mtx.Lock()
	defer memory.mtx.Unlock()

	for key, found := range memory.entries {
		if found.metadata.Expired(now) {
			delete(memory.entries, key)
		}
	}

	return nil
}
