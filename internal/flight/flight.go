package flight

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	cachepkg "github.com/fgribreau/img-optimizer/internal/cache"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// ComputeFunc produces the transformed bytes and their content type for a
// cache key. It is invoked at most once per key at any instant, no matter
// how many callers are waiting on that key.
type ComputeFunc func(ctx context.Context) ([]byte, string, error)

type result struct {
	blob        []byte
	contentType string
	err         error
}

// call is the in-flight handle for a single key. Waiters block on done;
// res is only read after done is closed.
type call struct {
	done chan struct{}
	res  result
}

// Coordinator deduplicates concurrent identical work: per key, the first
// caller becomes the leader and runs the computation, later callers
// attach to the existing call and receive its eventual result or error.
//
// On success the cache entry is committed before any waiter is released,
// so a caller that observes success also observes a consistent entry on
// its next lookup. On failure nothing is written and the key is not
// poisoned: the next caller starts a fresh computation.
type Coordinator struct {
	cache          cachepkg.Cache
	calls          *xsync.MapOf[string, *call]
	computeTimeout time.Duration
	logger         *zap.SugaredLogger
}

func New(cache cachepkg.Cache, computeTimeout time.Duration, logger *zap.SugaredLogger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Coordinator{
		cache:          cache,
		calls:          xsync.NewMapOf[string, *call](),
		computeTimeout: computeTimeout,
		logger:         logger,
	}
}

// Execute returns the bytes for the given key, either from the cache or
// by running computeFn exactly once across all concurrent callers.
//
// A caller whose context is canceled abandons only its own wait: the
// underlying computation runs on a detached context, finishes, and still
// populates the cache for the remaining waiters and future requests.
func (coordinator *Coordinator) Execute(ctx context.Context, key string, computeFn ComputeFunc) ([]byte, string, bool, error) {
	if blob, contentType, err := coordinator.lookup(ctx, key); err == nil {
		return blob, contentType, true, nil
	} else if !errors.Is(err, cachepkg.ErrNotFound) {
		// Degraded cache is transparent to the caller, recompute instead
		coordinator.logger.Warnf("failed to retrieve cache entry for key %q: %v", key, err)
	}

	inFlight, attached := coordinator.calls.LoadOrCompute(key, func() *call {
		return &call{done: make(chan struct{})}
	})

	if !attached {
		go coordinator.run(ctx, key, inFlight, computeFn)
	}

	select {
	case <-inFlight.done:
		return inFlight.res.blob, inFlight.res.contentType, false, inFlight.res.err
	case <-ctx.Done():
		return nil, "", false, ctx.Err()
	}
}

func (coordinator *Coordinator) run(ctx context.Context, key string, inFlight *call, computeFn ComputeFunc) {
	// Detach from the leader's request context: a single disconnect must
	// not waste the work for the other waiters
	computeCtx := context.WithoutCancel(ctx)

	if coordinator.computeTimeout > 0 {
		var cancel context.CancelFunc

		computeCtx, cancel = context.WithTimeout(computeCtx, coordinator.computeTimeout)
		defer cancel()
	}

	blob, contentType, err := computeFn(computeCtx)

	if err == nil {
		// Commit the cache entry before releasing any waiter. A storage
		// failure degrades to compute-but-don't-cache and is never
		// surfaced to the client.
		if putErr := coordinator.cache.Put(computeCtx, key, contentType, bytes.NewReader(blob)); putErr != nil {
			coordinator.logger.Warnf("failed to store cache entry for key %q: %v", key, putErr)
		}
	}

	inFlight.res = result{
		blob:        blob,
		contentType: contentType,
		err:         err,
	}

	// Remove the handle before waking the waiters so that a failed
	// attempt never poisons the key: callers arriving from this point on
	// start a fresh computation
	coordinator.calls.Delete(key)

	close(inFlight.done)
}

func (coordinator *Coordinator) lookup(ctx context.Context, key string) ([]byte, string, error) {
	entryReader, metadata, err := coordinator.cache.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = entryReader.Close()
	}()

	blob, err := io.ReadAll(entryReader)
	if err != nil {
		return nil, "", err
	}

	return blob, metadata.ContentType, nil
}
