package noop

import (
	"context"
	"io"

	cachepkg "github.com/fgribreau/img-optimizer/internal/cache"
)

// NoOp is an always-miss cache backend used when caching is disabled.
type NoOp struct{}

func New() *NoOp {
	return &NoOp{}
}

func (noop *NoOp) Get(_ context.Context, _ string) (io.ReadCloser, cachepkg.Metadata, error) {
	return nil, cachepkg.Metadata{}, cachepkg.ErrNotFound
}

func (noop *NoOp) Put(_ context.Context, _ string, _ string, blobReader io.Reader) error {
	_, err := io.Copy(io.Discard, blobReader)

	return err
}

func (noop *NoOp) EvictExpired(_ context.Context) error {
	return nil
}
