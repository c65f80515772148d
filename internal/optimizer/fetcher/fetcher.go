package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fgribreau/img-optimizer/internal/apperror"
	"github.com/fgribreau/img-optimizer/internal/version"
)

// HTTP fetches source images over the network, enforcing a per-request
// deadline and a body size ceiling. Failures map to distinct classified
// errors: timeout, unreachable/non-2xx and oversized bodies.
type HTTP struct {
	client    *http.Client
	maxBytes  int64
	timeout   time.Duration
	userAgent string
}

func New(maxBytes int64, timeout time.Duration) *HTTP {
	return &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
			},
		},
		maxBytes:  maxBytes,
		timeout:   timeout,
		userAgent: fmt.Sprintf("img-optimizer/%s", version.Version),
	}
}

func (fetcher *HTTP) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if fetcher.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, fetcher.timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", apperror.NewFetchFailed(url)
	}

	request.Header.Set("User-Agent", fetcher.userAgent)

	response, err := fetcher.client.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", apperror.NewFetchTimeout(url)
		}

		return nil, "", apperror.NewFetchFailed(url)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, "", apperror.NewFetchFailed(url)
	}

	// Read one extra byte past the ceiling to tell "exactly at the
	// limit" apart from "over the limit"
	blob, err := io.ReadAll(io.LimitReader(response.Body, fetcher.maxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", apperror.NewFetchTimeout(url)
		}

		return nil, "", apperror.NewFetchFailed(url)
	}

	if int64(len(blob)) > fetcher.maxBytes {
		return nil, "", apperror.NewSourceTooLarge()
	}

	return blob, response.Header.Get("Content-Type"), nil
}
