package fetcher_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fgribreau/img-optimizer/internal/apperror"
	"github.com/fgribreau/img-optimizer/internal/optimizer/fetcher"
	"github.com/stretchr/testify/require"
)

func TestFetchSucceeds(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")

		_, err := w.Write(bytes.Repeat([]byte{0x42}, 1024))
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	blob, contentType, err := fetcher.New(1024*1024, 5*time.Second).
		Fetch(context.Background(), source.URL+"/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", contentType)
	require.Len(t, blob, 1024)
}

func TestFetchNon2xxFails(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(source.Close)

	_, _, err := fetcher.New(1024*1024, 5*time.Second).
		Fetch(context.Background(), source.URL+"/missing.jpg")
	require.Equal(t, apperror.CodeFetchFailed, apperror.Classify(err).Code())
}

func TestFetchUnreachableHostFails(t *testing.T) {
	// A server that is already closed refuses the connection
	source := httptest.NewServer(http.NotFoundHandler())
	source.Close()

	_, _, err := fetcher.New(1024*1024, 5*time.Second).
		Fetch(context.Background(), source.URL+"/photo.jpg")
	require.Equal(t, apperror.CodeFetchFailed, apperror.Classify(err).Code())
}

func TestFetchOversizedBodyFails(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write(bytes.Repeat([]byte{0x42}, 4096))
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	_, _, err := fetcher.New(1024, 5*time.Second).
		Fetch(context.Background(), source.URL+"/huge.jpg")
	require.Equal(t, apperror.CodeSourceTooLarge, apperror.Classify(err).Code())
}

func TestFetchBodyExactlyAtLimitSucceeds(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write(bytes.Repeat([]byte{0x42}, 1024))
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	blob, _, err := fetcher.New(1024, 5*time.Second).
		Fetch(context.Background(), source.URL+"/fits.jpg")
	require.NoError(t, err)
	require.Len(t, blob, 1024)
}

func TestFetchTimesOut(t *testing.T) {
	release := make(chan struct{})

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		source.Close()
	})

	_, _, err := fetcher.New(1024*1024, 50*time.Millisecond).
		Fetch(context.Background(), source.URL+"/slow.jpg")
	require.Equal(t, apperror.CodeFetchTimeout, apperror.Classify(err).Code())
}
