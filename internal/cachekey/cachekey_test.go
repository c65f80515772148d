package cachekey_test

import (
	"net/url"
	"testing"

	"github.com/fgribreau/img-optimizer/internal/cachekey"
	"github.com/fgribreau/img-optimizer/internal/params"
	"github.com/stretchr/testify/require"
)

func TestDeterminism(t *testing.T) {
	first := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg&w=800&q=90&f=webp"))
	second := cachekey.Derive(parse(t, "f=webp&q=90&w=800&src=https://example.com/photo.jpg"))

	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestDefaultedQuality(t *testing.T) {
	// "q" omitted is the same request as the explicit default
	implicit := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg"))
	explicit := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg&q=75"))

	require.Equal(t, implicit, explicit)
}

func TestHostNormalization(t *testing.T) {
	lower := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg"))
	upper := cachekey.Derive(parse(t, "src=HTTPS://EXAMPLE.COM/photo.jpg"))

	require.Equal(t, lower, upper)
}

func TestDistinctRequests(t *testing.T) {
	base := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg"))

	distinct := []string{
		"src=https://example.com/photo.jpg&w=800",
		"src=https://example.com/photo.jpg&q=90",
		"src=https://example.com/photo.jpg&f=webp",
		"src=https://example.com/other.jpg",
	}

	for _, rawQuery := range distinct {
		require.NotEqual(t, base, cachekey.Derive(parse(t, rawQuery)))
	}

	// Path casing is significant, only scheme and host are normalized
	require.NotEqual(t, base, cachekey.Derive(parse(t, "src=https://example.com/PHOTO.jpg")))
}

func TestWidthSentinel(t *testing.T) {
	original := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg"))
	resized := cachekey.Derive(parse(t, "src=https://example.com/photo.jpg&w=1"))

	require.NotEqual(t, original, resized)
}

func parse(t *testing.T, rawQuery string) *params.Request {
	t.Helper()

	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)

	request, err := params.Parse(values)
	require.NoError(t, err)

	return request
}
