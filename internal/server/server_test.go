package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fgribreau/img-optimizer/internal/cache/memory"
	"github.com/fgribreau/img-optimizer/internal/server"
	"github.com/fgribreau/img-optimizer/internal/server/rule"
	"github.com/stretchr/testify/require"

	_ "image/png"
)

type problemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	ErrCode  string `json:"errorCode"`
	HowToFix string `json:"howToFix"`
}

func startServer(t *testing.T, opts ...server.Option) string {
	t.Helper()

	srv, err := server.New("localhost:0", opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = srv.Run(ctx)
	}()

	return fmt.Sprintf("http://%s", srv.Addr())
}

func sourceJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer

	require.NoError(t, jpeg.Encode(&buf, img, nil))

	return buf.Bytes()
}

func optimizeURL(baseURL string, src string, extra url.Values) string {
	values := url.Values{}
	values.Set("src", src)

	for key, vals := range extra {
		for _, val := range vals {
			values.Add(key, val)
		}
	}

	return baseURL + "/img-optimizer/v1/img?" + values.Encode()
}

func decodeProblem(t *testing.T, response *http.Response) problemDetail {
	t.Helper()

	var problem problemDetail

	require.NoError(t, json.NewDecoder(response.Body).Decode(&problem))
	require.NoError(t, response.Body.Close())

	return problem
}

func TestHealth(t *testing.T) {
	baseURL := startServer(t)

	response, err := http.Get(baseURL + "/health")
	require.NoError(t, err)

	var body map[string]string

	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	require.NoError(t, response.Body.Close())

	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "img-optimizer", body["service"])
}

func TestErrorCatalog(t *testing.T) {
	baseURL := startServer(t)

	response, err := http.Get(baseURL + "/errors")
	require.NoError(t, err)

	var body struct {
		Errors []string `json:"errors"`
		Total  int      `json:"total"`
	}

	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	require.NoError(t, response.Body.Close())

	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, 14, body.Total)
	require.Len(t, body.Errors, body.Total)
}

func TestOptimizeServesSecondRequestFromCache(t *testing.T) {
	var upstreamHits atomic.Int64

	blob := sourceJPEG(t)

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")

		_, err := w.Write(blob)
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	baseURL := startServer(t, server.WithCache(memory.New(time.Hour)))
	requestURL := optimizeURL(baseURL, source.URL+"/photo.jpg", url.Values{"w": {"50"}})

	for i := 0; i < 2; i++ {
		response, err := http.Get(requestURL)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, response.StatusCode)
		require.Equal(t, "image/jpeg", response.Header.Get("Content-Type"))

		img, format, err := image.Decode(response.Body)
		require.NoError(t, err)
		require.NoError(t, response.Body.Close())

		require.Equal(t, "jpeg", format)
		require.Equal(t, 50, img.Bounds().Dx())
	}

	require.EqualValues(t, 1, upstreamHits.Load())
}

func TestOptimizeExplicitPNGOutput(t *testing.T) {
	blob := sourceJPEG(t)

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")

		_, err := w.Write(blob)
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	baseURL := startServer(t)

	response, err := http.Get(optimizeURL(baseURL, source.URL+"/photo.jpg", url.Values{"f": {"png"}}))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "image/png", response.Header.Get("Content-Type"))

	_, format, err := image.Decode(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	require.Equal(t, "png", format)
}

func TestOptimizeMissingSource(t *testing.T) {
	baseURL := startServer(t)

	response, err := http.Get(baseURL + "/img-optimizer/v1/img")
	require.NoError(t, err)

	problem := decodeProblem(t, response)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	require.Equal(t, "VAL_003", problem.ErrCode)
	require.Equal(t, http.StatusBadRequest, problem.Status)
	require.NotEmpty(t, problem.HowToFix)
}

func TestOptimizeInvalidWidth(t *testing.T) {
	baseURL := startServer(t)

	response, err := http.Get(optimizeURL(baseURL, "https://example.com/a.jpg",
		url.Values{"w": {"9000"}}))
	require.NoError(t, err)

	problem := decodeProblem(t, response)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	require.Equal(t, "VAL_001", problem.ErrCode)
}

func TestOptimizeUnreachableSource(t *testing.T) {
	source := httptest.NewServer(http.NotFoundHandler())
	source.Close()

	baseURL := startServer(t)

	response, err := http.Get(optimizeURL(baseURL, source.URL+"/photo.jpg", nil))
	require.NoError(t, err)

	problem := decodeProblem(t, response)

	require.Equal(t, http.StatusBadGateway, response.StatusCode)
	require.Equal(t, "IMG_002", problem.ErrCode)
}

func TestOptimizeSVGExtensionRedirects(t *testing.T) {
	baseURL := startServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	sourceURL := "https://example.com/logo.svg"

	response, err := client.Get(optimizeURL(baseURL, sourceURL, nil))
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())

	require.Equal(t, http.StatusFound, response.StatusCode)
	require.Equal(t, sourceURL, response.Header.Get("Location"))
}

func TestOptimizeSVGContentTypeRedirects(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")

		_, err := w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
		require.NoError(t, err)
	}))
	t.Cleanup(source.Close)

	baseURL := startServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	sourceURL := source.URL + "/logo"

	response, err := client.Get(optimizeURL(baseURL, sourceURL, nil))
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())

	require.Equal(t, http.StatusFound, response.StatusCode)
	require.Equal(t, sourceURL, response.Header.Get("Location"))
}

func TestOptimizeDisallowedSource(t *testing.T) {
	allowed, err := rule.New(`host endsWith ".example.com"`)
	require.NoError(t, err)

	baseURL := startServer(t, server.WithRules(rule.Rules{allowed}))

	response, err := http.Get(optimizeURL(baseURL, "https://evil.test/a.jpg", nil))
	require.NoError(t, err)

	problem := decodeProblem(t, response)

	require.Equal(t, http.StatusForbidden, response.StatusCode)
	require.Equal(t, "IMG_006", problem.ErrCode)
}

func TestDirectImage(t *testing.T) {
	baseURL := startServer(t)

	// Malformed identifier
	response, err := http.Get(baseURL + "/img-optimizer/v1/img/not-a-valid-id")
	require.NoError(t, err)

	problem := decodeProblem(t, response)

	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	require.Equal(t, "IMG_001", problem.ErrCode)

	// Well-formed identifier with no backing object
	response, err = http.Get(baseURL +
		"/img-optimizer/v1/img/0123456789abcdef0123456789abcdef.jpg")
	require.NoError(t, err)

	problem = decodeProblem(t, response)

	require.Equal(t, http.StatusBadGateway, response.StatusCode)
	require.Equal(t, "IMG_002", problem.ErrCode)
}
