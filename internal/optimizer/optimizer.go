package optimizer

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/fgribreau/img-optimizer/internal/params"
)

// ErrSVGSource signals that the fetched resource turned out to be an SVG
// document. SVG is never rasterized or cached: the HTTP layer responds
// with a redirect to the original URL instead.
var ErrSVGSource = errors.New("source is an SVG document")

// Fetcher downloads the source image bytes, enforcing a size ceiling and
// a deadline. It returns the body and the response's content type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Source describes a decoded source image.
type Source struct {
	// Format is the detected source format name ("jpeg", "png", ...).
	Format string

	// HasAlpha reports whether the image carries transparency.
	HasAlpha bool
}

// Codec decodes, resizes and encodes images. Implementations are
// substitutable: tests drive the pipeline with doubles that never touch
// real codecs.
type Codec interface {
	Decode(blob []byte) (image.Image, Source, error)
	Resize(img image.Image, width int) image.Image
	Encode(img image.Image, format params.Format, quality int) ([]byte, error)
}

// Optimizer decides the decode/resize/encode parameters for a transform
// request and drives the Fetcher and Codec capabilities. It never writes
// to the cache, that is owned by the flight coordinator.
type Optimizer struct {
	fetcher Fetcher
	codec   Codec
}

func New(fetcher Fetcher, codec Codec) *Optimizer {
	return &Optimizer{
		fetcher: fetcher,
		codec:   codec,
	}
}

// Compute fetches the source, transforms it per the request and returns
// the encoded bytes along with their content type.
func (optimizer *Optimizer) Compute(ctx context.Context, request *params.Request) ([]byte, string, error) {
	blob, sourceContentType, err := optimizer.fetcher.Fetch(ctx, request.Source.String())
	if err != nil {
		return nil, "", err
	}

	// The content-type signal catches SVG sources that the extension
	// check in the HTTP layer could not
	if strings.Contains(sourceContentType, "image/svg") {
		return nil, "", ErrSVGSource
	}

	img, source, err := optimizer.codec.Decode(blob)
	if err != nil {
		return nil, "", err
	}

	// Downscale-only policy: never upscale beyond the source's natural
	// dimensions, height is derived to preserve the aspect ratio
	if request.Width > 0 && request.Width < img.Bounds().Dx() {
		img = optimizer.codec.Resize(img, request.Width)
	}

	format := resolveFormat(request, source)

	encoded, err := optimizer.codec.Encode(img, format, request.Quality)
	if err != nil {
		return nil, "", err
	}

	return encoded, ContentType(format), nil
}

// resolveFormat picks the output format: an explicit "f" parameter wins,
// otherwise the source's format is preserved when it is in the supported
// output set, with PNG for transparent sources and JPEG for everything
// else as the fallback.
func resolveFormat(request *params.Request, source Source) params.Format {
	if request.Format != "" {
		return request.Format
	}

	switch source.Format {
	case "jpeg":
		return params.FormatJPEG
	case "png":
		return params.FormatPNG
	case "webp":
		return params.FormatWebP
	}

	if source.HasAlpha {
		return params.FormatPNG
	}

	return params.FormatJPEG
}

// ContentType maps an output format to its MIME type.
func ContentType(format params.Format) string {
	switch format {
	case params.FormatPNG:
		return "image/png"
	case params.FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
