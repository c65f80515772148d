package params

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fgribreau/img-optimizer/internal/apperror"
)

const (
	MaxWidth       = 3840
	DefaultQuality = 75
)

// Format is an output image format supported by the pipeline.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Request is a validated and normalized transform request.
type Request struct {
	// Source is the absolute http(s) URL of the original image.
	Source *url.URL

	// Width is the target width in pixels, or zero to keep the
	// original width.
	Width int

	// Quality is the encoding quality in [1, 100], defaulted to 75.
	Quality int

	// Format is the requested output format, or empty to preserve the
	// source's format.
	Format Format
}

// Parse validates raw query parameters and produces a normalized Request.
// It has no side effects and performs no I/O: every rejection happens
// before any fetch or transform work starts.
func Parse(values url.Values) (*Request, error) {
	rawSource := values.Get("src")
	if rawSource == "" {
		return nil, apperror.NewMissingParameter("src")
	}

	source, err := url.Parse(rawSource)
	if err != nil || !source.IsAbs() {
		return nil, apperror.NewInvalidSourceURL()
	}

	if source.Scheme != "http" && source.Scheme != "https" {
		return nil, apperror.NewInvalidSourceURL()
	}

	if source.Host == "" {
		return nil, apperror.NewInvalidSourceURL()
	}

	request := &Request{
		Source:  source,
		Quality: DefaultQuality,
	}

	if rawWidth := values.Get("w"); rawWidth != "" {
		width, err := strconv.Atoi(rawWidth)
		if err != nil || width < 1 || width > MaxWidth {
			return nil, apperror.NewInvalidWidth(rawWidth)
		}

		request.Width = width
	}

	if rawQuality := values.Get("q"); rawQuality != "" {
		quality, err := strconv.Atoi(rawQuality)
		if err != nil || quality < 1 || quality > 100 {
			return nil, apperror.NewInvalidQuality(rawQuality)
		}

		request.Quality = quality
	}

	if rawFormat := values.Get("f"); rawFormat != "" {
		format, err := ParseFormat(rawFormat)
		if err != nil {
			return nil, err
		}

		request.Format = format
	}

	return request, nil
}

// ParseFormat maps a user-supplied format name to a supported output
// format, case-insensitively. "jpg" is an alias for "jpeg".
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(raw) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", apperror.NewInvalidFormat(raw)
	}
}

// IsSVG reports whether the source URL points at an SVG resource. SVG
// sources are never rasterized: the pipeline redirects the caller to the
// original URL instead.
func (request *Request) IsSVG() bool {
	return strings.HasSuffix(strings.ToLower(request.Source.Path), ".svg")
}
