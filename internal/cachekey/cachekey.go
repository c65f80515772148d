package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fgribreau/img-optimizer/internal/params"
)

// widthOriginal is the sentinel used in the canonical form when no target
// width was requested.
const widthOriginal = "original"

// Derive produces a deterministic cache key for a normalized transform
// request: a SHA-256 digest over the canonical concatenation of the
// normalized source URL, width (or the "original" sentinel), quality and
// format. Two semantically identical requests (e.g. "q" omitted vs.
// "q=75") always yield bit-identical keys.
func Derive(request *params.Request) string {
	canonical := fmt.Sprintf("%s|%s|%d|%s",
		normalizeSource(request.Source),
		widthComponent(request.Width),
		request.Quality,
		request.Format,
	)

	digest := sha256.Sum256([]byte(canonical))

	return hex.EncodeToString(digest[:])
}

func normalizeSource(source *url.URL) string {
	normalized := *source
	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	return normalized.String()
}

func widthComponent(width int) string {
	if width == 0 {
		return widthOriginal
	}

	return strconv.Itoa(width)
}
