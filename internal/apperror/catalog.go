package apperror

import (
	"fmt"

	"github.com/samber/lo"
)

var codes = []Code{
	CodeInvalidSourceURL,
	CodeFetchFailed,
	CodeDecodeFailed,
	CodeInvalidFormat,
	CodeSourceTooLarge,
	CodeSourceNotAllowed,
	CodeFetchTimeout,
	CodeEncodeFailed,
	CodeInvalidWidth,
	CodeInvalidQuality,
	CodeMissingParameter,
	CodeCacheStorage,
	CodeInternal,
	CodeUnavailable,
}

// Catalog enumerates every classified error code as
// "<CODE>: <title> - <description>" strings, for the /errors endpoint.
func Catalog() []string {
	return lo.Map(codes, func(code Code, _ int) string {
		return fmt.Sprintf("%s: %s - %s", code, title(code), description(code))
	})
}

func description(code Code) string {
	switch code {
	case CodeInvalidSourceURL:
		return "The provided URL is not valid"
	case CodeFetchFailed:
		return "Unable to download image from the source URL"
	case CodeDecodeFailed:
		return "Error processing the source image"
	case CodeInvalidFormat:
		return "The requested output format is not supported"
	case CodeSourceTooLarge:
		return "Source image exceeds the maximum allowed size"
	case CodeSourceNotAllowed:
		return "The source host is not permitted by the service configuration"
	case CodeFetchTimeout:
		return "The source image could not be downloaded in time"
	case CodeEncodeFailed:
		return "Error encoding the image to the requested format"
	case CodeInvalidWidth:
		return "Width must be between 1 and 3840"
	case CodeInvalidQuality:
		return "Quality must be between 1 and 100"
	case CodeMissingParameter:
		return "A required parameter is missing from the request"
	case CodeCacheStorage:
		return "Failed to access the cache"
	case CodeInternal:
		return "An unexpected error occurred"
	case CodeUnavailable:
		return "The service is temporarily unavailable"
	default:
		return "An unexpected error occurred"
	}
}
