package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	typeBaseURL     = "https://github.com/fgribreau/img-optimizer/errors/"
	moreInfoBaseURL = "https://github.com/fgribreau/img-optimizer#error-"
)

type Code string

const (
	CodeInvalidSourceURL Code = "IMG_001"
	CodeFetchFailed      Code = "IMG_002"
	CodeDecodeFailed     Code = "IMG_003"
	CodeInvalidFormat    Code = "IMG_004"
	CodeSourceTooLarge   Code = "IMG_005"
	CodeSourceNotAllowed Code = "IMG_006"
	CodeFetchTimeout     Code = "IMG_007"
	CodeEncodeFailed     Code = "IMG_008"
	CodeInvalidWidth     Code = "VAL_001"
	CodeInvalidQuality   Code = "VAL_002"
	CodeMissingParameter Code = "VAL_003"
	CodeCacheStorage     Code = "CACHE_001"
	CodeInternal         Code = "SYS_001"
	CodeUnavailable      Code = "SYS_002"
)

// Error is a classified pipeline failure. Every reachable failure in the
// request pipeline is represented by exactly one Code; anything else is
// converted to CodeInternal by Classify().
type Error struct {
	code   Code
	detail string
}

func (e *Error) Error() string {
	return e.Detail()
}

func (e *Error) Code() Code {
	return e.code
}

func (e *Error) Status() int {
	return status(e.code)
}

// Detail renders the human-readable failure description in the
// "<CODE>: <title> - <detail>" form served to clients.
func (e *Error) Detail() string {
	return fmt.Sprintf("%s: %s - %s", e.code, title(e.code), e.detail)
}

func NewInvalidSourceURL() *Error {
	return &Error{code: CodeInvalidSourceURL, detail: "The provided URL is not valid"}
}

func NewFetchFailed(url string) *Error {
	return &Error{code: CodeFetchFailed, detail: fmt.Sprintf("Unable to download image from %s", url)}
}

func NewDecodeFailed(reason string) *Error {
	return &Error{code: CodeDecodeFailed, detail: fmt.Sprintf("Error processing image: %s", reason)}
}

func NewInvalidFormat(format string) *Error {
	return &Error{code: CodeInvalidFormat, detail: fmt.Sprintf("Format '%s' is not supported", format)}
}

func NewSourceTooLarge() *Error {
	return &Error{code: CodeSourceTooLarge, detail: "Source image exceeds the maximum allowed size"}
}

func NewSourceNotAllowed(host string) *Error {
	return &Error{code: CodeSourceNotAllowed, detail: fmt.Sprintf("Source host '%s' is not allowed", host)}
}

func NewFetchTimeout(url string) *Error {
	return &Error{code: CodeFetchTimeout, detail: fmt.Sprintf("Timed out downloading image from %s", url)}
}

func NewEncodeFailed(reason string) *Error {
	return &Error{code: CodeEncodeFailed, detail: fmt.Sprintf("Error encoding image: %s", reason)}
}

func NewInvalidWidth(width string) *Error {
	return &Error{code: CodeInvalidWidth, detail: fmt.Sprintf("Width must be between 1 and 3840, got %s", width)}
}

func NewInvalidQuality(quality string) *Error {
	return &Error{code: CodeInvalidQuality, detail: fmt.Sprintf("Quality must be between 1 and 100, got %s", quality)}
}

func NewMissingParameter(param string) *Error {
	return &Error{code: CodeMissingParameter, detail: fmt.Sprintf("%s is required", param)}
}

func NewCacheStorage(reason string) *Error {
	return &Error{code: CodeCacheStorage, detail: fmt.Sprintf("Failed to access cache: %s", reason)}
}

func NewInternal() *Error {
	return &Error{code: CodeInternal, detail: "An unexpected error occurred"}
}

func NewUnavailable() *Error {
	return &Error{code: CodeUnavailable, detail: "The service is temporarily unavailable"}
}

// Classify maps an arbitrary error to its classified form. Unrecognized
// errors become SYS_001 and never leak their message to the client.
func Classify(err error) *Error {
	var appErr *Error

	if errors.As(err, &appErr) {
		return appErr
	}

	return NewInternal()
}

func title(code Code) string {
	switch code {
	case CodeInvalidSourceURL:
		return "Invalid image URL"
	case CodeFetchFailed:
		return "Image fetch failed"
	case CodeDecodeFailed:
		return "Image processing failed"
	case CodeInvalidFormat:
		return "Invalid image format"
	case CodeSourceTooLarge:
		return "Image too large"
	case CodeSourceNotAllowed:
		return "Source not allowed"
	case CodeFetchTimeout:
		return "Image fetch timed out"
	case CodeEncodeFailed:
		return "Image encoding failed"
	case CodeInvalidWidth:
		return "Invalid width"
	case CodeInvalidQuality:
		return "Invalid quality"
	case CodeMissingParameter:
		return "Missing required parameter"
	case CodeCacheStorage:
		return "Cache error"
	case CodeInternal:
		return "Internal server error"
	case CodeUnavailable:
		return "Service unavailable"
	default:
		return "Internal server error"
	}
}

func status(code Code) int {
	switch code {
	case CodeInvalidSourceURL, CodeInvalidFormat, CodeInvalidWidth,
		CodeInvalidQuality, CodeMissingParameter:
		return http.StatusBadRequest
	case CodeSourceNotAllowed:
		return http.StatusForbidden
	case CodeSourceTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeDecodeFailed:
		return http.StatusUnprocessableEntity
	case CodeFetchFailed:
		return http.StatusBadGateway
	case CodeFetchTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func howToFix(code Code) string {
	switch code {
	case CodeInvalidSourceURL:
		return "Provide a valid URL starting with http:// or https://"
	case CodeFetchFailed:
		return "Ensure the image URL is accessible and the server is responding"
	case CodeDecodeFailed:
		return "Try a different image or check if the image file is corrupted"
	case CodeInvalidFormat:
		return "Use one of the supported formats: jpeg, jpg, png, webp"
	case CodeSourceTooLarge:
		return "Reduce the image dimensions or use a smaller source image"
	case CodeSourceNotAllowed:
		return "Request images from a host permitted by the service configuration"
	case CodeFetchTimeout:
		return "Ensure the image server responds in time, then retry the request"
	case CodeEncodeFailed:
		return "Try a different output format or contact support if the issue persists"
	case CodeInvalidWidth:
		return "Provide a width value between 1 and 3840"
	case CodeInvalidQuality:
		return "Provide a quality value between 1 and 100"
	case CodeMissingParameter:
		return "Include the missing parameter in your request"
	case CodeCacheStorage:
		return "Try again later or contact support if the issue persists"
	case CodeUnavailable:
		return "The service is temporarily down. Please try again in a few minutes"
	default:
		return "Try again later. If the problem persists, contact support"
	}
}
