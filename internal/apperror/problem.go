package apperror

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// ProblemDetail is the RFC7807-style error body served to clients. It is
// produced once at the failure site and serialized verbatim.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	ErrCode  string `json:"errorCode"`
	HowToFix string `json:"howToFix"`
	MoreInfo string `json:"moreInfo"`
}

func (e *Error) Problem() *ProblemDetail {
	return &ProblemDetail{
		Type:     typeBaseURL + string(e.code),
		Title:    title(e.code),
		Status:   status(e.code),
		Detail:   e.Detail(),
		ErrCode:  string(e.code),
		HowToFix: howToFix(e.code),
		MoreInfo: moreInfoBaseURL + strings.ToLower(string(e.code)),
	}
}

func (problem *ProblemDetail) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, problem.Status)

	return nil
}
