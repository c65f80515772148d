package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fgribreau/img-optimizer/internal/apperror"
	"github.com/fgribreau/img-optimizer/internal/cachekey"
	"github.com/fgribreau/img-optimizer/internal/optimizer"
	"github.com/fgribreau/img-optimizer/internal/params"
)

func (server *Server) handleOptimize(c echo.Context) error {
	server.requestsCounter.Add(c.Request().Context(), 1)

	// Validation happens before any fetch or transform work, so an
	// invalid request never costs us I/O
	request, err := params.Parse(c.QueryParams())
	if err != nil {
		return server.respondProblem(c, err)
	}

	// SVG passthrough by extension: never rasterized, never cached
	if request.IsSVG() {
		return c.Redirect(http.StatusFound, request.Source.String())
	}

	if !server.rules.Allows(request.Source) {
		return server.respondProblem(c, apperror.NewSourceNotAllowed(request.Source.Hostname()))
	}

	key := cachekey.Derive(request)

	blob, contentType, cacheHit, err := server.coordinator.Execute(c.Request().Context(), key,
		func(ctx context.Context) ([]byte, string, error) {
			return server.optimizer.Compute(ctx, request)
		})

	// SVG passthrough by content-type signal from the fetcher
	if errors.Is(err, optimizer.ErrSVGSource) {
		return c.Redirect(http.StatusFound, request.Source.String())
	}

	if err != nil {
		return server.respondProblem(c, err)
	}

	// Entries written by older versions may lack a content type, fall
	// back to sniffing the magic numbers
	if contentType == "" {
		contentType = http.DetectContentType(blob)
	}

	operation := "miss"
	if cacheHit {
		operation = "hit"
	}

	// Metrics
	//nolint:contextcheck // can't use request.Context() here because it might be canceled
	server.cacheOperationCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", operation),
	))

	return c.Blob(http.StatusOK, contentType, blob)
}

// respondProblem classifies any pipeline failure into its stable
// problem-detail shape and serves it. Unclassified errors become SYS_001
// with a generic message only.
func (server *Server) respondProblem(c echo.Context, err error) error {
	problem := apperror.Classify(err).Problem()

	server.logger.With(
		"error_code", problem.ErrCode,
		"status_code", problem.Status,
	).Warnf("%s", problem.Detail)

	return render.Render(c.Response(), c.Request(), problem)
}
