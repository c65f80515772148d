package server

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/fgribreau/img-optimizer/internal/apperror"
)

var imageIDRegex = regexp.MustCompile(`^[a-f0-9]{32}\.\w+$`)

func (server *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "img-optimizer",
	})
}

func (server *Server) handleErrors(c echo.Context) error {
	catalog := apperror.Catalog()

	return c.JSON(http.StatusOK, map[string]any{
		"errors": catalog,
		"total":  len(catalog),
	})
}

// handleDirectImage serves images by their internal identifier. The
// backing store is not wired up yet, so a well-formed identifier reports
// a fetch failure rather than a validation one.
func (server *Server) handleDirectImage(c echo.Context) error {
	imageID := c.Param("id")

	if !imageIDRegex.MatchString(imageID) {
		return server.respondProblem(c, apperror.NewInvalidSourceURL())
	}

	return server.respondProblem(c, apperror.NewFetchFailed(imageID))
}
