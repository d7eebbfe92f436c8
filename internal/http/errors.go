package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/settings"
)

// apiError maps domain errors to HTTP errors. Unknown errors become 500
// without leaking their text.
func (s *Server) apiError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, notes.ErrInvalidTag),
		errors.Is(err, notes.ErrInvalidFilter),
		errors.Is(err, settings.ErrInvalidTheme):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, notes.ErrSessionClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notes session is shutting down")
	default:
		s.logger.Error("request failed",
			zap.String("route", c.Path()),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
