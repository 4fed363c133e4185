package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/templates"
	"go.uber.org/zap"
)

var errorViews = map[int]string{
	http.StatusForbidden:       "403",
	http.StatusNotFound:        "404",
	http.StatusTooManyRequests: "429",
}

var errorTitles = map[int]string{
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Page not found",
	http.StatusTooManyRequests:     "Too many requests",
	http.StatusInternalServerError: "Server error",
}

// handleError renders the error page for the status, falling back to plain
// text when there is no page or rendering fails.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	view, ok := errorViews[code]
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
		view, ok = "500", true
		code = http.StatusInternalServerError
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			s.logger.Debug("failed to write error response", zap.Error(err))
		}
		return
	}

	if ok && s.templates != nil {
		page := templates.Page{
			Title:   errorTitles[code],
			AppName: s.cfg.App.Name,
		}
		renderErr := c.Render(code, view, page)
		if renderErr == nil {
			return
		}
		s.logger.Error("failed to render error page", zap.Int("status", code), zap.Error(renderErr))
		if c.Response().Committed {
			return
		}
	}

	if err := c.String(code, http.StatusText(code)); err != nil {
		s.logger.Debug("failed to write error response", zap.Error(err))
	}
}
