package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/assessment"
)

// Home shows the landing page and, for signed-in users, their latest
// footprint.
func (h *Handler) Home(c echo.Context) error {
	p := h.page(c, "")

	if p.Authenticated {
		result, err := h.assessment.Latest(c.Request().Context(), h.sessions.UserID(c))
		switch {
		case err == nil:
			breakdown := result.Breakdown()
			p.Data = &breakdown
		case !errors.Is(err, assessment.ErrNoResult):
			return err
		}
	}

	return h.render(c, http.StatusOK, "home", p)
}

func (h *Handler) Sitemap(c echo.Context) error {
	data, err := h.sitemap.Sitemap()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

func (h *Handler) Robots(c echo.Context) error {
	return c.String(http.StatusOK, h.sitemap.Robots())
}

func (h *Handler) RateLimitError(c echo.Context) error {
	return h.render(c, http.StatusTooManyRequests, "ratelimit", h.page(c, "Too many requests"))
}
