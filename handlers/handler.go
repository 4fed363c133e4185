package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/middleware/csrf"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/assessment"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/metrics"
	"github.com/tech-arch1tect/ecostep/services/sitemap"
	"github.com/tech-arch1tect/ecostep/services/templates"
	"github.com/tech-arch1tect/ecostep/session"
)

// Messages shown to users. Several are matched verbatim by tests.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgVerified           = "Account verified. You may now log in."
	MsgTokenExpired       = "Token expired. Request a new one."
	MsgTokenInvalid       = "Invalid token. Try again."
	MsgMailFailed         = "We could not send the email. Please try again in a moment."
	MsgEmailNotFound      = "Email not found."
	MsgResetSent          = "Check your email for the reset link."
	MsgMissingToken       = "Missing token."
	MsgResetExpired       = "Token expired. Request a new password reset."
	MsgResetUnknownUser   = "Invalid token user."
	MsgResetInvalid       = "Invalid token. Please try again."
	MsgBlankPassword      = "Please enter a new password."
	MsgResetDone          = "Password reset successful. You may now log in."
	MsgEmailTaken         = "An account with this email already exists."
	MsgPendingAccount     = "This email is registered but not verified yet. Check your inbox or resend the confirmation email."
)

// SessionStore is the session capability handlers depend on.
type SessionStore interface {
	Login(c echo.Context, userID uint) error
	Logout(c echo.Context) error
	IsAuthenticated(c echo.Context) bool
	UserID(c echo.Context) uint
	SetFlash(c echo.Context, flashType session.FlashType, message string)
	Flash(c echo.Context) *session.FlashMessage
	Get(c echo.Context, key string) string
	Put(c echo.Context, key, value string)
	Remove(c echo.Context, key string)
	RevokeAll(ctx context.Context, userID uint) error
}

type Handler struct {
	cfg        *config.Config
	accounts   *accounts.Service
	auth       *auth.Service
	assessment *assessment.Service
	sitemap    *sitemap.Service
	sessions   SessionStore
	metrics    *metrics.Service
	logger     *logging.Service
}

func New(
	cfg *config.Config,
	accountSvc *accounts.Service,
	authSvc *auth.Service,
	assessmentSvc *assessment.Service,
	sitemapSvc *sitemap.Service,
	sessions SessionStore,
	m *metrics.Service,
	logger *logging.Service,
) *Handler {
	return &Handler{
		cfg:        cfg,
		accounts:   accountSvc,
		auth:       authSvc,
		assessment: assessmentSvc,
		sitemap:    sitemapSvc,
		sessions:   sessions,
		metrics:    m,
		logger:     logger.Named("handlers"),
	}
}

// page builds the common view data. It consumes the pending flash, so call
// it only when a page is actually rendered.
func (h *Handler) page(c echo.Context, title string) templates.Page {
	p := templates.Page{
		Title:         title,
		AppName:       h.cfg.App.Name,
		CSRF:          csrf.GetToken(c),
		Authenticated: h.sessions.IsAuthenticated(c),
	}
	if flash := h.sessions.Flash(c); flash != nil {
		p.Flash = &templates.Flash{Message: flash.Message, Type: string(flash.Type)}
	}
	return p
}

func (h *Handler) render(c echo.Context, code int, view string, p templates.Page) error {
	return c.Render(code, view, p)
}

func (h *Handler) redirect(c echo.Context, url string) error {
	return c.Redirect(http.StatusFound, url)
}

func (h *Handler) redirectWithFlash(c echo.Context, url string, flashType session.FlashType, message string) error {
	h.sessions.SetFlash(c, flashType, message)
	return h.redirect(c, url)
}
