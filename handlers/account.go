package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/session"
	"go.uber.org/zap"
)

func verificationAlertURL(email string) string {
	return "/email/verification-alert/?email=" + url.QueryEscape(email)
}

func (h *Handler) SignupForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "signup", h.page(c, "Sign up"))
}

// Signup registers a pending account and sends the confirmation email.
func (h *Handler) Signup(c echo.Context) error {
	var form signupForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form").SetInternal(err)
	}
	form.Email = accounts.NormalizeEmail(form.Email)

	rejected := func(messages ...string) error {
		p := h.page(c, "Sign up")
		p.Form = map[string]string{"email": form.Email}
		p.Errors = messages
		return h.render(c, http.StatusUnprocessableEntity, "signup", p)
	}

	if err := validate.Struct(form); err != nil {
		return rejected(validationMessages(err)...)
	}

	account, err := h.accounts.Register(c.Request().Context(), form.Email, form.Password)
	h.metrics.RecordAuth("signup", err)
	if err != nil {
		var policy *accounts.PolicyError
		switch {
		case errors.As(err, &policy):
			return rejected("Password " + strings.Join(policy.Problems, "; ") + ".")
		case errors.Is(err, accounts.ErrAlreadyActive):
			return rejected(MsgEmailTaken)
		case errors.Is(err, accounts.ErrEmailTaken):
			return rejected(MsgPendingAccount)
		default:
			return err
		}
	}

	_, err = h.auth.RequestVerification(c.Request().Context(), account.Email)
	h.metrics.RecordAuth("verification_requested", err)
	if err != nil {
		if !errors.Is(err, mail.ErrTransport) {
			return err
		}
		h.logger.Warn("verification email not sent after signup", zap.Uint("account_id", account.ID), zap.Error(err))
		h.sessions.SetFlash(c, session.FlashWarning, MsgMailFailed)
	}

	return h.redirect(c, verificationAlertURL(account.Email))
}

func (h *Handler) LoginForm(c echo.Context) error {
	if h.sessions.IsAuthenticated(c) {
		return h.redirect(c, "/")
	}
	return h.render(c, http.StatusOK, "login", h.page(c, "Log in"))
}

func (h *Handler) Login(c echo.Context) error {
	if h.sessions.IsAuthenticated(c) {
		return h.redirect(c, "/")
	}

	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form").SetInternal(err)
	}

	account, err := h.accounts.Authenticate(c.Request().Context(), form.Email, form.Password)
	h.metrics.RecordAuth("login", err)
	switch {
	case errors.Is(err, accounts.ErrInactive):
		return h.redirect(c, verificationAlertURL(account.Email))
	case errors.Is(err, accounts.ErrInvalidCredentials):
		p := h.page(c, "Log in")
		p.Error = MsgInvalidCredentials
		p.Form = map[string]string{"email": strings.TrimSpace(form.Email)}
		return h.render(c, http.StatusOK, "login", p)
	case err != nil:
		return err
	}

	if err := h.sessions.Login(c, account.ID); err != nil {
		return err
	}
	return h.redirect(c, "/")
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return h.redirect(c, "/")
}
