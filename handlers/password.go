package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/services/token"
	"github.com/tech-arch1tect/ecostep/session"
	"go.uber.org/zap"
)

type resetView struct {
	Token string
	Valid bool
}

func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "forgot_password", h.page(c, "Forgot password"))
}

// ForgotPassword emails a reset link that points back at the host the
// request came in on when that host is allowed, and at APP_URL otherwise.
func (h *Handler) ForgotPassword(c echo.Context) error {
	email := accounts.NormalizeEmail(c.FormValue("email"))

	p := h.page(c, "Forgot password")
	p.Form = map[string]string{"email": email}

	_, err := h.auth.RequestReset(c.Request().Context(), email, h.linkHost(c))
	h.metrics.RecordAuth("reset_requested", err)
	switch {
	case err == nil:
		p.Message = MsgResetSent
		p.Form = nil
	case errors.Is(err, auth.ErrNotFound):
		p.Error = MsgEmailNotFound
	case errors.Is(err, mail.ErrTransport):
		p.Error = MsgMailFailed
		return h.render(c, http.StatusServiceUnavailable, "forgot_password", p)
	default:
		return err
	}
	return h.render(c, http.StatusOK, "forgot_password", p)
}

// linkHost returns the scheme and host to build emailed links from. An empty
// HostContext makes the auth service fall back to APP_URL. X-Forwarded-Proto
// is only honoured from a trusted proxy.
func (h *Handler) linkHost(c echo.Context) auth.HostContext {
	r := c.Request()
	if !h.cfg.HostAllowed(r.Host) {
		h.logger.Warn("request host not allowed for links, using app url", zap.String("host", r.Host))
		return auth.HostContext{}
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if h.cfg.Server.TrustsProxy(r.RemoteAddr) {
		switch proto := strings.ToLower(r.Header.Get(echo.HeaderXForwardedProto)); proto {
		case "http", "https":
			scheme = proto
		}
	}

	return auth.HostContext{Scheme: scheme, Host: r.Host}
}

// resetError maps a token or credential failure to the message shown on the
// reset page. ok is false for unexpected errors.
func resetError(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, token.ErrExpired):
		return MsgResetExpired, true
	case errors.Is(err, auth.ErrAccountNotFound):
		return MsgResetUnknownUser, true
	case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrPurposeMismatch):
		return MsgResetInvalid, true
	case errors.Is(err, auth.ErrEmptySecret):
		return MsgBlankPassword, true
	case errors.Is(err, auth.ErrWeakSecret):
		var policy *accounts.PolicyError
		if errors.As(err, &policy) {
			return "Password " + strings.Join(policy.Problems, "; ") + ".", true
		}
		return err.Error(), true
	}
	return "", false
}

func (h *Handler) ResetPasswordForm(c echo.Context) error {
	tokenString := c.QueryParam("token")
	p := h.page(c, "Reset password")

	if tokenString == "" {
		p.Error = MsgMissingToken
		p.Data = resetView{}
		return h.render(c, http.StatusBadRequest, "reset_password", p)
	}

	if _, err := h.auth.RedeemReset(c.Request().Context(), tokenString); err != nil {
		msg, ok := resetError(err)
		if !ok {
			return err
		}
		p.Error = msg
		p.Data = resetView{}
		return h.render(c, http.StatusBadRequest, "reset_password", p)
	}

	p.Data = resetView{Token: tokenString, Valid: true}
	return h.render(c, http.StatusOK, "reset_password", p)
}

// ResetPassword sets the new password and signs the account out everywhere.
func (h *Handler) ResetPassword(c echo.Context) error {
	tokenString := c.QueryParam("token")
	if tokenString == "" {
		tokenString = c.FormValue("token")
	}

	if tokenString == "" {
		p := h.page(c, "Reset password")
		p.Error = MsgMissingToken
		p.Data = resetView{}
		return h.render(c, http.StatusBadRequest, "reset_password", p)
	}

	ctx := c.Request().Context()
	email, err := h.auth.ResetPassword(ctx, tokenString, c.FormValue("password"))
	h.metrics.RecordAuth("reset_completed", err)
	if err != nil {
		msg, ok := resetError(err)
		if !ok {
			return err
		}
		p := h.page(c, "Reset password")
		p.Error = msg
		// credential problems keep the form; token problems do not
		valid := errors.Is(err, auth.ErrEmptySecret) || errors.Is(err, auth.ErrWeakSecret)
		p.Data = resetView{Token: tokenString, Valid: valid}
		code := http.StatusBadRequest
		if valid {
			code = http.StatusUnprocessableEntity
		}
		return h.render(c, code, "reset_password", p)
	}

	account, err := h.accounts.Find(ctx, email)
	if err == nil {
		if err := h.sessions.RevokeAll(ctx, account.ID); err != nil {
			h.logger.Error("failed to revoke sessions after password reset", zap.Uint("account_id", account.ID), zap.Error(err))
		}
	}

	return h.redirectWithFlash(c, "/login/", session.FlashSuccess, MsgResetDone)
}
