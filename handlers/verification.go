package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/mail"
	"github.com/tech-arch1tect/ecostep/services/token"
	"github.com/tech-arch1tect/ecostep/session"
)

type alertView struct {
	From string
	To   string
}

// VerifyEmail redeems the token from the confirmation link.
func (h *Handler) VerifyEmail(c echo.Context) error {
	_, err := h.auth.RedeemVerification(c.Request().Context(), c.QueryParam("token"))
	h.metrics.RecordAuth("verification_redeemed", err)
	if err == nil {
		return h.redirectWithFlash(c, "/login/", session.FlashSuccess, MsgVerified)
	}

	p := h.page(c, "Email verification")
	switch {
	case errors.Is(err, token.ErrExpired):
		p.Error = MsgTokenExpired
	case errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrPurposeMismatch),
		errors.Is(err, auth.ErrNotFound):
		p.Error = MsgTokenInvalid
	default:
		return err
	}
	return h.render(c, http.StatusBadRequest, "email_verification", p)
}

func (h *Handler) ResendForm(c echo.Context) error {
	p := h.page(c, "Resend confirmation")
	p.Form = map[string]string{"email": c.QueryParam("email")}
	return h.render(c, http.StatusOK, "resend_confirmation", p)
}

func (h *Handler) Resend(c echo.Context) error {
	email := accounts.NormalizeEmail(c.FormValue("email"))

	rejected := func(code int, message string) error {
		p := h.page(c, "Resend confirmation")
		p.Form = map[string]string{"email": email}
		p.Error = message
		return h.render(c, code, "resend_confirmation", p)
	}

	if !validEmail(email) {
		return rejected(http.StatusUnprocessableEntity, "Enter a valid email address.")
	}

	_, err := h.auth.RequestVerification(c.Request().Context(), email)
	h.metrics.RecordAuth("verification_requested", err)
	switch {
	case err == nil:
		return h.redirect(c, verificationAlertURL(email))
	case errors.Is(err, auth.ErrNotFound):
		return rejected(http.StatusOK, fmt.Sprintf("%s is not registered", email))
	case errors.Is(err, auth.ErrAlreadyVerified):
		return rejected(http.StatusOK, fmt.Sprintf("%s is already verified", email))
	case errors.Is(err, mail.ErrTransport):
		return rejected(http.StatusServiceUnavailable, MsgMailFailed)
	default:
		return err
	}
}

// VerificationAlert tells the user where the confirmation email went.
func (h *Handler) VerificationAlert(c echo.Context) error {
	p := h.page(c, "Check your inbox")
	p.Data = alertView{
		From: h.cfg.Mail.FromAddress,
		To:   c.QueryParam("email"),
	}
	return h.render(c, http.StatusOK, "verification_alert", p)
}
