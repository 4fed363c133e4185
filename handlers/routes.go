package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/middleware/ratelimit"
	"github.com/tech-arch1tect/ecostep/session"
)

// RegisterRoutes mounts every page. Form submissions that send email or
// check a password share the per-IP limiter.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter *ratelimit.Limiter) {
	limited := limiter.Middleware()

	e.GET("/", h.Home)

	e.GET("/signup/", h.SignupForm)
	e.POST("/signup/", h.Signup, limited)
	e.GET("/login/", h.LoginForm)
	e.POST("/login/", h.Login, limited)
	e.GET("/logout/", h.Logout)

	for _, path := range []string{"/email/verify/", "/verify-email/"} {
		e.GET(path, h.VerifyEmail)
	}
	for _, path := range []string{"/email/verification/resend/", "/resend-confirmation/"} {
		e.GET(path, h.ResendForm)
		e.POST(path, h.Resend, limited)
	}
	for _, path := range []string{"/email/verification-alert/", "/verification-alert/"} {
		e.GET(path, h.VerificationAlert)
	}

	e.GET("/forgot-password/", h.ForgotPasswordForm)
	e.POST("/forgot-password/", h.ForgotPassword, limited)
	e.GET("/reset-password/", h.ResetPasswordForm)
	e.POST("/reset-password/", h.ResetPassword, limited)

	// per route rather than a group: a group with middleware swallows unknown
	// paths under its prefix
	login := session.RequireAuth(h.sessions, "/login/")
	e.GET(introPath, h.PreIntro, login)
	for i, s := range steps {
		e.GET(s.Path, h.PreStep(i), login)
		e.POST(s.Path, h.PreStep(i), login)
	}
	e.GET(submitPath, h.PreSubmitForm, login)
	e.POST(submitPath, h.PreSubmit, login)

	e.GET("/sitemap.xml", h.Sitemap)
	e.GET("/robots.txt", h.Robots)
	e.GET("/ratelimit-error/", h.RateLimitError)
}
