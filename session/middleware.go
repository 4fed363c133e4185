package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Middleware loads the session before the handler runs and commits it
// afterwards, bridging scs's net/http middleware into echo.
func Middleware(manager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				return next(c)
			}

			var handlerErr error

			rw := &responseWriterWrapper{
				ResponseWriter: c.Response().Writer,
				echo:           c.Response(),
			}

			handler := manager.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				c.Response().Writer = w
				handlerErr = next(c)
				// errors are rendered here so the session commit sees the final response
				if handlerErr != nil && !c.Response().Committed {
					c.Error(handlerErr)
					handlerErr = nil
				}
			}))

			handler.ServeHTTP(rw, c.Request())
			return handlerErr
		}
	}
}

// responseWriterWrapper keeps echo's recorded status in sync when scs
// writes the header.
type responseWriterWrapper struct {
	http.ResponseWriter
	echo *echo.Response
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if w.echo.Status == 0 {
		w.echo.Status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Authenticator is the part of a session store RequireAuth needs.
type Authenticator interface {
	IsAuthenticated(c echo.Context) bool
	SetFlash(c echo.Context, flashType FlashType, message string)
}

// RequireAuth redirects anonymous visitors to loginURL.
func RequireAuth(sessions Authenticator, loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !sessions.IsAuthenticated(c) {
				sessions.SetFlash(c, FlashInfo, "Please log in to continue.")
				return c.Redirect(http.StatusFound, loginURL)
			}
			return next(c)
		}
	}
}
