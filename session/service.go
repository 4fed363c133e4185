package session

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

const (
	userIDKey        = "_user_id"
	authenticatedKey = "_authenticated"
)

// Service exposes the session operations handlers need. It is safe to use
// on a request that did not pass through Middleware; every accessor then
// reports an empty session.
type Service struct {
	manager *Manager
	tracker *Tracker
	logger  *logging.Service
}

func NewService(manager *Manager, tracker *Tracker, logger *logging.Service) *Service {
	return &Service{
		manager: manager,
		tracker: tracker,
		logger:  logger.Named("session"),
	}
}

func (s *Service) ctx(c echo.Context) (context.Context, bool) {
	if s == nil || s.manager == nil {
		return nil, false
	}
	ctx := c.Request().Context()
	return ctx, s.loaded(ctx)
}

// loaded reports whether Middleware put session data into ctx; scs panics
// on access otherwise.
func (s *Service) loaded(ctx context.Context) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	s.manager.Status(ctx)
	return true
}

// Login renews the session token and marks the session as belonging to
// userID.
func (s *Service) Login(c echo.Context, userID uint) error {
	ctx, ok := s.ctx(c)
	if !ok {
		return fmt.Errorf("session not loaded")
	}

	if err := s.manager.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	s.manager.Put(ctx, userIDKey, userID)
	s.manager.Put(ctx, authenticatedKey, true)

	if s.tracker != nil {
		token := s.manager.Token(ctx)
		expiresAt := time.Now().Add(s.manager.config.MaxAge)
		if err := s.tracker.Track(ctx, userID, token, c.RealIP(), c.Request().UserAgent(), expiresAt); err != nil {
			s.logger.Warn("failed to track login session", zap.Error(err), zap.Uint("user_id", userID))
		}
	}

	s.logger.Info("user logged in", zap.Uint("user_id", userID), zap.String("ip", c.RealIP()))
	return nil
}

func (s *Service) Logout(c echo.Context) error {
	ctx, ok := s.ctx(c)
	if !ok {
		return nil
	}

	if s.tracker != nil {
		if token := s.manager.Token(ctx); token != "" {
			if err := s.tracker.Forget(ctx, token); err != nil {
				s.logger.Warn("failed to forget login session", zap.Error(err))
			}
		}
	}

	return s.manager.Destroy(ctx)
}

func (s *Service) IsAuthenticated(c echo.Context) bool {
	ctx, ok := s.ctx(c)
	if !ok {
		return false
	}
	return s.manager.GetBool(ctx, authenticatedKey)
}

func (s *Service) UserID(c echo.Context) uint {
	ctx, ok := s.ctx(c)
	if !ok {
		return 0
	}
	switch v := s.manager.Get(ctx, userIDKey).(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case int64:
		return uint(v)
	case uint64:
		return uint(v)
	case float64:
		return uint(v)
	default:
		return 0
	}
}

func (s *Service) SetFlash(c echo.Context, flashType FlashType, message string) {
	ctx, ok := s.ctx(c)
	if !ok {
		return
	}
	s.manager.Put(ctx, flashKey, message)
	s.manager.Put(ctx, flashTypeKey, string(flashType))
}

// Flash pops the pending flash message, if any.
func (s *Service) Flash(c echo.Context) *FlashMessage {
	ctx, ok := s.ctx(c)
	if !ok {
		return nil
	}
	message := s.manager.PopString(ctx, flashKey)
	flashType := s.manager.PopString(ctx, flashTypeKey)
	if message == "" {
		return nil
	}
	if flashType == "" {
		flashType = string(FlashInfo)
	}
	return &FlashMessage{Message: message, Type: FlashType(flashType)}
}

func (s *Service) Get(c echo.Context, key string) string {
	ctx, ok := s.ctx(c)
	if !ok {
		return ""
	}
	return s.manager.GetString(ctx, key)
}

func (s *Service) Put(c echo.Context, key, value string) {
	ctx, ok := s.ctx(c)
	if !ok {
		return
	}
	s.manager.Put(ctx, key, value)
}

func (s *Service) Remove(c echo.Context, key string) {
	ctx, ok := s.ctx(c)
	if !ok {
		return
	}
	s.manager.Remove(ctx, key)
}

// RevokeAll ends every tracked session of the user.
func (s *Service) RevokeAll(ctx context.Context, userID uint) error {
	if s == nil || s.tracker == nil {
		return nil
	}
	return s.tracker.RevokeAll(ctx, userID)
}

// TouchMiddleware refreshes last_used on the tracked session of an
// authenticated request.
func (s *Service) TouchMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.tracker != nil && s.IsAuthenticated(c) {
				if token := s.manager.Token(c.Request().Context()); token != "" {
					if err := s.tracker.Touch(c.Request().Context(), token); err != nil {
						s.logger.Debug("failed to touch session", zap.Error(err))
					}
				}
			}
			return next(c)
		}
	}
}
