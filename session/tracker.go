package session

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserSession records one logged-in browser so an account's sessions can
// be revoked together.
type UserSession struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:255;not null"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"size:500"`
	Browser   string    `json:"browser" gorm:"size:100"`
	OS        string    `json:"os" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

type Tracker struct {
	db     *gorm.DB
	store  scs.Store
	now    func() time.Time
	logger *logging.Service
}

func NewTracker(db *gorm.DB, manager *Manager, logger *logging.Service) *Tracker {
	var store scs.Store
	if manager != nil {
		store = manager.Store
	}
	return &Tracker{
		db:     db,
		store:  store,
		now:    time.Now,
		logger: logger.Named("session"),
	}
}

func (t *Tracker) Track(ctx context.Context, userID uint, token, ipAddress, userAgent string, expiresAt time.Time) error {
	now := t.now()
	ua := useragent.Parse(userAgent)

	record := UserSession{
		UserID:    userID,
		Token:     token,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Browser:   describe(ua.Name, ua.Version, "Unknown Browser"),
		OS:        describe(ua.OS, ua.OSVersion, "Unknown OS"),
		CreatedAt: now,
		LastUsed:  now,
		ExpiresAt: expiresAt,
	}

	if err := t.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to track session: %w", err)
	}
	return nil
}

func describe(name, version, fallback string) string {
	switch {
	case name == "":
		return fallback
	case version == "":
		return name
	default:
		return name + " " + version
	}
}

func (t *Tracker) Touch(ctx context.Context, token string) error {
	return t.db.WithContext(ctx).Model(&UserSession{}).
		Where("token = ?", token).
		Update("last_used", t.now()).Error
}

func (t *Tracker) Forget(ctx context.Context, token string) error {
	return t.db.WithContext(ctx).Where("token = ?", token).Delete(&UserSession{}).Error
}

func (t *Tracker) List(ctx context.Context, userID uint) ([]UserSession, error) {
	var sessions []UserSession
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, t.now()).
		Order("last_used DESC").
		Find(&sessions).Error
	return sessions, err
}

// RevokeAll ends every tracked session of the user, including the session
// data held by the scs store.
func (t *Tracker) RevokeAll(ctx context.Context, userID uint) error {
	var sessions []UserSession
	if err := t.db.WithContext(ctx).Where("user_id = ?", userID).Find(&sessions).Error; err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if t.store != nil {
		for _, s := range sessions {
			if err := t.store.Delete(s.Token); err != nil {
				return fmt.Errorf("failed to delete session data: %w", err)
			}
		}
	}

	if err := t.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&UserSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	t.logger.Info("revoked sessions", zap.Uint("user_id", userID), zap.Int("count", len(sessions)))
	return nil
}

func (t *Tracker) CleanupExpired(ctx context.Context) (int64, error) {
	result := t.db.WithContext(ctx).Where("expires_at < ?", t.now()).Delete(&UserSession{})
	return result.RowsAffected, result.Error
}
