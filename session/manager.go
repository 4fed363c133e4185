package session

import (
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/tech-arch1tect/ecostep/config"
	"gorm.io/gorm"
)

type Manager struct {
	*scs.SessionManager
	config config.SessionConfig
}

func NewManager(cfg config.SessionConfig, store scs.Store) *Manager {
	sm := scs.New()
	sm.Store = store
	sm.Lifetime = cfg.MaxAge
	sm.IdleTimeout = cfg.MaxAge
	sm.Cookie.Name = cfg.Name
	sm.Cookie.Path = cfg.Path
	sm.Cookie.Domain = cfg.Domain
	sm.Cookie.Secure = cfg.Secure
	sm.Cookie.HttpOnly = cfg.HttpOnly

	switch cfg.SameSite {
	case "strict":
		sm.Cookie.SameSite = http.SameSiteStrictMode
	case "none":
		sm.Cookie.SameSite = http.SameSiteNoneMode
	default:
		sm.Cookie.SameSite = http.SameSiteLaxMode
	}

	return &Manager{SessionManager: sm, config: cfg}
}

func ProvideSessionManager(cfg *config.Config, db *gorm.DB) (*Manager, error) {
	var store scs.Store

	switch cfg.Session.Store {
	case "memory":
		store = NewMemoryStore()
	case "database":
		if db == nil {
			return nil, fmt.Errorf("database session store requires a database connection")
		}
		var err error
		store, err = NewDatabaseStore(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create database session store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	return NewManager(cfg.Session, store), nil
}
