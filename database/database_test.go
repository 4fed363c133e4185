package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255"`
}

func createTestConfig(driver, dsn string, autoMigrate bool) config.Config {
	return config.Config{
		Log: config.LogConfig{Level: "info"},
		Database: config.DatabaseConfig{
			Driver:      driver,
			DSN:         dsn,
			AutoMigrate: autoMigrate,
		},
	}
}

func TestProvideDatabase(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", false), nil, logging.NewNop())
		require.NoError(t, err)
		defer Close(db)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.NoError(t, sqlDB.Ping())
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("oracle", "x", false), nil, logging.NewNop())
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("auto migrate", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", true), WithModels(&widget{}), logging.NewNop())
		require.NoError(t, err)
		defer Close(db)

		assert.True(t, db.Migrator().HasTable(&widget{}))
	})

	t.Run("auto migrate disabled", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", false), WithModels(&widget{}), logging.NewNop())
		require.NoError(t, err)
		defer Close(db)

		assert.False(t, db.Migrator().HasTable(&widget{}))
	})

	t.Run("file database", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "test.db")
		db, err := ProvideDatabase(createTestConfig("sqlite", dsn, true), WithModels(&widget{}), logging.NewNop())
		require.NoError(t, err)
		defer Close(db)

		require.NoError(t, db.Create(&widget{Name: "a"}).Error)
		var count int64
		require.NoError(t, db.Model(&widget{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestMigrate(t *testing.T) {
	db, err := Open(createTestConfig("sqlite", ":memory:", false), logging.NewNop())
	require.NoError(t, err)
	defer Close(db)

	assert.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db, &widget{}))
	assert.True(t, db.Migrator().HasTable(&widget{}))
}

func TestModelsOption(t *testing.T) {
	var nilOpt *ModelsOption
	assert.Nil(t, nilOpt.Models())
	assert.Len(t, WithModels(&widget{}, &widget{}).Models(), 2)
}

func TestModule(t *testing.T) {
	var db *gorm.DB
	app := fxtest.New(t,
		Module,
		fx.Supply(func() *config.Config {
			cfg := createTestConfig("sqlite", ":memory:", true)
			return &cfg
		}()),
		fx.Supply(logging.NewNop()),
		fx.Supply(WithModels(&widget{})),
		fx.Populate(&db),
	)
	app.RequireStart()
	require.NotNil(t, db)
	assert.True(t, db.Migrator().HasTable(&widget{}))
	app.RequireStop()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
