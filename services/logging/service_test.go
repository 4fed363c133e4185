package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/ecostep/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Service, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return New(zap.New(core)), recorded
}

func TestNewService(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		service, err := NewService(config.LogConfig{Level: "info", Format: "json", Output: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(config.LogConfig{Level: "debug", Format: "console", Output: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service.Logger())
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		service, err := NewService(config.LogConfig{Level: "warn", Format: "json", Output: logFile})
		require.NoError(t, err)

		service.Warn("test log entry")
		_ = service.Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "test log entry")
	})
}

func TestService_LoggingMethods(t *testing.T) {
	service, recorded := newObserved()

	service.Debug("debug message", zap.String("key", "value"))
	service.Info("info message")
	service.Warn("warn message")
	service.Error("error message")

	logs := recorded.TakeAll()
	require.Len(t, logs, 4)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	assert.Equal(t, "debug message", logs[0].Message)
	assert.Equal(t, "value", logs[0].ContextMap()["key"])
	assert.Equal(t, zapcore.InfoLevel, logs[1].Level)
	assert.Equal(t, zapcore.WarnLevel, logs[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs[3].Level)
}

func TestService_NamedAndWith(t *testing.T) {
	service, recorded := newObserved()

	service.Named("mail").With(zap.String("driver", "smtp")).Info("sent")

	logs := recorded.TakeAll()
	require.Len(t, logs, 1)
	assert.Equal(t, "mail", logs[0].LoggerName)
	assert.Equal(t, "smtp", logs[0].ContextMap()["driver"])
}

func TestService_NilSafety(t *testing.T) {
	var service *Service

	assert.NotPanics(t, func() {
		service.Debug("test")
		service.Info("test")
		service.Warn("test")
		service.Error("test")
		service.Named("x").Info("test")
		service.With(zap.String("k", "v")).Info("test")
		_ = service.Sync()
	})
	assert.Nil(t, service.Logger())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zapcore.Level
	}{
		{Debug, zapcore.DebugLevel},
		{Info, zapcore.InfoLevel},
		{Warn, zapcore.WarnLevel},
		{Error, zapcore.ErrorLevel},
		{LogLevel("unknown"), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	service, recorded := newObserved()

	e := echo.New()
	e.Use(RequestLogger(service, "/healthz"))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/missing", func(c echo.Context) error { return c.String(http.StatusNotFound, "nope") })

	t.Run("logs successful request with client fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		e.ServeHTTP(httptest.NewRecorder(), req)

		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "request", logs[0].Message)
		assert.Equal(t, "Chrome", logs[0].ContextMap()["browser"])
	})

	t.Run("skips configured paths", func(t *testing.T) {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Empty(t, recorded.TakeAll())
	})

	t.Run("client errors are warnings", func(t *testing.T) {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, "unknown", logs[0].ContextMap()["browser"])
	})
}
