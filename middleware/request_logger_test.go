package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contractlens/contractlens/service"
	"github.com/gin-gonic/gin"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRequestLoggerMiddleware(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/error", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
	})
	router.GET("/server-error", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		logLevel       string
	}{
		{"success request", "/test", http.StatusOK, "INFO"},
		{"client error", "/error", http.StatusBadRequest, "WARN"},
		{"server error", "/server-error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			logOutput := buf.String()
			if !strings.Contains(logOutput, "request completed") {
				t.Error("Expected 'request completed' in log")
			}
			if !strings.Contains(logOutput, tt.path) {
				t.Errorf("Expected path '%s' in log", tt.path)
			}
			if !strings.Contains(logOutput, tt.logLevel) {
				t.Errorf("Expected log level '%s' in log", tt.logLevel)
			}
		})
	}
}

func TestRequestLoggerWithQuery(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest("GET", "/test?foo=bar&baz=qux", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "query") {
		t.Error("Expected query parameters in log")
	}
}

func TestRequestLoggerQuietPaths(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	router := gin.New()
	router.Use(RequestLogger("/analysis/progress"))
	router.GET("/analysis/progress", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"percent": 50})
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/analysis/progress", nil))

	if strings.Contains(buf.String(), "request completed") {
		t.Errorf("Expected polling request below info level, got %s", buf.String())
	}
}

func TestRequestLoggerSessionID(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	cfg := testSessionConfig()
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(Session(service.NewSessionStore(cfg), NewSessionSigner(cfg), testCookie))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	if !strings.Contains(buf.String(), "session_id=") {
		t.Errorf("Expected session id in log, got %s", buf.String())
	}
}
