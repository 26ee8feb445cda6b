package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/config"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Port = "0"
	cfg.App.ShutdownTimeout = time.Second
	cfg.Database.Driver = config.DriverMemory
	cfg.Auth.JWTSecret = "secret"
	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.PublicBaseURL = "http://localhost"
	cfg.Storage.MaxFileSize = 1 << 20
	cfg.Metrics.Interval = time.Second
	return cfg
}

func TestNewWithMemoryStore(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health = %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/coach/plans", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated = %d, want 401", w.Code)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t), logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
