package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestInitLoggerCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_DIR", dir)
	InitLogger()
	defer func() {
		Sync()
	}()

	AppLogger.Info("hello")
	LogDuration(WithTraceID(context.Background(), "t-1"), "test")()
	Sync()

	for _, name := range []string{"app.log", "timer.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestRequestMiddlewarePassesThrough(t *testing.T) {
	h := RequestMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/x", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rr.Code)
	}
}
