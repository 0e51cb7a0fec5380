package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/mcclellann/pawnLedger/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSetupLevelAndFormat(t *testing.T) {
	closer, err := Setup(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	if log.GetLevel() != log.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", log.StandardLogger().Formatter)
	}

	if _, err := Setup(config.LogConfig{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pawn.log")
	closer, err := Setup(config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Failed to set up logging: %v", err)
	}
	log.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Failed to close log file: %v", err)
	}
	log.SetOutput(os.Stdout)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected log file to have content")
	}
}

func TestMiddleware(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	log.SetLevel(log.DebugLevel)

	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ok", nil))
	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.DebugLevel || entry.Data["status"] != http.StatusOK {
		t.Errorf("Expected debug entry with status 200, got %+v", entry)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/missing", nil))
	entry = hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel || entry.Data["path"] != "/missing" {
		t.Errorf("Expected warn entry for /missing, got %+v", entry)
	}
}
