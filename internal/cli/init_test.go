package cli

import (
	"context"
	"path/filepath"
	"testing"

	"conti/internal/config"
	"conti/internal/log"
)

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	logger := SetupLogger(cfg, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("unexpected component %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), log.ParseLevel("debug")) {
		t.Fatal("debug level should be enabled")
	}
}

func TestOpenBackend(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "sqlite",
		RoomID:       "room",
		SQLiteDBPath: filepath.Join(t.TempDir(), "conti.db"),
	}
	logger := SetupLogger(&config.Config{LogLevel: "error"}, log.ComponentApp)

	result := OpenBackend(context.Background(), logger, cfg)
	defer result.Close()
	if err := result.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
}
