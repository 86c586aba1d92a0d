package backend

import (
	"context"
	"path/filepath"
	"testing"

	"conti/internal/config"
	"conti/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", RoomID: "r", SQLiteDBPath: "x.db"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.RoomID != "r" || cfg.SQLiteDBPath != "x.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, RoomID: "r"}, false},
		{"sqlite", Config{Type: SQLiteBackend, RoomID: "r", SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, RoomID: "r"}, true},
		{"missing room", Config{Type: MemoryBackend}, true},
		{"bad type", Config{Type: "sheets", RoomID: "r"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Config{Type: MemoryBackend, RoomID: "r"})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if mem.Ready != nil || mem.Close() != nil {
		t.Fatalf("memory backend needs no probe or cleanup")
	}

	path := filepath.Join(t.TempDir(), "conti.db")
	sq, err := Open(ctx, Config{Type: SQLiteBackend, RoomID: "r", SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	defer sq.Close()

	if err := sq.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if _, err := sq.Repository.AddMember(ctx, core.Member{Name: "Alice"}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
}
