package backend

import (
	"context"
	"fmt"

	"conti/internal/log"
	"conti/internal/store"
	"conti/internal/store/memory"
	"conti/internal/storage"
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

func (t BackendType) String() string { return string(t) }

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	RoomID       string
	SQLiteDBPath string
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is an opened repository with its readiness probe and cleanup.
type Result struct {
	Repository store.Repository
	Ready      func(context.Context) error
	Cleanup    CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Open creates the repository selected by config.
func Open(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		log.ForComponent(log.ComponentStorage).InfoContext(ctx, "Initialized SQLite backend",
			"db_path", config.SQLiteDBPath,
			log.FieldRoomID, config.RoomID)
		return &Result{Repository: repo, Ready: repo.Ping, Cleanup: repo.Close}, nil
	default:
		log.ForComponent(log.ComponentStorage).InfoContext(ctx, "Initialized memory backend", log.FieldRoomID, config.RoomID)
		return &Result{Repository: memory.New()}, nil
	}
}
