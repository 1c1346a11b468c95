package backend

import (
	"context"

	"pillars/internal/sheets"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// PingFunc reports whether the backend can currently serve requests.
type PingFunc func(ctx context.Context) error

// BackendResult contains the store and its optional lifecycle hooks.
type BackendResult struct {
	Store   sheets.Store
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Healthy runs Ping when set.
func (r *BackendResult) Healthy(ctx context.Context) error {
	if r == nil || r.Ping == nil {
		return nil
	}
	return r.Ping(ctx)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Files backend
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	FilesBackend  BackendType = "files"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FilesBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
