package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pillars/internal/config"
	"pillars/internal/core"
	"pillars/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "files", DataDir: "/tmp/x", SQLiteDBPath: "/tmp/x.db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != FilesBackend || cfg.DataDirectory != "/tmp/x" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"files", Config{Type: FilesBackend, DataDirectory: "data"}, true},
		{"files without dir", Config{Type: FilesBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, false},
		{"memory", Config{Type: MemoryBackend}, true},
		{"unknown", Config{Type: "csv"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok != (err == nil) {
				t.Fatalf("Validate() = %v, ok=%v", err, tc.ok)
			}
		})
	}
}

func TestCreateBackends(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(log.Discard().Logger)
	ctx := context.Background()

	configs := []Config{
		{Type: FilesBackend, DataDirectory: filepath.Join(dir, "files")},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "pillars.db")},
		{Type: MemoryBackend},
	}
	for _, cfg := range configs {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			if err := res.Healthy(ctx); err != nil {
				t.Fatalf("Healthy: %v", err)
			}
			if _, err := res.Store.LoadPrices(ctx); !errors.Is(err, core.ErrMissingResource) {
				t.Fatalf("fresh store LoadPrices: expected missing resource, got %v", err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 3 || got[0] != "files" {
		t.Fatalf("unexpected types: %v", got)
	}
}
