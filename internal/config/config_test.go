package config_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/stoplight/internal/config"
)

const testConfig = `
cycle:
  min_interval: 50ms
  max_interval: 60ms
  seed: 17
vehicles:
  count: 5
journal: /tmp/stoplight.db
`

func checkLoaded(t *testing.T, cfg *config.Config) {
	t.Helper()
	if got, want := cfg.Cycle.MinInterval, 50*time.Millisecond; got != want {
		t.Errorf("MinInterval: got %v, want %v", got, want)
	}
	if got, want := cfg.Cycle.MaxInterval, 60*time.Millisecond; got != want {
		t.Errorf("MaxInterval: got %v, want %v", got, want)
	}
	if got, want := cfg.Cycle.Seed, uint64(17); got != want {
		t.Errorf("Seed: got %v, want %v", got, want)
	}
	if got, want := cfg.Vehicles.Count, 5; got != want {
		t.Errorf("Vehicles: got %d, want %d", got, want)
	}
	if got, want := cfg.Journal, "/tmp/stoplight.db"; got != want {
		t.Errorf("Journal: got %q, want %q", got, want)
	}

	// Fields not mentioned keep their defaults.
	def := config.Default()
	if got, want := cfg.Cycle.Tick, def.Cycle.Tick; got != want {
		t.Errorf("Tick: got %v, want default %v", got, want)
	}
	if got, want := cfg.Vehicles.MaxArrival, def.Vehicles.MaxArrival; got != want {
		t.Errorf("MaxArrival: got %v, want default %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Default", func(t *testing.T) {
		cfg, err := config.Load(ctx, "")
		if err != nil {
			t.Fatalf("Load: unexpected error: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Default config is invalid: %v", err)
		}
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stoplight.yaml")
		if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
			t.Fatal(err)
		}
		for _, src := range []string{path, "file://" + path} {
			cfg, err := config.Load(ctx, src)
			if err != nil {
				t.Fatalf("Load %q: unexpected error: %v", src, err)
			}
			checkLoaded(t, cfg)
		}
	})

	t.Run("HTTP", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/stoplight.yaml" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(testConfig))
		}))
		defer srv.Close()

		cfg, err := config.Load(ctx, srv.URL+"/stoplight.yaml")
		if err != nil {
			t.Fatalf("Load: unexpected error: %v", err)
		}
		checkLoaded(t, cfg)

		if _, err := config.Load(ctx, srv.URL+"/missing.yaml"); err == nil {
			t.Error("Load missing: got nil, want error")
		}
	})

	t.Run("Errors", func(t *testing.T) {
		dir := t.TempDir()
		tests := []struct {
			name, body, want string
		}{
			{"syntax", "cycle: [", "parse config"},
			{"range", "cycle:\n  min_interval: 2s\n  max_interval: 1s\n", "max_interval"},
			{"count", "vehicles:\n  count: -1\n", "vehicles.count"},
		}
		for _, tc := range tests {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := config.Load(ctx, path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load %s: got %v, want error mentioning %q", tc.name, err, tc.want)
			}
		}

		if _, err := config.Load(ctx, "ftp://example.com/x.yaml"); err == nil {
			t.Error("Load ftp: got nil, want error")
		}
		if _, err := config.Load(ctx, filepath.Join(dir, "nonesuch.yaml")); err == nil {
			t.Error("Load nonexistent: got nil, want error")
		}
	})
}
