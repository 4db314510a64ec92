package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[stitch]
net = "PGND"
grid_x = 1.27
grid_y = 1.27
stagger = true
refill = false
ignore_zones = ["z1"]

[units]
per_mm = 10000

[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "36h"

[history]
backend = "none"

[server]
addr = "127.0.0.1:9000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := pipeline.DefaultOptions()
	want.Net = "PGND"
	want.GridX, want.GridY = 1.27, 1.27
	want.Stagger = true
	want.Refill = false
	want.IgnoreZones = []string{"z1"}
	want.UnitsPerMM = 10000
	if diff := cmp.Diff(want, cfg.Stitch); diff != "" {
		t.Errorf("stitch options (-want +got):\n%s", diff)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.History.Backend != BackendNone {
		t.Errorf("backends %q %q", cfg.Cache.Backend, cfg.History.Backend)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("addr %q", cfg.Server.Addr)
	}
	ttl, err := cfg.Cache.TTLDuration(time.Hour)
	if err != nil || ttl != 36*time.Hour {
		t.Errorf("ttl = %v, %v", ttl, err)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvPath, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadEnvPath(t *testing.T) {
	path := writeConfig(t, "[stitch]\nclearance = 0.5\n")
	t.Setenv(EnvPath, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stitch.Clearance != 0.5 {
		t.Errorf("clearance = %v, want 0.5", cfg.Stitch.Clearance)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[stitch\n"},
		{"unknown key", "[stitch]\nviadiameter = 0.4\n"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"mongo without uri", "[history]\nbackend = \"mongo\"\n"},
		{"bad ttl", "[cache]\nttl = \"soon\"\n"},
		{"negative ttl", "[cache]\nttl = \"-1h\"\n"},
		{"zero units", "[units]\nper_mm = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Fatalf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.toml")
	p, err := DefaultPath()
	if err != nil || p != "/tmp/custom.toml" {
		t.Errorf("DefaultPath = %q, %v", p, err)
	}
}
