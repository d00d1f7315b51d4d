package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyberedpro/cybered/pkg/cache"
	"github.com/cyberedpro/cybered/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := filepath.Join(t.TempDir(), "xdg")
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestMirrorDir(t *testing.T) {
	base := t.TempDir()

	cfg := config.Default()
	cfg.Cache.Dir = base
	dir, err := mirrorDir(cfg)
	if err != nil {
		t.Fatalf("mirrorDir() error: %v", err)
	}
	if want := filepath.Join(base, cache.Namespace(cfg.BaseURL)); dir != want {
		t.Errorf("mirrorDir() = %q, want %q", dir, want)
	}

	other := config.Default()
	other.Cache.Dir = base
	other.BaseURL = "https://lms.example.com/api/v1"
	otherDir, err := mirrorDir(other)
	if err != nil {
		t.Fatalf("mirrorDir() error: %v", err)
	}
	if otherDir == dir {
		t.Error("different base URLs should not share a mirror directory")
	}
	if !strings.HasPrefix(otherDir, base) {
		t.Errorf("mirrorDir() = %q, should be under %q", otherDir, base)
	}
}
