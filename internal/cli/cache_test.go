package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/masonry/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	tests := []struct {
		name string
		xdg  string
		home string
		want string
	}{
		{
			name: "xdg cache home",
			xdg:  "/tmp/xdg-cache",
			home: "/home/gallery",
			want: filepath.Join("/tmp/xdg-cache", appName),
		},
		{
			name: "home fallback",
			home: "/home/gallery",
			want: filepath.Join("/home/gallery", ".cache", appName),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			t.Setenv("HOME", tt.home)

			got, err := cacheDir()
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

// writeConfig writes a TOML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCacheClearFileBackend(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"layout:a", "layout:b", "artifact:c"} {
		if err := fc.Set(t.Context(), key, []byte("{}"), 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	cfg := writeConfig(t, fmt.Sprintf("[cache]\nbackend = \"file\"\ndir = %q\n", dir))
	var out syncBuffer
	root := New(&out, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfg, "cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	if _, ok, _ := fc.Get(t.Context(), "layout:a"); ok {
		t.Error("entry survived cache clear")
	}
	if got := out.String(); !strings.Contains(got, "Removed 3 cached entries") {
		t.Errorf("output = %q", got)
	}
}

func TestCacheClearExpiredKeepsLive(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(t.Context(), "live", []byte("{}"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(t.Context(), "stale", []byte("{}"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	cfg := writeConfig(t, fmt.Sprintf("[cache]\nbackend = \"file\"\ndir = %q\n", dir))
	var out syncBuffer
	root := New(&out, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfg, "cache", "clear", "--expired"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache clear --expired: %v", err)
	}

	if _, ok, _ := fc.Get(t.Context(), "live"); !ok {
		t.Error("live entry was removed")
	}
	if got := out.String(); !strings.Contains(got, "Removed 1 expired entry") {
		t.Errorf("output = %q", got)
	}
}

func TestCachePath(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf("[cache]\nbackend = \"file\"\ndir = %q\n", dir))
	var stdout bytes.Buffer
	root := New(&syncBuffer{}, LogInfo).RootCommand()
	root.SetOut(&stdout)
	root.SetArgs([]string{"--config", cfg, "cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestCachePathRejectsRedis(t *testing.T) {
	cfg := writeConfig(t, "[cache]\nbackend = \"redis\"\n")
	root := New(&syncBuffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfg, "cache", "path"})
	root.SilenceErrors = true
	if err := root.Execute(); err == nil {
		t.Error("cache path succeeded for the redis backend")
	}
}
