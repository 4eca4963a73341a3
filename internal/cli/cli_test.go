package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pyelevate/pyelevate/pkg/errors"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	return New(os.Stderr, log.WarnLevel)
}

func TestRequirementsPathFlagWins(t *testing.T) {
	c := newTestCLI(t)
	c.Config.Requirements = "from-config.txt"

	path, err := c.requirementsPath("from-flag.txt")
	if err != nil {
		t.Fatalf("requirementsPath: %v", err)
	}
	if path != "from-flag.txt" {
		t.Errorf("path = %q, want flag value", path)
	}
}

func TestRequirementsPathFromConfig(t *testing.T) {
	c := newTestCLI(t)
	c.Config.Requirements = "from-config.txt"

	path, err := c.requirementsPath("")
	if err != nil {
		t.Fatalf("requirementsPath: %v", err)
	}
	if path != "from-config.txt" {
		t.Errorf("path = %q, want config value", path)
	}
}

func TestRequirementsPathDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.28.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	c := newTestCLI(t)
	path, err := c.requirementsPath("")
	if err != nil {
		t.Fatalf("requirementsPath: %v", err)
	}
	if path != "requirements.txt" {
		t.Errorf("path = %q, want requirements.txt", path)
	}
}

func TestRequirementsPathMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	c := newTestCLI(t)
	_, err := c.requirementsPath("")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Fatalf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := "requirements = \"deps/requirements.txt\"\ncache_ttl_hours = 6\n"
	if err := os.WriteFile(filepath.Join(dir, configName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Requirements != "deps/requirements.txt" {
		t.Errorf("requirements = %q", cfg.Requirements)
	}
	if cfg.CacheTTLHours != 6 {
		t.Errorf("cache_ttl_hours = %d, want 6", cfg.CacheTTLHours)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.CacheTTLHours != 24 {
		t.Errorf("default ttl = %d, want 24", cfg.CacheTTLHours)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configName), []byte("requirements = [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	_, err := loadConfig()
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Fatalf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestCacheDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", appName) {
		t.Errorf("dir = %q", dir)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := newTestCLI(t)
	root := c.RootCommand()

	want := []string{"check", "upgrade", "simulate", "graph", "cache"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
