package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func testCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	RegisterRootFlags(cmd)
	RegisterRunFlags(cmd)
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(testCmd())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Engine != "chrome" || !cfg.Headless {
		t.Errorf("unexpected engine defaults: %s headless=%v", cfg.Engine, cfg.Headless)
	}
	if cfg.Stage1Concurrency != 4 || cfg.Stage2Concurrency != 4 || cfg.Stage3Concurrency != 2 {
		t.Errorf("unexpected stage defaults: %d/%d/%d",
			cfg.Stage1Concurrency, cfg.Stage2Concurrency, cfg.Stage3Concurrency)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryBaseDelay != 2*time.Second {
		t.Errorf("unexpected retry defaults: %d/%s", cfg.RetryAttempts, cfg.RetryBaseDelay)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("EXPOCRAWL_ENGINE", "static")
	t.Setenv("EXPOCRAWL_STAGE3_CONCURRENCY", "1")
	t.Setenv("EXPOCRAWL_IGNORE_ROBOTS", "true")

	cfg, err := Load(testCmd())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Engine != "static" {
		t.Errorf("engine not taken from environment: %s", cfg.Engine)
	}
	if cfg.Stage3Concurrency != 1 {
		t.Errorf("stage3 concurrency not taken from environment: %d", cfg.Stage3Concurrency)
	}
	if !cfg.IgnoreRobots {
		t.Error("ignore-robots not taken from environment")
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("EXPOCRAWL_ENGINE", "static")

	cmd := testCmd()
	// ParseFlags merges persistent flags into Flags(), as Execute does.
	if err := cmd.ParseFlags([]string{"--engine=chrome", "--timeout=10s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Engine != "chrome" {
		t.Errorf("flag should override environment, got %s", cfg.Engine)
	}
	if cfg.NavigationTimeout != 10*time.Second {
		t.Errorf("timeout flag not applied: %s", cfg.NavigationTimeout)
	}
}

func TestPersistentFlagsReachConfig(t *testing.T) {
	cmd := testCmd()
	args := []string{
		"--header=X-Token: abc",
		"--header=X-Trace: 1",
		"--proxy=http://127.0.0.1:8080",
		"--archive=/tmp/runs.db",
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Headers) != 2 || cfg.Headers[0] != "X-Token: abc" {
		t.Errorf("headers not applied: %v", cfg.Headers)
	}
	if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "http://127.0.0.1:8080" {
		t.Errorf("proxies not applied: %v", cfg.Proxies)
	}
	if cfg.ArchivePath != "/tmp/runs.db" {
		t.Errorf("archive path not applied: %s", cfg.ArchivePath)
	}
}

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.env")
	if err := os.WriteFile(path, []byte("EXPOCRAWL_ENGINE=static\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	// godotenv exports into the process environment; clean up after.
	t.Cleanup(func() { os.Unsetenv("EXPOCRAWL_ENGINE") })

	cmd := testCmd()
	if err := cmd.ParseFlags([]string{"--config=" + path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Engine != "static" {
		t.Errorf("engine not taken from config file: %s", cfg.Engine)
	}
}

func TestConfigFileMissing(t *testing.T) {
	cmd := testCmd()
	if err := cmd.ParseFlags([]string{"--config=" + filepath.Join(t.TempDir(), "nope.env")}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := Load(cmd); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		env   map[string]string
	}{
		{"bad engine", map[string]string{"EXPOCRAWL_ENGINE": "firefox"}},
		{"zero stage concurrency", map[string]string{"EXPOCRAWL_STAGE1_CONCURRENCY": "0"}},
		{"oversized stage concurrency", map[string]string{"EXPOCRAWL_STAGE2_CONCURRENCY": "100"}},
		{"bad start URL", map[string]string{"EXPOCRAWL_START_URL": "ftp://nope"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(testCmd()); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
