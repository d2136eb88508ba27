package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"

	"github.com/dahallgren/bundyclock/ledger"
)

func load(t *testing.T, contents string) *Config {
	t.Helper()

	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	xdg.Reload()

	path := filepath.Join(tmp, "bundyclock.yml")

	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	return cfg
}

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	cfg := load(t, "")

	if cfg.LedgerType != "sqlite" {
		t.Errorf("ledger type = %q, want sqlite", cfg.LedgerType)
	}

	if cfg.LedgerFile != "in_out_times" {
		t.Errorf("ledger file = %q", cfg.LedgerFile)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}

	// the defaults must have been written back for the user to edit
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadReadsExistingFile(t *testing.T) {
	cfg := load(t, `
ledger:
  type: text
  file: punches
logging:
  level: debug
`)

	if cfg.LedgerType != "text" {
		t.Errorf("ledger type = %q, want text", cfg.LedgerType)
	}

	if cfg.LedgerFile != "punches" {
		t.Errorf("ledger file = %q, want punches", cfg.LedgerFile)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLedgerPathExtensionFollowsType(t *testing.T) {
	cases := []struct {
		ledgerType string
		file       string
		want       string
	}{
		{"text", "in_out_times", "in_out_times.txt"},
		{"json", "in_out_times", "in_out_times.json"},
		{"sqlite", "in_out_times", "in_out_times.db"},
		{"sqlite", "custom.sqlite3", "custom.sqlite3"},
	}

	for _, tc := range cases {
		c := &Config{LedgerType: tc.ledgerType, LedgerFile: tc.file, DataDir: "/data"}

		if got := c.LedgerPath(); filepath.Base(got) != tc.want {
			t.Errorf("LedgerPath(%s, %s) = %s, want base %s",
				tc.ledgerType, tc.file, got, tc.want)
		}
	}
}

func TestStoreAssembly(t *testing.T) {
	c := &Config{
		LedgerType: "http-rest",
		LedgerFile: "in_out_times",
		RemoteURL:  "http://example.test/workdays/",
		DataDir:    "/data",
	}

	store := c.Store()

	if store.Kind != ledger.KindRemote {
		t.Errorf("kind = %q", store.Kind)
	}

	if store.BaseURL != "http://example.test/workdays/" {
		t.Errorf("base url = %q", store.BaseURL)
	}
}

func TestEnvSuffixIsolatesFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("BUNDYCLOCK_ENV", "test")
	xdg.Reload()

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Base(cfg.ConfigPath) != "bundyclock_test.yml" {
		t.Errorf("config path = %s", cfg.ConfigPath)
	}

	if !strings.HasSuffix(cfg.LogPath, "bundyclock_test.log") {
		t.Errorf("log path = %s", cfg.LogPath)
	}
}
