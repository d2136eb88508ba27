// Package config loads and persists bundyclock settings. The config file
// lives in the xdg config dir, the ledger and logs in the xdg data dir, and
// every resolved path is carried on the Config so nothing downstream needs
// to know how they were derived.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/dahallgren/bundyclock/ledger"
)

const Version = "v1.2.0"

const appDir = "bundyclock"

const (
	keyLedgerType     = "ledger.type"
	keyLedgerFile     = "ledger.file"
	keyRemoteURL      = "remote.url"
	keyReportTemplate = "report.template"
	keyLogLevel       = "logging.level"
)

// Config holds all settings plus the resolved filesystem paths.
type Config struct {
	// LedgerType is one of text, json, sqlite, http-rest.
	LedgerType string
	// LedgerFile is the ledger file name inside the data dir. A bare name
	// gets an extension matching the ledger type.
	LedgerFile string
	// RemoteURL is the workdays collection endpoint for the http-rest type.
	RemoteURL string
	// ReportTemplate is a path to a report template override. Empty means
	// the built-in template.
	ReportTemplate string
	// LogLevel is the slog level name (debug, info, warn, error).
	LogLevel string

	ConfigPath string
	DataDir    string
	LogPath    string
}

// Load reads the config at configPath, creating it with defaults when it
// does not exist. An empty configPath resolves to the xdg location, with
// BUNDYCLOCK_ENV suffixing the file names so test environments never touch
// the real ledger.
func Load(configPath string) (*Config, error) {
	cfgName := "bundyclock.yml"
	logName := "bundyclock.log"

	if env := strings.TrimSpace(os.Getenv("BUNDYCLOCK_ENV")); env != "" {
		cfgName = fmt.Sprintf("bundyclock_%s.yml", env)
		logName = fmt.Sprintf("bundyclock_%s.log", env)
	}

	var err error

	if configPath == "" {
		configPath, err = xdg.ConfigFile(filepath.Join(appDir, cfgName))
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
	}

	dataDir, err := xdg.DataFile(appDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault(keyLedgerType, string(ledger.KindSqlite))
	v.SetDefault(keyLedgerFile, "in_out_times")
	v.SetDefault(keyRemoteURL, "http://localhost:8000/bundyclock/api/workdays/")
	v.SetDefault(keyReportTemplate, "")
	v.SetDefault(keyLogLevel, "info")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file failed: %w", err)
		}

		if err := v.WriteConfig(); err != nil {
			return nil, fmt.Errorf("writing default config failed: %w", err)
		}
	}

	return &Config{
		LedgerType:     v.GetString(keyLedgerType),
		LedgerFile:     v.GetString(keyLedgerFile),
		RemoteURL:      v.GetString(keyRemoteURL),
		ReportTemplate: v.GetString(keyReportTemplate),
		LogLevel:       v.GetString(keyLogLevel),
		ConfigPath:     configPath,
		DataDir:        dataDir,
		LogPath:        filepath.Join(dataDir, "log", logName),
	}, nil
}

// LedgerPath resolves the ledger file inside the data dir, appending the
// extension conventional for the ledger type when the name has none.
func (c *Config) LedgerPath() string {
	name := c.LedgerFile

	if filepath.Ext(name) == "" {
		switch ledger.Kind(c.LedgerType) {
		case ledger.KindFlatFile:
			name += ".txt"
		case ledger.KindDocument:
			name += ".json"
		case ledger.KindSqlite:
			name += ".db"
		}
	}

	return filepath.Join(c.DataDir, name)
}

// Store assembles the ledger configuration for the factory.
func (c *Config) Store() ledger.Config {
	return ledger.Config{
		Kind:    ledger.Kind(c.LedgerType),
		Path:    c.LedgerPath(),
		BaseURL: c.RemoteURL,
	}
}
