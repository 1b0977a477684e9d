// Package config loads xmdb configuration from JSONC files and CLI overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDataDirEmpty       = errors.New("data_dir cannot be empty")
)

// FileName is the project config file looked up in the working directory.
const FileName = ".xmdb.json"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DataDir      string   `json:"data_dir"`
	ContentDB    string   `json:"content_db"`
	AuditDB      string   `json:"audit_db"`
	Tables       []string `json:"tables,omitempty"`
	CacheTTL     string   `json:"cache_ttl,omitempty"`
	LogLevel     string   `json:"log_level,omitempty"`
	MaxTreeDepth int      `json:"max_tree_depth,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string        `json:"-"`
	DataDirAbs   string        `json:"-"`
	TTL          time.Duration `json:"-"`
	Level        logrus.Level  `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir:      ".xmdb",
		ContentDB:    "content",
		AuditDB:      treedb.DefaultAuditDatabase,
		Tables:       treedb.DefaultTables(),
		CacheTTL:     "60s",
		LogLevel:     "warn",
		MaxTreeDepth: 256,
	}
}

// globalPath returns $XDG_CONFIG_HOME/xmdb/config.json, falling back to
// ~/.config/xmdb/config.json. Empty when neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "xmdb", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "xmdb", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	DataDirOverride string            // --data-dir flag value; empty means no override
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/xmdb/config.json or ~/.config/xmdb/config.json)
// 3. Project config file (.xmdb.json, if exists)
// 4. Explicit config file via ConfigPath (replaces the project file)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	globalCfg, gPath, err := loadOptional(globalPath(input.Env))
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = gPath
	cfg = merge(cfg, globalCfg)

	projectCfg, pPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = pPath
	cfg = merge(cfg, projectCfg)

	if input.DataDirOverride != "" {
		cfg.DataDir = input.DataDirOverride
	}

	err = resolve(&cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DataDir) {
		cfg.DataDirAbs = cfg.DataDir
	} else {
		cfg.DataDirAbs = filepath.Join(workDir, cfg.DataDir)
	}

	return cfg, nil
}

func loadOptional(path string) (Config, string, error) {
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads .xmdb.json from workDir, or the explicit file when set.
func loadProject(workDir, configPath string) (Config, string, error) {
	if configPath == "" {
		return loadOptional(filepath.Join(workDir, FileName))
	}

	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	_, statErr := os.Stat(path)
	if statErr != nil {
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadFile(path, true)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile reads a config file. When mustExist is false a missing file is
// not an error and reports loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from flags/env
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicit "" would otherwise be indistinguishable from "not set".
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, exists := raw["data_dir"]; exists {
		if str, ok := val.(string); ok && str == "" {
			return Config{}, ErrDataDirEmpty
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}

	if overlay.ContentDB != "" {
		base.ContentDB = overlay.ContentDB
	}

	if overlay.AuditDB != "" {
		base.AuditDB = overlay.AuditDB
	}

	if len(overlay.Tables) > 0 {
		base.Tables = overlay.Tables
	}

	if overlay.CacheTTL != "" {
		base.CacheTTL = overlay.CacheTTL
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.MaxTreeDepth != 0 {
		base.MaxTreeDepth = overlay.MaxTreeDepth
	}

	return base
}

// resolve validates cfg and fills the parsed fields.
func resolve(cfg *Config) error {
	if cfg.DataDir == "" {
		return ErrDataDirEmpty
	}

	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("%w: cache_ttl: %w", ErrConfigInvalid, err)
	}

	if ttl <= 0 {
		return fmt.Errorf("%w: cache_ttl must be positive", ErrConfigInvalid)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrConfigInvalid, err)
	}

	if cfg.MaxTreeDepth < 0 {
		return fmt.Errorf("%w: max_tree_depth must not be negative", ErrConfigInvalid)
	}

	cfg.TTL = ttl
	cfg.Level = level

	return nil
}

// Store returns the treedb configuration for cfg.
func (cfg Config) Store(logger logrus.FieldLogger) treedb.Config {
	return treedb.Config{
		Dir:           cfg.DataDirAbs,
		Databases:     []string{cfg.ContentDB},
		Tables:        cfg.Tables,
		AuditDatabase: cfg.AuditDB,
		CacheTTL:      cfg.TTL,
		MaxDepth:      cfg.MaxTreeDepth,
		Logger:        logger,
	}
}
