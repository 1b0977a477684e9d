package treedb

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// Well-known table and database names.
const (
	// TableTree holds generic trees and documents.
	TableTree = "tree"
	// TableList holds flat record lists.
	TableList = "list"
	// TableLog holds audit entries in the audit database.
	TableLog = "log"
	// TableOrders holds order records (explicit sibling order per parent).
	TableOrders = "orders"

	// DefaultAuditDatabase is the database audit entries are written to.
	DefaultAuditDatabase = "audit"
)

const (
	defaultCacheTTL = 60 * time.Second
	defaultMaxDepth = 256
	orderCacheSize  = 1024
)

// DefaultTables is the table set created in every database when
// [Config.Tables] is empty.
func DefaultTables() []string {
	return []string{TableTree, TableList, TableLog, TableOrders}
}

// Config provides all settings for [Open].
type Config struct {
	// Dir is the directory holding one "<database>.sqlite" file per database.
	// Created automatically if it doesn't exist.
	Dir string

	// Databases lists the content databases to open. Required.
	Databases []string

	//
	// -----------------------------------------------
	// OPTIONAL SETTINGS (SENSIBLE DEFAULTS PROVIDED)
	// -----------------------------------------------
	//

	// Tables is the set of table types created in every database.
	// Operations on other table names fail with [ErrUnknownTableType].
	// Default: [DefaultTables].
	Tables []string

	// AuditDatabase receives one entry per CRUD operation in its "log" table.
	// Must not be one of Databases. Default: [DefaultAuditDatabase].
	AuditDatabase string

	// DisableAudit turns the audit log off entirely.
	DisableAudit bool

	// CacheTTL is the freshness window of a namespace cache. A read that finds
	// its namespace older than this reloads it from SQLite first. Default: 60s.
	CacheTTL time.Duration

	// MaxDepth bounds tree recursion in [Store.BuildTree] and in docmap,
	// regardless of the depth a caller asks for. Default: 256.
	MaxDepth int

	// Logger receives structured logs. Default: logrus.StandardLogger().
	Logger logrus.FieldLogger

	// Now is the clock used for cache freshness. Default: time.Now.
	Now func() time.Time
}

func (cfg *Config) applyDefaults() {
	if len(cfg.Tables) == 0 {
		cfg.Tables = DefaultTables()
	}

	if cfg.AuditDatabase == "" {
		cfg.AuditDatabase = DefaultAuditDatabase
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}
}

func (cfg *Config) validate() error {
	if cfg.Dir == "" {
		return errors.New("Config.Dir is required")
	}

	if len(cfg.Databases) == 0 {
		return errors.New("Config.Databases is required")
	}

	seen := make(map[string]struct{}, len(cfg.Databases))

	for _, name := range cfg.Databases {
		if !isValidIdentifier(name) {
			return fmt.Errorf("invalid database name %q: must be lowercase a-z, 0-9 and underscore", name)
		}

		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate database %q", name)
		}

		seen[name] = struct{}{}
	}

	if !cfg.DisableAudit {
		if !isValidIdentifier(cfg.AuditDatabase) {
			return fmt.Errorf("invalid audit database name %q", cfg.AuditDatabase)
		}

		if slices.Contains(cfg.Databases, cfg.AuditDatabase) {
			return fmt.Errorf("audit database %q must not be a content database", cfg.AuditDatabase)
		}
	}

	for _, table := range cfg.Tables {
		if !isValidIdentifier(table) {
			return fmt.Errorf("invalid table name %q: must be lowercase a-z, 0-9 and underscore", table)
		}
	}

	return nil
}

// isValidIdentifier reports whether s is safe to splice into SQL as a name.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
