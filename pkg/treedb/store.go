package treedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store owns the SQLite handles, namespace caches and audit log of a set of
// databases.
//
// # Concurrency
//
// Safe for concurrent use. Writers to the same namespace are serialized by a
// per-table mutex, which keeps each "check cache, write SQLite, update cache"
// sequence from interleaving with another. Reads never take that mutex unless
// they have to reload a stale namespace; concurrent reloads of the same
// namespace are collapsed into one.
//
// The conditional UPDATE/DELETE remains the authoritative version check: a
// write that lost against an out-of-band writer fails with
// [ErrVersionConflict] and leaves the cache untouched.
type Store struct {
	cfg     Config
	log     logrus.FieldLogger
	cache   *cacheIndex
	reloads singleflight.Group
	orders  *lru.Cache
	audit   *AuditLog
	closed  atomic.Bool

	// mu guards dbs against Close. Operations hold it shared.
	mu  sync.RWMutex
	dbs map[string]*database
}

// database is one open SQLite file.
type database struct {
	name   string
	path   string
	sql    *sql.DB
	lock   *dbLock
	tables map[string]*table
}

// table is one table type inside a database.
type table struct {
	stmts *tableStmts

	// writeMu serializes writers (and reloads) of this namespace.
	writeMu sync.Mutex
}

// Open opens (creating if needed) every configured database under cfg.Dir,
// takes an exclusive process lock on each and creates the configured tables.
//
// Caches are loaded lazily on first access of a namespace.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}

	cfg.applyDefaults()

	err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	err = os.MkdirAll(cfg.Dir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	orders, err := lru.New(orderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating order cache: %w", err)
	}

	s := &Store{
		cfg:    cfg,
		log:    cfg.Logger,
		cache:  newCacheIndex(),
		orders: orders,
		dbs:    make(map[string]*database),
	}

	names := slices.Clone(cfg.Databases)
	if !cfg.DisableAudit {
		names = append(names, cfg.AuditDatabase)
	}

	for _, name := range names {
		tables := cfg.Tables
		if name == cfg.AuditDatabase && !slices.Contains(tables, TableLog) {
			tables = append(slices.Clone(tables), TableLog)
		}

		db, openErr := openDatabase(ctx, cfg.Dir, name, tables)
		if openErr != nil {
			closeErr := s.Close()

			return nil, errors.Join(fmt.Errorf("opening database %s: %w", name, openErr), closeErr)
		}

		s.dbs[name] = db
	}

	if !cfg.DisableAudit {
		s.audit = &AuditLog{store: s, ns: Namespace{Database: cfg.AuditDatabase, Table: TableLog}}
	}

	return s, nil
}

func openDatabase(ctx context.Context, dir, name string, tables []string) (*database, error) {
	path := filepath.Join(dir, name+".sqlite")

	lock, err := acquireLock(filepath.Join(dir, name+".lock"))
	if err != nil {
		return nil, err
	}

	sqlDB, err := openSqlite(ctx, path)
	if err != nil {
		return nil, errors.Join(err, lock.Close())
	}

	db := &database{
		name:   name,
		path:   path,
		sql:    sqlDB,
		lock:   lock,
		tables: make(map[string]*table, len(tables)),
	}

	for _, tableName := range tables {
		err = createTable(ctx, sqlDB, tableName)
		if err != nil {
			return nil, errors.Join(err, db.close())
		}

		stmts, prepErr := prepareTable(ctx, sqlDB, tableName)
		if prepErr != nil {
			return nil, errors.Join(prepErr, db.close())
		}

		db.tables[tableName] = &table{stmts: stmts}
	}

	return db, nil
}

func (db *database) close() error {
	var errs []error

	for _, t := range db.tables {
		t.stmts.Close()
	}

	if db.sql != nil {
		err := db.sql.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("sqlite: %w", err))
		}

		db.sql = nil
	}

	err := db.lock.Close()
	if err != nil {
		errs = append(errs, fmt.Errorf("lock: %w", err))
	}

	return errors.Join(errs...)
}

// Close closes every database and invalidates their caches.
// Waits for in-flight operations. Safe on nil, idempotent.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil
	}

	s.closed.Store(true)

	var errs []error

	for name, db := range s.dbs {
		err := db.close()
		if err != nil {
			errs = append(errs, fmt.Errorf("database %s: %w", name, err))
		}

		s.cache.dropDatabase(name)
	}

	s.dbs = nil
	s.orders.Purge()

	return errors.Join(errs...)
}

// Config returns the effective configuration (defaults applied).
func (s *Store) Config() Config {
	return s.cfg
}

// Audit returns the audit log, or nil when auditing is disabled.
func (s *Store) Audit() *AuditLog {
	return s.audit
}

// acquire takes the shared store lock. The returned release must be called.
func (s *Store) acquire() (func(), error) {
	if s == nil {
		return nil, ErrClosed
	}

	s.mu.RLock()

	if s.closed.Load() {
		s.mu.RUnlock()

		return nil, ErrClosed
	}

	return s.mu.RUnlock, nil
}

// resolve maps a namespace to its database and table.
func (s *Store) resolve(ns Namespace) (*database, *table, error) {
	db, ok := s.dbs[ns.Database]
	if !ok {
		return nil, nil, fmt.Errorf("%w: database %q", ErrNamespaceNotFound, ns.Database)
	}

	t, ok := db.tables[ns.Table]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTableType, ns.Table)
	}

	return db, t, nil
}

// isStale reports whether c must be (re)loaded before serving a read.
func (s *Store) isStale(c *nsCache) bool {
	loadedAt, ok := c.loaded()
	if !ok {
		return true
	}

	return s.cfg.Now().Sub(loadedAt) > s.cfg.CacheTTL
}

// fresh returns the cache of ns, reloading it first when stale.
// Must not be called while holding t.writeMu; see freshLocked.
func (s *Store) fresh(ctx context.Context, ns Namespace, t *table) (*nsCache, error) {
	c := s.cache.namespace(ns)
	if !s.isStale(c) {
		return c, nil
	}

	_, err, _ := s.reloads.Do(ns.String(), func() (any, error) {
		t.writeMu.Lock()
		defer t.writeMu.Unlock()

		// Another caller may have reloaded while we waited for the writer lock.
		if !s.isStale(c) {
			return nil, nil
		}

		return nil, s.load(ctx, ns, t, c)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // load wraps
	}

	return c, nil
}

// freshLocked is fresh for callers already holding t.writeMu.
func (s *Store) freshLocked(ctx context.Context, ns Namespace, t *table) (*nsCache, error) {
	c := s.cache.namespace(ns)
	if !s.isStale(c) {
		return c, nil
	}

	err := s.load(ctx, ns, t, c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// load rebuilds all three maps of ns from a full scan of live rows.
// Caller holds t.writeMu so no write lands between scan and swap.
func (s *Store) load(ctx context.Context, ns Namespace, t *table, c *nsCache) error {
	loadedAt := s.cfg.Now()

	nodes, err := t.stmts.loadLive(ctx)
	if err != nil {
		return fmt.Errorf("loading %s: %w", ns, err)
	}

	c.swap(newGeneration(nodes, loadedAt))

	cacheReloadsTotal.Inc()
	cacheLoadedNodes.WithLabelValues(ns.String()).Set(float64(len(nodes)))

	s.log.WithFields(logrus.Fields{
		"db":    ns.Database,
		"table": ns.Table,
		"nodes": len(nodes),
	}).Debug("namespace cache loaded")

	return nil
}

// Reload forces a full reload of the namespace cache from SQLite.
func (s *Store) Reload(ctx context.Context, ns Namespace) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	_, t, err := s.resolve(ns)
	if err != nil {
		return withContext(err, "reload", ns, 0)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return withContext(s.load(ctx, ns, t, s.cache.namespace(ns)), "reload", ns, 0)
}

// Stats summarizes a namespace.
type Stats struct {
	Namespace Namespace
	// Live is the number of live nodes in the cache.
	Live int
	// Deleted is the number of soft-deleted rows in SQLite.
	Deleted int
	// FileSize is the size of the database file in bytes.
	FileSize int64
}

// Stats reports node counts for ns and the size of its database file.
func (s *Store) Stats(ctx context.Context, ns Namespace) (Stats, error) {
	release, err := s.acquire()
	if err != nil {
		return Stats{}, err
	}
	defer release()

	db, t, err := s.resolve(ns)
	if err != nil {
		return Stats{}, withContext(err, "stats", ns, 0)
	}

	c, err := s.fresh(ctx, ns, t)
	if err != nil {
		return Stats{}, withContext(err, "stats", ns, 0)
	}

	st := Stats{Namespace: ns, Live: c.size()}

	err = db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+ns.Table+` WHERE delete_time IS NOT NULL`,
	).Scan(&st.Deleted)
	if err != nil {
		return Stats{}, withContext(fmt.Errorf("sqlite: count deleted: %w", err), "stats", ns, 0)
	}

	info, err := os.Stat(db.path)
	if err != nil {
		return Stats{}, withContext(fmt.Errorf("stat database file: %w", err), "stats", ns, 0)
	}

	st.FileSize = info.Size()

	return st, nil
}
