package treedb_test

import (
	"database/sql"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

const testDatabase = "content"

var treeNS = treedb.Namespace{Database: testDatabase, Table: treedb.TableTree}

// -----------------------------------------------------------------------------
// Clock
// -----------------------------------------------------------------------------

// testClock is a manually advanced clock for cache freshness tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Store helpers
// -----------------------------------------------------------------------------

type testOpt func(*treedb.Config)

func withClock(c *testClock) testOpt {
	return func(cfg *treedb.Config) { cfg.Now = c.Now }
}

func withoutAudit() testOpt {
	return func(cfg *treedb.Config) { cfg.DisableAudit = true }
}

func withMaxDepth(depth int) testOpt {
	return func(cfg *treedb.Config) { cfg.MaxDepth = depth }
}

func testConfig(dir string, opts ...testOpt) treedb.Config {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := treedb.Config{
		Dir:       dir,
		Databases: []string{testDatabase},
		Logger:    logger,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// openTestStore opens a store in dir and closes it on cleanup.
func openTestStore(t *testing.T, dir string, opts ...testOpt) *treedb.Store {
	t.Helper()

	s, err := treedb.Open(t.Context(), testConfig(dir, opts...))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func mustCreate(t *testing.T, s *treedb.Store, pid int64, name string, data any) *treedb.Node {
	t.Helper()

	in := treedb.CreateInput{Pid: pid, Name: name, Type: "item"}
	if data != nil {
		in.Payloads.Data = treedb.JSON(data)
	}

	n, err := s.Create(t.Context(), treeNS, in)
	if err != nil {
		t.Fatalf("create %q under %d: %v", name, pid, err)
	}

	return n
}

func mustRead(t *testing.T, s *treedb.Store, id int64) *treedb.Node {
	t.Helper()

	n, err := s.Read(t.Context(), treeNS, id)
	if err != nil {
		t.Fatalf("read %d: %v", id, err)
	}

	if n == nil {
		t.Fatalf("read %d: not found", id)
	}

	return n
}

func childIDs(t *testing.T, s *treedb.Store, pid int64) []int64 {
	t.Helper()

	children, err := s.Children(t.Context(), treeNS, pid)
	if err != nil {
		t.Fatalf("children of %d: %v", pid, err)
	}

	ids := make([]int64, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}

	return ids
}

// openSideConn opens a second SQLite connection to the content database,
// standing in for an out-of-band writer.
func openSideConn(t *testing.T, dir string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(dir, testDatabase+".sqlite"))
	if err != nil {
		t.Fatalf("open side connection: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func execSide(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()

	_, err := db.ExecContext(t.Context(), query, args...)
	if err != nil {
		t.Fatalf("side write %q: %v", query, err)
	}
}
