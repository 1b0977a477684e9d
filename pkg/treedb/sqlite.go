package treedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// sqliteBusyTimeoutMs is the time SQLite waits when the database is locked.
// After this, operations return SQLITE_BUSY.
const sqliteBusyTimeoutMs = 10000 // milliseconds

// sqlNow is the store-assigned timestamp in epoch seconds.
const sqlNow = "CAST(strftime('%s', 'now') AS INTEGER)"

// nodeColumns is the select list matching scanNode.
const nodeColumns = `id, pid, name, "key", type, version, version_o, version_t,
	data, data_o, data_t, create_time, update_time, delete_time`

// uniqueFieldColumns are the columns callers may name in CreateInput.UniqueFields.
var uniqueFieldColumns = map[string]string{
	"name":   "name",
	"key":    `"key"`,
	"type":   "type",
	"data":   "data",
	"data_o": "data_o",
	"data_t": "data_t",
}

// openSqlite opens a database file and applies the configured pragmas.
func openSqlite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	// Ensure per-connection PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
		}

		return nil, errors.Join(fmt.Errorf("sqlite: ping: %w", err), closeErr)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		PRAGMA cache_size = -20000;
		PRAGMA temp_store = MEMORY;
	`, sqliteBusyTimeoutMs))
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
		}

		return nil, errors.Join(fmt.Errorf("sqlite: apply pragmas: %w", err), closeErr)
	}

	return db, nil
}

// createTable creates the node table and its indexes if missing.
//
// The partial unique index on (pid, name) backs the composite-key check done
// in the cache, so a stale cache cannot admit duplicates.
func createTable(ctx context.Context, db *sql.DB, name string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + name + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pid INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL,
			"key" TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			version_o INTEGER NOT NULL DEFAULT 0,
			version_t INTEGER NOT NULL DEFAULT 0,
			data TEXT,
			data_o TEXT,
			data_t TEXT,
			create_time INTEGER NOT NULL,
			update_time INTEGER NOT NULL,
			delete_time INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + name + `_pid ON ` + name + `(pid) WHERE delete_time IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + name + `_live_key ON ` + name + `(pid, name) WHERE delete_time IS NULL`,
	}

	for i, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("sqlite: table %s: schema statement %d: %w", name, i+1, err)
		}
	}

	return nil
}

// tableStmts holds the prepared statements of one table.
type tableStmts struct {
	name       string
	insert     *sql.Stmt
	update     *sql.Stmt
	softDelete *sql.Stmt
	hardDelete *sql.Stmt
	selectLive *sql.Stmt
}

// prepareTable creates prepared statements for a table.
func prepareTable(ctx context.Context, db *sql.DB, name string) (*tableStmts, error) {
	ts := &tableStmts{name: name}

	success := false

	defer func() {
		if !success {
			ts.Close()
		}
	}()

	queries := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&ts.insert, `INSERT INTO ` + name + ` (
				pid, name, "key", type, version, version_o, version_t,
				data, data_o, data_t, create_time, update_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ` + sqlNow + `, ` + sqlNow + `)
			RETURNING ` + nodeColumns},
		{&ts.update, `UPDATE ` + name + ` SET
				pid = ?, name = ?, "key" = ?, type = ?,
				version = ?, version_o = ?, version_t = ?,
				data = ?, data_o = ?, data_t = ?,
				update_time = ` + sqlNow + `
			WHERE id = ? AND delete_time IS NULL
				AND version = ? AND version_o = ? AND version_t = ?
				AND pid = ? AND name = ?
			RETURNING ` + nodeColumns},
		{&ts.softDelete, `UPDATE ` + name + ` SET delete_time = ` + sqlNow + `, update_time = ` + sqlNow + `
			WHERE id = ? AND delete_time IS NULL AND version = ?`},
		{&ts.hardDelete, `DELETE FROM ` + name + ` WHERE id = ? AND delete_time IS NULL AND version = ?`},
		{&ts.selectLive, `SELECT ` + nodeColumns + ` FROM ` + name + ` WHERE delete_time IS NULL ORDER BY id`},
	}

	for _, q := range queries {
		stmt, err := db.PrepareContext(ctx, q.query)
		if err != nil {
			return nil, fmt.Errorf("sqlite: prepare %s: %w", name, err)
		}

		*q.dst = stmt
	}

	success = true

	return ts, nil
}

// Close releases the prepared statements.
func (ts *tableStmts) Close() {
	for _, stmt := range []*sql.Stmt{ts.insert, ts.update, ts.softDelete, ts.hardDelete, ts.selectLive} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// insertNode writes a new row and returns it as stored.
func (ts *tableStmts) insertNode(ctx context.Context, n *Node) (*Node, error) {
	row := ts.insert.QueryRowContext(ctx,
		n.Pid, n.Name, n.Key, string(n.Type),
		n.Version, n.VersionO, n.VersionT,
		nullPayload(n.Data), nullPayload(n.DataO), nullPayload(n.DataT),
	)

	stored, err := scanNode(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: composite key %s", ErrUniqueConstraint, n.Key)
		}

		return nil, fmt.Errorf("sqlite: insert into %s: %w", ts.name, err)
	}

	return stored, nil
}

// updateNode writes next over prev, conditional on prev's counters, name and
// pid still being stored. Zero matching rows means another writer got there
// first and is reported as [ErrVersionConflict].
func (ts *tableStmts) updateNode(ctx context.Context, prev, next *Node) (*Node, error) {
	row := ts.update.QueryRowContext(ctx,
		next.Pid, next.Name, next.Key, string(next.Type),
		next.Version, next.VersionO, next.VersionT,
		nullPayload(next.Data), nullPayload(next.DataO), nullPayload(next.DataT),
		prev.ID,
		prev.Version, prev.VersionO, prev.VersionT,
		prev.Pid, prev.Name,
	)

	stored, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: stored row changed since version %d", ErrVersionConflict, prev.Version)
		}

		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: composite key %s", ErrUniqueConstraint, next.Key)
		}

		return nil, fmt.Errorf("sqlite: update %s: %w", ts.name, err)
	}

	return stored, nil
}

// deleteNode soft- or hard-deletes the row if it still has version.
// Returns false when no row matched.
func (ts *tableStmts) deleteNode(ctx context.Context, id int64, version int64, hard bool) (bool, error) {
	stmt := ts.softDelete
	if hard {
		stmt = ts.hardDelete
	}

	res, err := stmt.ExecContext(ctx, id, version)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete from %s: %w", ts.name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: delete from %s: rows affected: %w", ts.name, err)
	}

	return affected > 0, nil
}

// loadLive reads every live row ordered by id.
func (ts *tableStmts) loadLive(ctx context.Context) ([]*Node, error) {
	rows, err := ts.selectLive.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan %s: %w", ts.name, err)
	}

	defer func() { _ = rows.Close() }()

	var nodes []*Node

	for rows.Next() {
		n, scanErr := scanNode(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", ts.name, scanErr)
		}

		nodes = append(nodes, n)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan %s: rows: %w", ts.name, err)
	}

	return nodes, nil
}

// uniqueValueExists reports whether a live row has value in column field.
func uniqueValueExists(ctx context.Context, db *sql.DB, table string, field string, value any) (bool, error) {
	column, ok := uniqueFieldColumns[field]
	if !ok {
		return false, fmt.Errorf("unique field %q: not one of name, key, type, data, data_o, data_t", field)
	}

	var exists int

	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE delete_time IS NULL AND `+column+` = ? LIMIT 1`, value,
	).Scan(&exists)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return false, fmt.Errorf("sqlite: unique check %s.%s: %w", table, field, err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode reads one row in nodeColumns order.
func scanNode(row rowScanner) (*Node, error) {
	var (
		n          Node
		typ        string
		data       sql.NullString
		dataO      sql.NullString
		dataT      sql.NullString
		deleteTime sql.NullInt64
	)

	err := row.Scan(
		&n.ID,
		&n.Pid,
		&n.Name,
		&n.Key,
		&typ,
		&n.Version,
		&n.VersionO,
		&n.VersionT,
		&data,
		&dataO,
		&dataT,
		&n.CreateTime,
		&n.UpdateTime,
		&deleteTime,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with table context
	}

	n.Type = Kind(typ)
	n.Data = payloadFromNull(data)
	n.DataO = payloadFromNull(dataO)
	n.DataT = payloadFromNull(dataT)

	if deleteTime.Valid {
		t := deleteTime.Int64
		n.DeleteTime = &t
	}

	return &n, nil
}

func nullPayload(raw json.RawMessage) sql.NullString {
	if raw == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(raw), Valid: true}
}

func payloadFromNull(value sql.NullString) json.RawMessage {
	if !value.Valid {
		return nil
	}

	return json.RawMessage(value.String)
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
