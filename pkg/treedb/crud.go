package treedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	opCreate = "create"
	opRead   = "read"
	opUpdate = "update"
	opDelete = "delete"
	opUpsert = "upsert"
)

// Create inserts a new node under in.Pid.
//
// Fails with [ErrParentNotFound] when in.Pid is not 0 and names no live node,
// with [ErrUniqueConstraint] when (in.Pid, in.Name) is taken by a live node
// or a value named in in.UniqueFields already exists, and with
// [ErrMalformedPayload] when a payload is not valid JSON.
//
// The stored node starts at version 1; version_o and version_t start at 1
// when their payload is present and 0 otherwise.
func (s *Store) Create(ctx context.Context, ns Namespace, in CreateInput) (node *Node, err error) {
	defer func() { err = s.finish(ctx, opCreate, ns, nodeID(node), err) }()

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	db, t, err := s.resolve(ns)
	if err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	c, err := s.freshLocked(ctx, ns, t)
	if err != nil {
		return nil, err
	}

	return s.createLocked(ctx, db.sql, t, c, in)
}

// Read returns the live node with id, or nil when there is none.
func (s *Store) Read(ctx context.Context, ns Namespace, id int64) (node *Node, err error) {
	defer func() { err = s.finish(ctx, opRead, ns, id, err) }()

	c, err := s.readCache(ctx, ns)
	if err != nil {
		return nil, err
	}

	node = c.get(id)

	s.log.WithFields(logrus.Fields{
		"op":    opRead,
		"db":    ns.Database,
		"table": ns.Table,
		"id":    id,
		"hit":   node != nil,
	}).Info("read node")

	return node, nil
}

// ReadByKey returns the live node with the composite key, or nil.
func (s *Store) ReadByKey(ctx context.Context, ns Namespace, key CompositeKey) (node *Node, err error) {
	defer func() { err = s.finish(ctx, opRead, ns, nodeID(node), err) }()

	c, err := s.readCache(ctx, ns)
	if err != nil {
		return nil, err
	}

	node = c.getByKey(key)

	s.log.WithFields(logrus.Fields{
		"op":    opRead,
		"db":    ns.Database,
		"table": ns.Table,
		"key":   key.String(),
		"hit":   node != nil,
	}).Info("read node by key")

	return node, nil
}

// Children returns the live direct children of pid, ordered by id.
// An unknown pid yields an empty slice.
func (s *Store) Children(ctx context.Context, ns Namespace, pid int64) ([]Node, error) {
	c, err := s.readCache(ctx, ns)
	if err != nil {
		return nil, withContext(err, "children", ns, pid)
	}

	return c.children(pid), nil
}

// readCache resolves ns and returns its cache, reloading when stale.
func (s *Store) readCache(ctx context.Context, ns Namespace) (*nsCache, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	_, t, err := s.resolve(ns)
	if err != nil {
		return nil, err
	}

	return s.fresh(ctx, ns, t)
}

// Update applies upd to the node with id.
//
// expectedVersion must equal the node's current version, otherwise the call
// fails with [ErrVersionConflict]. The same error is returned when SQLite
// reports that the row changed between the check and the conditional write;
// the cache is not touched in that case.
//
// Each of version, version_o and version_t is incremented only when its own
// payload is supplied and differs from the stored value after JSON
// normalization.
func (s *Store) Update(ctx context.Context, ns Namespace, id int64, upd Update, expectedVersion int64) (node *Node, err error) {
	defer func() { err = s.finish(ctx, opUpdate, ns, id, err) }()

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	_, t, err := s.resolve(ns)
	if err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	c, err := s.freshLocked(ctx, ns, t)
	if err != nil {
		return nil, err
	}

	return s.updateLocked(ctx, t, c, id, upd, expectedVersion)
}

// Delete removes the node with id. A soft delete sets delete_time and keeps
// the row; a hard delete removes it. Either way the node disappears from the
// cache. Children are left in place.
//
// Returns [ErrRecordNotFound] for an unknown id and [ErrVersionConflict] when
// opts.ExpectedVersion is set and stale, or when the row changed underneath.
func (s *Store) Delete(ctx context.Context, ns Namespace, id int64, opts DeleteOptions) (ok bool, err error) {
	defer func() { err = s.finish(ctx, opDelete, ns, id, err) }()

	release, err := s.acquire()
	if err != nil {
		return false, err
	}
	defer release()

	_, t, err := s.resolve(ns)
	if err != nil {
		return false, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	c, err := s.freshLocked(ctx, ns, t)
	if err != nil {
		return false, err
	}

	err = s.deleteLocked(ctx, t, c, id, opts)
	if err != nil {
		return false, err
	}

	return true, nil
}

// Upsert updates the node with key (in.Pid, in.Name) or creates it.
//
// An existing node is updated against the version just read from the cache,
// so the call is last-write-wins with respect to itself; it does not detect
// a writer that changed the node before this call started.
func (s *Store) Upsert(ctx context.Context, ns Namespace, in UpsertInput) (node *Node, err error) {
	defer func() { err = s.finish(ctx, opUpsert, ns, nodeID(node), err) }()

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	db, t, err := s.resolve(ns)
	if err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	c, err := s.freshLocked(ctx, ns, t)
	if err != nil {
		return nil, err
	}

	cur := c.getByKey(CompositeKey{Pid: in.Pid, Name: in.Name})
	if cur == nil {
		return s.createLocked(ctx, db.sql, t, c, CreateInput{
			Pid:      in.Pid,
			Name:     in.Name,
			Type:     in.Type,
			Payloads: in.Payloads,
		})
	}

	upd := Update{
		Data:  in.Payloads.Data,
		DataO: in.Payloads.DataO,
		DataT: in.Payloads.DataT,
	}

	if in.Type != "" && in.Type != cur.Type {
		upd.Type = &in.Type
	}

	return s.updateLocked(ctx, t, c, cur.ID, upd, cur.Version)
}

func (s *Store) createLocked(ctx context.Context, db *sql.DB, t *table, c *nsCache, in CreateInput) (*Node, error) {
	if in.Pid != 0 && c.get(in.Pid) == nil {
		return nil, fmt.Errorf("%w: pid %d", ErrParentNotFound, in.Pid)
	}

	key := CompositeKey{Pid: in.Pid, Name: in.Name}
	if c.getByKey(key) != nil {
		return nil, fmt.Errorf("%w: composite key %s", ErrUniqueConstraint, key)
	}

	data, err := normalizePayload(in.Payloads.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	dataO, err := normalizePayload(in.Payloads.DataO)
	if err != nil {
		return nil, fmt.Errorf("data_o: %w", err)
	}

	dataT, err := normalizePayload(in.Payloads.DataT)
	if err != nil {
		return nil, fmt.Errorf("data_t: %w", err)
	}

	n := &Node{
		Pid:      in.Pid,
		Name:     in.Name,
		Key:      key.String(),
		Type:     in.Type,
		Version:  1,
		VersionO: initialVersion(dataO),
		VersionT: initialVersion(dataT),
		Data:     data,
		DataO:    dataO,
		DataT:    dataT,
	}

	for _, field := range in.UniqueFields {
		value, present := uniqueFieldValue(n, field)
		if !present {
			continue
		}

		exists, checkErr := uniqueValueExists(ctx, db, t.stmts.name, field, value)
		if checkErr != nil {
			return nil, checkErr
		}

		if exists {
			return nil, fmt.Errorf("%w: field %s", ErrUniqueConstraint, field)
		}
	}

	stored, err := t.stmts.insertNode(ctx, n)
	if err != nil {
		return nil, err
	}

	c.insert(stored)

	return stored, nil
}

func (s *Store) updateLocked(ctx context.Context, t *table, c *nsCache, id int64, upd Update, expectedVersion int64) (*Node, error) {
	cur := c.get(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}

	if cur.Version != expectedVersion {
		return nil, fmt.Errorf("%w: expected version %d, stored %d", ErrVersionConflict, expectedVersion, cur.Version)
	}

	next := *cur

	if upd.Name != nil {
		next.Name = *upd.Name
	}

	if upd.Type != nil {
		next.Type = *upd.Type
	}

	if upd.Pid != nil && *upd.Pid != cur.Pid {
		next.Pid = *upd.Pid

		if next.Pid != 0 {
			if c.get(next.Pid) == nil {
				return nil, fmt.Errorf("%w: pid %d", ErrParentNotFound, next.Pid)
			}

			if c.isAncestor(id, next.Pid, s.cfg.MaxDepth) {
				return nil, fmt.Errorf("%w: %d under %d", ErrCycle, id, next.Pid)
			}
		}
	}

	key := next.CompositeKey()
	if other := c.getByKey(key); other != nil && other.ID != id {
		return nil, fmt.Errorf("%w: composite key %s", ErrUniqueConstraint, key)
	}

	next.Key = key.String()

	payloads := []struct {
		name    string
		in      json.RawMessage
		dst     *json.RawMessage
		counter *int64
	}{
		{"data", upd.Data, &next.Data, &next.Version},
		{"data_o", upd.DataO, &next.DataO, &next.VersionO},
		{"data_t", upd.DataT, &next.DataT, &next.VersionT},
	}

	for _, p := range payloads {
		if p.in == nil {
			continue
		}

		norm, err := normalizePayload(p.in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}

		if payloadChanged(*p.dst, norm) {
			*p.dst = norm
			*p.counter++
		}
	}

	stored, err := t.stmts.updateNode(ctx, cur, &next)
	if err != nil {
		return nil, err
	}

	c.replace(cur, stored)

	return stored, nil
}

func (s *Store) deleteLocked(ctx context.Context, t *table, c *nsCache, id int64, opts DeleteOptions) error {
	cur := c.get(id)
	if cur == nil {
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}

	version := cur.Version

	if opts.ExpectedVersion != nil {
		if *opts.ExpectedVersion != cur.Version {
			return fmt.Errorf("%w: expected version %d, stored %d", ErrVersionConflict, *opts.ExpectedVersion, cur.Version)
		}

		version = *opts.ExpectedVersion
	}

	ok, err := t.stmts.deleteNode(ctx, id, version, opts.Hard)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: stored row changed since version %d", ErrVersionConflict, version)
	}

	c.remove(id)

	return nil
}

// finish records metrics and the audit entry of a CRUD operation and
// attaches operation context to err.
func (s *Store) finish(ctx context.Context, op string, ns Namespace, id int64, err error) error {
	operationsTotal.WithLabelValues(op, outcome(err)).Inc()

	if s != nil && s.audit != nil && !errors.Is(err, ErrClosed) {
		s.audit.record(ctx, op, ns, id, err)
	}

	return withContext(err, op, ns, id)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrUniqueConstraint):
		return "unique_violation"
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrParentNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func nodeID(n *Node) int64 {
	if n == nil {
		return 0
	}

	return n.ID
}

// uniqueFieldValue returns the value of a unique-checkable column.
// NULL payloads report present=false; NULL never collides.
func uniqueFieldValue(n *Node, field string) (any, bool) {
	switch field {
	case "name":
		return n.Name, true
	case "key":
		return n.Key, true
	case "type":
		return string(n.Type), true
	case "data":
		return string(n.Data), n.Data != nil
	case "data_o":
		return string(n.DataO), n.DataO != nil
	case "data_t":
		return string(n.DataT), n.DataT != nil
	default:
		// Unknown fields fail in uniqueValueExists.
		return nil, true
	}
}
