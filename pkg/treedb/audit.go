package treedb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Actor identifies who issued an operation. The HTTP layer supplies it via
// [WithActor]; the store only copies it into audit entries.
type Actor struct {
	ID      string            `json:"id,omitempty"`
	Request map[string]string `json:"request,omitempty"`
}

type actorKey struct{}

// WithActor returns a context carrying actor for audit attribution.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by [WithActor].
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)

	return actor, ok
}

// AuditEntry is one journaled operation.
type AuditEntry struct {
	// ID and Time are taken from the audit node; they are not part of the payload.
	ID   int64     `json:"-"`
	Time time.Time `json:"-"`

	Op       string `json:"op"`
	Database string `json:"database"`
	Table    string `json:"table"`
	TargetID int64  `json:"target_id,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Actor    *Actor `json:"actor,omitempty"`
}

// AuditLog journals CRUD operations as nodes in the "log" table of the
// audit database. Entries are root nodes named by a UUIDv7 and typed by the
// operation name; they are only ever created.
//
// Recording is best-effort: a failed write is logged and counted but never
// changes the outcome of the audited operation, and there is no ordering
// guarantee between the operation and its entry.
type AuditLog struct {
	store *Store
	ns    Namespace
}

// Namespace returns the namespace entries are written to.
func (a *AuditLog) Namespace() Namespace {
	return a.ns
}

// record appends an entry for op. Operations on the audit namespace itself
// are not journaled.
func (a *AuditLog) record(ctx context.Context, op string, target Namespace, id int64, opErr error) {
	if a == nil || target == a.ns {
		return
	}

	entry := AuditEntry{
		Op:       op,
		Database: target.Database,
		Table:    target.Table,
		TargetID: id,
		OK:       opErr == nil,
	}

	if opErr != nil {
		entry.Error = opErr.Error()
	}

	if actor, ok := ActorFrom(ctx); ok {
		entry.Actor = &actor
	}

	// The entry is written even when the caller's context is already done.
	err := a.append(context.WithoutCancel(ctx), entry)
	if err != nil {
		auditFailuresTotal.Inc()

		a.store.log.WithFields(logrus.Fields{
			"op":    op,
			"db":    target.Database,
			"table": target.Table,
			"id":    id,
			"err":   err,
		}).Warn("audit entry not persisted")
	}
}

func (a *AuditLog) append(ctx context.Context, entry AuditEntry) error {
	name, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("entry name: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	release, err := a.store.acquire()
	if err != nil {
		return err
	}
	defer release()

	db, t, err := a.store.resolve(a.ns)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	c, err := a.store.freshLocked(ctx, a.ns, t)
	if err != nil {
		return err
	}

	_, err = a.store.createLocked(ctx, db.sql, t, c, CreateInput{
		Name:     name.String(),
		Type:     Kind(entry.Op),
		Payloads: Payloads{Data: data},
	})

	return err
}

// Entries returns up to limit entries, newest first. limit <= 0 returns all.
func (a *AuditLog) Entries(ctx context.Context, limit int) ([]AuditEntry, error) {
	nodes, err := a.store.Children(ctx, a.ns, 0)
	if err != nil {
		return nil, err
	}

	slices.Reverse(nodes)

	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	entries := make([]AuditEntry, 0, len(nodes))

	for i := range nodes {
		var entry AuditEntry

		err = nodes[i].DecodeData(&entry)
		if err != nil {
			a.store.log.WithFields(logrus.Fields{"id": nodes[i].ID, "err": err}).Warn("skipping malformed audit entry")

			continue
		}

		entry.ID = nodes[i].ID
		entry.Time = time.Unix(nodes[i].CreateTime, 0).UTC()
		entries = append(entries, entry)
	}

	return entries, nil
}
