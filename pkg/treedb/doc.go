// Package treedb is a versioned, tree-structured record store.
//
// Every record is a [Node] living in a table namespace, a (database, table)
// pair backed by one SQLite file per database. Nodes form trees through their
// parent id; the pair (name, pid) is unique among live siblings.
//
// The store keeps three in-memory indexes per namespace (by id, by composite
// key and by parent id) that mirror the SQLite tables. Writers update SQLite
// first and the cache only after the durable write succeeded, so the cache
// never shows state that is not on disk. Data changed out-of-band becomes
// visible once the namespace cache exceeds [Config.CacheTTL] and is reloaded.
//
// Concurrency control is optimistic: [Store.Update] and [Store.Delete] take
// the version the caller last observed and fail with [ErrVersionConflict]
// when the stored row moved on. There is no automatic retry.
//
// Every CRUD operation appends a best-effort entry to the audit log, a
// separate database written through the same primitives.
package treedb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xmdb_treedb_operations_total",
		Help: "Cumulative number of CRUD operations, by operation and outcome.",
	}, []string{"op", "outcome"})
	cacheReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xmdb_treedb_cache_reloads_total",
		Help: "Cumulative number of namespace cache reloads from SQLite.",
	})
	cacheLoadedNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xmdb_treedb_cache_nodes",
		Help: "Number of live nodes held in a namespace cache after its last reload.",
	}, []string{"namespace"})
	auditFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xmdb_treedb_audit_failures_total",
		Help: "Cumulative number of audit entries that could not be persisted.",
	})
)
