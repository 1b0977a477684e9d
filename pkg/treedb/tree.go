package treedb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"
)

// TreeNode is a node with its expanded children.
//
// Children is nil for nodes at the depth limit and for leaves.
type TreeNode struct {
	Node

	Children []*TreeNode `json:"children,omitempty"`
}

// TreeOptions controls [Store.BuildTree].
type TreeOptions struct {
	// RootID is the node to start from; 0 starts from every root (pid 0).
	RootID int64

	// MaxDepth is the number of levels returned. 1 returns the roots without
	// children. <= 0 or values above [Config.MaxDepth] use Config.MaxDepth.
	MaxDepth int

	// Page (1-based) and Limit paginate each sibling list independently.
	// Limit <= 0 disables pagination.
	Page  int
	Limit int
}

// BuildTree assembles the subtree(s) below opts.RootID from the adjacency
// cache.
//
// Siblings follow the parent's order record when one exists (see
// [Store.SetOrder]); ids missing from it come last in id order. Pagination
// applies to every sibling list separately, including the list of roots, so
// it bounds the branching factor rather than the node count.
//
// An unknown RootID yields an empty result.
func (s *Store) BuildTree(ctx context.Context, ns Namespace, opts TreeOptions) ([]*TreeNode, error) {
	c, err := s.readCache(ctx, ns)
	if err != nil {
		return nil, withContext(err, "tree", ns, opts.RootID)
	}

	b := &treeBuilder{
		store:    s,
		ns:       ns,
		cache:    c,
		maxDepth: opts.MaxDepth,
		page:     opts.Page,
		limit:    opts.Limit,
	}

	if b.maxDepth <= 0 || b.maxDepth > s.cfg.MaxDepth {
		b.maxDepth = s.cfg.MaxDepth
	}

	b.orders, err = s.orderCache(ctx, ns)
	if err != nil {
		return nil, withContext(err, "tree", ns, opts.RootID)
	}

	var roots []Node

	if opts.RootID == 0 {
		roots = b.siblings(0)
	} else {
		root := c.get(opts.RootID)
		if root == nil {
			return []*TreeNode{}, nil
		}

		roots = []Node{*root}
	}

	out := make([]*TreeNode, 0, len(roots))
	for _, root := range roots {
		out = append(out, b.build(root, 1))
	}

	return out, nil
}

type treeBuilder struct {
	store    *Store
	ns       Namespace
	cache    *nsCache
	orders   *nsCache // nil when the namespace has no order records
	maxDepth int
	page     int
	limit    int
}

func (b *treeBuilder) build(n Node, depth int) *TreeNode {
	tn := &TreeNode{Node: n}

	if depth >= b.maxDepth {
		return tn
	}

	children := b.siblings(n.ID)
	if len(children) == 0 {
		return tn
	}

	tn.Children = make([]*TreeNode, 0, len(children))
	for _, child := range children {
		tn.Children = append(tn.Children, b.build(child, depth+1))
	}

	return tn
}

// siblings returns the ordered, paginated children of pid.
func (b *treeBuilder) siblings(pid int64) []Node {
	children := b.cache.children(pid)

	if order := b.order(pid); len(order) > 0 {
		sortByOrder(children, order)
	}

	return paginate(children, b.page, b.limit)
}

func (b *treeBuilder) order(pid int64) []int64 {
	if b.orders == nil {
		return nil
	}

	rec := b.orders.getByKey(orderKey(b.ns.Table, pid))
	if rec == nil {
		return nil
	}

	return b.store.decodeOrder(b.ns, rec)
}

// sortByOrder stably sorts nodes by their position in order.
// Ids not in order keep their relative order after all ordered ids.
func sortByOrder(nodes []Node, order []int64) {
	rank := make(map[int64]int, len(order))

	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}

	unranked := len(order)

	slices.SortStableFunc(nodes, func(a, b Node) int {
		ra, ok := rank[a.ID]
		if !ok {
			ra = unranked
		}

		rb, ok := rank[b.ID]
		if !ok {
			rb = unranked
		}

		return ra - rb
	})
}

func paginate(nodes []Node, page, limit int) []Node {
	if limit <= 0 {
		return nodes
	}

	if page < 1 {
		page = 1
	}

	start := (page - 1) * limit
	if start >= len(nodes) {
		return []Node{}
	}

	end := min(start+limit, len(nodes))

	return nodes[start:end]
}

// orderKey is the composite key of the order record for pid in table.
func orderKey(table string, pid int64) CompositeKey {
	return CompositeKey{Pid: 0, Name: table + "/" + strconv.FormatInt(pid, 10)}
}

// orderNamespace returns the namespace holding order records for ns, and
// false when ns cannot have any.
func (s *Store) orderNamespace(ns Namespace) (Namespace, bool) {
	if ns.Table == TableOrders {
		return Namespace{}, false
	}

	db, ok := s.dbs[ns.Database]
	if !ok {
		return Namespace{}, false
	}

	if _, ok := db.tables[TableOrders]; !ok {
		return Namespace{}, false
	}

	return Namespace{Database: ns.Database, Table: TableOrders}, true
}

// orderCache returns the fresh cache of the order namespace for ns, or nil.
func (s *Store) orderCache(ctx context.Context, ns Namespace) (*nsCache, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}

	orderNS, ok := s.orderNamespace(ns)
	if !ok {
		release()

		return nil, nil
	}

	release()

	return s.readCache(ctx, orderNS)
}

type orderCacheKey struct {
	ns      Namespace
	id      int64
	version int64
}

// decodeOrder returns the id list of an order record. Decoded lists are
// memoized by (record id, version). A malformed record is logged and ignored.
func (s *Store) decodeOrder(ns Namespace, rec *Node) []int64 {
	key := orderCacheKey{ns: ns, id: rec.ID, version: rec.Version}

	if cached, ok := s.orders.Get(key); ok {
		ids, _ := cached.([]int64)

		return ids
	}

	var ids []int64

	err := rec.DecodeData(&ids)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"db":    ns.Database,
			"table": ns.Table,
			"order": rec.Name,
			"err":   err,
		}).Warn("ignoring malformed order record")

		ids = nil
	}

	s.orders.Add(key, ids)

	return ids
}

// SetOrder stores the explicit sibling order of pid's children in ns.
// The record lives in the "orders" table of the same database.
func (s *Store) SetOrder(ctx context.Context, ns Namespace, pid int64, ids []int64) (*Node, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}

	orderNS, ok := s.orderNamespace(ns)
	release()

	if !ok {
		return nil, withContext(fmt.Errorf("%w: no %s table for %s", ErrUnknownTableType, TableOrders, ns), "order", ns, pid)
	}

	if ids == nil {
		ids = []int64{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encoding order: %w", err)
	}

	key := orderKey(ns.Table, pid)

	return s.Upsert(ctx, orderNS, UpsertInput{
		Pid:      key.Pid,
		Name:     key.Name,
		Type:     Kind(TableOrders),
		Payloads: Payloads{Data: data},
	})
}

// Order returns the explicit sibling order of pid's children, or nil.
func (s *Store) Order(ctx context.Context, ns Namespace, pid int64) ([]int64, error) {
	c, err := s.orderCache(ctx, ns)
	if err != nil {
		return nil, withContext(err, "order", ns, pid)
	}

	if c == nil {
		return nil, nil
	}

	rec := c.getByKey(orderKey(ns.Table, pid))
	if rec == nil {
		return nil, nil
	}

	return s.decodeOrder(ns, rec), nil
}
