package treedb

import (
	"slices"
	"sync"
	"time"
)

// generation is one complete set of the three indexes of a namespace.
//
// A reload builds a fresh generation off to the side and swaps it in whole,
// so readers see either the old or the new one. Writers mutate the current
// generation in place, always touching all three maps under the same lock.
type generation struct {
	byID  map[int64]*Node
	byKey map[CompositeKey]int64
	// byPid holds child ids per parent, sorted ascending (the reload order).
	byPid    map[int64][]int64
	loadedAt time.Time
}

func newGeneration(nodes []*Node, loadedAt time.Time) *generation {
	g := &generation{
		byID:     make(map[int64]*Node, len(nodes)),
		byKey:    make(map[CompositeKey]int64, len(nodes)),
		byPid:    make(map[int64][]int64),
		loadedAt: loadedAt,
	}

	for _, n := range nodes {
		g.insert(n)
	}

	return g
}

func (g *generation) insert(n *Node) {
	g.byID[n.ID] = n
	g.byKey[n.CompositeKey()] = n.ID
	g.byPid[n.Pid] = insertSorted(g.byPid[n.Pid], n.ID)
}

func (g *generation) move(id, oldPid, newPid int64) {
	if oldPid == newPid {
		return
	}

	g.byPid[oldPid] = removeSorted(g.byPid[oldPid], id)
	if len(g.byPid[oldPid]) == 0 {
		delete(g.byPid, oldPid)
	}

	g.byPid[newPid] = insertSorted(g.byPid[newPid], id)
}

func (g *generation) rename(id int64, oldKey, newKey CompositeKey) {
	if oldKey == newKey {
		return
	}

	if g.byKey[oldKey] == id {
		delete(g.byKey, oldKey)
	}

	g.byKey[newKey] = id
}

func (g *generation) remove(id int64) {
	n, ok := g.byID[id]
	if !ok {
		return
	}

	delete(g.byID, id)

	key := n.CompositeKey()
	if g.byKey[key] == id {
		delete(g.byKey, key)
	}

	g.byPid[n.Pid] = removeSorted(g.byPid[n.Pid], id)
	if len(g.byPid[n.Pid]) == 0 {
		delete(g.byPid, n.Pid)
	}
}

func insertSorted(ids []int64, id int64) []int64 {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}

	return slices.Insert(ids, i, id)
}

func removeSorted(ids []int64, id int64) []int64 {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}

	return slices.Delete(ids, i, i+1)
}

// nsCache is the cache of one namespace. The zero value is an unloaded cache.
type nsCache struct {
	mu  sync.RWMutex
	gen *generation
}

// loaded reports whether the namespace was loaded and when.
func (c *nsCache) loaded() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return time.Time{}, false
	}

	return c.gen.loadedAt, true
}

// swap replaces all three maps at once.
func (c *nsCache) swap(g *generation) {
	c.mu.Lock()
	c.gen = g
	c.mu.Unlock()
}

// invalidate drops the generation; the next access reloads.
func (c *nsCache) invalidate() {
	c.swap(nil)
}

// get returns a copy of the node with id, or nil.
func (c *nsCache) get(id int64) *Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return nil
	}

	return cloneNode(c.gen.byID[id])
}

// getByKey returns a copy of the live node with key, or nil.
func (c *nsCache) getByKey(key CompositeKey) *Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return nil
	}

	id, ok := c.gen.byKey[key]
	if !ok {
		return nil
	}

	return cloneNode(c.gen.byID[id])
}

// children returns copies of the direct children of pid, ordered by id.
func (c *nsCache) children(pid int64) []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return []Node{}
	}

	ids := c.gen.byPid[pid]
	out := make([]Node, 0, len(ids))

	for _, id := range ids {
		if n, ok := c.gen.byID[id]; ok {
			out = append(out, *n)
		}
	}

	return out
}

// isAncestor reports whether candidate is id itself or one of its ancestors
// walking up from start. Bounded by maxDepth.
func (c *nsCache) isAncestor(candidate, start int64, maxDepth int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return false
	}

	cur := start

	for range maxDepth {
		if cur == candidate {
			return true
		}

		n, ok := c.gen.byID[cur]
		if !ok || n.Pid == 0 {
			return false
		}

		cur = n.Pid
	}

	return true
}

func (c *nsCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen == nil {
		return 0
	}

	return len(c.gen.byID)
}

// insert adds a freshly created node to all three maps.
func (c *nsCache) insert(n *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen == nil {
		return
	}

	c.gen.insert(cloneNode(n))
}

// replace swaps prev for next: id map entry, composite key remap and
// adjacency move, in one critical section.
func (c *nsCache) replace(prev, next *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen == nil {
		return
	}

	c.gen.rename(next.ID, prev.CompositeKey(), next.CompositeKey())
	c.gen.move(next.ID, prev.Pid, next.Pid)
	c.gen.byID[next.ID] = cloneNode(next)
}

// remove drops id from all three maps.
func (c *nsCache) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen == nil {
		return
	}

	c.gen.remove(id)
}

// cacheIndex owns the namespace caches of a Store.
type cacheIndex struct {
	mu  sync.Mutex
	nss map[Namespace]*nsCache
}

func newCacheIndex() *cacheIndex {
	return &cacheIndex{nss: make(map[Namespace]*nsCache)}
}

// namespace returns the cache for ns, creating an unloaded one on first use.
func (ci *cacheIndex) namespace(ns Namespace) *nsCache {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	c, ok := ci.nss[ns]
	if !ok {
		c = &nsCache{}
		ci.nss[ns] = c
	}

	return c
}

// dropDatabase invalidates every namespace of database.
func (ci *cacheIndex) dropDatabase(database string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	for ns, c := range ci.nss {
		if ns.Database == database {
			c.invalidate()
			delete(ci.nss, ns)
		}
	}
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}

	cp := *n

	return &cp
}
