package treedb

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func checkGeneration(t *testing.T, g *generation) {
	t.Helper()

	children := 0

	for pid, ids := range g.byPid {
		if len(ids) == 0 {
			t.Fatalf("empty adjacency list kept for pid %d", pid)
		}

		for i, id := range ids {
			if i > 0 && ids[i-1] >= id {
				t.Fatalf("adjacency of %d not sorted: %v", pid, ids)
			}

			n, ok := g.byID[id]
			if !ok {
				t.Fatalf("adjacency of %d lists unknown id %d", pid, id)
			}

			if n.Pid != pid {
				t.Fatalf("node %d listed under %d but has pid %d", id, pid, n.Pid)
			}

			children++
		}
	}

	if children != len(g.byID) || len(g.byKey) != len(g.byID) {
		t.Fatalf("map sizes diverge: byID=%d byKey=%d adjacency=%d", len(g.byID), len(g.byKey), children)
	}

	for key, id := range g.byKey {
		if g.byID[id].CompositeKey() != key {
			t.Fatalf("key %s maps to %d with key %s", key, id, g.byID[id].CompositeKey())
		}
	}
}

func Test_NsCache_Keeps_Maps_In_Sync_When_Mutated(t *testing.T) {
	t.Parallel()

	c := &nsCache{}
	c.swap(newGeneration([]*Node{
		{ID: 1, Name: "root"},
		{ID: 2, Pid: 1, Name: "a"},
		{ID: 3, Pid: 1, Name: "b"},
	}, time.Unix(0, 0)))

	c.insert(&Node{ID: 5, Pid: 1, Name: "c"})
	c.insert(&Node{ID: 4, Pid: 3, Name: "d"})
	checkGeneration(t, c.gen)

	prev := c.get(2)
	next := *prev
	next.Pid = 3
	next.Name = "moved"
	c.replace(prev, &next)
	checkGeneration(t, c.gen)

	if diff := cmp.Diff([]int64{3, 5}, idsOf(c.children(1))); diff != "" {
		t.Fatalf("children of 1 (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int64{2, 4}, idsOf(c.children(3))); diff != "" {
		t.Fatalf("children of 3 (-want +got):\n%s", diff)
	}

	if c.getByKey(CompositeKey{Pid: 1, Name: "a"}) != nil {
		t.Fatal("old key still resolves")
	}

	c.remove(3)
	checkGeneration(t, c.gen)

	if got := c.children(3); len(got) != 2 {
		t.Fatalf("children of removed node = %v, want orphans kept", idsOf(got))
	}

	if !c.isAncestor(1, 5, 10) || c.isAncestor(2, 5, 10) {
		t.Fatal("isAncestor mismatch")
	}
}

func Test_NsCache_Returns_Empty_When_Not_Loaded(t *testing.T) {
	t.Parallel()

	c := &nsCache{}

	if _, ok := c.loaded(); ok {
		t.Fatal("zero cache reports loaded")
	}

	if c.get(1) != nil || c.getByKey(CompositeKey{Name: "x"}) != nil {
		t.Fatal("lookup on unloaded cache returned a node")
	}

	if got := c.children(0); got == nil || len(got) != 0 {
		t.Fatalf("children = %v, want empty non-nil slice", got)
	}

	// Mutations before the first load are dropped; the load supplies them.
	c.insert(&Node{ID: 1, Name: "x"})

	if c.size() != 0 {
		t.Fatal("insert on unloaded cache was kept")
	}
}

func Test_SortByOrder_Is_Stable_When_Ids_Missing(t *testing.T) {
	t.Parallel()

	nodes := []Node{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}
	sortByOrder(nodes, []int64{4, 2, 4})

	if diff := cmp.Diff([]int64{4, 2, 1, 3, 5}, idsOf(nodes)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func Test_Paginate_Clamps_When_Page_Out_Of_Range(t *testing.T) {
	t.Parallel()

	nodes := []Node{{ID: 1}, {ID: 2}, {ID: 3}}

	tests := []struct {
		page, limit int
		want        []int64
	}{
		{page: 0, limit: 2, want: []int64{1, 2}},
		{page: 2, limit: 2, want: []int64{3}},
		{page: 9, limit: 2, want: []int64{}},
		{page: 1, limit: 0, want: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, idsOf(paginate(nodes, tt.page, tt.limit))); diff != "" {
			t.Fatalf("page %d limit %d (-want +got):\n%s", tt.page, tt.limit, diff)
		}
	}
}

func idsOf(nodes []Node) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}

	return ids
}
