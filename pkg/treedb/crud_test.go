package treedb_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

func Test_Create_Returns_Stored_Node_When_Input_Valid(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n, err := s.Create(t.Context(), treeNS, treedb.CreateInput{
		Name: "root",
		Type: treedb.KindDoc,
		Payloads: treedb.Payloads{
			Data:  treedb.JSON(map[string]any{"b": 1, "a": 2}),
			DataT: treedb.JSON(map[string]any{"attrs": map[string]any{}}),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if n.ID == 0 {
		t.Fatal("id = 0, want assigned id")
	}

	if n.Key != "0/root" {
		t.Fatalf("key = %q, want %q", n.Key, "0/root")
	}

	got := [3]int64{n.Version, n.VersionO, n.VersionT}
	if diff := cmp.Diff([3]int64{1, 0, 1}, got); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}

	if string(n.Data) != `{"a":2,"b":1}` {
		t.Fatalf("data = %s, want normalized object", n.Data)
	}

	if n.DataO != nil {
		t.Fatalf("data_o = %s, want NULL", n.DataO)
	}

	if n.CreateTime == 0 || n.UpdateTime == 0 {
		t.Fatalf("timestamps not assigned: %+v", n)
	}
}

func Test_Create_Returns_UniqueConstraint_When_Composite_Key_Taken(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	root := mustCreate(t, s, 0, "root", nil)
	mustCreate(t, s, root.ID, "child", nil)

	_, err := s.Create(t.Context(), treeNS, treedb.CreateInput{Pid: root.ID, Name: "child"})
	if !errors.Is(err, treedb.ErrUniqueConstraint) {
		t.Fatalf("err = %v, want ErrUniqueConstraint", err)
	}

	// Same name under another parent is fine.
	mustCreate(t, s, 0, "child", nil)
}

func Test_Create_Allows_Reusing_Name_When_Previous_Node_Soft_Deleted(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n := mustCreate(t, s, 0, "dup", nil)

	_, err := s.Delete(t.Context(), treeNS, n.ID, treedb.DeleteOptions{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	again := mustCreate(t, s, 0, "dup", nil)
	if again.ID == n.ID {
		t.Fatalf("reused id %d after soft delete", n.ID)
	}
}

func Test_Create_Returns_ParentNotFound_When_Pid_Not_Live(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	_, err := s.Create(t.Context(), treeNS, treedb.CreateInput{Pid: 999, Name: "orphan"})
	if !errors.Is(err, treedb.ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound", err)
	}

	var tErr *treedb.Error
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %T, want *treedb.Error", err)
	}

	if tErr.Op != "create" || tErr.Namespace != treeNS {
		t.Fatalf("error context = %+v", tErr)
	}

	parent := mustCreate(t, s, 0, "parent", nil)

	_, err = s.Delete(t.Context(), treeNS, parent.ID, treedb.DeleteOptions{})
	if err != nil {
		t.Fatalf("delete parent: %v", err)
	}

	_, err = s.Create(t.Context(), treeNS, treedb.CreateInput{Pid: parent.ID, Name: "late"})
	if !errors.Is(err, treedb.ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound for deleted parent", err)
	}
}

func Test_Create_Returns_UniqueConstraint_When_Unique_Field_Exists(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	in := treedb.CreateInput{
		Name:         "a",
		Type:         "user",
		Payloads:     treedb.Payloads{Data: treedb.JSON(map[string]string{"email": "x@example.com"})},
		UniqueFields: []string{"data"},
	}

	_, err := s.Create(t.Context(), treeNS, in)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	in.Name = "b"

	_, err = s.Create(t.Context(), treeNS, in)
	if !errors.Is(err, treedb.ErrUniqueConstraint) {
		t.Fatalf("err = %v, want ErrUniqueConstraint", err)
	}

	in.UniqueFields = []string{"bogus"}

	_, err = s.Create(t.Context(), treeNS, in)
	if err == nil {
		t.Fatal("expected error for unknown unique field")
	}
}

func Test_Create_Returns_MalformedPayload_When_Data_Not_JSON(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	_, err := s.Create(t.Context(), treeNS, treedb.CreateInput{
		Name:     "bad",
		Payloads: treedb.Payloads{Data: []byte(`{"a":`)},
	})
	if !errors.Is(err, treedb.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}

	if ids := childIDs(t, s, 0); len(ids) != 0 {
		t.Fatalf("children = %v, want none after failed create", ids)
	}
}

func Test_Read_Returns_Nil_When_Node_Absent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n, err := s.Read(t.Context(), treeNS, 42)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if n != nil {
		t.Fatalf("read = %+v, want nil", n)
	}

	n, err = s.ReadByKey(t.Context(), treeNS, treedb.CompositeKey{Pid: 0, Name: "nope"})
	if err != nil {
		t.Fatalf("read by key: %v", err)
	}

	if n != nil {
		t.Fatalf("read by key = %+v, want nil", n)
	}
}

func Test_Read_Returns_Copy_When_Caller_Mutates_Result(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n := mustCreate(t, s, 0, "n", "v")
	n.Name = "changed"

	got := mustRead(t, s, n.ID)
	if got.Name != "n" {
		t.Fatalf("name = %q, cache was mutated through returned node", got.Name)
	}
}

func Test_Operations_Return_Namespace_Errors_When_Namespace_Unknown(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	_, err := s.Read(t.Context(), treedb.Namespace{Database: "missing", Table: treedb.TableTree}, 1)
	if !errors.Is(err, treedb.ErrNamespaceNotFound) {
		t.Fatalf("err = %v, want ErrNamespaceNotFound", err)
	}

	_, err = s.Create(t.Context(), treedb.Namespace{Database: testDatabase, Table: "bogus"}, treedb.CreateInput{Name: "x"})
	if !errors.Is(err, treedb.ErrUnknownTableType) {
		t.Fatalf("err = %v, want ErrUnknownTableType", err)
	}
}

func Test_Scenario_Children_Reflect_Soft_Delete(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	root := mustCreate(t, s, 0, "R", nil)
	c1 := mustCreate(t, s, root.ID, "C1", nil)
	c2 := mustCreate(t, s, root.ID, "C2", nil)

	if diff := cmp.Diff([]int64{c1.ID, c2.ID}, childIDs(t, s, root.ID)); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}

	ok, err := s.Delete(t.Context(), treeNS, c1.ID, treedb.DeleteOptions{})
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}

	if diff := cmp.Diff([]int64{c2.ID}, childIDs(t, s, root.ID)); diff != "" {
		t.Fatalf("children after delete mismatch (-want +got):\n%s", diff)
	}

	got, err := s.Read(t.Context(), treeNS, c1.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got != nil {
		t.Fatalf("read deleted = %+v, want nil", got)
	}
}

func Test_Update_Increments_Only_Changed_Counters_When_Payloads_Supplied(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n, err := s.Create(t.Context(), treeNS, treedb.CreateInput{
		Name: "n",
		Payloads: treedb.Payloads{
			Data:  treedb.JSON(map[string]int{"a": 1, "b": 2}),
			DataO: treedb.JSON("overlay"),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same value, different key order and whitespace.
	n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: []byte(`{ "b": 2, "a": 1 }`)}, n.Version)
	if err != nil {
		t.Fatalf("update unchanged: %v", err)
	}

	if n.Version != 1 {
		t.Fatalf("version = %d after unchanged data, want 1", n.Version)
	}

	n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON(map[string]int{"a": 3})}, n.Version)
	if err != nil {
		t.Fatalf("update data: %v", err)
	}

	n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{DataT: treedb.JSON(map[string]any{"marks": []string{"bold"}})}, n.Version)
	if err != nil {
		t.Fatalf("update data_t: %v", err)
	}

	got := [3]int64{n.Version, n.VersionO, n.VersionT}
	if diff := cmp.Diff([3]int64{2, 1, 1}, got); diff != "" {
		t.Fatalf("versions mismatch (-want +got):\n%s", diff)
	}
}

func Test_Update_Keeps_Version_When_Numbers_Only_Differ_In_Spelling(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n, err := s.Create(t.Context(), treeNS, treedb.CreateInput{
		Name:     "n",
		Payloads: treedb.Payloads{Data: []byte(`{"a": 2, "b": [1.5, -0], "c": 9007199254740993}`)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, spelling := range []string{
		`{"a": 2.0, "b": [1.50, 0], "c": 9007199254740993}`,
		`{"a": 2e0, "b": [15e-1, 0.0], "c": 9007199254740993}`,
	} {
		n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: []byte(spelling)}, n.Version)
		if err != nil {
			t.Fatalf("update %s: %v", spelling, err)
		}

		if n.Version != 1 {
			t.Fatalf("version = %d after %s, want 1", n.Version, spelling)
		}
	}

	if diff := cmp.Diff(`{"a":2,"b":[1.5,0],"c":9007199254740993}`, string(n.Data)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: []byte(`{"a": 2.5, "b": [1.5, 0], "c": 9007199254740993}`)}, n.Version)
	if err != nil {
		t.Fatalf("update changed number: %v", err)
	}

	if n.Version != 2 {
		t.Fatalf("version = %d after numeric change, want 2", n.Version)
	}
}

func Test_Update_Clears_Payload_When_Json_Null_Given(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n, err := s.Create(t.Context(), treeNS, treedb.CreateInput{
		Name:     "n",
		Payloads: treedb.Payloads{Data: treedb.JSON("x"), DataO: []byte("null")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if n.DataO != nil || n.VersionO != 0 {
		t.Fatalf("data_o = %s (v%d), want NULL (v0)", n.DataO, n.VersionO)
	}

	n, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: []byte("null")}, n.Version)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if n.Data != nil || n.Version != 2 {
		t.Fatalf("data = %s (v%d), want NULL (v2)", n.Data, n.Version)
	}

	err = s.Reload(t.Context(), treeNS)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, err := s.Read(t.Context(), treeNS, n.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.Data != nil {
		t.Fatalf("data after reload = %s, want NULL", got.Data)
	}
}

func Test_Update_Returns_VersionConflict_When_Expected_Version_Stale(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n := mustCreate(t, s, 0, "n", 1)

	_, err := s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON(2)}, n.Version)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	_, err = s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON(3)}, n.Version)
	if !errors.Is(err, treedb.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	if !treedb.IsRetryable(err) {
		t.Fatal("version conflict should be retryable")
	}
}

func Test_Update_Returns_RecordNotFound_When_Id_Absent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	_, err := s.Update(t.Context(), treeNS, 77, treedb.Update{Data: treedb.JSON(1)}, 1)
	if !errors.Is(err, treedb.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}

	if treedb.IsRetryable(err) {
		t.Fatal("record not found should not be retryable")
	}
}

func Test_Update_Moves_And_Renames_When_Pid_And_Name_Change(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	a := mustCreate(t, s, 0, "a", nil)
	b := mustCreate(t, s, 0, "b", nil)
	child := mustCreate(t, s, a.ID, "child", nil)

	name := "moved"
	pid := b.ID

	got, err := s.Update(t.Context(), treeNS, child.ID, treedb.Update{Name: &name, Pid: &pid}, child.Version)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	wantKey := treedb.CompositeKey{Pid: b.ID, Name: "moved"}.String()
	if got.Key != wantKey {
		t.Fatalf("key = %q, want %q", got.Key, wantKey)
	}

	if ids := childIDs(t, s, a.ID); len(ids) != 0 {
		t.Fatalf("old parent children = %v, want none", ids)
	}

	if diff := cmp.Diff([]int64{child.ID}, childIDs(t, s, b.ID)); diff != "" {
		t.Fatalf("new parent children mismatch (-want +got):\n%s", diff)
	}

	old, err := s.ReadByKey(t.Context(), treeNS, treedb.CompositeKey{Pid: a.ID, Name: "child"})
	if err != nil || old != nil {
		t.Fatalf("old key lookup = %+v, %v; want nil", old, err)
	}

	byKey, err := s.ReadByKey(t.Context(), treeNS, treedb.CompositeKey{Pid: b.ID, Name: "moved"})
	if err != nil || byKey == nil || byKey.ID != child.ID {
		t.Fatalf("new key lookup = %+v, %v", byKey, err)
	}
}

func Test_Update_Returns_Errors_When_Move_Invalid(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	root := mustCreate(t, s, 0, "root", nil)
	mid := mustCreate(t, s, root.ID, "mid", nil)
	leaf := mustCreate(t, s, mid.ID, "leaf", nil)
	mustCreate(t, s, root.ID, "taken", nil)

	pid := leaf.ID

	_, err := s.Update(t.Context(), treeNS, root.ID, treedb.Update{Pid: &pid}, root.Version)
	if !errors.Is(err, treedb.ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}

	missing := int64(1234)

	_, err = s.Update(t.Context(), treeNS, leaf.ID, treedb.Update{Pid: &missing}, leaf.Version)
	if !errors.Is(err, treedb.ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound", err)
	}

	name := "taken"
	toRoot := root.ID

	_, err = s.Update(t.Context(), treeNS, leaf.ID, treedb.Update{Name: &name, Pid: &toRoot}, leaf.Version)
	if !errors.Is(err, treedb.ErrUniqueConstraint) {
		t.Fatalf("err = %v, want ErrUniqueConstraint", err)
	}

	if diff := cmp.Diff([]int64{leaf.ID}, childIDs(t, s, mid.ID)); diff != "" {
		t.Fatalf("failed moves changed adjacency (-want +got):\n%s", diff)
	}
}

func Test_Update_Returns_VersionConflict_And_Keeps_Cache_When_Row_Changed_Out_Of_Band(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := openTestStore(t, dir)

	n := mustCreate(t, s, 0, "n", "before")

	side := openSideConn(t, dir)
	execSide(t, side, `UPDATE tree SET version = version + 1, data = '"sneaky"' WHERE id = ?`, n.ID)

	// The cache still says version 1, so the pre-check passes and the
	// conditional write is what catches the conflict.
	_, err := s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON("mine")}, n.Version)
	if !errors.Is(err, treedb.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	got := mustRead(t, s, n.ID)
	if diff := cmp.Diff(n, got); diff != "" {
		t.Fatalf("cache changed after lost write (-want +got):\n%s", diff)
	}

	err = s.Reload(t.Context(), treeNS)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got = mustRead(t, s, n.ID)
	if got.Version != 2 || string(got.Data) != `"sneaky"` {
		t.Fatalf("after reload = version %d data %s", got.Version, got.Data)
	}
}

func Test_Update_Allows_Exactly_One_Winner_When_Racing_With_Same_Version(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	n := mustCreate(t, s, 0, "n", 0)

	n, err := s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON(1)}, n.Version)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	const writers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.Update(t.Context(), treeNS, n.ID, treedb.Update{Data: treedb.JSON(100 + i)}, n.Version)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				wins++
			case errors.Is(err, treedb.ErrVersionConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("wins = %d conflicts = %d, want 1 and %d", wins, conflicts, writers-1)
	}

	if got := mustRead(t, s, n.ID); got.Version != n.Version+1 {
		t.Fatalf("version = %d, want %d", got.Version, n.Version+1)
	}
}

func Test_Delete_Removes_Row_When_Hard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := openTestStore(t, dir)

	soft := mustCreate(t, s, 0, "soft", nil)
	hard := mustCreate(t, s, 0, "hard", nil)

	_, err := s.Delete(t.Context(), treeNS, soft.ID, treedb.DeleteOptions{})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err = s.Delete(t.Context(), treeNS, hard.ID, treedb.DeleteOptions{Hard: true})
	if err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	side := openSideConn(t, dir)

	var rows int

	err = side.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM tree WHERE id IN (?, ?)`, soft.ID, hard.ID).Scan(&rows)
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	if rows != 1 {
		t.Fatalf("rows = %d, want only the soft-deleted row", rows)
	}

	st, err := s.Stats(t.Context(), treeNS)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if st.Live != 0 || st.Deleted != 1 || st.FileSize == 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func Test_Delete_Returns_Errors_When_Id_Absent_Or_Version_Stale(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	_, err := s.Delete(t.Context(), treeNS, 5, treedb.DeleteOptions{})
	if !errors.Is(err, treedb.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}

	n := mustCreate(t, s, 0, "n", nil)
	stale := n.Version + 1

	ok, err := s.Delete(t.Context(), treeNS, n.ID, treedb.DeleteOptions{ExpectedVersion: &stale})
	if !errors.Is(err, treedb.ErrVersionConflict) || ok {
		t.Fatalf("delete = %v, %v; want false, ErrVersionConflict", ok, err)
	}

	mustRead(t, s, n.ID)
}

func Test_Delete_Keeps_Children_When_Parent_Removed(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	root := mustCreate(t, s, 0, "root", nil)
	child := mustCreate(t, s, root.ID, "child", nil)

	_, err := s.Delete(t.Context(), treeNS, root.ID, treedb.DeleteOptions{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := mustRead(t, s, child.ID); got.Pid != root.ID {
		t.Fatalf("child pid = %d, want %d", got.Pid, root.ID)
	}
}

func Test_Upsert_Creates_Then_Updates_When_Key_Repeats(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())

	in := treedb.UpsertInput{Name: "settings", Type: "config", Payloads: treedb.Payloads{Data: treedb.JSON(map[string]int{"n": 1})}}

	first, err := s.Upsert(t.Context(), treeNS, in)
	if err != nil {
		t.Fatalf("upsert create: %v", err)
	}

	in.Payloads.Data = treedb.JSON(map[string]int{"n": 2})

	second, err := s.Upsert(t.Context(), treeNS, in)
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert created a second node: %d != %d", second.ID, first.ID)
	}

	if second.Version != 2 || string(second.Data) != `{"n":2}` {
		t.Fatalf("after upsert = version %d data %s", second.Version, second.Data)
	}
}

func Test_Operations_Return_ErrClosed_When_Store_Closed(t *testing.T) {
	t.Parallel()

	s, err := treedb.Open(t.Context(), testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	err = s.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	err = s.Close()
	if err != nil {
		t.Fatalf("second close: %v", err)
	}

	_, err = s.Read(t.Context(), treeNS, 1)
	if !errors.Is(err, treedb.ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}

	_, err = s.Create(t.Context(), treeNS, treedb.CreateInput{Name: "x"})
	if !errors.Is(err, treedb.ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
