package request

import "testing"

func TestCallbackList_AddThenSet(t *testing.T) {
	var list callbackList[string]

	if _, done := list.get(); done {
		t.Fatal("get() reports decided on a fresh list")
	}

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		if _, immediate := list.add(func(v string) { order = append(order, name+":"+v) }); immediate {
			t.Fatalf("add(%q) immediate before set", name)
		}
	}

	pending := list.set("done")
	if len(pending) != 3 {
		t.Fatalf("set drained %d callbacks, want 3", len(pending))
	}
	for _, fn := range pending {
		fn("done")
	}

	want := []string{"a:done", "b:done", "c:done"}
	for i, got := range order {
		if got != want[i] {
			t.Errorf("callback %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestCallbackList_AddAfterSet(t *testing.T) {
	var list callbackList[int]
	list.set(7)

	v, immediate := list.add(func(int) { t.Error("late observer stored instead of handed back") })
	if !immediate {
		t.Fatal("add after set not immediate")
	}
	if v != 7 {
		t.Errorf("add returned %d, want 7", v)
	}

	if got, done := list.get(); !done || got != 7 {
		t.Errorf("get() = (%d, %v), want (7, true)", got, done)
	}
}

func TestCallbackList_SetOnce(t *testing.T) {
	var list callbackList[int]

	var seen []int
	list.add(func(v int) { seen = append(seen, v) })

	for _, fn := range list.set(1) {
		fn(1)
	}
	if pending := list.set(2); pending != nil {
		t.Errorf("second set drained %d callbacks, want nil", len(pending))
	}

	if len(seen) != 1 || seen[0] != 1 {
		t.Errorf("observed values = %v, want [1]", seen)
	}
	if got, _ := list.get(); got != 1 {
		t.Errorf("value after second set = %d, want 1", got)
	}
}
