package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(KindLayer, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok = table.GetKind(h, KindLayer); !ok {
		t.Fatal("GetKind with correct kind failed")
	}
	if _, ok = table.GetKind(h, KindAttr); ok {
		t.Fatal("GetKind with wrong kind should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if _, ok = table.Remove(h); ok {
		t.Fatal("second Remove must fail")
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(KindVariant, "test")
	table.Borrow(h)
	table.ReturnBorrow(h)
	table.Remove(h)

	want := []EventType{EventCreated, EventBorrowed, EventBorrowReturned, EventDropped}
	if len(obs.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(obs.events))
	}
	for i, e := range obs.events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.Handle != h || e.Kind != KindVariant {
			t.Errorf("event %d = %+v", i, e)
		}
	}

	table.Unsubscribe(obs)
	table.Insert(KindVariant, "test2")
	if len(obs.events) != len(want) {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var dropped []Handle
	table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventDropped {
			dropped = append(dropped, e.Handle)
		}
	}))

	h := table.Insert(KindAny, 1)
	table.Remove(h)
	if len(dropped) != 1 || dropped[0] != h {
		t.Fatalf("dropped = %v", dropped)
	}
}

func TestTable_BorrowBlocksRemove(t *testing.T) {
	table := NewTable()
	h := table.Insert(KindStack, "s")
	table.Borrow(h)

	if _, ok := table.Remove(h); ok {
		t.Fatal("Remove must fail while borrowed")
	}
	table.Clear()
	if table.Len() != 1 {
		t.Fatal("Clear must keep borrowed values")
	}

	table.ReturnBorrow(h)
	table.Clear()
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert(KindAny, "a")
	table.Insert(KindAny, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if h := table.Insert(KindAny, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(KindAny, d)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	names := NewTyped[string](table, KindPayload)
	ints := NewTyped[int](table, KindVariant)

	a := names.Insert("a")
	names.Insert("b")
	n := ints.Insert(7)

	if names.Len() != 2 || ints.Len() != 1 {
		t.Fatalf("Len: names %d ints %d", names.Len(), ints.Len())
	}
	if _, ok := names.Get(n); ok {
		t.Fatal("handle of another kind must not resolve")
	}
	if _, ok := names.Remove(n); ok {
		t.Fatal("Remove of another kind must fail")
	}
	if v, ok := ints.Get(n); !ok || v != 7 {
		t.Fatalf("ints.Get = %v, %v", v, ok)
	}

	v, ok := names.Remove(a)
	if !ok || v != "a" {
		t.Fatalf("Remove = %q, %v", v, ok)
	}
	if _, ok := names.Get(a); ok {
		t.Fatal("moved value must not resolve")
	}

	var seen []string
	names.Each(func(_ Handle, s string) bool {
		seen = append(seen, s)
		return true
	})
	if len(seen) != 1 || seen[0] != "b" {
		t.Fatalf("Each = %v", seen)
	}
}
