package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(KindLayer, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	val, ok = b.Drop(handle)
	if !ok {
		t.Fatal("Drop failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
}

func TestLocalBackend_Borrow(t *testing.T) {
	b := NewLocalBackend()
	handle, _ := b.Create(KindStack, 100)

	for i := 0; i < 3; i++ {
		if !b.Borrow(handle) {
			t.Fatalf("Borrow %d failed", i)
		}
	}

	if _, ok := b.Drop(handle); ok {
		t.Fatal("Drop should fail with outstanding borrows")
	}

	for i := 0; i < 3; i++ {
		if !b.ReturnBorrow(handle) {
			t.Fatalf("ReturnBorrow %d failed", i)
		}
	}
	if b.ReturnBorrow(handle) {
		t.Fatal("ReturnBorrow without a borrow should fail")
	}

	if _, ok := b.Drop(handle); !ok {
		t.Fatal("Drop should succeed after returning all borrows")
	}
}

func TestLocalBackend_StaleHandle(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(KindLayer, "first")
	b.Drop(h1)
	h2, _ := b.Create(KindLayer, "second")

	if h1.Index() != h2.Index() {
		t.Fatalf("slot not reused: %v vs %v", h1, h2)
	}
	if h1 == h2 {
		t.Fatal("reused slot must carry a new generation")
	}
	if _, ok := b.Get(h1); ok {
		t.Fatal("stale handle must not resolve")
	}
	if _, ok := b.Drop(h1); ok {
		t.Fatal("stale handle must not drop the new value")
	}
	if v, ok := b.Get(h2); !ok || v != "second" {
		t.Fatalf("h2 = %v, %v", v, ok)
	}
}

func TestLocalBackend_GenerationWraps(t *testing.T) {
	b := NewLocalBackend()

	h, _ := b.Create(KindVariant, 0)
	first := h
	for i := 0; i < 256; i++ {
		b.Drop(h)
		h, _ = b.Create(KindVariant, i)
	}
	if h.Index() != first.Index() || h.Generation() != first.Generation() {
		t.Fatalf("after 256 reuses got %v, want generation to wrap to %v", h, first)
	}
	if v, ok := b.Get(first); !ok || v != 255 {
		t.Fatalf("wrapped stale handle resolves to the current value, got %v, %v", v, ok)
	}
}

func TestLocalBackend_StaleWithinGenerationWindow(t *testing.T) {
	b := NewLocalBackend()

	h, _ := b.Create(KindVariant, 0)
	first := h
	for i := 1; i < 256; i++ {
		b.Drop(h)
		h, _ = b.Create(KindVariant, i)
		if _, ok := b.Get(first); ok {
			t.Fatalf("stale handle resolved after %d reuses", i)
		}
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()

	b.Create(KindAny, 1)
	b.Create(KindAny, 2)

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := b.Create(KindAny, "test")
	if !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, _ := b.Create(KindAny, id)
			b.Borrow(h)
			b.ReturnBorrow(h)
			b.Drop(h)
		}(i)
	}

	wg.Wait()
	if b.Len() != 0 {
		t.Fatalf("Len = %d after all drops", b.Len())
	}
}

func TestLocalBackend_Len(t *testing.T) {
	b := NewLocalBackend()

	if b.Len() != 0 {
		t.Fatal("Expected Len() == 0 initially")
	}

	h1, _ := b.Create(KindAny, "a")
	h2, _ := b.Create(KindAny, "b")
	b.Create(KindAny, "c")

	if b.Len() != 3 {
		t.Fatalf("Expected Len() == 3, got %d", b.Len())
	}

	b.Drop(h1)
	b.Drop(h1)
	if b.Len() != 2 {
		t.Fatalf("Expected Len() == 2, got %d", b.Len())
	}

	b.Drop(h2)
	if b.Len() != 1 {
		t.Fatalf("Expected Len() == 1, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create(KindLayer, "a")
	b.Create(KindAttr, "b")
	b.Create(KindLayer, "c")

	count := 0
	b.Each(func(h Handle, kind Kind, value any) bool {
		if got, ok := b.Get(h); !ok || got != value {
			t.Errorf("Each handle %v does not resolve", h)
		}
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	b.Each(func(Handle, Kind, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if b.Borrow(0) {
		t.Fatal("Handle 0 should fail Borrow")
	}
	if b.ReturnBorrow(0) {
		t.Fatal("Handle 0 should fail ReturnBorrow")
	}
	if _, ok := b.Drop(0); ok {
		t.Fatal("Handle 0 should fail Drop")
	}
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}

func TestHandle_Packing(t *testing.T) {
	h := makeHandle(5, 3)
	if h.Index() != 5 || h.Generation() != 3 {
		t.Fatalf("got %v", h)
	}
	if Handle(0).Index() != -1 {
		t.Fatal("zero handle has no index")
	}
	if makeHandle(0, 0) == 0 {
		t.Fatal("first slot must not produce the zero handle")
	}
}
