package ids

import (
	"sync"
	"testing"
)

func TestNewULIDFormat(t *testing.T) {
	id := NewULID()
	if len(id) != 26 {
		t.Fatalf("expected 26-char ULID, got %q (%d)", id, len(id))
	}
}

func TestNewULIDMonotonic(t *testing.T) {
	prev := NewULID()
	for i := 0; i < 100; i++ {
		next := NewULID()
		if next <= prev {
			t.Fatalf("expected strictly increasing ULIDs, got %q then %q", prev, next)
		}
		prev = next
	}
}

func TestNewULIDConcurrentUniqueness(t *testing.T) {
	const n = 1000
	var (
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
		wg  sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewULID()
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(ids))
	}
}
