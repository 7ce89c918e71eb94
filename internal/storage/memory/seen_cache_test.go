package memory

import (
	"context"
	"sync"
	"testing"
)

func TestSeenCache_MarkSeen(t *testing.T) {
	cache := NewSeenCache()
	ctx := context.Background()

	// First mark is new
	fresh, err := cache.MarkSeen(ctx, "ztf", 1001)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !fresh {
		t.Error("First MarkSeen should report new")
	}

	// Second mark of the same alert is not
	fresh, err = cache.MarkSeen(ctx, "ztf", 1001)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if fresh {
		t.Error("Repeated MarkSeen should report seen")
	}

	// Same alert ID in another survey is independent
	fresh, err = cache.MarkSeen(ctx, "elasticc", 1001)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !fresh {
		t.Error("Different survey should be tracked independently")
	}
}

func TestSeenCache_ConcurrentMarks(t *testing.T) {
	cache := NewSeenCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	freshCount := 0

	// All goroutines mark the same alert: exactly one wins.
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fresh, err := cache.MarkSeen(ctx, "ztf", 42)
			if err != nil {
				t.Errorf("MarkSeen failed: %v", err)
				return
			}
			if fresh {
				mu.Lock()
				freshCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if freshCount != 1 {
		t.Errorf("Expected exactly 1 fresh mark, got %d", freshCount)
	}
}
