package formula

import (
	"fmt"
	"sync"
	"testing"
)

func TestParseCacheHitsAndMisses(t *testing.T) {
	cache := NewParseCache()

	first, err := cache.Parse("A1+1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	second, err := cache.Parse("A1+1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if first != second {
		t.Error("identical text did not return the shared AST")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestParseCacheDeduplicatesBySpacing(t *testing.T) {
	cache := NewParseCache()

	a, err := cache.Parse("A1 + 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	b, err := cache.Parse("A1+1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a != b {
		t.Error("structurally identical formulas did not share one AST")
	}
}

func TestParseCacheDoesNotCacheFailures(t *testing.T) {
	cache := NewParseCache()

	if _, err := cache.Parse("SUM("); err == nil {
		t.Fatal("expected parse error")
	}
	stats := cache.Stats()
	if stats.Entries != 0 {
		t.Errorf("failed parse was cached: %+v", stats)
	}
}

func TestParseCacheClear(t *testing.T) {
	cache := NewParseCache()
	if _, err := cache.Parse("1+1"); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cache.Clear()
	stats := cache.Stats()
	if stats.Entries != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Clear left state behind: %+v", stats)
	}
}

func TestParseCacheConcurrent(t *testing.T) {
	cache := NewParseCache()
	grid := newGridResolver()
	grid.set("", "A1", 3.0)
	ctx := testContext(grid)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				text := fmt.Sprintf("A1*%d", i%10)
				node, err := cache.Parse(text)
				if err != nil {
					t.Errorf("parse %q failed: %v", text, err)
					return
				}
				got := Evaluate(node, ctx)
				if got != float64(3*(i%10)) {
					t.Errorf("%q = %v, want %v", text, got, 3*(i%10))
					return
				}
			}
		}(worker)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.Entries != 10 {
		t.Errorf("entries = %d, want 10", stats.Entries)
	}
}
