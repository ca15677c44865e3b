package tilecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

func TestGetOrComputeCachesValue(t *testing.T) {
	c := New(1024)
	key := TileKey("src", tilecoord.Coord{Z: 1, X: 2, Y: 3})

	var calls int32
	loader := func(context.Context) (Value, error) {
		atomic.AddInt32(&calls, 1)
		return Value{Data: []byte{1, 2, 3}}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), key, loader)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if len(v.Data) != 3 {
			t.Fatalf("unexpected value %v", v.Data)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(1024)
	key := TileKey("src", tilecoord.Coord{})

	var calls int32
	start := make(chan struct{})
	loader := func(context.Context) (Value, error) {
		atomic.AddInt32(&calls, 1)
		<-start
		return Value{Data: []byte{9}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrCompute(context.Background(), key, loader)
		}()
	}
	close(start)
	wg.Wait()

	if calls != 1 {
		t.Errorf("loader called %d times concurrently, want exactly 1", calls)
	}
}

func TestGetOrComputeLoaderErrorNotCached(t *testing.T) {
	c := New(1024)
	key := TileKey("src", tilecoord.Coord{})
	wantErr := errors.New("db unavailable")

	_, err := c.GetOrCompute(context.Background(), key, func(context.Context) (Value, error) {
		return Value{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Errorf("cache should not retain a value after a loader error, Len() = %d", c.Len())
	}
}

func TestNilCacheShortCircuits(t *testing.T) {
	var c *Cache
	var calls int32
	loader := func(context.Context) (Value, error) {
		atomic.AddInt32(&calls, 1)
		return Value{Data: []byte{1}}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := c.GetOrCompute(context.Background(), TileKey("s", tilecoord.Coord{}), loader); err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("loader called %d times through nil cache, want 3 (no caching)", calls)
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(10) // bytes
	load := func(data []byte) Loader {
		return func(context.Context) (Value, error) { return Value{Data: data}, nil }
	}

	k1 := TileKey("a", tilecoord.Coord{})
	k2 := TileKey("b", tilecoord.Coord{})
	k3 := TileKey("c", tilecoord.Coord{})

	if _, err := c.GetOrCompute(context.Background(), k1, load(make([]byte, 5))); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompute(context.Background(), k2, load(make([]byte, 5))); err != nil {
		t.Fatal(err)
	}
	// Touch k1 so it's most-recently-used, making k2 the eviction candidate.
	if _, err := c.GetOrCompute(context.Background(), k1, load(make([]byte, 5))); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompute(context.Background(), k3, load(make([]byte, 5))); err != nil {
		t.Fatal(err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after eviction", c.Len())
	}
	if _, ok := c.get(k2); ok {
		t.Error("k2 should have been evicted as least-recently-used")
	}
	if _, ok := c.get(k1); !ok {
		t.Error("k1 should still be cached (recently touched)")
	}
}
