// Package tilecache provides an in-memory, single-flight, LRU-evicted cache
// mapping CacheKey to CacheValue (spec.md §4.7). Single-flight merging of
// concurrent misses uses golang.org/x/sync/singleflight; eviction is a
// hand-rolled fixed-capacity LRU since no cache library appears anywhere in
// the retrieval pack.
package tilecache

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nyurik/martin-go/internal/tilecoord"
)

// CacheKey is the tagged key variant spec.md §4.7 names: a plain tile
// lookup, a tile lookup carrying the request's raw query string, or a
// glyph-range lookup.
type CacheKey struct {
	Kind      Kind
	SourceID  string
	Coord     tilecoord.Coord
	Query     string
	FontID    string
	RangeFrom uint32
	RangeTo   uint32
}

// Kind tags which CacheKey variant is populated.
type Kind int

const (
	KindTile Kind = iota
	KindTileWithQuery
	KindGlyph
)

func (k CacheKey) String() string {
	switch k.Kind {
	case KindTileWithQuery:
		return fmt.Sprintf("tile:%s:%s:%s", k.SourceID, k.Coord, k.Query)
	case KindGlyph:
		return fmt.Sprintf("glyph:%s:%d-%d", k.FontID, k.RangeFrom, k.RangeTo)
	default:
		return fmt.Sprintf("tile:%s:%s", k.SourceID, k.Coord)
	}
}

// TileKey builds a plain-tile CacheKey.
func TileKey(sourceID string, coord tilecoord.Coord) CacheKey {
	return CacheKey{Kind: KindTile, SourceID: sourceID, Coord: coord}
}

// TileWithQueryKey builds a CacheKey that differentiates by raw query string.
func TileWithQueryKey(sourceID string, coord tilecoord.Coord, query string) CacheKey {
	return CacheKey{Kind: KindTileWithQuery, SourceID: sourceID, Coord: coord, Query: query}
}

// GlyphKey builds a CacheKey for a rendered font range.
func GlyphKey(fontID string, start, end uint32) CacheKey {
	return CacheKey{Kind: KindGlyph, FontID: fontID, RangeFrom: start, RangeTo: end}
}

// Value is the cached payload: arbitrary bytes plus its size for LRU
// accounting. Tiles are stored post-fetch, pre-recompression, so one cached
// value serves clients negotiating different encodings.
type Value struct {
	Data []byte
}

func (v Value) size() int { return len(v.Data) }

// Cache is a fixed-byte-capacity, single-flight, LRU tile/glyph cache. The
// zero value is not usable; construct with New. A nil *Cache is valid and
// always short-circuits to the loader (spec.md §4.7's "None cache" case).
type Cache struct {
	maxBytes int

	mu       sync.Mutex
	curBytes int
	ll       *list.List // front = most recently used
	items    map[CacheKey]*list.Element

	group singleflight.Group
}

type entry struct {
	key   CacheKey
	value Value
}

// New builds a Cache that evicts least-recently-used entries once the total
// stored byte size would exceed maxBytes.
func New(maxBytes int) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ll:       list.New(),
		items:    make(map[CacheKey]*list.Element),
	}
}

// Loader computes the value for a cache miss.
type Loader func(ctx context.Context) (Value, error)

// GetOrCompute returns the cached value for key, computing it via load on a
// miss. Concurrent misses for the same key share one in-flight load
// (single-flight); a loader error is returned to every waiter and nothing is
// stored. A nil Cache always calls load directly.
func (c *Cache) GetOrCompute(ctx context.Context, key CacheKey, load Loader) (Value, error) {
	if c == nil {
		return load(ctx)
	}

	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// Re-check under single-flight: another goroutine may have populated
		// the entry while this one waited to be scheduled.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return Value{}, err
		}
		c.put(key, v)
		return v, nil
	})
	if err != nil {
		return Value{}, err
	}
	return v.(Value), nil
}

func (c *Cache) get(key CacheKey) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return Value{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *Cache) put(key CacheKey, value Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.curBytes -= el.Value.(*entry).value.size()
		el.Value = &entry{key: key, value: value}
		c.curBytes += value.size()
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry{key: key, value: value})
		c.items[key] = el
		c.curBytes += value.size()
	}

	for c.curBytes > c.maxBytes && c.ll.Len() > 0 {
		back := c.ll.Back()
		if back == nil {
			break
		}
		e := back.Value.(*entry)
		c.ll.Remove(back)
		delete(c.items, e.key)
		c.curBytes -= e.value.size()
	}
}

// Len reports the number of entries currently cached, for tests/metrics.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
