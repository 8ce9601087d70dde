package jit

import "github.com/josedab/quicksilver/internal/vm"

// ICState is the inline-cache state machine.
type ICState int

const (
	ICUninitialized ICState = iota
	ICMonomorphic
	ICPolymorphic
	ICMegamorphic
)

func (s ICState) String() string {
	switch s {
	case ICUninitialized:
		return "uninitialized"
	case ICMonomorphic:
		return "monomorphic"
	case ICPolymorphic:
		return "polymorphic"
	case ICMegamorphic:
		return "megamorphic"
	}
	return "unknown"
}

// ICEntry caches one shape's property offset.
type ICEntry struct {
	ShapeID     uint64
	Offset      int
	CachedValue *vm.Value
	HitCount    uint64
}

// InlineCache is a polymorphic inline cache at one property-access site.
// Entries mutate in place during interpretation; a site update is
// transactional within the single-threaded model.
type InlineCache struct {
	state      ICState
	entries    []ICEntry
	maxEntries int
}

// NewInlineCache creates a cache bounded at maxEntries shapes before it
// goes megamorphic.
func NewInlineCache(maxEntries int) *InlineCache {
	return &InlineCache{state: ICUninitialized, maxEntries: maxEntries}
}

// State reports the cache's current state.
func (c *InlineCache) State() ICState { return c.state }

// Entries exposes the cached entries (for diagnostics).
func (c *InlineCache) Entries() []ICEntry { return c.entries }

// Lookup linear-scans for a shape, bumping the matched entry's hit count.
// Megamorphic caches always miss and fall back to generic lookup.
func (c *InlineCache) Lookup(shapeID uint64) (int, bool) {
	if c.state == ICMegamorphic {
		return 0, false
	}
	for i := range c.entries {
		if c.entries[i].ShapeID == shapeID {
			c.entries[i].HitCount++
			return c.entries[i].Offset, true
		}
	}
	return 0, false
}

// Update records a shape's offset: replaces on hit, appends on miss, and
// clears the cache once the entry bound is exceeded.
func (c *InlineCache) Update(shapeID uint64, offset int) {
	if c.state == ICMegamorphic {
		return
	}

	for i := range c.entries {
		if c.entries[i].ShapeID == shapeID {
			c.entries[i].Offset = offset
			return
		}
	}

	if len(c.entries) >= c.maxEntries {
		// One shape too many: give up on caching at this site.
		c.entries = nil
		c.state = ICMegamorphic
		return
	}

	c.entries = append(c.entries, ICEntry{ShapeID: shapeID, Offset: offset})
	switch len(c.entries) {
	case 1:
		c.state = ICMonomorphic
	default:
		c.state = ICPolymorphic
	}
}

// CacheValue attaches a cached value to a shape's entry.
func (c *InlineCache) CacheValue(shapeID uint64, value vm.Value) {
	for i := range c.entries {
		if c.entries[i].ShapeID == shapeID {
			c.entries[i].CachedValue = &value
			return
		}
	}
}

// Clear resets the cache to uninitialized.
func (c *InlineCache) Clear() {
	c.entries = nil
	c.state = ICUninitialized
}
