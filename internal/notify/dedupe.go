package notify

// DedupeCache is a bounded set of source ids already represented by a visible
// or historical notification. It exists to suppress duplicate pop-ups when a
// live store snapshot and a push event describe the same underlying event.
// Oldest entries are evicted first once the bound is reached. Not safe for
// concurrent use; the Manager serializes access.
type DedupeCache struct {
	max   int
	set   map[string]struct{}
	order []string
}

const defaultDedupeSize = 512

func NewDedupeCache(max int) *DedupeCache {
	if max <= 0 {
		max = defaultDedupeSize
	}
	return &DedupeCache{
		max: max,
		set: make(map[string]struct{}, max),
	}
}

// Seen reports whether the source id is tracked.
func (c *DedupeCache) Seen(sourceID string) bool {
	_, ok := c.set[sourceID]
	return ok
}

// Add tracks a source id, evicting the oldest entry when full. Returns false
// if the id was already tracked.
func (c *DedupeCache) Add(sourceID string) bool {
	if sourceID == "" {
		return false
	}
	if _, ok := c.set[sourceID]; ok {
		return false
	}
	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.set, oldest)
	}
	c.set[sourceID] = struct{}{}
	c.order = append(c.order, sourceID)
	return true
}

// Len returns the number of tracked source ids.
func (c *DedupeCache) Len() int {
	return len(c.set)
}

// Reset clears all tracked ids.
func (c *DedupeCache) Reset() {
	c.set = make(map[string]struct{}, c.max)
	c.order = c.order[:0]
}
