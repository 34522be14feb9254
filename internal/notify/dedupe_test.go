package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeCache_AddAndSeen(t *testing.T) {
	c := NewDedupeCache(4)

	assert.False(t, c.Seen("q-1"))
	assert.True(t, c.Add("q-1"))
	assert.True(t, c.Seen("q-1"))

	// Second add of the same id is a no-op.
	assert.False(t, c.Add("q-1"))
	assert.Equal(t, 1, c.Len())
}

func TestDedupeCache_IgnoresEmptyID(t *testing.T) {
	c := NewDedupeCache(4)

	assert.False(t, c.Add(""))
	assert.Equal(t, 0, c.Len())
}

func TestDedupeCache_EvictsOldestAtBound(t *testing.T) {
	c := NewDedupeCache(3)

	for i := 0; i < 3; i++ {
		c.Add(fmt.Sprintf("q-%d", i))
	}
	assert.Equal(t, 3, c.Len())

	c.Add("q-3")
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("q-0"), "oldest entry should be evicted")
	assert.True(t, c.Seen("q-1"))
	assert.True(t, c.Seen("q-3"))
}

func TestDedupeCache_Reset(t *testing.T) {
	c := NewDedupeCache(4)
	c.Add("q-1")
	c.Add("q-2")

	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Seen("q-1"))
	assert.True(t, c.Add("q-1"))
}

func TestDedupeCache_DefaultSizeWhenInvalid(t *testing.T) {
	c := NewDedupeCache(0)
	assert.Equal(t, defaultDedupeSize, c.max)
}
