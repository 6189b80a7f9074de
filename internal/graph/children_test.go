package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/graphsync/internal/source"
)

func TestChildren_InsertAfter(t *testing.T) {
	c := newChildren[string]()
	c.insert("a", "1", "")
	c.insert("b", "2", "")
	c.insert("c", "3", "a")
	c.insert("d", "4", "missing")
	c.insert("e", "5", "e")

	assert.Equal(t, []string{"1", "3", "2", "4", "5"}, c.values())
	assert.Equal(t, []source.Target{"a", "c", "b", "d", "e"}, c.targets())

	id, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", id)
	assert.True(t, c.has("d"))
}

func TestChildren_RemoveAndDrain(t *testing.T) {
	c := newChildren[string]()
	c.insert("a", "1", "")
	c.insert("b", "2", "")

	assert.True(t, c.remove("a"))
	assert.False(t, c.remove("a"))
	assert.Equal(t, 1, c.len())

	assert.Equal(t, []string{"2"}, c.drain())
	assert.Zero(t, c.len())
	assert.Empty(t, c.values())
}
