package hashtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedValue(t *testing.T, c *nodeCache, nd Node) []byte {
	t.Helper()
	v, ok := c.get(nd)
	require.True(t, ok, "%v not cached", nd)
	return v
}

func TestChangeSize_GrowComplete(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	old, nw := NewShape(0), NewShape(3)

	relocated, ok := c.changeSize(&old, &nw, &root)
	require.True(t, ok)
	assert.Equal(t, Node{1, 0}, relocated)
	assert.Equal(t, []byte("root"), cachedValue(t, c, Node{1, 0}))
	assert.True(t, c.dirty.Contains(nw.NodeNumber(Node{1, 0})))
}

func TestChangeSize_GrowRootKeepsIdentity(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	old, nw := NewShape(0), NewShape(1)

	_, ok := c.changeSize(&old, &nw, &root)
	assert.False(t, ok)
	assert.True(t, c.cached.Empty())
}

func TestChangeSize_GrowMovesDanglingNode(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	c.put(Node{2, 1}, []byte("tail"))
	c.put(Node{0, 4}, []byte("leaf"))
	old, nw := NewShape(4), NewShape(6)

	relocated, ok := c.changeSize(&old, &nw, &root)
	require.True(t, ok)
	assert.Equal(t, Node{1, 2}, relocated)
	assert.Equal(t, []byte("tail"), cachedValue(t, c, Node{1, 2}))
	_, found := c.get(Node{2, 1})
	assert.False(t, found)
	assert.False(t, c.cached.Contains(7))
	assert.True(t, c.dirty.Contains(10))
}

func TestChangeSize_GrowWithinSkip(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	c.put(Node{2, 1}, []byte("tail"))
	old, nw := NewShape(4), NewShape(5)

	_, ok := c.changeSize(&old, &nw, &root)
	assert.False(t, ok)
	assert.Equal(t, []byte("tail"), cachedValue(t, c, Node{2, 1}))
}

func TestChangeSize_ShrinkToComplete(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("old root")}
	for n := uint64(0); n < 4; n++ {
		c.put(Node{0, n}, []byte{byte(n)})
	}
	c.put(Node{1, 0}, []byte("left"))
	c.put(Node{1, 1}, []byte("right"))
	old, nw := NewShape(3), NewShape(1)

	relocated, ok := c.changeSize(&old, &nw, &root)
	require.True(t, ok)
	assert.Equal(t, Node{1, 0}, relocated)
	assert.Equal(t, []byte("left"), root.Hash)
	for _, nd := range []Node{{1, 0}, {1, 1}, {0, 2}, {0, 3}} {
		_, found := c.get(nd)
		assert.False(t, found, "%v", nd)
	}
	assert.Equal(t, []byte{1}, cachedValue(t, c, Node{0, 1}))
}

func TestChangeSize_ShrinkToIncomplete(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	c.put(Node{1, 2}, []byte("pair"))
	c.put(Node{1, 3}, []byte("gone"))
	c.put(Node{2, 1}, []byte("stale"))
	c.put(Node{0, 4}, []byte("leaf"))
	old, nw := NewShape(6), NewShape(4)

	relocated, ok := c.changeSize(&old, &nw, &root)
	require.True(t, ok)
	assert.Equal(t, Node{2, 1}, relocated)
	assert.Equal(t, []byte("pair"), cachedValue(t, c, Node{2, 1}))
	assert.True(t, c.dirty.Contains(7))
	for _, nd := range []Node{{1, 2}, {1, 3}} {
		_, found := c.get(nd)
		assert.False(t, found, "%v", nd)
	}
	assert.Equal(t, []byte("leaf"), cachedValue(t, c, Node{0, 4}))
}

func TestChangeSize_ShrinkToEmpty(t *testing.T) {
	c := newNodeCache()
	root := rootNode{Hash: []byte("root")}
	c.put(Node{0, 0}, []byte("leaf"))
	old, nw := NewShape(3), NewShape(MaxLeafEmpty)

	_, ok := c.changeSize(&old, &nw, &root)
	assert.False(t, ok)
	assert.True(t, c.cached.Empty())
}
