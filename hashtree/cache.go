package hashtree

// nodeCache holds the raw values of the non root nodes read from, or destined
// for, the metadata object. Membership and dirtiness are tracked by node
// number. Node numbers of non root nodes do not depend on the tree size, so
// the number sets stay valid across a resize.
type nodeCache struct {
	values map[Node][]byte
	cached NodeSet
	dirty  NodeSet
}

func newNodeCache() *nodeCache {
	return &nodeCache{values: make(map[Node][]byte)}
}

func (c *nodeCache) reset() {
	clear(c.values)
	c.cached.Reset()
	c.dirty.Reset()
}

func (c *nodeCache) get(nd Node) ([]byte, bool) {
	v, ok := c.values[nd]
	return v, ok
}

func (c *nodeCache) put(nd Node, value []byte) {
	c.values[nd] = value
	c.cached.Add(rawNodeNumber(nd.Level, nd.N))
}

func (c *nodeCache) putDirty(nd Node, value []byte) {
	c.put(nd, value)
	c.dirty.Add(rawNodeNumber(nd.Level, nd.N))
}

func (c *nodeCache) remove(nd Node) {
	num := rawNodeNumber(nd.Level, nd.N)
	delete(c.values, nd)
	c.cached.Remove(num)
	c.dirty.Remove(num)
}

// move relocates the value cached for from to the identity to and marks it
// dirty.
func (c *nodeCache) move(from, to Node) bool {
	v, ok := c.values[from]
	if !ok {
		return false
	}
	c.remove(from)
	c.putDirty(to, v)
	return true
}

// changeSize adjusts the cache for a tree resized from old to nw. At most one
// node is relocated, it is returned with ok set.
//
// Growing a complete tree turns the old root into an ordinary node. Growing
// an incomplete tree can bring the level skipped by the dangling branch into
// existence. The dangling node's children are unchanged by the growth, so its
// value moves down to the newly existing node. Shrinking is the reverse: the
// node directly above the new dangling branch moves up to the skipping
// identity, or becomes the root if the smaller tree is complete.
func (c *nodeCache) changeSize(old, nw *Shape, root *rootNode) (relocated Node, ok bool) {
	switch {
	case nw.maxLeaf == old.maxLeaf:
		return Node{}, false
	case nw.maxLeaf < 0:
		c.reset()
		return Node{}, false
	case old.maxLeaf < 0:
		return Node{}, false
	case nw.maxLeaf > old.maxLeaf:
		return c.grow(old, nw, root)
	}
	return c.shrink(old, nw, root)
}

func (c *nodeCache) grow(old, nw *Shape, root *rootNode) (Node, bool) {
	if old.Complete() {
		nd := old.Root()
		if nw.IsRoot(nd) {
			return Node{}, false
		}
		c.putDirty(nd, append([]byte(nil), root.Hash...))
		return nd, true
	}
	below, dangling, ok := old.danglingBranch()
	if !ok {
		return Node{}, false
	}
	to := nw.Parent(below, 1)
	if to == dangling {
		return Node{}, false
	}
	if !c.move(dangling, to) {
		return Node{}, false
	}
	return to, true
}

func (c *nodeCache) shrink(old, nw *Shape, root *rootNode) (Node, bool) {
	var relocated Node
	var ok bool

	if nw.Complete() {
		nd := nw.Root()
		if v, found := c.values[nd]; found {
			root.Hash = append(root.Hash[:0], v...)
			c.remove(nd)
			relocated, ok = nd, true
		}
	} else if below, dangling, found := nw.danglingBranch(); found {
		from := old.Parent(below, 1)
		if from != dangling && c.move(from, dangling) {
			relocated, ok = dangling, true
		}
	}

	for nd := range c.values {
		if !nw.Exists(nd) || nw.IsRoot(nd) {
			c.remove(nd)
		}
	}
	return relocated, ok
}
