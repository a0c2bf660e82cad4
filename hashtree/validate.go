package hashtree

import (
	"bytes"
	"fmt"
)

// digest returns the digest of the concatenation of parts.
func (t *Tree) digest(parts ...[]byte) []byte {
	h := t.cfg.Digest.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// combine computes the value of an internal node from its children. A node
// whose children are both all zero covers only unwritten data and is itself
// all zero.
func (t *Tree) combine(left, right []byte) []byte {
	if isZero(left) && isZero(right) {
		return make([]byte, t.layout.DigestSize)
	}
	return t.digest(left, right)
}

// knownValue returns the value of nd if it can be determined without I/O.
// Nodes that do not exist in a tree of the current size are all zero.
func (t *Tree) knownValue(nd Node) ([]byte, bool) {
	if !t.shape.Exists(nd) {
		return make([]byte, t.layout.NodeSize(nd.Level)), true
	}
	return t.cache.get(nd)
}

// storedHash returns the stored hash of an internal node or the root.
func (t *Tree) storedHash(nd Node) ([]byte, bool) {
	if t.shape.IsRoot(nd) {
		return t.root.Hash, true
	}
	return t.cache.get(nd)
}

// checkNode recomputes nd from its children, if both are known, and compares
// the result with the stored hash.
func (t *Tree) checkNode(nd Node) error {
	stored, ok := t.storedHash(nd)
	if !ok {
		return nil
	}
	if t.shape.RootOnly() {
		if !isZero(stored) {
			return fmt.Errorf("%w: %w", ErrIntegrity, ErrRootHashMismatch)
		}
		return nil
	}
	left, right := t.shape.Children(nd)
	lv, lok := t.knownValue(left)
	rv, rok := t.knownValue(right)
	if !lok || !rok {
		return nil
	}
	if bytes.Equal(t.combine(lv, rv), stored) {
		return nil
	}
	if t.shape.IsRoot(nd) {
		return fmt.Errorf("%w: %w", ErrIntegrity, ErrRootHashMismatch)
	}
	return fmt.Errorf("%w: %w: node %v (%d)", ErrIntegrity, ErrNodeHashMismatch, nd, t.shape.NodeNumber(nd))
}

// validate checks every node whose children were affected by the nodes just
// fetched: the fetched internal nodes themselves and the parents of every
// fetched node. The root is always checked, it is trusted by signature.
func (t *Tree) validate(fetched *NodeSet) error {
	check := map[Node]struct{}{t.shape.Root(): {}}
	for _, num := range fetched.Members() {
		nd, ok := t.shape.NodeFromNumber(num)
		if !ok {
			continue
		}
		if !nd.IsLeaf() {
			check[nd] = struct{}{}
		}
		check[t.shape.Parent(nd, 1)] = struct{}{}
	}
	for nd := range check {
		if err := t.checkNode(nd); err != nil {
			return err
		}
	}
	return nil
}

// checkLeaf verifies a cached leaf value against the block content. The all
// zero leaf is the sparse hole sentinel and matches any content.
func (t *Tree) checkLeaf(leaf uint64, value, data []byte) error {
	if isZero(value) {
		return nil
	}
	if !bytes.Equal(t.layout.leafHash(value), t.digest(data)) {
		return fmt.Errorf("%w: %w: leaf %d", ErrIntegrity, ErrLeafHashMismatch, leaf)
	}
	return nil
}
