package hashtree

import (
	"fmt"
	"math/bits"
)

// Node is the identity of a tree node: its level (leaves are level 0) and its
// position within that level.
type Node struct {
	Level uint64
	N     uint64
}

func (nd Node) String() string {
	return fmt.Sprintf("(%d,%d)", nd.Level, nd.N)
}

func (nd Node) IsLeaf() bool { return nd.Level == 0 }

// LevelStart returns the node number of the first node at level.
func LevelStart(level uint64) uint64 {
	return (uint64(1) << (level + 1)) - 2
}

// NodeGroupDistance returns the node number distance between consecutive
// sibling pairs on level.
func NodeGroupDistance(level uint64) uint64 {
	return uint64(1) << (level + 2)
}

// rawNodeNumber is the node number of (level, n) ignoring the tree size.
func rawNodeNumber(level, n uint64) uint64 {
	return LevelStart(level) + (n/2)*NodeGroupDistance(level) + n%2
}

// NodeNumber returns the linear node number for nd. The root maps to the max
// node number. Nodes that do not exist in a tree of this size map to max node
// number + 1.
func (s *Shape) NodeNumber(nd Node) uint64 {
	if nd.Level >= s.maxLevel {
		if s.IsRoot(nd) {
			return s.maxNodeNumber
		}
		return s.maxNodeNumber + 1
	}
	num := rawNodeNumber(nd.Level, nd.N)
	if num >= s.maxNodeNumber {
		return s.maxNodeNumber + 1
	}
	return num
}

// Exists is true if nd is part of a tree of this size.
func (s *Shape) Exists(nd Node) bool {
	return s.NodeNumber(nd) <= s.maxNodeNumber
}

// NodeFromNumber is the inverse of NodeNumber.
func (s *Shape) NodeFromNumber(num uint64) (Node, bool) {
	if num == s.maxNodeNumber {
		return s.Root(), true
	}
	if num > s.maxNodeNumber {
		return Node{}, false
	}
	for level := uint64(0); level < s.maxLevel; level++ {
		start := LevelStart(level)
		if num < start {
			break
		}
		d := NodeGroupDistance(level)
		group, offset := (num-start)/d, (num-start)%d
		if offset <= 1 {
			return Node{Level: level, N: group*2 + offset}, true
		}
	}
	return Node{}, false
}

// Parent returns the ancestor r levels above nd. Where the tree is incomplete
// the naive ancestor may not exist. In that case the search continues upward
// until an existing node is found, ultimately the root.
func (s *Shape) Parent(nd Node, r uint64) Node {
	if r == 0 {
		return nd
	}
	for level := nd.Level + r; level < s.maxLevel; level++ {
		n := nd.N >> (level - nd.Level)
		if rawNodeNumber(level, n) < s.maxNodeNumber {
			return Node{Level: level, N: n}
		}
	}
	return s.Root()
}

// Children returns the left and right child of nd. If the naive left child
// does not exist the search descends along the left edge until it finds one
// that does. The right child is the left child's sibling and may not exist,
// in which case it is treated as all zero.
func (s *Shape) Children(nd Node) (left, right Node) {
	level := nd.Level - 1
	n := nd.N << 1
	for level > 0 && rawNodeNumber(level, n) >= s.maxNodeNumber {
		level--
		n <<= 1
	}
	return Node{Level: level, N: n}, Node{Level: level, N: n + 1}
}

func (s *Shape) LeftChild(nd Node) Node {
	l, _ := s.Children(nd)
	return l
}

func (s *Shape) RightChild(nd Node) Node {
	_, r := s.Children(nd)
	return r
}

func (s *Shape) LeftSibling(nd Node) Node {
	return Node{Level: nd.Level, N: nd.N &^ 1}
}

// RightSibling forces the low bit of n to 1. The tail leaf of an odd number
// of leaves is its own right sibling.
func (s *Shape) RightSibling(nd Node) Node {
	sib := Node{Level: nd.Level, N: nd.N | 1}
	if nd.Level == 0 && !s.Exists(sib) {
		return nd
	}
	return sib
}

// CommonAncestor returns the lowest node that has both a and b, which must be
// on the same level, as descendants.
func (s *Shape) CommonAncestor(a, b Node) Node {
	if a.N == b.N {
		return a
	}
	r := uint64(bits.Len64(a.N ^ b.N))
	return s.Parent(a, r)
}

// AncestorsWithSiblings returns the authentication path of nd: each ancestor
// (starting with nd itself) paired with its sibling, and finally the root.
func (s *Shape) AncestorsWithSiblings(nd Node) *NodeSet {
	set := NewNodeSet()
	s.addAncestorsWithSiblings(set, nd)
	return set
}

func (s *Shape) addAncestorsWithSiblings(set *NodeSet, nd Node) {
	for cur := nd; !s.IsRoot(cur); cur = s.Parent(cur, 1) {
		left := s.LeftSibling(cur)
		set.Add(s.NodeNumber(left))
		if right := (Node{Level: cur.Level, N: left.N + 1}); s.Exists(right) {
			set.Add(s.NodeNumber(right))
		}
	}
	set.Add(s.maxNodeNumber)
}
