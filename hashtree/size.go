package hashtree

import "math/bits"

const (
	// MaxLeafEmpty is the max leaf number of a tree that has only a root.
	MaxLeafEmpty int64 = -1
	// MaxLeafNone is the max leaf number of a tree that does not exist yet.
	MaxLeafNone int64 = -2

	// MaxLeafLimit bounds the leaf count so that node numbers and byte
	// offsets stay well inside 64 bits.
	MaxLeafLimit int64 = 1 << 56
)

// Shape captures the size dependent constants of a tree. All addressing is
// derived from the max leaf number. The zero value is not usable, use
// NewShape.
type Shape struct {
	maxLeaf       int64
	maxLevel      uint64
	maxNodeNumber uint64
}

func NewShape(maxLeaf int64) Shape {
	s := Shape{}
	s.SetSize(maxLeaf)
	return s
}

// SetSize derives max level and max node number from the max leaf number.
//
// For max leaf 15 the tree has 16 leaves, the root is at level 4 and its
// node number is 30.
func (s *Shape) SetSize(maxLeaf int64) {
	s.maxLeaf = maxLeaf
	if maxLeaf < 0 {
		s.maxLevel = 0
		s.maxNodeNumber = 0
		return
	}
	s.maxLevel = max(1, uint64(bits.Len64(uint64(maxLeaf))))
	s.maxNodeNumber = rawNodeNumber(0, uint64(maxLeaf)) + 1
}

func (s *Shape) MaxLeaf() int64 { return s.maxLeaf }
func (s *Shape) MaxLevel() uint64 { return s.maxLevel }
func (s *Shape) MaxNodeNumber() uint64 { return s.maxNodeNumber }
func (s *Shape) Initialised() bool { return s.maxLeaf != MaxLeafNone }
func (s *Shape) RootOnly() bool { return s.maxLeaf < 0 }
func (s *Shape) Root() Node { return Node{Level: s.maxLevel} }
func (s *Shape) IsRoot(nd Node) bool { return nd.Level == s.maxLevel && nd.N == 0 }
func (s *Shape) LeafCount() uint64 { return uint64(s.maxLeaf + 1) }
func (s *Shape) TailLeaf() (Node, bool) { return Node{N: uint64(s.maxLeaf)}, s.maxLeaf >= 0 }

// Complete is true when the leaf count is a power of two. Root only trees
// count as complete.
func (s *Shape) Complete() bool {
	if s.maxLeaf < 0 {
		return true
	}
	return AllOnes(uint64(s.maxLeaf))
}

// danglingBranch finds the lowest point on the tail path where the parent
// skips one or more levels. below is the node immediately beneath the skip
// and above is the parent it skips to.
func (s *Shape) danglingBranch() (below, above Node, ok bool) {
	cur, ok := s.TailLeaf()
	if !ok {
		return Node{}, Node{}, false
	}
	for !s.IsRoot(cur) {
		p := s.Parent(cur, 1)
		if p.Level > cur.Level+1 {
			return cur, p, true
		}
		cur = p
	}
	return Node{}, Node{}, false
}
