package hashtree

// climbComplete walks up from nd while the ancestor reached covers only
// leaves at or after nd's leftmost leaf (fromLeft) or at or before its
// rightmost leaf (from the right). A skipped level only permits the step if
// every skipped bit agrees. When pastTail is set the right hand walk also
// climbs over ancestors whose right sibling does not exist.
func (s *Shape) climbComplete(nd Node, fromLeft, pastTail bool) Node {
	cur := nd
	for !s.IsRoot(cur) {
		p := s.Parent(cur, 1)
		d := p.Level - cur.Level
		switch {
		case fromLeft && lowBitsClear(cur.N, d):
		case !fromLeft && lowBitsSet(cur.N, d):
		case !fromLeft && pastTail && !s.Exists(Node{Level: cur.Level, N: cur.N | 1}):
		default:
			return cur
		}
		cur = p
	}
	return cur
}

// startBoundary returns the node whose authentication path is needed for a
// write whose first leaf is leaf.
func (s *Shape) startBoundary(leaf uint64, complete bool) Node {
	nd := Node{N: leaf}
	if !complete {
		return nd
	}
	return s.climbComplete(nd, true, false)
}

// endBoundary returns the node whose authentication path is needed for a
// write whose last leaf is leaf.
func (s *Shape) endBoundary(leaf uint64, complete bool) Node {
	nd := Node{N: leaf}
	if !complete {
		return nd
	}
	return s.climbComplete(nd, false, true)
}

// tailAnchor returns the boundary node for the current last leaf when a
// write or truncate grows the tree past it. The leaves to its right come into
// existence, so no climbing past the tail is allowed.
func (s *Shape) tailAnchor(complete bool) (Node, bool) {
	nd, ok := s.TailLeaf()
	if !ok {
		return Node{}, false
	}
	if !complete {
		return nd, true
	}
	return s.climbComplete(nd, false, false), true
}

// RequiredNodesForRead returns the node numbers needed to authenticate the
// leaves [start, end]. The leaves, their siblings and every interior node
// between them form one contiguous range. The authentication paths of the
// two edge leaves join that range to the root.
func (s *Shape) RequiredNodesForRead(start, end uint64) *NodeSet {
	set := NewNodeSet()
	if !s.Initialised() {
		return set
	}
	if s.RootOnly() || int64(start) > s.maxLeaf {
		set.Add(s.maxNodeNumber)
		return set
	}
	end = min(end, uint64(s.maxLeaf))

	first := s.NodeNumber(s.LeftSibling(Node{N: start}))
	last := s.NodeNumber(s.RightSibling(Node{N: end}))
	set.AddRange(first, last)

	s.addAncestorsWithSiblings(set, Node{N: start})
	s.addAncestorsWithSiblings(set, Node{N: end})
	return set
}

// writePlan is the outcome of planning a write against the current shape.
type writePlan struct {
	need *NodeSet
	// anchor is the boundary node of the current tail when the write grows
	// the tree.
	anchor    Node
	hasAnchor bool
}

// RequiredNodesForWrite returns the node numbers needed to update the tree
// for a write of the leaves [start, end]. completeStart and completeEnd state
// whether the boundary leaves are entirely overwritten, completeMax whether
// the current last leaf is complete when the write lies beyond it.
func (s *Shape) RequiredNodesForWrite(start uint64, completeStart bool, end uint64, completeEnd bool, completeMax bool) *NodeSet {
	return s.planWrite(start, completeStart, end, completeEnd, completeMax).need
}

func (s *Shape) planWrite(start uint64, completeStart bool, end uint64, completeEnd bool, completeMax bool) writePlan {
	plan := writePlan{need: NewNodeSet()}
	if !s.Initialised() {
		return plan
	}
	if s.RootOnly() {
		plan.need.Add(s.maxNodeNumber)
		return plan
	}
	maxLeaf := uint64(s.maxLeaf)

	if start <= maxLeaf {
		s.addAncestorsWithSiblings(plan.need, s.startBoundary(start, completeStart))
	}
	if end <= maxLeaf {
		s.addAncestorsWithSiblings(plan.need, s.endBoundary(end, completeEnd))
	} else {
		plan.anchor, plan.hasAnchor = s.tailAnchor(completeMax)
		s.addAncestorsWithSiblings(plan.need, plan.anchor)
	}
	return plan
}

// planTruncate returns the plan for resizing the tree so that newMax is the
// last leaf. complete states whether that leaf is left intact. For a shrink
// the anchor is found in the smaller tree, its identity is the same in both.
func (s *Shape) planTruncate(newMax int64, complete bool) writePlan {
	plan := writePlan{need: NewNodeSet()}
	if !s.Initialised() {
		return plan
	}
	if s.RootOnly() {
		plan.need.Add(s.maxNodeNumber)
		return plan
	}
	switch {
	case newMax < 0:
		plan.need.Add(s.maxNodeNumber)
	case newMax > s.maxLeaf:
		plan.anchor, plan.hasAnchor = s.tailAnchor(complete)
		s.addAncestorsWithSiblings(plan.need, plan.anchor)
	case newMax == s.maxLeaf:
		s.addAncestorsWithSiblings(plan.need, s.endBoundary(uint64(newMax), complete))
	default:
		smaller := NewShape(newMax)
		plan.anchor, plan.hasAnchor = smaller.tailAnchor(complete)
		s.addAncestorsWithSiblings(plan.need, plan.anchor)
	}
	return plan
}
