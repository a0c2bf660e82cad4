package hashtree

import (
	"cmp"
	"fmt"
	"slices"
)

// stagedLeaf is a leaf value waiting for the update pass. A zero version
// means the leaf takes the version of that update.
type stagedLeaf struct {
	adata   []byte
	hash    []byte
	version uint64
}

// pendingWrite is the state of the open Start/Finish bracket together with
// whatever the update pass has not yet committed.
type pendingWrite struct {
	start, end    uint64
	completeStart bool
	completeEnd   bool
	completeMax   bool
	truncating    bool

	// maxLeaf is the max leaf the next update resizes the tree to.
	maxLeaf int64
	// oldMaxLeaf is the max leaf when the bracket was opened.
	oldMaxLeaf int64

	// anchors are the boundary nodes of the tail, in the shape the bracket
	// was planned against, whose ancestors change with the resize.
	anchors []Node
}

// allows reports whether leaf may be staged in the open bracket. Besides the
// declared range, the last leaf before a resize may be rewritten to pad or
// trim a partial block.
func (p *pendingWrite) allows(leaf uint64) bool {
	if leaf >= p.start && leaf <= p.end {
		return true
	}
	if p.oldMaxLeaf >= 0 && leaf == uint64(p.oldMaxLeaf) && p.maxLeaf != p.oldMaxLeaf {
		return true
	}
	return false
}

// childValue returns the value of a child needed to recompute its parent.
// Nodes beyond the extent of the metadata object were never written and are
// zero.
func (t *Tree) childValue(nd Node) ([]byte, error) {
	if v, ok := t.knownValue(nd); ok {
		return v, nil
	}
	if rawNodeNumber(nd.Level, nd.N) >= t.diskMaxNodeNumber {
		return make([]byte, t.layout.NodeSize(nd.Level)), nil
	}
	return nil, fmt.Errorf("%w: %w: node %v", ErrInvalidState, ErrNodeNotLoaded, nd)
}

func (t *Tree) computeNode(nd Node) ([]byte, error) {
	left, right := t.shape.Children(nd)
	lv, err := t.childValue(left)
	if err != nil {
		return nil, err
	}
	rv, err := t.childValue(right)
	if err != nil {
		return nil, err
	}
	return t.combine(lv, rv), nil
}

// resize moves the tree to the pending max leaf and returns the nodes above
// which every ancestor must be recomputed.
func (t *Tree) resize() []Node {
	old := t.shape
	target := t.pending.maxLeaf
	nw := NewShape(target)

	relocated, moved := t.cache.changeSize(&old, &nw, &t.root)
	t.shape = nw
	if moved {
		t.log.Debugf("resize: %d -> %d relocated %v", old.maxLeaf, target, relocated)
	}

	switch {
	case target < 0:
		t.root.Hash = make([]byte, t.layout.DigestSize)
		return nil
	case old.maxLeaf < 0:
		return nil
	}
	var seeds []Node
	if target > old.maxLeaf && moved {
		seeds = append(seeds, relocated)
	}
	for _, nd := range t.pending.anchors {
		if t.shape.Exists(nd) {
			seeds = append(seeds, nd)
		}
	}
	return seeds
}

// updateTree folds the staged leaves into the cache, resizes the tree,
// recomputes every affected ancestor bottom up and signs the new root.
func (t *Tree) updateTree() error {
	if t.pending.maxLeaf == MaxLeafNone {
		t.pending.maxLeaf = MaxLeafEmpty
	}
	if want := t.cfg.MaxLeafForFileSize(t.fileSize); want != t.pending.maxLeaf {
		return fmt.Errorf("%w: %w: size %d needs max leaf %d, the tree has %d",
			ErrInvalidState, ErrFileSize, t.fileSize, want, t.pending.maxLeaf)
	}

	var seeds []Node
	if t.pending.maxLeaf != t.shape.maxLeaf {
		seeds = append(seeds, t.resize()...)
	}

	version := t.root.Version + 1
	for leaf, st := range t.staged {
		if int64(leaf) > t.shape.maxLeaf {
			continue
		}
		nd := Node{N: leaf}
		lv := version
		if st.version != 0 {
			lv = st.version
		}
		t.cache.putDirty(nd, t.layout.encodeLeaf(lv, st.adata, st.hash))
		seeds = append(seeds, nd)
	}
	clear(t.staged)

	work := make(map[Node]struct{})
	rootChanged := false
	for _, seed := range seeds {
		for cur := seed; !t.shape.IsRoot(cur); {
			cur = t.shape.Parent(cur, 1)
			if t.shape.IsRoot(cur) {
				rootChanged = true
				break
			}
			if _, seen := work[cur]; seen {
				break
			}
			work[cur] = struct{}{}
		}
	}

	order := make([]Node, 0, len(work))
	for nd := range work {
		order = append(order, nd)
	}
	slices.SortFunc(order, func(a, b Node) int {
		if c := cmp.Compare(a.Level, b.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.N, b.N)
	})
	for _, nd := range order {
		v, err := t.computeNode(nd)
		if err != nil {
			return err
		}
		t.cache.putDirty(nd, v)
	}

	switch {
	case t.shape.RootOnly():
		t.root.Hash = make([]byte, t.layout.DigestSize)
	case rootChanged:
		h, err := t.computeNode(t.shape.Root())
		if err != nil {
			return err
		}
		t.root.Hash = h
	}

	t.root.Version = version
	t.root.FileSize = t.fileSize
	sig, err := t.signer.Sign(t.root.signedContent())
	if err != nil {
		return err
	}
	if len(sig) != t.layout.SignatureSize {
		return fmt.Errorf("%w: got %d, want %d", ErrSignatureSize, len(sig), t.layout.SignatureSize)
	}
	t.root.Signature = sig
	t.rootDirty = true
	t.sizeChanged = false
	t.pending = pendingWrite{maxLeaf: t.shape.maxLeaf, oldMaxLeaf: t.shape.maxLeaf}

	t.log.Debugf("update: %d nodes recomputed, max leaf %d, version %d", len(order), t.shape.maxLeaf, version)
	return nil
}
