package hashtree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/datatrails/go-datatrails-common/logger"
)

type state int

const (
	stateNeutral state = iota
	stateReading
	stateWriting
	stateTruncating
)

func (s state) String() string {
	switch s {
	case stateNeutral:
		return "neutral"
	case stateReading:
		return "reading"
	case stateWriting:
		return "writing"
	case stateTruncating:
		return "truncating"
	}
	return "unknown"
}

// Stats counts the calls made to the metadata object.
type Stats struct {
	Reads     int
	Writes    int
	Truncates int
}

// Tree is the authenticated hash tree of one encrypted file. A Tree is not
// safe for concurrent use.
type Tree struct {
	cfg    Config
	log    logger.Logger
	obj    MetaObject
	signer Signer
	layout Layout

	shape     Shape
	root      rootNode
	rootDirty bool

	// diskMaxNodeNumber is the max node number of the tree as last read from
	// or written to the metadata object. Nodes at or beyond it read as zero.
	diskMaxNodeNumber uint64

	cache  *nodeCache
	staged map[uint64]stagedLeaf

	fileSize    uint64
	sizeChanged bool

	state         state
	pending       pendingWrite
	startRootHash []byte
	startVersion  uint64

	initialised bool
	faulted     bool
	stats       Stats
}

func New(log logger.Logger, obj MetaObject, signer Signer, opts ...Option) (*Tree, error) {
	cfg := NewConfig(opts...)
	if !cfg.Digest.Available() {
		return nil, ErrDigestNotUsable
	}
	if cfg.BlockSize == 0 || cfg.AdataSize < 0 {
		return nil, fmt.Errorf("%w: block size %d, adata size %d", ErrInvalidState, cfg.BlockSize, cfg.AdataSize)
	}
	if _, ok := policyNames[cfg.Policy]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrPolicyNotKnown, cfg.Policy)
	}
	t := &Tree{
		cfg:    cfg,
		log:    log,
		obj:    obj,
		signer: signer,
		layout: Layout{
			DigestSize:    cfg.Digest.Size(),
			AdataSize:     cfg.AdataSize,
			SignatureSize: signer.SignatureSize(),
		},
		shape:  NewShape(MaxLeafNone),
		cache:  newNodeCache(),
		staged: make(map[uint64]stagedLeaf),
	}
	return t, nil
}

func (t *Tree) Config() Config    { return t.cfg }
func (t *Tree) Layout() Layout    { return t.layout }
func (t *Tree) Shape() Shape      { return t.shape }
func (t *Tree) Stats() Stats      { return t.stats }
func (t *Tree) MaxLeaf() int64    { return t.shape.maxLeaf }
func (t *Tree) Version() uint64   { return t.root.Version }
func (t *Tree) Exists() bool      { return t.shape.Initialised() }
func (t *Tree) FileSize() uint64  { return t.fileSize }
func (t *Tree) RootHash() []byte  { return append([]byte(nil), t.root.Hash...) }
func (t *Tree) SetSigner(s Signer) { t.signer = s }

// SetFileSize records the logical file size committed with the next root.
func (t *Tree) SetFileSize(size uint64) {
	if size != t.fileSize {
		t.fileSize = size
		t.sizeChanged = true
	}
}

// fault invalidates the tree if err is an integrity failure.
func (t *Tree) fault(err error) error {
	if errors.Is(err, ErrIntegrity) {
		t.invalidate(err)
	}
	return err
}

// invalidate discards everything derived from the metadata object. The tree
// refuses further work until Init succeeds.
func (t *Tree) invalidate(err error) {
	t.log.Infof("hash tree fault: %v", err)
	t.cache.reset()
	clear(t.staged)
	t.state = stateNeutral
	t.faulted = true
}

func (t *Tree) ready() error {
	if t.faulted {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrFaulted)
	}
	if !t.initialised {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrNotInitialised)
	}
	return nil
}

// readRoot reads and verifies the root. exists is false if the metadata
// object is empty.
func (t *Tree) readRoot(ctx context.Context) (root rootNode, exists bool, err error) {
	if r, ok := t.obj.(Reloader); ok {
		if err = r.Reload(ctx); err != nil {
			return rootNode{}, false, err
		}
	}
	buf := make([]byte, t.layout.RootSize())
	t.stats.Reads++
	n, err := t.obj.ReadAt(ctx, buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return rootNode{}, false, err
	}
	if n == 0 {
		return rootNode{}, false, nil
	}
	if n < len(buf) {
		return rootNode{}, false, fmt.Errorf("%w: root truncated to %d bytes", ErrIntegrity, n)
	}
	root = t.layout.decodeRoot(buf)
	if err = t.signer.Verify(root.signedContent(), root.Signature); err != nil {
		return rootNode{}, false, fmt.Errorf("%w: %w: %v", ErrIntegrity, ErrRootSignature, err)
	}
	return root, true, nil
}

// load replaces all tree state with what the metadata object holds.
func (t *Tree) load(ctx context.Context) error {
	root, exists, err := t.readRoot(ctx)
	if err != nil {
		return err
	}
	t.cache.reset()
	t.rootDirty = false
	if !exists {
		t.shape = NewShape(MaxLeafNone)
		t.root = rootNode{
			Hash:      make([]byte, t.layout.DigestSize),
			Signature: make([]byte, t.layout.SignatureSize),
		}
		t.fileSize = 0
		t.diskMaxNodeNumber = 0
		t.pending.maxLeaf = MaxLeafNone
		return nil
	}

	maxLeaf := t.cfg.MaxLeafForFileSize(root.FileSize)
	if maxLeaf >= MaxLeafLimit {
		return fmt.Errorf("%w: %w: max leaf %d", ErrIntegrity, ErrTreeTooLarge, maxLeaf)
	}
	t.shape = NewShape(maxLeaf)
	t.root = root
	t.fileSize = root.FileSize
	t.diskMaxNodeNumber = t.shape.maxNodeNumber
	t.pending.maxLeaf = maxLeaf
	if t.shape.RootOnly() && !isZero(root.Hash) {
		return fmt.Errorf("%w: %w", ErrIntegrity, ErrRootHashMismatch)
	}
	return nil
}

// Init reads and verifies the root signature, discarding any cached state.
// A missing or empty metadata object is recorded as a tree that does not
// exist yet.
func (t *Tree) Init(ctx context.Context) error {
	clear(t.staged)
	t.pending = pendingWrite{}
	t.state = stateNeutral
	t.sizeChanged = false
	t.faulted = false
	t.initialised = false

	if err := t.load(ctx); err != nil {
		return t.fault(err)
	}
	t.pending.oldMaxLeaf = t.shape.maxLeaf
	t.initialised = true
	if !t.Exists() {
		t.log.Infof("hash tree does not exist yet")
		return nil
	}
	t.log.Debugf("hash tree init: max leaf %d, file size %d, version %d",
		t.shape.maxLeaf, t.fileSize, t.root.Version)
	return nil
}

// beginOperation applies the policy to the start of a Start* call.
func (t *Tree) beginOperation(ctx context.Context) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state == stateWriting || t.state == stateTruncating {
		return fmt.Errorf("%w: a %v bracket is already open", ErrInvalidState, t.state)
	}
	switch t.cfg.Policy {
	case PolicyNone:
		if t.hasStaged() {
			return fmt.Errorf("%w: unflushed changes", ErrInvalidState)
		}
		t.cache.reset()
	case PolicyClient:
	case PolicyLocks, PolicyPartialCOW, PolicyCOW:
		if t.hasStaged() {
			return fmt.Errorf("%w: unflushed changes", ErrInvalidState)
		}
		size, changed := t.fileSize, t.sizeChanged
		if err := t.load(ctx); err != nil {
			return t.fault(err)
		}
		if changed {
			t.fileSize, t.sizeChanged = size, true
		}
	}
	t.startRootHash = append(t.startRootHash[:0], t.root.Hash...)
	t.startVersion = t.root.Version
	return nil
}

// hasStaged reports whether leaves or a resize wait for the update pass.
func (t *Tree) hasStaged() bool {
	return len(t.staged) > 0 || t.rootDirty || !t.cache.dirty.Empty() ||
		t.pending.maxLeaf != t.shape.maxLeaf
}

func (t *Tree) hasChanges() bool {
	return t.hasStaged() || t.sizeChanged
}

// fetchAndValidate loads the nodes in need and checks them against the
// verified root.
func (t *Tree) fetchAndValidate(ctx context.Context, need *NodeSet) error {
	fetched, err := t.fetch(ctx, need)
	if err != nil {
		return err
	}
	if err := t.validate(fetched); err != nil {
		return t.fault(err)
	}
	return nil
}

// StartRead loads and authenticates the leaves [start, end].
func (t *Tree) StartRead(ctx context.Context, start, end uint64) error {
	if err := t.beginOperation(ctx); err != nil {
		return err
	}
	t.state = stateReading
	if !t.Exists() || int64(start) > t.shape.maxLeaf {
		return nil
	}
	return t.fetchAndValidate(ctx, t.shape.RequiredNodesForRead(start, end))
}

// StartWrite opens a write of the leaves [start, end]. completeStart and
// completeEnd state whether the first and last leaf are entirely
// overwritten. completeMax states whether the current last leaf is complete,
// it only matters when the write lies beyond it.
func (t *Tree) StartWrite(ctx context.Context, start uint64, completeStart bool, end uint64, completeEnd bool, completeMax bool) error {
	if end < start {
		return fmt.Errorf("%w: write range [%d, %d]", ErrInvalidState, start, end)
	}
	if int64(end) >= MaxLeafLimit {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrTreeTooLarge)
	}
	if err := t.beginOperation(ctx); err != nil {
		return err
	}
	t.pending.start, t.pending.end = start, end
	t.pending.completeStart, t.pending.completeEnd = completeStart, completeEnd
	t.pending.completeMax = completeMax
	t.pending.truncating = false
	t.pending.oldMaxLeaf = t.shape.maxLeaf
	t.pending.maxLeaf = max(t.pending.maxLeaf, int64(end))

	if err := t.planWrite(ctx); err != nil {
		return err
	}
	t.state = stateWriting
	return nil
}

func (t *Tree) planWrite(ctx context.Context) error {
	p := &t.pending
	plan := t.shape.planWrite(p.start, p.completeStart, p.end, p.completeEnd, p.completeMax)
	if plan.hasAnchor {
		p.anchors = append(p.anchors, plan.anchor)
	}
	return t.fetchAndValidate(ctx, plan.need)
}

// StartTruncate opens a resize of the tree so that maxLeaf is the last leaf,
// MaxLeafEmpty truncates to an empty file. completeLeaf states whether the
// last leaf that survives the resize is left intact.
func (t *Tree) StartTruncate(ctx context.Context, maxLeaf int64, completeLeaf bool) error {
	if maxLeaf < MaxLeafEmpty || maxLeaf >= MaxLeafLimit {
		return fmt.Errorf("%w: max leaf %d", ErrInvalidState, maxLeaf)
	}
	if t.cfg.Policy == PolicyClient && t.hasChanges() {
		if err := t.Flush(ctx, false); err != nil {
			return err
		}
	}
	if err := t.beginOperation(ctx); err != nil {
		return err
	}
	t.pending.truncating = true
	t.pending.oldMaxLeaf = t.shape.maxLeaf
	t.pending.maxLeaf = maxLeaf
	t.pending.completeEnd = completeLeaf
	surviving := min(maxLeaf, t.shape.maxLeaf)
	t.pending.start, t.pending.end = 1, 0
	if surviving >= 0 {
		t.pending.start, t.pending.end = uint64(surviving), uint64(surviving)
	}

	if err := t.planTruncate(ctx); err != nil {
		return err
	}
	t.state = stateTruncating
	return nil
}

func (t *Tree) planTruncate(ctx context.Context) error {
	p := &t.pending
	plan := t.shape.planTruncate(p.maxLeaf, p.completeEnd)
	p.anchors = p.anchors[:0]
	if plan.hasAnchor {
		p.anchors = append(p.anchors, plan.anchor)
	}
	if err := t.fetchAndValidate(ctx, plan.need); err != nil {
		return err
	}
	if p.start <= p.end && !p.completeEnd {
		// the surviving last leaf is rewritten by the caller
		return t.fetchAndValidate(ctx, t.shape.RequiredNodesForRead(p.start, p.end))
	}
	return nil
}

// GetLeaf returns the additional data of a loaded leaf after checking data
// against the stored digest. A nil result with no error is a sparse hole.
func (t *Tree) GetLeaf(leaf uint64, data []byte) ([]byte, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if st, ok := t.staged[leaf]; ok {
		if !bytes.Equal(st.hash, t.digest(data)) {
			return nil, t.fault(fmt.Errorf("%w: %w: staged leaf %d", ErrIntegrity, ErrLeafHashMismatch, leaf))
		}
		return append([]byte(nil), st.adata...), nil
	}
	if int64(leaf) > t.shape.maxLeaf {
		return nil, nil
	}
	v, ok := t.cache.get(Node{N: leaf})
	if !ok {
		return nil, fmt.Errorf("%w: %w: leaf %d", ErrInvalidState, ErrLeafNotLoaded, leaf)
	}
	if err := t.checkLeaf(leaf, v, data); err != nil {
		return nil, t.fault(err)
	}
	if isZero(v) {
		return nil, nil
	}
	return append([]byte(nil), t.layout.leafAdata(v)...), nil
}

// GetLeafAdata returns the additional data of a loaded or staged leaf without
// a block content check. The leaf was authenticated when it was loaded. A nil
// result with no error is a sparse hole.
func (t *Tree) GetLeafAdata(leaf uint64) ([]byte, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if st, ok := t.staged[leaf]; ok {
		return append([]byte(nil), st.adata...), nil
	}
	if int64(leaf) > t.shape.maxLeaf {
		return nil, nil
	}
	v, ok := t.cache.get(Node{N: leaf})
	if !ok {
		return nil, fmt.Errorf("%w: %w: leaf %d", ErrInvalidState, ErrLeafNotLoaded, leaf)
	}
	if isZero(v) {
		return nil, nil
	}
	return append([]byte(nil), t.layout.leafAdata(v)...), nil
}

// GetLeafVersion returns the version of a loaded or staged leaf. Leaves
// staged with new content carry the version of the next flush, leaves whose
// additional data alone was replaced keep their version. Sparse leaves are
// version 0.
func (t *Tree) GetLeafVersion(leaf uint64) (uint64, error) {
	if err := t.ready(); err != nil {
		return 0, err
	}
	if st, ok := t.staged[leaf]; ok {
		if st.version != 0 {
			return st.version, nil
		}
		return t.root.Version + 1, nil
	}
	if int64(leaf) > t.shape.maxLeaf {
		return 0, nil
	}
	v, ok := t.cache.get(Node{N: leaf})
	if !ok {
		return 0, fmt.Errorf("%w: %w: leaf %d", ErrInvalidState, ErrLeafNotLoaded, leaf)
	}
	if isZero(v) {
		return 0, nil
	}
	return t.layout.leafVersion(v), nil
}

// SetLeaf stages a new value for leaf. No ancestor is touched until the
// update pass.
func (t *Tree) SetLeaf(leaf uint64, adata, data []byte) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state != stateWriting && t.state != stateTruncating {
		return fmt.Errorf("%w: SetLeaf while %v", ErrInvalidState, t.state)
	}
	if !t.pending.allows(leaf) {
		return fmt.Errorf("%w: %w: leaf %d", ErrInvalidState, ErrLeafOutOfRange, leaf)
	}
	if len(adata) != t.cfg.AdataSize {
		return fmt.Errorf("%w: %w: %d", ErrInvalidState, ErrAdataSize, len(adata))
	}
	t.staged[leaf] = stagedLeaf{
		adata: append([]byte(nil), adata...),
		hash:  t.digest(data),
	}
	return nil
}

// SetLeafAdata replaces the additional data of a leaf whose content is
// unchanged, as when the per block keys are re-wrapped. The leaf keeps its
// version. The leaf must be loaded or staged. Sparse leaves have no
// additional data and are left alone.
func (t *Tree) SetLeafAdata(leaf uint64, adata []byte) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state == stateNeutral {
		return fmt.Errorf("%w: SetLeafAdata while %v", ErrInvalidState, t.state)
	}
	if len(adata) != t.cfg.AdataSize {
		return fmt.Errorf("%w: %w: %d", ErrInvalidState, ErrAdataSize, len(adata))
	}
	if st, ok := t.staged[leaf]; ok {
		st.adata = append([]byte(nil), adata...)
		t.staged[leaf] = st
		return nil
	}
	if int64(leaf) > t.shape.maxLeaf {
		return nil
	}
	v, ok := t.cache.get(Node{N: leaf})
	if !ok {
		return fmt.Errorf("%w: %w: leaf %d", ErrInvalidState, ErrLeafNotLoaded, leaf)
	}
	if isZero(v) {
		return nil
	}
	t.staged[leaf] = stagedLeaf{
		adata:   append([]byte(nil), adata...),
		hash:    append([]byte(nil), t.layout.leafHash(v)...),
		version: t.layout.leafVersion(v),
	}
	return nil
}

// recheck implements the copy on write policies. If the root changed since
// the bracket was opened the tree is reloaded and the open bracket planned
// again against the new baseline. Staged leaves are kept.
func (t *Tree) recheck(ctx context.Context) error {
	root, exists, err := t.readRoot(ctx)
	if err != nil {
		return t.fault(err)
	}
	current := make([]byte, t.layout.DigestSize)
	if exists {
		current = root.Hash
	}
	if bytes.Equal(current, t.startRootHash) && root.Version == t.startVersion && exists == t.Exists() {
		return nil
	}

	t.log.Infof("hash tree changed by another writer, replanning")
	fileSize := t.fileSize
	p := t.pending
	if err := t.load(ctx); err != nil {
		return t.fault(err)
	}
	p.oldMaxLeaf = t.shape.maxLeaf
	p.anchors = nil
	if p.truncating {
		t.fileSize = fileSize
		surviving := min(p.maxLeaf, t.shape.maxLeaf)
		p.start, p.end = 1, 0
		if surviving >= 0 {
			p.start, p.end = uint64(surviving), uint64(surviving)
		}
	} else {
		t.fileSize = max(fileSize, t.fileSize)
		p.maxLeaf = max(t.shape.maxLeaf, int64(p.end))
	}
	t.sizeChanged = true
	t.pending = p
	t.startRootHash = append(t.startRootHash[:0], t.root.Hash...)
	t.startVersion = t.root.Version
	if p.truncating {
		return t.planTruncate(ctx)
	}
	return t.planWrite(ctx)
}

// FinishWrite closes the write bracket. Except under PolicyClient the tree is
// updated and flushed immediately.
func (t *Tree) FinishWrite(ctx context.Context) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state != stateWriting {
		return fmt.Errorf("%w: FinishWrite while %v", ErrInvalidState, t.state)
	}
	t.state = stateNeutral
	switch t.cfg.Policy {
	case PolicyClient:
		return nil
	case PolicyPartialCOW, PolicyCOW:
		if err := t.recheck(ctx); err != nil {
			return err
		}
	}
	return t.commit(ctx)
}

// FinishTruncate closes the truncate bracket, shrinking the metadata object
// before the new nodes are written.
func (t *Tree) FinishTruncate(ctx context.Context) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state != stateTruncating {
		return fmt.Errorf("%w: FinishTruncate while %v", ErrInvalidState, t.state)
	}
	t.state = stateNeutral
	switch t.cfg.Policy {
	case PolicyPartialCOW, PolicyCOW:
		if err := t.recheck(ctx); err != nil {
			return err
		}
	}
	return t.commit(ctx)
}

// Flush commits everything staged. With force the root is re-signed and
// written even if nothing changed. Without changes and without force it does
// no I/O.
func (t *Tree) Flush(ctx context.Context, force bool) error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.state == stateWriting || t.state == stateTruncating {
		return fmt.Errorf("%w: Flush while %v", ErrInvalidState, t.state)
	}
	if !force && !t.hasChanges() {
		return nil
	}
	return t.commit(ctx)
}

func (t *Tree) commit(ctx context.Context) error {
	shrinking := t.pending.maxLeaf < t.shape.maxLeaf
	if err := t.updateTree(); err != nil {
		if errors.Is(err, ErrFileSize) {
			return err
		}
		// the cache may be partly updated
		t.invalidate(err)
		return err
	}
	if shrinking {
		t.stats.Truncates++
		if err := t.obj.Truncate(ctx, t.layout.ObjectSize(&t.shape)); err != nil {
			return err
		}
	}
	return t.flushDirty(ctx)
}

// VerifyAll reads every node and checks the whole tree against the root.
func (t *Tree) VerifyAll(ctx context.Context) error {
	if err := t.ready(); err != nil {
		return err
	}
	if !t.Exists() {
		return nil
	}
	need := NewNodeSet()
	need.AddRange(0, t.shape.maxNodeNumber)
	fetched, err := t.fetch(ctx, need)
	if err != nil {
		return err
	}
	fetched.Union(&t.cache.cached)
	if err := t.validate(fetched); err != nil {
		return t.fault(err)
	}
	return nil
}
