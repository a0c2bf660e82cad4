package hashtree

import (
	"encoding/binary"
)

const (
	VersionBytes  = 8
	FileSizeBytes = 8

	RootVersionStart  = 0
	RootFileSizeStart = RootVersionStart + VersionBytes
	RootHashStart     = RootFileSizeStart + FileSizeBytes

	LeafVersionStart = 0
	LeafAdataStart   = LeafVersionStart + VersionBytes
)

// Layout describes the fixed per level node sizes of the metadata object.
//
//	root:     version u64 BE | file size u64 BE | hash | signature
//	leaf:     version u64 BE | adata | hash
//	internal: hash
//
// The root occupies [0, RootSize()). The remaining nodes follow in
// ascending node number order.
type Layout struct {
	DigestSize    int
	AdataSize     int
	SignatureSize int
}

func (l Layout) RootSize() int { return VersionBytes + FileSizeBytes + l.DigestSize + l.SignatureSize }
func (l Layout) LeafSize() int { return VersionBytes + l.AdataSize + l.DigestSize }
func (l Layout) InternalSize() int { return l.DigestSize }

// NodeSize returns the stored size of a non root node on level.
func (l Layout) NodeSize(level uint64) int {
	if level == 0 {
		return l.LeafSize()
	}
	return l.InternalSize()
}

// countBefore returns the number of nodes on level whose node number is
// less than num.
func countBefore(level, num uint64) uint64 {
	start := LevelStart(level)
	if num <= start {
		return 0
	}
	d := NodeGroupDistance(level)
	m := num - start
	return 2*(m/d) + min(m%d, 2)
}

// NodeByteOffset returns the byte offset of node number num in the metadata
// object. For num == max node number it returns the total size of the non
// root nodes plus the root, which is the size of the whole object.
func (l Layout) NodeByteOffset(s *Shape, num uint64) int64 {
	num = min(num, s.maxNodeNumber)
	off := uint64(l.RootSize())
	for level := uint64(0); level < s.maxLevel; level++ {
		off += countBefore(level, num) * uint64(l.NodeSize(level))
	}
	return int64(off)
}

// ObjectSize returns the size of the metadata object for a tree of shape s.
func (l Layout) ObjectSize(s *Shape) int64 {
	return l.NodeByteOffset(s, s.maxNodeNumber)
}

type rootNode struct {
	Version   uint64
	FileSize  uint64
	Hash      []byte
	Signature []byte
}

// signedContent returns version | file size | hash, the bytes covered by the
// root signature.
func (r *rootNode) signedContent() []byte {
	b := make([]byte, VersionBytes+FileSizeBytes+len(r.Hash))
	binary.BigEndian.PutUint64(b[RootVersionStart:], r.Version)
	binary.BigEndian.PutUint64(b[RootFileSizeStart:], r.FileSize)
	copy(b[RootHashStart:], r.Hash)
	return b
}

func (l Layout) encodeRoot(r *rootNode) []byte {
	b := make([]byte, l.RootSize())
	binary.BigEndian.PutUint64(b[RootVersionStart:], r.Version)
	binary.BigEndian.PutUint64(b[RootFileSizeStart:], r.FileSize)
	copy(b[RootHashStart:RootHashStart+l.DigestSize], r.Hash)
	copy(b[RootHashStart+l.DigestSize:], r.Signature)
	return b
}

func (l Layout) decodeRoot(b []byte) rootNode {
	r := rootNode{
		Version:   binary.BigEndian.Uint64(b[RootVersionStart:]),
		FileSize:  binary.BigEndian.Uint64(b[RootFileSizeStart:]),
		Hash:      make([]byte, l.DigestSize),
		Signature: make([]byte, l.SignatureSize),
	}
	copy(r.Hash, b[RootHashStart:RootHashStart+l.DigestSize])
	copy(r.Signature, b[RootHashStart+l.DigestSize:l.RootSize()])
	return r
}

func (l Layout) encodeLeaf(version uint64, adata, hash []byte) []byte {
	b := make([]byte, l.LeafSize())
	binary.BigEndian.PutUint64(b[LeafVersionStart:], version)
	copy(b[LeafAdataStart:LeafAdataStart+l.AdataSize], adata)
	copy(b[LeafAdataStart+l.AdataSize:], hash)
	return b
}

func (l Layout) leafVersion(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[LeafVersionStart:])
}

func (l Layout) leafAdata(b []byte) []byte {
	return b[LeafAdataStart : LeafAdataStart+l.AdataSize]
}

func (l Layout) leafHash(b []byte) []byte {
	return b[LeafAdataStart+l.AdataSize:]
}
