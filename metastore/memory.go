package metastore

import (
	"context"
	"io"
	"sync"
)

// MemoryObject is a metadata object held in memory. It is safe for concurrent
// use so that tests can share one object between trees.
type MemoryObject struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryObject() *MemoryObject {
	return &MemoryObject{}
}

func (m *MemoryObject) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryObject) WriteAt(_ context.Context, p []byte, off int64) error {
	if off < 0 {
		return ErrNegativeOffset
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if end := off + int64(len(p)); end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	copy(m.data[off:], p)
	return nil
}

func (m *MemoryObject) Truncate(_ context.Context, size int64) error {
	if size < 0 {
		return ErrNegativeSize
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	m.data = append(m.data, make([]byte, size-int64(len(m.data)))...)
	return nil
}

// Bytes returns a copy of the object content.
func (m *MemoryObject) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// SetBytes replaces the object content.
func (m *MemoryObject) SetBytes(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), b...)
}

func (m *MemoryObject) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}
