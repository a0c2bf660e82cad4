package hashtree

import "context"

// MetaObject is the per file metadata object the tree is persisted in.
// Offsets are absolute byte offsets computed by Layout.
//
// ReadAt returns the number of bytes read. Reading past the end of the object
// is not an error, the unread part of p is left untouched and n reports how
// much was read. Implementations may also return io.EOF in that case.
type MetaObject interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) error
	Truncate(ctx context.Context, size int64) error
}

// Syncer is implemented by metadata objects that buffer writes. Sync is called
// once at the end of every flush.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Reloader is implemented by metadata objects that cache their content. Reload
// is called before the root is read so that changes made by other writers
// become visible.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Signer produces and checks the detached root signature. Signatures must
// always be exactly SignatureSize bytes.
type Signer interface {
	Sign(content []byte) ([]byte, error)
	Verify(content, signature []byte) error
	SignatureSize() int
}
