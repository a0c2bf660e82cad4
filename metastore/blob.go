package metastore

import (
	"context"
	"io"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
)

// blobStore is the subset of the azblob Storer the blob object uses.
type blobStore interface {
	Reader(ctx context.Context, identity string, opts ...azblob.Option) (*azblob.ReaderResponse, error)
	Put(ctx context.Context, identity string, source io.ReadSeekCloser, opts ...azblob.Option) (*azblob.WriteResponse, error)
}

// BlobObject is a metadata object kept in one azure blob. Blobs can not be
// written in place, so the content is read whole on Reload, changed in memory
// and uploaded on Sync. Uploads are guarded by the etag of the last read, a
// concurrent writer makes Sync fail with ErrContentOC.
type BlobObject struct {
	log      logger.Logger
	store    blobStore
	blobPath string

	buf      MemoryObject
	etag     string
	exists   bool
	modified bool
}

func NewBlobObject(log logger.Logger, store blobStore, id ObjectID) *BlobObject {
	return &BlobObject{log: log, store: store, blobPath: id.BlobPath()}
}

func (o *BlobObject) BlobPath() string { return o.blobPath }
func (o *BlobObject) ETag() string     { return o.etag }
func (o *BlobObject) Size() int64      { return o.buf.Size() }

// Reload replaces the buffered content with the current blob. Unsynced
// changes are discarded. A missing blob reads as empty.
func (o *BlobObject) Reload(ctx context.Context) error {
	rr, err := o.store.Reader(ctx, o.blobPath)
	if err != nil {
		if IsBlobNotFound(err) {
			o.buf.SetBytes(nil)
			o.etag, o.exists, o.modified = "", false, false
			return nil
		}
		return wrapStorageError(err)
	}
	defer rr.Reader.Close()

	data, err := io.ReadAll(rr.Reader)
	if err != nil {
		return err
	}
	o.buf.SetBytes(data)
	o.etag = ""
	if rr.ETag != nil {
		o.etag = *rr.ETag
	}
	o.exists, o.modified = true, false
	o.log.Debugf("reload %s: %d bytes, etag %s", o.blobPath, len(data), o.etag)
	return nil
}

func (o *BlobObject) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return o.buf.ReadAt(ctx, p, off)
}

func (o *BlobObject) WriteAt(ctx context.Context, p []byte, off int64) error {
	o.modified = true
	return o.buf.WriteAt(ctx, p, off)
}

func (o *BlobObject) Truncate(ctx context.Context, size int64) error {
	o.modified = true
	return o.buf.Truncate(ctx, size)
}

// Sync uploads the buffered content if it changed.
func (o *BlobObject) Sync(ctx context.Context) error {
	if !o.modified {
		return nil
	}
	var opts []azblob.Option
	if o.exists {
		if o.etag == "" {
			return ErrETagMissing
		}
		opts = append(opts, azblob.WithEtagMatch(o.etag))
	} else {
		opts = append(opts, azblob.WithEtagNoneMatch("*"))
	}

	wr, err := o.store.Put(ctx, o.blobPath, azblob.NewBytesReaderCloser(o.buf.Bytes()), opts...)
	if err != nil {
		return wrapStorageError(err)
	}
	o.exists, o.modified = true, false
	o.etag = ""
	if wr != nil && wr.ETag != nil {
		o.etag = *wr.ETag
	}
	return nil
}
