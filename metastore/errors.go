package metastore

import "errors"

var (
	ErrNegativeOffset = errors.New("negative offset")
	ErrNegativeSize   = errors.New("negative size")
	ErrClosed         = errors.New("the metadata object is closed")
	ErrExistsOC       = errors.New("optimistic concurrency failure, the metadata object already exists")
	ErrContentOC      = errors.New("optimistic concurrency failure, the metadata object changed since it was read")
	ErrBlobNotFound   = errors.New("the metadata blob was not found")
	ErrBadObjectID    = errors.New("the object id is not a valid uuid")
	ErrETagMissing    = errors.New("etag is required when updating the metadata blob")
)
