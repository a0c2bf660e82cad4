package metastore

// NewFakeBlobStore exposes the in memory blob store to the external tests.
func NewFakeBlobStore() *fakeBlobStore { return newFakeBlobStore() }
