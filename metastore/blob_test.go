package metastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore keeps blobs in memory and hands out a new etag per write.
type fakeBlobStore struct {
	blobs map[string][]byte
	etags map[string]string
	puts  int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}, etags: map[string]string{}}
}

func (s *fakeBlobStore) Reader(_ context.Context, identity string, _ ...azblob.Option) (*azblob.ReaderResponse, error) {
	data, ok := s.blobs[identity]
	if !ok {
		return nil, fmt.Errorf("%s: %w", identity, ErrBlobNotFound)
	}
	etag := s.etags[identity]
	return &azblob.ReaderResponse{
		Reader:        io.NopCloser(bytes.NewReader(data)),
		ETag:          &etag,
		ContentLength: int64(len(data)),
	}, nil
}

func (s *fakeBlobStore) Put(_ context.Context, identity string, source io.ReadSeekCloser, _ ...azblob.Option) (*azblob.WriteResponse, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}
	s.puts++
	s.blobs[identity] = data
	etag := fmt.Sprintf("etag-%d", s.puts)
	s.etags[identity] = etag
	return &azblob.WriteResponse{ETag: &etag}, nil
}

func TestBlobObject_ReloadWriteSync(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()
	ctx := context.Background()
	store := newFakeBlobStore()
	id := NewObjectID()

	obj := NewBlobObject(logger.Sugar, store, id)
	require.NoError(t, obj.Reload(ctx))
	n, err := obj.ReadAt(ctx, make([]byte, 4), 0)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, obj.Sync(ctx))
	assert.Equal(t, 0, store.puts, "nothing to upload")

	require.NoError(t, obj.WriteAt(ctx, []byte("root"), 0))
	require.NoError(t, obj.Sync(ctx))
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, []byte("root"), store.blobs[id.BlobPath()])
	assert.Equal(t, "etag-1", obj.ETag())

	other := NewBlobObject(logger.Sugar, store, id)
	require.NoError(t, other.Reload(ctx))
	buf := make([]byte, 4)
	_, err = other.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("root"), buf)
	assert.Equal(t, "etag-1", other.ETag())
}

func TestBlobObject_ReloadDiscardsUnsynced(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()
	ctx := context.Background()
	store := newFakeBlobStore()
	id := NewObjectID()
	store.blobs[id.BlobPath()] = []byte("abcd")
	store.etags[id.BlobPath()] = "etag-0"

	obj := NewBlobObject(logger.Sugar, store, id)
	require.NoError(t, obj.Reload(ctx))
	require.NoError(t, obj.Truncate(ctx, 2))
	require.NoError(t, obj.Reload(ctx))

	buf := make([]byte, 4)
	_, err := obj.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), buf)
}

func TestIsBlobNotFound(t *testing.T) {
	assert.False(t, IsBlobNotFound(nil))
	assert.True(t, IsBlobNotFound(fmt.Errorf("x: %w", ErrBlobNotFound)))
	assert.False(t, IsBlobNotFound(ErrContentOC))
	assert.Equal(t, ErrContentOC, wrapStorageError(ErrContentOC))
}
