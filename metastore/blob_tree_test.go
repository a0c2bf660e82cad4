package metastore_test

import (
	"context"
	"testing"

	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/datatrails/go-datatrails-hashtree/hashtreetesting"
	"github.com/datatrails/go-datatrails-hashtree/metastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobTree(t *testing.T, tc hashtreetesting.TestContext, obj hashtree.MetaObject) *hashtree.Tree {
	tr, err := hashtree.New(tc.Log, obj, tc.Signer,
		hashtree.WithBlockSize(tc.Cfg.BlockSize),
		hashtree.WithAdataSize(tc.Cfg.AdataSize),
		hashtree.WithPolicy(hashtree.PolicyLocks))
	require.NoError(t, err)
	require.NoError(t, tr.Init(context.Background()))
	return tr
}

func writeBlobLeaves(t *testing.T, tc hashtreetesting.TestContext, tr *hashtree.Tree, first, last uint64) {
	ctx := context.Background()
	require.NoError(t, tr.StartWrite(ctx, first, true, last, true, true))
	for leaf := first; leaf <= last; leaf++ {
		require.NoError(t, tr.SetLeaf(leaf, tc.Adata(leaf, 0), tc.BlockData(leaf, 0)))
	}
	tr.SetFileSize(max(tr.FileSize(), (last+1)*tc.Cfg.BlockSize))
	require.NoError(t, tr.FinishWrite(ctx))
}

// Two clients of the same blob take turns, each reloading the blob at the
// start of its operation.
func TestBlobObject_SharedTree(t *testing.T) {
	tc := hashtreetesting.NewTestContext(t, hashtreetesting.TestConfig{TestLabelPrefix: "TestBlobObject_SharedTree"})
	ctx := context.Background()
	store := metastore.NewFakeBlobStore()
	id := metastore.NewObjectID()

	objA := metastore.NewBlobObject(tc.Log, store, id)
	objB := metastore.NewBlobObject(tc.Log, store, id)
	a := newBlobTree(t, tc, objA)
	b := newBlobTree(t, tc, objB)
	assert.False(t, a.Exists())

	writeBlobLeaves(t, tc, a, 0, 3)
	writeBlobLeaves(t, tc, b, 4, 5)
	writeBlobLeaves(t, tc, a, 6, 6)
	assert.Equal(t, uint64(3), a.Version())

	reader := newBlobTree(t, tc, metastore.NewBlobObject(tc.Log, store, id))
	require.NoError(t, reader.VerifyAll(ctx))
	assert.Equal(t, int64(6), reader.MaxLeaf())
	require.NoError(t, reader.StartRead(ctx, 0, 6))
	for leaf := uint64(0); leaf <= 6; leaf++ {
		adata, err := reader.GetLeaf(leaf, tc.BlockData(leaf, 0))
		require.NoError(t, err)
		assert.Equal(t, tc.Adata(leaf, 0), adata)
	}
}
