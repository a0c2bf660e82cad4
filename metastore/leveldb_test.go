package metastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDBObject(t *testing.T) {
	db, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	// a small page size makes the contract cross page boundaries
	obj, err := NewLevelDBObject(db, NewObjectID(), 3)
	require.NoError(t, err)
	testObjectContract(t, obj, func() error { return obj.Sync(context.Background()) })
}

func TestLevelDBObject_SyncAndReload(t *testing.T) {
	ctx := context.Background()
	db, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	id := NewObjectID()
	obj, err := NewLevelDBObject(db, id, 8)
	require.NoError(t, err)
	require.NoError(t, obj.WriteAt(ctx, []byte("0123456789abcdef01"), 0))

	other, err := NewLevelDBObject(db, id, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Size(), "unsynced writes are not visible")

	require.NoError(t, obj.Sync(ctx))
	require.NoError(t, other.Reload(ctx))
	assert.Equal(t, int64(18), other.Size())
	buf := make([]byte, 18)
	_, err = other.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef01"), buf)

	require.NoError(t, obj.Truncate(ctx, 5))
	require.NoError(t, obj.Sync(ctx))
	require.NoError(t, other.Reload(ctx))
	assert.Equal(t, int64(5), other.Size())

	require.NoError(t, obj.Delete(ctx))
	require.NoError(t, other.Reload(ctx))
	assert.Equal(t, int64(0), other.Size())
}

func TestLevelDBObject_Isolation(t *testing.T) {
	ctx := context.Background()
	db, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	a, err := NewLevelDBObject(db, NewObjectID(), 0)
	require.NoError(t, err)
	b, err := NewLevelDBObject(db, NewObjectID(), 0)
	require.NoError(t, err)

	require.NoError(t, a.WriteAt(ctx, []byte("aaaa"), 0))
	require.NoError(t, a.Sync(ctx))
	require.NoError(t, b.Reload(ctx))
	assert.Equal(t, int64(0), b.Size())
}
