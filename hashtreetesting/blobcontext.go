//go:build integration && azurite

package hashtreetesting

import (
	"context"
	"testing"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"
)

// BlobTestContext connects to the azurite emulator configured by the
// environment.
type BlobTestContext struct {
	Log    logger.Logger
	Storer *azblob.Storer
	T      *testing.T
}

func NewBlobTestContext(t *testing.T, container string) BlobTestContext {
	c := BlobTestContext{T: t}
	logger.New("INFO")
	c.Log = logger.Sugar.WithServiceName(container)

	var err error
	c.Storer, err = azblob.NewDev(azblob.NewDevConfigFromEnv(), container)
	if err != nil {
		t.Fatalf("failed to connect to blob store emulator: %v", err)
	}
	client := c.Storer.GetServiceClient()
	// the container usually exists already
	_, _ = client.CreateContainer(context.Background(), container, nil)
	return c
}

func (c *BlobTestContext) DeleteBlobsByPrefix(blobPrefixPath string) {
	var blobs []string
	var marker azblob.ListMarker
	for {
		r, err := c.Storer.List(
			context.Background(),
			azblob.WithListPrefix(blobPrefixPath), azblob.WithListMarker(marker))
		require.NoError(c.T, err)

		for _, i := range r.Items {
			blobs = append(blobs, *i.Name)
		}
		if len(r.Items) == 0 || r.Marker == nil {
			break
		}
		marker = r.Marker
	}
	for _, blobPath := range blobs {
		require.NoError(c.T, c.Storer.Delete(context.Background(), blobPath))
	}
}
