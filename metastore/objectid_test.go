package metastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectID_BlobPath(t *testing.T) {
	id, err := ParseObjectID("01947000-3456-78b1-9876-543210987654")
	require.NoError(t, err)
	assert.Equal(t, "v1/hashtree/01947000-3456-78b1-9876-543210987654.meta", id.BlobPath())

	got, err := ObjectIDFromPath(id.BlobPath())
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestObjectIDFromPath_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"wrong prefix", "v1/mmrs/01947000-3456-78b1-9876-543210987654.meta"},
		{"wrong extension", "v1/hashtree/01947000-3456-78b1-9876-543210987654.log"},
		{"not a uuid", "v1/hashtree/not-a-uuid.meta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ObjectIDFromPath(tt.path)
			assert.ErrorIs(t, err, ErrBadObjectID)
		})
	}
}
