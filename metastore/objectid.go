package metastore

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	V1HashTreePrefix = "v1/hashtree"
	MetaExtension    = ".meta"
)

// ObjectID names the metadata object of one file.
type ObjectID uuid.UUID

func NewObjectID() ObjectID {
	return ObjectID(uuid.New())
}

func ParseObjectID(s string) (ObjectID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ObjectID{}, fmt.Errorf("%w: %v", ErrBadObjectID, err)
	}
	return ObjectID(u), nil
}

func (id ObjectID) String() string {
	return uuid.UUID(id).String()
}

// BlobPath returns the blob storage path of the metadata object.
//
//	v1/hashtree/<uuid>.meta
func (id ObjectID) BlobPath() string {
	return path.Join(V1HashTreePrefix, id.String()+MetaExtension)
}

// ObjectIDFromPath is the inverse of BlobPath.
func ObjectIDFromPath(blobPath string) (ObjectID, error) {
	dir, name := path.Split(blobPath)
	if strings.TrimSuffix(dir, "/") != V1HashTreePrefix || !strings.HasSuffix(name, MetaExtension) {
		return ObjectID{}, fmt.Errorf("%w: %s", ErrBadObjectID, blobPath)
	}
	return ParseObjectID(strings.TrimSuffix(name, MetaExtension))
}
