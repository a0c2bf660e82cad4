package metastore

import (
	"context"
	"errors"
	"io"
	"os"
)

// FileObject is a metadata object stored in a local file.
type FileObject struct {
	f *os.File
}

// OpenFile opens, or creates, the metadata file at path.
func OpenFile(path string) (*FileObject, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileObject{f: f}, nil
}

func (o *FileObject) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if o.f == nil {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	n, err := o.f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, err
}

func (o *FileObject) WriteAt(_ context.Context, p []byte, off int64) error {
	if o.f == nil {
		return ErrClosed
	}
	_, err := o.f.WriteAt(p, off)
	return err
}

func (o *FileObject) Truncate(_ context.Context, size int64) error {
	if o.f == nil {
		return ErrClosed
	}
	return o.f.Truncate(size)
}

func (o *FileObject) Sync(_ context.Context) error {
	if o.f == nil {
		return ErrClosed
	}
	return o.f.Sync()
}

func (o *FileObject) Size() (int64, error) {
	if o.f == nil {
		return 0, ErrClosed
	}
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (o *FileObject) Close() error {
	if o.f == nil {
		return nil
	}
	err := o.f.Close()
	o.f = nil
	return err
}
