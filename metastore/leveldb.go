package metastore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	DefaultPageSize = 4096

	keySize  = 's'
	keyPage  = 'p'
	sizeSize = 8
)

// LevelDBObject stores the metadata objects of many files in one leveldb
// database. Each object is split into fixed size pages keyed by object id and
// page index. Writes are buffered until Sync, which commits them as one
// batch.
type LevelDBObject struct {
	db       *leveldb.DB
	id       ObjectID
	pageSize int64

	size    int64
	pending map[int64][]byte
	resized bool
}

// OpenLevelDB opens, or creates, a database at path.
func OpenLevelDB(path string) (*leveldb.DB, error) {
	return leveldb.OpenFile(path, nil)
}

func NewLevelDBObject(db *leveldb.DB, id ObjectID, pageSize int) (*LevelDBObject, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	o := &LevelDBObject{
		db:       db,
		id:       id,
		pageSize: int64(pageSize),
		pending:  make(map[int64][]byte),
	}
	if err := o.Reload(context.Background()); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *LevelDBObject) sizeKey() []byte {
	return append([]byte{keySize}, o.id[:]...)
}

func (o *LevelDBObject) pagePrefix() []byte {
	return append([]byte{keyPage}, o.id[:]...)
}

func (o *LevelDBObject) pageKey(page int64) []byte {
	return binary.BigEndian.AppendUint64(o.pagePrefix(), uint64(page))
}

// Reload discards buffered writes and re-reads the committed size.
func (o *LevelDBObject) Reload(_ context.Context) error {
	clear(o.pending)
	o.resized = false
	v, err := o.db.Get(o.sizeKey(), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		o.size = 0
		return nil
	}
	if err != nil {
		return err
	}
	if len(v) != sizeSize {
		return fmt.Errorf("leveldb object %s: size record is %d bytes", o.id, len(v))
	}
	o.size = int64(binary.BigEndian.Uint64(v))
	return nil
}

// page returns the current content of page, which is always pageSize long.
func (o *LevelDBObject) page(page int64) ([]byte, error) {
	buf := make([]byte, o.pageSize)
	if p, ok := o.pending[page]; ok {
		if p == nil {
			// deleted by Truncate
			return buf, nil
		}
		return p, nil
	}
	v, err := o.db.Get(o.pageKey(page), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return buf, nil
	}
	if err != nil {
		return nil, err
	}
	copy(buf, v)
	return buf, nil
}

func (o *LevelDBObject) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off >= o.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), o.size-off)
	n := int64(0)
	for n < want {
		pg, pos := (off+n)/o.pageSize, (off+n)%o.pageSize
		data, err := o.page(pg)
		if err != nil {
			return int(n), err
		}
		n += int64(copy(p[n:want], data[pos:]))
	}
	if want < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

func (o *LevelDBObject) WriteAt(_ context.Context, p []byte, off int64) error {
	if off < 0 {
		return ErrNegativeOffset
	}
	n := int64(0)
	for n < int64(len(p)) {
		pg, pos := (off+n)/o.pageSize, (off+n)%o.pageSize
		data, err := o.page(pg)
		if err != nil {
			return err
		}
		n += int64(copy(data[pos:], p[n:]))
		o.pending[pg] = data
	}
	if end := off + int64(len(p)); end > o.size {
		o.size = end
		o.resized = true
	}
	return nil
}

// Truncate changes the size. The tail of a partial last page is zeroed so
// that a later extension reads back as zero.
func (o *LevelDBObject) Truncate(_ context.Context, size int64) error {
	if size < 0 {
		return ErrNegativeSize
	}
	if size < o.size {
		last := size / o.pageSize
		if pos := size % o.pageSize; pos != 0 {
			data, err := o.page(last)
			if err != nil {
				return err
			}
			clear(data[pos:])
			o.pending[last] = data
			last++
		}
		for pg := last; pg*o.pageSize < o.size; pg++ {
			o.pending[pg] = nil
		}
	}
	o.size = size
	o.resized = true
	return nil
}

// Sync commits the buffered pages and the size in one batch.
func (o *LevelDBObject) Sync(_ context.Context) error {
	if len(o.pending) == 0 && !o.resized {
		return nil
	}
	batch := new(leveldb.Batch)
	for pg, data := range o.pending {
		if data == nil {
			batch.Delete(o.pageKey(pg))
			continue
		}
		batch.Put(o.pageKey(pg), data)
	}
	batch.Put(o.sizeKey(), binary.BigEndian.AppendUint64(nil, uint64(o.size)))
	if err := o.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	clear(o.pending)
	o.resized = false
	return nil
}

func (o *LevelDBObject) Size() int64 { return o.size }

// Delete removes every record of the object.
func (o *LevelDBObject) Delete(_ context.Context) error {
	batch := new(leveldb.Batch)
	iter := o.db.NewIterator(util.BytesPrefix(o.pagePrefix()), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	batch.Delete(o.sizeKey())
	if err := o.db.Write(batch, nil); err != nil {
		return err
	}
	clear(o.pending)
	o.size, o.resized = 0, false
	return nil
}
