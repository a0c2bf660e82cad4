package cmd

import (
	"context"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/datatrails/go-datatrails-hashtree/hashtree"
	"github.com/datatrails/go-datatrails-hashtree/metastore"
)

const defaultPageSize = 4096

// openedTree is an initialised tree plus the store it must release.
type openedTree struct {
	*hashtree.Tree
	conf    *Config
	subject string
	size    func() (int64, error)
	close   func() error
}

func (o *openedTree) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// openTree opens the metadata object the configuration names and
// initialises a tree over it.
func openTree(ctx context.Context, log logger.Logger, conf *Config) (*openedTree, error) {
	opts, err := conf.treeOptions()
	if err != nil {
		return nil, err
	}
	sg, err := conf.loadSigner()
	if err != nil {
		return nil, err
	}

	o := &openedTree{conf: conf}
	var obj hashtree.MetaObject

	switch conf.Store.Kind {
	case StoreFile:
		f, err := metastore.OpenFile(conf.resolve(conf.Store.Path))
		if err != nil {
			return nil, err
		}
		obj, o.subject, o.size, o.close = f, conf.Store.Path, f.Size, f.Close

	case StoreLevelDB:
		id, err := metastore.ParseObjectID(conf.Store.ObjectID)
		if err != nil {
			return nil, err
		}
		db, err := metastore.OpenLevelDB(conf.resolve(conf.Store.Path))
		if err != nil {
			return nil, err
		}
		pageSize := conf.Store.PageSize
		if pageSize == 0 {
			pageSize = defaultPageSize
		}
		l, err := metastore.NewLevelDBObject(db, id, pageSize)
		if err != nil {
			db.Close()
			return nil, err
		}
		obj, o.subject, o.close = l, id.String(), db.Close
		o.size = func() (int64, error) { return l.Size(), nil }

	case StoreAzurite:
		id, err := metastore.ParseObjectID(conf.Store.ObjectID)
		if err != nil {
			return nil, err
		}
		store, err := azblob.NewDev(azblob.NewDevConfigFromEnv(), conf.Store.Container)
		if err != nil {
			return nil, err
		}
		b := metastore.NewBlobObject(log, store, id)
		obj, o.subject = b, b.BlobPath()
		o.size = func() (int64, error) { return b.Size(), nil }

	default:
		return nil, ErrStoreKind
	}

	o.Tree, err = hashtree.New(log, obj, sg, opts...)
	if err == nil {
		err = o.Init(ctx)
	}
	if err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}
