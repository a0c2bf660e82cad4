package hashtree

import (
	"context"
	"errors"
	"io"
)

// readAt reads into p from off, treating bytes past the end of the metadata
// object as zero.
func (t *Tree) readAt(ctx context.Context, p []byte, off int64) error {
	t.stats.Reads++
	_, err := t.obj.ReadAt(ctx, p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (t *Tree) writeAt(ctx context.Context, p []byte, off int64) error {
	t.stats.Writes++
	return t.obj.WriteAt(ctx, p, off)
}

// fetch reads every node in need that is not already cached, one read per
// contiguous run of node numbers. The root is never read here, it is loaded
// by Init. The set of node numbers actually read is returned.
func (t *Tree) fetch(ctx context.Context, need *NodeSet) (*NodeSet, error) {
	missing := need.Difference(&t.cache.cached)
	missing.Remove(t.shape.maxNodeNumber)

	for _, iv := range missing.Intervals() {
		if iv.First >= t.shape.maxNodeNumber {
			continue
		}
		last := min(iv.Last, t.shape.maxNodeNumber-1)

		off := t.layout.NodeByteOffset(&t.shape, iv.First)
		end := t.layout.NodeByteOffset(&t.shape, last+1)
		buf := make([]byte, end-off)
		if err := t.readAt(ctx, buf, off); err != nil {
			return nil, err
		}

		pos := 0
		for num := iv.First; num <= last; num++ {
			nd, ok := t.shape.NodeFromNumber(num)
			if !ok {
				return nil, ErrInvalidState
			}
			size := t.layout.NodeSize(nd.Level)
			t.cache.put(nd, append([]byte(nil), buf[pos:pos+size]...))
			pos += size
		}
	}
	t.log.Debugf("fetch: need %d nodes, read %d", need.Len(), missing.Len())
	return missing, nil
}

// flushDirty writes the dirty nodes, one write per contiguous run, then the
// root, then syncs the metadata object if it buffers writes.
func (t *Tree) flushDirty(ctx context.Context) error {
	runs := t.cache.dirty.Intervals()
	for _, iv := range runs {
		off := t.layout.NodeByteOffset(&t.shape, iv.First)
		end := t.layout.NodeByteOffset(&t.shape, iv.Last+1)
		buf := make([]byte, 0, end-off)
		for num := iv.First; num <= iv.Last; num++ {
			nd, ok := t.shape.NodeFromNumber(num)
			if !ok || t.shape.IsRoot(nd) {
				return ErrInvalidState
			}
			v, ok := t.cache.get(nd)
			if !ok {
				return ErrInvalidState
			}
			buf = append(buf, v...)
		}
		if err := t.writeAt(ctx, buf, off); err != nil {
			return err
		}
	}
	t.cache.dirty.Reset()

	if t.rootDirty {
		if err := t.writeAt(ctx, t.layout.encodeRoot(&t.root), 0); err != nil {
			return err
		}
		t.rootDirty = false
	}

	if s, ok := t.obj.(Syncer); ok {
		if err := s.Sync(ctx); err != nil {
			return err
		}
	}
	t.diskMaxNodeNumber = t.shape.maxNodeNumber
	t.log.Debugf("flush: %d node runs, root version %d", len(runs), t.root.Version)
	return nil
}
