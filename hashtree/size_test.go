package hashtree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetSize(t *testing.T) {
	tests := []struct {
		maxLeaf       int64
		maxLevel      uint64
		maxNodeNumber uint64
		complete      bool
	}{
		{MaxLeafNone, 0, 0, true},
		{MaxLeafEmpty, 0, 0, true},
		{0, 1, 1, true},
		{1, 1, 2, true},
		{2, 2, 5, false},
		{3, 2, 6, true},
		{4, 3, 9, false},
		{7, 3, 14, true},
		{15, 4, 30, true},
		{16, 5, 33, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.maxLeaf), func(t *testing.T) {
			s := NewShape(tt.maxLeaf)
			assert.Equal(t, tt.maxLevel, s.MaxLevel())
			assert.Equal(t, tt.maxNodeNumber, s.MaxNodeNumber())
			assert.Equal(t, tt.complete, s.Complete())
			assert.Equal(t, Node{Level: tt.maxLevel}, s.Root())
		})
	}
}

func TestShape_States(t *testing.T) {
	none := NewShape(MaxLeafNone)
	assert.False(t, none.Initialised())
	assert.True(t, none.RootOnly())

	empty := NewShape(MaxLeafEmpty)
	assert.True(t, empty.Initialised())
	assert.True(t, empty.RootOnly())
	_, ok := empty.TailLeaf()
	assert.False(t, ok)

	s := NewShape(4)
	assert.Equal(t, uint64(5), s.LeafCount())
	tail, ok := s.TailLeaf()
	assert.True(t, ok)
	assert.Equal(t, Node{0, 4}, tail)
}

func TestDanglingBranch(t *testing.T) {
	tests := []struct {
		maxLeaf      int64
		below, above Node
		ok           bool
	}{
		{3, Node{}, Node{}, false},
		{2, Node{1, 1}, Node{}, false},
		{4, Node{0, 4}, Node{2, 1}, true},
		{5, Node{0, 5}, Node{2, 1}, true},
		{6, Node{}, Node{}, false},
		{8, Node{0, 8}, Node{3, 1}, true},
		{12, Node{0, 12}, Node{2, 3}, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.maxLeaf), func(t *testing.T) {
			s := NewShape(tt.maxLeaf)
			below, above, ok := s.danglingBranch()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.below, below)
				assert.Equal(t, tt.above, above)
			}
		})
	}
}

func TestBits(t *testing.T) {
	assert.True(t, AllOnes(0))
	assert.True(t, AllOnes(7))
	assert.False(t, AllOnes(6))
	assert.Equal(t, uint64(3), Log2Uint64(15))
	assert.Equal(t, uint64(4), Log2Uint64(16))
	assert.True(t, lowBitsSet(0b1011, 2))
	assert.False(t, lowBitsSet(0b1011, 3))
	assert.True(t, lowBitsClear(0b1000, 3))
	assert.False(t, lowBitsClear(0b1000, 4))
	assert.True(t, isZero(make([]byte, 4)))
	assert.False(t, isZero([]byte{0, 1}))
}
