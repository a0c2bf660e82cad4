package hashtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeSet_ZeroValue(t *testing.T) {
	var s NodeSet
	assert.True(t, s.Empty())
	assert.False(t, s.Contains(3))
	s.Remove(3)
	s.Add(3)
	assert.True(t, s.Contains(3))
	assert.Equal(t, uint64(1), s.Len())
}

func TestNodeSet_Intervals(t *testing.T) {
	tests := []struct {
		name string
		nums []uint64
		want []Interval
	}{
		{"empty", nil, nil},
		{"single", []uint64{30}, []Interval{{30, 30}}},
		{"runs", []uint64{0, 1, 2, 3, 6, 7, 14, 15, 30}, []Interval{{0, 3}, {6, 7}, {14, 15}, {30, 30}}},
		{"page boundary", []uint64{4094, 4095, 4096, 4097}, []Interval{{4094, 4097}}},
		{"sparse pages", []uint64{1 << 40, 5, (1 << 40) + 1}, []Interval{{5, 5}, {1 << 40, (1 << 40) + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewNodeSet(tt.nums...).Intervals())
		})
	}
}

func TestNodeSet_UnionDifference(t *testing.T) {
	a := NewNodeSet(1, 2, 3, 5000)
	b := NewNodeSet(3, 4, 9000)

	d := a.Difference(b)
	assert.Equal(t, []uint64{1, 2, 5000}, d.Members())
	assert.Equal(t, []uint64{1, 2, 3, 5000}, a.Members(), "difference does not modify the receiver")

	a.Union(b)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5000, 9000}, a.Members())

	b.Add(100)
	assert.False(t, a.Contains(100), "union copies pages")

	a.Remove(5000)
	a.Remove(9000)
	assert.Equal(t, []Interval{{1, 4}}, a.Intervals())
	a.Reset()
	assert.True(t, a.Empty())
}

func TestNodeSet_AddRange(t *testing.T) {
	s := NewNodeSet()
	s.AddRange(4090, 4100)
	assert.Equal(t, uint64(11), s.Len())
	assert.Equal(t, []Interval{{4090, 4100}}, s.Intervals())
}
