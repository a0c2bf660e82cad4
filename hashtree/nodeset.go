package hashtree

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// nodeSetPageBits is the number of node numbers tracked by a single page.
// Authentication paths are sparse across the whole node number space, so the
// set keeps one small dense bitset per touched page.
const nodeSetPageBits = 4096

// Interval is a closed range of node numbers.
type Interval struct {
	First uint64
	Last  uint64
}

// NodeSet is a set of node numbers. The zero value is an empty set ready to
// use.
type NodeSet struct {
	pages map[uint64]*bitset.BitSet
}

func NewNodeSet(nums ...uint64) *NodeSet {
	s := &NodeSet{}
	for _, num := range nums {
		s.Add(num)
	}
	return s
}

func (s *NodeSet) page(num uint64, create bool) (*bitset.BitSet, uint) {
	key, bit := num/nodeSetPageBits, uint(num%nodeSetPageBits)
	p := s.pages[key]
	if p == nil && create {
		if s.pages == nil {
			s.pages = make(map[uint64]*bitset.BitSet)
		}
		p = bitset.New(nodeSetPageBits)
		s.pages[key] = p
	}
	return p, bit
}

func (s *NodeSet) Add(num uint64) {
	p, bit := s.page(num, true)
	p.Set(bit)
}

// AddRange adds the closed interval [first, last].
func (s *NodeSet) AddRange(first, last uint64) {
	for num := first; num <= last; num++ {
		s.Add(num)
	}
}

func (s *NodeSet) Remove(num uint64) {
	p, bit := s.page(num, false)
	if p == nil {
		return
	}
	p.Clear(bit)
	if p.None() {
		delete(s.pages, num/nodeSetPageBits)
	}
}

func (s *NodeSet) Contains(num uint64) bool {
	p, bit := s.page(num, false)
	return p != nil && p.Test(bit)
}

func (s *NodeSet) Len() uint64 {
	var n uint64
	for _, p := range s.pages {
		n += uint64(p.Count())
	}
	return n
}

func (s *NodeSet) Empty() bool {
	return len(s.pages) == 0
}

func (s *NodeSet) Reset() {
	s.pages = nil
}

// Union adds every member of o to s.
func (s *NodeSet) Union(o *NodeSet) {
	for key, op := range o.pages {
		p := s.pages[key]
		if p == nil {
			if s.pages == nil {
				s.pages = make(map[uint64]*bitset.BitSet)
			}
			s.pages[key] = op.Clone()
			continue
		}
		p.InPlaceUnion(op)
	}
}

// Difference returns the members of s that are not in o.
func (s *NodeSet) Difference(o *NodeSet) *NodeSet {
	d := &NodeSet{}
	for key, p := range s.pages {
		var dp *bitset.BitSet
		if op := o.pages[key]; op != nil {
			dp = p.Difference(op)
		} else {
			dp = p.Clone()
		}
		if dp.None() {
			continue
		}
		if d.pages == nil {
			d.pages = make(map[uint64]*bitset.BitSet)
		}
		d.pages[key] = dp
	}
	return d
}

// Intervals returns the members as ascending, disjoint, non adjacent closed
// intervals.
func (s *NodeSet) Intervals() []Interval {
	keys := make([]uint64, 0, len(s.pages))
	for key := range s.pages {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var out []Interval
	for _, key := range keys {
		p := s.pages[key]
		base := key * nodeSetPageBits
		for i := uint(0); i < nodeSetPageBits; {
			first, ok := p.NextSet(i)
			if !ok {
				break
			}
			end, ok := p.NextClear(first)
			if !ok {
				end = nodeSetPageBits
			}
			iv := Interval{First: base + uint64(first), Last: base + uint64(end) - 1}
			if n := len(out); n > 0 && out[n-1].Last+1 == iv.First {
				out[n-1].Last = iv.Last
			} else {
				out = append(out, iv)
			}
			i = end
		}
	}
	return out
}

// Members returns the node numbers in ascending order.
func (s *NodeSet) Members() []uint64 {
	var out []uint64
	for _, iv := range s.Intervals() {
		for num := iv.First; num <= iv.Last; num++ {
			out = append(out, num)
		}
	}
	return out
}
