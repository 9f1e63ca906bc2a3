package core

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrEmptyContainer is returned by lookups that need at least one peak.
var ErrEmptyContainer = errors.New("container has no peaks")

// Positional is a peak with a coordinate (m/z, mobility, retention time) and an intensity.
type Positional interface {
	Pos() float64
	Height() float64
}

// FloatDataArray is a named per-peak float meta array.
type FloatDataArray struct {
	Name string
	Data []float64
}

// IntegerDataArray is a named per-peak integer meta array.
type IntegerDataArray struct {
	Name string
	Data []int
}

// StringDataArray is a named per-peak string meta array.
type StringDataArray struct {
	Name string
	Data []string
}

// Container is a resizable sequence of peaks with optional meta arrays of the
// same length as Peaks.
//
// The range lookups (PosBegin, PosEnd, FindNearest) binary search and require
// the peaks to be sorted by position. They do not check this; an unsorted
// container gives unspecified results. Call IsSorted to verify.
//
// A Container is not safe for concurrent mutation.
type Container[P Positional] struct {
	Peaks         []P
	FloatArrays   []FloatDataArray
	IntegerArrays []IntegerDataArray
	StringArrays  []StringDataArray
}

// Len returns the number of peaks.
func (c *Container[P]) Len() int {
	return len(c.Peaks)
}

func (c *Container[P]) hasMetaArrays() bool {
	return len(c.FloatArrays) > 0 || len(c.IntegerArrays) > 0 || len(c.StringArrays) > 0
}

// SortByPosition stable-sorts peaks by ascending position, keeping every meta
// array aligned with its peak.
func (c *Container[P]) SortByPosition() {
	if !c.hasMetaArrays() {
		sort.SliceStable(c.Peaks, func(i, j int) bool {
			return c.Peaks[i].Pos() < c.Peaks[j].Pos()
		})
		return
	}
	perm := c.identity()
	sort.SliceStable(perm, func(i, j int) bool {
		return c.Peaks[perm[i]].Pos() < c.Peaks[perm[j]].Pos()
	})
	c.Select(perm)
}

// SortByIntensity stable-sorts peaks by ascending intensity, or descending when
// reverse is set. Meta arrays follow their peaks.
func (c *Container[P]) SortByIntensity(reverse bool) {
	less := func(a, b P) bool { return a.Height() < b.Height() }
	if reverse {
		less = func(a, b P) bool { return a.Height() > b.Height() }
	}
	if !c.hasMetaArrays() {
		sort.SliceStable(c.Peaks, func(i, j int) bool {
			return less(c.Peaks[i], c.Peaks[j])
		})
		return
	}
	perm := c.identity()
	sort.SliceStable(perm, func(i, j int) bool {
		return less(c.Peaks[perm[i]], c.Peaks[perm[j]])
	})
	c.Select(perm)
}

// IsSorted reports whether peaks are in ascending position order.
func (c *Container[P]) IsSorted() bool {
	for i := 1; i < len(c.Peaks); i++ {
		if c.Peaks[i].Pos() < c.Peaks[i-1].Pos() {
			return false
		}
	}
	return true
}

func (c *Container[P]) identity() []int {
	perm := make([]int, len(c.Peaks))
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// Select replaces the peaks with Peaks[indices[0]], Peaks[indices[1]], ...
// and applies the same selection to every meta array. indices may reorder
// and may drop peaks. Meta arrays must have one entry per peak.
func (c *Container[P]) Select(indices []int) {
	peaks := make([]P, len(indices))
	for i, idx := range indices {
		peaks[i] = c.Peaks[idx]
	}
	c.Peaks = peaks

	for a := range c.FloatArrays {
		data := make([]float64, len(indices))
		for i, idx := range indices {
			data[i] = c.FloatArrays[a].Data[idx]
		}
		c.FloatArrays[a].Data = data
	}
	for a := range c.IntegerArrays {
		data := make([]int, len(indices))
		for i, idx := range indices {
			data[i] = c.IntegerArrays[a].Data[idx]
		}
		c.IntegerArrays[a].Data = data
	}
	for a := range c.StringArrays {
		data := make([]string, len(indices))
		for i, idx := range indices {
			data[i] = c.StringArrays[a].Data[idx]
		}
		c.StringArrays[a].Data = data
	}
}

// PosBegin returns the index of the first peak with position >= pos.
func (c *Container[P]) PosBegin(pos float64) int {
	return c.PosBeginIn(0, pos, len(c.Peaks))
}

// PosEnd returns the index of the first peak with position > pos.
func (c *Container[P]) PosEnd(pos float64) int {
	return c.PosEndIn(0, pos, len(c.Peaks))
}

// PosBeginIn is PosBegin restricted to Peaks[begin:end]. The result lies in
// [begin, end]; an empty sub-range returns begin.
func (c *Container[P]) PosBeginIn(begin int, pos float64, end int) int {
	if end <= begin {
		return begin
	}
	return begin + sort.Search(end-begin, func(i int) bool {
		return c.Peaks[begin+i].Pos() >= pos
	})
}

// PosEndIn is PosEnd restricted to Peaks[begin:end].
func (c *Container[P]) PosEndIn(begin int, pos float64, end int) int {
	if end <= begin {
		return begin
	}
	return begin + sort.Search(end-begin, func(i int) bool {
		return c.Peaks[begin+i].Pos() > pos
	})
}

// FindNearest returns the index of the peak closest to pos. When two peaks are
// exactly equidistant the one with the lower index wins.
func (c *Container[P]) FindNearest(pos float64) (int, error) {
	n := len(c.Peaks)
	if n == 0 {
		return -1, errors.Wrapf(ErrEmptyContainer, "find nearest to %v", pos)
	}

	i := c.PosBegin(pos)
	if i == 0 {
		return 0, nil
	}
	if i == n {
		return n - 1, nil
	}
	if pos-c.Peaks[i-1].Pos() <= c.Peaks[i].Pos()-pos {
		return i - 1, nil
	}
	return i, nil
}

// BasePeak returns the index of the most intense peak (first on ties).
func (c *Container[P]) BasePeak() (int, error) {
	if len(c.Peaks) == 0 {
		return -1, errors.Wrap(ErrEmptyContainer, "base peak")
	}
	best := 0
	for i := 1; i < len(c.Peaks); i++ {
		if c.Peaks[i].Height() > c.Peaks[best].Height() {
			best = i
		}
	}
	return best, nil
}

// TIC returns the summed intensity of all peaks.
func (c *Container[P]) TIC() float64 {
	total := 0.0
	for _, p := range c.Peaks {
		total += p.Height()
	}
	return total
}

// FloatArray returns the float meta array called name, or nil.
func (c *Container[P]) FloatArray(name string) *FloatDataArray {
	for i := range c.FloatArrays {
		if c.FloatArrays[i].Name == name {
			return &c.FloatArrays[i]
		}
	}
	return nil
}

// IntegerArray returns the integer meta array called name, or nil.
func (c *Container[P]) IntegerArray(name string) *IntegerDataArray {
	for i := range c.IntegerArrays {
		if c.IntegerArrays[i].Name == name {
			return &c.IntegerArrays[i]
		}
	}
	return nil
}

// StringArray returns the string meta array called name, or nil.
func (c *Container[P]) StringArray(name string) *StringDataArray {
	for i := range c.StringArrays {
		if c.StringArrays[i].Name == name {
			return &c.StringArrays[i]
		}
	}
	return nil
}

// MetaArraysAligned reports the first meta array whose length differs from the peak count.
func (c *Container[P]) MetaArraysAligned() (string, bool) {
	n := len(c.Peaks)
	for _, a := range c.FloatArrays {
		if len(a.Data) != n {
			return a.Name, false
		}
	}
	for _, a := range c.IntegerArrays {
		if len(a.Data) != n {
			return a.Name, false
		}
	}
	for _, a := range c.StringArrays {
		if len(a.Data) != n {
			return a.Name, false
		}
	}
	return "", true
}
