package segment

import "github.com/hupe1980/nxgraph/datastore"

// ScalarSegmenter groups neighbors whose scalar values differ by at most
// Tolerance. When Mask is set only masked elements seed or join features.
type ScalarSegmenter[T datastore.Numeric] struct {
	Values    []T
	Tolerance float64
	Mask      *datastore.BoolStore
}

func (s ScalarSegmenter[T]) Eligible(i int) bool {
	return s.Mask == nil || s.Mask.Get(i)
}

func (s ScalarSegmenter[T]) Group(current, neighbor int, _ int32) bool {
	if s.Mask != nil && !s.Mask.Get(neighbor) {
		return false
	}
	d := float64(s.Values[current]) - float64(s.Values[neighbor])
	if d < 0 {
		d = -d
	}
	return d <= s.Tolerance
}

// FuncSegmenter adapts plain functions to Segmenter.
type FuncSegmenter struct {
	EligibleFunc func(index int) bool
	GroupFunc    func(current, neighbor int, featureID int32) bool
}

func (f FuncSegmenter) Eligible(i int) bool { return f.EligibleFunc(i) }

func (f FuncSegmenter) Group(current, neighbor int, fid int32) bool {
	return f.GroupFunc(current, neighbor, fid)
}
