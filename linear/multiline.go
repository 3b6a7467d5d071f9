package linear

import (
	"iter"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/spatialhash"
)

// MultiLine wraps a multi-linestring. Segments are addressed by part and
// local index; vertices by a global index that counts the vertices of all
// parts in order.
type MultiLine struct {
	parts  orb.MultiLineString
	bounds geomodel.Box
	opts   []spatialhash.Option

	// firstPoint[i] is the global index of the first vertex of part i
	firstPoint []int
	segments   int
	// parts with a single vertex have no segment to be found by
	singles []int

	once     sync.Once
	index    *spatialhash.Searcher[geomodel.SegmentIndex]
	indexErr error
}

func NewMultiLine(mls orb.MultiLineString, opts ...spatialhash.Option) *MultiLine {
	m := &MultiLine{
		parts:      mls,
		opts:       opts,
		firstPoint: make([]int, len(mls)),
	}

	points := 0
	first := true
	for i, ls := range mls {
		m.firstPoint[i] = points
		points += len(ls)
		m.segments += max(len(ls)-1, 0)
		if len(ls) == 1 {
			m.singles = append(m.singles, i)
		}
		if len(ls) == 0 {
			continue
		}
		b := geomodel.FromBound(ls.Bound())
		if first {
			m.bounds = b
			first = false
		} else {
			m.bounds = m.bounds.Union(b)
		}
	}
	return m
}

func (m *MultiLine) Parts() orb.MultiLineString {
	return m.parts
}

func (m *MultiLine) PartCount() int {
	return len(m.parts)
}

func (m *MultiLine) SegmentCount() int {
	return m.segments
}

func (m *MultiLine) Segment(si geomodel.SegmentIndex) (orb.Point, orb.Point) {
	ls := m.parts[si.Part]
	return ls[si.Local], ls[si.Local+1]
}

func (m *MultiLine) Bounds() geomodel.Box {
	return m.bounds
}

// GlobalPointIndex converts a vertex of part into a global vertex index.
func (m *MultiLine) GlobalPointIndex(part, local int) int {
	return m.firstPoint[part] + local
}

// LocalPointIndex is the inverse of GlobalPointIndex. ok is false for an
// index past the last vertex.
func (m *MultiLine) LocalPointIndex(global int) (part, local int, ok bool) {
	if global < 0 {
		return 0, 0, false
	}
	// last part whose first vertex is <= global; empty parts share their
	// offset with the next part and are skipped by taking the last one
	part = sort.Search(len(m.firstPoint), func(i int) bool { return m.firstPoint[i] > global }) - 1
	if part < 0 {
		return 0, 0, false
	}
	local = global - m.firstPoint[part]
	if local >= len(m.parts[part]) {
		return 0, 0, false
	}
	return part, local, true
}

func (m *MultiLine) Indexed() bool {
	return m.searcher() != nil
}

func (m *MultiLine) IndexErr() error {
	m.searcher()
	return m.indexErr
}

func (m *MultiLine) searcher() *spatialhash.Searcher[geomodel.SegmentIndex] {
	m.once.Do(func() {
		m.index, m.indexErr = spatialhash.ForMultiLineString(m.parts, m.opts...)
	})
	return m.index
}

// FindSegments yields the segments whose extent intersects box grown by
// tolerance. predicate may be nil.
func (m *MultiLine) FindSegments(box geomodel.Box, tolerance float64, predicate func(geomodel.SegmentIndex) bool) iter.Seq[geomodel.SegmentIndex] {
	query := expand(box, tolerance)

	return func(yield func(geomodel.SegmentIndex) bool) {
		if s := m.searcher(); s != nil {
			for si := range s.SearchWithin(box.XMin, box.YMin, box.XMax, box.YMax, m, tolerance, predicate) {
				if !yield(si) {
					return
				}
			}
			return
		}

		for part, ls := range m.parts {
			for i := 0; i < len(ls)-1; i++ {
				si := geomodel.SegmentIndex{Part: part, Local: i}
				if predicate != nil && !predicate(si) {
					continue
				}
				if !geomodel.SegmentBox(ls[i], ls[i+1]).Intersects(query) {
					continue
				}
				if !yield(si) {
					return
				}
			}
		}
	}
}

// FindPointIndexes yields the global indexes of the vertices within
// tolerance of p on each axis.
func (m *MultiLine) FindPointIndexes(p orb.Point, tolerance float64) iter.Seq[int] {
	checkTolerance(tolerance)
	match := withinBox(p, tolerance)

	return func(yield func(int) bool) {
		s := m.searcher()
		if s == nil {
			for part, ls := range m.parts {
				for local, q := range ls {
					if match(q) && !yield(m.GlobalPointIndex(part, local)) {
						return
					}
				}
			}
			return
		}

		for si := range s.Search(p[0], p[1], p[0], p[1], tolerance, nil) {
			ls := m.parts[si.Part]
			if match(ls[si.Local]) && !yield(m.GlobalPointIndex(si.Part, si.Local)) {
				return
			}
			if si.Local+2 == len(ls) && match(ls[si.Local+1]) && !yield(m.GlobalPointIndex(si.Part, si.Local+1)) {
				return
			}
		}
		for _, part := range m.singles {
			if match(m.parts[part][0]) && !yield(m.firstPoint[part]) {
				return
			}
		}
	}
}
