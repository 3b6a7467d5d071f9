// Package linear answers segment and vertex lookups on linestrings. Long
// lines are indexed with a spatial hash on first use; short ones, or lines
// whose index cannot be built, are scanned.
package linear

import (
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/spatialhash"
)

// Line wraps a linestring. It must not be modified after NewLine; all
// methods are safe for concurrent use.
type Line struct {
	points orb.LineString
	bounds geomodel.Box
	opts   []spatialhash.Option

	once     sync.Once
	index    *spatialhash.Searcher[int]
	indexErr error
}

// NewLine wraps ls. opts are passed to spatialhash.ForLineString when the
// index is built.
func NewLine(ls orb.LineString, opts ...spatialhash.Option) *Line {
	l := &Line{points: ls, opts: opts}
	if len(ls) > 0 {
		l.bounds = geomodel.FromBound(ls.Bound())
	}
	return l
}

func (l *Line) Points() orb.LineString {
	return l.points
}

func (l *Line) PointCount() int {
	return len(l.points)
}

func (l *Line) SegmentCount() int {
	return max(len(l.points)-1, 0)
}

// Segment returns the end points of segment i.
func (l *Line) Segment(i int) (orb.Point, orb.Point) {
	return l.points[i], l.points[i+1]
}

func (l *Line) Bounds() geomodel.Box {
	return l.bounds
}

// Indexed builds the index if needed and reports whether queries use it.
func (l *Line) Indexed() bool {
	return l.searcher() != nil
}

// IndexErr is the error that prevented indexing, if any.
func (l *Line) IndexErr() error {
	l.searcher()
	return l.indexErr
}

func (l *Line) searcher() *spatialhash.Searcher[int] {
	l.once.Do(func() {
		l.index, l.indexErr = spatialhash.ForLineString(l.points, l.opts...)
	})
	return l.index
}

// FindSegments yields the segments whose extent intersects box grown by
// tolerance. predicate may be nil.
func (l *Line) FindSegments(box geomodel.Box, tolerance float64, predicate func(int) bool) iter.Seq[int] {
	query := expand(box, tolerance)

	return func(yield func(int) bool) {
		if s := l.searcher(); s != nil {
			for i := range s.SearchWithin(box.XMin, box.YMin, box.XMax, box.YMax, l, tolerance, predicate) {
				if !yield(i) {
					return
				}
			}
			return
		}

		for i := range l.SegmentCount() {
			if predicate != nil && !predicate(i) {
				continue
			}
			if !geomodel.SegmentBox(l.points[i], l.points[i+1]).Intersects(query) {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}

// FindPointIndexes yields the vertices within tolerance of p on each axis.
func (l *Line) FindPointIndexes(p orb.Point, tolerance float64) iter.Seq[int] {
	return l.findPoints(p, tolerance, withinBox(p, tolerance))
}

// FindPointIndexesInCircle yields the vertices at most tolerance away from p.
func (l *Line) FindPointIndexesInCircle(p orb.Point, tolerance float64) iter.Seq[int] {
	return l.findPoints(p, tolerance, withinCircle(p, tolerance))
}

func (l *Line) findPoints(p orb.Point, tolerance float64, match func(orb.Point) bool) iter.Seq[int] {
	checkTolerance(tolerance)

	return func(yield func(int) bool) {
		if len(l.points) == 0 {
			return
		}

		// every vertex but the last starts a segment
		if s := l.searcher(); s != nil {
			for i := range s.Search(p[0], p[1], p[0], p[1], tolerance, nil) {
				if match(l.points[i]) && !yield(i) {
					return
				}
			}
		} else {
			for i := range l.SegmentCount() {
				if match(l.points[i]) && !yield(i) {
					return
				}
			}
		}

		last := len(l.points) - 1
		if match(l.points[last]) {
			yield(last)
		}
	}
}

func withinBox(p orb.Point, tolerance float64) func(orb.Point) bool {
	return func(q orb.Point) bool {
		return math.Abs(q[0]-p[0]) <= tolerance && math.Abs(q[1]-p[1]) <= tolerance
	}
}

func withinCircle(p orb.Point, tolerance float64) func(orb.Point) bool {
	return func(q orb.Point) bool {
		return planar.Distance(p, q) <= tolerance
	}
}

func expand(box geomodel.Box, tolerance float64) geomodel.Box {
	checkTolerance(tolerance)
	if !box.IsValid() {
		panic(fmt.Sprintf("linear: invalid search box %v", box))
	}
	return box.Expand(tolerance)
}

func checkTolerance(tolerance float64) {
	if !(tolerance >= 0) {
		panic(fmt.Sprintf("linear: tolerance must be non-negative, got %v", tolerance))
	}
}
