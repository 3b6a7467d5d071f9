package geomodel

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Box is an axis aligned bounding box. Intervals are closed, so boxes that
// only touch at an edge or a corner intersect.
type Box struct {
	XMin, YMin float64
	XMax, YMax float64
}

// Bounded is implemented by anything that can report its bounding box.
type Bounded interface {
	Bounds() Box
}

func PointBox(x, y float64) Box {
	return Box{XMin: x, YMin: y, XMax: x, YMax: y}
}

// SegmentBox returns the bounding box of the segment a-b.
func SegmentBox(a, b orb.Point) Box {
	return Box{
		XMin: min(a[0], b[0]),
		YMin: min(a[1], b[1]),
		XMax: max(a[0], b[0]),
		YMax: max(a[1], b[1]),
	}
}

func FromBound(b orb.Bound) Box {
	return Box{XMin: b.Min[0], YMin: b.Min[1], XMax: b.Max[0], YMax: b.Max[1]}
}

func (b Box) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.XMin, b.YMin}, Max: orb.Point{b.XMax, b.YMax}}
}

func (b Box) Bounds() Box {
	return b
}

func (b Box) Width() float64 {
	return b.XMax - b.XMin
}

func (b Box) Height() float64 {
	return b.YMax - b.YMin
}

// IsValid reports whether the box has no NaN coordinates and min <= max on
// both axes.
func (b Box) IsValid() bool {
	// comparisons with NaN are false, so this also rejects NaN
	return b.XMin <= b.XMax && b.YMin <= b.YMax
}

// IsFinite reports whether the box is valid and its extent is representable.
func (b Box) IsFinite() bool {
	if !b.IsValid() {
		return false
	}
	w, h := b.Width(), b.Height()
	return !math.IsInf(b.XMin, 0) && !math.IsInf(b.XMax, 0) &&
		!math.IsInf(b.YMin, 0) && !math.IsInf(b.YMax, 0) &&
		!math.IsInf(w, 0) && !math.IsInf(h, 0)
}

func (b Box) IsDegenerate() bool {
	return b.Width() == 0 || b.Height() == 0
}

func (b Box) Intersects(o Box) bool {
	return b.XMin <= o.XMax && o.XMin <= b.XMax &&
		b.YMin <= o.YMax && o.YMin <= b.YMax
}

func (b Box) Contains(x, y float64) bool {
	return b.XMin <= x && x <= b.XMax && b.YMin <= y && y <= b.YMax
}

// Expand grows the box by d on every side.
func (b Box) Expand(d float64) Box {
	return Box{XMin: b.XMin - d, YMin: b.YMin - d, XMax: b.XMax + d, YMax: b.YMax + d}
}

// Clamp returns the part of b that lies inside to. The result is invalid
// when the boxes are disjoint.
func (b Box) Clamp(to Box) Box {
	return Box{
		XMin: max(b.XMin, to.XMin),
		YMin: max(b.YMin, to.YMin),
		XMax: min(b.XMax, to.XMax),
		YMax: min(b.YMax, to.YMax),
	}
}

func (b Box) Union(o Box) Box {
	return Box{
		XMin: min(b.XMin, o.XMin),
		YMin: min(b.YMin, o.YMin),
		XMax: max(b.XMax, o.XMax),
		YMax: max(b.YMax, o.YMax),
	}
}

// DistanceTo returns the euclidean distance from (x, y) to the closest point
// of the box, zero when the point is inside.
func (b Box) DistanceTo(x, y float64) float64 {
	dx := max(b.XMin-x, 0, x-b.XMax)
	dy := max(b.YMin-y, 0, y-b.YMax)
	return math.Hypot(dx, dy)
}

func (b Box) String() string {
	return fmt.Sprintf("[%g %g, %g %g]", b.XMin, b.YMin, b.XMax, b.YMax)
}
