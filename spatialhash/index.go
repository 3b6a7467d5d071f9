// Package spatialhash is a broad-phase proximity index over a uniform grid.
//
// Every value is stored with its bounding box in each tile the box overlaps.
// A query returns the values whose boxes intersect the query box; callers
// run their exact geometric test on that candidate set.
//
// An index is built once and then only read: after the last Add, any number
// of goroutines may query it concurrently without locking.
package spatialhash

import (
	"iter"

	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/quadtree"
	"github.com/royalcat/tilehash/tiling"
)

type entry struct {
	box    geomodel.Box
	handle int
	// shared entries are registered in more than one tile
	shared bool
}

// Index maps tiles to the entries whose boxes overlap them. Values live in
// an arena and tiles store handles into it, so T needs neither hashing nor
// equality.
type Index[T any] struct {
	def    tiling.Definition
	values []T
	tiles  map[tiling.TileIndex][]entry

	// populated tile range, valid when tiles is not empty
	lo, hi tiling.TileIndex

	entries      int
	itemsPerTile int
}

func NewIndex[T any](def tiling.Definition, estimatedMaxTileCount, estimatedItemsPerTile int) *Index[T] {
	return &Index[T]{
		def:          def,
		tiles:        make(map[tiling.TileIndex][]entry, max(estimatedMaxTileCount, 0)),
		itemsPerTile: max(estimatedItemsPerTile, 1),
	}
}

// MaxTilesPerValue bounds the number of tiles a single value may be
// registered in. The factories reject larger boxes with ErrInvalidArgument.
const MaxTilesPerValue = 1 << 20

// Add registers value in every tile its box overlaps. The box must be finite
// with min <= max on both axes and span at most MaxTilesPerValue tiles;
// anything else is a programming error and panics.
func (x *Index[T]) Add(value T, box geomodel.Box) {
	if !box.IsFinite() {
		fmtPanic("invalid box %v", box)
	}
	if n := x.def.IntersectingTileCount(box); n > MaxTilesPerValue {
		fmtPanic("box %v spans %.0f tiles, at most %d allowed", box, n, MaxTilesPerValue)
	}

	handle := len(x.values)
	x.values = append(x.values, value)

	lo, hi := x.def.TileRange(box)
	shared := lo != hi
	for n := lo.North; n <= hi.North; n++ {
		for e := lo.East; e <= hi.East; e++ {
			t := tiling.TileIndex{East: e, North: n}
			bucket, ok := x.tiles[t]
			if !ok {
				bucket = make([]entry, 0, x.itemsPerTile)
				x.extendPopulated(t)
			}
			x.tiles[t] = append(bucket, entry{box: box, handle: handle, shared: shared})
			x.entries++
		}
	}
}

func (x *Index[T]) extendPopulated(t tiling.TileIndex) {
	if len(x.tiles) == 0 {
		x.lo, x.hi = t, t
		return
	}
	x.lo.East = min(x.lo.East, t.East)
	x.lo.North = min(x.lo.North, t.North)
	x.hi.East = max(x.hi.East, t.East)
	x.hi.North = max(x.hi.North, t.North)
}

// Plan decides how query would be executed.
func (x *Index[T]) Plan(query geomodel.Box) QueryPlan {
	if !query.IsValid() {
		fmtPanic("invalid query box %v", query)
	}
	if len(x.tiles) == 0 {
		return QueryPlan{Empty: true}
	}

	from, to, ok := x.def.ClampedTileRange(query, x.lo, x.hi)
	if !ok {
		return QueryPlan{Empty: true}
	}

	p := QueryPlan{
		From:       from,
		To:         to,
		TileCost:   tileDrivenCost(from, to),
		BucketCost: bucketDrivenCost(len(x.tiles)),
	}
	p.Strategy = cheapest(p.TileCost, p.BucketCost)
	return p
}

// FindIdentifiers yields every value whose box intersects query and, when
// predicate is not nil, satisfies it. Each Add call contributes at most one
// result. Result order is unspecified.
func (x *Index[T]) FindIdentifiers(query geomodel.Box, predicate func(T) bool) iter.Seq[T] {
	return dropBoxes(x.FindEntries(query, predicate))
}

// FindEntries is FindIdentifiers that also yields the box each value was
// added with.
func (x *Index[T]) FindEntries(query geomodel.Box, predicate func(T) bool) iter.Seq2[T, geomodel.Box] {
	return func(yield func(T, geomodel.Box) bool) {
		x.find(x.Plan(query), query, predicate)(yield)
	}
}

// FindWith runs the query with the given strategy regardless of cost.
func (x *Index[T]) FindWith(strategy Strategy, query geomodel.Box, predicate func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		plan := x.Plan(query)
		plan.Strategy = strategy
		dropBoxes(x.find(plan, query, predicate))(yield)
	}
}

func dropBoxes[T any](seq iter.Seq2[T, geomodel.Box]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if !yield(v) {
				return
			}
		}
	}
}

func (x *Index[T]) find(plan QueryPlan, query geomodel.Box, predicate func(T) bool) iter.Seq2[T, geomodel.Box] {
	return func(yield func(T, geomodel.Box) bool) {
		if plan.Empty {
			return
		}

		switch plan.Strategy {
		case BucketDriven:
			for t, bucket := range x.tiles {
				if t.East < plan.From.East || t.East > plan.To.East ||
					t.North < plan.From.North || t.North > plan.To.North {
					continue
				}
				if !x.scan(t, bucket, query, predicate, yield) {
					return
				}
			}
		default:
			for t := range quadtree.AllTilesBetween(plan.From.East, plan.From.North, plan.To.East, plan.To.North) {
				bucket, ok := x.tiles[t]
				if !ok {
					continue
				}
				if !x.scan(t, bucket, query, predicate, yield) {
					return
				}
			}
		}
	}
}

// scan yields the matching entries of one bucket. An entry registered in
// several tiles is reported only from the tile holding the lower-left corner
// of its intersection with the query; that tile is always part of both the
// entry's and the query's tile range.
func (x *Index[T]) scan(t tiling.TileIndex, bucket []entry, query geomodel.Box, predicate func(T) bool, yield func(T, geomodel.Box) bool) bool {
	for _, e := range bucket {
		if !e.box.Intersects(query) {
			continue
		}
		if e.shared && x.def.ToTileIndex(max(e.box.XMin, query.XMin), max(e.box.YMin, query.YMin)) != t {
			continue
		}

		v := x.values[e.handle]
		if predicate != nil && !predicate(v) {
			continue
		}
		if !yield(v, e.box) {
			return false
		}
	}
	return true
}

// Tile yields the values registered in t with their boxes.
func (x *Index[T]) Tile(t tiling.TileIndex) iter.Seq2[T, geomodel.Box] {
	return func(yield func(T, geomodel.Box) bool) {
		for _, e := range x.tiles[t] {
			if !yield(x.values[e.handle], e.box) {
				return
			}
		}
	}
}

func (x *Index[T]) Tiling() tiling.Definition {
	return x.def
}

// Len is the number of Add calls.
func (x *Index[T]) Len() int {
	return len(x.values)
}

// TileCount is the number of populated tiles.
func (x *Index[T]) TileCount() int {
	return len(x.tiles)
}

// PopulatedRange returns the smallest tile range containing every populated
// tile. ok is false for an empty index.
func (x *Index[T]) PopulatedRange() (lo, hi tiling.TileIndex, ok bool) {
	return x.lo, x.hi, len(x.tiles) > 0
}

type Stats struct {
	Values     int
	Tiles      int
	Entries    int
	MaxBucket  int
	MeanBucket float64
}

func (x *Index[T]) Stats() Stats {
	s := Stats{
		Values:  len(x.values),
		Tiles:   len(x.tiles),
		Entries: x.entries,
	}
	for _, bucket := range x.tiles {
		s.MaxBucket = max(s.MaxBucket, len(bucket))
	}
	if s.Tiles > 0 {
		s.MeanBucket = float64(s.Entries) / float64(s.Tiles)
	}
	return s
}
