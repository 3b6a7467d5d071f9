// Package bordertree finds the polygon containing a point. Candidates come
// from a spatial hash over polygon bounds and are confirmed with an exact
// containment test.
package bordertree

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/spatialhash"
)

type BorderTree[Data any] struct {
	mu      sync.RWMutex
	borders []border[Data]
	opts    []spatialhash.Option
	log     *slog.Logger

	index *spatialhash.Searcher[int]
	// borders that are not in index and are always scanned
	loose []int
	// borders[indexed:] were inserted after the last rebuild
	indexed int
}

// NewBorderTree creates an empty tree. opts configure the spatial hash that
// is built over the border bounds.
func NewBorderTree[Data any](opts ...spatialhash.Option) *BorderTree[Data] {
	return &BorderTree[Data]{opts: opts, log: spatialhash.Logger(opts...)}
}

type border[D any] struct {
	Data    D
	Polygon orb.MultiPolygon
	Box     geomodel.Box
}

func (bt *BorderTree[Data]) InsertBorder(data Data, b orb.MultiPolygon) {
	var box geomodel.Box
	if len(b) > 0 {
		box = geomodel.FromBound(b.Bound())
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	bt.borders = append(bt.borders, border[Data]{Data: data, Polygon: b, Box: box})
}

func (bt *BorderTree[Data]) Len() int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()

	return len(bt.borders)
}

// QueryPoint returns the data of a border containing point. When borders
// overlap, the one inserted first wins.
func (bt *BorderTree[Data]) QueryPoint(point orb.Point) (Data, bool) {
	bt.readLock()
	defer bt.mu.RUnlock()

	best := -1
	bt.candidates(geomodel.PointBox(point[0], point[1]), func(id int) {
		if best >= 0 && id > best {
			return
		}
		if planar.MultiPolygonContains(bt.borders[id].Polygon, point) {
			best = id
		}
	})

	if best < 0 {
		var zero Data
		return zero, false
	}
	return bt.borders[best].Data, true
}

// QueryBound returns the data of every border whose bounds intersect bound,
// in insertion order. No exact geometry test is made.
func (bt *BorderTree[Data]) QueryBound(bound orb.Bound) []Data {
	bt.readLock()
	defer bt.mu.RUnlock()

	var ids []int
	bt.candidates(geomodel.FromBound(bound), func(id int) {
		ids = append(ids, id)
	})
	slices.Sort(ids)

	out := make([]Data, len(ids))
	for i, id := range ids {
		out[i] = bt.borders[id].Data
	}
	return out
}

// candidates calls fn for every border whose box may intersect query. Must
// be called with the read lock held.
func (bt *BorderTree[Data]) candidates(query geomodel.Box, fn func(id int)) {
	if !query.IsFinite() {
		inverted := query.XMin > query.XMax || query.YMin > query.YMax
		if inverted {
			return
		}
		// infinite or NaN coordinates: leave the decision to the exact test
		for id := range bt.borders {
			fn(id)
		}
		return
	}

	if bt.index != nil {
		for id := range bt.index.Search(query.XMin, query.YMin, query.XMax, query.YMax, 0, nil) {
			fn(id)
		}
	}
	for _, id := range bt.loose {
		if bt.mayIntersect(id, query) {
			fn(id)
		}
	}
	for id := bt.indexed; id < len(bt.borders); id++ {
		if bt.mayIntersect(id, query) {
			fn(id)
		}
	}
}

func (bt *BorderTree[Data]) mayIntersect(id int, query geomodel.Box) bool {
	box := bt.borders[id].Box
	return !box.IsFinite() || box.Intersects(query)
}

// readLock takes the read lock, rebuilding the index first when borders were
// inserted since the last build.
func (bt *BorderTree[Data]) readLock() {
	bt.mu.RLock()
	if bt.indexed == len(bt.borders) {
		return
	}
	bt.mu.RUnlock()

	bt.mu.Lock()
	if bt.indexed != len(bt.borders) {
		bt.rebuild()
	}
	bt.mu.Unlock()

	// inserts between Unlock and RLock land in the scanned tail
	bt.mu.RLock()
}

func (bt *BorderTree[Data]) rebuild() {
	var ids []int
	bt.loose = bt.loose[:0]
	for id, b := range bt.borders {
		if b.Box.IsFinite() {
			ids = append(ids, id)
		} else {
			bt.loose = append(bt.loose, id)
		}
	}
	bt.indexed = len(bt.borders)

	index, err := spatialhash.ForValues(ids, func(id int) geomodel.Box {
		return bt.borders[id].Box
	}, bt.opts...)
	if err != nil && len(ids) > 0 {
		bt.log.Warn("border index not built, every query scans all borders",
			"borders", len(ids), "error", err)
	}
	if err != nil || index == nil {
		// no usable grid, e.g. every border is a single point
		bt.index = nil
		bt.loose = append(bt.loose, ids...)
		return
	}
	bt.index = index
}
