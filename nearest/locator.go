// Package nearest finds the value closest to a point within a search radius
// by walking the tiles of a spatial hash outwards from the point.
package nearest

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/spatialhash"
	"github.com/royalcat/tilehash/tiling"
)

// DistanceFunc measures the distance from p to value. It must never be
// smaller than the distance from p to the box value was indexed with.
type DistanceFunc[T any] func(value T, p orb.Point) float64

type Locator[T any] struct {
	searcher *spatialhash.Searcher[T]
	distance DistanceFunc[T]

	searchRadius float64
	logger       *slog.Logger
}

// NewLocator creates a locator over s. A nil distance measures to the
// indexed boxes. s must not be modified while the locator is in use.
func NewLocator[T any](s *spatialhash.Searcher[T], distance DistanceFunc[T], opts ...Option) *Locator[T] {
	options := loadOptions(opts...)
	options.logger.Info("Initializing locator",
		"values", s.Len(),
		"search_radius", options.searchRadius,
	)

	return &Locator[T]{
		searcher:     s,
		distance:     distance,
		searchRadius: options.searchRadius,
		logger:       options.logger,
	}
}

func (l *Locator[T]) SearchRadius() float64 {
	return l.searchRadius
}

// Find is FindInRadius with the configured search radius.
func (l *Locator[T]) Find(p orb.Point) (T, float64, bool) {
	return l.FindInRadius(p, l.searchRadius)
}

// FindInRadius returns the value closest to p and its distance, considering
// only values at most radius away.
func (l *Locator[T]) FindInRadius(p orb.Point, radius float64) (T, float64, bool) {
	var best candidate[T]
	best.distance = math.Inf(1)

	if !(radius >= 0) || !finite(p) || l.searcher.Len() == 0 {
		return best.value, 0, false
	}

	def := l.searcher.Tiling()
	tileSize := min(def.TileWidth, def.TileHeight)
	rings := math.Ceil(radius / tileSize)
	side := 2*rings + 1

	if side*side > 4*float64(l.searcher.Index().TileCount()) {
		l.searchBox(p, radius, &best)
	} else {
		l.searchRings(def, p, radius, int(rings), tileSize, &best)
	}

	if !best.found {
		return best.value, 0, false
	}
	return best.value, best.distance, true
}

type candidate[T any] struct {
	value    T
	distance float64
	found    bool
}

func (l *Locator[T]) consider(value T, box geomodel.Box, p orb.Point, radius float64, best *candidate[T]) {
	d := box.DistanceTo(p[0], p[1])
	if d > radius || d >= best.distance {
		return
	}
	if l.distance != nil {
		d = l.distance(value, p)
		if d > radius || d >= best.distance {
			return
		}
	}
	best.value, best.distance, best.found = value, d, true
}

// searchRings visits the tiles around p nearest first. A tile d rings away
// is separated from p by at least d-1 whole tiles, so the walk stops once
// that gap exceeds the best distance found.
func (l *Locator[T]) searchRings(def tiling.Definition, p orb.Point, radius float64, rings int, tileSize float64, best *candidate[T]) {
	center := def.ToTileIndex(p[0], p[1])
	index := l.searcher.Index()

	for _, t := range def.TileIndexAround(p[0], p[1], rings, tiling.Chebyshev) {
		d := center.Distance(t, tiling.Chebyshev)
		if best.found && (d-1)*tileSize > best.distance {
			return
		}
		for value, box := range index.Tile(t) {
			l.consider(value, box, p, radius, best)
		}
	}
}

func (l *Locator[T]) searchBox(p orb.Point, radius float64, best *candidate[T]) {
	query := geomodel.PointBox(p[0], p[1]).Expand(radius)
	for value, box := range l.searcher.Index().FindEntries(query, nil) {
		l.consider(value, box, p, radius, best)
	}
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
