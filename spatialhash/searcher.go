package spatialhash

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/tiling"
)

// Searcher is the query facade over an Index with square tiles.
type Searcher[T any] struct {
	index   *Index[T]
	log     *slog.Logger
	metrics *searchMetrics
}

// NewSearcher creates an empty searcher whose tile (0, 0) starts at
// (xMin, yMin). gridSize must be positive and finite.
func NewSearcher[T any](xMin, yMin, gridSize float64, opts ...Option) (*Searcher[T], error) {
	return newSearcher[T](xMin, yMin, gridSize, loadOptions(opts...))
}

func newSearcher[T any](xMin, yMin, gridSize float64, o options) (*Searcher[T], error) {
	if !validGridSize(gridSize) {
		return nil, argErr("grid size must be positive, got %v", gridSize)
	}
	def, err := tiling.New(xMin, yMin, gridSize, gridSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	metrics, err := newSearchMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	return &Searcher[T]{
		index:   NewIndex[T](def, o.maxTileCount, o.itemsPerTile),
		log:     o.logger,
		metrics: metrics,
	}, nil
}

func (s *Searcher[T]) Add(value T, xMin, yMin, xMax, yMax float64) {
	s.index.Add(value, geomodel.Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax})
}

func (s *Searcher[T]) AddBounded(value T, b geomodel.Bounded) {
	s.index.Add(value, b.Bounds())
}

// Search yields the values whose boxes intersect the query box grown by
// tolerance on every side. A zero tolerance is an exact box test. predicate
// may be nil.
func (s *Searcher[T]) Search(xMin, yMin, xMax, yMax, tolerance float64, predicate func(T) bool) iter.Seq[T] {
	query := expandQuery(geomodel.Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}, tolerance)
	return s.find(query, predicate)
}

func (s *Searcher[T]) SearchBounded(b geomodel.Bounded, tolerance float64, predicate func(T) bool) iter.Seq[T] {
	return s.find(expandQuery(b.Bounds(), tolerance), predicate)
}

// SearchWithin is Search with the grown query box clipped to knownBounds,
// usually the extent of the indexed data.
func (s *Searcher[T]) SearchWithin(xMin, yMin, xMax, yMax float64, knownBounds geomodel.Bounded, tolerance float64, predicate func(T) bool) iter.Seq[T] {
	query := expandQuery(geomodel.Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}, tolerance).
		Clamp(knownBounds.Bounds())
	if !query.IsValid() {
		return func(func(T) bool) {}
	}
	return s.find(query, predicate)
}

func expandQuery(b geomodel.Box, tolerance float64) geomodel.Box {
	if !(tolerance >= 0) {
		fmtPanic("tolerance must be non-negative, got %v", tolerance)
	}
	if !b.IsValid() {
		fmtPanic("invalid search box %v", b)
	}
	return b.Expand(tolerance)
}

func (s *Searcher[T]) find(query geomodel.Box, predicate func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		plan := s.index.Plan(query)
		s.metrics.record(plan)
		dropBoxes(s.index.find(plan, query, predicate))(yield)
	}
}

func (s *Searcher[T]) Index() *Index[T] {
	return s.index
}

func (s *Searcher[T]) Tiling() tiling.Definition {
	return s.index.Tiling()
}

func (s *Searcher[T]) GridSize() float64 {
	return s.index.def.TileWidth
}

func (s *Searcher[T]) Len() int {
	return s.index.Len()
}

func (s *Searcher[T]) Stats() Stats {
	return s.index.Stats()
}

func (s *Searcher[T]) logBuilt() {
	stats := s.index.Stats()
	s.log.Debug("spatial index built",
		"values", stats.Values,
		"tiles", stats.Tiles,
		"entries", stats.Entries,
		"max_bucket", stats.MaxBucket,
		"grid_size", s.GridSize(),
	)
}
