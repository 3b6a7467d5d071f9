package spatialhash

import (
	"github.com/paulmach/orb"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/tiling"
)

// DefaultIndexingThreshold is the segment count below which indexing a
// linestring costs more than scanning it.
const DefaultIndexingThreshold = 200

// ForLineString indexes the segments of ls by segment index. Segment i runs
// from ls[i] to ls[i+1].
//
// It returns a nil searcher and a nil error when ls has fewer segments than
// the indexing threshold; callers should scan the segments instead.
func ForLineString(ls orb.LineString, opts ...Option) (*Searcher[int], error) {
	o := loadOptions(opts...)

	segments := len(ls) - 1
	if segments < o.indexingThreshold(DefaultIndexingThreshold) {
		return nil, nil
	}

	boxes := make([]geomodel.Box, max(segments, 0))
	for i := range boxes {
		boxes[i] = geomodel.SegmentBox(ls[i], ls[i+1])
	}

	est, err := o.estimateGridSize(SegmentLengthEstimator(ls), EnvelopeEstimator(boxes))
	if err != nil {
		return nil, err
	}

	bound := ls.Bound()
	o.maxTileCount = defaultTileCount(o.maxTileCount, segments)
	s, err := newSearcher[int](bound.Min[0], bound.Min[1], est.Size, o)
	if err != nil {
		return nil, err
	}
	if err := checkSpans(s.index.def, boxes); err != nil {
		return nil, err
	}
	for i, b := range boxes {
		s.index.Add(i, b)
	}
	s.logBuilt()

	return s, nil
}

// ForMultiLineString indexes the segments of every part of mls. The same
// threshold rule as ForLineString applies to the total segment count.
func ForMultiLineString(mls orb.MultiLineString, opts ...Option) (*Searcher[geomodel.SegmentIndex], error) {
	o := loadOptions(opts...)

	segments := 0
	for _, ls := range mls {
		segments += max(len(ls)-1, 0)
	}
	if segments < o.indexingThreshold(DefaultIndexingThreshold) {
		return nil, nil
	}

	boxes := make([]geomodel.Box, 0, segments)
	for _, ls := range mls {
		for i := 0; i < len(ls)-1; i++ {
			boxes = append(boxes, geomodel.SegmentBox(ls[i], ls[i+1]))
		}
	}

	est, err := o.estimateGridSize(MultiSegmentLengthEstimator(mls), EnvelopeEstimator(boxes))
	if err != nil {
		return nil, err
	}

	bound := mls.Bound()
	o.maxTileCount = defaultTileCount(o.maxTileCount, segments)
	s, err := newSearcher[geomodel.SegmentIndex](bound.Min[0], bound.Min[1], est.Size, o)
	if err != nil {
		return nil, err
	}

	if err := checkSpans(s.index.def, boxes); err != nil {
		return nil, err
	}

	k := 0
	for part, ls := range mls {
		for i := 0; i < len(ls)-1; i++ {
			s.index.Add(geomodel.SegmentIndex{Part: part, Local: i}, boxes[k])
			k++
		}
	}
	s.logBuilt()

	return s, nil
}

// ForValues indexes values by the boxes bounds returns for them. The grid
// size is estimated from the average box size unless WithGridSize is given;
// data without any spatial extent, such as a single point, cannot be
// estimated and yields an error wrapping ErrInvalidArgument.
//
// With WithIndexingThreshold, fewer values than the threshold give a nil
// searcher and a nil error.
func ForValues[T any](values []T, bounds func(T) geomodel.Box, opts ...Option) (*Searcher[T], error) {
	o := loadOptions(opts...)

	if len(values) < o.indexingThreshold(0) {
		return nil, nil
	}

	boxes := make([]geomodel.Box, len(values))
	for i, v := range values {
		b := bounds(v)
		if !b.IsFinite() {
			return nil, argErr("value %d has unusable bounds %v", i, b)
		}
		boxes[i] = b
	}

	est, err := o.estimateGridSize(EnvelopeEstimator(boxes))
	if err != nil {
		return nil, err
	}

	var origin geomodel.Box
	for i, b := range boxes {
		if i == 0 {
			origin = b
			continue
		}
		origin = origin.Union(b)
	}

	o.maxTileCount = defaultTileCount(o.maxTileCount, len(values))
	s, err := newSearcher[T](origin.XMin, origin.YMin, est.Size, o)
	if err != nil {
		return nil, err
	}
	if err := checkSpans(s.index.def, boxes); err != nil {
		return nil, err
	}
	for i, v := range values {
		s.index.Add(v, boxes[i])
	}
	s.logBuilt()

	return s, nil
}

func (o options) estimateGridSize(estimators ...GridEstimator) (GridEstimate, error) {
	if o.gridSizeSet {
		if !validGridSize(o.gridSize) {
			return GridEstimate{}, argErr("grid size must be positive, got %v", o.gridSize)
		}
		estimators = append([]GridEstimator{ExplicitGridSize(o.gridSize)}, estimators...)
	}

	est, err := EstimateGridSize(estimators...)
	if err != nil {
		return est, err
	}
	o.logger.Debug("grid size estimated", "estimator", est.Estimator, "grid_size", est.Size)
	return est, nil
}

// checkSpans rejects boxes that would be registered in more than
// MaxTilesPerValue tiles, which happens when the grid is far finer than the
// data.
func checkSpans(def tiling.Definition, boxes []geomodel.Box) error {
	for i, b := range boxes {
		if n := def.IntersectingTileCount(b); n > MaxTilesPerValue {
			return argErr("value %d spans %.0f tiles at grid size %v, at most %d allowed", i, n, def.TileWidth, MaxTilesPerValue)
		}
	}
	return nil
}

func defaultTileCount(hint, items int) int {
	if hint > 0 {
		return hint
	}
	return items
}
