package spatialhash

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/tilehash/geomodel"
)

const (
	// a tile of three average segment lengths holds a handful of segments
	segmentLengthFactor = 3.0
	envelopeFactor      = 2.0

	maxSampledSegments = 1000
)

// GridEstimator proposes a grid size. Estimate returns NaN, or any other
// value that is not finite and positive, when it has nothing to offer.
type GridEstimator struct {
	Name     string
	Estimate func() float64
}

type GridEstimate struct {
	Size      float64
	Estimator string
}

// EstimateGridSize runs the estimators in order and returns the first usable
// grid size.
func EstimateGridSize(estimators ...GridEstimator) (GridEstimate, error) {
	for _, e := range estimators {
		size := e.Estimate()
		if validGridSize(size) {
			return GridEstimate{Size: size, Estimator: e.Name}, nil
		}
	}
	return GridEstimate{}, argErr("cannot estimate grid size, data has no spatial extent; set an explicit grid size")
}

func validGridSize(size float64) bool {
	return size > 0 && !math.IsInf(size, 1)
}

func ExplicitGridSize(size float64) GridEstimator {
	return GridEstimator{
		Name:     "explicit",
		Estimate: func() float64 { return size },
	}
}

// SegmentLengthEstimator sizes tiles at three average segment lengths.
func SegmentLengthEstimator(ls orb.LineString) GridEstimator {
	return GridEstimator{
		Name: "segment-length",
		Estimate: func() float64 {
			return AverageSegmentLength(ls) * segmentLengthFactor
		},
	}
}

func MultiSegmentLengthEstimator(mls orb.MultiLineString) GridEstimator {
	return GridEstimator{
		Name: "segment-length",
		Estimate: func() float64 {
			return averageMultiSegmentLength(mls) * segmentLengthFactor
		},
	}
}

// EnvelopeEstimator sizes tiles at twice the average box side.
func EnvelopeEstimator(boxes []geomodel.Box) GridEstimator {
	return GridEstimator{
		Name: "envelope",
		Estimate: func() float64 {
			return AverageSideLength(boxes) * envelopeFactor
		},
	}
}

// AverageSegmentLength returns the mean segment length of ls. Long lines are
// sampled at an even stride. NaN when ls has no segments.
func AverageSegmentLength(ls orb.LineString) float64 {
	segments := len(ls) - 1
	if segments < 1 {
		return math.NaN()
	}

	step := sampleStep(segments)
	var total float64
	var count int
	for i := 0; i < segments; i += step {
		total += planar.Distance(ls[i], ls[i+1])
		count++
	}
	return total / float64(count)
}

func averageMultiSegmentLength(mls orb.MultiLineString) float64 {
	segments := 0
	for _, ls := range mls {
		segments += max(len(ls)-1, 0)
	}
	if segments < 1 {
		return math.NaN()
	}

	step := sampleStep(segments)
	var total float64
	var count, global int
	for _, ls := range mls {
		for i := 0; i < len(ls)-1; i++ {
			if global%step == 0 {
				total += planar.Distance(ls[i], ls[i+1])
				count++
			}
			global++
		}
	}
	return total / float64(count)
}

func sampleStep(segments int) int {
	if segments <= maxSampledSegments {
		return 1
	}
	return (segments + maxSampledSegments - 1) / maxSampledSegments
}

// AverageSideLength returns Σ(width+height) / count / 2 over boxes. When all
// boxes are degenerate the union envelope is spread evenly over the boxes
// instead. NaN when there is no extent at all.
func AverageSideLength(boxes []geomodel.Box) float64 {
	if len(boxes) == 0 {
		return math.NaN()
	}

	var total float64
	union := boxes[0]
	for _, b := range boxes {
		total += b.Width() + b.Height()
		union = union.Union(b)
	}

	n := float64(len(boxes))
	if total > 0 {
		return total / n / 2
	}

	w, h := union.Width(), union.Height()
	switch {
	case w > 0 && h > 0:
		return math.Sqrt(w * h / n)
	case w > 0 || h > 0:
		return (w + h) / n
	}
	return math.NaN()
}
