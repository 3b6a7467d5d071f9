package spatialhash_test

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/spatialhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/slogassert"
)

func zigzag(n int) orb.LineString {
	ls := make(orb.LineString, n)
	for i := range ls {
		ls[i] = orb.Point{float64(i), float64(i % 2)}
	}
	return ls
}

func bruteSegments(ls orb.LineString, query geomodel.Box) []int {
	var out []int
	for i := 0; i < len(ls)-1; i++ {
		if geomodel.SegmentBox(ls[i], ls[i+1]).Intersects(query) {
			out = append(out, i)
		}
	}
	return out
}

func TestForLineStringBelowThreshold(t *testing.T) {
	s, err := spatialhash.ForLineString(zigzag(10))
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = spatialhash.ForLineString(zigzag(spatialhash.DefaultIndexingThreshold))
	require.NoError(t, err)
	assert.Nil(t, s, "%d points are one segment short", spatialhash.DefaultIndexingThreshold)

	s, err = spatialhash.ForLineString(zigzag(10), spatialhash.WithIndexingThreshold(0))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 9, s.Len())
}

func TestForLineStringMatchesBruteForce(t *testing.T) {
	ls := zigzag(1000)
	s, err := spatialhash.ForLineString(ls)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 999, s.Len())
	assert.InDelta(t, 3*math.Sqrt2, s.GridSize(), 1e-9)

	r := rand.New(rand.NewPCG(7, 8))
	for range 100 {
		x, y := r.Float64()*1100-50, r.Float64()*4-2
		tol := r.Float64() * 3
		got := sorted(s.Search(x, y, x, y, tol, nil))
		want := bruteSegments(ls, geomodel.PointBox(x, y).Expand(tol))
		require.Equal(t, want, nilIfEmpty(got), "point (%v, %v) tolerance %v", x, y, tol)
	}
}

func TestForMultiLineString(t *testing.T) {
	mls := orb.MultiLineString{
		{{0, 0}, {10, 0}, {10, 10}},
		{{100, 100}},
		{{5, 5}, {6, 6}},
	}

	s, err := spatialhash.ForMultiLineString(mls)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = spatialhash.ForMultiLineString(mls, spatialhash.WithIndexingThreshold(1))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Len())

	got := slices.Collect(s.Search(5, 5, 5, 5, 0, nil))
	assert.ElementsMatch(t, []geomodel.SegmentIndex{{Part: 2, Local: 0}}, got)

	got = slices.Collect(s.Search(10, 0, 10, 0, 0, nil))
	assert.ElementsMatch(t, []geomodel.SegmentIndex{{Part: 0, Local: 0}, {Part: 0, Local: 1}}, got)

	got = slices.Collect(s.Search(9, 4, 9, 4, 1, nil))
	assert.ElementsMatch(t, []geomodel.SegmentIndex{{Part: 0, Local: 1}}, got)
}

func TestForValues(t *testing.T) {
	type place struct {
		name string
		box  geomodel.Box
	}
	places := []place{
		{"a", geomodel.Box{XMin: 0, YMin: 0, XMax: 2, YMax: 2}},
		{"b", geomodel.Box{XMin: 10, YMin: 10, XMax: 12, YMax: 12}},
		{"c", geomodel.Box{XMin: 1, YMin: 1, XMax: 11, YMax: 11}},
	}
	bounds := func(p place) geomodel.Box { return p.box }

	s, err := spatialhash.ForValues(places, bounds)
	require.NoError(t, err)
	require.NotNil(t, s)

	var names []string
	for p := range s.Search(5, 5, 5, 5, 0, nil) {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{"c"}, names)

	onlyB := func(p place) bool { return p.name == "b" }
	assert.Len(t, slices.Collect(s.Search(0, 0, 20, 20, 0, onlyB)), 1)

	s, err = spatialhash.ForValues(places, bounds, spatialhash.WithIndexingThreshold(5))
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestForValuesRejectsBadInput(t *testing.T) {
	self := func(b geomodel.Box) geomodel.Box { return b }

	_, err := spatialhash.ForValues([]geomodel.Box{{XMin: 0, YMin: 0, XMax: math.Inf(1), YMax: 1}}, self)
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)

	_, err = spatialhash.ForValues([]geomodel.Box{{XMin: 1, YMin: 0, XMax: 0, YMax: 1}}, self)
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)

	_, err = spatialhash.ForValues([]geomodel.Box{{XMin: 0, YMin: 0, XMax: 1, YMax: 1}}, self, spatialhash.WithGridSize(0))
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)

	_, err = spatialhash.ForValues([]geomodel.Box(nil), self)
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)
}

func TestFactoriesRejectGridTooFine(t *testing.T) {
	self := func(b geomodel.Box) geomodel.Box { return b }
	boxes := []geomodel.Box{geomodel.PointBox(0, 0), {XMin: 0, YMin: 0, XMax: 10, YMax: 10}}

	_, err := spatialhash.ForValues(boxes, self, spatialhash.WithGridSize(0.001))
	require.ErrorIs(t, err, spatialhash.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "value 1 spans")

	s, err := spatialhash.ForValues(boxes, self, spatialhash.WithGridSize(0.1))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	diagonal := orb.LineString{{0, 0}, {100, 100}, {100, 101}}
	_, err = spatialhash.ForLineString(diagonal, spatialhash.WithIndexingThreshold(0), spatialhash.WithGridSize(0.01))
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)

	_, err = spatialhash.ForMultiLineString(orb.MultiLineString{diagonal}, spatialhash.WithIndexingThreshold(0), spatialhash.WithGridSize(0.01))
	assert.ErrorIs(t, err, spatialhash.ErrInvalidArgument)
}

func TestFactoryLogging(t *testing.T) {
	handler := slogassert.New(t, slog.LevelDebug, nil)
	defer handler.AssertEmpty()
	logger := slog.New(handler)

	boxes := []geomodel.Box{
		{XMin: 0, YMin: 0, XMax: 1, YMax: 1},
		{XMin: 4, YMin: 4, XMax: 5, YMax: 5},
	}
	_, err := spatialhash.ForValues(boxes, func(b geomodel.Box) geomodel.Box { return b }, spatialhash.WithLogger(logger))
	require.NoError(t, err)

	handler.AssertPrecise(slogassert.LogMessageMatch{
		Message: "grid size estimated",
		Level:   slog.LevelDebug,
		Attrs: map[string]any{
			"estimator": "envelope",
			"grid_size": 2.0,
		},
		AllAttrsMatch: true,
	})
	handler.AssertPrecise(slogassert.LogMessageMatch{
		Message: "spatial index built",
		Level:   slog.LevelDebug,
		Attrs: map[string]any{
			"values":    2,
			"tiles":     2,
			"entries":   2,
			"grid_size": 2.0,
		},
	})

	ls := orb.LineString{{0, 0}, {1, 0}, {2, 0}}
	_, err = spatialhash.ForLineString(ls, spatialhash.WithLogger(logger), spatialhash.WithIndexingThreshold(0))
	require.NoError(t, err)
	handler.AssertPrecise(slogassert.LogMessageMatch{
		Message: "grid size estimated",
		Level:   slog.LevelDebug,
		Attrs:   map[string]any{"estimator": "segment-length", "grid_size": 3.0},
	})
	handler.AssertMessage("spatial index built")

	_, err = spatialhash.ForLineString(ls, spatialhash.WithLogger(logger), spatialhash.WithIndexingThreshold(0), spatialhash.WithGridSize(0.5))
	require.NoError(t, err)
	handler.AssertPrecise(slogassert.LogMessageMatch{
		Message: "grid size estimated",
		Level:   slog.LevelDebug,
		Attrs:   map[string]any{"estimator": "explicit", "grid_size": 0.5},
	})
	handler.AssertMessage("spatial index built")
}
