package tiling_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/tiling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadTiles(t *testing.T) {
	testCases := []struct {
		name string
		w, h float64
	}{
		{"zero width", 0, 1},
		{"negative height", 1, -1},
		{"nan width", math.NaN(), 1},
		{"infinite height", 1, math.Inf(1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tiling.New(0, 0, tc.w, tc.h)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tiling.ErrInvalidDefinition))
		})
	}

	_, err := tiling.New(math.NaN(), 0, 1, 1)
	assert.ErrorIs(t, err, tiling.ErrInvalidDefinition)
}

func TestToTileIndexUsesFloor(t *testing.T) {
	def, err := tiling.New(0, 0, 10, 10)
	require.NoError(t, err)

	testCases := []struct {
		x, y float64
		want tiling.TileIndex
	}{
		{0, 0, tiling.TileIndex{East: 0, North: 0}},
		{9.999, 9.999, tiling.TileIndex{East: 0, North: 0}},
		{10, 0, tiling.TileIndex{East: 1, North: 0}},
		{-0.001, 0, tiling.TileIndex{East: -1, North: 0}},
		{-10, -10, tiling.TileIndex{East: -1, North: -1}},
		{-10.5, 25, tiling.TileIndex{East: -2, North: 2}},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, def.ToTileIndex(tc.x, tc.y), "(%v, %v)", tc.x, tc.y)
	}
}

func TestToTileIndexSaturates(t *testing.T) {
	def, err := tiling.New(0, 0, 1e-300, 1e-300)
	require.NoError(t, err)

	assert.Equal(t, tiling.TileIndex{East: tiling.MaxTile, North: -tiling.MaxTile}, def.ToTileIndex(1e300, -1e300))
	assert.Equal(t, tiling.TileIndex{East: tiling.MaxTile, North: 0}, def.ToTileIndex(math.MaxFloat64, 0))
}

func TestTileBoundsContainsTilePoints(t *testing.T) {
	def, err := tiling.New(-3, 7, 2, 0.5)
	require.NoError(t, err)

	tile := def.ToTileIndex(4.2, -1.3)
	b := def.TileBounds(tile)
	assert.True(t, b.Contains(4.2, -1.3))
	assert.InDelta(t, 2, b.Width(), 1e-12)
	assert.InDelta(t, 0.5, b.Height(), 1e-12)
	assert.Equal(t, tile, def.ToTileIndex(b.XMin, b.YMin))
}

func TestTileIndexAroundEuclidean(t *testing.T) {
	def, err := tiling.New(-0.5, -0.5, 1, 1)
	require.NoError(t, err)

	tiles := def.TileIndexAround(0, 0, 5, tiling.Euclidean)
	require.Len(t, tiles, 81)

	center := tiles[0]
	assert.Equal(t, tiling.TileIndex{}, center)
	assert.Equal(t, 1.0, center.Distance(tiles[1], tiling.Euclidean))
	assert.InDelta(t, 1.41, center.Distance(tiles[7], tiling.Euclidean), 0.01)
	assert.Equal(t, 5.0, center.Distance(tiles[80], tiling.Euclidean))

	assertNonDecreasing(t, tiles, tiling.Euclidean)
}

func TestTileIndexAroundManhattan(t *testing.T) {
	def, err := tiling.New(-0.5, -0.5, 1, 1)
	require.NoError(t, err)

	tiles := def.TileIndexAround(0, 0, 5, tiling.Manhattan)
	require.Len(t, tiles, 61)

	center := tiles[0]
	assert.Equal(t, tiling.TileIndex{}, center)
	assert.Equal(t, 1.0, center.Distance(tiles[1], tiling.Manhattan))
	assert.Equal(t, 2.0, center.Distance(tiles[7], tiling.Manhattan))
	assert.Equal(t, 5.0, center.Distance(tiles[60], tiling.Manhattan))

	assertNonDecreasing(t, tiles, tiling.Manhattan)
}

func TestTileIndexAroundChebyshevIsSquare(t *testing.T) {
	def, err := tiling.New(0, 0, 1, 1)
	require.NoError(t, err)

	tiles := def.TileIndexAround(10.5, -3.5, 2, tiling.Chebyshev)
	require.Len(t, tiles, 25)
	assert.Equal(t, tiling.TileIndex{East: 10, North: -4}, tiles[0])
	assertNonDecreasing(t, tiles, tiling.Chebyshev)
}

func TestTileIndexAroundTieBreak(t *testing.T) {
	def, err := tiling.New(-0.5, -0.5, 1, 1)
	require.NoError(t, err)

	tiles := def.TileIndexAround(0, 0, 1, tiling.Manhattan)
	assert.Equal(t, []tiling.TileIndex{
		{East: 0, North: 0},
		{East: -1, North: 0},
		{East: 0, North: -1},
		{East: 0, North: 1},
		{East: 1, North: 0},
	}, tiles)

	// restartable: a second call builds the same sequence
	assert.Equal(t, tiles, def.TileIndexAround(0, 0, 1, tiling.Manhattan))
	assert.Nil(t, def.TileIndexAround(0, 0, -1, tiling.Manhattan))
}

func assertNonDecreasing(t *testing.T, tiles []tiling.TileIndex, metric tiling.DistanceMetric) {
	t.Helper()
	for i := 1; i < len(tiles); i++ {
		prev := tiles[0].Distance(tiles[i-1], metric)
		cur := tiles[0].Distance(tiles[i], metric)
		if cur < prev {
			t.Fatalf("distance decreased at %d: %v < %v", i, cur, prev)
		}
	}
}

func TestIntersectingTiles(t *testing.T) {
	def, err := tiling.New(0, 0, 1, 1)
	require.NoError(t, err)

	box := geomodel.Box{XMin: 0.5, YMin: 0.5, XMax: 2, YMax: 1.5}
	tiles := slices.Collect(def.IntersectingTiles(box))
	assert.Equal(t, []tiling.TileIndex{
		{East: 0, North: 0}, {East: 1, North: 0}, {East: 2, North: 0},
		{East: 0, North: 1}, {East: 1, North: 1}, {East: 2, North: 1},
	}, tiles)
	assert.Equal(t, float64(len(tiles)), def.IntersectingTileCount(box))

	assert.Empty(t, slices.Collect(def.IntersectingTiles(geomodel.Box{XMin: 1, XMax: 0})))
	assert.Zero(t, def.IntersectingTileCount(geomodel.Box{XMin: 1, XMax: 0}))
}

func TestClampedTileRange(t *testing.T) {
	def, err := tiling.New(0, 0, 0.001, 0.001)
	require.NoError(t, err)

	lo := tiling.TileIndex{East: -5, North: 0}
	hi := tiling.TileIndex{East: 5, North: 10}

	from, to, ok := def.ClampedTileRange(geomodel.Box{XMin: -1e12, YMin: -1e12, XMax: 1e12, YMax: 1e12}, lo, hi)
	require.True(t, ok)
	assert.Equal(t, lo, from)
	assert.Equal(t, hi, to)

	from, to, ok = def.ClampedTileRange(geomodel.Box{XMin: 0.0025, YMin: 0.0035, XMax: 0.5, YMax: 0.0045}, lo, hi)
	require.True(t, ok)
	assert.Equal(t, tiling.TileIndex{East: 2, North: 3}, from)
	assert.Equal(t, tiling.TileIndex{East: 5, North: 4}, to)

	_, _, ok = def.ClampedTileRange(geomodel.Box{XMin: 1e300, YMin: 0, XMax: math.MaxFloat64, YMax: 1}, lo, hi)
	assert.False(t, ok)
}

func TestParseDistanceMetric(t *testing.T) {
	for _, m := range []tiling.DistanceMetric{tiling.Euclidean, tiling.Manhattan, tiling.Chebyshev} {
		parsed, err := tiling.ParseDistanceMetric(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := tiling.ParseDistanceMetric("taxicab")
	assert.Error(t, err)
}
