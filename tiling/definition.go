// Package tiling maps world coordinates onto a uniform rectangular grid.
//
// Tile (0, 0) has its lower-left corner at the tiling origin. Tile
// coordinates are computed with floor division, so points left of or below
// the origin land in negative tiles, and a point lying exactly on the shared
// border of two tiles belongs to the tile above / right of that border.
package tiling

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/google/btree"
	"github.com/royalcat/tilehash/geomodel"
)

var ErrInvalidDefinition = errors.New("tiling: invalid definition")

// Definition describes a grid by the world position of tile (0, 0)'s
// lower-left corner and the size of a tile.
type Definition struct {
	OriginX    float64
	OriginY    float64
	TileWidth  float64
	TileHeight float64
}

func New(originX, originY, tileWidth, tileHeight float64) (Definition, error) {
	d := Definition{
		OriginX:    originX,
		OriginY:    originY,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

func (d Definition) Validate() error {
	if !(d.TileWidth > 0) || math.IsInf(d.TileWidth, 1) {
		return fmt.Errorf("%w: tile width must be positive and finite, got %v", ErrInvalidDefinition, d.TileWidth)
	}
	if !(d.TileHeight > 0) || math.IsInf(d.TileHeight, 1) {
		return fmt.Errorf("%w: tile height must be positive and finite, got %v", ErrInvalidDefinition, d.TileHeight)
	}
	if math.IsNaN(d.OriginX) || math.IsInf(d.OriginX, 0) || math.IsNaN(d.OriginY) || math.IsInf(d.OriginY, 0) {
		return fmt.Errorf("%w: origin must be finite, got (%v, %v)", ErrInvalidDefinition, d.OriginX, d.OriginY)
	}
	return nil
}

func (d Definition) String() string {
	return fmt.Sprintf("tiling{origin: (%g, %g), tile: %gx%g}", d.OriginX, d.OriginY, d.TileWidth, d.TileHeight)
}

// MaxTile bounds tile coordinates on both axes. Points further away from the
// origin than MaxTile tiles are assigned to the outermost tile.
const MaxTile = 1 << 52

// ToTileIndex returns the tile containing (x, y). Coordinates must not be
// NaN.
func (d Definition) ToTileIndex(x, y float64) TileIndex {
	return TileIndex{
		East:  saturate(math.Floor((x - d.OriginX) / d.TileWidth)),
		North: saturate(math.Floor((y - d.OriginY) / d.TileHeight)),
	}
}

func saturate(f float64) int {
	return int(max(min(f, MaxTile), -MaxTile))
}

// TileBounds returns the world rectangle covered by t.
func (d Definition) TileBounds(t TileIndex) geomodel.Box {
	return geomodel.Box{
		XMin: d.OriginX + float64(t.East)*d.TileWidth,
		YMin: d.OriginY + float64(t.North)*d.TileHeight,
		XMax: d.OriginX + float64(t.East+1)*d.TileWidth,
		YMax: d.OriginY + float64(t.North+1)*d.TileHeight,
	}
}

// TileRange returns the inclusive range of tiles overlapped by box.
func (d Definition) TileRange(box geomodel.Box) (lo, hi TileIndex) {
	return d.ToTileIndex(box.XMin, box.YMin), d.ToTileIndex(box.XMax, box.YMax)
}

// IntersectingTiles enumerates the tiles overlapped by box, row by row from
// the bottom.
func (d Definition) IntersectingTiles(box geomodel.Box) iter.Seq[TileIndex] {
	return func(yield func(TileIndex) bool) {
		if !box.IsValid() {
			return
		}
		lo, hi := d.TileRange(box)
		for n := lo.North; n <= hi.North; n++ {
			for e := lo.East; e <= hi.East; e++ {
				if !yield(TileIndex{East: e, North: n}) {
					return
				}
			}
		}
	}
}

// IntersectingTileCount is the number of tiles IntersectingTiles would
// produce. The count is computed in floating point and never enumerates.
func (d Definition) IntersectingTileCount(box geomodel.Box) float64 {
	if !box.IsValid() {
		return 0
	}
	e0, n0, e1, n1 := d.floorRange(box)
	return (e1 - e0 + 1) * (n1 - n0 + 1)
}

// ClampedTileRange returns the tiles overlapped by box restricted to the
// inclusive range [lo, hi]. ok is false when nothing is left. The range is
// clamped before conversion to integers, so boxes far outside the grid are
// safe to pass.
func (d Definition) ClampedTileRange(box geomodel.Box, lo, hi TileIndex) (from, to TileIndex, ok bool) {
	if !box.IsValid() {
		return from, to, false
	}
	e0, n0, e1, n1 := d.floorRange(box)
	if e1 < float64(lo.East) || e0 > float64(hi.East) || n1 < float64(lo.North) || n0 > float64(hi.North) {
		return from, to, false
	}

	from = TileIndex{
		East:  saturate(max(e0, float64(lo.East))),
		North: saturate(max(n0, float64(lo.North))),
	}
	to = TileIndex{
		East:  saturate(min(e1, float64(hi.East))),
		North: saturate(min(n1, float64(hi.North))),
	}
	return from, to, true
}

func (d Definition) floorRange(box geomodel.Box) (e0, n0, e1, n1 float64) {
	e0 = math.Floor((box.XMin - d.OriginX) / d.TileWidth)
	n0 = math.Floor((box.YMin - d.OriginY) / d.TileHeight)
	e1 = math.Floor((box.XMax - d.OriginX) / d.TileWidth)
	n1 = math.Floor((box.YMax - d.OriginY) / d.TileHeight)
	return e0, n0, e1, n1
}

type ringTile struct {
	distance float64
	tile     TileIndex
}

func lessRingTile(a, b ringTile) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	if a.tile.East != b.tile.East {
		return a.tile.East < b.tile.East
	}
	return a.tile.North < b.tile.North
}

// TileIndexAround returns the tiles within maxTileDistance of the tile
// containing (centerX, centerY), nearest first. Tiles at equal distance are
// ordered by east, then north. The first element is always the center tile.
func (d Definition) TileIndexAround(centerX, centerY float64, maxTileDistance int, metric DistanceMetric) []TileIndex {
	if maxTileDistance < 0 {
		return nil
	}

	center := d.ToTileIndex(centerX, centerY)
	limit := float64(maxTileDistance)

	ring := btree.NewG[ringTile](16, lessRingTile)
	for dn := -maxTileDistance; dn <= maxTileDistance; dn++ {
		for de := -maxTileDistance; de <= maxTileDistance; de++ {
			t := TileIndex{East: center.East + de, North: center.North + dn}
			dist := center.Distance(t, metric)
			if dist > limit {
				continue
			}
			ring.ReplaceOrInsert(ringTile{distance: dist, tile: t})
		}
	}

	out := make([]TileIndex, 0, ring.Len())
	ring.Ascend(func(rt ringTile) bool {
		out = append(out, rt.tile)
		return true
	})
	return out
}
