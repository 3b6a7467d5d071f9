// Package quadtree enumerates tile ranges in quadrant-block order.
//
// Tiles come out in nested square blocks that double in size: first the
// 2x2 block at the lower-left corner of the range, then the rest of the 4x4
// block, then the rest of the 8x8 block and so on. Inside a block the four
// quadrants are visited lower-left, lower-right, upper-left, upper-right.
// Neighbouring tiles are therefore produced close to each other, which keeps
// bucket lookups for a range query local.
package quadtree

import (
	"iter"
	"math/bits"

	"github.com/royalcat/tilehash/tiling"
)

// AllTilesBetween yields every tile in the inclusive range
// [eastMin, eastMax] x [northMin, northMax]. The sequence is empty when a
// minimum exceeds its maximum.
func AllTilesBetween(eastMin, northMin, eastMax, northMax int) iter.Seq[tiling.TileIndex] {
	return func(yield func(tiling.TileIndex) bool) {
		if eastMin > eastMax || northMin > northMax {
			return
		}

		span := max(uint64(eastMax-eastMin), uint64(northMax-northMin))
		size := 1
		if span > 0 {
			size = 1 << bits.Len64(span)
		}

		b := blocks{eastMax: eastMax, northMax: northMax, yield: yield}
		b.visit(eastMin, northMin, size)
	}
}

// Count returns the number of tiles AllTilesBetween yields for the range.
func Count(eastMin, northMin, eastMax, northMax int) int64 {
	if eastMin > eastMax || northMin > northMax {
		return 0
	}
	return int64(eastMax-eastMin+1) * int64(northMax-northMin+1)
}

type blocks struct {
	eastMax, northMax int
	yield             func(tiling.TileIndex) bool
}

// visit walks the square block of the given size whose lower-left tile is
// (east, north). Blocks always start inside the range on the lower-left side,
// so only the upper bounds need checking.
func (b *blocks) visit(east, north, size int) bool {
	if east > b.eastMax || north > b.northMax {
		return true
	}
	if size == 1 {
		return b.yield(tiling.TileIndex{East: east, North: north})
	}

	half := size / 2
	return b.visit(east, north, half) &&
		b.visit(east+half, north, half) &&
		b.visit(east, north+half, half) &&
		b.visit(east+half, north+half, half)
}
