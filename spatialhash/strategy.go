package spatialhash

import "github.com/royalcat/tilehash/tiling"

// Strategy selects how a query walks the index.
type Strategy int

const (
	// TileDriven enumerates every tile of the query range and looks up its
	// bucket.
	TileDriven Strategy = iota
	// BucketDriven walks the populated tiles and skips those outside the
	// query range.
	BucketDriven
)

func (s Strategy) String() string {
	switch s {
	case TileDriven:
		return "tile"
	case BucketDriven:
		return "bucket"
	default:
		return "unknown"
	}
}

// QueryPlan is the result of planning a query against an index.
type QueryPlan struct {
	Strategy Strategy
	// From and To bound the query's tile range, already restricted to the
	// populated part of the index.
	From, To tiling.TileIndex
	// Empty is set when no populated tile can match.
	Empty bool

	TileCost   float64
	BucketCost float64
}

// tileDrivenCost is the number of bucket lookups of a tile-driven query.
func tileDrivenCost(from, to tiling.TileIndex) float64 {
	return (float64(to.East) - float64(from.East) + 1) * (float64(to.North) - float64(from.North) + 1)
}

// bucketDrivenCost is the number of populated tiles a bucket-driven query
// has to look at.
func bucketDrivenCost(populatedTiles int) float64 {
	return float64(populatedTiles)
}

func cheapest(tileCost, bucketCost float64) Strategy {
	if bucketCost < tileCost {
		return BucketDriven
	}
	return TileDriven
}
