package tiling

import (
	"fmt"
	"math"
	"strings"
)

// TileIndex identifies a tile by its integer east/north position relative to
// the tiling origin.
type TileIndex struct {
	East  int
	North int
}

func (t TileIndex) String() string {
	return fmt.Sprintf("(%d, %d)", t.East, t.North)
}

// Distance between two tiles in tile units.
func (t TileIndex) Distance(other TileIndex, metric DistanceMetric) float64 {
	de := float64(other.East - t.East)
	dn := float64(other.North - t.North)

	switch metric {
	case Euclidean:
		return math.Sqrt(de*de + dn*dn)
	case Manhattan:
		return math.Abs(de) + math.Abs(dn)
	case Chebyshev:
		return max(math.Abs(de), math.Abs(dn))
	default:
		panic(fmt.Sprintf("tiling: unknown distance metric %d", int(metric)))
	}
}

type DistanceMetric int

const (
	Euclidean DistanceMetric = iota
	Manhattan
	// Chebyshev distance makes rings square.
	Chebyshev
)

func (m DistanceMetric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	case Chebyshev:
		return "chebyshev"
	default:
		return fmt.Sprintf("DistanceMetric(%d)", int(m))
	}
}

func ParseDistanceMetric(s string) (DistanceMetric, error) {
	switch strings.ToLower(s) {
	case "euclidean", "e":
		return Euclidean, nil
	case "manhattan", "m":
		return Manhattan, nil
	case "chebyshev", "c":
		return Chebyshev, nil
	}
	return 0, fmt.Errorf("tiling: unknown distance metric %q", s)
}
