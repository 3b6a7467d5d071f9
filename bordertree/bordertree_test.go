package bordertree_test

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/tilehash/bordertree"
	"github.com/royalcat/tilehash/spatialhash"
	"github.com/stretchr/testify/assert"
	"github.com/thejerf/slogassert"
)

func polygonFromBounds(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{orb.Polygon{orb.Ring{
		orb.Point{minX, minY},
		orb.Point{maxX, minY},
		orb.Point{maxX, maxY},
		orb.Point{minX, maxY},
		orb.Point{minX, minY},
	}}}
}

func TestSimpleBounds(t *testing.T) {
	bt := bordertree.NewBorderTree[string]()

	bt.InsertBorder("1", polygonFromBounds(0, 0, 1, 1))
	bt.InsertBorder("2", polygonFromBounds(-1, -1, 0, 0))
	r, ok := bt.QueryPoint(orb.Point{0.5, 0.5})
	if !ok {
		t.Fatalf("expected true, got false")
	}
	if r != "1" {
		t.Fatalf("expected 1, got %s", r)
	}

	r, ok = bt.QueryPoint(orb.Point{-0.5, -0.5})
	if !ok {
		t.Fatalf("expected true, got false")
	}
	if r != "2" {
		t.Fatalf("expected 2, got %s", r)
	}

	if _, ok := bt.QueryPoint(orb.Point{5, 5}); ok {
		t.Fatalf("expected false for a point outside every border")
	}
}

func TestFirstInsertedWins(t *testing.T) {
	bt := bordertree.NewBorderTree[string]()
	bt.InsertBorder("outer", polygonFromBounds(0, 0, 10, 10))
	bt.InsertBorder("inner", polygonFromBounds(4, 4, 6, 6))

	r, ok := bt.QueryPoint(orb.Point{5, 5})
	if !ok || r != "outer" {
		t.Fatalf("expected outer, got %q %v", r, ok)
	}
}

func TestPolygonWithHole(t *testing.T) {
	donut := orb.MultiPolygon{orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{3, 3}, {7, 3}, {7, 7}, {3, 7}, {3, 3}},
	}}

	bt := bordertree.NewBorderTree[string]()
	bt.InsertBorder("donut", donut)
	bt.InsertBorder("filling", polygonFromBounds(4, 4, 6, 6))

	r, _ := bt.QueryPoint(orb.Point{1, 1})
	if r != "donut" {
		t.Fatalf("expected donut, got %q", r)
	}
	r, _ = bt.QueryPoint(orb.Point{5, 5})
	if r != "filling" {
		t.Fatalf("expected filling, got %q", r)
	}
	if _, ok := bt.QueryPoint(orb.Point{3.5, 3.5}); ok {
		t.Fatalf("expected the hole to be empty")
	}
}

func TestInsertAfterQuery(t *testing.T) {
	bt := bordertree.NewBorderTree[int]()
	bt.InsertBorder(1, polygonFromBounds(0, 0, 1, 1))

	if _, ok := bt.QueryPoint(orb.Point{5.5, 5.5}); ok {
		t.Fatalf("expected nothing before the second insert")
	}

	bt.InsertBorder(2, polygonFromBounds(5, 5, 6, 6))
	r, ok := bt.QueryPoint(orb.Point{5.5, 5.5})
	if !ok || r != 2 {
		t.Fatalf("expected 2, got %d %v", r, ok)
	}
	assert.Equal(t, 2, bt.Len())
}

func TestQueryBound(t *testing.T) {
	bt := bordertree.NewBorderTree[string]()
	for i := range 10 {
		x := float64(i * 10)
		bt.InsertBorder(fmt.Sprint(i), polygonFromBounds(x, 0, x+5, 5))
	}

	got := bt.QueryBound(orb.Bound{Min: orb.Point{12, 1}, Max: orb.Point{31, 2}})
	assert.Equal(t, []string{"1", "2", "3"}, got)

	assert.Empty(t, bt.QueryBound(orb.Bound{Min: orb.Point{6, 1}, Max: orb.Point{9, 2}}))
	assert.Empty(t, bt.QueryBound(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{0, 0}}))
}

func TestDegenerateBordersAreScanned(t *testing.T) {
	bt := bordertree.NewBorderTree[string]()
	bt.InsertBorder("point", polygonFromBounds(2, 2, 2, 2))

	r, ok := bt.QueryPoint(orb.Point{2, 2})
	assert.Equal(t, planar.MultiPolygonContains(polygonFromBounds(2, 2, 2, 2), orb.Point{2, 2}), ok)
	if ok {
		assert.Equal(t, "point", r)
	}
	assert.Equal(t, []string{"point"}, bt.QueryBound(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}))
}

func TestUnusableGridIsLogged(t *testing.T) {
	handler := slogassert.New(t, slog.LevelWarn, nil)
	defer handler.AssertEmpty()

	bt := bordertree.NewBorderTree[string](
		spatialhash.WithLogger(slog.New(handler)),
		spatialhash.WithGridSize(0.0001),
	)
	bt.InsertBorder("square", polygonFromBounds(0, 0, 10, 10))

	r, ok := bt.QueryPoint(orb.Point{5, 5})
	assert.True(t, ok)
	assert.Equal(t, "square", r)

	handler.AssertPrecise(slogassert.LogMessageMatch{
		Message: "border index not built, every query scans all borders",
		Level:   slog.LevelWarn,
		Attrs:   map[string]any{"borders": 1},
	})
}

func TestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(31, 32))
	bt := bordertree.NewBorderTree[int]()

	var polygons []orb.MultiPolygon
	for i := range 500 {
		x, y := r.Float64()*1000, r.Float64()*1000
		p := polygonFromBounds(x, y, x+r.Float64()*30, y+r.Float64()*30)
		polygons = append(polygons, p)
		bt.InsertBorder(i, p)
	}

	for range 2000 {
		point := orb.Point{r.Float64() * 1030, r.Float64() * 1030}

		want, wantOk := -1, false
		for i, p := range polygons {
			if planar.MultiPolygonContains(p, point) {
				want, wantOk = i, true
				break
			}
		}

		got, ok := bt.QueryPoint(point)
		if ok != wantOk || (ok && got != want) {
			t.Fatalf("point %v: got %d %v, want %d %v", point, got, ok, want, wantOk)
		}
	}
}

func TestConcurrentInsertAndQuery(t *testing.T) {
	bt := bordertree.NewBorderTree[int]()
	bt.InsertBorder(0, polygonFromBounds(0, 0, 1, 1))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			x := float64(i * 2)
			bt.InsertBorder(i, polygonFromBounds(x, 0, x+1, 1))
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			if r, ok := bt.QueryPoint(orb.Point{0.5, 0.5}); !ok || r != 0 {
				t.Errorf("expected 0, got %d %v", r, ok)
				return
			}
		}
	}()
	wg.Wait()

	r, ok := bt.QueryPoint(orb.Point{400.5, 0.5})
	if !ok || r != 200 {
		t.Fatalf("expected 200, got %d %v", r, ok)
	}
}

func FuzzSimpleBoundCheck(f *testing.F) {
	const testData = "1"

	f.Add(0.0, 0.0, 1.0, 1.0, 0.5, 0.5)
	f.Add(0.0, 0.0, 1.0, 1.0, 1.5, 1.5)
	f.Add(1.0, 1.0, 1.0, 1.0, 1.0, 1.0)
	f.Add(-1e300, -1e300, 1e300, 1e300, 0.0, 0.0)

	f.Fuzz(func(t *testing.T, minX, minY, maxX, maxY, pointX, pointY float64) {
		polygon := polygonFromBounds(minX, minY, maxX, maxY)
		point := orb.Point{pointX, pointY}
		expectOk := planar.MultiPolygonContains(polygon, point)

		bt := bordertree.NewBorderTree[string]()
		bt.InsertBorder(testData, polygon)

		r, ok := bt.QueryPoint(point)
		if expectOk != ok {
			t.Fatalf("expected %v, got %v", expectOk, ok)
		}

		if expectOk && r != testData {
			t.Fatalf("expected %s, got %s", testData, r)
		}
	})
}
