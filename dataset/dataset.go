// Package dataset serves proximity queries over the features of a GeoJSON
// feature collection.
package dataset

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/royalcat/tilehash/bordertree"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/nearest"
	"github.com/royalcat/tilehash/spatialhash"
)

var ErrNoFeatures = errors.New("dataset: no features with usable geometry")

type Dataset struct {
	features []*geojson.Feature
	boxes    []geomodel.Box
	bounds   geomodel.Box

	searcher *spatialhash.Searcher[int]
	locator  *nearest.Locator[int]
	borders  *bordertree.BorderTree[int]
	polygons int

	logger *slog.Logger
}

// New indexes the features of fc. Features without geometry or with
// non-finite coordinates are skipped.
func New(fc *geojson.FeatureCollection, opts ...Option) (*Dataset, error) {
	o := loadOptions(opts...)
	log := o.logger

	d := &Dataset{
		borders: bordertree.NewBorderTree[int](o.indexOptions()...),
		logger:  log,
	}

	skipped := 0
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		box := geomodel.FromBound(f.Geometry.Bound())
		if !box.IsFinite() {
			skipped++
			continue
		}

		id := len(d.features)
		d.features = append(d.features, f)
		d.boxes = append(d.boxes, box)
		if id == 0 {
			d.bounds = box
		} else {
			d.bounds = d.bounds.Union(box)
		}

		if mp, ok := polygonal(f.Geometry); ok {
			d.borders.InsertBorder(id, mp)
			d.polygons++
		}
	}
	if skipped > 0 {
		log.Warn("Skipped features without usable geometry", "skipped", skipped)
	}
	if len(d.features) == 0 {
		return nil, ErrNoFeatures
	}

	ids := make([]int, len(d.features))
	for i := range ids {
		ids[i] = i
	}
	searcher, err := spatialhash.ForValues(ids, func(id int) geomodel.Box { return d.boxes[id] }, o.indexOptions()...)
	if err != nil {
		return nil, fmt.Errorf("error indexing features: %w", err)
	}
	d.searcher = searcher
	d.locator = nearest.NewLocator(searcher, d.distance, o.locatorOptions()...)

	log.Info("Dataset indexed",
		"features", len(d.features),
		"polygons", d.polygons,
		"grid_size", searcher.GridSize(),
	)
	return d, nil
}

func polygonal(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, true
	case orb.MultiPolygon:
		return g, true
	case orb.Bound:
		return orb.MultiPolygon{g.ToPolygon()}, true
	}
	return nil, false
}

// distance is zero inside polygons and the distance to the geometry
// elsewhere.
func (d *Dataset) distance(id int, p orb.Point) float64 {
	g := d.features[id].Geometry
	if mp, ok := polygonal(g); ok && planar.MultiPolygonContains(mp, p) {
		return 0
	}
	return planar.DistanceFrom(g, p)
}

func (d *Dataset) Len() int {
	return len(d.features)
}

func (d *Dataset) Bounds() geomodel.Box {
	return d.bounds
}

func (d *Dataset) Feature(id int) *geojson.Feature {
	return d.features[id]
}

// Box returns the bounding box of feature id.
func (d *Dataset) Box(id int) geomodel.Box {
	return d.boxes[id]
}

func (d *Dataset) Searcher() *spatialhash.Searcher[int] {
	return d.searcher
}

// Search yields the ids of the features whose bounds intersect box grown by
// tolerance. It panics on an invalid box or a negative tolerance.
func (d *Dataset) Search(box geomodel.Box, tolerance float64) iter.Seq[int] {
	return d.searcher.SearchWithin(box.XMin, box.YMin, box.XMax, box.YMax, d.bounds, tolerance, nil)
}

// Nearest returns the feature closest to p within the configured search
// radius.
func (d *Dataset) Nearest(p orb.Point) (id int, distance float64, ok bool) {
	return d.locator.Find(p)
}

func (d *Dataset) NearestInRadius(p orb.Point, radius float64) (id int, distance float64, ok bool) {
	return d.locator.FindInRadius(p, radius)
}

// Containing returns the polygonal feature containing p.
func (d *Dataset) Containing(p orb.Point) (id int, ok bool) {
	return d.borders.QueryPoint(p)
}
