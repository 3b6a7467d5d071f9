package server

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/mailru/easyjson/jwriter"
	"github.com/paulmach/orb"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/valyala/fasthttp"
)

func pathFloat(ctx *fasthttp.RequestCtx, name string) (float64, bool) {
	s, _ := ctx.UserValue(name).(string)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		badRequest(ctx, "invalid "+name)
		return 0, false
	}
	return v, true
}

func pathPoint(ctx *fasthttp.RequestCtx) (orb.Point, bool) {
	x, ok := pathFloat(ctx, "x")
	if !ok {
		return orb.Point{}, false
	}
	y, ok := pathFloat(ctx, "y")
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}

// queryDistance parses an optional non-negative query argument.
func queryDistance(ctx *fasthttp.RequestCtx, name string) (v float64, set, ok bool) {
	arg := ctx.QueryArgs().Peek(name)
	if len(arg) == 0 {
		return 0, false, true
	}
	v, err := strconv.ParseFloat(string(arg), 64)
	if err != nil || !(v >= 0) {
		badRequest(ctx, name+" must be a non-negative number")
		return 0, false, false
	}
	return v, true, true
}

func (s *server) nearest(p orb.Point, radius float64, radiusSet bool) (int, float64, bool) {
	if radiusSet {
		return s.data.NearestInRadius(p, radius)
	}
	return s.data.Nearest(p)
}

func (s *server) SearchHandler(ctx *fasthttp.RequestCtx) {
	s.metricSearchCallCount.Add(ctx, 1)

	var coords [4]float64
	for i, name := range [...]string{"xmin", "ymin", "xmax", "ymax"} {
		v, ok := pathFloat(ctx, name)
		if !ok {
			return
		}
		coords[i] = v
	}
	box := geomodel.Box{XMin: coords[0], YMin: coords[1], XMax: coords[2], YMax: coords[3]}
	if !box.IsValid() {
		badRequest(ctx, "invalid box "+box.String())
		return
	}

	tolerance, _, ok := queryDistance(ctx, "tolerance")
	if !ok {
		return
	}

	ids := slices.Sorted(s.data.Search(box, tolerance))
	s.metricFeaturesReturned.Add(ctx, int64(len(ids)))

	w := jwriter.Writer{}
	w.RawByte('[')
	for i, id := range ids {
		if i > 0 {
			w.RawByte(',')
		}
		s.writeFeature(&w, id)
	}
	w.RawByte(']')

	respond(ctx, &w)
}

func (s *server) NearestHandler(ctx *fasthttp.RequestCtx) {
	s.metricNearestCallCount.Add(ctx, 1)
	s.metricPointsLocated.Add(ctx, 1)

	p, ok := pathPoint(ctx)
	if !ok {
		return
	}
	radius, radiusSet, ok := queryDistance(ctx, "radius")
	if !ok {
		return
	}

	id, distance, found := s.nearest(p, radius, radiusSet)
	if !found {
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}
	s.metricFeaturesReturned.Add(ctx, 1)

	w := jwriter.Writer{}
	s.writeFeatureWithDistance(&w, id, distance)
	respond(ctx, &w)
}

// NearestMultipleHandler locates every point of a [[x, y], ...] body. Points
// without a feature in range get null.
func (s *server) NearestMultipleHandler(ctx *fasthttp.RequestCtx) {
	s.metricNearestMultiCallCount.Add(ctx, 1)

	req := reqPointsPool.Get().(*[][2]float64)
	*req = (*req)[:0]
	defer reqPointsPool.Put(req)

	err := unmarshalPointsListFast(ctx.Request.Body(), req)
	if err != nil {
		badRequest(ctx, "failed to parse request: "+err.Error())
		return
	}
	radius, radiusSet, ok := queryDistance(ctx, "radius")
	if !ok {
		return
	}

	s.metricPointsLocated.Add(ctx, int64(len(*req)))

	found := 0
	w := jwriter.Writer{}
	w.RawByte('[')
	for i, p := range *req {
		if i > 0 {
			w.RawByte(',')
		}
		id, distance, ok := s.nearest(orb.Point(p), radius, radiusSet)
		if !ok {
			w.RawString("null")
			continue
		}
		found++
		s.writeFeatureWithDistance(&w, id, distance)
	}
	w.RawByte(']')
	s.metricFeaturesReturned.Add(ctx, int64(found))

	respond(ctx, &w)
}

func (s *server) ContainsHandler(ctx *fasthttp.RequestCtx) {
	s.metricContainsCallCount.Add(ctx, 1)
	s.metricPointsLocated.Add(ctx, 1)

	p, ok := pathPoint(ctx)
	if !ok {
		return
	}

	id, found := s.data.Containing(p)
	if !found {
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}
	s.metricFeaturesReturned.Add(ctx, 1)

	w := jwriter.Writer{}
	s.writeFeature(&w, id)
	respond(ctx, &w)
}

// FeatureHandler returns the full GeoJSON feature, geometry included.
func (s *server) FeatureHandler(ctx *fasthttp.RequestCtx) {
	s.metricFeatureCallCount.Add(ctx, 1)

	idS, _ := ctx.UserValue("id").(string)
	id, err := strconv.Atoi(idS)
	if err != nil {
		badRequest(ctx, "invalid id")
		return
	}
	if id < 0 || id >= s.data.Len() {
		ctx.Response.SetStatusCode(http.StatusNotFound)
		return
	}

	data, err := s.data.Feature(id).MarshalJSON()
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal feature")
		return
	}

	ctx.Response.Header.SetContentType("application/geo+json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(data)
}
