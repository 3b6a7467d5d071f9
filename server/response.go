package server

import (
	"encoding/json"
	"net/http"

	"github.com/mailru/easyjson/jwriter"
	"github.com/paulmach/orb/geojson"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/valyala/fasthttp"
)

// renderFeature writes the response object of a feature up to, but not
// including, the closing brace so that per request fields can follow.
func renderFeature(id int, f *geojson.Feature, box geomodel.Box) ([]byte, error) {
	w := jwriter.Writer{}

	w.RawString(`{"id":`)
	w.Int(id)
	if f.ID != nil {
		w.RawString(`,"feature_id":`)
		w.Raw(json.Marshal(f.ID))
	}
	w.RawString(`,"type":`)
	w.String(f.Geometry.GeoJSONType())
	w.RawString(`,"bbox":[`)
	w.Float64(box.XMin)
	w.RawByte(',')
	w.Float64(box.YMin)
	w.RawByte(',')
	w.Float64(box.XMax)
	w.RawByte(',')
	w.Float64(box.YMax)
	w.RawString(`],"properties":`)
	if len(f.Properties) == 0 {
		w.RawString(`{}`)
	} else {
		w.Raw(json.Marshal(f.Properties))
	}

	return w.BuildBytes()
}

func (s *server) writeFeature(w *jwriter.Writer, id int) {
	w.Buffer.AppendBytes(s.features[id])
	w.RawByte('}')
}

func (s *server) writeFeatureWithDistance(w *jwriter.Writer, id int, distance float64) {
	w.Buffer.AppendBytes(s.features[id])
	w.RawString(`,"distance":`)
	w.Float64(distance)
	w.RawByte('}')
}

func respond(ctx *fasthttp.RequestCtx, w *jwriter.Writer) {
	data, err := w.BuildBytes()
	if err != nil {
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to marshal response")
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(data)
}

func badRequest(ctx *fasthttp.RequestCtx, msg string) {
	ctx.Response.SetStatusCode(http.StatusBadRequest)
	ctx.Response.SetBodyString(msg)
}
