package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/royalcat/tilehash/dataset"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const MaxBodySize = 32 * 1000 * 1000 // 32MB

var meter = otel.Meter("github.com/royalcat/tilehash/server")

// Run serves the dataset on address until ctx is canceled.
func Run(ctx context.Context, address string, data *dataset.Dataset) error {
	log := slog.Default().With("component", "server")

	s, err := newServer(data)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		ReadTimeout:        time.Second,
		MaxRequestBodySize: MaxBodySize,
		Handler:            s.router().Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "address", address)
		if err := server.ListenAndServe(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("error serving http: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

type server struct {
	data *dataset.Dataset

	// pre-rendered feature objects without the closing brace
	features [][]byte

	metricSearchCallCount       metric.Int64Counter
	metricNearestCallCount      metric.Int64Counter
	metricNearestMultiCallCount metric.Int64Counter
	metricContainsCallCount     metric.Int64Counter
	metricFeatureCallCount      metric.Int64Counter
	metricPointsLocated         metric.Int64Counter
	metricFeaturesReturned      metric.Int64Counter
}

func newServer(data *dataset.Dataset) (*server, error) {
	s := &server{
		data:     data,
		features: make([][]byte, data.Len()),
	}

	for i := range s.features {
		head, err := renderFeature(i, data.Feature(i), data.Box(i))
		if err != nil {
			return nil, fmt.Errorf("error rendering feature %d: %w", i, err)
		}
		s.features[i] = head
	}

	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"http_search_call_total", &s.metricSearchCallCount},
		{"http_nearest_call_total", &s.metricNearestCallCount},
		{"http_nearest_multi_call_total", &s.metricNearestMultiCallCount},
		{"http_contains_call_total", &s.metricContainsCallCount},
		{"http_feature_call_total", &s.metricFeatureCallCount},
		{"points_located_total", &s.metricPointsLocated},
		{"features_returned_total", &s.metricFeaturesReturned},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	return s, nil
}

func (s *server) router() *router.Router {
	r := router.New()
	r.GET("/search/{xmin}/{ymin}/{xmax}/{ymax}", s.SearchHandler)
	r.GET("/nearest/{x}/{y}", s.NearestHandler)
	r.POST("/nearest", s.NearestMultipleHandler)
	r.GET("/contains/{x}/{y}", s.ContainsHandler)
	r.GET("/features/{id}", s.FeatureHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	return r
}

var reqPointsPool = sync.Pool{
	New: func() any {
		return &[][2]float64{}
	},
}
