package spatialhash

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type searchMetrics struct {
	searches metric.Int64Counter

	tileDriven   metric.AddOption
	bucketDriven metric.AddOption
	empty        metric.AddOption
}

func newSearchMetrics(meter metric.Meter) (*searchMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	searches, err := meter.Int64Counter("spatialhash.searches",
		metric.WithDescription("spatial hash searches by chosen strategy"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search counter: %w", err)
	}

	strategy := func(name string) metric.AddOption {
		return metric.WithAttributeSet(attribute.NewSet(attribute.String("strategy", name)))
	}

	return &searchMetrics{
		searches:     searches,
		tileDriven:   strategy(TileDriven.String()),
		bucketDriven: strategy(BucketDriven.String()),
		empty:        strategy("empty"),
	}, nil
}

func (m *searchMetrics) record(plan QueryPlan) {
	if m == nil {
		return
	}

	opt := m.tileDriven
	switch {
	case plan.Empty:
		opt = m.empty
	case plan.Strategy == BucketDriven:
		opt = m.bucketDriven
	}
	m.searches.Add(context.Background(), 1, opt)
}
