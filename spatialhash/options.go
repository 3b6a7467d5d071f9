package spatialhash

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

const defaultItemsPerTile = 4

type options struct {
	logger *slog.Logger
	meter  metric.Meter

	gridSize    float64
	gridSizeSet bool

	maxTileCount int
	itemsPerTile int

	threshold    int
	thresholdSet bool
}

type Option interface {
	apply(*options)
}

func loadOptions(opts ...Option) options {
	o := options{
		logger:       slog.Default(),
		itemsPerTile: defaultItemsPerTile,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}

func (o options) indexingThreshold(fallback int) int {
	if o.thresholdSet {
		return o.threshold
	}
	return fallback
}

type gridSizeOption float64

func (g gridSizeOption) apply(o *options) {
	o.gridSize = float64(g)
	o.gridSizeSet = true
}

// WithGridSize skips grid size estimation in the factories. A grid so fine
// that one value would span more than MaxTilesPerValue tiles is rejected.
func WithGridSize(size float64) Option {
	return gridSizeOption(size)
}

type maxTileCountOption int

func (n maxTileCountOption) apply(o *options) {
	o.maxTileCount = int(n)
}

// WithEstimatedMaxTileCount presizes the tile map. Capacity hint only.
func WithEstimatedMaxTileCount(n int) Option {
	return maxTileCountOption(n)
}

type itemsPerTileOption int

func (n itemsPerTileOption) apply(o *options) {
	o.itemsPerTile = int(n)
}

// WithEstimatedItemsPerTile presizes new tile buckets. Capacity hint only.
// Default: 4
func WithEstimatedItemsPerTile(n int) Option {
	return itemsPerTileOption(n)
}

type thresholdOption int

func (n thresholdOption) apply(o *options) {
	o.threshold = int(n)
	o.thresholdSet = true
}

// WithIndexingThreshold sets the item count below which the factories return
// no searcher. Default: DefaultIndexingThreshold for linestrings, none for
// ForValues.
func WithIndexingThreshold(n int) Option {
	return thresholdOption(n)
}

type loggerOption struct {
	logger *slog.Logger
}

func (l loggerOption) apply(o *options) {
	o.logger = l.logger
}

// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}

// Logger returns the logger opts resolve to, so packages that wrap an index
// can log alongside it.
func Logger(opts ...Option) *slog.Logger {
	return loadOptions(opts...).logger
}

type meterOption struct {
	meter metric.Meter
}

func (m meterOption) apply(o *options) {
	o.meter = m.meter
}

// WithMeter enables search counters on the given meter.
func WithMeter(meter metric.Meter) Option {
	return meterOption{meter: meter}
}
