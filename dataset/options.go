package dataset

import (
	"log/slog"

	"github.com/royalcat/tilehash/nearest"
	"github.com/royalcat/tilehash/spatialhash"
)

type options struct {
	logger       *slog.Logger
	searchRadius float64
	index        []spatialhash.Option
}

type Option interface {
	apply(*options)
}

func loadOptions(opts ...Option) options {
	options := options{
		logger:       slog.Default(),
		searchRadius: 0.01,
	}
	for _, o := range opts {
		o.apply(&options)
	}
	return options
}

// indexOptions are the spatial hash options with the dataset logger first,
// so an explicit spatialhash.WithLogger still wins.
func (o options) indexOptions() []spatialhash.Option {
	return append([]spatialhash.Option{spatialhash.WithLogger(o.logger)}, o.index...)
}

func (o options) locatorOptions() []nearest.Option {
	return []nearest.Option{
		nearest.WithLogger(o.logger),
		nearest.WithSearchRadius(o.searchRadius),
	}
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

type searchRadius float64

func (r searchRadius) apply(o *options) {
	o.searchRadius = float64(r)
}

// WithSearchRadius sets the radius used by Nearest. Default: 0.01
func WithSearchRadius(radius float64) Option {
	return searchRadius(radius)
}

type indexOption []spatialhash.Option

func (i indexOption) apply(o *options) {
	o.index = append(o.index, i...)
}

// WithIndexOptions passes options to the spatial hashes built over the
// features and the polygon borders.
func WithIndexOptions(opts ...spatialhash.Option) Option {
	return indexOption(opts)
}
