package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/exp/mmap"
)

// LoadFile reads a GeoJSON feature collection from name. Files ending in
// .zst are decompressed with zstd.
func LoadFile(name string, opts ...Option) (*Dataset, error) {
	log := loadOptions(opts...).logger
	log.Info("Loading dataset", "file", name)

	file, err := mmap.Open(name)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset file: %w", err)
	}
	defer file.Close()

	return Load(io.NewSectionReader(file, 0, int64(file.Len())), strings.HasSuffix(name, ".zst"), opts...)
}

// Load reads a GeoJSON feature collection from r, zstd compressed when
// compressed is set.
func Load(r io.Reader, compressed bool, opts ...Option) (*Dataset, error) {
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing feature collection: %w", err)
	}

	return New(fc, opts...)
}
