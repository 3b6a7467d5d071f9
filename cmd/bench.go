package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fogleman/poissondisc"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/royalcat/tilehash/geomodel"
	"github.com/royalcat/tilehash/internal/stats"
	"github.com/royalcat/tilehash/spatialhash"
	"github.com/sourcegraph/conc/pool"
	"github.com/tidwall/qtree"
	"github.com/urfave/cli/v3"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "benchmark box queries on a poisson-disc point cloud against a quadtree",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "extent", Value: 1000, Usage: "side of the square the points are sampled in"},
			&cli.FloatFlag{Name: "spacing", Value: 1, Usage: "minimum distance between sampled points"},
			&cli.FloatFlag{Name: "grid", DefaultText: "estimated"},
			&cli.IntFlag{Name: "queries", Aliases: []string{"q"}, Value: 100_000},
			&cli.FloatFlag{Name: "query-size", Value: 5, Usage: "maximum side of a query box"},
			&cli.FloatFlag{Name: "tolerance"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"t"}, DefaultText: "max"},
			&cli.BoolFlag{Name: "stats", Usage: "print runtime statistics"},
			&cli.StringFlag{Name: "pprof.listen"},
		},
		Action: bench,
	}
}

type benchConfig struct {
	Extent    float64
	Spacing   float64
	GridSize  float64
	Queries   int
	QuerySize float64
	Tolerance float64
	Threads   int
	Seed      uint64

	Progress io.Writer
	Log      *slog.Logger
}

type benchResult struct {
	Points   int
	GridSize float64
	Stats    spatialhash.Stats

	IndexBuild time.Duration
	IndexQuery time.Duration
	TreeBuild  time.Duration
	TreeQuery  time.Duration

	Hits int64
}

func bench(ctx context.Context, cmd *cli.Command) error {
	log := slog.Default()

	if pprofListen := cmd.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server", "address", pprofListen)
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	threads := cmd.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	var collector *stats.Collector
	if cmd.Bool("stats") {
		var err error
		collector, err = stats.NewCollector(100 * time.Millisecond)
		if err != nil {
			return err
		}
		collector.Start()
	}

	res, err := runBench(ctx, benchConfig{
		Extent:    cmd.Float("extent"),
		Spacing:   cmd.Float("spacing"),
		GridSize:  cmd.Float("grid"),
		Queries:   cmd.Int("queries"),
		QuerySize: cmd.Float("query-size"),
		Tolerance: cmd.Float("tolerance"),
		Threads:   threads,
		Seed:      uint64(time.Now().UnixNano()),
		Progress:  os.Stderr,
		Log:       log.With("threads", threads),
	})
	if err != nil {
		return err
	}

	if err := res.WriteReport(os.Stdout, cmd.Int("queries")); err != nil {
		return err
	}
	if collector != nil {
		fmt.Println()
		return collector.Stop().WriteReport(os.Stdout)
	}
	return nil
}

func runBench(ctx context.Context, cfg benchConfig) (benchResult, error) {
	var res benchResult

	if !(cfg.Spacing > 0) || !(cfg.Extent > 0) {
		return res, fmt.Errorf("extent and spacing must be positive")
	}
	if !(cfg.Tolerance >= 0) {
		return res, fmt.Errorf("tolerance must be non-negative, got %v", cfg.Tolerance)
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}

	cfg.Log.Info("Sampling points", "extent", cfg.Extent, "spacing", cfg.Spacing)
	samples := poissondisc.Sample(0, 0, cfg.Extent, cfg.Extent, cfg.Spacing, 10, nil)
	res.Points = len(samples)

	boxes := make([]geomodel.Box, len(samples))
	ids := make([]int, len(samples))
	for i, p := range samples {
		boxes[i] = geomodel.PointBox(p.X, p.Y)
		ids[i] = i
	}

	opts := []spatialhash.Option{spatialhash.WithLogger(cfg.Log)}
	if cfg.GridSize > 0 {
		opts = append(opts, spatialhash.WithGridSize(cfg.GridSize))
	}

	start := time.Now()
	searcher, err := spatialhash.ForValues(ids, func(i int) geomodel.Box { return boxes[i] }, opts...)
	if err != nil {
		return res, fmt.Errorf("error building spatial hash: %w", err)
	}
	res.IndexBuild = time.Since(start)
	res.GridSize = searcher.GridSize()
	res.Stats = searcher.Stats()

	start = time.Now()
	var tree qtree.QTree
	for i, b := range boxes {
		tree.Insert([2]float64{b.XMin, b.YMin}, [2]float64{b.XMax, b.YMax}, i)
	}
	res.TreeBuild = time.Since(start)

	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	queries := make([]geomodel.Box, cfg.Queries)
	for i := range queries {
		x, y := r.Float64()*cfg.Extent, r.Float64()*cfg.Extent
		queries[i] = geomodel.Box{
			XMin: x, YMin: y,
			XMax: x + r.Float64()*cfg.QuerySize, YMax: y + r.Float64()*cfg.QuerySize,
		}
	}

	cfg.Log.Info("Running queries", "queries", len(queries), "grid_size", res.GridSize)

	var indexHits int64
	res.IndexQuery, indexHits, err = runQueries(ctx, cfg, queries, func(q geomodel.Box) int64 {
		var n int64
		for range searcher.SearchBounded(q, cfg.Tolerance, nil) {
			n++
		}
		return n
	})
	if err != nil {
		return res, err
	}

	var treeHits int64
	res.TreeQuery, treeHits, err = runQueries(ctx, cfg, queries, func(q geomodel.Box) int64 {
		q = q.Expand(cfg.Tolerance)
		var n int64
		tree.Search([2]float64{q.XMin, q.YMin}, [2]float64{q.XMax, q.YMax}, func(_, _ [2]float64, _ interface{}) bool {
			n++
			return true
		})
		return n
	})
	if err != nil {
		return res, err
	}

	if indexHits != treeHits {
		return res, fmt.Errorf("spatial hash found %d values, quadtree found %d", indexHits, treeHits)
	}
	res.Hits = indexHits

	return res, nil
}

const benchChunk = 1024

func runQueries(ctx context.Context, cfg benchConfig, queries []geomodel.Box, query func(geomodel.Box) int64) (time.Duration, int64, error) {
	bar := pb.New(len(queries))
	if cfg.Progress != nil {
		bar.SetWriter(cfg.Progress)
	} else {
		bar.SetWriter(io.Discard)
	}
	bar.Start()
	defer bar.Finish()

	hits := xsync.NewCounter()

	start := time.Now()
	p := pool.New().WithMaxGoroutines(cfg.Threads).WithContext(ctx)
	for lo := 0; lo < len(queries); lo += benchChunk {
		chunk := queries[lo:min(lo+benchChunk, len(queries))]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, q := range chunk {
				hits.Add(query(q))
			}
			bar.Add(len(chunk))
			return nil
		})
	}
	err := p.Wait()

	return time.Since(start), hits.Value(), err
}

func (r benchResult) WriteReport(w io.Writer, queries int) error {
	qps := func(d time.Duration) float64 {
		if d <= 0 {
			return 0
		}
		return float64(queries) / d.Seconds()
	}

	_, err := fmt.Fprintf(w,
		"points:        %d\n"+
			"grid size:     %g\n"+
			"tiles:         %d (max bucket %d)\n"+
			"hits:          %d\n"+
			"spatial hash:  build %s, query %s (%.0f q/s)\n"+
			"quadtree:      build %s, query %s (%.0f q/s)\n",
		r.Points,
		r.GridSize,
		r.Stats.Tiles, r.Stats.MaxBucket,
		r.Hits,
		r.IndexBuild, r.IndexQuery, qps(r.IndexQuery),
		r.TreeBuild, r.TreeQuery, qps(r.TreeQuery),
	)
	return err
}
