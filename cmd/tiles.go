package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/royalcat/tilehash/quadtree"
	"github.com/royalcat/tilehash/tiling"
	"github.com/urfave/cli/v3"
)

func tilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "tiles",
		Usage: "inspect tile enumeration orders",
		Commands: []*cli.Command{
			{
				Name:  "around",
				Usage: "list the tiles around a point, nearest first",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "x", Required: true},
					&cli.FloatFlag{Name: "y", Required: true},
					&cli.IntFlag{Name: "distance", Aliases: []string{"d"}, Value: 1, Usage: "maximum distance in tiles"},
					&cli.StringFlag{Name: "metric", Aliases: []string{"m"}, Value: "euclidean", Usage: "euclidean, manhattan or chebyshev"},
					&cli.FloatFlag{Name: "origin-x"},
					&cli.FloatFlag{Name: "origin-y"},
					&cli.FloatFlag{Name: "size", Value: 1, Usage: "tile width and height"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					def, err := tiling.New(cmd.Float("origin-x"), cmd.Float("origin-y"), cmd.Float("size"), cmd.Float("size"))
					if err != nil {
						return err
					}
					metric, err := tiling.ParseDistanceMetric(cmd.String("metric"))
					if err != nil {
						return err
					}
					return writeTilesAround(os.Stdout, def, cmd.Float("x"), cmd.Float("y"), cmd.Int("distance"), metric)
				},
			},
			{
				Name:      "between",
				Usage:     "list the tiles of an inclusive range in quadrant-block order",
				ArgsUsage: "<east-min> <north-min> <east-max> <north-max>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 4 {
						return fmt.Errorf("expected 4 arguments, got %d", cmd.NArg())
					}
					var r [4]int
					for i := range r {
						v, err := strconv.Atoi(cmd.Args().Get(i))
						if err != nil {
							return fmt.Errorf("invalid tile coordinate %q: %w", cmd.Args().Get(i), err)
						}
						r[i] = v
					}
					return writeTilesBetween(os.Stdout, r[0], r[1], r[2], r[3])
				},
			},
		},
	}
}

func writeTilesAround(w io.Writer, def tiling.Definition, x, y float64, distance int, metric tiling.DistanceMetric) error {
	if distance < 0 {
		return fmt.Errorf("distance must be non-negative, got %d", distance)
	}

	center := def.ToTileIndex(x, y)
	for _, t := range def.TileIndexAround(x, y, distance, metric) {
		_, err := fmt.Fprintf(w, "%s\t%g\t%s\n", t, center.Distance(t, metric), def.TileBounds(t))
		if err != nil {
			return err
		}
	}
	return nil
}

func writeTilesBetween(w io.Writer, eastMin, northMin, eastMax, northMax int) error {
	const limit = 1 << 20
	if n := quadtree.Count(eastMin, northMin, eastMax, northMax); n > limit {
		return fmt.Errorf("range has %d tiles, at most %d can be listed", n, limit)
	}

	for t := range quadtree.AllTilesBetween(eastMin, northMin, eastMax, northMax) {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}
