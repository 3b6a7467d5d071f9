package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/royalcat/tilehash/dataset"
	"github.com/royalcat/tilehash/internal/telemetry"
	"github.com/royalcat/tilehash/server"
	"github.com/royalcat/tilehash/spatialhash"
	"go.opentelemetry.io/otel"

	_ "net/http/pprof"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"
)

const appName = "tilehash"

func main() {
	app := &cli.Command{
		Name:  appName,
		Usage: "spatial hash proximity index over GeoJSON features",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve search, nearest and containment queries over a GeoJSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "data",
						Aliases:   []string{"d"},
						Usage:     "GeoJSON feature collection, optionally zstd compressed (.zst)",
						Required:  true,
						TakesFile: true,
						Sources:   cli.EnvVars("TILEHASH_DATA"),
					},
					&cli.StringFlag{
						Name:    "listen",
						Value:   ":8080",
						Sources: cli.EnvVars("TILEHASH_LISTEN"),
					},
					&cli.StringFlag{
						Name:    "otel-endpoint",
						Usage:   "OTLP HTTP endpoint, OTEL_* environment variables are used when empty",
						Sources: cli.EnvVars("TILEHASH_OTEL_ENDPOINT"),
					},
					&cli.FloatFlag{
						Name:  "radius",
						Usage: "default search radius of nearest queries",
						Value: 0.01,
					},
					&cli.FloatFlag{
						Name:        "grid",
						Usage:       "grid size of the feature index",
						DefaultText: "estimated",
					},
				},
				Action: serve,
			},
			benchCommand(),
			tilesCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	client, err := telemetry.Setup(ctx, appName, cmd.String("otel-endpoint"))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Shutdown(shutdownCtx)
	}()

	indexOpts := []spatialhash.Option{
		spatialhash.WithMeter(otel.Meter("github.com/royalcat/tilehash/spatialhash")),
	}
	if grid := cmd.Float("grid"); grid > 0 {
		indexOpts = append(indexOpts, spatialhash.WithGridSize(grid))
	}

	slog.Info("Initing dataset")
	data, err := dataset.LoadFile(cmd.String("data"),
		dataset.WithSearchRadius(cmd.Float("radius")),
		dataset.WithIndexOptions(indexOpts...),
	)
	if err != nil {
		return err
	}

	return server.Run(ctx, cmd.String("listen"), data)
}
