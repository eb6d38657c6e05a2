package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/rectflow/internal/api"
	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/train"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		checkpoint  string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sampler over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address", Value: "127.0.0.1:8080", Destination: &addr},
			&cli.StringFlag{Name: "checkpoint", Aliases: []string{"c"}, Usage: "model.safetensors written by train", Destination: &checkpoint},
			&cli.DurationFlag{Name: "read-timeout", Usage: "read header timeout", Value: 30 * time.Second, Destination: &readTimeout},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			cfg, err := loadConfig(cmd, config.Overrides{
				Addr:       ifSet(cmd, "addr", &addr),
				Checkpoint: ifSet(cmd, "checkpoint", &checkpoint),
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if cfg.Server.Checkpoint == "" {
				return cli.Exit("error: --checkpoint is required unless server.checkpoint is set", 1)
			}

			model, meta, err := train.LoadModel(cfg.Server.Checkpoint, cfg.MLP())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			server := api.NewServer(model, cfg.SampleDefaults(), api.Limits{
				MaxBatch: cfg.Server.MaxBatch,
				MaxSteps: cfg.Server.MaxSteps,
			}, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", cfg.Server.Addr, "checkpoint", cfg.Server.Checkpoint, "run", meta[train.MetaRunID])
			sc := echo.StartConfig{
				Address: cfg.Server.Addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
