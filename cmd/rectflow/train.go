package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/train"
)

func trainCmd() *cli.Command {
	var (
		dataset    string
		dataDir    string
		maxSamples int
		epochs     int
		batchSize  int
		lr         float64
		timePolicy string
		seed       int64
		outputDir  string
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train a class-conditional velocity network",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Usage: "mnist, mnist-csv or synthetic", Value: config.DatasetMNIST, Destination: &dataset},
			&cli.StringFlag{Name: "data-dir", Usage: "directory holding the MNIST IDX files", Value: "./data/mnist", Destination: &dataDir},
			&cli.IntFlag{Name: "max-samples", Usage: "truncate the dataset (0 = all)", Destination: &maxSamples},
			&cli.IntFlag{Name: "epochs", Value: 100, Destination: &epochs},
			&cli.IntFlag{Name: "batch-size", Value: 256, Destination: &batchSize},
			&cli.Float64Flag{Name: "lr", Usage: "learning rate", Value: 2e-4, Destination: &lr},
			&cli.StringFlag{Name: "time-policy", Usage: "training time distribution (logit-normal, uniform)", Value: "logit-normal", Destination: &timePolicy},
			&cli.Int64Flag{Name: "seed", Usage: "random seed (-1 = random)", Value: -1, Destination: &seed},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "directory for samples and checkpoints", Value: "./runs", Destination: &outputDir},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			policy, err := flow.ParseTimePolicy(timePolicy)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			cfg, err := loadConfig(cmd, config.Overrides{
				Dataset:    ifSet(cmd, "dataset", &dataset),
				DataDir:    ifSet(cmd, "data-dir", &dataDir),
				MaxSamples: ifSet(cmd, "max-samples", &maxSamples),
				Epochs:     ifSet(cmd, "epochs", &epochs),
				BatchSize:  ifSet(cmd, "batch-size", &batchSize),
				LR:         ifSet(cmd, "lr", &lr),
				TimePolicy: ifSet(cmd, "time-policy", &policy),
				Seed:       ifSet(cmd, "seed", &seed),
				OutputDir:  ifSet(cmd, "output", &outputDir),
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			trainer, err := train.FromConfig(cfg, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			results, err := trainer.Run(ctx)
			if errors.Is(err, context.Canceled) {
				log.Warn("training interrupted", "epochs_done", len(results))
				return nil
			}
			if err != nil {
				return err
			}
			if n := len(results); n > 0 {
				log.Info("training finished", "epochs", n, "final_loss", results[n-1].MeanLoss, "output", cfg.Train.OutputDir)
			}
			return nil
		},
	}
}
