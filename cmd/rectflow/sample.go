package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/imageio"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/tensor"
	"github.com/born-ml/rectflow/internal/train"
)

func sampleCmd() *cli.Command {
	var (
		checkpoint    string
		labels        string
		steps         int
		guidanceScale float64
		seed          int64
		unconditional bool
		output        string
		nrow          int
		dumpJSON      bool
	)

	return &cli.Command{
		Name:  "sample",
		Usage: "Generate images from a trained checkpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "checkpoint", Aliases: []string{"c"}, Usage: "model.safetensors written by train", Required: true, Destination: &checkpoint},
			&cli.StringFlag{Name: "labels", Usage: "comma separated class ids", Value: "0,1,2,3,4,5,6,7,8,9,0,1,2,3,4,5", Destination: &labels},
			&cli.IntFlag{Name: "steps", Usage: "Euler steps", Value: 50, Destination: &steps},
			&cli.Float64Flag{Name: "guidance-scale", Aliases: []string{"cfg"}, Usage: "classifier-free guidance scale", Value: 2.0, Destination: &guidanceScale},
			&cli.Int64Flag{Name: "seed", Usage: "noise seed (-1 = random)", Value: -1, Destination: &seed},
			&cli.BoolFlag{Name: "unconditional", Usage: "sample the null class without guidance", Destination: &unconditional},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output base path (writes <base>.gif and <base>_last.png)", Value: "sample", Destination: &output},
			&cli.IntFlag{Name: "nrow", Usage: "images per grid row", Value: 4, Destination: &nrow},
			&cli.BoolFlag{Name: "json", Usage: "also write the trajectory as <base>.json", Destination: &dumpJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			cfg, err := loadConfig(cmd, config.Overrides{
				Steps:         ifSet(cmd, "steps", &steps),
				GuidanceScale: ifSet(cmd, "guidance-scale", &guidanceScale),
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			model, meta, err := train.LoadModel(checkpoint, cfg.MLP())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("model loaded", "checkpoint", checkpoint, "run", meta[train.MetaRunID], "epoch", meta[train.MetaEpoch])

			ids, err := parseLabels(labels)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --labels: %v", err), 1)
			}
			null := flow.Fill(model.NullClass(), len(ids))
			var cond, uncond flow.Condition = ids, null
			if unconditional {
				cond, uncond = null, nil
			}

			sc := cfg.SampleDefaults()
			sc.Progress = func(step, total int) {
				if step == total || step%10 == 0 {
					log.Debug("sampling", "step", step, "total", total)
				}
			}
			noise := tensor.Randn(model.Config().Example.WithBatch(len(ids)), tensor.NewSource(seed))
			traj, err := flow.Sample(ctx, model, noise, cond, uncond, sc)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: sample: %v", err), 1)
			}

			if err := imageio.SaveTrajectory(output, traj, nrow); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if dumpJSON {
				if err := writeTrajectoryJSON(output+".json", traj); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}
			log.Info("samples written", "gif", output+".gif", "png", output+"_last.png", "steps", sc.Steps, "guidance_scale", sc.GuidanceScale)
			return nil
		},
	}
}

func parseLabels(s string) (flow.Labels, error) {
	var out flow.Labels
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid class id %q", part)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, errors.New("no class ids")
	}
	return out, nil
}

type trajectoryDump struct {
	Shape  []int       `json:"shape"`
	States [][]float64 `json:"states"`
}

func writeTrajectoryJSON(path string, traj flow.Trajectory) error {
	dump := trajectoryDump{States: make([][]float64, len(traj))}
	if final := traj.Final(); final != nil {
		dump.Shape = final.Shape()
	}
	for i, state := range traj {
		dump.States[i] = state.Data()
	}
	b, err := json.Marshal(dump)
	if err != nil {
		return fmt.Errorf("encode trajectory: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}
