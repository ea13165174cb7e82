package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/pkg/ecf"
)

func listModelsCmd() *cli.Command {
	return &cli.Command{
		Name:    "models",
		Aliases: []string{"ls"},
		Usage:   "List available .ecf checkpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "models-dir",
				Aliases:     []string{"path"},
				Usage:       "directory containing .ecf checkpoints",
				Destination: &modelsDir,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()

			dir := strings.TrimSpace(modelsDir)
			if dir == "" {
				dir = strings.TrimSpace(os.Getenv(envTandemModelsDir))
			}
			if dir == "" {
				dir = strings.TrimSpace(cfg.ModelsDir)
			}
			if dir == "" {
				return cli.Exit(fmt.Sprintf("error: --models-dir is required unless %s is set", envTandemModelsDir), 1)
			}

			models, err := discoverModels(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(models) == 0 {
				fmt.Printf("no checkpoints found in %s\n", dir)
				return nil
			}

			fmt.Printf("Checkpoints in %s:\n\n", dir)
			for _, m := range models {
				name := filepath.Base(m)
				st, err := os.Stat(m)
				if err != nil {
					fmt.Printf("  %s\n", name)
					continue
				}

				desc := ""
				if ef, err := ecf.Open(m); err == nil {
					if info, err := ef.ModelInfo(); err == nil {
						desc = fmt.Sprintf("%s V=%d D=%d H=%d", info.Arch, info.VocabSize, info.EmbedDim, info.HiddenDim)
					}
					_ = ef.Close()
				}

				if desc != "" {
					fmt.Printf("  %-32s %10s  (%s)\n", name, formatBytes(uint64(st.Size())), desc)
				} else {
					fmt.Printf("  %-32s %10s\n", name, formatBytes(uint64(st.Size())))
				}
			}
			fmt.Printf("\n%d checkpoint(s) found\n", len(models))
			return nil
		},
	}
}
