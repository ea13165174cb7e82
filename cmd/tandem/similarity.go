package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func similarityCmd() *cli.Command {
	return &cli.Command{
		Name:      "similarity",
		Usage:     "Compare two texts through both encoder branches",
		ArgsUsage: "TEXT_A TEXT_B",
		Flags:     append(commonModelFlags(), thresholdFlag()),
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) != 2 {
				return cli.Exit("error: similarity requires exactly two TEXT arguments", 1)
			}
			cfg := LoadConfig()
			applyThresholdConfig(c, cfg)

			m, voc, _, err := loadCheckpoint(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			sim, err := m.Similarity(voc.Encode(args[0]), voc.Encode(args[1]))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			verdict := "no"
			if sim >= threshold {
				verdict = "yes"
			}
			fmt.Printf("similarity: %.6f\n", sim)
			fmt.Printf("duplicate:  %s (threshold %.2f)\n", verdict, threshold)
			return nil
		},
	}
}
