package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

func encodeCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode texts into embedding vectors",
		ArgsUsage: "TEXT...",
		Flags: append(commonModelFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit one JSON object per text instead of aligned output",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			texts := c.Args().Slice()
			if len(texts) == 0 {
				return cli.Exit("error: encode requires at least one TEXT argument", 1)
			}

			m, voc, _, err := loadCheckpoint(LoadConfig())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			enc := json.NewEncoder(os.Stdout)
			for _, text := range texts {
				ids := voc.Encode(text)
				vec, err := m.Encode(ids)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: encode %q: %v", text, err), 1)
				}
				if asJSON {
					if err := enc.Encode(encodeResult{Text: text, Tokens: len(ids), Embedding: vec}); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					continue
				}
				fmt.Printf("%s\n", text)
				fmt.Printf("  tokens:    %d %v\n", len(ids), ids)
				fmt.Printf("  embedding: %s\n", formatVec(vec, 8))
			}
			return nil
		},
	}
}

type encodeResult struct {
	Text      string    `json:"text"`
	Tokens    int       `json:"tokens"`
	Embedding []float64 `json:"embedding"`
}

// formatVec renders up to max elements of v, eliding the rest.
func formatVec(v []float64, max int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if max > 0 && i >= max {
			fmt.Fprintf(&b, " ... +%d more", len(v)-max)
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.4f", x)
	}
	b.WriteByte(']')
	return b.String()
}
