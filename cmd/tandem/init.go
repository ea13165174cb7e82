package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/vocab"
)

func initCmd() *cli.Command {
	var (
		corpusPath string
		outPath    string
		embedDim   int64
		hiddenDim  int64
		seed       int64
		minCount   int64
	)

	return &cli.Command{
		Name:  "init",
		Usage: "Build a vocabulary from a corpus and write a fresh checkpoint",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"vocab"},
				Usage:       "plain-text corpus file the vocabulary is counted from",
				Destination: &corpusPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .ecf path",
				Value:       "model.ecf",
				Destination: &outPath,
			},
			&cli.Int64Flag{
				Name:        "embed-dim",
				Usage:       "embedding width",
				Value:       model.DefaultEmbedDim,
				Destination: &embedDim,
			},
			&cli.Int64Flag{
				Name:        "hidden-dim",
				Usage:       "recurrent state width",
				Value:       model.DefaultHiddenDim,
				Destination: &hiddenDim,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "weight initialisation seed",
				Value:       1,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "min-count",
				Usage:       "minimum corpus occurrences for a token to get an id",
				Value:       1,
				Destination: &minCount,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyLoggingConfig(c, LoadConfig())
			log, err := setupLogger()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			f, err := os.Open(corpusPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open corpus: %v", err), 1)
			}
			voc, err := vocab.Build(f, int(minCount))
			_ = f.Close()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: build vocabulary: %v", err), 1)
			}
			if voc.Size() <= 2 {
				return cli.Exit("error: corpus produced no tokens at or above min-count", 1)
			}
			log.Info("vocabulary built", "corpus", corpusPath, "tokens", voc.Size(), "min_count", minCount)

			m, err := model.New(model.Config{
				VocabSize: voc.Size(),
				EmbedDim:  int(embedDim),
				HiddenDim: int(hiddenDim),
				Seed:      seed,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := m.Save(outPath, voc); err != nil {
				return cli.Exit(fmt.Sprintf("error: save checkpoint: %v", err), 1)
			}

			st, err := os.Stat(outPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat checkpoint: %v", err), 1)
			}
			log.Info("checkpoint written",
				"path", outPath,
				"size", formatBytes(uint64(st.Size())),
				"fingerprint", m.Fingerprint(),
			)
			return nil
		},
	}
}
