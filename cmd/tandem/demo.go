package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/api"
	"github.com/tandemml/tandem/internal/model"
	"github.com/tandemml/tandem/internal/vecops"
	"github.com/tandemml/tandem/internal/vocab"
)

const demoCorpus = `the cat sat on the mat
a cat sat on the mat
the dog chased the ball
dogs and cats can nap on the mat`

func demoCmd() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Walk through the encoder pipeline on a toy example",
		Action: func(ctx context.Context, c *cli.Command) error {
			section("L2 Normalization")
			v := []float64{3, 4, 0, 12}
			fmt.Printf("input:      %s\n", formatVec(v, len(v)))
			fmt.Printf("norm:       %.4f\n", vecops.Norm(v))
			u := vecops.Normalize(v)
			fmt.Printf("normalized: %s\n", formatVec(u, len(u)))
			fmt.Printf("unit norm:  %.4f\n", vecops.Norm(u))

			section("Vocabulary")
			voc, err := vocab.Build(strings.NewReader(demoCorpus), 1)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Printf("%d tokens; id %d is %q, id %d is %q\n",
				voc.Size(), vocab.PadID, vocab.PadToken, vocab.UnkID, vocab.UnkToken)
			sample := "the cat sat on the mat"
			fmt.Printf("%q -> %v\n", sample, voc.Encode(sample))

			section("Siamese Encoder")
			m, err := model.New(model.Config{
				VocabSize: voc.Size(),
				EmbedDim:  16,
				HiddenDim: 8,
				Seed:      42,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Println(m.Describe())
			fmt.Println("both branches hold the same weights; a pair runs through them in one pass")

			section("Similarity")
			pairs := [][2]string{
				{"the cat sat on the mat", "a cat sat on the mat"},
				{"the cat sat on the mat", "the dog chased the ball"},
			}
			for _, p := range pairs {
				sim, err := m.Similarity(voc.Encode(p[0]), voc.Encode(p[1]))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				verdict := "distinct"
				if sim >= api.DefaultThreshold {
					verdict = "duplicate"
				}
				fmt.Printf("A: %s\nB: %s\nsimilarity: %.4f -> %s (threshold %.2f)\n\n",
					p[0], p[1], sim, verdict, api.DefaultThreshold)
			}
			fmt.Println("weights are random at this point; train or load a checkpoint for meaningful scores")
			return nil
		},
	}
}
