package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/logger"
)

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		iters      int64
		text       string
	)

	flags := append([]cli.Flag{}, commonModelFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of benchmark runs",
			Value:       3,
			Destination: &benchRuns,
		},
		&cli.Int64Flag{
			Name:        "iters",
			Aliases:     []string{"n"},
			Usage:       "encodes per run",
			Value:       200,
			Destination: &iters,
		},
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "text to encode",
			Value:       "the quick brown fox jumps over the lazy dog",
			Destination: &text,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Measure encode throughput of a checkpoint",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			loadStart := time.Now()
			m, voc, path, err := loadCheckpoint(LoadConfig())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loadDuration := time.Since(loadStart)

			stat, err := os.Stat(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat checkpoint %q: %v", path, err), 1)
			}

			ids := voc.Encode(text)
			if len(ids) == 0 {
				return cli.Exit("error: text tokenizes to an empty sequence", 1)
			}

			fmt.Println("=== Tandem Benchmark ===")
			fmt.Printf("Model:      %s (%s)\n", path, formatBytes(uint64(stat.Size())))
			fmt.Printf("CPUs:       %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("Load:       %s\n", loadDuration.Round(time.Millisecond))
			fmt.Printf("Tokens:     %d per encode\n", len(ids))
			fmt.Printf("Iters:      %d encodes per run\n", iters)
			fmt.Printf("Warmup:     %d runs\n", warmupRuns)
			fmt.Printf("Runs:       %d\n", benchRuns)
			fmt.Println()

			for i := range int(warmupRuns) {
				log.Info("warmup run", "run", i+1)
				for range int(iters) {
					if _, err := m.Encode(ids); err != nil {
						return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
					}
				}
			}

			type runResult struct {
				EPS      float64
				TPS      float64
				Duration time.Duration
			}
			results := make([]runResult, 0, benchRuns)

			for i := range int(benchRuns) {
				log.Info("benchmark run", "run", i+1)
				start := time.Now()
				for range int(iters) {
					if _, err := m.Encode(ids); err != nil {
						return cli.Exit(fmt.Sprintf("error: benchmark run %d: %v", i+1, err), 1)
					}
				}
				elapsed := time.Since(start)
				secs := elapsed.Seconds()
				results = append(results, runResult{
					EPS:      float64(iters) / secs,
					TPS:      float64(iters) * float64(len(ids)) / secs,
					Duration: elapsed,
				})
			}

			fmt.Println("=== Results ===")
			fmt.Printf("%-6s %12s %12s %10s\n", "Run", "Encodes", "Tokens", "Duration")
			fmt.Printf("%-6s %12s %12s %10s\n", "---", "per sec", "per sec", "")

			var sumEPS, sumTPS float64
			for i, r := range results {
				fmt.Printf("%-6d %12.2f %12.2f %10s\n",
					i+1, r.EPS, r.TPS, r.Duration.Round(time.Millisecond))
				sumEPS += r.EPS
				sumTPS += r.TPS
			}

			n := float64(len(results))
			fmt.Printf("\n%-6s %12.2f %12.2f\n", "Avg", sumEPS/n, sumTPS/n)

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))

			return nil
		},
	}
}
