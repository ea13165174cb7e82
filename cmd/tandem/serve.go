package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/api"
	"github.com/tandemml/tandem/internal/cache"
)

func serveCmd() *cli.Command {
	var (
		listen      string
		cachePath   string
		rateLimit   float64
		burst       int64
		readTimeout time.Duration
		modelName   string
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the embeddings and similarity REST API",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "listen",
				Aliases:     []string{"addr"},
				Usage:       "listen address",
				Value:       "127.0.0.1:8321",
				Destination: &listen,
			},
			&cli.StringFlag{
				Name:        "cache",
				Usage:       "path to a SQLite embedding cache (empty = in-memory)",
				Destination: &cachePath,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "max requests per second (0 = unlimited)",
				Destination: &rateLimit,
			},
			&cli.Int64Flag{
				Name:        "burst",
				Usage:       "rate limiter burst size",
				Value:       10,
				Destination: &burst,
			},
			thresholdFlag(),
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "model id reported by the API (default: checkpoint file stem)",
				Destination: &modelName,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyServeConfig(c, cfg, &listen, &cachePath, &rateLimit)

			log, err := setupLogger()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			m, voc, path, err := loadCheckpoint(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if modelName == "" {
				modelName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			var store cache.Store
			if cachePath != "" {
				s, err := cache.OpenSQLite(cachePath, m.Fingerprint())
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: open cache: %v", err), 1)
				}
				store = s
			} else {
				store = cache.NewMemory()
			}
			defer func() { _ = store.Close() }()

			mcfg := m.Config()
			log.Info("model loaded",
				"path", path,
				"vocab", mcfg.VocabSize,
				"embed_dim", mcfg.EmbedDim,
				"hidden_dim", mcfg.HiddenDim,
				"fingerprint", m.Fingerprint(),
			)

			server := api.NewServer(api.Config{
				Model:     m,
				Vocab:     voc,
				ModelName: modelName,
				Threshold: threshold,
				Cache:     store,
				Log:       log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(api.RequestID())
			if rateLimit > 0 {
				e.Use(api.RateLimit(rateLimit, int(burst)))
			}
			server.Register(e)
			log.Info("starting server", "address", listen, "model", modelName)
			sc := echo.StartConfig{
				Address: listen,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
