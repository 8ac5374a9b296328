// Command starbot serves the school chatbot over HTTP and, optionally, MCP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/starbot/internal/app"
	starhttp "github.com/0xcro3dile/starbot/internal/infrastructure/http"
	"github.com/0xcro3dile/starbot/internal/infrastructure/logger"
	"github.com/0xcro3dile/starbot/internal/infrastructure/mcp"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var reload bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/starbot/config.yaml if not provided)")
	flag.BoolVar(&reload, "ingest", false, "Re-ingest the upload folder before serving")
	flag.Parse()

	boot := logger.New(logger.Config{Level: "info", Pretty: true})
	cfg, err := app.LoadConfig(cfgPath, boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("startup failed")
	}
	log := logger.InitGlobalLogger(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("building app failed")
	}
	defer a.Close()

	if reload {
		if _, err := a.Reload(ctx); err != nil {
			log.Warn().Err(err).Msg("initial ingestion incomplete")
		}
	} else {
		a.Refresh(ctx)
	}

	srv := starhttp.NewServer(starhttp.Deps{
		Chat:     a.Chat,
		Search:   a.Search,
		Feedback: a.Feedback,
		Reload:   starhttp.ReloadFunc(a.Reload),
		Chunks:   a.Store,
		Metrics:  a.Metrics,
		Log:      log,
	}, starhttp.Options{
		Addr:           cfg.Server.Addr(),
		ReadTimeout:    cfg.Server.ReadTimeout(),
		WriteTimeout:   cfg.Server.WriteTimeout(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.LogServerStart(log, cfg.Server.Addr(), "http")
		defer logger.LogServerShutdown(log, "http")
		return srv.Start(ctx)
	})
	if cfg.MCP.Enabled {
		g.Go(func() error {
			tools := mcp.NewTools(a.Chat, a.Search, log)
			return mcp.Serve(ctx, mcp.NewServer(tools, version), cfg.MCP.Addr, cfg.MCP.BaseURL, log)
		})
	}
	if cfg.Ingestion.Watch {
		g.Go(func() error {
			if err := a.Watch(ctx); err != nil {
				log.Error().Err(err).Msg("file watcher stopped")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
