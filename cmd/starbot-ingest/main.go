// Command starbot-ingest converts the upload folder into processed chunks.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/0xcro3dile/starbot/internal/app"
	"github.com/0xcro3dile/starbot/internal/infrastructure/logger"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, dir string
	var summary bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/starbot/config.yaml if not provided)")
	flag.StringVar(&dir, "dir", "", "Folder to ingest (default: ingestion.upload_folder)")
	flag.BoolVar(&summary, "feedback", false, "Print the stored feedback summary and exit")
	flag.Parse()

	boot := logger.New(logger.Config{Level: "info", Pretty: true})
	cfg, err := app.LoadConfig(cfgPath, boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("startup failed")
	}
	if dir != "" {
		cfg.Ingestion.UploadFolder = dir
	}
	log := logger.InitGlobalLogger(logger.Config{Level: cfg.Logging.Level, Pretty: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("building app failed")
	}
	defer a.Close()

	if summary {
		counts, err := a.FeedbackSummary(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reading feedback failed")
			return
		}
		log.Info().Interface("verdicts", counts).Msg("feedback summary")
		return
	}

	n, err := a.Reload(ctx)
	if err != nil {
		log.Error().Err(err).Int("chunks", n).Msg("ingestion finished with errors")
		return
	}
	log.Info().Str("dir", cfg.Ingestion.UploadFolder).Int("chunks", n).Msg("ingestion complete")
}
