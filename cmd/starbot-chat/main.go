// Command starbot-chat is an interactive terminal chat with the knowledge base.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/0xcro3dile/starbot/internal/app"
	"github.com/0xcro3dile/starbot/internal/infrastructure/logger"
	"github.com/0xcro3dile/starbot/internal/infrastructure/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, scope, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/starbot/config.yaml if not provided)")
	flag.StringVar(&scope, "school", "", "Restrict answers to one school or campus")
	flag.StringVar(&logPath, "log", "", "Write logs to this file (default: discard)")
	flag.Parse()

	boot := logger.New(logger.Config{Level: "warn", Pretty: true, Output: os.Stderr})
	cfg, err := app.LoadConfig(cfgPath, boot)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	log := logger.InitGlobalLogger(logger.Config{Level: cfg.Logging.Level, Output: out})

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	a.Refresh(ctx)

	m := tui.New(a.Chat, scope, cfg.Generation.Timeout()*2)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
	}
}
