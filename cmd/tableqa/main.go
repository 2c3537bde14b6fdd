package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/spektr-org/tableqa/config"
	"github.com/spektr-org/tableqa/console"
	"github.com/spektr-org/tableqa/dispatch"
	"github.com/spektr-org/tableqa/loader"
	"github.com/spektr-org/tableqa/logging"
	"github.com/spektr-org/tableqa/model"
)

// ============================================================================
// TABLEQA CONSOLE — Ask questions about local tables
// ============================================================================
// No flags. Settings come from tableqa.yaml (or the file named by
// TABLEQA_CONFIG) and TABLEQA_* environment variables.
// ============================================================================

func main() {
	cfg, err := config.Load(os.Getenv("TABLEQA_CONFIG"))
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	// ── Model: loaded once, shared by every query ─────────────────────────
	handle, err := model.Load(cfg.Model)
	if err != nil {
		log.WithError(err).Fatal("❌ unable to load model")
	}
	log.WithField("model", handle.Name()).Info("🤖 model ready")

	d := dispatch.New(handle, handle.MaxLength(), dispatch.WithLogger(log))
	c := console.New(os.Stdin, os.Stdout, loader.New(log), d, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr)
		log.WithError(err).Error("❌ session ended")
		os.Exit(1)
	}
}
