package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BobChen3310/esp32-access-system/internal/config"
	"github.com/BobChen3310/esp32-access-system/internal/console"
	"github.com/BobChen3310/esp32-access-system/internal/session"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(cfg.StateDir)
	ui := console.New(cfg, store, os.Stdin, os.Stdout)

	log.Printf("console: backend %s", cfg.APIBaseURL)
	if err := ui.Run(ctx); err != nil {
		log.Fatalf("console error: %v", err)
	}
}
