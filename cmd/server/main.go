package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/parkinsons-variant-viewer/internal/app"
)

func main() {
	configFile := flag.String("config", "", "config file (default: ./config.yaml)")
	flag.Parse()

	a, err := app.New(*configFile)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	cfg := a.Config.GetServerConfig()
	a.Logger.Infof("Starting Parkinson's Variant Viewer on %s:%d", cfg.Host, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		a.Logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	server, err := a.Server(ctx)
	if err == nil {
		err = server.Start(ctx)
	}
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Server stopped")
}
