package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whisper-relay/internal/config"
	"whisper-relay/internal/crash"
	"whisper-relay/internal/httpapi"
	"whisper-relay/internal/logger"
	"whisper-relay/internal/presence"
	"whisper-relay/internal/relay"
	"whisper-relay/internal/service"
	"whisper-relay/internal/storage"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Wire the service layer over a single presence directory
	broadcaster := presence.NewBroadcaster()
	svcs := service.Initialize(cfg, broadcaster)

	// Start the expiry sweeper on its own schedule
	svcs.Sweeper.Start()

	// Assemble the websocket relay and the HTTP API on one mux
	handler := relay.NewHandler(svcs, broadcaster)
	wsServer := relay.NewServer(handler, broadcaster, cfg.Relay)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WSPath, wsServer)
	httpapi.New(svcs).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Infof("Listening on %s (websocket path %s)", cfg.Server.ListenAddr, cfg.Server.WSPath)
		var err error
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	svcs.Sweeper.Stop()

	// Gracefully shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("HTTP server shutdown error: %v", err)
	}

	logger.Infof("Server gracefully stopped")
}
