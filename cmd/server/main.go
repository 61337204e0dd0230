package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/server"
)

func main() {
	// Parse flags; flags override environment configuration
	port := flag.String("port", "", "Server port (overrides PORT)")
	host := flag.String("host", "", "Bind address (overrides HOST)")
	deps := flag.String("deps", "", "Dependency file path (overrides DEPS_FILE)")
	dev := flag.Bool("dev", false, "Development mode: colored logs, debug level")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *deps != "" {
		cfg.Deps.File = *deps
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
