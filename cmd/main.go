/*
Package main is the entry point for the relay chat server.

It is responsible for loading configuration, initializing the global logging system,
wiring the directory/media providers, starting the Hub event loop, setting up the
HTTP server, and gracefully handling operating system interrupt signals (SIGINT,
SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/provider"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("directory_url", cfg.DirectoryURL).
		Strs("media_urls", cfg.MediaURLs).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}

	directory := provider.NewHTTPDirectory(cfg.DirectoryURL, cfg.DirectoryCount, providerClient)

	var media provider.Media
	s3cfg := provider.S3Config{
		BucketName:      cfg.S3BucketName,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}
	if s3cfg.Enabled() {
		s3media, err := provider.NewS3Media(s3cfg)
		if err != nil {
			logx.Fatal(err, "Failed to initialize S3 gallery")
		}
		media = s3media
	} else {
		media = provider.NewHTTPMedia(cfg.MediaURLs, providerClient)
	}

	// Warm the catalogues; provider failures are never fatal to the session engine.
	warmCtx, cancelWarm := context.WithTimeout(ctx, cfg.ProviderTimeout)
	if _, err := media.Refresh(warmCtx); err != nil {
		logx.Warn("Initial media catalogue fetch failed. Continuing with fallback/empty catalogue.", "error", err.Error())
	}
	cancelWarm()

	// Start the Hub event loop
	hub := chat.NewHub()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Hub:       hub,
		Config:    cfg,
		Directory: directory,
		Media:     media,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Relay chat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	stopHub()

	logx.Info("Server gracefully stopped.")
}
