// Command blobgate serves the storage proxy.
//
// Run with:
//
//	blobgate -config blobgate.yaml
//	BLOBGATE_STORE_PROVIDER=memory BLOBGATE_API_TOKEN=dev blobgate
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/blobgate/internal/config"
	"github.com/koustreak/blobgate/internal/filestore/provider"
	"github.com/koustreak/blobgate/internal/logger"
	"github.com/koustreak/blobgate/internal/proxy"
)

func main() {
	configPath := flag.String("config", os.Getenv("BLOBGATE_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err.Error())
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx := context.Background()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := provider.Open(connectCtx, &cfg.Store)
	cancel()
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	defer store.Close()

	if cfg.Auth.APIToken == "" {
		log.Warn("auth.api_token is empty: every request is accepted")
	}

	handler := proxy.New(store, proxy.Options{
		APIToken:       cfg.Auth.APIToken,
		ListLimit:      cfg.Proxy.ListLimit,
		MaxUploadBytes: cfg.Proxy.MaxUploadBytes,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.InfoWith("server listening", map[string]interface{}{
			"addr":  cfg.Server.Addr,
			"store": string(cfg.Store.Provider),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("forced shutdown: %v", err)
		return
	}

	log.Info("server stopped")
}
