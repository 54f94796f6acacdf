package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/quizdoc/internal/api"
	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/config"
	"github.com/dgallion1/quizdoc/internal/pipeline"
	"github.com/dgallion1/quizdoc/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	client := backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout, backend.NewStats(time.Hour))

	var blobs store.Blobs = store.NewMemoryBlobs()
	if cfg.S3Endpoint != "" {
		s3, err := store.NewS3Blobs(store.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Error("blob store init failed", "error", err)
			os.Exit(1)
		}
		blobs = s3
		log.Info("using s3 blob store", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	}

	var results store.Results = store.NewMemoryResults()
	var pg *store.PostgresResults
	if cfg.ResultsDSN != "" {
		connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
		var err error
		pg, err = store.NewPostgresResults(connectCtx, cfg.ResultsDSN)
		connectCancel()
		if err != nil {
			log.Error("results store init failed", "error", err)
			os.Exit(1)
		}
		results = pg
		log.Info("using postgres results store")
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, client, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv, err := api.NewServer(orch, client, blobs, results, log, cfg)
	if err != nil {
		log.Error("server init failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		client.Close()
		if pg != nil {
			pg.Close()
		}
	}()

	log.Info("starting quizdoc", "port", cfg.Port, "backend", cfg.BackendURL, "finalize_mode", cfg.FinalizeMode)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
