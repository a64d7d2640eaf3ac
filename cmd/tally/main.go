package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tally/internal/amqp"
	"tally/internal/attach"
	"tally/internal/cache"
	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	files, err := attach.NewStore(cfg.UploadDir, cfg.BaseURL, cfg.MaxUploadBytes)
	if err != nil {
		logger.Error("Failed to open attachment store", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	// AMQP is optional: without it mutations still commit, they just are
	// not mirrored to the ledger.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	query := services.NewQueryService(store, files)
	mutations := services.NewMutationService(store, files, amqpClient)
	defer mutations.Close()
	categories := services.NewCategoryService(store, cfg.CategoryCacheSize, cfg.CategoryCacheTTL)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		UploadDir:       cfg.UploadDir,
		DefaultPageSize: int64(cfg.DefaultPageSize),
		MaxPageSize:     int64(cfg.MaxPageSize),
	}, store, query, mutations, categories)
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cache.RunJanitor(ctx, cfg.CategoryCacheTTL, categories)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "upload_dir", cfg.UploadDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
