package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/ledger/google"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting tally-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	requireWorkerConfig(cfg, logger)

	journal, err := google.New(context.Background(), google.Config{
		SpreadsheetID:   cfg.LedgerSpreadsheetID,
		SheetName:       cfg.LedgerSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.LedgerSpreadsheetID, "sheet", cfg.LedgerSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(journal)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqpClient.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
			return exporter.HandleEvent(ctx, event)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down tally-worker...")
	cancel()

	// Give the in-flight delivery a moment to finish
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}

// requireWorkerConfig enforces what Validate leaves optional: this worker
// only mirrors events into the ledger, so both ends of the pipe must be
// configured.
func requireWorkerConfig(cfg *config.Config, logger *slog.Logger) {
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for tally-worker")
		os.Exit(1)
	}
	if cfg.LedgerSpreadsheetID == "" {
		logger.Error("LEDGER_SPREADSHEET_ID is required for tally-worker")
		os.Exit(1)
	}
}
