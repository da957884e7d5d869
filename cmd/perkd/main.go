package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"perkledger/config"
	"perkledger/core"
	"perkledger/eventlog"
	"perkledger/observability/logging"
	"perkledger/rpc"
	"perkledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = strings.TrimSpace(os.Getenv("PERK_ENV"))
	}
	logger := logging.Setup("perkd", env, &logging.Options{
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("Failed to create data directory", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.Open(cfg.StorageBackend, filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ledger := core.NewLedger(db)

	index, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		logger.Error("Failed to open event log", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go index.Follow(ctx, ledger.Bus())

	server := rpc.NewServer(ledger, logger, cfg.RPCTokenEnv, cfg.JWTSecretEnv)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	logger.Info("perkd started",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("backend", cfg.StorageBackend),
		slog.String("data_dir", cfg.DataDir),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
