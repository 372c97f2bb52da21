package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"priceScope/internal/chain"
	"priceScope/internal/config"
	"priceScope/internal/dex"
	"priceScope/internal/indexer"
	"priceScope/internal/pricing"
	"priceScope/internal/storage"
	"priceScope/internal/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "pricewatch",
		Short:        "Live spot prices from Uniswap V2 and V3 pool events",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Stream pool events and print derived prices",
		RunE:  runPricewatch,
	}

	runCmd.Flags().String("rpc", "", "RPC URL (ws:// or wss:// subscribes, http(s):// polls)")
	runCmd.Flags().StringSlice("address", nil, "pool addresses to watch (comma-separated, empty means all)")
	runCmd.Flags().String("out", "", "optional JSONL path for priced events")
	runCmd.Flags().String("errors", "", "optional JSONL path for dropped events")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for pools and prices")
	runCmd.Flags().Duration("poll-interval", 4*time.Second, "head polling interval for http endpoints")
	runCmd.Flags().Uint64("batch-size", 100, "max blocks per eth_getLogs call when polling")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPricewatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: chain id: %w", indexer.ErrTransport, err)
	}

	sinks := storage.Multi{storage.NewConsole(cmd.OutOrStdout())}
	var opts pricing.Options
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.Errors != "" {
		opts.Drops = storage.NewJsonlStorage(cfg.Errors)
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		opts.Pools = store
	}

	var source indexer.Source
	if cfg.Streaming() {
		source = indexer.NewSubscription(indexer.SubscriptionConfig{
			Addresses: addresses,
			Topic0:    dex.PriceTopics(),
		}, chainClient, logger)
	} else {
		source = indexer.NewPoller(indexer.PollConfig{
			Addresses:    addresses,
			Topic0:       dex.PriceTopics(),
			Interval:     cfg.PollInterval,
			BatchSize:    cfg.BatchSize,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, chainClient, logger)
	}

	cache := dex.NewPoolMetaCache(dex.NewChainResolver(chainClient, logger), dex.NewTokenMetaCache(), logger)
	dispatcher := pricing.NewDispatcher(cache, sinks, logger, opts)

	logger.Info("pricewatch start",
		zap.String("version", version),
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Bool("streaming", cfg.Streaming()),
		zap.Int("addresses", len(addresses)),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	stats, err := dispatcher.Run(ctx, source)
	if errors.Is(err, context.Canceled) {
		logger.Info("pricewatch shutdown", zap.Int("priced", stats.Priced), zap.Int("dropped", stats.Dropped))
		return nil
	}
	return err
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
