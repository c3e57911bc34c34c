package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/config"
	"evm-staking-indexer/database"
	"evm-staking-indexer/indexer"
	"evm-staking-indexer/logger"
)

var (
	startFlag       = flag.Uint64("start", 0, "Height to start scanning from (default: persisted tip + 1)")
	singleFlag      = flag.Bool("single", false, "Process only the start height and exit")
	intervalFlag    = flag.Duration("interval", 0, "Sleep between polls once caught up")
	concurrencyFlag = flag.Int("concurrency", 0, "Number of heights processed in parallel during catch-up")
	nodeFlag        = flag.String("node", "", "Chain node url")
)

func main() {
	flag.Parse()

	cfg, err := config.BuildConfig()
	if err != nil {
		fmt.Println("Config error: ", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if err := cfg.ValidateScanner(); err != nil {
		fmt.Println("Config error: ", err)
		os.Exit(1)
	}

	config.GlobalConfigCallback.Call(cfg)
	defer logger.SyncFileLogger()

	logger.Info("Running with configuration: chain: %s (%s), database: %s", cfg.Chain.NodeURL, cfg.Chain.Backend, cfg.DB.Database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		logger.Fatal("Scanner error: %s", err)
	}
	logger.Info("Scanner stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.ConnectAndInitialize(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("database connect and initialize: %w", err)
	}

	client, err := chain.NewClient(cfg.Chain)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := indexer.ServeMetrics(ctx, cfg.Metrics.Listen); err != nil {
				logger.Error("Metrics server error: %s", err)
			}
		}()
	}

	store := database.NewStorage(db)
	scanner := indexer.NewScanner(indexer.NewBlockProcessor(client, store), store, cfg.Scanner)

	return scanner.Run(ctx)
}

// applyFlags lets explicitly set command line flags override the file and env.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			cfg.Scanner.StartHeight = *startFlag
		case "single":
			cfg.Scanner.Single = *singleFlag
		case "interval":
			cfg.Scanner.Interval = config.Duration{Duration: *intervalFlag}
		case "concurrency":
			cfg.Scanner.Concurrency = *concurrencyFlag
		case "node":
			cfg.Chain.NodeURL = *nodeFlag
		}
	})
}
