package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"evm-staking-indexer/api"
	"evm-staking-indexer/chain"
	"evm-staking-indexer/config"
	"evm-staking-indexer/contracts"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	flag.Parse()

	cfg, err := config.BuildConfig()
	if err != nil {
		fmt.Println("Config error: ", err)
		os.Exit(1)
	}
	if err := cfg.ValidateUpdater(); err != nil {
		fmt.Println("Config error: ", err)
		os.Exit(1)
	}

	config.GlobalConfigCallback.Call(cfg)
	defer logger.SyncFileLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		logger.Fatal("API error: %s", err)
	}
	logger.Info("API stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.ConnectWithRetry(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}

	client, err := chain.NewEVMClient(cfg.Updater.NodeURL, cfg.Chain.Backend, cfg.Chain.Timeout.Duration)
	if err != nil {
		return fmt.Errorf("api node: %w", err)
	}
	if err := chain.WaitForNode(ctx, client); err != nil {
		return fmt.Errorf("api node: %w", err)
	}

	if cfg.Updater.RewardAddress == "" {
		logger.Warn("No reward contract configured, reward and debt routes will fail")
	}

	server := api.NewServer(
		database.NewStorage(db),
		contracts.NewStaking(common.HexToAddress(cfg.Updater.StakingAddress), client),
		contracts.NewReward(common.HexToAddress(cfg.Updater.RewardAddress), client),
		cfg.Chain.Timeout.Duration,
	)

	return api.Serve(ctx, cfg.API.Listen, server.NewRouter())
}
