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
	"evm-staking-indexer/contracts"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"
	"evm-staking-indexer/updater"

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

	logger.Info("Running updater: node: %s, staking: %s, interval: %s", cfg.Updater.NodeURL, cfg.Updater.StakingAddress, cfg.Updater.Interval.Duration)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		logger.Fatal("Updater error: %s", err)
	}
	logger.Info("Updater stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// the snapshot table is owned by the scanner, never drop it from here
	dbCfg := cfg.DB
	dbCfg.DropTableAtStart = false

	db, err := database.ConnectAndInitialize(ctx, &dbCfg)
	if err != nil {
		return fmt.Errorf("database connect and initialize: %w", err)
	}

	client, err := chain.NewEVMClient(cfg.Updater.NodeURL, cfg.Chain.Backend, cfg.Chain.Timeout.Duration)
	if err != nil {
		return fmt.Errorf("updater node: %w", err)
	}
	if err := chain.WaitForNode(ctx, client); err != nil {
		return fmt.Errorf("updater node: %w", err)
	}

	staking := contracts.NewStaking(common.HexToAddress(cfg.Updater.StakingAddress), client)
	u := updater.New(database.NewStorage(db), staking, client, cfg.Updater)

	return u.Run(ctx)
}
