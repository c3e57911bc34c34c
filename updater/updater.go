package updater

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"evm-staking-indexer/boff"
	"evm-staking-indexer/config"
	"evm-staking-indexer/contracts"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	pkgerrors "github.com/pkg/errors"
)

type Store interface {
	ValidatorList(ctx context.Context) ([]string, error)
	UpsertValidatorSnapshot(ctx context.Context, v *database.Validator) error
}

// Staking reads validator state; *contracts.Staking satisfies it.
type Staking interface {
	Validators(ctx context.Context, validator common.Address) (*contracts.ValidatorData, error)
	ValidatorStatus(ctx context.Context, validator common.Address) (*contracts.ValidatorStatus, error)
}

type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Updater periodically snapshots the contract state of every validator
// that ever staked.
type Updater struct {
	store    Store
	staking  Staking
	chain    BlockNumberReader
	interval time.Duration
	pool     pond.Pool
}

func New(store Store, staking Staking, chain BlockNumberReader, params config.UpdaterConfig) *Updater {
	workers := params.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	return &Updater{
		store:    store,
		staking:  staking,
		chain:    chain,
		interval: params.Interval.Duration,
		pool:     pond.NewPool(workers),
	}
}

// Run updates the snapshot every interval until ctx is cancelled.
func (u *Updater) Run(ctx context.Context) error {
	defer u.pool.StopAndWait()

	for {
		blockNum, failed, err := u.Update(ctx)
		switch {
		case err != nil:
			logger.Error("Update validators error: %s", err)
		case blockNum > 0:
			logger.Info("Update validators at block %d complete, %d failed", blockNum, failed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.interval):
		}
	}
}

// Update snapshots every known validator at the current block and returns
// that block number with the count of validators that could not be read.
func (u *Updater) Update(ctx context.Context) (uint64, int, error) {
	validators, err := u.store.ValidatorList(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(validators) == 0 {
		return 0, 0, nil
	}

	blockNum, err := boff.RetryWithMaxElapsed(ctx, func() (uint64, error) {
		return u.chain.BlockNumber(ctx)
	}, "BlockNumber")
	if err != nil {
		return 0, 0, pkgerrors.Wrap(err, "BlockNumber")
	}

	var failed atomic.Int64
	group := u.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, v := range validators {
		if !common.IsHexAddress(v) {
			logger.Warn("Skipping invalid validator address %q", v)
			failed.Add(1)
			continue
		}
		address := common.HexToAddress(v)

		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			if err := u.updateValidator(groupCtx, blockNum, address); err != nil {
				logger.Error("Update validator %s: %s", address.Hex(), err)
				failed.Add(1)
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return blockNum, int(failed.Load()), err
	}

	return blockNum, int(failed.Load()), ctx.Err()
}

// updateValidator writes one snapshot row. A failed status read still
// writes the row with the status columns zeroed.
func (u *Updater) updateValidator(ctx context.Context, blockNum uint64, address common.Address) error {
	data, err := u.staking.Validators(ctx, address)
	if err != nil {
		return err
	}

	row := &database.Validator{
		BlockNum:           blockNum,
		Validator:          database.HexAddress(address),
		Staker:             database.HexAddress(data.Staker),
		PublicKey:          hexutil.Encode(data.PublicKey),
		PublicKeyType:      data.Ty,
		Rate:               database.NewUint256(database.BigToDecimal(data.Rate)),
		Power:              database.NewUint256(database.BigToDecimal(data.Power)),
		TotalUnboundAmount: database.NewUint256(database.BigToDecimal(data.TotalUnboundAmount)),
		PunishRate:         database.NewUint256(database.BigToDecimal(data.PunishRate)),
	}
	if data.BeginBlock != nil && data.BeginBlock.IsUint64() {
		row.BeginBlock = data.BeginBlock.Uint64()
	}

	status, err := u.staking.ValidatorStatus(ctx, address)
	if err != nil {
		logger.Error("Get status of validator %s: %s", address.Hex(), err)
	} else {
		row.Active = status.IsActive
		row.Jailed = status.Jailed
		row.UnjailTime = status.UnjailDatetime
		row.ShouldVote = status.ShouldVote
		row.Voted = status.Voted
	}

	return u.store.UpsertValidatorSnapshot(ctx, row)
}
