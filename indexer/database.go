package indexer

import (
	"context"
	"sync"

	"evm-staking-indexer/database"
	"evm-staking-indexer/indexer/abi"
	"evm-staking-indexer/logger"
)

// Store is the part of the storage gateway the scanner writes through.
type Store interface {
	GetTip(ctx context.Context) (uint64, error)
	SetTip(ctx context.Context, height uint64) error
	UpsertReceipt(ctx context.Context, r *database.Receipt) error
	UpsertEvent(ctx context.Context, ref database.TxRef, event abi.Event) error
}

// tipTracker persists the tip only when a height above every previously
// written one completes, so the stored tip never decreases.
type tipTracker struct {
	mu    sync.Mutex
	store Store
	max   uint64
	set   bool
}

func (t *tipTracker) init(height uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.max = height
	t.set = true
}

func (t *tipTracker) advance(ctx context.Context, height uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.set && height <= t.max {
		return
	}

	if err := t.store.SetTip(ctx, height); err != nil {
		logger.Error("SetTip %d: %s", height, err)
		return
	}

	t.max = height
	t.set = true
	tipHeight.Set(float64(height))
}
