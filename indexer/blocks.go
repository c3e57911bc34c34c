package indexer

import (
	"context"
	"time"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/logger"

	"github.com/pkg/errors"
)

// BlockProcessor ingests the staking events of a single height. A failed
// height may be processed again since every write is an upsert.
type BlockProcessor struct {
	client chain.Client
	store  Store
}

func NewBlockProcessor(client chain.Client, store Store) *BlockProcessor {
	return &BlockProcessor{client: client, store: store}
}

// ProcessBlock returns an error wrapping chain.ErrNotFound when the height
// does not exist yet. Any other error means the height should be retried.
func (p *BlockProcessor) ProcessBlock(ctx context.Context, height uint64) error {
	startTime := time.Now()

	err := p.processBlock(ctx, height)
	switch {
	case err == nil:
		blocksProcessed.WithLabelValues(resultOK).Inc()
		blockDuration.Observe(time.Since(startTime).Seconds())
	case errors.Is(err, chain.ErrNotFound):
		blocksProcessed.WithLabelValues(resultNotFound).Inc()
	default:
		blocksProcessed.WithLabelValues(resultError).Inc()
	}

	return err
}

func (p *BlockProcessor) processBlock(ctx context.Context, height uint64) error {
	block, err := p.client.FetchBlock(ctx, height)
	if err != nil {
		return errors.Wrapf(err, "ProcessBlock %d", height)
	}

	for _, tx := range block.Transactions {
		if err := p.processTransaction(ctx, block, tx); err != nil {
			return errors.Wrapf(err, "ProcessBlock %d", height)
		}
	}

	if len(block.Transactions) > 0 {
		logger.Debug("Processed block %d with %d transactions", height, len(block.Transactions))
	}

	return nil
}
