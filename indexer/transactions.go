package indexer

import (
	"context"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/pkg/errors"
)

func (p *BlockProcessor) processTransaction(ctx context.Context, block *chain.Block, tx *chain.Transaction) error {
	receipt, err := p.client.FetchReceipt(ctx, tx)
	if err != nil {
		if errors.Is(err, chain.ErrUnexpectedEnvelope) {
			logger.Debug("Skipping transaction %s in block %d: %s", tx.Hash, block.Height, err)
			return nil
		}
		return err
	}

	ref := database.TxRef{
		Tx:        tx.Hash,
		BlockNum:  block.Height,
		BlockHash: block.Hash,
		Timestamp: block.Timestamp,
	}

	err = p.store.UpsertReceipt(ctx, &database.Receipt{
		Tx:        ref.Tx,
		BlockNum:  ref.BlockNum,
		BlockHash: ref.BlockHash,
		Timestamp: ref.Timestamp,
		Status:    receipt.Status,
		GasUsed:   receipt.GasUsed,
		LogCount:  len(receipt.Logs),
	})
	if err != nil {
		return err
	}

	return p.processLogs(ctx, ref, receipt.Logs)
}
