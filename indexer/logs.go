package indexer

import (
	"context"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/database"
	"evm-staking-indexer/indexer/abi"
	"evm-staking-indexer/logger"

	"github.com/pkg/errors"
)

// processLogs decodes the logs of one transaction in order and writes every
// recognised event. A malformed staking log drops the rest of the
// transaction's logs without failing the block.
func (p *BlockProcessor) processLogs(ctx context.Context, ref database.TxRef, logs []*chain.Log) error {
	for _, log := range logs {
		event, err := abi.Decode(log.Topics, log.Data)
		if err != nil {
			var decodeErr *abi.DecodeError
			if errors.As(err, &decodeErr) {
				eventsTotal.WithLabelValues(decodeErrorLabel).Inc()
				logger.Error("Block %d tx %s log %d: %s", ref.BlockNum, ref.Tx, log.Index, err)
				return nil
			}
			return err
		}

		if event == nil {
			continue
		}

		if err := p.store.UpsertEvent(ctx, ref, event); err != nil {
			return err
		}
		eventsTotal.WithLabelValues(event.EventName()).Inc()
	}

	return nil
}
