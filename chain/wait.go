package chain

import (
	"context"

	"evm-staking-indexer/boff"
	"evm-staking-indexer/logger"
)

// HeadReader reports the latest block a node knows about.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// WaitForNode blocks until node answers a head query or ctx is done.
func WaitForNode(ctx context.Context, node HeadReader) error {
	return boff.RetryNoReturn(ctx, func() error {
		head, err := node.BlockNumber(ctx)
		if err != nil {
			return err
		}
		logger.Info("Node reachable, head at block %d", head)
		return nil
	}, "WaitForNode")
}
