package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"evm-staking-indexer/boff"
	"evm-staking-indexer/chain"
	"evm-staking-indexer/config"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Processor ingests one height.
type Processor interface {
	ProcessBlock(ctx context.Context, height uint64) error
}

// Scanner drives a Processor over the chain. It first catches up in
// concurrent batches and then follows the chain head one height at a time.
type Scanner struct {
	processor Processor
	store     Store
	params    config.ScannerConfig
	tip       *tipTracker
}

func NewScanner(processor Processor, store Store, params config.ScannerConfig) *Scanner {
	if params.Concurrency < 1 {
		params.Concurrency = 1
	}
	if params.Retries < 1 {
		params.Retries = config.DefaultRetries
	}

	return &Scanner{
		processor: processor,
		store:     store,
		params:    params,
		tip:       &tipTracker{store: store},
	}
}

// Run blocks until ctx is cancelled. In single mode it processes the start
// height once and returns.
func (s *Scanner) Run(ctx context.Context) error {
	start, err := s.startHeight(ctx)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	if s.params.Single {
		return s.single(ctx, start)
	}

	logger.Info("Catching up from block %d with %d workers", start, s.params.Concurrency)
	next, err := s.catchUp(ctx, start)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	logger.Info("Caught up, tailing from block %d", next)
	return s.tail(ctx, next)
}

// startHeight prefers the configured start height, then the block after the
// persisted tip, then the default.
func (s *Scanner) startHeight(ctx context.Context) (uint64, error) {
	tip, err := s.store.GetTip(ctx)
	switch {
	case err == nil:
		s.tip.init(tip)
	case errors.Is(err, database.ErrTipNotFound):
	default:
		return 0, errors.Wrap(err, "GetTip")
	}

	if s.params.StartHeight != 0 {
		return s.params.StartHeight, nil
	}
	if err == nil {
		return tip + 1, nil
	}
	return config.DefaultStartHeight, nil
}

func (s *Scanner) single(ctx context.Context, height uint64) error {
	if err := s.processWithRetry(ctx, height); err != nil {
		return fmt.Errorf("single %d: %w", height, err)
	}

	s.tip.advance(ctx, height)
	logger.Info("Processed block %d", height)

	return nil
}

// catchUp scans batches of 4*concurrency heights until a batch does not
// fully succeed, and returns the first height not covered by a complete batch.
func (s *Scanner) catchUp(ctx context.Context, start uint64) (uint64, error) {
	batchSize := uint64(4 * s.params.Concurrency)

	for {
		startTime := time.Now()

		succeeded, err := s.scanRange(ctx, start, start+batchSize)
		if err != nil {
			return start, err
		}

		if succeeded != batchSize {
			logger.Info("Batch %d-%d: %d of %d blocks processed, stopping catch-up",
				start, start+batchSize-1, succeeded, batchSize)
			return start, nil
		}

		logger.Info("Processed blocks %d to %d in %d milliseconds",
			start, start+batchSize-1, time.Since(startTime).Milliseconds())
		start += batchSize
	}
}

// scanRange processes heights [from, to) with a fixed set of workers fed
// through a bounded queue and returns the number of heights that succeeded.
func (s *Scanner) scanRange(ctx context.Context, from, to uint64) (uint64, error) {
	heights := make(chan uint64, s.params.Concurrency)
	var succeeded atomic.Uint64

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.params.Concurrency; i++ {
		g.Go(func() error {
			for height := range heights {
				err := s.processWithRetry(gCtx, height)
				if err != nil {
					if errors.Is(err, chain.ErrNotFound) {
						logger.Debug("Block %d not found", height)
					} else {
						logger.Error("Block %d: %s", height, err)
					}
					continue
				}

				succeeded.Add(1)
				s.tip.advance(gCtx, height)
			}
			return nil
		})
	}

feed:
	for height := from; height < to; height++ {
		select {
		case heights <- height:
		case <-ctx.Done():
			break feed
		}
	}
	close(heights)

	if err := g.Wait(); err != nil {
		return succeeded.Load(), err
	}

	return succeeded.Load(), ctx.Err()
}

// tail follows the chain head one height at a time, resuming after the
// persisted tip on every iteration.
func (s *Scanner) tail(ctx context.Context, next uint64) error {
	height := next

	for {
		tip, err := s.store.GetTip(ctx)
		switch {
		case err == nil:
			height = max(height, tip+1)
		case errors.Is(err, database.ErrTipNotFound):
		default:
			logger.Error("GetTip: %s", err)
		}

		err = s.processWithRetry(ctx, height)
		switch {
		case err == nil:
			s.tip.advance(ctx, height)
			if height%1000 == 0 {
				logger.Info("Indexer at block %d", height)
			}
			height++
			continue

		case ctx.Err() != nil:
			return ctx.Err()

		case errors.Is(err, chain.ErrNotFound):
			logger.Debug("Up to date, block %d not produced yet", height)

		default:
			logger.Error("Block %d: %s", height, err)
		}

		if err := sleep(ctx, s.params.Interval.Duration); err != nil {
			return err
		}
	}
}

// processWithRetry processes a height with a fixed retry budget. A missing
// height is returned immediately.
func (s *Scanner) processWithRetry(ctx context.Context, height uint64) error {
	_, err := boff.RetryFixed(
		ctx,
		func() (struct{}, error) {
			err := s.processor.ProcessBlock(ctx, height)
			if errors.Is(err, chain.ErrNotFound) {
				return struct{}{}, boff.Permanent(err)
			}
			return struct{}{}, err
		},
		fmt.Sprintf("ProcessBlock %d", height),
		s.params.Retries,
		s.params.RetryInterval.Duration,
	)

	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
