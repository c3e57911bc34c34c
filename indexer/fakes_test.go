package indexer

import (
	"context"
	"fmt"
	"sync"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/database"
	"evm-staking-indexer/indexer/abi"
)

type fakeChain struct {
	blocks   map[uint64]*chain.Block
	receipts map[string]*chain.Receipt
	errs     map[string]error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		blocks:   make(map[uint64]*chain.Block),
		receipts: make(map[string]*chain.Receipt),
		errs:     make(map[string]error),
	}
}

func (c *fakeChain) addTx(height uint64, hash string, logs ...*chain.Log) {
	block, ok := c.blocks[height]
	if !ok {
		block = &chain.Block{Height: height, Hash: fmt.Sprintf("0xblock%d", height), Timestamp: 1700000000 + height}
		c.blocks[height] = block
	}
	block.Transactions = append(block.Transactions, &chain.Transaction{Hash: hash, Index: len(block.Transactions)})
	c.receipts[hash] = &chain.Receipt{TxHash: hash, Status: 1, Logs: logs}
}

func (c *fakeChain) FetchBlock(_ context.Context, height uint64) (*chain.Block, error) {
	block, ok := c.blocks[height]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return block, nil
}

func (c *fakeChain) FetchReceipt(_ context.Context, tx *chain.Transaction) (*chain.Receipt, error) {
	if err, ok := c.errs[tx.Hash]; ok {
		return nil, err
	}
	receipt, ok := c.receipts[tx.Hash]
	if !ok {
		return nil, chain.ErrNotFound
	}
	return receipt, nil
}

type delegationKey struct {
	tx        string
	validator string
	delegator string
}

// fakeStore keeps rows in memory keyed the way the database tables are.
type fakeStore struct {
	mu          sync.Mutex
	tip         *uint64
	tipHistory  []uint64
	receipts    map[string]*database.Receipt
	delegations map[delegationKey]*abi.Delegation
	events      []abi.Event
	upsertErr   error
	setTipErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		receipts:    make(map[string]*database.Receipt),
		delegations: make(map[delegationKey]*abi.Delegation),
	}
}

func (s *fakeStore) GetTip(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tip == nil {
		return 0, database.ErrTipNotFound
	}
	return *s.tip, nil
}

func (s *fakeStore) SetTip(_ context.Context, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setTipErr != nil {
		return s.setTipErr
	}
	s.tip = &height
	s.tipHistory = append(s.tipHistory, height)
	return nil
}

func (s *fakeStore) UpsertReceipt(_ context.Context, r *database.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.receipts[r.Tx] = r
	return nil
}

func (s *fakeStore) UpsertEvent(_ context.Context, ref database.TxRef, event abi.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return s.upsertErr
	}
	if d, ok := event.(*abi.Delegation); ok {
		key := delegationKey{ref.Tx, database.HexAddress(d.Validator), database.HexAddress(d.Delegator)}
		s.delegations[key] = d
	}
	s.events = append(s.events, event)
	return nil
}

func (s *fakeStore) currentTip() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tip == nil {
		return 0, false
	}
	return *s.tip, true
}

func (s *fakeStore) history() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]uint64(nil), s.tipHistory...)
}

// fakeProcessor reports heights up to head as processed and everything
// above as not found. fail returns an error for the given attempt of a height.
type fakeProcessor struct {
	mu       sync.Mutex
	head     uint64
	attempts map[uint64]int
	fail     func(height uint64, attempt int) error
}

func newFakeProcessor(head uint64) *fakeProcessor {
	return &fakeProcessor{head: head, attempts: make(map[uint64]int)}
}

func (p *fakeProcessor) ProcessBlock(_ context.Context, height uint64) error {
	p.mu.Lock()
	p.attempts[height]++
	attempt := p.attempts[height]
	head := p.head
	p.mu.Unlock()

	if height > head {
		return chain.ErrNotFound
	}
	if p.fail != nil {
		return p.fail(height, attempt)
	}
	return nil
}

func (p *fakeProcessor) setHead(head uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head = head
}

func (p *fakeProcessor) attemptsFor(height uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attempts[height]
}
