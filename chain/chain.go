package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"evm-staking-indexer/config"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when the node reports that the requested height
	// or transaction does not exist yet.
	ErrNotFound = errors.New("not found")

	// ErrUnexpectedEnvelope is returned by FetchReceipt when the transaction
	// result is not an EVM call or create result. Callers skip such transactions.
	ErrUnexpectedEnvelope = errors.New("unexpected transaction envelope")
)

// Client fetches blocks and receipts from a node. Implementations are
// stateless and safe for concurrent use.
type Client interface {
	FetchBlock(ctx context.Context, height uint64) (*Block, error)
	FetchReceipt(ctx context.Context, tx *Transaction) (*Receipt, error)
}

type Block struct {
	Height       uint64
	Hash         string
	Timestamp    uint64
	Transactions []*Transaction
}

type Transaction struct {
	Hash  string
	Index int
}

type Receipt struct {
	TxHash  string
	Status  uint64
	GasUsed uint64
	Logs    []*Log
}

type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
	Index   uint
}

// NewClient builds the client for the configured backend.
func NewClient(cfg config.ChainConfig) (Client, error) {
	nodeURL, err := cfg.FullNodeURL()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = config.Timeout
	}

	switch strings.ToLower(cfg.Backend) {
	case config.BackendTendermint:
		return NewTendermintClient(nodeURL, timeout), nil
	case config.BackendEth:
		return DialRPCNode(nodeURL, ChainTypeEth, timeout)
	case config.BackendAvax:
		return DialRPCNode(nodeURL, ChainTypeAvax, timeout)
	default:
		return nil, fmt.Errorf("unknown chain backend %q", cfg.Backend)
	}
}

// NewEVMClient dials an Ethereum-style JSON-RPC endpoint for contract reads.
// The avax backend selects the coreth client, anything else go-ethereum.
func NewEVMClient(nodeURL, backend string, timeout time.Duration) (*EVMClient, error) {
	u, err := (config.ChainConfig{NodeURL: nodeURL}).FullNodeURL()
	if err != nil {
		return nil, err
	}

	chainType := ChainTypeEth
	if strings.ToLower(backend) == config.BackendAvax {
		chainType = ChainTypeAvax
	}

	return DialRPCNode(u, chainType, timeout)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

var (
	_ Client = (*TendermintClient)(nil)
	_ Client = (*EVMClient)(nil)
)
