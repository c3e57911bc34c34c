package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	avxClient "github.com/ava-labs/coreth/ethclient"
	"github.com/ava-labs/coreth/interfaces"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethClient "github.com/ethereum/go-ethereum/ethclient"

	avxTypes "github.com/ava-labs/coreth/core/types"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

// ChainType is an internal type used to differentiate between different
// types of EVM-compatible chains.
type ChainType int

const (
	ChainTypeAvax ChainType = iota + 1 // Add 1 to skip 0 - avoids the zero value defaulting to Avax
	ChainTypeEth
)

// EVMClient talks to an Ethereum-style JSON-RPC node where receipts carry the
// logs directly.
type EVMClient struct {
	chain   ChainType
	eth     *ethClient.Client
	avx     avxClient.Client
	timeout time.Duration
}

func DialRPCNode(nodeURL *url.URL, chainType ChainType, timeout time.Duration) (*EVMClient, error) {
	c := &EVMClient{chain: chainType, timeout: timeout}
	var err error

	switch c.chain {
	case ChainTypeAvax:
		c.avx, err = avxClient.Dial(nodeURL.String())
	case ChainTypeEth:
		c.eth, err = ethClient.Dial(nodeURL.String())
	default:
		return nil, errors.New("invalid chain")
	}
	if err != nil {
		return nil, fmt.Errorf("DialRPCNode: %w", err)
	}

	return c, nil
}

func (c *EVMClient) FetchBlock(ctx context.Context, height uint64) (*Block, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	number := new(big.Int).SetUint64(height)

	switch c.chain {
	case ChainTypeAvax:
		b, err := c.avx.BlockByNumber(ctx, number)
		if err != nil {
			return nil, classifyEVMError(err, "avx.BlockByNumber")
		}
		block := &Block{Height: b.NumberU64(), Hash: b.Hash().Hex(), Timestamp: b.Time()}
		for i, tx := range b.Transactions() {
			block.Transactions = append(block.Transactions, &Transaction{Hash: txHash(tx.Hash()), Index: i})
		}
		return block, nil

	case ChainTypeEth:
		b, err := c.eth.BlockByNumber(ctx, number)
		if err != nil {
			return nil, classifyEVMError(err, "eth.BlockByNumber")
		}
		block := &Block{Height: b.NumberU64(), Hash: b.Hash().Hex(), Timestamp: b.Time()}
		for i, tx := range b.Transactions() {
			block.Transactions = append(block.Transactions, &Transaction{Hash: txHash(tx.Hash()), Index: i})
		}
		return block, nil

	default:
		return nil, errors.New("invalid chain")
	}
}

func (c *EVMClient) FetchReceipt(ctx context.Context, tx *Transaction) (*Receipt, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	hash := common.HexToHash(tx.Hash)

	switch c.chain {
	case ChainTypeAvax:
		r, err := c.avx.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, classifyEVMError(err, "avx.TransactionReceipt")
		}
		receipt := &Receipt{TxHash: tx.Hash, Status: r.Status, GasUsed: r.GasUsed}
		for _, l := range r.Logs {
			receipt.Logs = append(receipt.Logs, logFromAvax(l))
		}
		return receipt, nil

	case ChainTypeEth:
		r, err := c.eth.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, classifyEVMError(err, "eth.TransactionReceipt")
		}
		receipt := &Receipt{TxHash: tx.Hash, Status: r.Status, GasUsed: r.GasUsed}
		for _, l := range r.Logs {
			receipt.Logs = append(receipt.Logs, logFromEth(l))
		}
		return receipt, nil

	default:
		return nil, errors.New("invalid chain")
	}
}

// BlockNumber returns the latest block number known to the node.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	switch c.chain {
	case ChainTypeAvax:
		return c.avx.BlockNumber(ctx)
	case ChainTypeEth:
		return c.eth.BlockNumber(ctx)
	default:
		return 0, errors.New("invalid chain")
	}
}

// CallContract executes a read-only call at blockNumber, or at the latest
// block when blockNumber is nil.
func (c *EVMClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	switch c.chain {
	case ChainTypeAvax:
		return c.avx.CallContract(ctx, interfaces.CallMsg{
			From:     msg.From,
			To:       msg.To,
			Gas:      msg.Gas,
			GasPrice: msg.GasPrice,
			Value:    msg.Value,
			Data:     msg.Data,
		}, blockNumber)
	case ChainTypeEth:
		return c.eth.CallContract(ctx, msg, blockNumber)
	default:
		return nil, errors.New("invalid chain")
	}
}

func classifyEVMError(err error, call string) error {
	if errors.Is(err, ethereum.NotFound) || errors.Is(err, interfaces.NotFound) {
		return fmt.Errorf("%s: %w", call, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", call, err)
}

func txHash(h common.Hash) string {
	return strings.ToLower(h.Hex())
}

func logFromEth(l *ethTypes.Log) *Log {
	return &Log{Address: l.Address, Topics: l.Topics, Data: l.Data, Index: l.Index}
}

func logFromAvax(l *avxTypes.Log) *Log {
	return &Log{Address: l.Address, Topics: l.Topics, Data: l.Data, Index: l.Index}
}
