package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	heightNotFoundText = "less than or equal to"
	txNotFoundText     = "not found"
	maxResponseSize    = 64 << 20
)

// EVMTxTag prefixes raw transactions that carry an EVM payload ("evm:").
var EVMTxTag = []byte{0x65, 0x76, 0x6d, 0x3a}

// TendermintClient reads blocks from a Tendermint RPC node and extracts the
// EVM transactions and their logs from the application results.
type TendermintClient struct {
	nodeURL *url.URL
	client  *http.Client
	timeout time.Duration
}

func NewTendermintClient(nodeURL *url.URL, timeout time.Duration) *TendermintClient {
	return &TendermintClient{
		nodeURL: nodeURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (c *TendermintClient) FetchBlock(ctx context.Context, height uint64) (*Block, error) {
	query := url.Values{"height": []string{strconv.FormatUint(height, 10)}}

	var res rpcBlock
	if err := c.get(ctx, "block", query, heightNotFoundText, &res); err != nil {
		return nil, fmt.Errorf("FetchBlock %d: %w", height, err)
	}

	blockHeight, err := strconv.ParseUint(res.Block.Header.Height, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("FetchBlock %d: invalid height %q", height, res.Block.Header.Height)
	}

	block := &Block{
		Height:    blockHeight,
		Hash:      res.BlockID.Hash,
		Timestamp: uint64(res.Block.Header.Time.Unix()),
	}

	for i, encoded := range res.Block.Data.Txs {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("FetchBlock %d: tx %d: %w", height, i, err)
		}
		if !IsEVMTx(raw) {
			continue
		}

		block.Transactions = append(block.Transactions, &Transaction{Hash: TxHash(raw), Index: i})
	}

	return block, nil
}

func (c *TendermintClient) FetchReceipt(ctx context.Context, tx *Transaction) (*Receipt, error) {
	query := url.Values{"hash": []string{"0x" + strings.TrimPrefix(tx.Hash, "0x")}}

	var res rpcTx
	if err := c.get(ctx, "tx", query, txNotFoundText, &res); err != nil {
		return nil, fmt.Errorf("FetchReceipt %s: %w", tx.Hash, err)
	}

	receipt := &Receipt{TxHash: tx.Hash}
	if gasUsed, err := strconv.ParseUint(res.TxResult.GasUsed, 10, 64); err == nil {
		receipt.GasUsed = gasUsed
	}

	if res.TxResult.Data == nil {
		// no logs
		return receipt, nil
	}

	data, err := base64.StdEncoding.DecodeString(*res.TxResult.Data)
	if err != nil {
		return nil, fmt.Errorf("FetchReceipt %s: %w", tx.Hash, ErrUnexpectedEnvelope)
	}

	result, err := decodeContractResult(data)
	if err != nil {
		return nil, fmt.Errorf("FetchReceipt %s: %w", tx.Hash, err)
	}

	if bytes.Contains(result.ExitReason, []byte("Succeed")) {
		receipt.Status = 1
	}

	for i, l := range result.Logs {
		log, err := l.toLog(uint(i))
		if err != nil {
			return nil, fmt.Errorf("FetchReceipt %s: log %d: %w", tx.Hash, i, err)
		}
		receipt.Logs = append(receipt.Logs, log)
	}

	return receipt, nil
}

func (c *TendermintClient) get(ctx context.Context, path string, query url.Values, notFoundText string, out any) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	u := c.nodeURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if strings.Contains(string(body), notFoundText) {
			return ErrNotFound
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body))
	}

	envelope := rpcResponse{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		if strings.Contains(envelope.Error.Data, notFoundText) || strings.Contains(envelope.Error.Message, notFoundText) {
			return ErrNotFound
		}
		return fmt.Errorf("rpc error %d: %s %s", envelope.Error.Code, envelope.Error.Message, envelope.Error.Data)
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// IsEVMTx reports whether a raw Tendermint transaction carries an EVM payload.
func IsEVMTx(raw []byte) bool {
	return len(raw) >= len(EVMTxTag) && bytes.Equal(raw[:len(EVMTxTag)], EVMTxTag)
}

// TxHash is the lowercase hex SHA-256 of the raw transaction bytes, without a 0x prefix.
func TxHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// decodeContractResult tries the Call variant first and falls back to Create.
func decodeContractResult(data []byte) (*evmResult, error) {
	var call callResult
	if err := json.Unmarshal(data, &call); err == nil && call.Call != nil {
		return call.Call, nil
	}

	var create createResult
	if err := json.Unmarshal(data, &create); err == nil && create.Create != nil {
		return create.Create, nil
	}

	return nil, ErrUnexpectedEnvelope
}

func (l evmLog) toLog(index uint) (*Log, error) {
	if !common.IsHexAddress(l.Address) {
		return nil, fmt.Errorf("invalid log address %q: %w", l.Address, ErrUnexpectedEnvelope)
	}

	log := &Log{
		Address: common.HexToAddress(l.Address),
		Data:    []byte(l.Data),
		Index:   index,
	}
	for _, t := range l.Topics {
		topic, err := hex.DecodeString(strings.TrimPrefix(t, "0x"))
		if err != nil || len(topic) != common.HashLength {
			return nil, fmt.Errorf("invalid log topic %q: %w", t, ErrUnexpectedEnvelope)
		}
		log.Topics = append(log.Topics, common.BytesToHash(topic))
	}

	return log, nil
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
