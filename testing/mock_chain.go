package testing

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/mux"
)

// MockChain answers the Ethereum JSON-RPC methods used by the indexer,
// the updater and the api from in-memory blocks, receipts and call results.
type MockChain struct {
	mu        sync.Mutex
	lastBlock uint64
	blocks    map[uint64]json.RawMessage
	receipts  map[common.Hash]json.RawMessage
	calls     map[string][]byte
	server    *httptest.Server
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

func NewMockChain() *MockChain {
	m := &MockChain{
		blocks:   make(map[uint64]json.RawMessage),
		receipts: make(map[common.Hash]json.RawMessage),
		calls:    make(map[string][]byte),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", m.ChainMockResponses).Methods(http.MethodPost)
	m.server = httptest.NewServer(r)

	return m
}

func (m *MockChain) URL() string {
	return m.server.URL
}

func (m *MockChain) Close() {
	m.server.Close()
}

// AddBlock stores a block with one transaction per log set and returns the
// transaction hashes in block order.
func (m *MockChain) AddBlock(height, timestamp uint64, txLogs ...[]*types.Log) ([]common.Hash, error) {
	txs := make(types.Transactions, len(txLogs))
	for i := range txLogs {
		txs[i] = types.NewTx(&types.LegacyTx{
			Nonce:    height*1000 + uint64(i),
			GasPrice: big.NewInt(1),
			Gas:      21000,
			Value:    big.NewInt(0),
			V:        big.NewInt(0),
			R:        big.NewInt(0),
			S:        big.NewInt(0),
		})
	}

	header := &types.Header{
		Number:      new(big.Int).SetUint64(height),
		Time:        timestamp,
		Difficulty:  big.NewInt(0),
		GasLimit:    8_000_000,
		UncleHash:   types.EmptyUncleHash,
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
	}
	if len(txs) > 0 {
		header.TxHash = common.BigToHash(new(big.Int).SetUint64(height + 1))
	}

	block, err := marshalBlock(header, txs)
	if err != nil {
		return nil, err
	}

	hashes := make([]common.Hash, len(txs))
	receipts := make(map[common.Hash]json.RawMessage, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()

		receipt := &types.Receipt{
			Type:              types.LegacyTxType,
			Status:            types.ReceiptStatusSuccessful,
			CumulativeGasUsed: 21000,
			TxHash:            tx.Hash(),
			GasUsed:           21000,
			BlockHash:         header.Hash(),
			BlockNumber:       header.Number,
			TransactionIndex:  uint(i),
			Logs:              []*types.Log{},
		}
		for j, l := range txLogs[i] {
			l.TxHash = tx.Hash()
			l.TxIndex = uint(i)
			l.BlockHash = header.Hash()
			l.BlockNumber = height
			l.Index = uint(j)
			receipt.Logs = append(receipt.Logs, l)
		}

		raw, err := json.Marshal(receipt)
		if err != nil {
			return nil, err
		}
		receipts[tx.Hash()] = raw
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[height] = block
	for hash, raw := range receipts {
		m.receipts[hash] = raw
	}
	m.lastBlock = max(m.lastBlock, height)

	return hashes, nil
}

// SetCall makes eth_call return result for calls whose input starts with selector.
func (m *MockChain) SetCall(selector []byte, result []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[hexutil.Encode(selector)] = result
}

func marshalBlock(header *types.Header, txs types.Transactions) (json.RawMessage, error) {
	raw, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	if fields["transactions"], err = json.Marshal(txs); err != nil {
		return nil, err
	}
	fields["uncles"] = json.RawMessage("[]")

	return json.Marshal(fields)
}

func (m *MockChain) ChainMockResponses(writer http.ResponseWriter, request *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil {
		http.Error(writer, "Invalid json", http.StatusBadRequest)
		return
	}

	result, rpcErr := m.dispatch(req)

	response := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		response["error"] = map[string]interface{}{"code": -32000, "message": rpcErr.Error()}
	} else {
		response["result"] = result
	}

	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(response)
}

func (m *MockChain) dispatch(req rpcRequest) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch req.Method {
	case "eth_blockNumber":
		return hexutil.Uint64(m.lastBlock), nil

	case "eth_chainId":
		return hexutil.Uint64(1), nil

	case "eth_getBlockByNumber":
		var number string
		if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &number) != nil {
			return nil, fmt.Errorf("invalid block number")
		}

		height := m.lastBlock
		if number != "latest" {
			h, err := hexutil.DecodeUint64(number)
			if err != nil {
				return nil, err
			}
			height = h
		}

		if block, ok := m.blocks[height]; ok {
			return block, nil
		}
		return nil, nil

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &hash) != nil {
			return nil, fmt.Errorf("invalid transaction hash")
		}

		if receipt, ok := m.receipts[hash]; ok {
			return receipt, nil
		}
		return nil, nil

	case "eth_call":
		var args callArgs
		if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &args) != nil {
			return nil, fmt.Errorf("invalid call")
		}

		input := args.Input
		if len(input) == 0 {
			input = args.Data
		}
		if len(input) < 4 {
			return nil, fmt.Errorf("execution reverted")
		}

		result, ok := m.calls[strings.ToLower(hexutil.Encode(input[:4]))]
		if !ok {
			return nil, fmt.Errorf("execution reverted")
		}
		return hexutil.Bytes(result), nil

	default:
		return nil, fmt.Errorf("method %s not supported", req.Method)
	}
}
