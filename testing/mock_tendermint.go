package testing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
)

// MockTendermint serves the /block and /tx endpoints of a Tendermint RPC
// node from memory.
type MockTendermint struct {
	mu      sync.Mutex
	latest  uint64
	blocks  map[uint64]tmBlock
	results map[string]tmTxResult
	server  *httptest.Server
}

type tmBlock struct {
	hash string
	time time.Time
	txs  [][]byte
}

type tmTxResult struct {
	height uint64
	data   []byte
}

// EVMLog is a log as it appears in the EVM call result of a transaction.
type EVMLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

func NewMockTendermint() *MockTendermint {
	m := &MockTendermint{
		blocks:  make(map[uint64]tmBlock),
		results: make(map[string]tmTxResult),
	}

	r := mux.NewRouter()
	r.HandleFunc("/block", m.handleBlock).Methods(http.MethodGet)
	r.HandleFunc("/tx", m.handleTx).Methods(http.MethodGet)
	m.server = httptest.NewServer(r)

	return m
}

func (m *MockTendermint) URL() string {
	return m.server.URL
}

func (m *MockTendermint) Close() {
	m.server.Close()
}

// AddBlock registers a block made of the given raw transactions. Heights above
// the highest added block are reported as not yet produced.
func (m *MockTendermint) AddBlock(height uint64, blockTime time.Time, txs ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[height] = tmBlock{
		hash: fmt.Sprintf("%064X", height),
		time: blockTime,
		txs:  txs,
	}
	m.latest = max(m.latest, height)
}

// SetCallResult stores a successful EVM call result carrying logs for the
// transaction with the given hash, with or without a 0x prefix.
func (m *MockTendermint) SetCallResult(hash string, height uint64, logs ...EVMLog) {
	evmLogs := make([]map[string]interface{}, len(logs))
	for i, l := range logs {
		topics := make([]string, len(l.Topics))
		for j, t := range l.Topics {
			topics[j] = t.Hex()
		}
		data := make([]int, len(l.Data))
		for j, b := range l.Data {
			data[j] = int(b)
		}
		evmLogs[i] = map[string]interface{}{
			"address": strings.ToLower(l.Address.Hex()),
			"topics":  topics,
			"data":    data,
		}
	}

	result, _ := json.Marshal(map[string]interface{}{
		"Call": map[string]interface{}{
			"exit_reason": map[string]string{"Succeed": "Returned"},
			"value":       []int{},
			"used_gas":    "21000",
			"logs":        evmLogs,
		},
	})

	m.SetRawResult(hash, height, result)
}

// SetRawResult stores the undecoded tx_result.data of a transaction. A nil
// result is served as a transaction without data.
func (m *MockTendermint) SetRawResult(hash string, height uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[strings.ToLower(strings.TrimPrefix(hash, "0x"))] = tmTxResult{height: height, data: data}
}

func (m *MockTendermint) handleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.URL.Query().Get("height"), 10, 64)
	if err != nil {
		writeRPCError(w, http.StatusInternalServerError, "invalid height")
		return
	}

	m.mu.Lock()
	block := m.blocks[height]
	latest := m.latest
	m.mu.Unlock()

	if height > latest {
		writeRPCError(w, http.StatusInternalServerError, fmt.Sprintf(
			"height %d must be less than or equal to the current blockchain height %d", height, latest,
		))
		return
	}

	if block.hash == "" {
		block.hash = fmt.Sprintf("%064X", height)
	}

	txs := make([]string, len(block.txs))
	for i, tx := range block.txs {
		txs[i] = base64.StdEncoding.EncodeToString(tx)
	}

	writeRPCResult(w, map[string]interface{}{
		"block_id": map[string]interface{}{"hash": block.hash},
		"block": map[string]interface{}{
			"header": map[string]interface{}{
				"chain_id": "mock",
				"height":   strconv.FormatUint(height, 10),
				"time":     block.time.UTC().Format(time.RFC3339Nano),
			},
			"data": map[string]interface{}{"txs": txs},
		},
	})
}

func (m *MockTendermint) handleTx(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("hash")
	if !strings.HasPrefix(query, "0x") {
		writeRPCError(w, http.StatusInternalServerError, fmt.Sprintf("invalid hash %q: expected 0x prefix", query))
		return
	}
	hash := strings.ToLower(strings.TrimPrefix(query, "0x"))

	m.mu.Lock()
	result, ok := m.results[hash]
	m.mu.Unlock()

	if !ok {
		writeRPCError(w, http.StatusInternalServerError, fmt.Sprintf("tx (%s) not found", hash))
		return
	}

	var data interface{}
	if result.data != nil {
		data = base64.StdEncoding.EncodeToString(result.data)
	}

	writeRPCResult(w, map[string]interface{}{
		"hash":   strings.ToUpper(hash),
		"height": strconv.FormatUint(result.height, 10),
		"index":  0,
		"tx_result": map[string]interface{}{
			"code":    0,
			"data":    data,
			"log":     "",
			"gasUsed": "21000",
		},
	})
}

func writeRPCResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      -1,
		"result":  result,
	})
}

func writeRPCError(w http.ResponseWriter, status int, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      -1,
		"error": map[string]interface{}{
			"code":    -32603,
			"message": "Internal error",
			"data":    data,
		},
	})
}
