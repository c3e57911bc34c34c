package chain

import (
	"encoding/json"
	"fmt"
	"time"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type rpcBlock struct {
	BlockID struct {
		Hash string `json:"hash"`
	} `json:"block_id"`
	Block struct {
		Header struct {
			ChainID string    `json:"chain_id"`
			Height  string    `json:"height"`
			Time    time.Time `json:"time"`
		} `json:"header"`
		Data struct {
			Txs []string `json:"txs"`
		} `json:"data"`
	} `json:"block"`
}

type rpcTx struct {
	Hash     string `json:"hash"`
	Height   string `json:"height"`
	Index    int64  `json:"index"`
	Tx       string `json:"tx"`
	TxResult struct {
		Code    int64   `json:"code"`
		Data    *string `json:"data"`
		Log     string  `json:"log"`
		GasUsed string  `json:"gasUsed"`
	} `json:"tx_result"`
}

type callResult struct {
	Call *evmResult `json:"Call"`
}

type createResult struct {
	Create *evmResult `json:"Create"`
}

type evmResult struct {
	ExitReason json.RawMessage `json:"exit_reason"`
	Value      json.RawMessage `json:"value"`
	UsedGas    json.RawMessage `json:"used_gas"`
	Logs       []evmLog        `json:"logs"`
}

type evmLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    byteList `json:"data"`
}

// byteList is a byte slice encoded as a JSON array of numbers.
type byteList []byte

func (b *byteList) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte out of range: %d", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

func (b byteList) MarshalJSON() ([]byte, error) {
	values := make([]int, len(b))
	for i, v := range b {
		values[i] = int(v)
	}
	return json.Marshal(values)
}
