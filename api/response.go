package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"evm-staking-indexer/config"
	"evm-staking-indexer/database"
	"evm-staking-indexer/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const maxPageSize = 100

// QueryResult wraps one page of rows.
type QueryResult struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Data     interface{} `json:"data"`
}

type ValidatorStatusResponse struct {
	HeapIndexOff1  decimal.Decimal `json:"heap_index_off1"`
	IsActive       bool            `json:"is_active"`
	Jailed         bool            `json:"jailed"`
	UnjailDatetime uint64          `json:"unjail_datetime"`
	ShouldVote     uint16          `json:"should_vote"`
	Voted          uint16          `json:"voted"`
}

type ValidatorDetailResponse struct {
	PublicKey          string          `json:"public_key"`
	PublicKeyType      uint8           `json:"public_key_type"`
	Rate               decimal.Decimal `json:"rate"`
	Staker             string          `json:"staker"`
	Power              decimal.Decimal `json:"power"`
	TotalUnboundAmount decimal.Decimal `json:"total_unbound_amount"`
	PunishRate         decimal.Decimal `json:"punish_rate"`
	BeginBlock         decimal.Decimal `json:"begin_block"`
}

type BoundResponse struct {
	BoundAmount   decimal.Decimal `json:"bound_amount"`
	UnboundAmount decimal.Decimal `json:"unbound_amount"`
}

type RewardResponse struct {
	Reward decimal.Decimal `json:"reward"`
}

type DebtResponse struct {
	Debt decimal.Decimal `json:"debt"`
}

type TipResponse struct {
	Tip uint64 `json:"tip"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("api error: %s", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// addressParam reads a hex address from the first non-empty of names.
func addressParam(r *http.Request, names ...string) (common.Address, error) {
	q := r.URL.Query()
	for _, name := range names {
		v := q.Get(name)
		if v == "" {
			continue
		}
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("invalid %s address %q", name, v)
		}
		return common.HexToAddress(v), nil
	}
	return common.Address{}, fmt.Errorf("missing %s parameter", names[0])
}

func pageParam(r *http.Request) (database.Page, error) {
	page := database.Page{Number: 1, Size: config.DefaultPageSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, fmt.Errorf("invalid page %q", v)
		}
		page.Number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return page, fmt.Errorf("invalid page_size %q", v)
		}
		page.Size = n
	}

	return page, nil
}
