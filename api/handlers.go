package api

import (
	"context"
	"errors"
	"net/http"

	"evm-staking-indexer/database"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gorm.io/gorm"
)

type pageQuery func(ctx context.Context, address string, page database.Page) (interface{}, int64, error)

func (s *Server) HandleTip(w http.ResponseWriter, r *http.Request) {
	tip, err := s.store.GetTip(r.Context())
	if errors.Is(err, database.ErrTipNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TipResponse{Tip: tip})
}

func (s *Server) HandleValidatorList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.LatestValidators(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []database.Validator{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) HandleValidatorSnapshot(w http.ResponseWriter, r *http.Request) {
	validator, err := addressParam(r, "validator", "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	row, err := s.store.LatestValidator(r.Context(), database.HexAddress(validator))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) HandleValidatorDetail(w http.ResponseWriter, r *http.Request) {
	validator, err := addressParam(r, "validator", "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.contractContext(r)
	defer cancel()

	data, err := s.staking.Validators(ctx, validator)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, ValidatorDetailResponse{
		PublicKey:          hexutil.Encode(data.PublicKey),
		PublicKeyType:      data.Ty,
		Rate:               database.BigToDecimal(data.Rate),
		Staker:             database.HexAddress(data.Staker),
		Power:              database.BigToDecimal(data.Power),
		TotalUnboundAmount: database.BigToDecimal(data.TotalUnboundAmount),
		PunishRate:         database.BigToDecimal(data.PunishRate),
		BeginBlock:         database.BigToDecimal(data.BeginBlock),
	})
}

func (s *Server) HandleValidatorStatus(w http.ResponseWriter, r *http.Request) {
	validator, err := addressParam(r, "validator", "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.contractContext(r)
	defer cancel()

	status, err := s.staking.ValidatorStatus(ctx, validator)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, ValidatorStatusResponse{
		HeapIndexOff1:  database.BigToDecimal(status.HeapIndexOff1),
		IsActive:       status.IsActive,
		Jailed:         status.Jailed,
		UnjailDatetime: status.UnjailDatetime,
		ShouldVote:     status.ShouldVote,
		Voted:          status.Voted,
	})
}

func (s *Server) HandleClaims(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "delegator", func(ctx context.Context, address string, page database.Page) (interface{}, int64, error) {
		rows, total, err := s.store.CoinbaseMints(ctx, address, page)
		if rows == nil {
			rows = []database.CoinbaseMint{}
		}
		return rows, total, err
	})
}

func (s *Server) HandleDelegations(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "delegator", func(ctx context.Context, address string, page database.Page) (interface{}, int64, error) {
		rows, total, err := s.store.Delegations(ctx, address, page)
		if rows == nil {
			rows = []database.Delegation{}
		}
		return rows, total, err
	})
}

func (s *Server) HandleUndelegations(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "delegator", func(ctx context.Context, address string, page database.Page) (interface{}, int64, error) {
		rows, total, err := s.store.Undelegations(ctx, address, page)
		if rows == nil {
			rows = []database.Undelegation{}
		}
		return rows, total, err
	})
}

func (s *Server) HandleDelegators(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "validator", func(ctx context.Context, address string, page database.Page) (interface{}, int64, error) {
		out, total, err := s.store.DelegatorsOf(ctx, address, page)
		if out == nil {
			out = []string{}
		}
		return out, total, err
	})
}

func (s *Server) HandleValidators(w http.ResponseWriter, r *http.Request) {
	s.handlePage(w, r, "delegator", func(ctx context.Context, address string, page database.Page) (interface{}, int64, error) {
		out, total, err := s.store.ValidatorsOf(ctx, address, page)
		if out == nil {
			out = []string{}
		}
		return out, total, err
	})
}

func (s *Server) HandleSum(w http.ResponseWriter, r *http.Request) {
	delegator, err := addressParam(r, "delegator", "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sums, err := s.store.DelegatorSums(r.Context(), database.HexAddress(delegator))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) HandleBound(w http.ResponseWriter, r *http.Request) {
	validator, err := addressParam(r, "validator")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	delegator, err := addressParam(r, "delegator")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.contractContext(r)
	defer cancel()

	bound, err := s.staking.Delegators(ctx, validator, delegator)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, BoundResponse{
		BoundAmount:   database.BigToDecimal(bound.BoundAmount),
		UnboundAmount: database.BigToDecimal(bound.UnboundAmount),
	})
}

func (s *Server) HandleReward(w http.ResponseWriter, r *http.Request) {
	delegator, err := addressParam(r, "delegator", "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.contractContext(r)
	defer cancel()

	reward, err := s.reward.Rewards(ctx, delegator)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, RewardResponse{Reward: database.BigToDecimal(reward)})
}

func (s *Server) HandleDebt(w http.ResponseWriter, r *http.Request) {
	validator, err := addressParam(r, "validator")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	delegator, err := addressParam(r, "delegator")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.contractContext(r)
	defer cancel()

	debt, err := s.reward.RewardDebt(ctx, validator, delegator)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, DebtResponse{Debt: database.BigToDecimal(debt)})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, param string, query pageQuery) {
	address, err := addressParam(r, param, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, total, err := query(r.Context(), database.HexAddress(address), page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResult{
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Data:     data,
	})
}
