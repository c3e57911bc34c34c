package abi

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Event is one decoded staking contract event. The set of implementations is
// closed: Stake, Delegation, Undelegation, CoinbaseMint, Jailed, Punish,
// UpdateValidator, Proposer and Epoch.
type Event interface {
	EventName() string
}

type Stake struct {
	Validator common.Address
	PublicKey []byte
	Type      uint8
	Staker    common.Address
	Amount    decimal.Decimal
	Memo      string
	Rate      decimal.Decimal
}

type Delegation struct {
	Validator common.Address
	Delegator common.Address
	Amount    decimal.Decimal
}

type Undelegation struct {
	Index         uint64
	Validator     common.Address
	Delegator     common.Address
	UnlockTime    uint64
	Amount        decimal.Decimal
	OperationType uint8
}

type CoinbaseMint struct {
	Validator common.Address
	Delegator common.Address
	PublicKey []byte
	Amount    decimal.Decimal
}

type Jailed struct {
	Validator common.Address
	Jailed    bool
}

type Punish struct {
	Voted     []common.Address
	Unvoted   []common.Address
	Byzantine []common.Address
}

type UpdateValidator struct {
	Validator common.Address
	Memo      string
	Rate      decimal.Decimal
}

type Proposer struct {
	Proposer common.Address
}

type Epoch struct {
	Epoch uint64
}

func (*Stake) EventName() string           { return "Stake" }
func (*Delegation) EventName() string      { return "Delegation" }
func (*Undelegation) EventName() string    { return "Undelegation" }
func (*CoinbaseMint) EventName() string    { return "CoinbaseMint" }
func (*Jailed) EventName() string          { return "Jailed" }
func (*Punish) EventName() string          { return "Punish" }
func (*UpdateValidator) EventName() string { return "UpdateValidator" }
func (*Proposer) EventName() string        { return "Proposer" }
func (*Epoch) EventName() string           { return "Epoch" }
