package database

import (
	"time"
)

// BaseEntity is an abstract entity, all other entities should be derived from it
type BaseEntity struct {
	ID uint64 `gorm:"primaryKey" json:"-"`
}

type State struct {
	BaseEntity
	Name    string `gorm:"type:varchar(50);uniqueIndex"`
	Index   uint64
	Updated time.Time
}

type Receipt struct {
	BaseEntity
	Tx        string `gorm:"type:varchar(66);uniqueIndex"`
	BlockNum  uint64 `gorm:"index"`
	BlockHash string `gorm:"type:varchar(66)"`
	Timestamp uint64
	Status    uint64
	GasUsed   uint64
	LogCount  int
}

type Stake struct {
	BaseEntity
	Tx        string `gorm:"type:varchar(66);uniqueIndex:idx_stakes_key"`
	BlockNum  uint64 `gorm:"index"`
	Validator string `gorm:"type:varchar(42);uniqueIndex:idx_stakes_key"`
	PublicKey string `gorm:"type:varchar(1024)"`
	Ty        uint8
	Staker    string `gorm:"type:varchar(42);uniqueIndex:idx_stakes_key"`
	Amount    Uint256
	Memo      string `gorm:"type:text"`
	Rate      Uint256
}

type Delegation struct {
	BaseEntity
	Tx        string  `gorm:"type:varchar(66);uniqueIndex:idx_delegations_key" json:"tx"`
	BlockNum  uint64  `gorm:"index" json:"block_num"`
	Validator string  `gorm:"type:varchar(42);uniqueIndex:idx_delegations_key" json:"validator"`
	Delegator string  `gorm:"type:varchar(42);uniqueIndex:idx_delegations_key;index" json:"delegator"`
	Amount    Uint256 `json:"amount"`
}

// Undelegation rows carry the contract's index in the key as one transaction
// may undelegate the same pair more than once.
type Undelegation struct {
	BaseEntity
	Tx         string  `gorm:"type:varchar(66);uniqueIndex:idx_undelegations_key" json:"tx"`
	BlockNum   uint64  `gorm:"index" json:"block_num"`
	Idx        uint64  `gorm:"uniqueIndex:idx_undelegations_key" json:"idx"`
	Validator  string  `gorm:"type:varchar(42);uniqueIndex:idx_undelegations_key" json:"validator"`
	Delegator  string  `gorm:"type:varchar(42);uniqueIndex:idx_undelegations_key;index" json:"delegator"`
	UnlockTime uint64  `json:"unlock_time"`
	Amount     Uint256 `json:"amount"`
	OpType     uint8   `json:"op_type"`
}

type CoinbaseMint struct {
	BaseEntity
	Tx        string  `gorm:"type:varchar(66);uniqueIndex:idx_coinbase_mints_key" json:"tx"`
	BlockNum  uint64  `gorm:"index" json:"block_num"`
	Validator string  `gorm:"type:varchar(42);uniqueIndex:idx_coinbase_mints_key" json:"validator"`
	Delegator string  `gorm:"type:varchar(42);uniqueIndex:idx_coinbase_mints_key;index" json:"delegator"`
	PublicKey string  `gorm:"type:varchar(1024)" json:"public_key"`
	Amount    Uint256 `json:"amount"`
}

type JailEvent struct {
	BaseEntity
	Tx        string `gorm:"type:varchar(66);uniqueIndex:idx_jail_events_key"`
	BlockNum  uint64 `gorm:"index"`
	Validator string `gorm:"type:varchar(42);uniqueIndex:idx_jail_events_key"`
	Jailed    bool
}

type Punish struct {
	BaseEntity
	Tx        string   `gorm:"type:varchar(66);uniqueIndex"`
	BlockNum  uint64   `gorm:"index"`
	Voted     []string `gorm:"serializer:json;type:text"`
	Unvoted   []string `gorm:"serializer:json;type:text"`
	Byzantine []string `gorm:"serializer:json;type:text"`
}

type ValidatorUpdate struct {
	BaseEntity
	Tx        string `gorm:"type:varchar(66);uniqueIndex:idx_validator_updates_key"`
	BlockNum  uint64 `gorm:"index"`
	Validator string `gorm:"type:varchar(42);uniqueIndex:idx_validator_updates_key"`
	Memo      string `gorm:"type:text"`
	Rate      Uint256
}

type Proposer struct {
	BaseEntity
	Tx       string `gorm:"type:varchar(66);uniqueIndex"`
	BlockNum uint64 `gorm:"index"`
	Proposer string `gorm:"type:varchar(42)"`
}

type Epoch struct {
	BaseEntity
	Tx       string `gorm:"type:varchar(66);uniqueIndex"`
	BlockNum uint64 `gorm:"index"`
	Epoch    uint64
}

// TableName overrides gorm's inflected "epoches".
func (Epoch) TableName() string {
	return "epochs"
}

// Validator is one row of the validator snapshot written by the updater.
type Validator struct {
	BaseEntity
	BlockNum           uint64  `gorm:"uniqueIndex:idx_validators_key" json:"block_num"`
	Validator          string  `gorm:"type:varchar(42);uniqueIndex:idx_validators_key" json:"validator"`
	Staker             string  `gorm:"type:varchar(42);uniqueIndex:idx_validators_key" json:"staker"`
	PublicKey          string  `gorm:"type:varchar(1024)" json:"public_key"`
	PublicKeyType      uint8   `json:"public_key_type"`
	Rate               Uint256 `json:"rate"`
	Power              Uint256 `json:"power"`
	TotalUnboundAmount Uint256 `json:"total_unbound_amount"`
	PunishRate         Uint256 `json:"punish_rate"`
	BeginBlock         uint64  `json:"begin_block"`
	Active             bool    `json:"active"`
	Jailed             bool    `json:"jailed"`
	UnjailTime         uint64  `json:"unjail_time"`
	ShouldVote         uint16  `json:"should_vote"`
	Voted              uint16  `json:"voted"`
}
