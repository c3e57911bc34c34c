package database

import (
	"context"
	"fmt"
	"strings"

	"evm-staking-indexer/indexer/abi"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Natural keys of the event tables. Writing a row whose key already exists
// replaces the remaining columns.
var (
	receiptKey         = []string{"tx"}
	stakeKey           = []string{"tx", "validator", "staker"}
	delegationKey      = []string{"tx", "validator", "delegator"}
	undelegationKey    = []string{"tx", "validator", "delegator", "idx"}
	coinbaseMintKey    = []string{"tx", "validator", "delegator"}
	jailEventKey       = []string{"tx", "validator"}
	punishKey          = []string{"tx"}
	validatorUpdateKey = []string{"tx", "validator"}
	proposerKey        = []string{"tx"}
	epochKey           = []string{"tx"}
	validatorKey       = []string{"block_num", "validator", "staker"}
)

// TxRef locates the transaction an event or receipt belongs to.
type TxRef struct {
	Tx        string
	BlockNum  uint64
	BlockHash string
	Timestamp uint64
}

// Storage is the gateway between the scanner and the relational store.
type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) DB() *gorm.DB {
	return s.db
}

func upsert(ctx context.Context, db *gorm.DB, value interface{}, key []string, updates []string) error {
	columns := make([]clause.Column, len(key))
	for i, name := range key {
		columns[i] = clause.Column{Name: name}
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(value).Error
}

func (s *Storage) UpsertReceipt(ctx context.Context, r *Receipt) error {
	err := upsert(ctx, s.db, r, receiptKey,
		[]string{"block_num", "block_hash", "timestamp", "status", "gas_used", "log_count"})
	return errors.Wrapf(err, "UpsertReceipt %s", r.Tx)
}

func (s *Storage) UpsertStake(ctx context.Context, r *Stake) error {
	err := upsert(ctx, s.db, r, stakeKey,
		[]string{"block_num", "public_key", "ty", "amount", "memo", "rate"})
	return errors.Wrapf(err, "UpsertStake %s", r.Tx)
}

func (s *Storage) UpsertDelegation(ctx context.Context, r *Delegation) error {
	err := upsert(ctx, s.db, r, delegationKey, []string{"block_num", "amount"})
	return errors.Wrapf(err, "UpsertDelegation %s", r.Tx)
}

func (s *Storage) UpsertUndelegation(ctx context.Context, r *Undelegation) error {
	err := upsert(ctx, s.db, r, undelegationKey,
		[]string{"block_num", "unlock_time", "amount", "op_type"})
	return errors.Wrapf(err, "UpsertUndelegation %s", r.Tx)
}

func (s *Storage) UpsertCoinbaseMint(ctx context.Context, r *CoinbaseMint) error {
	err := upsert(ctx, s.db, r, coinbaseMintKey, []string{"block_num", "public_key", "amount"})
	return errors.Wrapf(err, "UpsertCoinbaseMint %s", r.Tx)
}

func (s *Storage) UpsertJailEvent(ctx context.Context, r *JailEvent) error {
	err := upsert(ctx, s.db, r, jailEventKey, []string{"block_num", "jailed"})
	return errors.Wrapf(err, "UpsertJailEvent %s", r.Tx)
}

func (s *Storage) UpsertPunish(ctx context.Context, r *Punish) error {
	err := upsert(ctx, s.db, r, punishKey, []string{"block_num", "voted", "unvoted", "byzantine"})
	return errors.Wrapf(err, "UpsertPunish %s", r.Tx)
}

func (s *Storage) UpsertValidatorUpdate(ctx context.Context, r *ValidatorUpdate) error {
	err := upsert(ctx, s.db, r, validatorUpdateKey, []string{"block_num", "memo", "rate"})
	return errors.Wrapf(err, "UpsertValidatorUpdate %s", r.Tx)
}

func (s *Storage) UpsertProposer(ctx context.Context, r *Proposer) error {
	err := upsert(ctx, s.db, r, proposerKey, []string{"block_num", "proposer"})
	return errors.Wrapf(err, "UpsertProposer %s", r.Tx)
}

func (s *Storage) UpsertEpoch(ctx context.Context, r *Epoch) error {
	err := upsert(ctx, s.db, r, epochKey, []string{"block_num", "epoch"})
	return errors.Wrapf(err, "UpsertEpoch %s", r.Tx)
}

func (s *Storage) UpsertValidatorSnapshot(ctx context.Context, r *Validator) error {
	err := upsert(ctx, s.db, r, validatorKey, []string{
		"public_key", "public_key_type", "rate", "power", "total_unbound_amount",
		"punish_rate", "begin_block", "active", "jailed", "unjail_time", "should_vote", "voted",
	})
	return errors.Wrapf(err, "UpsertValidatorSnapshot %s", r.Validator)
}

// UpsertEvent writes a decoded event into the table of its variant.
func (s *Storage) UpsertEvent(ctx context.Context, ref TxRef, event abi.Event) error {
	switch ev := event.(type) {
	case *abi.Stake:
		return s.UpsertStake(ctx, &Stake{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Validator: HexAddress(ev.Validator),
			PublicKey: hexutil.Encode(ev.PublicKey),
			Ty:        ev.Type,
			Staker:    HexAddress(ev.Staker),
			Amount:    NewUint256(ev.Amount),
			Memo:      ev.Memo,
			Rate:      NewUint256(ev.Rate),
		})

	case *abi.Delegation:
		return s.UpsertDelegation(ctx, &Delegation{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Validator: HexAddress(ev.Validator),
			Delegator: HexAddress(ev.Delegator),
			Amount:    NewUint256(ev.Amount),
		})

	case *abi.Undelegation:
		return s.UpsertUndelegation(ctx, &Undelegation{
			Tx:         ref.Tx,
			BlockNum:   ref.BlockNum,
			Idx:        ev.Index,
			Validator:  HexAddress(ev.Validator),
			Delegator:  HexAddress(ev.Delegator),
			UnlockTime: ev.UnlockTime,
			Amount:     NewUint256(ev.Amount),
			OpType:     ev.OperationType,
		})

	case *abi.CoinbaseMint:
		return s.UpsertCoinbaseMint(ctx, &CoinbaseMint{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Validator: HexAddress(ev.Validator),
			Delegator: HexAddress(ev.Delegator),
			PublicKey: hexutil.Encode(ev.PublicKey),
			Amount:    NewUint256(ev.Amount),
		})

	case *abi.Jailed:
		return s.UpsertJailEvent(ctx, &JailEvent{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Validator: HexAddress(ev.Validator),
			Jailed:    ev.Jailed,
		})

	case *abi.Punish:
		return s.UpsertPunish(ctx, &Punish{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Voted:     HexAddresses(ev.Voted),
			Unvoted:   HexAddresses(ev.Unvoted),
			Byzantine: HexAddresses(ev.Byzantine),
		})

	case *abi.UpdateValidator:
		return s.UpsertValidatorUpdate(ctx, &ValidatorUpdate{
			Tx:        ref.Tx,
			BlockNum:  ref.BlockNum,
			Validator: HexAddress(ev.Validator),
			Memo:      ev.Memo,
			Rate:      NewUint256(ev.Rate),
		})

	case *abi.Proposer:
		return s.UpsertProposer(ctx, &Proposer{
			Tx:       ref.Tx,
			BlockNum: ref.BlockNum,
			Proposer: HexAddress(ev.Proposer),
		})

	case *abi.Epoch:
		return s.UpsertEpoch(ctx, &Epoch{
			Tx:       ref.Tx,
			BlockNum: ref.BlockNum,
			Epoch:    ev.Epoch,
		})

	default:
		return fmt.Errorf("UpsertEvent: unsupported event %T", event)
	}
}

// HexAddress renders an address as lowercase 0x-prefixed hex.
func HexAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func HexAddresses(addresses []common.Address) []string {
	out := make([]string, len(addresses))
	for i, a := range addresses {
		out[i] = HexAddress(a)
	}
	return out
}
