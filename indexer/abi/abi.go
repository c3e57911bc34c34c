package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Topic hashes of the staking contract events.
var (
	StakeTopic           = common.HexToHash("0x498a21473058cc6f2e2b7da5292de11377e3987136d6a96b5c2b170952fcf5c4")
	DelegationTopic      = common.HexToHash("0x96eafeca8c3c21ab2fa4a636b93ba20c9e22e3d222d92c6530fedc29a53671ee")
	UndelegationTopic    = common.HexToHash("0x248cda0b34d17f8cf3b592aed07dd22da583ae74483d40a96004f53847b71954")
	EpochTopic           = common.HexToHash("0xc1d4931e10652da8ab23604510531810d2eebfcd33a81ba4946d702ce8057b64")
	JailedTopic          = common.HexToHash("0xb9b790eb0e7064670ac68f8299688933c4c510bc09f49d8c12b74c7d4fdde56f")
	PunishTopic          = common.HexToHash("0x0b76ecf3bf29ec85175361a38c68eb2d1bb7de232f25bdb17924cb3c2a5bc685")
	UpdateValidatorTopic = common.HexToHash("0xcb3de9afda95cbc521d863fe4ec8bad7569847876bdda3c69aa406c14bd9486b")
	ProposerTopic        = common.HexToHash("0xa990523a550e65422b3b987dda53586fadb4067c5e34841901d2f74a5c81e4ad")
	CoinbaseMintTopic    = common.HexToHash("0xb2cf206b70e745484dd39dc6b8e6166ce07246bd00baa4bd059f15733b2130e9")
)

var (
	addressTy      = mustNewType("address")
	addressArrayTy = mustNewType("address[]")
	boolTy         = mustNewType("bool")
	bytesTy        = mustNewType("bytes")
	stringTy       = mustNewType("string")
	uint8Ty        = mustNewType("uint8")
	uint256Ty      = mustNewType("uint256")
)

// Event schemas, in contract parameter order.
var (
	stakeEvent = newEvent("Stake",
		arg("validator", addressTy, true),
		arg("publicKey", bytesTy, false),
		arg("ty", uint8Ty, false),
		arg("staker", addressTy, true),
		arg("amount", uint256Ty, false),
		arg("memo", stringTy, false),
		arg("rate", uint256Ty, false),
	)
	delegationEvent = newEvent("Delegation",
		arg("validator", addressTy, true),
		arg("delegator", addressTy, true),
		arg("amount", uint256Ty, false),
	)
	undelegationEvent = newEvent("Undelegation",
		arg("index", uint256Ty, false),
		arg("validator", addressTy, true),
		arg("delegator", addressTy, true),
		arg("unlockTime", uint256Ty, false),
		arg("amount", uint256Ty, false),
		arg("operationType", uint8Ty, false),
	)
	epochEvent = newEvent("Epoch",
		arg("epoch", uint256Ty, false),
	)
	jailedEvent = newEvent("Jailed",
		arg("validator", addressTy, true),
		arg("jailed", boolTy, false),
	)
	punishEvent = newEvent("Punish",
		arg("voted", addressArrayTy, false),
		arg("unvoted", addressArrayTy, false),
		arg("byztine", addressArrayTy, false),
	)
	updateValidatorEvent = newEvent("UpdateValidator",
		arg("validator", addressTy, true),
		arg("memo", stringTy, false),
		arg("rate", uint256Ty, false),
	)
	proposerEvent = newEvent("Proposer",
		arg("proposer", addressTy, false),
	)
	coinbaseMintEvent = newEvent("CoinbaseMint",
		arg("validator", addressTy, true),
		arg("delegator", addressTy, true),
		arg("publicKey", bytesTy, false),
		arg("amount", uint256Ty, false),
	)
)

// DecodeError reports a log whose topic is known but whose payload does not
// match the event schema.
type DecodeError struct {
	Event string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s event: %v", e.Event, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode maps a log to its event record. Logs with an unknown first topic
// yield a nil event and a nil error.
func Decode(topics []common.Hash, data []byte) (Event, error) {
	if len(topics) == 0 {
		return nil, nil
	}

	var (
		ev  Event
		v   *values
		err error
	)

	switch topics[0] {
	case StakeTopic:
		v, err = unpack(stakeEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Stake{
			Validator: v.address("validator"),
			PublicKey: v.bytes("publicKey"),
			Type:      v.uint8("ty"),
			Staker:    v.address("staker"),
			Amount:    v.decimal("amount"),
			Memo:      v.string("memo"),
			Rate:      v.decimal("rate"),
		}

	case DelegationTopic:
		v, err = unpack(delegationEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Delegation{
			Validator: v.address("validator"),
			Delegator: v.address("delegator"),
			Amount:    v.decimal("amount"),
		}

	case UndelegationTopic:
		v, err = unpack(undelegationEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Undelegation{
			Index:         v.uint64("index"),
			Validator:     v.address("validator"),
			Delegator:     v.address("delegator"),
			UnlockTime:    v.uint64("unlockTime"),
			Amount:        v.decimal("amount"),
			OperationType: v.uint8("operationType"),
		}

	case EpochTopic:
		v, err = unpack(epochEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Epoch{Epoch: v.uint64("epoch")}

	case JailedTopic:
		v, err = unpack(jailedEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Jailed{
			Validator: v.address("validator"),
			Jailed:    v.bool("jailed"),
		}

	case PunishTopic:
		v, err = unpack(punishEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Punish{
			Voted:     v.addresses("voted"),
			Unvoted:   v.addresses("unvoted"),
			Byzantine: v.addresses("byztine"),
		}

	case UpdateValidatorTopic:
		v, err = unpack(updateValidatorEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &UpdateValidator{
			Validator: v.address("validator"),
			Memo:      v.string("memo"),
			Rate:      v.decimal("rate"),
		}

	case ProposerTopic:
		v, err = unpack(proposerEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &Proposer{Proposer: v.address("proposer")}

	case CoinbaseMintTopic:
		v, err = unpack(coinbaseMintEvent, topics, data)
		if err != nil {
			return nil, err
		}
		ev = &CoinbaseMint{
			Validator: v.address("validator"),
			Delegator: v.address("delegator"),
			PublicKey: v.bytes("publicKey"),
			Amount:    v.decimal("amount"),
		}

	default:
		return nil, nil
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return ev, nil
}

func unpack(event abi.Event, topics []common.Hash, data []byte) (*values, error) {
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}

	if len(topics)-1 != len(indexed) {
		return nil, &DecodeError{
			Event: event.Name,
			Err:   fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(topics)-1),
		}
	}

	v := &values{event: event.Name, m: make(map[string]interface{})}
	if err := abi.ParseTopicsIntoMap(v.m, indexed, topics[1:]); err != nil {
		return nil, &DecodeError{Event: event.Name, Err: err}
	}
	if err := event.Inputs.UnpackIntoMap(v.m, data); err != nil {
		return nil, &DecodeError{Event: event.Name, Err: err}
	}

	return v, nil
}

// values reads typed parameters out of an unpacked event. The first type
// mismatch is remembered and reported by err.
type values struct {
	event string
	m     map[string]interface{}
	first error
}

func (v *values) fail(name string, want string) {
	if v.first == nil {
		v.first = fmt.Errorf("parameter %s: expected %s, got %T", name, want, v.m[name])
	}
}

func (v *values) err() error {
	if v.first != nil {
		return &DecodeError{Event: v.event, Err: v.first}
	}
	return nil
}

func (v *values) address(name string) common.Address {
	a, ok := v.m[name].(common.Address)
	if !ok {
		v.fail(name, "address")
	}
	return a
}

func (v *values) addresses(name string) []common.Address {
	a, ok := v.m[name].([]common.Address)
	if !ok {
		v.fail(name, "address[]")
	}
	return a
}

func (v *values) bytes(name string) []byte {
	b, ok := v.m[name].([]byte)
	if !ok {
		v.fail(name, "bytes")
	}
	return b
}

func (v *values) string(name string) string {
	s, ok := v.m[name].(string)
	if !ok {
		v.fail(name, "string")
	}
	return s
}

func (v *values) bool(name string) bool {
	b, ok := v.m[name].(bool)
	if !ok {
		v.fail(name, "bool")
	}
	return b
}

func (v *values) uint8(name string) uint8 {
	u, ok := v.m[name].(uint8)
	if !ok {
		v.fail(name, "uint8")
	}
	return u
}

func (v *values) bigInt(name string) *big.Int {
	b, ok := v.m[name].(*big.Int)
	if !ok || b == nil {
		v.fail(name, "uint256")
		return new(big.Int)
	}
	return b
}

func (v *values) decimal(name string) decimal.Decimal {
	return decimal.NewFromBigInt(v.bigInt(name), 0)
}

// uint64 rejects values that do not fit instead of truncating them.
func (v *values) uint64(name string) uint64 {
	b := v.bigInt(name)
	if !b.IsUint64() {
		if v.first == nil {
			v.first = fmt.Errorf("parameter %s: %s overflows uint64", name, b)
		}
		return 0
	}
	return b.Uint64()
}

func newEvent(name string, inputs ...abi.Argument) abi.Event {
	return abi.NewEvent(name, name, false, inputs)
}

func arg(name string, t abi.Type, indexed bool) abi.Argument {
	return abi.Argument{Name: name, Type: t, Indexed: indexed}
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
