package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	StakingABI = mustParse(stakingABI)
	RewardABI  = mustParse(rewardABI)
)

// ContractCaller executes read-only calls; *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ValidatorData mirrors the staking contract's validator record.
type ValidatorData struct {
	PublicKey          []byte
	Ty                 uint8
	Rate               *big.Int
	Staker             common.Address
	Power              *big.Int
	TotalUnboundAmount *big.Int
	PunishRate         *big.Int
	BeginBlock         *big.Int
}

type ValidatorStatus struct {
	HeapIndexOff1  *big.Int
	IsActive       bool
	Jailed         bool
	UnjailDatetime uint64
	ShouldVote     uint16
	Voted          uint16
}

type Bound struct {
	BoundAmount   *big.Int
	UnboundAmount *big.Int
}

type Staking struct {
	address common.Address
	caller  ContractCaller
}

func NewStaking(address common.Address, caller ContractCaller) *Staking {
	return &Staking{address: address, caller: caller}
}

func (s *Staking) Validators(ctx context.Context, validator common.Address) (*ValidatorData, error) {
	out := new(ValidatorData)
	if err := call(ctx, s.caller, s.address, StakingABI, out, "validators", validator); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Staking) ValidatorStatus(ctx context.Context, validator common.Address) (*ValidatorStatus, error) {
	out := new(ValidatorStatus)
	if err := call(ctx, s.caller, s.address, StakingABI, out, "validatorStatus", validator); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Staking) Delegators(ctx context.Context, validator, delegator common.Address) (*Bound, error) {
	out := new(Bound)
	if err := call(ctx, s.caller, s.address, StakingABI, out, "delegators", validator, delegator); err != nil {
		return nil, err
	}
	return out, nil
}

type Reward struct {
	address common.Address
	caller  ContractCaller
}

func NewReward(address common.Address, caller ContractCaller) *Reward {
	return &Reward{address: address, caller: caller}
}

func (r *Reward) Rewards(ctx context.Context, delegator common.Address) (*big.Int, error) {
	return callUint(ctx, r.caller, r.address, RewardABI, "rewards", delegator)
}

func (r *Reward) RewardDebt(ctx context.Context, validator, delegator common.Address) (*big.Int, error) {
	return callUint(ctx, r.caller, r.address, RewardABI, "rewardDebt", validator, delegator)
}

func pack(parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return input, nil
}

func rawCall(
	ctx context.Context, caller ContractCaller, address common.Address, parsed abi.ABI, method string, args ...interface{},
) ([]byte, error) {
	input, err := pack(parsed, method, args...)
	if err != nil {
		return nil, err
	}

	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &address, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	return output, nil
}

func call(
	ctx context.Context, caller ContractCaller, address common.Address, parsed abi.ABI,
	out interface{}, method string, args ...interface{},
) error {
	output, err := rawCall(ctx, caller, address, parsed, method, args...)
	if err != nil {
		return err
	}

	if err := parsed.UnpackIntoInterface(out, method, output); err != nil {
		return errors.Wrapf(err, "unpack %s", method)
	}
	return nil
}

func callUint(
	ctx context.Context, caller ContractCaller, address common.Address, parsed abi.ABI, method string, args ...interface{},
) (*big.Int, error) {
	output, err := rawCall(ctx, caller, address, parsed, method, args...)
	if err != nil {
		return nil, err
	}

	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}

	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

func mustParse(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
