package contracts_test

import (
	"context"
	"math/big"
	"testing"

	"evm-staking-indexer/contracts"
	indexer_testing "evm-staking-indexer/testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

var (
	stakingAddress = common.HexToAddress("0x000000000000000000000000000000000000f000")
	rewardAddress  = common.HexToAddress("0x000000000000000000000000000000000000f001")
	validator      = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	delegator      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func setCall(t *testing.T, mock *indexer_testing.MockChain, method string, values ...interface{}) {
	t.Helper()

	m, ok := contracts.StakingABI.Methods[method]
	if !ok {
		m, ok = contracts.RewardABI.Methods[method]
	}
	require.True(t, ok, method)

	output, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	mock.SetCall(m.ID, output)
}

func dial(t *testing.T, mock *indexer_testing.MockChain) *ethclient.Client {
	t.Helper()

	client, err := ethclient.Dial(mock.URL())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestStakingValidators(t *testing.T) {
	mock := indexer_testing.NewMockChain()
	defer mock.Close()

	setCall(t, mock, "validators",
		[]byte{0x02, 0x03}, uint8(1), big.NewInt(10), delegator,
		big.NewInt(5000), big.NewInt(7), big.NewInt(1), big.NewInt(4636000),
	)

	data, err := contracts.NewStaking(stakingAddress, dial(t, mock)).Validators(context.Background(), validator)
	require.NoError(t, err)

	require.Equal(t, []byte{0x02, 0x03}, data.PublicKey)
	require.Equal(t, uint8(1), data.Ty)
	require.Equal(t, delegator, data.Staker)
	require.Equal(t, "5000", data.Power.String())
	require.Equal(t, "4636000", data.BeginBlock.String())
}

func TestStakingValidatorStatus(t *testing.T) {
	mock := indexer_testing.NewMockChain()
	defer mock.Close()

	setCall(t, mock, "validatorStatus", big.NewInt(3), true, false, uint64(1700000000), uint16(10), uint16(9))

	status, err := contracts.NewStaking(stakingAddress, dial(t, mock)).ValidatorStatus(context.Background(), validator)
	require.NoError(t, err)

	require.True(t, status.IsActive)
	require.False(t, status.Jailed)
	require.Equal(t, uint64(1700000000), status.UnjailDatetime)
	require.Equal(t, uint16(10), status.ShouldVote)
	require.Equal(t, uint16(9), status.Voted)
}

func TestStakingDelegatorsAndRewards(t *testing.T) {
	mock := indexer_testing.NewMockChain()
	defer mock.Close()

	setCall(t, mock, "delegators", big.NewInt(100), big.NewInt(20))
	setCall(t, mock, "rewards", big.NewInt(33))
	client := dial(t, mock)

	bound, err := contracts.NewStaking(stakingAddress, client).Delegators(context.Background(), validator, delegator)
	require.NoError(t, err)
	require.Equal(t, "100", bound.BoundAmount.String())
	require.Equal(t, "20", bound.UnboundAmount.String())

	reward, err := contracts.NewReward(rewardAddress, client).Rewards(context.Background(), delegator)
	require.NoError(t, err)
	require.Equal(t, "33", reward.String())
}

func TestCallReverted(t *testing.T) {
	mock := indexer_testing.NewMockChain()
	defer mock.Close()

	_, err := contracts.NewReward(rewardAddress, dial(t, mock)).RewardDebt(context.Background(), validator, delegator)
	require.Error(t, err)
}
