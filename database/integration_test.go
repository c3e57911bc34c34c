package database

import (
	"context"
	"os"
	"testing"

	"evm-staking-indexer/indexer/abi"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()

	if os.Getenv(TestDBEnv) == "" {
		t.Skipf("%s not set", TestDBEnv)
	}

	db, err := ConnectAndInitializeTestDB(context.Background(), TestDBConfig(), true)
	require.NoError(t, err)

	return NewStorage(db)
}

func TestTipRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	_, err := s.GetTip(ctx)
	require.ErrorIs(t, err, ErrTipNotFound)

	require.NoError(t, s.SetTip(ctx, 100))
	require.NoError(t, s.SetTip(ctx, 105))

	tip, err := s.GetTip(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(105), tip)
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	ref := TxRef{Tx: txHash, BlockNum: 100}

	for i := 0; i < 2; i++ {
		err := s.UpsertEvent(ctx, ref, &abi.Delegation{
			Validator: validatorAddr,
			Delegator: delegatorAddr,
			Amount:    decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, s.DB().Model(&Delegation{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	rows, total, err := s.Delegations(ctx, HexAddress(delegatorAddr), Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "1000", rows[0].Amount.String())
	require.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", rows[0].Validator)
}

func TestDelegatorQueries(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	other := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	events := []struct {
		tx    string
		event abi.Event
	}{
		{"0x01", &abi.Delegation{Validator: validatorAddr, Delegator: delegatorAddr, Amount: decimal.NewFromInt(10)}},
		{"0x02", &abi.Delegation{Validator: other, Delegator: delegatorAddr, Amount: decimal.NewFromInt(20)}},
		{"0x03", &abi.Undelegation{Index: 1, Validator: validatorAddr, Delegator: delegatorAddr, Amount: decimal.NewFromInt(5)}},
		{"0x04", &abi.CoinbaseMint{Validator: validatorAddr, Delegator: delegatorAddr, Amount: decimal.NewFromInt(2)}},
	}
	for i, e := range events {
		require.NoError(t, s.UpsertEvent(ctx, TxRef{Tx: e.tx, BlockNum: uint64(i + 1)}, e.event))
	}

	validators, total, err := s.ValidatorsOf(ctx, HexAddress(delegatorAddr), Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, validators, 2)

	sums, err := s.DelegatorSums(ctx, HexAddress(delegatorAddr))
	require.NoError(t, err)
	require.Equal(t, "30", sums.Delegated.String())
	require.Equal(t, "5", sums.Undelegated.String())
	require.Equal(t, "2", sums.Claimed.String())
}
