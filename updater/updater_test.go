package updater

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"evm-staking-indexer/config"
	"evm-staking-indexer/contracts"
	"evm-staking-indexer/database"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	validatorA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	validatorB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	staker     = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type fakeStore struct {
	mu         sync.Mutex
	validators []string
	rows       []*database.Validator
	listErr    error
}

func (s *fakeStore) ValidatorList(context.Context) ([]string, error) {
	return s.validators, s.listErr
}

func (s *fakeStore) UpsertValidatorSnapshot(_ context.Context, v *database.Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, v)
	return nil
}

func (s *fakeStore) sortedRows() []*database.Validator {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]*database.Validator(nil), s.rows...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Validator < rows[j].Validator })
	return rows
}

type fakeStaking struct {
	validatorsErr map[common.Address]error
	statusErr     map[common.Address]error
}

func (f *fakeStaking) Validators(_ context.Context, v common.Address) (*contracts.ValidatorData, error) {
	if err, ok := f.validatorsErr[v]; ok {
		return nil, err
	}
	return &contracts.ValidatorData{
		PublicKey:          []byte{0x02, 0xab},
		Ty:                 1,
		Rate:               big.NewInt(10),
		Staker:             common.HexToAddress(staker),
		Power:              big.NewInt(5000),
		TotalUnboundAmount: big.NewInt(7),
		PunishRate:         big.NewInt(1),
		BeginBlock:         big.NewInt(4636000),
	}, nil
}

func (f *fakeStaking) ValidatorStatus(_ context.Context, v common.Address) (*contracts.ValidatorStatus, error) {
	if err, ok := f.statusErr[v]; ok {
		return nil, err
	}
	return &contracts.ValidatorStatus{
		HeapIndexOff1:  big.NewInt(1),
		IsActive:       true,
		UnjailDatetime: 1700000000,
		ShouldVote:     10,
		Voted:          9,
	}, nil
}

type fakeBlockNumber uint64

func (b fakeBlockNumber) BlockNumber(context.Context) (uint64, error) {
	return uint64(b), nil
}

func newTestUpdater(store *fakeStore, staking *fakeStaking) *Updater {
	return New(store, staking, fakeBlockNumber(500), config.UpdaterConfig{
		Interval:   config.Duration{Duration: 5 * time.Millisecond},
		MaxWorkers: 2,
	})
}

func TestUpdateWritesSnapshotPerValidator(t *testing.T) {
	store := &fakeStore{validators: []string{validatorB, validatorA}}
	u := newTestUpdater(store, &fakeStaking{})

	blockNum, failed, err := u.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(500), blockNum)
	require.Zero(t, failed)

	rows := store.sortedRows()
	require.Len(t, rows, 2)
	require.Equal(t, validatorA, rows[0].Validator)
	require.Equal(t, validatorB, rows[1].Validator)

	row := rows[0]
	require.Equal(t, uint64(500), row.BlockNum)
	require.Equal(t, staker, row.Staker)
	require.Equal(t, "0x02ab", row.PublicKey)
	require.Equal(t, "5000", row.Power.String())
	require.Equal(t, uint64(4636000), row.BeginBlock)
	require.True(t, row.Active)
	require.Equal(t, uint16(9), row.Voted)
}

func TestUpdateEmptyValidatorList(t *testing.T) {
	store := &fakeStore{}
	u := newTestUpdater(store, &fakeStaking{})

	blockNum, failed, err := u.Update(context.Background())
	require.NoError(t, err)
	require.Zero(t, blockNum)
	require.Zero(t, failed)
	require.Empty(t, store.rows)
}

func TestUpdateValidatorReadFailure(t *testing.T) {
	store := &fakeStore{validators: []string{validatorA, validatorB}}
	staking := &fakeStaking{
		validatorsErr: map[common.Address]error{common.HexToAddress(validatorA): errors.New("execution reverted")},
	}
	u := newTestUpdater(store, staking)

	_, failed, err := u.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, failed)

	rows := store.sortedRows()
	require.Len(t, rows, 1)
	require.Equal(t, validatorB, rows[0].Validator)
}

func TestUpdateStatusFailureWritesDefaults(t *testing.T) {
	store := &fakeStore{validators: []string{validatorA}}
	staking := &fakeStaking{
		statusErr: map[common.Address]error{common.HexToAddress(validatorA): errors.New("timeout")},
	}
	u := newTestUpdater(store, staking)

	_, failed, err := u.Update(context.Background())
	require.NoError(t, err)
	require.Zero(t, failed)

	rows := store.sortedRows()
	require.Len(t, rows, 1)
	require.False(t, rows[0].Active)
	require.Zero(t, rows[0].Voted)
	require.Equal(t, "5000", rows[0].Power.String())
}

func TestUpdateSkipsInvalidAddress(t *testing.T) {
	store := &fakeStore{validators: []string{"not-an-address", validatorA}}
	u := newTestUpdater(store, &fakeStaking{})

	_, failed, err := u.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, failed)
	require.Len(t, store.sortedRows(), 1)
}

func TestUpdateListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	u := newTestUpdater(store, &fakeStaking{})

	_, _, err := u.Update(context.Background())
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{validators: []string{validatorA}}
	u := newTestUpdater(store, &fakeStaking{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.sortedRows()) >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
