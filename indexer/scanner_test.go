package indexer

import (
	"context"
	"net/url"
	"testing"
	"time"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/indexer/abi"
	indexer_testing "evm-staking-indexer/testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// TestScanTendermintChain runs the scanner against a mock node serving
// heights 1..10, with staking logs in heights 3 and 9.
func TestScanTendermintChain(t *testing.T) {
	mock := indexer_testing.NewMockTendermint()
	defer mock.Close()

	contract := common.HexToAddress("0x000000000000000000000000000000000000f000")
	blockTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for h := uint64(1); h <= 10; h++ {
		mock.AddBlock(h, blockTime.Add(time.Duration(h)*time.Second))
	}

	delegate := append(append([]byte{}, chain.EVMTxTag...), []byte("delegate")...)
	mock.AddBlock(3, blockTime, []byte("bank:send"), delegate)
	mock.SetCallResult(chain.TxHash(delegate), 3, indexer_testing.EVMLog{
		Address: contract,
		Topics:  delegationLog(0, 0).Topics,
		Data:    word(50),
	})

	epoch := append(append([]byte{}, chain.EVMTxTag...), []byte("epoch")...)
	mock.AddBlock(9, blockTime, epoch)
	mock.SetCallResult(chain.TxHash(epoch), 9,
		indexer_testing.EVMLog{Address: contract, Topics: []common.Hash{abi.EpochTopic}, Data: word(12)},
		indexer_testing.EVMLog{Address: contract, Topics: []common.Hash{common.HexToHash("0x01")}, Data: word(1)},
	)

	u, err := url.Parse(mock.URL())
	require.NoError(t, err)
	client := chain.NewTendermintClient(u, 5*time.Second)

	store := newFakeStore()
	params := testScannerConfig(2)
	params.StartHeight = 1
	scanner := NewScanner(NewBlockProcessor(client, store), store, params)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scanner.Run(ctx) }()

	require.Eventually(t, func() bool {
		tip, ok := store.currentTip()
		return ok && tip == 10
	}, 10*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	store.mu.Lock()
	defer store.mu.Unlock()

	require.Len(t, store.events, 2)
	require.Len(t, store.delegations, 1)
	for _, d := range store.delegations {
		require.Equal(t, "50", d.Amount.String())
	}
	require.Contains(t, store.events, abi.Event(&abi.Epoch{Epoch: 12}))
	require.Len(t, store.receipts, 2)
	requireNonDecreasing(t, store.tipHistory)
}
