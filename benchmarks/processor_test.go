package benchmarks

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"evm-staking-indexer/chain"
	"evm-staking-indexer/database"
	"evm-staking-indexer/indexer"
	"evm-staking-indexer/indexer/abi"
	indexer_testing "evm-staking-indexer/testing"

	"github.com/ethereum/go-ethereum/common"
)

const txsPerBlock = 50

// discardStore accepts every write, so the benchmark measures fetch and decode.
type discardStore struct{}

func (discardStore) GetTip(context.Context) (uint64, error) { return 0, database.ErrTipNotFound }

func (discardStore) SetTip(context.Context, uint64) error { return nil }

func (discardStore) UpsertReceipt(context.Context, *database.Receipt) error { return nil }

func (discardStore) UpsertEvent(context.Context, database.TxRef, abi.Event) error { return nil }

func newBenchmarkNode(b *testing.B) (*indexer_testing.MockTendermint, chain.Client) {
	b.Helper()

	mock := indexer_testing.NewMockTendermint()
	contract := common.HexToAddress("0x000000000000000000000000000000000000f000")
	amount := common.LeftPadBytes([]byte{0x32}, 32)

	txs := make([][]byte, txsPerBlock)
	for i := range txs {
		txs[i] = append(append([]byte{}, chain.EVMTxTag...), []byte(fmt.Sprintf("delegate-%d", i))...)
		mock.SetCallResult(chain.TxHash(txs[i]), 1, indexer_testing.EVMLog{
			Address: contract,
			Topics: []common.Hash{
				abi.DelegationTopic,
				common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
				common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
			},
			Data: amount,
		})
	}
	mock.AddBlock(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), txs...)

	u, err := url.Parse(mock.URL())
	if err != nil {
		b.Fatal(err)
	}
	return mock, chain.NewTendermintClient(u, 5*time.Second)
}

func BenchmarkProcessBlock(b *testing.B) {
	mock, client := newBenchmarkNode(b)
	defer mock.Close()

	processor := indexer.NewBlockProcessor(client, discardStore{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := processor.ProcessBlock(ctx, 1); err != nil {
			b.Fatal(err)
		}
	}
}
