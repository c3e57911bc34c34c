package abi

import (
	"math/big"
	"testing"

	"github.com/bradleyjkemp/cupaloy/v2"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	validator = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	delegator = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	staker    = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	snapshotter = cupaloy.New(cupaloy.FailOnUpdate(false))
)

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func packData(t *testing.T, event abi.Event, args ...interface{}) []byte {
	t.Helper()

	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return data
}

func TestTopicsMatchSignatures(t *testing.T) {
	tests := []struct {
		event abi.Event
		topic common.Hash
	}{
		{stakeEvent, StakeTopic},
		{delegationEvent, DelegationTopic},
		{undelegationEvent, UndelegationTopic},
		{epochEvent, EpochTopic},
		{jailedEvent, JailedTopic},
		{punishEvent, PunishTopic},
		{updateValidatorEvent, UpdateValidatorTopic},
		{proposerEvent, ProposerTopic},
		{coinbaseMintEvent, CoinbaseMintTopic},
	}

	for _, test := range tests {
		assert.Equal(t, test.topic, test.event.ID, test.event.Sig)
	}
}

func TestDecodeDelegation(t *testing.T) {
	topics := []common.Hash{DelegationTopic, addressTopic(validator), addressTopic(delegator)}
	data := packData(t, delegationEvent, big.NewInt(1000))

	ev, err := Decode(topics, data)
	require.NoError(t, err)

	require.Equal(t, &Delegation{
		Validator: validator,
		Delegator: delegator,
		Amount:    decimal.NewFromInt(1000),
	}, ev)
}

func TestDecodeUnknownTopic(t *testing.T) {
	topics := []common.Hash{common.HexToHash("0x1234"), addressTopic(validator)}

	ev, err := Decode(topics, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Nil(t, ev)

	ev, err = Decode(nil, nil)
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestDecodeMalformedPayload(t *testing.T) {
	t.Run("short data", func(t *testing.T) {
		topics := []common.Hash{DelegationTopic, addressTopic(validator), addressTopic(delegator)}

		_, err := Decode(topics, []byte{0x01, 0x02})
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		require.Equal(t, "Delegation", decodeErr.Event)
	})

	t.Run("missing indexed topic", func(t *testing.T) {
		topics := []common.Hash{DelegationTopic, addressTopic(validator)}

		_, err := Decode(topics, packData(t, delegationEvent, big.NewInt(1)))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := Decode([]common.Hash{EpochTopic}, nil)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("epoch overflow", func(t *testing.T) {
		huge := new(big.Int).Lsh(big.NewInt(1), 100)

		_, err := Decode([]common.Hash{EpochTopic}, packData(t, epochEvent, huge))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestDecodeAmountsKeepPrecision(t *testing.T) {
	// 2^200 does not fit any machine integer
	amount := new(big.Int).Lsh(big.NewInt(1), 200)
	topics := []common.Hash{DelegationTopic, addressTopic(validator), addressTopic(delegator)}

	ev, err := Decode(topics, packData(t, delegationEvent, amount))
	require.NoError(t, err)
	require.Equal(t, amount.String(), ev.(*Delegation).Amount.String())
}

func TestDecodeAllEvents(t *testing.T) {
	publicKey := []byte{0x02, 0x03, 0x04}

	logs := []struct {
		name   string
		topics []common.Hash
		data   []byte
	}{
		{
			"stake",
			[]common.Hash{StakeTopic, addressTopic(validator), addressTopic(staker)},
			packData(t, stakeEvent, publicKey, uint8(1), big.NewInt(5000), "memo", big.NewInt(10)),
		},
		{
			"delegation",
			[]common.Hash{DelegationTopic, addressTopic(validator), addressTopic(delegator)},
			packData(t, delegationEvent, big.NewInt(50)),
		},
		{
			"undelegation",
			[]common.Hash{UndelegationTopic, addressTopic(validator), addressTopic(delegator)},
			packData(t, undelegationEvent, big.NewInt(2), big.NewInt(1700000000), big.NewInt(25), uint8(1)),
		},
		{
			"epoch",
			[]common.Hash{EpochTopic},
			packData(t, epochEvent, big.NewInt(77)),
		},
		{
			"jailed",
			[]common.Hash{JailedTopic, addressTopic(validator)},
			packData(t, jailedEvent, true),
		},
		{
			"punish",
			[]common.Hash{PunishTopic},
			packData(t, punishEvent,
				[]common.Address{validator}, []common.Address{delegator}, []common.Address{}),
		},
		{
			"update validator",
			[]common.Hash{UpdateValidatorTopic, addressTopic(validator)},
			packData(t, updateValidatorEvent, "new memo", big.NewInt(20)),
		},
		{
			"proposer",
			[]common.Hash{ProposerTopic},
			packData(t, proposerEvent, validator),
		},
		{
			"coinbase mint",
			[]common.Hash{CoinbaseMintTopic, addressTopic(validator), addressTopic(delegator)},
			packData(t, coinbaseMintEvent, publicKey, big.NewInt(3)),
		},
	}

	decoded := make([]Event, 0, len(logs))
	for _, l := range logs {
		ev, err := Decode(l.topics, l.data)
		require.NoError(t, err, l.name)
		require.NotNil(t, ev, l.name)
		decoded = append(decoded, ev)
	}

	require.Equal(t, &Undelegation{
		Index:         2,
		Validator:     validator,
		Delegator:     delegator,
		UnlockTime:    1700000000,
		Amount:        decimal.NewFromInt(25),
		OperationType: 1,
	}, decoded[2])
	require.Equal(t, &Jailed{Validator: validator, Jailed: true}, decoded[4])
	require.Equal(t, &Proposer{Proposer: validator}, decoded[7])

	snapshotter.SnapshotT(t, decoded)
}
