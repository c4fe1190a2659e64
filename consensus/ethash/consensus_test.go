package ethash

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/database/memorydb"
)

var (
	minerAddr = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	ommerAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

func newRewardState(t *testing.T) *state.StateDB {
	t.Helper()
	stateDB, err := state.New(state.NewDatabase(memorydb.New()))
	require.NoError(t, err)
	return stateDB
}

func rewardHeader(number uint64, coinbase common.Address) *model.Header {
	return &model.Header{
		Number:     new(big.Int).SetUint64(number),
		Coinbase:   coinbase,
		Difficulty: new(big.Int),
	}
}

func TestMinerRewardNoOmmers(t *testing.T) {
	stateDB := newRewardState(t)
	policy := NewRewardPolicy(ByzantiumBlockReward)

	ok := policy.RewardCoinbase(stateDB, rewardHeader(10, minerAddr), nil, false)
	require.True(t, ok)
	assert.Equal(t, ByzantiumBlockReward.String(), stateDB.GetBalance(minerAddr).String())
}

func TestMinerRewardWithOmmers(t *testing.T) {
	stateDB := newRewardState(t)
	reward := big.NewInt(32e9)
	policy := NewRewardPolicy(reward)

	header := rewardHeader(10, minerAddr)
	ommers := []*model.Header{
		rewardHeader(8, ommerAddr),
		rewardHeader(9, ommerAddr),
	}
	require.True(t, policy.RewardCoinbase(stateDB, header, ommers, false))

	// Miner: base + 2 * base/32.
	wantMiner := new(big.Int).Add(reward, new(big.Int).Mul(big.NewInt(2), big.NewInt(1e9)))
	assert.Equal(t, wantMiner.String(), stateDB.GetBalance(minerAddr).String())

	// Ommers: (8 - distance) * base / 8 each, paid to the same coinbase.
	dist2 := new(big.Int).Div(new(big.Int).Mul(big.NewInt(6), reward), big.NewInt(8))
	dist1 := new(big.Int).Div(new(big.Int).Mul(big.NewInt(7), reward), big.NewInt(8))
	wantOmmer := new(big.Int).Add(dist1, dist2)
	assert.Equal(t, wantOmmer.String(), stateDB.GetBalance(ommerAddr).String())
}

func TestOmmerTooOldRejected(t *testing.T) {
	stateDB := newRewardState(t)
	policy := NewRewardPolicy(big.NewInt(2e18))

	header := rewardHeader(10, minerAddr)
	ommers := []*model.Header{rewardHeader(3, ommerAddr)} // seven generations back

	require.False(t, policy.RewardCoinbase(stateDB, header, ommers, false))
	// The discarded updater left no credits behind.
	assert.Equal(t, int64(0), stateDB.GetBalance(minerAddr).Int64())
	assert.Equal(t, int64(0), stateDB.GetBalance(ommerAddr).Int64())
}

func TestOmmerAtGenerationBoundAccepted(t *testing.T) {
	stateDB := newRewardState(t)
	policy := NewRewardPolicy(big.NewInt(8))

	header := rewardHeader(10, minerAddr)
	ommers := []*model.Header{rewardHeader(4, ommerAddr)} // exactly six generations

	require.True(t, policy.RewardCoinbase(stateDB, header, ommers, false))
	// (8 - 6) * 8 / 8 = 2 wei.
	assert.Equal(t, int64(2), stateDB.GetBalance(ommerAddr).Int64())
}

func TestSkipZeroBlockRewards(t *testing.T) {
	stateDB := newRewardState(t)
	policy := NewRewardPolicy(new(big.Int))

	header := rewardHeader(10, minerAddr)
	// Even an over-aged ommer is not inspected when issuance is skipped.
	ommers := []*model.Header{rewardHeader(1, ommerAddr)}

	require.True(t, policy.RewardCoinbase(stateDB, header, ommers, true))
	assert.False(t, stateDB.Exist(minerAddr))
	assert.False(t, stateDB.Exist(ommerAddr))
}

func TestZeroRewardWithoutSkipStillChecksOmmers(t *testing.T) {
	stateDB := newRewardState(t)
	policy := NewRewardPolicy(new(big.Int))

	header := rewardHeader(10, minerAddr)
	ommers := []*model.Header{rewardHeader(1, ommerAddr)}

	require.False(t, policy.RewardCoinbase(stateDB, header, ommers, false))
}
