// Package ethash implements the proof-of-work reward policy.
package ethash

import (
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[ethash]")

var (
	FrontierBlockReward       = big.NewInt(5e+18) // Block reward in wei for successfully mining a block
	ByzantiumBlockReward      = big.NewInt(3e+18) // Block reward in wei for successfully mining a block upward from Byzantium
	ConstantinopleBlockReward = big.NewInt(2e+18) // Block reward in wei for successfully mining a block upward from Constantinople

	big8  = big.NewInt(8)
	big32 = big.NewInt(32)
)

// maxGeneration is the furthest an ommer may trail the block rewarding it.
const maxGeneration = 6

// RewardPolicy credits the miner and eligible ommers according to the
// classic proof-of-work issuance schedule.
type RewardPolicy struct {
	blockReward *big.Int
}

// NewRewardPolicy builds a policy issuing blockReward wei per block.
func NewRewardPolicy(blockReward *big.Int) *RewardPolicy {
	return &RewardPolicy{blockReward: new(big.Int).Set(blockReward)}
}

// RewardCoinbase accumulates the mining and ommer inclusion rewards on the
// world state. It returns false, leaving the state untouched, when an ommer
// is older than maxGeneration permits; the block must then be rejected.
//
// With skipZeroBlockRewards set and a zero base reward no state is written
// at all, mirroring post-merge blocks where issuance moved to the consensus
// layer.
func (policy *RewardPolicy) RewardCoinbase(worldState state.MutableWorldState, header *model.Header, ommers []*model.Header, skipZeroBlockRewards bool) bool {
	if skipZeroBlockRewards && policy.blockReward.Sign() == 0 {
		return true
	}
	headerNumber := header.Number.Uint64()
	updater := worldState.Updater()
	minerReward := minerReward(policy.blockReward, len(ommers))
	for _, ommer := range ommers {
		ommerNumber := ommer.Number.Uint64()
		if headerNumber-ommerNumber > maxGeneration {
			log.Warningf("ommer block %d is more than %d generations old at block %d", ommerNumber, maxGeneration, headerNumber)
			updater.Discard()
			return false
		}
		updater.AddBalance(ommer.Coinbase, ommerReward(policy.blockReward, headerNumber, ommerNumber))
	}
	updater.AddBalance(header.Coinbase, minerReward)
	updater.Commit()
	return true
}

// minerReward is the base issuance plus 1/32 per included ommer.
func minerReward(blockReward *big.Int, ommerCount int) *big.Int {
	inclusion := new(big.Int).Div(blockReward, big32)
	inclusion.Mul(inclusion, big.NewInt(int64(ommerCount)))
	return inclusion.Add(inclusion, blockReward)
}

// ommerReward scales the base issuance by (8 + ommerNumber - headerNumber)/8.
func ommerReward(blockReward *big.Int, headerNumber, ommerNumber uint64) *big.Int {
	distance := new(big.Int).SetUint64(headerNumber - ommerNumber)
	reward := new(big.Int).Sub(big8, distance)
	reward.Mul(reward, blockReward)
	return reward.Div(reward, big8)
}
