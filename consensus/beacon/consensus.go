// Package beacon implements the post-merge reward policy.
package beacon

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[beacon]")

const maxGeneration = 6

// RewardPolicy is the proof-of-stake issuance schedule: nothing. Validator
// rewards are paid on the consensus layer, so no execution-layer state is
// written when a block is finalized.
type RewardPolicy struct{}

// NewRewardPolicy returns the post-merge policy.
func NewRewardPolicy() *RewardPolicy {
	return &RewardPolicy{}
}

// RewardCoinbase issues nothing. Post-merge blocks carry no ommers; should
// one appear anyway, the generation bound is still enforced so a malformed
// block is rejected rather than silently accepted.
func (policy *RewardPolicy) RewardCoinbase(worldState state.MutableWorldState, header *model.Header, ommers []*model.Header, skipZeroBlockRewards bool) bool {
	headerNumber := header.Number.Uint64()
	for _, ommer := range ommers {
		if headerNumber-ommer.Number.Uint64() > maxGeneration {
			log.Warningf("ommer block %d is more than %d generations old at block %d", ommer.Number.Uint64(), maxGeneration, headerNumber)
			return false
		}
	}
	return true
}
