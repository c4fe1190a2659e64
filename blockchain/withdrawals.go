package blockchain

import (
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
)

// ShanghaiWithdrawalsProcessor credits consensus-layer withdrawals to their
// target addresses. Withdrawal amounts are specified in Gwei and credited in
// wei; a withdrawal is a pure balance increase and can never fail on account
// state, only on malformed input.
type ShanghaiWithdrawalsProcessor struct{}

// NewWithdrawalsProcessor returns the post-Shanghai withdrawals processor.
func NewWithdrawalsProcessor() *ShanghaiWithdrawalsProcessor {
	return &ShanghaiWithdrawalsProcessor{}
}

// ProcessWithdrawals applies the given withdrawals through the updater and
// commits it. The withdrawal list must be sorted by strictly increasing
// index, as produced by the consensus layer.
func (wp *ShanghaiWithdrawalsProcessor) ProcessWithdrawals(withdrawals model.Withdrawals, updater state.WorldUpdater) error {
	for i, withdrawal := range withdrawals {
		if i > 0 && withdrawal.Index <= withdrawals[i-1].Index {
			updater.Discard()
			return ErrWithdrawalIndexOrder
		}
		amount := new(big.Int).Mul(new(big.Int).SetUint64(withdrawal.Amount), WeiPerGwei)
		updater.AddBalance(withdrawal.Address, amount)
		log.Debugf("withdrawal applied: index=%d validator=%d address=%x amount=%d gwei",
			withdrawal.Index, withdrawal.Validator, withdrawal.Address, withdrawal.Amount)
	}
	updater.Commit()
	return nil
}
