package blockchain

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
)

// PragueDepositsProcessor validates the deposit receipts surfaced by the
// deposit contract during block execution. Deposits flow to the consensus
// layer and do not credit execution-layer accounts; processing them is a
// consistency check over the block-supplied list.
type PragueDepositsProcessor struct {
	// collected receives every processed deposit when non-nil, letting the
	// payload builder hand them to the consensus layer.
	collected func(*model.Deposit)
}

// NewDepositsProcessor returns the post-Prague deposits processor. The
// optional sink observes each accepted deposit in order.
func NewDepositsProcessor(sink func(*model.Deposit)) *PragueDepositsProcessor {
	return &PragueDepositsProcessor{collected: sink}
}

// ProcessDeposits checks the deposit list ordering and forwards each deposit
// to the configured sink. The updater is committed untouched: deposits do not
// mutate execution state.
func (dp *PragueDepositsProcessor) ProcessDeposits(deposits model.Deposits, updater state.WorldUpdater) error {
	for i, deposit := range deposits {
		if i > 0 && deposit.Index <= deposits[i-1].Index {
			updater.Discard()
			return ErrDepositIndexOrder
		}
		if dp.collected != nil {
			dp.collected(deposit)
		}
		log.Debugf("deposit collected: index=%d amount=%d gwei", deposit.Index, deposit.Amount)
	}
	updater.Commit()
	return nil
}
