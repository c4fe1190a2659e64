package blockchain

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/config"
)

// HeaderBasedProtocolSchedule resolves the fork capabilities active for a
// header from the chain configuration. The withdrawals processor switches on
// at the Shanghai timestamp, the deposits processor at the Prague timestamp.
type HeaderBasedProtocolSchedule struct {
	chainConfig *config.ChainConfig

	withdrawals WithdrawalsProcessor
	deposits    DepositsProcessor
}

// NewProtocolSchedule builds the mainnet protocol schedule for the given
// chain configuration.
func NewProtocolSchedule(chainConfig *config.ChainConfig) *HeaderBasedProtocolSchedule {
	return &HeaderBasedProtocolSchedule{
		chainConfig: chainConfig,
		withdrawals: NewWithdrawalsProcessor(),
		deposits:    NewDepositsProcessor(nil),
	}
}

// WithDepositSink replaces the deposit sink, letting payload builders collect
// the deposits accepted while processing a block.
func (schedule *HeaderBasedProtocolSchedule) WithDepositSink(sink func(*model.Deposit)) *HeaderBasedProtocolSchedule {
	cpy := *schedule
	cpy.deposits = NewDepositsProcessor(sink)
	return &cpy
}

// Config returns the chain configuration the schedule was built from.
func (schedule *HeaderBasedProtocolSchedule) Config() *config.ChainConfig {
	return schedule.chainConfig
}

// GetByBlockHeader returns the fork spec active at the header's height and
// timestamp. The result is freshly assembled on every call; callers must not
// cache it across operations.
func (schedule *HeaderBasedProtocolSchedule) GetByBlockHeader(header *model.Header) *ForkSpec {
	spec := &ForkSpec{Name: "frontier"}
	if schedule.chainConfig.IsLondon(header.Number) {
		spec.Name = "london"
	}
	if schedule.chainConfig.IsShanghai(header.Time) {
		spec.Name = "shanghai"
		spec.WithdrawalsProcessor = schedule.withdrawals
	}
	if schedule.chainConfig.IsPrague(header.Time) {
		spec.Name = "prague"
		spec.DepositsProcessor = schedule.deposits
	}
	return spec
}
