package blockchain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/config"
)

func scheduleHeader(number uint64, time uint64) *model.Header {
	return &model.Header{Number: new(big.Int).SetUint64(number), Time: time, Difficulty: new(big.Int)}
}

func TestScheduleFrontier(t *testing.T) {
	schedule := NewProtocolSchedule(&config.ChainConfig{ChainID: big.NewInt(1)})
	spec := schedule.GetByBlockHeader(scheduleHeader(1, 1))
	assert.Equal(t, "frontier", spec.Name)
	assert.Nil(t, spec.WithdrawalsProcessor)
	assert.Nil(t, spec.DepositsProcessor)
}

func TestScheduleShanghaiGating(t *testing.T) {
	shanghai := uint64(1000)
	chainConfig := &config.ChainConfig{ChainID: big.NewInt(1), ShanghaiTime: &shanghai}
	schedule := NewProtocolSchedule(chainConfig)

	before := schedule.GetByBlockHeader(scheduleHeader(1, 999))
	assert.Nil(t, before.WithdrawalsProcessor)

	after := schedule.GetByBlockHeader(scheduleHeader(2, 1000))
	assert.NotNil(t, after.WithdrawalsProcessor)
	assert.Nil(t, after.DepositsProcessor)
	assert.Equal(t, "shanghai", after.Name)
}

func TestSchedulePragueGating(t *testing.T) {
	schedule := NewProtocolSchedule(config.TestChainConfig)
	spec := schedule.GetByBlockHeader(scheduleHeader(1, 1))
	assert.NotNil(t, spec.WithdrawalsProcessor)
	assert.NotNil(t, spec.DepositsProcessor)
	assert.Equal(t, "prague", spec.Name)
}

// Every lookup assembles a fresh spec: mutating one must not leak into the
// next.
func TestScheduleLookupIsFresh(t *testing.T) {
	schedule := NewProtocolSchedule(config.TestChainConfig)
	first := schedule.GetByBlockHeader(scheduleHeader(1, 1))
	first.WithdrawalsProcessor = nil
	second := schedule.GetByBlockHeader(scheduleHeader(1, 1))
	assert.NotNil(t, second.WithdrawalsProcessor)
}
