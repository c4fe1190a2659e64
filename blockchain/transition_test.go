package blockchain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianio/go-meridian/blockchain/genesis"
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/config"
)

func TestTransitionNonceValidation(t *testing.T) {
	stateDB, diskdb := newTestState(t, defaultAlloc())
	stp := NewStateTransitionProcessor(config.TestChainConfig)
	header := newHeader(1, 30000)
	chain := newTestChain(diskdb)

	updater := stateDB.Updater()
	tooHigh := transferTx(5, addrA, addrB, 1, 21000)
	result := stp.ProcessTransaction(chain, updater, header, tooHigh, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.True(t, result.IsInvalid())
	assert.Equal(t, ErrNonceTooHigh.Error(), result.InvalidReason)
	updater.Discard()

	// The failed validation left the sender untouched.
	assert.Equal(t, int64(100), stateDB.GetBalance(addrA).Int64())
}

func TestTransitionFeeSettlement(t *testing.T) {
	balance := big.NewInt(1e18)
	stateDB, diskdb := newTestState(t, genesis.Alloc{addrA: {Balance: balance}})
	stp := NewStateTransitionProcessor(config.TestChainConfig)

	header := newHeader(1, 100000)
	header.BaseFee = big.NewInt(10)
	to := addrB
	tx := model.NewTransaction(model.TxOpts{
		Type:      model.DynamicFeeTxType,
		Nonce:     0,
		From:      addrA,
		To:        &to,
		Value:     big.NewInt(1000),
		Gas:       30000,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(15),
	})

	updater := stateDB.Updater()
	result := stp.ProcessTransaction(newTestChain(diskdb), updater, header, tx, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.False(t, result.IsInvalid())
	updater.Commit()

	gasUsed := tx.Gas() - result.GasRemaining
	assert.Equal(t, uint64(21000), gasUsed)

	// Sender paid value plus the effective price (base 10 + tip 2) per gas.
	spent := new(big.Int).Add(big.NewInt(1000), new(big.Int).Mul(big.NewInt(12), new(big.Int).SetUint64(gasUsed)))
	wantSender := new(big.Int).Sub(balance, spent)
	assert.Equal(t, wantSender.String(), stateDB.GetBalance(addrA).String())

	// The beneficiary collects only the tip; the base fee share is burned.
	wantFee := new(big.Int).Mul(big.NewInt(2), new(big.Int).SetUint64(gasUsed))
	assert.Equal(t, wantFee.String(), stateDB.GetBalance(coinbase).String())
	assert.Equal(t, int64(1000), stateDB.GetBalance(addrB).Int64())
}

func TestTransitionFeeCapBelowBaseFee(t *testing.T) {
	stateDB, diskdb := newTestState(t, defaultAlloc())
	stp := NewStateTransitionProcessor(config.TestChainConfig)
	header := newHeader(1, 30000)
	header.BaseFee = big.NewInt(100)
	to := addrB
	tx := model.NewTransaction(model.TxOpts{
		Type:      model.DynamicFeeTxType,
		From:      addrA,
		To:        &to,
		Gas:       21000,
		GasFeeCap: big.NewInt(50),
		GasTipCap: big.NewInt(1),
	})

	updater := stateDB.Updater()
	result := stp.ProcessTransaction(newTestChain(diskdb), updater, header, tx, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.True(t, result.IsInvalid())
	assert.Equal(t, ErrFeeCapTooLow.Error(), result.InvalidReason)
	updater.Discard()
}

func TestTransitionContractCreation(t *testing.T) {
	stateDB, diskdb := newTestState(t, genesis.Alloc{addrA: {Balance: big.NewInt(1e18)}})
	stp := NewStateTransitionProcessor(config.TestChainConfig)
	header := newHeader(1, 100000)
	tx := model.NewTransaction(model.TxOpts{
		From:     addrA,
		To:       nil,
		Value:    big.NewInt(77),
		Gas:      60000,
		GasPrice: new(big.Int),
	})

	updater := stateDB.Updater()
	result := stp.ProcessTransaction(newTestChain(diskdb), updater, header, tx, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.False(t, result.IsInvalid())
	updater.Commit()

	assert.NotEqual(t, common.Address{}, result.ContractAddress)
	assert.Equal(t, int64(77), stateDB.GetBalance(result.ContractAddress).Int64())
	assert.Equal(t, uint64(60000-TxGasContractCreation), result.GasRemaining)
}

func TestTransitionInsufficientFunds(t *testing.T) {
	stateDB, diskdb := newTestState(t, defaultAlloc())
	stp := NewStateTransitionProcessor(config.TestChainConfig)
	header := newHeader(1, 30000)
	chain := newTestChain(diskdb)

	// The value alone exceeds the sender's balance.
	tooBig := transferTx(0, addrA, addrB, 200, 21000)
	updater := stateDB.Updater()
	result := stp.ProcessTransaction(chain, updater, header, tooBig, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.True(t, result.IsInvalid())
	assert.Equal(t, ErrInsufficientFundsForTransfer.Error(), result.InvalidReason)
	updater.Discard()

	// The value fits but value plus fees does not.
	to := addrB
	priced := model.NewTransaction(model.TxOpts{
		Nonce:    0,
		From:     addrA,
		To:       &to,
		Value:    big.NewInt(50),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	updater = stateDB.Updater()
	result = stp.ProcessTransaction(chain, updater, header, priced, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.True(t, result.IsInvalid())
	assert.Equal(t, ErrInsufficientFunds.Error(), result.InvalidReason)
	updater.Discard()
}

func TestTransitionIntrinsicGasTooLow(t *testing.T) {
	stateDB, diskdb := newTestState(t, defaultAlloc())
	stp := NewStateTransitionProcessor(config.TestChainConfig)
	header := newHeader(1, 30000)
	tx := transferTx(0, addrA, addrB, 1, 20999)

	updater := stateDB.Updater()
	result := stp.ProcessTransaction(newTestChain(diskdb), updater, header, tx, coinbase, NoTracing, nil, true, ProcessingBlock(), nil)
	require.True(t, result.IsInvalid())
	assert.Equal(t, ErrIntrinsicGas.Error(), result.InvalidReason)
	updater.Discard()
}
