package blockchain

import (
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/crypto"
	"github.com/meridianio/go-meridian/config"
)

// Intrinsic gas costs per the yellow paper.
const (
	TxGas                 = 21000 // Per transaction not creating a contract.
	TxGasContractCreation = 53000 // Per transaction that creates a contract.
	TxDataZeroGas         = 4     // Per byte of data attached to a transaction that equals zero.
	TxDataNonZeroGas      = 16    // Per byte of data attached to a transaction that is not zero.
)

// StateTransitionProcessor is the native transaction processor for plain
// value transfers: it validates the message, buys gas, moves value and
// settles fees with the beneficiary. Contract execution is delegated to an
// EVM-backed implementation of TransactionProcessor and is not handled here.
type StateTransitionProcessor struct {
	chainConfig *config.ChainConfig
}

// NewStateTransitionProcessor returns the value-transfer processor for the
// given chain configuration.
func NewStateTransitionProcessor(chainConfig *config.ChainConfig) *StateTransitionProcessor {
	return &StateTransitionProcessor{chainConfig: chainConfig}
}

// ProcessTransaction validates and applies a single transaction. All
// validation happens before the first state mutation, so an invalid result
// implies an untouched updater.
func (stp *StateTransitionProcessor) ProcessTransaction(
	chain ChainContext,
	updater state.WorldUpdater,
	header *model.Header,
	tx *model.Transaction,
	beneficiary common.Address,
	tracer OperationTracer,
	blockHash BlockHashFunc,
	isPersistingState bool,
	validation ValidationParams,
	metadata PrivateMetadata,
) *TransactionProcessingResult {
	tracer.CaptureTxStart(tx.Gas())

	sender := tx.From()
	if validation.CheckNonce {
		nonce := updater.GetNonce(sender)
		if nonce < tx.Nonce() {
			return invalidResult(ErrNonceTooHigh.Error())
		} else if nonce > tx.Nonce() {
			return invalidResult(ErrNonceTooLow.Error())
		}
	}

	// Settle the per-gas price the sender will actually pay.
	gasPrice := tx.GasPrice()
	if header.BaseFee != nil {
		tip, err := tx.EffectiveGasTip(header.BaseFee)
		if err != nil {
			return invalidResult(ErrFeeCapTooLow.Error())
		}
		gasPrice = new(big.Int).Add(header.BaseFee, tip)
	}

	gas, overflow := intrinsicGas(tx.Data(), tx.To() == nil)
	if overflow || tx.Gas() < gas {
		return invalidResult(ErrIntrinsicGas.Error())
	}

	if validation.CheckBalance {
		balance := updater.GetBalance(sender)
		if balance.Cmp(tx.Value()) < 0 {
			return invalidResult(ErrInsufficientFundsForTransfer.Error())
		}
		cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas()))
		cost.Add(cost, tx.Value())
		if balance.Cmp(cost) < 0 {
			return invalidResult(ErrInsufficientFunds.Error())
		}
	}

	// Buy gas up front, then move the value.
	updater.SubBalance(sender, new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas())))
	updater.SubBalance(sender, tx.Value())
	updater.SetNonce(sender, tx.Nonce()+1)

	result := &TransactionProcessingResult{Status: model.ReceiptStatusSuccessful}
	if to := tx.To(); to != nil {
		updater.AddBalance(*to, tx.Value())
	} else {
		contractAddr := crypto.CreateAddress(sender, tx.Nonce())
		updater.CreateAccount(contractAddr)
		updater.AddBalance(contractAddr, tx.Value())
		result.ContractAddress = contractAddr
	}

	// Refund the unused portion and pay the beneficiary their tip. The base
	// fee share of the price is burned by never being credited.
	gasRemaining := tx.Gas() - gas
	refund := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasRemaining))
	updater.AddBalance(sender, refund)

	tipPerGas := gasPrice
	if header.BaseFee != nil {
		tipPerGas = new(big.Int).Sub(gasPrice, header.BaseFee)
	}
	fee := new(big.Int).Mul(tipPerGas, new(big.Int).SetUint64(gas))
	updater.AddBalance(beneficiary, fee)

	result.GasRemaining = gasRemaining
	tracer.CaptureTxEnd(gasRemaining)
	return result
}

func invalidResult(reason string) *TransactionProcessingResult {
	return &TransactionProcessingResult{InvalidReason: reason}
}

// intrinsicGas computes the gas consumed before any execution happens.
func intrinsicGas(data []byte, isContractCreation bool) (uint64, bool) {
	var gas uint64
	if isContractCreation {
		gas = TxGasContractCreation
	} else {
		gas = TxGas
	}
	if len(data) > 0 {
		var nz uint64
		for _, byt := range data {
			if byt != 0 {
				nz++
			}
		}
		gas += nz * TxDataNonZeroGas
		gas += (uint64(len(data)) - nz) * TxDataZeroGas
	}
	return gas, false
}
