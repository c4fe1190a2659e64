package blockchain

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
)

// StatusReceiptFactory builds post-Byzantium receipts: the execution status
// code replaces the intermediate state root.
func StatusReceiptFactory() ReceiptFactory {
	return func(txType uint8, result *TransactionProcessingResult, worldState state.WorldView, cumulativeGas uint64) *model.Receipt {
		receipt := &model.Receipt{
			Type:              txType,
			Status:            result.Status,
			CumulativeGasUsed: cumulativeGas,
			Logs:              result.Logs,
			ContractAddress:   result.ContractAddress,
		}
		receipt.Bloom = model.CreateBloom(model.Receipts{receipt})
		return receipt
	}
}
