package blockchain

import (
	"fmt"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/database/trie"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[blockchain]")

// BlockProcessor transitions the world state from one block to the next: it
// executes the block's transactions in order, applies withdrawals and
// deposits per the active fork, credits the coinbase and persists the result.
//
// A BlockProcessor is immutable after construction and safe for concurrent
// ProcessBlock calls as long as each call owns its world state exclusively.
type BlockProcessor struct {
	transactionProcessor        TransactionProcessor
	receiptFactory              ReceiptFactory
	rewards                     RewardPolicy
	miningBeneficiaryCalculator MiningBeneficiaryCalculator
	skipZeroBlockRewards        bool
	protocolSchedule            ProtocolSchedule
}

// NewBlockProcessor wires a block processor from its collaborators.
func NewBlockProcessor(
	transactionProcessor TransactionProcessor,
	receiptFactory ReceiptFactory,
	rewards RewardPolicy,
	miningBeneficiaryCalculator MiningBeneficiaryCalculator,
	skipZeroBlockRewards bool,
	protocolSchedule ProtocolSchedule,
) *BlockProcessor {
	return &BlockProcessor{
		transactionProcessor:        transactionProcessor,
		receiptFactory:              receiptFactory,
		rewards:                     rewards,
		miningBeneficiaryCalculator: miningBeneficiaryCalculator,
		skipZeroBlockRewards:        skipZeroBlockRewards,
		protocolSchedule:            protocolSchedule,
	}
}

// ProcessBlock executes the given block against worldState.
//
// The returned result is a success carrying the persisted world state and one
// receipt per transaction, or a failure describing why the block was
// rejected. The error return is reserved for storage corruption
// (*trie.MissingNodeError) discovered during persistence: it is propagated
// unchanged so the caller can trigger recovery, after the snapshot-backed
// state has been reset. On every failure path no further state mutation
// occurs after the result is built.
func (processor *BlockProcessor) ProcessBlock(
	chain ChainContext,
	worldState state.MutableWorldState,
	header *model.Header,
	transactions []*model.Transaction,
	ommers []*model.Header,
	withdrawals model.Withdrawals,
	deposits model.Deposits,
	metadata PrivateMetadata,
) (*BlockProcessingResult, error) {
	var (
		receipts      model.Receipts
		cumulativeGas uint64
		gp            = new(GasPool).AddGas(header.GasLimit)
	)
	for i, tx := range transactions {
		if !processor.hasAvailableBlockBudget(header, tx, gp) {
			resetIfSnapshotBacked(worldState)
			return Failed("provided gas insufficient"), nil
		}

		updater := worldState.Updater()
		blockHashes := NewBlockHashFunc(header, chain)
		beneficiary := processor.miningBeneficiaryCalculator.CalculateBeneficiary(header)

		result := processor.transactionProcessor.ProcessTransaction(
			chain, updater, header, tx, beneficiary,
			NoTracing, blockHashes, true, ProcessingBlock(), metadata)
		if result.IsInvalid() {
			reason := fmt.Sprintf("Block processing error: transaction invalid %s. Block %s Transaction %s",
				result.InvalidReason, header.Hash().Hex(), tx.Hash().Hex())
			log.Infof(reason)
			updater.Discard()
			resetIfSnapshotBacked(worldState)
			return Failed(reason), nil
		}
		updater.Commit()

		gasUsed := tx.Gas() - result.GasRemaining
		if err := gp.SubGas(gasUsed); err != nil {
			// Unreachable while the budget check above holds: gas used
			// never exceeds the transaction's own gas limit.
			resetIfSnapshotBacked(worldState)
			return Failed("provided gas insufficient"), nil
		}
		cumulativeGas += gasUsed
		receipt := processor.receiptFactory(tx.Type(), result, worldState, cumulativeGas)
		receipt.TxHash = tx.Hash()
		receipt.GasUsed = gasUsed
		receipt.BlockHash = header.Hash()
		receipt.BlockNumber = header.Number
		receipt.TransactionIndex = uint(i)
		receipts = append(receipts, receipt)
	}

	forkSpec := processor.protocolSchedule.GetByBlockHeader(header)
	if forkSpec.WithdrawalsProcessor != nil && withdrawals != nil {
		if err := forkSpec.WithdrawalsProcessor.ProcessWithdrawals(withdrawals, worldState.Updater()); err != nil {
			log.Errorf("failed processing withdrawals: %v", err)
			resetIfSnapshotBacked(worldState)
			return FailedWith(err), nil
		}
	}

	if forkSpec.DepositsProcessor != nil && deposits != nil {
		if err := forkSpec.DepositsProcessor.ProcessDeposits(deposits, worldState.Updater()); err != nil {
			log.Errorf("failed processing deposits: %v", err)
			resetIfSnapshotBacked(worldState)
			return FailedWith(err), nil
		}
	}

	if !processor.rewards.RewardCoinbase(worldState, header, ommers, processor.skipZeroBlockRewards) {
		// No need to log, the reward policy logs the offending ommer.
		resetIfSnapshotBacked(worldState)
		return Failed("ommer too old"), nil
	}

	if err := worldState.Persist(header); err != nil {
		if missing, ok := err.(*trie.MissingNodeError); ok {
			log.Debugf("missing trie node during block persistence: %v", missing)
			resetIfSnapshotBacked(worldState)
			return nil, missing
		}
		log.Errorf("failed persisting block: %v", err)
		resetIfSnapshotBacked(worldState)
		return FailedWith(err), nil
	}

	return Successful(worldState, receipts), nil
}

// hasAvailableBlockBudget checks that the transaction's gas limit, not just
// its eventual gas usage, still fits the gas left in the block pool. The
// comparison is unsigned so an oversized limit can never wrap into
// acceptance.
func (processor *BlockProcessor) hasAvailableBlockBudget(header *model.Header, tx *model.Transaction, gp *GasPool) bool {
	if tx.Gas() > gp.Gas() {
		log.Infof("Block processing error: transaction gas limit %d exceeds available block budget remaining %d. Block %s Transaction %s",
			tx.Gas(), gp.Gas(), header.Hash().Hex(), tx.Hash().Hex())
		return false
	}
	return true
}

// resetIfSnapshotBacked queries the optional rollback capability and drops
// the speculative diff when it is present.
func resetIfSnapshotBacked(worldState state.MutableWorldState) {
	if resettable, ok := worldState.(state.Resettable); ok {
		resettable.Reset()
	}
}
