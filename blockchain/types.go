package blockchain

import (
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/config"
)

// ChainContext supplies the block processor with read-only access to ancestor
// headers. It is only consulted for BLOCKHASH evaluation inside the EVM.
type ChainContext interface {
	// Config retrieves the blockchain's chain configuration.
	Config() *config.ChainConfig

	// GetHeader retrieves a block header from the database by hash and number.
	GetHeader(hash common.Hash, number uint64) *model.Header
}

// BlockHashFunc returns the hash of the n'th canonical block, as seen from
// the block currently being processed.
type BlockHashFunc func(n uint64) common.Hash

// TransactionProcessingResult is the verdict of a single transaction
// execution: either invalid with a validation message, or valid with the gas
// accounting and logs needed to build a receipt.
type TransactionProcessingResult struct {
	// InvalidReason is non-empty when the transaction failed validation
	// and produced no state changes.
	InvalidReason string

	// GasRemaining is the unspent portion of the transaction gas limit.
	GasRemaining uint64

	// Status is the receipt status code of the execution.
	Status uint64

	// Logs are the log events emitted during execution.
	Logs []*model.Log

	// ContractAddress is set when the transaction deployed a contract.
	ContractAddress common.Address
}

// IsInvalid reports whether the transaction was rejected outright.
func (result *TransactionProcessingResult) IsInvalid() bool {
	return result.InvalidReason != ""
}

// TransactionProcessor executes a single transaction against a staged world
// updater. Implementations must leave the updater untouched when returning
// an invalid result.
type TransactionProcessor interface {
	ProcessTransaction(
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
	) *TransactionProcessingResult
}

// OperationTracer observes the gas accounting of individual transactions.
// Block import passes NoTracing.
type OperationTracer interface {
	CaptureTxStart(gasLimit uint64)
	CaptureTxEnd(gasRemaining uint64)
}

// NoTracing is the no-op tracer used during block import.
var NoTracing OperationTracer = noopTracer{}

type noopTracer struct{}

func (noopTracer) CaptureTxStart(uint64) {}
func (noopTracer) CaptureTxEnd(uint64)   {}

// ValidationParams tunes which pre-execution checks the transaction
// processor applies.
type ValidationParams struct {
	CheckNonce   bool
	CheckBalance bool
}

// ProcessingBlock returns the validation profile used during block import:
// every check enabled.
func ProcessingBlock() ValidationParams {
	return ValidationParams{CheckNonce: true, CheckBalance: true}
}

// PrivateMetadata is an opaque pass-through handed to the transaction
// processor. The block processor never interprets it.
type PrivateMetadata interface{}

// ReceiptFactory builds a receipt from a transaction execution. The
// cumulative gas argument is the running block total up to and including the
// transaction.
type ReceiptFactory func(txType uint8, result *TransactionProcessingResult, worldState state.WorldView, cumulativeGas uint64) *model.Receipt

// MiningBeneficiaryCalculator yields the address credited with execution
// fees and the block reward. For mainnet this is the header coinbase; proof
// of authority networks credit the block signer instead.
type MiningBeneficiaryCalculator interface {
	CalculateBeneficiary(header *model.Header) common.Address
}

// WithdrawalsProcessor applies consensus-layer withdrawals to the world
// state. Implementations may fail, which aborts the enclosing block.
type WithdrawalsProcessor interface {
	ProcessWithdrawals(withdrawals model.Withdrawals, updater state.WorldUpdater) error
}

// DepositsProcessor collects validator deposit receipts surfaced during the
// block. Implementations may fail, which aborts the enclosing block.
type DepositsProcessor interface {
	ProcessDeposits(deposits model.Deposits, updater state.WorldUpdater) error
}

// RewardPolicy credits the mining beneficiary and eligible ommers after all
// block-level state changes have been applied. A false return rejects the
// block (an ommer exceeded the permitted generation distance).
type RewardPolicy interface {
	RewardCoinbase(worldState state.MutableWorldState, header *model.Header, ommers []*model.Header, skipZeroBlockRewards bool) bool
}

// ForkSpec is the per-fork capability set resolved from a block header. The
// withdrawals and deposits processors are nil for forks predating them.
type ForkSpec struct {
	Name                 string
	WithdrawalsProcessor WithdrawalsProcessor
	DepositsProcessor    DepositsProcessor
}

// ProtocolSchedule maps a block header to the fork capabilities active at
// that height and timestamp. Lookups are cheap and never cached by callers.
type ProtocolSchedule interface {
	GetByBlockHeader(header *model.Header) *ForkSpec
}

// WeiPerGwei converts beacon-chain Gwei amounts to wei.
var WeiPerGwei = big.NewInt(1e9)
