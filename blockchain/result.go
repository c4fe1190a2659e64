package blockchain

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
)

// BlockProcessingOutputs carries the products of a successfully processed
// block: the world state, already persisted under the block's identity, and
// one receipt per transaction in input order.
type BlockProcessingOutputs struct {
	WorldState state.MutableWorldState
	Receipts   model.Receipts
}

// BlockProcessingResult is the verdict of ProcessBlock. Exactly one of
// Outputs or the failure fields is set.
type BlockProcessingResult struct {
	Outputs *BlockProcessingOutputs

	// ErrorMessage holds a human readable failure reason.
	ErrorMessage string

	// Cause holds the underlying error of a failed sub-processor or
	// persistence call, when one exists.
	Cause error
}

// Successful builds a success result.
func Successful(worldState state.MutableWorldState, receipts model.Receipts) *BlockProcessingResult {
	return &BlockProcessingResult{Outputs: &BlockProcessingOutputs{WorldState: worldState, Receipts: receipts}}
}

// Failed builds a failure result with a reason string.
func Failed(reason string) *BlockProcessingResult {
	return &BlockProcessingResult{ErrorMessage: reason}
}

// FailedWith builds a failure result carrying an underlying error.
func FailedWith(cause error) *BlockProcessingResult {
	return &BlockProcessingResult{ErrorMessage: cause.Error(), Cause: cause}
}

// IsSuccessful reports whether the block was fully processed and persisted.
func (result *BlockProcessingResult) IsSuccessful() bool {
	return result.Outputs != nil
}

// IsFailed reports whether the block was rejected.
func (result *BlockProcessingResult) IsFailed() bool {
	return result.Outputs == nil
}

// FailureReason returns the reason of a failed result, suitable for logging.
func (result *BlockProcessingResult) FailureReason() string {
	return result.ErrorMessage
}
