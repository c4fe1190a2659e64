// Package beacon carries the engine API payload shapes exchanged with the
// consensus client.
package beacon

import (
	"fmt"
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
)

// PayloadAttributes is the set of parameters a consensus client sends to
// start a payload build job.
type PayloadAttributes struct {
	Timestamp             hexutil.Uint64    `json:"timestamp"`
	Random                common.Hash       `json:"prevRandao"`
	SuggestedFeeRecipient common.Address    `json:"suggestedFeeRecipient"`
	Withdrawals           model.Withdrawals `json:"withdrawals"`
}

// ExecutionPayloadEnvelope is the engine getPayload result object. Field
// order and null policy are part of the wire contract and must not change.
type ExecutionPayloadEnvelope struct {
	ExecutionPayload *ExecutableData `json:"executionPayload"`
	BlockValue       *hexutil.Big    `json:"blockValue"`
}

// ExecutableData is the serialized form of an execution payload. Hashes and
// the bloom render as fixed-width hex, quantities as minimal hex strings.
// prevRandao and baseFeePerGas are null for pre-fork payloads; withdrawals
// and deposits are null, not empty lists, when the fork does not carry them.
type ExecutableData struct {
	BlockHash     common.Hash            `json:"blockHash"`
	ParentHash    common.Hash            `json:"parentHash"`
	FeeRecipient  common.Address         `json:"feeRecipient"`
	StateRoot     common.Hash            `json:"stateRoot"`
	ReceiptsRoot  common.Hash            `json:"receiptsRoot"`
	LogsBloom     hexutil.Bytes          `json:"logsBloom"`
	PrevRandao    *common.Hash           `json:"prevRandao"`
	BlockNumber   hexutil.Uint64         `json:"blockNumber"`
	GasLimit      hexutil.Uint64         `json:"gasLimit"`
	GasUsed       hexutil.Uint64         `json:"gasUsed"`
	Timestamp     hexutil.Uint64         `json:"timestamp"`
	ExtraData     hexutil.Bytes          `json:"extraData"`
	BaseFeePerGas *hexutil.Big           `json:"baseFeePerGas"`
	Transactions  []hexutil.Bytes        `json:"transactions"`
	Withdrawals   []*WithdrawalParameter `json:"withdrawals"`
	Deposits      []*DepositParameter    `json:"deposits"`
}

// WithdrawalParameter is the RPC rendering of a consensus-layer withdrawal.
type WithdrawalParameter struct {
	Index          hexutil.Uint64 `json:"index"`
	ValidatorIndex hexutil.Uint64 `json:"validatorIndex"`
	Address        common.Address `json:"address"`
	Amount         hexutil.Uint64 `json:"amount"`
}

// DepositParameter is the RPC rendering of a validator deposit receipt.
type DepositParameter struct {
	Pubkey                hexutil.Bytes  `json:"pubkey"`
	WithdrawalCredentials common.Hash    `json:"withdrawalCredentials"`
	Amount                hexutil.Uint64 `json:"amount"`
	Signature             hexutil.Bytes  `json:"signature"`
	Index                 hexutil.Uint64 `json:"index"`
}

// BlockToExecutableData renders a processed block into its payload form.
// The deposits collected during processing are passed separately: they are
// not part of the block body.
func BlockToExecutableData(block *model.Block, deposits model.Deposits) *ExecutableData {
	header := block.Header()
	data := &ExecutableData{
		BlockHash:    block.Hash(),
		ParentHash:   header.ParentHash,
		FeeRecipient: header.Coinbase,
		StateRoot:    header.Root,
		ReceiptsRoot: header.ReceiptHash,
		LogsBloom:    header.Bloom.Bytes(),
		BlockNumber:  hexutil.Uint64(header.Number.Uint64()),
		GasLimit:     hexutil.Uint64(header.GasLimit),
		GasUsed:      hexutil.Uint64(header.GasUsed),
		Timestamp:    hexutil.Uint64(header.Time),
		ExtraData:    header.Extra,
		Transactions: encodeTransactions(block.Transactions()),
	}
	if header.Difficulty == nil || header.Difficulty.Sign() == 0 {
		randao := header.MixDigest
		data.PrevRandao = &randao
	}
	if header.BaseFee != nil {
		data.BaseFeePerGas = (*hexutil.Big)(new(big.Int).Set(header.BaseFee))
	}
	if withdrawals := block.Withdrawals(); withdrawals != nil {
		data.Withdrawals = make([]*WithdrawalParameter, 0, len(withdrawals))
		for _, w := range withdrawals {
			data.Withdrawals = append(data.Withdrawals, &WithdrawalParameter{
				Index:          hexutil.Uint64(w.Index),
				ValidatorIndex: hexutil.Uint64(w.Validator),
				Address:        w.Address,
				Amount:         hexutil.Uint64(w.Amount),
			})
		}
	}
	if deposits != nil {
		data.Deposits = make([]*DepositParameter, 0, len(deposits))
		for _, d := range deposits {
			pubkey := d.Pubkey
			signature := d.Signature
			data.Deposits = append(data.Deposits, &DepositParameter{
				Pubkey:                pubkey[:],
				WithdrawalCredentials: d.WithdrawalCredentials,
				Amount:                hexutil.Uint64(d.Amount),
				Signature:             signature[:],
				Index:                 hexutil.Uint64(d.Index),
			})
		}
	}
	return data
}

// NewPayloadEnvelope wraps executable data with the fees it earns for the
// proposer.
func NewPayloadEnvelope(data *ExecutableData, blockValue *big.Int) *ExecutionPayloadEnvelope {
	value := new(big.Int)
	if blockValue != nil {
		value.Set(blockValue)
	}
	return &ExecutionPayloadEnvelope{
		ExecutionPayload: data,
		BlockValue:       (*hexutil.Big)(value),
	}
}

// PayloadID is an identifier of the payload build process.
type PayloadID [8]byte

func (b PayloadID) String() string {
	return hexutil.Encode(b[:])
}

func (b PayloadID) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

func (b *PayloadID) UnmarshalText(input []byte) error {
	err := hexutil.UnmarshalFixedText("PayloadID", input, b[:])
	if err != nil {
		return fmt.Errorf("invalid payload id %q: %w", input, err)
	}
	return nil
}

func encodeTransactions(txs []*model.Transaction) []hexutil.Bytes {
	enc := make([]hexutil.Bytes, len(txs))
	for i, tx := range txs {
		blob, _ := tx.MarshalBinary()
		enc[i] = blob
	}
	return enc
}
