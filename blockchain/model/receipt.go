package model

import (
	"fmt"
	"io"
	"math/big"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
	"github.com/meridianio/go-meridian/common/rlp"
)

const (
	// ReceiptStatusFailed is the status code of a transaction if execution failed.
	ReceiptStatusFailed = uint64(0)

	// ReceiptStatusSuccessful is the status code of a transaction if execution succeeded.
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt represents the results of a transaction.
type Receipt struct {
	// Consensus fields: These fields are defined by the Yellow Paper
	Type              uint8  `json:"type,omitempty"`
	PostState         []byte `json:"root"`
	Status            uint64 `json:"status"`
	CumulativeGasUsed uint64 `json:"cumulativeGasUsed" gencodec:"required"`
	Bloom             Bloom  `json:"logsBloom"         gencodec:"required"`
	Logs              []*Log `json:"logs"              gencodec:"required"`

	// Implementation fields: These fields are added by the node when
	// processing a transaction.
	TxHash          common.Hash    `json:"transactionHash" gencodec:"required"`
	ContractAddress common.Address `json:"contractAddress"`
	GasUsed         uint64         `json:"gasUsed" gencodec:"required"`

	// Inclusion information: These fields provide information about the
	// inclusion of the transaction corresponding to this receipt.
	BlockHash        common.Hash `json:"blockHash,omitempty"`
	BlockNumber      *big.Int    `json:"blockNumber,omitempty"`
	TransactionIndex uint        `json:"transactionIndex"`
}

// receiptRLP is the consensus encoding of a receipt.
type receiptRLP struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log
}

// field type overrides for gencodec
type receiptMarshaling struct {
	Type              hexutil.Uint64
	PostState         hexutil.Bytes
	Status            hexutil.Uint64
	CumulativeGasUsed hexutil.Uint64
	GasUsed           hexutil.Uint64
	BlockNumber       *hexutil.Big
	TransactionIndex  hexutil.Uint
}

// EncodeRLP implements rlp.Encoder, restricting the encoding to the
// consensus fields of the receipt. Typed receipts are prefixed with their
// transaction type byte.
func (receipt *Receipt) EncodeRLP(w io.Writer) error {
	data := receiptRLP{receipt.statusEncoding(), receipt.CumulativeGasUsed, receipt.Bloom, receipt.Logs}
	if receipt.Type != LegacyTxType {
		if _, err := w.Write([]byte{receipt.Type}); err != nil {
			return err
		}
	}
	return rlp.Encode(w, data)
}

// NewReceipt creates a barebone transaction receipt, copying the init fields.
func NewReceipt(root []byte, failed bool, cumulativeGasUsed uint64) *Receipt {
	r := &Receipt{
		Type:              LegacyTxType,
		PostState:         common.CopyBytes(root),
		CumulativeGasUsed: cumulativeGasUsed,
	}
	if failed {
		r.Status = ReceiptStatusFailed
	} else {
		r.Status = ReceiptStatusSuccessful
	}
	return r
}

// statusEncoding returns the PostState root when present, the status code
// otherwise. Byzantium replaced the intermediate state root in receipts with
// the boolean status.
func (receipt *Receipt) statusEncoding() []byte {
	if len(receipt.PostState) == 0 {
		if receipt.Status == ReceiptStatusFailed {
			return []byte{}
		}
		return []byte{0x01}
	}
	return receipt.PostState
}

// Size returns the approximate memory used by all internal contents.
func (receipt *Receipt) Size() common.StorageSize {
	size := common.StorageSize(unsafeReceiptSize) + common.StorageSize(len(receipt.PostState))
	size += common.StorageSize(len(receipt.Logs)) * common.StorageSize(unsafeLogSize)
	for _, log := range receipt.Logs {
		size += common.StorageSize(len(log.Topics)*common.HashLength + len(log.Data))
	}
	return size
}

const (
	unsafeReceiptSize = 256
	unsafeLogSize     = 128
)

// String implements the fmt.Stringer interface.
func (receipt *Receipt) String() string {
	return fmt.Sprintf("receipt{status=%d cgas=%v bloom=%x logs=%v}",
		receipt.Status, receipt.CumulativeGasUsed, receipt.Bloom, receipt.Logs)
}

// Receipts is a list of receipts.
type Receipts []*Receipt

// Len returns the number of receipts in this list.
func (rs Receipts) Len() int { return len(rs) }

// GasUsed returns the cumulative gas of the last receipt, which equals the
// total gas consumed by the block the receipts belong to.
func (rs Receipts) GasUsed() uint64 {
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1].CumulativeGasUsed
}
