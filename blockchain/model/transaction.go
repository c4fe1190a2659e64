package model

import (
	"errors"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/rlp"
)

// Transaction types.
const (
	LegacyTxType = iota
	AccessListTxType
	DynamicFeeTxType
	BlobTxType
)

var (
	ErrInvalidTxType   = errors.New("transaction type not valid in this context")
	ErrGasFeeCapTooLow = errors.New("fee cap less than base fee")
)

// Transaction is a Meridian transaction as seen by the block processor: a
// type tag, the gas limit counted against the block budget, and the message
// fields consumed by the transaction processor. The sender is recovered
// during pre-execution validation and carried on the transaction.
type Transaction struct {
	inner txData

	// caches
	hash atomic.Value
	size atomic.Value
}

type txData struct {
	Type      uint8
	Nonce     uint64
	GasPrice  *big.Int // wei per gas, legacy transactions
	GasTipCap *big.Int `rlp:"optional"` // EIP-1559 priority fee per gas
	GasFeeCap *big.Int `rlp:"optional"` // EIP-1559 max fee per gas
	Gas       uint64
	To        *common.Address `rlp:"optional"` // nil means contract creation
	Value     *big.Int
	Data      []byte
	From      common.Address
}

// TxOpts carries the constructor arguments for NewTransaction.
type TxOpts struct {
	Type      uint8
	Nonce     uint64
	From      common.Address
	To        *common.Address
	Value     *big.Int
	Gas       uint64
	GasPrice  *big.Int
	GasTipCap *big.Int
	GasFeeCap *big.Int
	Data      []byte
}

// NewTransaction returns a transaction with the given fields. Value and price
// fields default to zero when nil.
func NewTransaction(opts TxOpts) *Transaction {
	inner := txData{
		Type:      opts.Type,
		Nonce:     opts.Nonce,
		From:      opts.From,
		To:        opts.To,
		Gas:       opts.Gas,
		Value:     bigOrZero(opts.Value),
		GasPrice:  bigOrZero(opts.GasPrice),
		GasTipCap: opts.GasTipCap,
		GasFeeCap: opts.GasFeeCap,
		Data:      common.CopyBytes(opts.Data),
	}
	return &Transaction{inner: inner}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Type returns the transaction type tag.
func (tx *Transaction) Type() uint8 { return tx.inner.Type }

// Nonce returns the sender account nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.Nonce }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.Gas }

// GasPrice returns the gas price of the transaction.
func (tx *Transaction) GasPrice() *big.Int { return new(big.Int).Set(tx.inner.GasPrice) }

// GasTipCap returns the gasTipCap per gas of the transaction.
func (tx *Transaction) GasTipCap() *big.Int {
	if tx.inner.GasTipCap == nil {
		return tx.GasPrice()
	}
	return new(big.Int).Set(tx.inner.GasTipCap)
}

// GasFeeCap returns the fee cap per gas of the transaction.
func (tx *Transaction) GasFeeCap() *big.Int {
	if tx.inner.GasFeeCap == nil {
		return tx.GasPrice()
	}
	return new(big.Int).Set(tx.inner.GasFeeCap)
}

// Value returns the ether amount of the transaction.
func (tx *Transaction) Value() *big.Int { return new(big.Int).Set(tx.inner.Value) }

// Data returns the input data of the transaction.
func (tx *Transaction) Data() []byte { return tx.inner.Data }

// To returns the recipient address of the transaction.
// For contract-creation transactions, To returns nil.
func (tx *Transaction) To() *common.Address {
	if tx.inner.To == nil {
		return nil
	}
	cpy := *tx.inner.To
	return &cpy
}

// From returns the sender of the transaction as recovered by pre-execution
// validation.
func (tx *Transaction) From() common.Address { return tx.inner.From }

// Hash returns the transaction hash.
func (tx *Transaction) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	var h common.Hash
	if tx.Type() == LegacyTxType {
		h = rlpHash(&tx.inner)
	} else {
		h = prefixedRlpHash(tx.Type(), &tx.inner)
	}
	tx.hash.Store(h)
	return h
}

// EffectiveGasTip returns the effective miner tip per gas for the given base
// fee: min(GasTipCap, GasFeeCap - baseFee). The error is non-nil when the
// effective tip is negative.
func (tx *Transaction) EffectiveGasTip(baseFee *big.Int) (*big.Int, error) {
	if baseFee == nil {
		return tx.GasTipCap(), nil
	}
	var err error
	gasFeeCap := tx.GasFeeCap()
	if gasFeeCap.Cmp(baseFee) < 0 {
		err = ErrGasFeeCapTooLow
	}
	tip := new(big.Int).Sub(gasFeeCap, baseFee)
	if gasTipCap := tx.GasTipCap(); tip.Cmp(gasTipCap) > 0 {
		tip = gasTipCap
	}
	return tip, err
}

// MarshalBinary returns the canonical consensus encoding of the transaction:
// the RLP payload for legacy transactions, type-prefixed RLP otherwise.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	payload, err := rlp.EncodeToBytes(&tx.inner)
	if err != nil {
		return nil, err
	}
	if tx.Type() == LegacyTxType {
		return payload, nil
	}
	return append([]byte{tx.Type()}, payload...), nil
}

// EncodeRLP implements rlp.Encoder. Legacy transactions encode as a field
// list; typed transactions nest their type-prefixed payload as a byte string,
// which is how they appear inside block bodies.
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	if tx.Type() == LegacyTxType {
		return rlp.Encode(w, &tx.inner)
	}
	blob, err := tx.MarshalBinary()
	if err != nil {
		return err
	}
	return rlp.Encode(w, blob)
}

// Transactions is a list of transactions.
type Transactions []*Transaction

// Len returns the length of s.
func (s Transactions) Len() int { return len(s) }
