package model

import (
	"math/big"
	"testing"

	"github.com/meridianio/go-meridian/common"
)

func newTestHeader() *Header {
	return &Header{
		ParentHash: common.HexToHash("0x83cafc574e1f51ba9dc0568fc617a08ea2429fb384059c972f13b19fa1c8dd55"),
		Coinbase:   common.HexToAddress("0x8888f1f195afa192cfee860698584c030f4c9db1"),
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(1),
		GasLimit:   3141592,
		GasUsed:    21000,
		Time:       1426516743,
	}
}

func TestCopyHeaderIsDeep(t *testing.T) {
	header := newTestHeader()
	header.BaseFee = big.NewInt(7)
	withdrawalsHash := common.HexToHash("0x9988")
	header.WithdrawalsHash = &withdrawalsHash

	cpy := CopyHeader(header)
	cpy.Number.SetUint64(99)
	cpy.BaseFee.SetUint64(99)
	*cpy.WithdrawalsHash = common.Hash{}

	if header.Number.Uint64() != 1 {
		t.Error("copy aliased the block number")
	}
	if header.BaseFee.Uint64() != 7 {
		t.Error("copy aliased the base fee")
	}
	if *header.WithdrawalsHash != withdrawalsHash {
		t.Error("copy aliased the withdrawals hash")
	}
}

func TestHeaderHashSensitivity(t *testing.T) {
	a := newTestHeader()
	b := newTestHeader()
	if a.Hash() != b.Hash() {
		t.Fatal("identical headers hash differently")
	}
	b.GasUsed++
	if a.Hash() == b.Hash() {
		t.Fatal("differing headers hash identically")
	}
	// The optional base fee participates in the hash once set.
	c := newTestHeader()
	c.BaseFee = big.NewInt(1)
	if a.Hash() == c.Hash() {
		t.Fatal("base fee ignored by header hash")
	}
}

func TestTransactionHashByType(t *testing.T) {
	to := common.HexToAddress("0x0a")
	legacy := NewTransaction(TxOpts{Nonce: 1, To: &to, Value: big.NewInt(5), Gas: 21000})
	dynamic := NewTransaction(TxOpts{Type: DynamicFeeTxType, Nonce: 1, To: &to, Value: big.NewInt(5), Gas: 21000})

	if legacy.Hash() == dynamic.Hash() {
		t.Fatal("typed transaction hash must differ from legacy")
	}
	if legacy.Hash() != legacy.Hash() {
		t.Fatal("transaction hash not stable")
	}

	blob, err := dynamic.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if blob[0] != DynamicFeeTxType {
		t.Fatalf("typed encoding not prefixed: %x", blob[0])
	}
}

func TestBlockWithWithdrawals(t *testing.T) {
	block := NewBlockWithHeader(newTestHeader())
	withdrawals := Withdrawals{{Index: 1, Validator: 2, Address: common.HexToAddress("0xaa"), Amount: 3}}
	cpy := block.WithWithdrawals(withdrawals)

	if block.Withdrawals() != nil {
		t.Error("WithWithdrawals mutated the receiver")
	}
	if len(cpy.Withdrawals()) != 1 {
		t.Error("withdrawals not carried on the copy")
	}
}

func TestEffectiveGasTip(t *testing.T) {
	to := common.HexToAddress("0x0a")
	tx := NewTransaction(TxOpts{
		Type:      DynamicFeeTxType,
		To:        &to,
		Gas:       21000,
		GasFeeCap: big.NewInt(100),
		GasTipCap: big.NewInt(10),
	})
	tip, err := tx.EffectiveGasTip(big.NewInt(95))
	if err != nil {
		t.Fatal(err)
	}
	if tip.Int64() != 5 {
		t.Fatalf("effective tip: have %d, want 5", tip.Int64())
	}
	if _, err := tx.EffectiveGasTip(big.NewInt(200)); err != ErrGasFeeCapTooLow {
		t.Fatalf("have %v, want ErrGasFeeCapTooLow", err)
	}
}
