package model

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
	"github.com/meridianio/go-meridian/common/rlp"
)

var (
	EmptyRootHash  = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
	EmptyUncleHash = rlpHash([]*Header(nil))
)

// A BlockNonce is a 64-bit hash which proves (combined with the
// mix-hash) that a sufficient amount of computation has been carried
// out on a block.
type BlockNonce [8]byte

// EncodeNonce converts the given integer to a block nonce.
func EncodeNonce(i uint64) BlockNonce {
	var n BlockNonce
	binary.BigEndian.PutUint64(n[:], i)
	return n
}

// Uint64 returns the integer value of a block nonce.
func (nonce BlockNonce) Uint64() uint64 {
	return binary.BigEndian.Uint64(nonce[:])
}

// MarshalText encodes n as a hex string with 0x prefix.
func (nonce BlockNonce) MarshalText() ([]byte, error) {
	return hexutil.Bytes(nonce[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (nonce *BlockNonce) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("BlockNonce", input, nonce[:])
}

//go:generate go run github.com/fjl/gencodec -type Header -field-override headerMarshaling -out gen_header_json.go

// Header represents a block header in the Meridian blockchain.
type Header struct {
	ParentHash  common.Hash    `json:"parentHash"       gencodec:"required"`
	UncleHash   common.Hash    `json:"sha3Uncles"       gencodec:"required"`
	Coinbase    common.Address `json:"miner"`
	Root        common.Hash    `json:"stateRoot"        gencodec:"required"`
	TxHash      common.Hash    `json:"transactionsRoot" gencodec:"required"`
	ReceiptHash common.Hash    `json:"receiptsRoot"     gencodec:"required"`
	Bloom       Bloom          `json:"logsBloom"        gencodec:"required"`
	Difficulty  *big.Int       `json:"difficulty"       gencodec:"required"`
	Number      *big.Int       `json:"number"           gencodec:"required"`
	GasLimit    uint64         `json:"gasLimit"         gencodec:"required"`
	GasUsed     uint64         `json:"gasUsed"          gencodec:"required"`
	Time        uint64         `json:"timestamp"        gencodec:"required"`
	Extra       []byte         `json:"extraData"        gencodec:"required"`
	MixDigest   common.Hash    `json:"mixHash"`
	Nonce       BlockNonce     `json:"nonce"`

	// BaseFee was added by EIP-1559 and is ignored in legacy headers.
	BaseFee *big.Int `json:"baseFeePerGas" rlp:"optional"`

	// WithdrawalsHash was added by EIP-4895 and is ignored in legacy headers.
	WithdrawalsHash *common.Hash `json:"withdrawalsRoot" rlp:"optional"`
}

// field type overrides for gencodec
type headerMarshaling struct {
	Difficulty *hexutil.Big
	Number     *hexutil.Big
	GasLimit   hexutil.Uint64
	GasUsed    hexutil.Uint64
	Time       hexutil.Uint64
	Extra      hexutil.Bytes
	BaseFee    *hexutil.Big
	Hash       common.Hash `json:"hash"` // adds call to Hash() in MarshalJSON
}

// Hash returns the block hash of the header, which is simply the keccak256 hash of its
// RLP encoding.
func (header *Header) Hash() common.Hash {
	return rlpHash(header)
}

var headerSize = common.StorageSize(reflect.TypeOf(Header{}).Size())

// Size returns the approximate memory used by all internal contents. It is used
// to approximate and limit the memory consumption of various caches.
func (header *Header) Size() common.StorageSize {
	return headerSize + common.StorageSize(len(header.Extra)+(header.Difficulty.BitLen()+header.Number.BitLen())/8)
}

// SanityCheck checks a few basic things -- these checks are way beyond what
// any 'sane' production values should hold, and can mainly be used to prevent
// that the unbounded fields are stuffed with junk data to add processing
// overhead
func (header *Header) SanityCheck() error {
	if header.Number != nil && !header.Number.IsUint64() {
		return fmt.Errorf("too large block number: bitlen %d", header.Number.BitLen())
	}
	if header.Difficulty != nil {
		if diffLen := header.Difficulty.BitLen(); diffLen > 80 {
			return fmt.Errorf("too large block difficulty: bitlen %d", diffLen)
		}
	}
	if eLen := len(header.Extra); eLen > 100*1024 {
		return fmt.Errorf("too large block extradata: size %d", eLen)
	}
	if header.BaseFee != nil {
		if bfLen := header.BaseFee.BitLen(); bfLen > 256 {
			return fmt.Errorf("too large base fee: bitlen %d", bfLen)
		}
	}
	return nil
}

// EmptyBody returns true if there is no additional 'body' to complete the header
// that is: no transactions and no uncles.
func (header *Header) EmptyBody() bool {
	return header.TxHash == EmptyRootHash && header.UncleHash == EmptyUncleHash
}

// EmptyReceipts returns true if there are no receipts for this header/block.
func (header *Header) EmptyReceipts() bool {
	return header.ReceiptHash == EmptyRootHash
}

// Body is a simple (mutable, non-safe) data container for storing and moving
// a block's data contents (transactions, uncles and withdrawals) together.
type Body struct {
	Transactions []*Transaction
	Uncles       []*Header
	Withdrawals  Withdrawals `rlp:"optional"`
}

// Block represents an entire block in the Meridian blockchain.
type Block struct {
	header       *Header
	uncles       []*Header
	transactions Transactions
	withdrawals  Withdrawals

	// caches
	hash atomic.Value
	size atomic.Value

	// These fields are used to track inter-peer block relay.
	ReceivedAt   time.Time
	ReceivedFrom interface{}
}

// "external" block encoding, used for protocol relay and hashing.
type extblock struct {
	Header      *Header
	Txs         []*Transaction
	Uncles      []*Header
	Withdrawals Withdrawals `rlp:"optional"`
}

// NewBlock creates a new block. The input data is copied, changes to header
// and to the field values will not affect the block.
//
// The values of TxHash, UncleHash, ReceiptHash and Bloom in header are
// ignored and set to values derived from the given txs, uncles and receipts.
func NewBlock(header *Header, txs []*Transaction, uncles []*Header, receipts []*Receipt) *Block {
	b := &Block{header: CopyHeader(header)}

	if len(txs) == 0 {
		b.header.TxHash = EmptyRootHash
	} else {
		b.header.TxHash = rlpHash(Transactions(txs))
		b.transactions = make(Transactions, len(txs))
		copy(b.transactions, txs)
	}

	if len(receipts) == 0 {
		b.header.ReceiptHash = EmptyRootHash
	} else {
		b.header.ReceiptHash = rlpHash(Receipts(receipts))
		b.header.Bloom = CreateBloom(receipts)
	}

	if len(uncles) == 0 {
		b.header.UncleHash = EmptyUncleHash
	} else {
		b.header.UncleHash = CalcUncleHash(uncles)
		b.uncles = make([]*Header, len(uncles))
		for i := range uncles {
			b.uncles[i] = CopyHeader(uncles[i])
		}
	}

	return b
}

// WithWithdrawals returns a copy of the block carrying the given withdrawals.
func (block *Block) WithWithdrawals(withdrawals Withdrawals) *Block {
	cpy := &Block{
		header:       block.header,
		uncles:       block.uncles,
		transactions: block.transactions,
	}
	if withdrawals != nil {
		cpy.withdrawals = make(Withdrawals, len(withdrawals))
		copy(cpy.withdrawals, withdrawals)
	}
	return cpy
}

// NewBlockWithHeader creates a block with the given header data. The
// header data is copied, changes to header and to the field values
// will not affect the block.
func NewBlockWithHeader(header *Header) *Block {
	return &Block{header: CopyHeader(header)}
}

// CopyHeader creates a deep copy of a block header to prevent side effects from
// modifying a header variable.
func CopyHeader(h *Header) *Header {
	cpy := *h
	if cpy.Difficulty = new(big.Int); h.Difficulty != nil {
		cpy.Difficulty.Set(h.Difficulty)
	}
	if cpy.Number = new(big.Int); h.Number != nil {
		cpy.Number.Set(h.Number)
	}
	if h.BaseFee != nil {
		cpy.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	if len(h.Extra) > 0 {
		cpy.Extra = make([]byte, len(h.Extra))
		copy(cpy.Extra, h.Extra)
	}
	if h.WithdrawalsHash != nil {
		hash := *h.WithdrawalsHash
		cpy.WithdrawalsHash = &hash
	}
	return &cpy
}

// EncodeRLP serializes b into the Meridian RLP block format.
func (block *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, extblock{
		Header:      block.header,
		Txs:         block.transactions,
		Uncles:      block.uncles,
		Withdrawals: block.withdrawals,
	})
}

func (block *Block) Uncles() []*Header          { return block.uncles }
func (block *Block) Transactions() Transactions { return block.transactions }
func (block *Block) Withdrawals() Withdrawals   { return block.withdrawals }

func (block *Block) Transaction(hash common.Hash) *Transaction {
	for _, transaction := range block.transactions {
		if transaction.Hash() == hash {
			return transaction
		}
	}
	return nil
}

func (block *Block) Number() *big.Int         { return new(big.Int).Set(block.header.Number) }
func (block *Block) GasLimit() uint64         { return block.header.GasLimit }
func (block *Block) GasUsed() uint64          { return block.header.GasUsed }
func (block *Block) Difficulty() *big.Int     { return new(big.Int).Set(block.header.Difficulty) }
func (block *Block) Time() uint64             { return block.header.Time }
func (block *Block) NumberU64() uint64        { return block.header.Number.Uint64() }
func (block *Block) MixDigest() common.Hash   { return block.header.MixDigest }
func (block *Block) Nonce() uint64            { return binary.BigEndian.Uint64(block.header.Nonce[:]) }
func (block *Block) Bloom() Bloom             { return block.header.Bloom }
func (block *Block) Coinbase() common.Address { return block.header.Coinbase }
func (block *Block) Root() common.Hash        { return block.header.Root }
func (block *Block) ParentHash() common.Hash  { return block.header.ParentHash }
func (block *Block) TxHash() common.Hash      { return block.header.TxHash }
func (block *Block) ReceiptHash() common.Hash { return block.header.ReceiptHash }
func (block *Block) UncleHash() common.Hash   { return block.header.UncleHash }
func (block *Block) Extra() []byte            { return common.CopyBytes(block.header.Extra) }

func (block *Block) BaseFee() *big.Int {
	if block.header.BaseFee == nil {
		return nil
	}
	return new(big.Int).Set(block.header.BaseFee)
}

// Header returns a deep copy of the block header.
func (block *Block) Header() *Header { return CopyHeader(block.header) }

// Body returns the non-header content of the block.
func (block *Block) Body() *Body {
	return &Body{block.transactions, block.uncles, block.withdrawals}
}

// Size returns the true RLP encoded storage size of the block, either by
// encoding and returning it, or returning a previously cached value.
func (block *Block) Size() common.StorageSize {
	if size := block.size.Load(); size != nil {
		return size.(common.StorageSize)
	}
	c := writeCounter(0)
	rlp.Encode(&c, block)
	block.size.Store(common.StorageSize(c))
	return common.StorageSize(c)
}

type writeCounter common.StorageSize

func (c *writeCounter) Write(b []byte) (int, error) {
	*c += writeCounter(len(b))
	return len(b), nil
}

// CalcUncleHash computes the hash commitment over a block's uncle headers.
func CalcUncleHash(uncles []*Header) common.Hash {
	if len(uncles) == 0 {
		return EmptyUncleHash
	}
	return rlpHash(uncles)
}

// Hash returns the keccak256 hash of b's header.
// The hash is computed on the first call and cached thereafter.
func (block *Block) Hash() common.Hash {
	if hash := block.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	v := block.header.Hash()
	block.hash.Store(v)
	return v
}

type Blocks []*Block
