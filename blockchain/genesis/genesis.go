// Package genesis sets up the initial world state a chain starts from.
package genesis

import (
	"errors"
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
	"github.com/meridianio/go-meridian/config"
	"github.com/meridianio/go-meridian/database"
	"github.com/meridianio/go-meridian/logger"
)

var genesisLog = logger.NewLogger("[genesis]")

// Genesis specifies the header fields and the initial allocation of a chain.
type Genesis struct {
	Config     *config.ChainConfig `json:"config"`
	Nonce      uint64              `json:"nonce"`
	Timestamp  uint64              `json:"timestamp"`
	ExtraData  hexutil.Bytes       `json:"extraData"`
	GasLimit   uint64              `json:"gasLimit"`
	Difficulty *big.Int            `json:"difficulty"`
	Mixhash    common.Hash         `json:"mixHash"`
	Coinbase   common.Address      `json:"coinbase"`
	Alloc      Alloc               `json:"alloc"`
	BaseFee    *big.Int            `json:"baseFeePerGas"`
}

// Alloc specifies the initial state that is part of the genesis block.
type Alloc map[common.Address]Account

// Account is an account in the state of the genesis block.
type Account struct {
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Balance *big.Int                    `json:"balance"`
	Nonce   uint64                      `json:"nonce,omitempty"`
}

// ErrNoAlloc is returned when committing a genesis without an allocation.
var ErrNoAlloc = errors.New("genesis has no allocation")

// Header assembles the genesis block header.
func (g *Genesis) Header() *model.Header {
	head := &model.Header{
		Number:     new(big.Int),
		Nonce:      model.EncodeNonce(g.Nonce),
		Time:       g.Timestamp,
		ParentHash: common.Hash{},
		Extra:      g.ExtraData,
		GasLimit:   g.GasLimit,
		Difficulty: g.Difficulty,
		MixDigest:  g.Mixhash,
		Coinbase:   g.Coinbase,
	}
	if g.GasLimit == 0 {
		head.GasLimit = 30000000
	}
	if g.Difficulty == nil {
		head.Difficulty = new(big.Int)
	}
	if g.BaseFee != nil {
		head.BaseFee = new(big.Int).Set(g.BaseFee)
	}
	return head
}

// Commit writes the genesis allocation and the derived state root into db
// and returns the genesis block.
func (g *Genesis) Commit(diskdb database.Database) (*model.Block, error) {
	if g.Alloc == nil {
		return nil, ErrNoAlloc
	}
	stateDB, err := state.New(state.NewDatabase(diskdb))
	if err != nil {
		return nil, err
	}
	for addr, account := range g.Alloc {
		stateDB.AddBalance(addr, account.Balance)
		stateDB.SetNonce(addr, account.Nonce)
		if len(account.Code) > 0 {
			stateDB.SetCode(addr, account.Code)
		}
		for key, value := range account.Storage {
			stateDB.SetState(addr, key, value)
		}
	}
	head := g.Header()
	if err := stateDB.Persist(head); err != nil {
		return nil, err
	}
	head.Root = stateDB.Root()
	block := model.NewBlockWithHeader(head)
	genesisLog.Infof("genesis committed: hash=%x root=%x accounts=%d", block.Hash(), head.Root, len(g.Alloc))
	return block, nil
}

// MustCommit commits the genesis and panics on error. Intended for tests.
func (g *Genesis) MustCommit(diskdb database.Database) *model.Block {
	block, err := g.Commit(diskdb)
	if err != nil {
		panic(err)
	}
	return block
}
