package state

import (
	"math/big"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
)

// WorldView is a read-only view over the world state, handed to collaborators
// that must observe but never mutate accounts, such as receipt factories.
type WorldView interface {
	// Exist reports whether the given account exists in state.
	// Notably this also returns true for suicided accounts.
	Exist(addr common.Address) bool

	// Empty returns whether the given account is empty. Empty
	// is defined according to EIP161 (balance = nonce = code = 0).
	Empty(addr common.Address) bool

	GetBalance(addr common.Address) *big.Int
	GetNonce(addr common.Address) uint64
	GetCode(addr common.Address) []byte
	GetCodeHash(addr common.Address) common.Hash
	GetState(addr common.Address, key common.Hash) common.Hash
}

// WorldUpdater is a staged, transactional view over the world state. Mutations
// accumulate in the updater until either Commit folds them into the parent
// state or Discard drops them. An updater must be resolved one way or the
// other before the next one is obtained from the same world state.
type WorldUpdater interface {
	WorldView

	CreateAccount(addr common.Address)

	AddBalance(addr common.Address, amount *big.Int)
	SubBalance(addr common.Address, amount *big.Int)
	SetNonce(addr common.Address, nonce uint64)
	SetCode(addr common.Address, code []byte)
	SetState(addr common.Address, key, value common.Hash)

	AddLog(log *model.Log)
	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	// Commit folds the staged mutations into the underlying world state.
	Commit()

	// Discard drops the staged mutations.
	Discard()
}

// MutableWorldState is a world state exclusively borrowed by a single block
// processing call. Updaters stage per-transaction changes; Persist makes the
// accumulated block effects durable under the given header's identity.
type MutableWorldState interface {
	WorldView

	// Updater obtains a fresh staged view. No two updaters of the same
	// world state may be live at once.
	Updater() WorldUpdater

	// Persist writes the accumulated changes to durable storage, keyed by
	// the header. A *trie.MissingNodeError return indicates storage
	// corruption and leaves the caller responsible for recovery.
	Persist(header *model.Header) error

	// Root returns the state root as of the last Persist; changes not yet
	// persisted are not reflected.
	Root() common.Hash
}

// Resettable is the optional rollback capability of snapshot-backed world
// states: Reset drops every change accumulated since the last Persist,
// restoring the state observed on entry.
type Resettable interface {
	Reset()
}
