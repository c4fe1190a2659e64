package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/crypto"
)

var emptyCodeHash = crypto.Keccak256(nil)

// Code
type Code []byte

func (code Code) String() string {
	return string(code)
}

// Storage
type Storage map[common.Hash]common.Hash

func (storage Storage) String() (str string) {
	for key, value := range storage {
		str += fmt.Sprintf("%X : %X\n", key, value)
	}
	return
}

func (storage Storage) Copy() Storage {
	cpy := make(Storage)
	for key, value := range storage {
		cpy[key] = value
	}
	return cpy
}

// Account is the Meridian consensus representation of an account.
// These objects are stored in the main account trie.
type Account struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // merkle root of the storage trie
	CodeHash []byte
}

// stateObject represents a Meridian account which is being modified.
//
// The usage pattern is as follows:
// First you need to obtain a state object.
// Account values can be accessed and modified through the object.
// The modified set is flushed to the backing store on Persist.
type stateObject struct {
	address  common.Address
	addrHash common.Hash // hash of the Meridian address of the account
	data     Account
	db       *StateDB

	// Write caches.
	code Code // contract bytecode, which gets set when code is loaded

	originStorage Storage // Storage entry cache of the last persisted values
	dirtyStorage  Storage // Storage entries that have been modified this block

	// Cache flags.
	dirtyCode bool // true if the code was updated
	suicided  bool
	deleted   bool
}

// newObject creates a state object.
func newObject(db *StateDB, address common.Address, data Account) *stateObject {
	if data.Balance == nil {
		data.Balance = new(big.Int)
	}
	if data.CodeHash == nil {
		data.CodeHash = emptyCodeHash
	}
	return &stateObject{
		db:            db,
		address:       address,
		addrHash:      crypto.Keccak256Hash(address[:]),
		data:          data,
		originStorage: make(Storage),
		dirtyStorage:  make(Storage),
	}
}

// empty returns whether the account is considered empty.
func (stateObj *stateObject) empty() bool {
	return stateObj.data.Nonce == 0 && stateObj.data.Balance.Sign() == 0 && bytes.Equal(stateObj.data.CodeHash, emptyCodeHash)
}

// Address returns the address of the contract/account.
func (stateObj *stateObject) Address() common.Address {
	return stateObj.address
}

func (stateObj *stateObject) Balance() *big.Int {
	return stateObj.data.Balance
}

func (stateObj *stateObject) Nonce() uint64 {
	return stateObj.data.Nonce
}

// AddBalance adds amount to the account's balance.
// It is used to add funds to the destination account of a transfer.
func (stateObj *stateObject) AddBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	stateObj.SetBalance(new(big.Int).Add(stateObj.Balance(), amount))
}

// SubBalance removes amount from the account's balance.
// It is used to remove funds from the origin account of a transfer.
func (stateObj *stateObject) SubBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	stateObj.SetBalance(new(big.Int).Sub(stateObj.Balance(), amount))
}

func (stateObj *stateObject) SetBalance(amount *big.Int) {
	stateObj.db.journal.append(balanceChange{
		account: &stateObj.address,
		prev:    new(big.Int).Set(stateObj.data.Balance),
	})
	stateObj.setBalance(amount)
}

func (stateObj *stateObject) setBalance(amount *big.Int) {
	stateObj.data.Balance = amount
}

func (stateObj *stateObject) SetNonce(nonce uint64) {
	stateObj.db.journal.append(nonceChange{
		account: &stateObj.address,
		prev:    stateObj.data.Nonce,
	})
	stateObj.setNonce(nonce)
}

func (stateObj *stateObject) setNonce(nonce uint64) {
	stateObj.data.Nonce = nonce
}

// Code returns the contract code associated with this object, if any.
func (stateObj *stateObject) Code() []byte {
	if stateObj.code != nil {
		return stateObj.code
	}
	if bytes.Equal(stateObj.CodeHash(), emptyCodeHash) {
		return nil
	}
	code, err := stateObj.db.db.ReadCode(common.BytesToHash(stateObj.CodeHash()))
	if err != nil {
		stateObj.db.setError(err)
	}
	stateObj.code = code
	return code
}

func (stateObj *stateObject) CodeHash() []byte {
	return stateObj.data.CodeHash
}

func (stateObj *stateObject) SetCode(codeHash common.Hash, code []byte) {
	prevcode := stateObj.Code()
	stateObj.db.journal.append(codeChange{
		account:  &stateObj.address,
		prevhash: stateObj.CodeHash(),
		prevcode: prevcode,
	})
	stateObj.setCode(codeHash, code)
}

func (stateObj *stateObject) setCode(codeHash common.Hash, code []byte) {
	stateObj.code = code
	stateObj.data.CodeHash = codeHash[:]
	stateObj.dirtyCode = true
}

// GetState retrieves a value from the account storage.
func (stateObj *stateObject) GetState(key common.Hash) common.Hash {
	if value, dirty := stateObj.dirtyStorage[key]; dirty {
		return value
	}
	return stateObj.GetCommittedState(key)
}

// GetCommittedState retrieves a value from the last persisted account storage.
func (stateObj *stateObject) GetCommittedState(key common.Hash) common.Hash {
	if value, cached := stateObj.originStorage[key]; cached {
		return value
	}
	value, err := stateObj.db.db.ReadStorage(stateObj.address, key)
	if err != nil {
		stateObj.db.setError(err)
	}
	stateObj.originStorage[key] = value
	return value
}

// SetState updates a value in the account storage.
func (stateObj *stateObject) SetState(key, value common.Hash) {
	prev := stateObj.GetState(key)
	if prev == value {
		return
	}
	stateObj.db.journal.append(storageChange{
		account:  &stateObj.address,
		key:      key,
		prevalue: prev,
	})
	stateObj.setState(key, value)
}

func (stateObj *stateObject) setState(key, value common.Hash) {
	stateObj.dirtyStorage[key] = value
}

// deepCopy clones the object for use in a copied StateDB.
func (stateObj *stateObject) deepCopy(db *StateDB) *stateObject {
	obj := newObject(db, stateObj.address, stateObj.data)
	obj.data.Balance = new(big.Int).Set(stateObj.data.Balance)
	obj.code = stateObj.code
	obj.originStorage = stateObj.originStorage.Copy()
	obj.dirtyStorage = stateObj.dirtyStorage.Copy()
	obj.dirtyCode = stateObj.dirtyCode
	obj.suicided = stateObj.suicided
	obj.deleted = stateObj.deleted
	return obj
}
