package state

import (
	"fmt"
	"math/big"
	"sort"

	mapset "github.com/deckarep/golang-set"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/crypto"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[state]")

type revision struct {
	id           int
	journalIndex int
}

// StateDB is a snapshot-backed world state: mutations accumulate in an
// in-memory journalled diff over the last persisted state and can be dropped
// wholesale via Reset. It implements MutableWorldState and Resettable.
//
// A StateDB must be exclusively owned by one block processing call at a time.
type StateDB struct {
	db *Database

	// originalRoot is the state root of the last persisted state; the
	// baseline that Reset restores.
	originalRoot common.Hash

	// This map holds 'live' objects, which will get modified while
	// processing a state transition.
	stateObjects map[common.Address]*stateObject

	// destructed holds the addresses suicided during the current block.
	destructed mapset.Set

	// DB error.
	// State objects are used by the block processor and VM which are
	// unable to deal with database-level errors. Any error that occurs
	// during a database read is memoized here and will eventually be
	// returned by StateDB.Persist.
	dbErr error

	// The refund counter, also used by state transitioning.
	refund uint64

	thash   common.Hash
	txIndex int
	logs    map[common.Hash][]*model.Log
	logSize uint

	// Journal of state modifications. This is the backbone of
	// Snapshot and RevertToSnapshot.
	journal        *journal
	validRevisions []revision
	nextRevisionId int
}

// New creates a state view over the last persisted state in db.
func New(db *Database) (*StateDB, error) {
	root, err := db.ReadRoot()
	if err != nil {
		return nil, err
	}
	return &StateDB{
		db:           db,
		originalRoot: root,
		stateObjects: make(map[common.Address]*stateObject),
		destructed:   mapset.NewSet(),
		logs:         make(map[common.Hash][]*model.Log),
		journal:      newJournal(),
	}, nil
}

// setError remembers the first non-nil error it is called with.
func (stateDB *StateDB) setError(err error) {
	if stateDB.dbErr == nil {
		stateDB.dbErr = err
	}
}

// Error returns the memoized database failure occurred earlier.
func (stateDB *StateDB) Error() error {
	return stateDB.dbErr
}

// Prepare sets the current transaction hash and index which are used when the
// EVM emits new state logs.
func (stateDB *StateDB) Prepare(thash common.Hash, ti int) {
	stateDB.thash = thash
	stateDB.txIndex = ti
}

// TxIndex returns the current transaction index set by Prepare.
func (stateDB *StateDB) TxIndex() int {
	return stateDB.txIndex
}

func (stateDB *StateDB) AddLog(log *model.Log) {
	stateDB.journal.append(addLogChange{txhash: stateDB.thash})

	log.TxHash = stateDB.thash
	log.TxIndex = uint(stateDB.txIndex)
	log.Index = stateDB.logSize
	stateDB.logs[stateDB.thash] = append(stateDB.logs[stateDB.thash], log)
	stateDB.logSize++
}

// GetLogs returns the logs matching the specified transaction hash, annotated
// with the given block metadata.
func (stateDB *StateDB) GetLogs(hash common.Hash, blockNumber uint64, blockHash common.Hash) []*model.Log {
	logs := stateDB.logs[hash]
	for _, l := range logs {
		l.BlockNumber = blockNumber
		l.BlockHash = blockHash
	}
	return logs
}

// Logs returns every log accumulated in the current block.
func (stateDB *StateDB) Logs() []*model.Log {
	var logs []*model.Log
	for _, lgs := range stateDB.logs {
		logs = append(logs, lgs...)
	}
	return logs
}

// AddRefund adds gas to the refund counter.
func (stateDB *StateDB) AddRefund(gas uint64) {
	stateDB.journal.append(refundChange{prev: stateDB.refund})
	stateDB.refund += gas
}

// SubRefund removes gas from the refund counter.
// This method will panic if the refund counter goes below zero.
func (stateDB *StateDB) SubRefund(gas uint64) {
	stateDB.journal.append(refundChange{prev: stateDB.refund})
	if gas > stateDB.refund {
		panic(fmt.Sprintf("Refund counter below zero (gas: %d > refund: %d)", gas, stateDB.refund))
	}
	stateDB.refund -= gas
}

// GetRefund returns the current value of the refund counter.
func (stateDB *StateDB) GetRefund() uint64 {
	return stateDB.refund
}

// Exist reports whether the given account address exists in the state.
// Notably this also returns true for suicided accounts.
func (stateDB *StateDB) Exist(addr common.Address) bool {
	return stateDB.getStateObject(addr) != nil
}

// Empty returns whether the state object is either non-existent
// or empty according to the EIP161 specification (balance = nonce = code = 0)
func (stateDB *StateDB) Empty(addr common.Address) bool {
	so := stateDB.getStateObject(addr)
	return so == nil || so.empty()
}

// GetBalance retrieves the balance from the given address or 0 if object not found
func (stateDB *StateDB) GetBalance(addr common.Address) *big.Int {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.Balance()
	}
	return new(big.Int)
}

func (stateDB *StateDB) GetNonce(addr common.Address) uint64 {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.Nonce()
	}
	return 0
}

func (stateDB *StateDB) GetCode(addr common.Address) []byte {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.Code()
	}
	return nil
}

func (stateDB *StateDB) GetCodeHash(addr common.Address) common.Hash {
	stateObj := stateDB.getStateObject(addr)
	if stateObj == nil {
		return common.Hash{}
	}
	return common.BytesToHash(stateObj.CodeHash())
}

// GetState retrieves a value from the given account's storage trie.
func (stateDB *StateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.GetState(hash)
	}
	return common.Hash{}
}

// GetCommittedState retrieves a value from the given account's committed storage trie.
func (stateDB *StateDB) GetCommittedState(addr common.Address, hash common.Hash) common.Hash {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.GetCommittedState(hash)
	}
	return common.Hash{}
}

// HasSuicided reports whether the account was destructed in the current block.
func (stateDB *StateDB) HasSuicided(addr common.Address) bool {
	stateObj := stateDB.getStateObject(addr)
	if stateObj != nil {
		return stateObj.suicided
	}
	return false
}

/*
 * SETTERS
 */

// AddBalance adds amount to the account associated with addr.
func (stateDB *StateDB) AddBalance(addr common.Address, amount *big.Int) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.AddBalance(amount)
	}
}

// SubBalance subtracts amount from the account associated with addr.
func (stateDB *StateDB) SubBalance(addr common.Address, amount *big.Int) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.SubBalance(amount)
	}
}

func (stateDB *StateDB) SetBalance(addr common.Address, amount *big.Int) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.SetBalance(amount)
	}
}

func (stateDB *StateDB) SetNonce(addr common.Address, nonce uint64) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.SetNonce(nonce)
	}
}

func (stateDB *StateDB) SetCode(addr common.Address, code []byte) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.SetCode(crypto.Keccak256Hash(code), code)
	}
}

func (stateDB *StateDB) SetState(addr common.Address, key, value common.Hash) {
	stateObj := stateDB.getOrNewStateObject(addr)
	if stateObj != nil {
		stateObj.SetState(key, value)
	}
}

// Suicide marks the given account as suicided.
// This clears the account balance.
//
// The account's state object is still available until the state is committed,
// getStateObject will return a non-nil account after Suicide.
func (stateDB *StateDB) Suicide(addr common.Address) bool {
	stateObj := stateDB.getStateObject(addr)
	if stateObj == nil {
		return false
	}
	stateDB.journal.append(suicideChange{
		account:     &addr,
		prev:        stateObj.suicided,
		prevbalance: new(big.Int).Set(stateObj.Balance()),
	})
	stateObj.suicided = true
	stateObj.setBalance(new(big.Int))
	stateDB.destructed.Add(addr)
	return true
}

// getStateObject retrieves a state object given by the address, returning nil
// if the object is not found or was deleted in this execution context.
func (stateDB *StateDB) getStateObject(addr common.Address) *stateObject {
	if obj, ok := stateDB.stateObjects[addr]; ok {
		if obj.deleted {
			return nil
		}
		return obj
	}
	// Load from the backing store.
	data, ok, err := stateDB.db.ReadAccount(addr)
	if err != nil {
		stateDB.setError(err)
		return nil
	}
	if !ok {
		return nil
	}
	obj := newObject(stateDB, addr, data)
	stateDB.stateObjects[addr] = obj
	return obj
}

func (stateDB *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	stateObj := stateDB.getStateObject(addr)
	if stateObj == nil {
		stateObj, _ = stateDB.createObject(addr)
	}
	return stateObj
}

// createObject creates a new state object. If there is an existing account with
// the given address, it is overwritten and returned as the second return value.
func (stateDB *StateDB) createObject(addr common.Address) (newObj, prevObj *stateObject) {
	prevObj = stateDB.getStateObject(addr)
	newObj = newObject(stateDB, addr, Account{})
	stateDB.journal.append(createObjectChange{account: &addr})
	stateDB.stateObjects[addr] = newObj
	return newObj, prevObj
}

// CreateAccount explicitly creates a state object. If a state object with the
// address already exists the balance is carried over to the new account.
//
// CreateAccount is called during the EVM CREATE operation. The situation might arise that
// a contract does the following:
//
//  1. sends funds to sha(account ++ (nonce + 1))
//  2. tx_create(sha(account ++ nonce)) (note that this gets the address of 1)
//
// Carrying over the balance ensures that Ether doesn't disappear.
func (stateDB *StateDB) CreateAccount(addr common.Address) {
	newObj, prev := stateDB.createObject(addr)
	if prev != nil {
		newObj.setBalance(prev.data.Balance)
	}
}

// Snapshot returns an identifier for the current revision of the state.
func (stateDB *StateDB) Snapshot() int {
	id := stateDB.nextRevisionId
	stateDB.nextRevisionId++
	stateDB.validRevisions = append(stateDB.validRevisions, revision{id, stateDB.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (stateDB *StateDB) RevertToSnapshot(revid int) {
	// Find the snapshot in the stack of valid snapshots.
	idx := sort.Search(len(stateDB.validRevisions), func(i int) bool {
		return stateDB.validRevisions[i].id >= revid
	})
	if idx == len(stateDB.validRevisions) || stateDB.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := stateDB.validRevisions[idx].journalIndex

	// Replay the journal to undo changes and remove invalidated snapshots
	stateDB.journal.revert(stateDB, snapshot)
	stateDB.validRevisions = stateDB.validRevisions[:idx]
}

// Updater obtains a fresh staged view over the state. Changes made through
// the updater (or directly on the state while it is live) are folded in on
// Commit and rolled back on Discard.
func (stateDB *StateDB) Updater() WorldUpdater {
	return &stagedUpdater{
		stateDB: stateDB,
		rev:     stateDB.Snapshot(),
	}
}

// Reset drops every change accumulated since the last Persist, restoring the
// state observed on entry. The shared read cache is cleared as well, since
// Persist fills it before its batch reaches the store.
func (stateDB *StateDB) Reset() {
	stateDB.stateObjects = make(map[common.Address]*stateObject)
	stateDB.destructed = mapset.NewSet()
	stateDB.logs = make(map[common.Hash][]*model.Log)
	stateDB.logSize = 0
	stateDB.refund = 0
	stateDB.thash = common.Hash{}
	stateDB.txIndex = 0
	stateDB.journal = newJournal()
	stateDB.validRevisions = stateDB.validRevisions[:0]
	stateDB.dbErr = nil
	stateDB.db.cache.Reset()
	log.Debugf("state reset to root %x", stateDB.originalRoot)
}

// Persist writes the accumulated block effects to durable storage under the
// given header's identity. Any database read error memoized during the block
// is surfaced here before anything is written.
func (stateDB *StateDB) Persist(header *model.Header) error {
	if stateDB.dbErr != nil {
		return stateDB.dbErr
	}
	// Merge the touched account set into the persistent address index.
	index, err := stateDB.db.ReadAddressIndex()
	if err != nil {
		return err
	}
	present := make(map[common.Address]bool, len(index))
	for _, addr := range index {
		present[addr] = true
	}
	batch := stateDB.db.DiskDB().NewBatch()
	for addr, obj := range stateDB.stateObjects {
		if obj.deleted || (obj.suicided && obj.empty()) || stateDB.destructed.Contains(addr) {
			if err := stateDB.db.DeleteAccount(batch, addr); err != nil {
				return err
			}
			delete(present, addr)
			continue
		}
		// Fold dirty storage into the stored slots and the storage root.
		if len(obj.dirtyStorage) > 0 {
			obj.data.Root = foldStorageRoot(obj.data.Root, obj.dirtyStorage)
			for slot, value := range obj.dirtyStorage {
				if err := stateDB.db.WriteStorage(batch, addr, slot, value); err != nil {
					return err
				}
				obj.originStorage[slot] = value
			}
			obj.dirtyStorage = make(Storage)
		}
		if obj.dirtyCode {
			if err := stateDB.db.WriteCode(batch, common.BytesToHash(obj.CodeHash()), obj.code); err != nil {
				return err
			}
			obj.dirtyCode = false
		}
		if err := stateDB.db.WriteAccount(batch, addr, obj.data); err != nil {
			return err
		}
		present[addr] = true
	}
	// Rebuild the sorted index and derive the post-state root.
	index = index[:0]
	for addr := range present {
		index = append(index, addr)
	}
	sort.Slice(index, func(i, j int) bool {
		return string(index[i].Bytes()) < string(index[j].Bytes())
	})
	if err := stateDB.db.WriteAddressIndex(batch, index); err != nil {
		return err
	}
	root, err := stateDB.deriveRoot(index)
	if err != nil {
		return err
	}
	if err := stateDB.db.WriteRoot(batch, header.Hash(), root); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	stateDB.originalRoot = root

	// The persisted state is the new baseline.
	stateDB.journal = newJournal()
	stateDB.validRevisions = stateDB.validRevisions[:0]
	stateDB.destructed = mapset.NewSet()
	stateDB.refund = 0

	log.Debugf("state persisted: block=%d root=%x accounts=%d", header.Number, root, len(index))
	return nil
}

// Root returns the state root as of the last successful Persist; changes not
// yet persisted are not reflected.
func (stateDB *StateDB) Root() common.Hash {
	return stateDB.originalRoot
}

// deriveRoot folds the stored account blobs into a single commitment. It is
// a pure function of the persisted content: every account is re-read through
// the codec layer rather than from the live objects.
func (stateDB *StateDB) deriveRoot(index []common.Address) (common.Hash, error) {
	sha := crypto.NewKeccakState()
	for _, addr := range index {
		account, ok, err := stateDB.db.ReadAccount(addr)
		if err != nil {
			return common.Hash{}, err
		}
		if !ok {
			// The index references an account the store no longer has.
			continue
		}
		blob, err := encodeAccount(account)
		if err != nil {
			return common.Hash{}, err
		}
		sha.Write(crypto.Keccak256(addr.Bytes()))
		sha.Write(crypto.Keccak256(blob))
	}
	var root common.Hash
	sha.Read(root[:])
	return root, nil
}

// foldStorageRoot chains the dirty slots of one block into the previous
// storage commitment, in slot order.
func foldStorageRoot(prev common.Hash, dirty Storage) common.Hash {
	slots := make([]common.Hash, 0, len(dirty))
	for slot := range dirty {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		return string(slots[i].Bytes()) < string(slots[j].Bytes())
	})
	sha := crypto.NewKeccakState()
	sha.Write(prev.Bytes())
	for _, slot := range slots {
		sha.Write(slot.Bytes())
		value := dirty[slot]
		sha.Write(value.Bytes())
	}
	var root common.Hash
	sha.Read(root[:])
	return root
}

// stagedUpdater implements WorldUpdater over a journal revision of its parent
// StateDB. Mutations flow straight into the parent journal; Commit leaves
// them in place and only marks the updater resolved, Discard replays the
// journal back to the revision.
type stagedUpdater struct {
	stateDB  *StateDB
	rev      int
	resolved bool
}

func (u *stagedUpdater) Exist(addr common.Address) bool      { return u.stateDB.Exist(addr) }
func (u *stagedUpdater) Empty(addr common.Address) bool      { return u.stateDB.Empty(addr) }
func (u *stagedUpdater) GetNonce(addr common.Address) uint64 { return u.stateDB.GetNonce(addr) }
func (u *stagedUpdater) GetCode(addr common.Address) []byte  { return u.stateDB.GetCode(addr) }

func (u *stagedUpdater) GetBalance(addr common.Address) *big.Int {
	return u.stateDB.GetBalance(addr)
}

func (u *stagedUpdater) GetCodeHash(addr common.Address) common.Hash {
	return u.stateDB.GetCodeHash(addr)
}

func (u *stagedUpdater) GetState(addr common.Address, key common.Hash) common.Hash {
	return u.stateDB.GetState(addr, key)
}

func (u *stagedUpdater) CreateAccount(addr common.Address) { u.stateDB.CreateAccount(addr) }

func (u *stagedUpdater) AddBalance(addr common.Address, amount *big.Int) {
	u.stateDB.AddBalance(addr, amount)
}

func (u *stagedUpdater) SubBalance(addr common.Address, amount *big.Int) {
	u.stateDB.SubBalance(addr, amount)
}

func (u *stagedUpdater) SetNonce(addr common.Address, nonce uint64) {
	u.stateDB.SetNonce(addr, nonce)
}

func (u *stagedUpdater) SetCode(addr common.Address, code []byte) {
	u.stateDB.SetCode(addr, code)
}

func (u *stagedUpdater) SetState(addr common.Address, key, value common.Hash) {
	u.stateDB.SetState(addr, key, value)
}

func (u *stagedUpdater) AddLog(log *model.Log) { u.stateDB.AddLog(log) }
func (u *stagedUpdater) AddRefund(gas uint64)  { u.stateDB.AddRefund(gas) }
func (u *stagedUpdater) SubRefund(gas uint64)  { u.stateDB.SubRefund(gas) }
func (u *stagedUpdater) GetRefund() uint64     { return u.stateDB.GetRefund() }

// Commit folds the staged mutations into the parent state.
func (u *stagedUpdater) Commit() {
	if u.resolved {
		log.Warningf("updater committed twice, revision %d", u.rev)
		return
	}
	u.resolved = true
}

// Discard rolls the parent state back to the revision captured when the
// updater was obtained.
func (u *stagedUpdater) Discard() {
	if u.resolved {
		log.Warningf("updater discarded after resolution, revision %d", u.rev)
		return
	}
	u.resolved = true
	u.stateDB.RevertToSnapshot(u.rev)
}
