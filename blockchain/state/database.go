package state

import (
	"encoding/json"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/golang/snappy"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/database"
)

// Key schema of the state namespace in the backing store.
var (
	accountPrefix = []byte("ma") // accountPrefix + address -> account blob
	storagePrefix = []byte("ms") // storagePrefix + address + slot -> value
	codePrefix    = []byte("mc") // codePrefix + code hash -> bytecode
	indexKey      = []byte("mindex")
	rootKey       = []byte("mroot")
	blockPrefix   = []byte("mb") // blockPrefix + block hash -> state root
)

const cacheSizeBytes = 16 * 1024 * 1024

// Database wraps the raw key-value store with the state codec: account blobs
// are stored snappy-compressed and fronted by a read cache shared by all
// StateDB instances opened over this Database.
type Database struct {
	diskdb database.Database
	cache  *fastcache.Cache
}

// NewDatabase creates a state codec layer over the given key-value store.
func NewDatabase(diskdb database.Database) *Database {
	return &Database{
		diskdb: diskdb,
		cache:  fastcache.New(cacheSizeBytes),
	}
}

// DiskDB returns the underlying key-value store.
func (db *Database) DiskDB() database.Database {
	return db.diskdb
}

// ReadAccount loads an account blob. The boolean is false when the account is
// not present in durable storage.
func (db *Database) ReadAccount(addr common.Address) (Account, bool, error) {
	key := append(accountPrefix, addr.Bytes()...)
	var blob []byte
	if enc := db.cache.Get(nil, key); len(enc) > 0 {
		blob = enc
	} else {
		has, err := db.diskdb.Has(key)
		if err != nil {
			return Account{}, false, err
		}
		if !has {
			return Account{}, false, nil
		}
		enc, err := db.diskdb.Get(key)
		if err != nil {
			return Account{}, false, err
		}
		db.cache.Set(key, enc)
		blob = enc
	}
	dec, err := snappy.Decode(nil, blob)
	if err != nil {
		return Account{}, false, fmt.Errorf("corrupt account blob %x: %w", addr, err)
	}
	var account Account
	if err := json.Unmarshal(dec, &account); err != nil {
		return Account{}, false, fmt.Errorf("corrupt account blob %x: %w", addr, err)
	}
	return account, true, nil
}

// WriteAccount queues an account blob write into the given batch.
func (db *Database) WriteAccount(batch database.Batch, addr common.Address, account Account) error {
	blob, err := encodeAccount(account)
	if err != nil {
		return err
	}
	key := append(accountPrefix, addr.Bytes()...)
	db.cache.Set(key, blob)
	return batch.Put(key, blob)
}

// DeleteAccount queues an account removal into the given batch.
func (db *Database) DeleteAccount(batch database.Batch, addr common.Address) error {
	key := append(accountPrefix, addr.Bytes()...)
	db.cache.Del(key)
	return batch.Delete(key)
}

// encodeAccount produces the canonical stored form of an account. The JSON
// codec keeps field order fixed, so the blob doubles as hashing preimage.
func encodeAccount(account Account) ([]byte, error) {
	dec, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, dec), nil
}

// ReadStorage loads a single storage slot.
func (db *Database) ReadStorage(addr common.Address, slot common.Hash) (common.Hash, error) {
	key := storageKey(addr, slot)
	if enc := db.cache.Get(nil, key); len(enc) > 0 {
		return common.BytesToHash(enc), nil
	}
	has, err := db.diskdb.Has(key)
	if err != nil || !has {
		return common.Hash{}, err
	}
	enc, err := db.diskdb.Get(key)
	if err != nil {
		return common.Hash{}, err
	}
	db.cache.Set(key, enc)
	return common.BytesToHash(enc), nil
}

// WriteStorage queues a storage slot write into the given batch.
func (db *Database) WriteStorage(batch database.Batch, addr common.Address, slot, value common.Hash) error {
	key := storageKey(addr, slot)
	db.cache.Set(key, value.Bytes())
	return batch.Put(key, value.Bytes())
}

func storageKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, len(storagePrefix)+common.AddressLength+common.HashLength)
	key = append(key, storagePrefix...)
	key = append(key, addr.Bytes()...)
	return append(key, slot.Bytes()...)
}

// ReadCode loads contract bytecode by hash.
func (db *Database) ReadCode(hash common.Hash) ([]byte, error) {
	key := append(codePrefix, hash.Bytes()...)
	if enc := db.cache.Get(nil, key); len(enc) > 0 {
		return enc, nil
	}
	has, err := db.diskdb.Has(key)
	if err != nil || !has {
		return nil, err
	}
	code, err := db.diskdb.Get(key)
	if err != nil {
		return nil, err
	}
	db.cache.Set(key, code)
	return code, nil
}

// WriteCode queues a bytecode write into the given batch.
func (db *Database) WriteCode(batch database.Batch, hash common.Hash, code []byte) error {
	key := append(codePrefix, hash.Bytes()...)
	db.cache.Set(key, code)
	return batch.Put(key, code)
}

// ReadAddressIndex loads the sorted list of account addresses present in
// durable storage. The index makes the state root a pure function of store
// content without requiring key iteration support from the backend.
func (db *Database) ReadAddressIndex() ([]common.Address, error) {
	has, err := db.diskdb.Has(indexKey)
	if err != nil || !has {
		return nil, err
	}
	blob, err := db.diskdb.Get(indexKey)
	if err != nil {
		return nil, err
	}
	var addrs []common.Address
	if err := json.Unmarshal(blob, &addrs); err != nil {
		return nil, fmt.Errorf("corrupt address index: %w", err)
	}
	return addrs, nil
}

// WriteAddressIndex queues an address index write into the given batch.
func (db *Database) WriteAddressIndex(batch database.Batch, addrs []common.Address) error {
	blob, err := json.Marshal(addrs)
	if err != nil {
		return err
	}
	return batch.Put(indexKey, blob)
}

// ReadRoot loads the last persisted state root.
func (db *Database) ReadRoot() (common.Hash, error) {
	has, err := db.diskdb.Has(rootKey)
	if err != nil || !has {
		return common.Hash{}, err
	}
	blob, err := db.diskdb.Get(rootKey)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(blob), nil
}

// WriteRoot queues the state root write, both as the current root and keyed
// by the block that produced it.
func (db *Database) WriteRoot(batch database.Batch, blockHash common.Hash, root common.Hash) error {
	if err := batch.Put(rootKey, root.Bytes()); err != nil {
		return err
	}
	return batch.Put(append(blockPrefix, blockHash.Bytes()...), root.Bytes())
}
