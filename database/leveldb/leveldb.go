// Package leveldb implements the key-value database layer based on LevelDB.
package leveldb

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/prometheus/tsdb/fileutil"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/meridianio/go-meridian/database"
	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[leveldb]")

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// LDBDatabase is a persistent key-value store. Apart from basic data storage
// functionality it also supports batch writes.
type LDBDatabase struct {
	fn string      // filename for reporting
	db *leveldb.DB // LevelDB instance

	flock    fileutil.Releaser // File-system lock to prevent double opens
	quitLock sync.Mutex        // Mutex serializing Close
}

// New returns a wrapped LevelDB object.
func New(file string, cache int, handles int, readonly bool) (*LDBDatabase, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	log.Infof("Allocated cache and file handles. database=%s, cache=%dMB, handles=%d", file, cache, handles)

	// Lock the instance directory to prevent concurrent opens.
	flock, _, err := fileutil.Flock(filepath.Join(filepath.Dir(file), "LOCK"))
	if err != nil {
		return nil, err
	}
	// Open the db and recover any potential corruptions
	db, err := leveldb.OpenFile(file, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
		ReadOnly:               readonly,
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		flock.Release()
		return nil, err
	}
	return &LDBDatabase{
		fn:    file,
		db:    db,
		flock: flock,
	}, nil
}

// Path returns the path to the database directory.
func (db *LDBDatabase) Path() string {
	return db.fn
}

// Has retrieves if a key is present in the key-value store.
func (db *LDBDatabase) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

// Get retrieves the given key if it's present in the key-value store.
func (db *LDBDatabase) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(key, nil)
	if err != nil {
		return nil, err
	}
	return dat, nil
}

// Put inserts the given value into the key-value store.
func (db *LDBDatabase) Put(key []byte, value []byte) error {
	return db.db.Put(key, value, nil)
}

// Delete removes the key from the key-value store.
func (db *LDBDatabase) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}

// Close flushes any pending data to disk and closes all io accesses to the
// underlying key-value store.
func (db *LDBDatabase) Close() {
	db.quitLock.Lock()
	defer db.quitLock.Unlock()

	if err := db.db.Close(); err != nil {
		log.Errorf("Failed to close database %s: %v", db.fn, err)
	}
	if err := db.flock.Release(); err != nil {
		log.Errorf("Failed to release directory lock %s: %v", db.fn, err)
	}
	log.Infof("Database closed. database=%s", db.fn)
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *LDBDatabase) NewBatch() database.Batch {
	return &batch{
		db: db.db,
		b:  new(leveldb.Batch),
	}
}

// String implements fmt.Stringer.
func (db *LDBDatabase) String() string {
	return fmt.Sprintf("leveldb(%s)", db.fn)
}

// batch is a write-only leveldb batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts a key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	return b.db.Write(b.b, nil)
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}
