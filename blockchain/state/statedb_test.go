package state

import (
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/database/memorydb"
)

var (
	testAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newEmptyState(t *testing.T) *StateDB {
	t.Helper()
	stateDB, err := New(NewDatabase(memorydb.New()))
	require.NoError(t, err)
	return stateDB
}

func testHeader(number uint64) *model.Header {
	return &model.Header{Number: new(big.Int).SetUint64(number), Difficulty: new(big.Int), GasLimit: 30000000}
}

func TestUpdaterCommitKeepsChanges(t *testing.T) {
	stateDB := newEmptyState(t)
	updater := stateDB.Updater()
	updater.AddBalance(testAddr, big.NewInt(42))
	updater.SetNonce(testAddr, 7)
	updater.Commit()

	assert.Equal(t, int64(42), stateDB.GetBalance(testAddr).Int64())
	assert.Equal(t, uint64(7), stateDB.GetNonce(testAddr))
}

func TestUpdaterDiscardRollsBack(t *testing.T) {
	stateDB := newEmptyState(t)
	stateDB.AddBalance(testAddr, big.NewInt(10))

	updater := stateDB.Updater()
	updater.AddBalance(testAddr, big.NewInt(5))
	updater.SetNonce(testAddr, 3)
	updater.AddBalance(otherAddr, big.NewInt(1))
	updater.Discard()

	assert.Equal(t, int64(10), stateDB.GetBalance(testAddr).Int64())
	assert.Equal(t, uint64(0), stateDB.GetNonce(testAddr))
	assert.False(t, stateDB.Exist(otherAddr))
}

func TestSequentialUpdaters(t *testing.T) {
	stateDB := newEmptyState(t)

	first := stateDB.Updater()
	first.AddBalance(testAddr, big.NewInt(1))
	first.Commit()

	second := stateDB.Updater()
	second.AddBalance(testAddr, big.NewInt(2))
	second.Discard()

	assert.Equal(t, int64(1), stateDB.GetBalance(testAddr).Int64())
}

func TestResetRestoresPersistedState(t *testing.T) {
	diskdb := memorydb.New()
	stateDB, err := New(NewDatabase(diskdb))
	require.NoError(t, err)

	stateDB.AddBalance(testAddr, big.NewInt(100))
	require.NoError(t, stateDB.Persist(testHeader(0)))

	stateDB.AddBalance(testAddr, big.NewInt(900))
	stateDB.AddBalance(otherAddr, big.NewInt(5))
	require.Equal(t, int64(1000), stateDB.GetBalance(testAddr).Int64())

	stateDB.Reset()
	assert.Equal(t, int64(100), stateDB.GetBalance(testAddr).Int64())
	assert.False(t, stateDB.Exist(otherAddr))

	// A fresh view over the same store observes the same state.
	fresh, err := New(NewDatabase(diskdb))
	require.NoError(t, err)
	if fresh.GetBalance(testAddr).Int64() != 100 {
		t.Fatalf("unexpected persisted state:\n%s", spew.Sdump(fresh.GetBalance(testAddr)))
	}
}

func TestPersistAdvancesBaseline(t *testing.T) {
	stateDB := newEmptyState(t)

	stateDB.AddBalance(testAddr, big.NewInt(50))
	require.NoError(t, stateDB.Persist(testHeader(1)))
	rootOne := stateDB.Root()

	stateDB.AddBalance(testAddr, big.NewInt(25))
	require.NoError(t, stateDB.Persist(testHeader(2)))
	rootTwo := stateDB.Root()

	assert.NotEqual(t, rootOne, rootTwo)

	// Reset now restores the second block's state, not the first.
	stateDB.AddBalance(testAddr, big.NewInt(1))
	stateDB.Reset()
	assert.Equal(t, int64(75), stateDB.GetBalance(testAddr).Int64())
}

func TestPersistDeterministicRoot(t *testing.T) {
	build := func() common.Hash {
		stateDB := newEmptyState(t)
		stateDB.AddBalance(testAddr, big.NewInt(7))
		stateDB.AddBalance(otherAddr, big.NewInt(13))
		stateDB.SetNonce(testAddr, 2)
		require.NoError(t, stateDB.Persist(testHeader(1)))
		return stateDB.Root()
	}
	assert.Equal(t, build(), build())
}

func TestSnapshotRevertNested(t *testing.T) {
	stateDB := newEmptyState(t)
	stateDB.AddBalance(testAddr, big.NewInt(1))

	outer := stateDB.Snapshot()
	stateDB.AddBalance(testAddr, big.NewInt(2))
	inner := stateDB.Snapshot()
	stateDB.AddBalance(testAddr, big.NewInt(4))

	stateDB.RevertToSnapshot(inner)
	assert.Equal(t, int64(3), stateDB.GetBalance(testAddr).Int64())
	stateDB.RevertToSnapshot(outer)
	assert.Equal(t, int64(1), stateDB.GetBalance(testAddr).Int64())
}

func TestStorageRoundTrip(t *testing.T) {
	diskdb := memorydb.New()
	stateDB, err := New(NewDatabase(diskdb))
	require.NoError(t, err)

	key := common.HexToHash("0x01")
	value := common.HexToHash("0xbeef")
	stateDB.SetState(testAddr, key, value)
	stateDB.AddBalance(testAddr, big.NewInt(1))
	require.NoError(t, stateDB.Persist(testHeader(1)))

	fresh, err := New(NewDatabase(diskdb))
	require.NoError(t, err)
	assert.Equal(t, value, fresh.GetState(testAddr, key))
}

func TestAddLogJournalled(t *testing.T) {
	stateDB := newEmptyState(t)
	txHash := common.HexToHash("0xabc")
	stateDB.Prepare(txHash, 0)

	rev := stateDB.Snapshot()
	stateDB.AddLog(&model.Log{Address: testAddr})
	require.Len(t, stateDB.GetLogs(txHash, 1, common.Hash{}), 1)

	stateDB.RevertToSnapshot(rev)
	assert.Empty(t, stateDB.GetLogs(txHash, 1, common.Hash{}))
}

func TestSuicideRevert(t *testing.T) {
	stateDB := newEmptyState(t)
	stateDB.AddBalance(testAddr, big.NewInt(9))

	rev := stateDB.Snapshot()
	require.True(t, stateDB.Suicide(testAddr))
	assert.True(t, stateDB.HasSuicided(testAddr))
	assert.Equal(t, int64(0), stateDB.GetBalance(testAddr).Int64())

	stateDB.RevertToSnapshot(rev)
	assert.False(t, stateDB.HasSuicided(testAddr))
	assert.Equal(t, int64(9), stateDB.GetBalance(testAddr).Int64())
}
