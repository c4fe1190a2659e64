package memorydb

import (
	"bytes"
	"testing"
)

func TestMemoryDBBasicOps(t *testing.T) {
	db := New()

	if has, _ := db.Has([]byte("key")); has {
		t.Fatal("unexpected key in fresh database")
	}
	if err := db.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if has, _ := db.Has([]byte("key")); !has {
		t.Fatal("stored key not found")
	}
	got, err := db.Get([]byte("key"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Fatalf("wrong value: have %q, want %q", got, "value")
	}
	if err := db.Delete([]byte("key")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if has, _ := db.Has([]byte("key")); has {
		t.Fatal("deleted key still present")
	}
}

func TestMemoryDBValueIsolation(t *testing.T) {
	db := New()
	value := []byte("mutable")
	db.Put([]byte("key"), value)
	value[0] = 'X'

	got, _ := db.Get([]byte("key"))
	if !bytes.Equal(got, []byte("mutable")) {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
	got[0] = 'Y'
	again, _ := db.Get([]byte("key"))
	if !bytes.Equal(again, []byte("mutable")) {
		t.Fatalf("returned value aliased store: %q", again)
	}
}

func TestMemoryDBBatch(t *testing.T) {
	db := New()
	db.Put([]byte("stale"), []byte("x"))

	batch := db.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("stale"))

	// Nothing lands before Write.
	if has, _ := db.Has([]byte("a")); has {
		t.Fatal("batch leaked before write")
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("batch write failed: %v", err)
	}
	if has, _ := db.Has([]byte("stale")); has {
		t.Fatal("batched delete not applied")
	}
	if db.Len() != 2 {
		t.Fatalf("unexpected entry count %d", db.Len())
	}

	batch.Reset()
	if batch.ValueSize() != 0 {
		t.Fatal("reset batch reports residual size")
	}
}

func TestMemoryDBClose(t *testing.T) {
	db := New()
	db.Close()
	if err := db.Put([]byte("k"), []byte("v")); err == nil {
		t.Fatal("expected error writing to closed database")
	}
	if _, err := db.Get([]byte("k")); err == nil {
		t.Fatal("expected error reading from closed database")
	}
}

func TestMemoryDBKeys(t *testing.T) {
	db := New()
	db.Put([]byte("pa"), []byte("1"))
	db.Put([]byte("pb"), []byte("2"))
	db.Put([]byte("q"), []byte("3"))

	keys := db.Keys([]byte("p"))
	if len(keys) != 2 {
		t.Fatalf("unexpected key count %d", len(keys))
	}
	if !bytes.Equal(keys[0], []byte("pa")) || !bytes.Equal(keys[1], []byte("pb")) {
		t.Fatalf("keys out of order: %q", keys)
	}
}
