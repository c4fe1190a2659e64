package model

import (
	"testing"

	"github.com/meridianio/go-meridian/common"
)

func TestBloomAddTest(t *testing.T) {
	positive := []string{
		"testtest",
		"test",
		"hallo",
		"other",
	}
	negative := []string{
		"tes",
		"lo",
	}

	var bloom Bloom
	for _, data := range positive {
		bloom.Add([]byte(data))
	}
	for _, data := range positive {
		if !bloom.Test([]byte(data)) {
			t.Errorf("expected %q to be present in the bloom", data)
		}
	}
	for _, data := range negative {
		if bloom.Test([]byte(data)) {
			t.Errorf("did not expect %q in the bloom", data)
		}
	}
}

func TestCreateBloomFromLogs(t *testing.T) {
	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	topic := common.HexToHash("0x66")
	receipt := &Receipt{Logs: []*Log{{Address: addr, Topics: []common.Hash{topic}}}}

	bloom := CreateBloom(Receipts{receipt})
	if !bloom.Test(addr.Bytes()) {
		t.Error("log address missing from bloom")
	}
	if !bloom.Test(topic.Bytes()) {
		t.Error("log topic missing from bloom")
	}
	if !BloomLookup(bloom, addr) {
		t.Error("BloomLookup disagrees with Test")
	}

	empty := CreateBloom(Receipts{&Receipt{}})
	if empty != (Bloom{}) {
		t.Error("receipt without logs produced a non-empty bloom")
	}
}

func TestBlockHashStable(t *testing.T) {
	header := newTestHeader()
	block := NewBlockWithHeader(header)
	if block.Hash() != block.Hash() {
		t.Error("block hash not stable across calls")
	}
	if block.Hash() != header.Hash() {
		t.Error("block hash differs from header hash")
	}
}

func TestUncleHashEmpty(t *testing.T) {
	if CalcUncleHash(nil) != EmptyUncleHash {
		t.Error("empty uncle list must hash to EmptyUncleHash")
	}
}
