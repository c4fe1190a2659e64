package rlp

import (
	"bytes"
	"math/big"
	"testing"
)

type encTest struct {
	val  interface{}
	want []byte
}

func TestEncodeScalars(t *testing.T) {
	tests := []encTest{
		{uint64(0), []byte{0x80}},
		{uint64(15), []byte{0x0f}},
		{uint64(127), []byte{0x7f}},
		{uint64(128), []byte{0x81, 0x80}},
		{uint64(1024), []byte{0x82, 0x04, 0x00}},
		{big.NewInt(0), []byte{0x80}},
		{big.NewInt(0x102030), []byte{0x83, 0x10, 0x20, 0x30}},
		{true, []byte{0x01}},
		{false, []byte{0x80}},
	}
	for i, test := range tests {
		enc, err := EncodeToBytes(test.val)
		if err != nil {
			t.Errorf("test %d: unexpected error %v", i, err)
			continue
		}
		if !bytes.Equal(enc, test.want) {
			t.Errorf("test %d: have %x, want %x", i, enc, test.want)
		}
	}
}

func TestEncodeStrings(t *testing.T) {
	tests := []encTest{
		{"", []byte{0x80}},
		{"dog", []byte{0x83, 'd', 'o', 'g'}},
		{[]byte{}, []byte{0x80}},
		{[]byte{0x7e}, []byte{0x7e}},
		{[]byte{0x80}, []byte{0x81, 0x80}},
		{"Lorem ipsum dolor sit amet, consectetur adipisicing elit",
			append([]byte{0xb8, 0x38}, "Lorem ipsum dolor sit amet, consectetur adipisicing elit"...)},
	}
	for i, test := range tests {
		enc, err := EncodeToBytes(test.val)
		if err != nil {
			t.Errorf("test %d: unexpected error %v", i, err)
			continue
		}
		if !bytes.Equal(enc, test.want) {
			t.Errorf("test %d: have %x, want %x", i, enc, test.want)
		}
	}
}

func TestEncodeLists(t *testing.T) {
	empty, _ := EncodeToBytes([]string{})
	if !bytes.Equal(empty, []byte{0xc0}) {
		t.Errorf("empty list: have %x, want c0", empty)
	}

	catDog, _ := EncodeToBytes([]string{"cat", "dog"})
	want := []byte{0xc8, 0x83, 'c', 'a', 't', 0x83, 'd', 'o', 'g'}
	if !bytes.Equal(catDog, want) {
		t.Errorf("cat/dog list: have %x, want %x", catDog, want)
	}
}

func TestEncodeStructOptional(t *testing.T) {
	type item struct {
		A uint64
		B *big.Int `rlp:"optional"`
	}
	// Trailing nil optional fields vanish from the encoding.
	enc, err := EncodeToBytes(&item{A: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, []byte{0xc1, 0x01}) {
		t.Errorf("have %x, want c101", enc)
	}
	// Present optional fields encode normally.
	enc, err = EncodeToBytes(&item{A: 1, B: big.NewInt(2)})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, []byte{0xc2, 0x01, 0x02}) {
		t.Errorf("have %x, want c20102", enc)
	}
}

func TestEncodeNegativeBigInt(t *testing.T) {
	if _, err := EncodeToBytes(big.NewInt(-1)); err != ErrNegativeBigInt {
		t.Errorf("have %v, want ErrNegativeBigInt", err)
	}
}

func TestEncodeByteArray(t *testing.T) {
	enc, err := EncodeToBytes([4]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(enc, []byte{0x84, 1, 2, 3, 4}) {
		t.Errorf("have %x", enc)
	}
}
