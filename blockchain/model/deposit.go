package model

import (
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
)

const (
	// BLSPubKeyLen is the length of a BLS12-381 validator public key.
	BLSPubKeyLen = 48
	// BLSSigLen is the length of a BLS12-381 signature over a deposit message.
	BLSSigLen = 96
)

// Deposit is a validator deposit receipt surfaced by the deposit contract.
// Deposits are collected during block execution and handed to the consensus
// layer; they do not mutate execution-layer state.
type Deposit struct {
	Pubkey                [BLSPubKeyLen]byte `json:"pubkey"`                // public key of the validator
	WithdrawalCredentials common.Hash        `json:"withdrawalCredentials"` // beneficiary of the validator funds
	Amount                uint64             `json:"amount"`                // deposit size in Gwei
	Signature             [BLSSigLen]byte    `json:"signature"`             // signature over the deposit message
	Index                 uint64             `json:"index"`                 // deposit count value
}

// field type overrides for gencodec
type depositMarshaling struct {
	Pubkey    hexutil.Bytes
	Amount    hexutil.Uint64
	Signature hexutil.Bytes
	Index     hexutil.Uint64
}

// Deposits is a list of deposits.
type Deposits []*Deposit

// Len returns the length of s.
func (s Deposits) Len() int { return len(s) }
