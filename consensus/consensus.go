// Package consensus hosts the strategies a block processor is assembled
// from: mining beneficiary calculators and the per-fork reward policies in
// the ethash and beacon sub-packages.
package consensus

import (
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
)

// CoinbaseBeneficiaryCalculator credits the address named by the header
// itself. This is the mainnet behavior for both proof of work and proof of
// stake blocks.
type CoinbaseBeneficiaryCalculator struct{}

// CalculateBeneficiary returns the header coinbase.
func (CoinbaseBeneficiaryCalculator) CalculateBeneficiary(header *model.Header) common.Address {
	return header.Coinbase
}

// SignerBeneficiaryCalculator credits a fixed signer address regardless of
// the header coinbase, as proof-of-authority networks do when the sealing
// key differs from the advertised coinbase.
type SignerBeneficiaryCalculator struct {
	signer common.Address
}

// NewSignerBeneficiaryCalculator builds a calculator crediting signer.
func NewSignerBeneficiaryCalculator(signer common.Address) *SignerBeneficiaryCalculator {
	return &SignerBeneficiaryCalculator{signer: signer}
}

// CalculateBeneficiary returns the configured signer.
func (calc *SignerBeneficiaryCalculator) CalculateBeneficiary(header *model.Header) common.Address {
	return calc.signer
}
