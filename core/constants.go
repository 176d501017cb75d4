package core

import "github.com/holiman/uint256"

// feeDenominator and precision are the two scaling bases spec.md's
// GLOSSARY defines: fee/admin_fee coefficients are rationals over
// feeDenominator, and get_virtual_price scales by precision.
var (
	feeDenominator = uint256.NewInt(10_000_000_000) // 10^10
	precision      = newUint256FromDecimal("1000000000000000000") // 10^18
)

func newUint256FromDecimal(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic("core: bad decimal constant " + s)
	}
	return v
}
