package domain

import "github.com/holiman/uint256"

// MaxFeeBps is 100%.
const MaxFeeBps = 10_000

// SplitFee divides amount into the platform fee and the merchant share.
// The fee is floor(amount*bps/10000) computed in 256 bits; the remainder
// goes to the merchant, so fee+merchant == amount always.
func SplitFee(amount uint64, feeBps uint32) (fee, merchant uint64, err error) {
	if feeBps > MaxFeeBps {
		return 0, 0, ErrFeeBpsOutOfRange
	}
	x := new(uint256.Int).SetUint64(amount)
	x.Mul(x, uint256.NewInt(uint64(feeBps)))
	x.Div(x, uint256.NewInt(MaxFeeBps))
	fee = x.Uint64()
	return fee, amount - fee, nil
}
