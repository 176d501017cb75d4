package core

// math.go – the stableswap invariant math: get_D, get_y, and get_y_D,
// as fixed-point iterations over 256-bit unsigned integers. Pure,
// side-effect-free; these functions never touch a Store.
//
// Grounded on original_source/alkanes/synth-pool/src/math.rs. All
// multiplications happen before divisions, exactly as the original
// orders them, to preserve precision. Overflow is never allowed to
// wrap silently: multiplications that could overflow use
// uint256.Int.MulOverflow and fail with ErrArithmeticOverflow instead
// of the original's saturating_mul. The one saturating operation kept
// from the original is the `Ann - A_PRECISION` clamp inside get_D,
// which is a deliberate part of the converging iteration rather than
// an overflow condition.

import (
	"github.com/holiman/uint256"
)

var (
	nCoins        = uint256.NewInt(N_COINS)
	nCoinsPlus1   = uint256.NewInt(N_COINS + 1)
	aPrecision    = uint256.NewInt(100)
	oneU256       = uint256.NewInt(1)
	twoU256       = uint256.NewInt(2)
	maxIterations = 255
)

// checkedMul returns x*y, failing with ErrArithmeticOverflow instead
// of wrapping if the product does not fit in 256 bits.
func checkedMul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// checkedAdd returns x+y, failing with ErrArithmeticOverflow instead
// of wrapping on overflow.
func checkedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// checkedSub returns x-y, failing with ErrInsufficientPoolBalance
// instead of wrapping if y > x. Callers that need a different result on
// underflow use subOrDegenerate or subSaturating instead.
func checkedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrInsufficientPoolBalance
	}
	return z, nil
}

// subOrDegenerate returns x-y, failing with ErrDegenerateState instead
// of wrapping if y > x. Used in the denominator of the y-iterations,
// where an underflow means the iteration has walked into a state with
// no valid root (not a pool-balance accounting problem).
func subOrDegenerate(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrDegenerateState
	}
	return z, nil
}

// subSaturating returns x-y, floored at zero, matching the original's
// saturating_sub used for the Ann-A_PRECISION clamp.
func subSaturating(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(x, y)
}

// mulDivChecked computes a*b/denom, failing with ErrDegenerateState on
// division by zero and ErrArithmeticOverflow if a*b does not fit u256.
func mulDivChecked(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ErrDegenerateState
	}
	prod, err := checkedMul(a, b)
	if err != nil {
		return nil, err
	}
	return prod.Div(prod, denom), nil
}

// absDiffLE1 reports whether |a-b| <= 1, the convergence test shared
// by all three iterations.
func absDiffLE1(a, b *uint256.Int) bool {
	var d uint256.Int
	if a.Gt(b) {
		d.Sub(a, b)
	} else {
		d.Sub(b, a)
	}
	return d.Cmp(oneU256) <= 0
}

// GetD computes the stableswap invariant D for the given balances and
// amplification factor A (unscaled; A_PRECISION is applied internally).
func GetD(xp [N_COINS]*uint256.Int, amp *uint256.Int) (*uint256.Int, error) {
	S := new(uint256.Int).Add(xp[0], xp[1])
	if S.IsZero() {
		return uint256.NewInt(0), nil
	}

	Ann, err := checkedMul(amp, nCoins)
	if err != nil {
		return nil, err
	}

	D := S.Clone()
	for iter := 0; iter < maxIterations; iter++ {
		DP := D.Clone()
		for _, x := range xp {
			denom, err := checkedMul(x, nCoins)
			if err != nil {
				return nil, err
			}
			denom, err = checkedAdd(denom, oneU256)
			if err != nil {
				return nil, err
			}
			if denom.IsZero() {
				return nil, ErrDegenerateState
			}
			DP, err = checkedMul(DP, D)
			if err != nil {
				return nil, err
			}
			DP = DP.Div(DP, denom)
		}

		Dprev := D.Clone()

		// num = (Ann*S/A_PRECISION + D_P*N_COINS) * D
		t1, err := checkedMul(Ann, S)
		if err != nil {
			return nil, err
		}
		t1 = t1.Div(t1, aPrecision)
		t2, err := checkedMul(DP, nCoins)
		if err != nil {
			return nil, err
		}
		t1, err = checkedAdd(t1, t2)
		if err != nil {
			return nil, err
		}
		num, err := checkedMul(t1, D)
		if err != nil {
			return nil, err
		}

		// den = (Ann - A_PRECISION)*D/A_PRECISION + (N_COINS+1)*D_P
		d1 := subSaturating(Ann, aPrecision)
		d1, err = checkedMul(d1, D)
		if err != nil {
			return nil, err
		}
		d1 = d1.Div(d1, aPrecision)
		d2, err := checkedMul(nCoinsPlus1, DP)
		if err != nil {
			return nil, err
		}
		den, err := checkedAdd(d1, d2)
		if err != nil {
			return nil, err
		}
		if den.IsZero() {
			return nil, ErrDegenerateState
		}

		D = num.Div(num, den)

		if absDiffLE1(D, Dprev) {
			return D, nil
		}
	}
	return nil, ErrDoesNotConverge
}

// GetY solves for coin j's new balance given a proposed new value x for
// coin i, holding the invariant D fixed. i must not equal j; both must
// be in {0,1}.
func GetY(i, j int, x *uint256.Int, xp [N_COINS]*uint256.Int, amp, D *uint256.Int) (*uint256.Int, error) {
	if i == j || i < 0 || i >= N_COINS || j < 0 || j >= N_COINS {
		return nil, ErrBadParameter
	}

	Ann, err := checkedMul(amp, nCoins)
	if err != nil {
		return nil, err
	}

	c := D.Clone()
	S_ := uint256.NewInt(0)
	for k := 0; k < N_COINS; k++ {
		if k == j {
			continue
		}
		var xk *uint256.Int
		if k == i {
			xk = x
		} else {
			xk = xp[k]
		}
		S_, err = checkedAdd(S_, xk)
		if err != nil {
			return nil, err
		}
		denom, err := checkedMul(xk, nCoins)
		if err != nil {
			return nil, err
		}
		if denom.IsZero() {
			return nil, ErrDegenerateState
		}
		c, err = checkedMul(c, D)
		if err != nil {
			return nil, err
		}
		c = c.Div(c, denom)
	}

	c, err = checkedMul(c, D)
	if err != nil {
		return nil, err
	}
	c, err = checkedMul(c, aPrecision)
	if err != nil {
		return nil, err
	}
	annN, err := checkedMul(Ann, nCoins)
	if err != nil {
		return nil, err
	}
	if annN.IsZero() {
		return nil, ErrDegenerateState
	}
	c = c.Div(c, annN)

	if Ann.IsZero() {
		return nil, ErrDegenerateState
	}
	dApr, err := checkedMul(D, aPrecision)
	if err != nil {
		return nil, err
	}
	b, err := checkedAdd(S_, dApr.Div(dApr, Ann))
	if err != nil {
		return nil, err
	}

	y := D.Clone()
	for iter := 0; iter < maxIterations; iter++ {
		yPrev := y.Clone()

		ySq, err := checkedMul(y, y)
		if err != nil {
			return nil, err
		}
		num, err := checkedAdd(ySq, c)
		if err != nil {
			return nil, err
		}
		twoY, err := checkedMul(twoU256, y)
		if err != nil {
			return nil, err
		}
		den, err := checkedAdd(twoY, b)
		if err != nil {
			return nil, err
		}
		den, err = subOrDegenerate(den, D)
		if err != nil {
			return nil, err
		}
		if den.IsZero() {
			return nil, ErrDegenerateState
		}
		y = num.Div(num, den)

		if absDiffLE1(y, yPrev) {
			return y, nil
		}
	}
	return nil, ErrDoesNotConverge
}

// GetYD solves for coin i's balance that reduces the invariant from
// whatever it implicitly was down to D, holding every other coin's
// balance at xp[k]. Used by asymmetric (one-coin) withdrawal.
func GetYD(amp *uint256.Int, i int, xp [N_COINS]*uint256.Int, D *uint256.Int) (*uint256.Int, error) {
	if i < 0 || i >= N_COINS {
		return nil, ErrBadParameter
	}

	Ann, err := checkedMul(amp, nCoins)
	if err != nil {
		return nil, err
	}

	c := D.Clone()
	S_ := uint256.NewInt(0)
	for k := 0; k < N_COINS; k++ {
		if k == i {
			continue
		}
		xk := xp[k]
		S_, err = checkedAdd(S_, xk)
		if err != nil {
			return nil, err
		}
		denom, err := checkedMul(xk, nCoins)
		if err != nil {
			return nil, err
		}
		if denom.IsZero() {
			return nil, ErrDegenerateState
		}
		c, err = checkedMul(c, D)
		if err != nil {
			return nil, err
		}
		c = c.Div(c, denom)
	}

	c, err = checkedMul(c, D)
	if err != nil {
		return nil, err
	}
	c, err = checkedMul(c, aPrecision)
	if err != nil {
		return nil, err
	}
	annN, err := checkedMul(Ann, nCoins)
	if err != nil {
		return nil, err
	}
	if annN.IsZero() {
		return nil, ErrDegenerateState
	}
	c = c.Div(c, annN)

	if Ann.IsZero() {
		return nil, ErrDegenerateState
	}
	dApr, err := checkedMul(D, aPrecision)
	if err != nil {
		return nil, err
	}
	b, err := checkedAdd(S_, dApr.Div(dApr, Ann))
	if err != nil {
		return nil, err
	}

	y := D.Clone()
	for iter := 0; iter < maxIterations; iter++ {
		yPrev := y.Clone()

		ySq, err := checkedMul(y, y)
		if err != nil {
			return nil, err
		}
		num, err := checkedAdd(ySq, c)
		if err != nil {
			return nil, err
		}
		twoY, err := checkedMul(twoU256, y)
		if err != nil {
			return nil, err
		}
		den, err := checkedAdd(twoY, b)
		if err != nil {
			return nil, err
		}
		den, err = subOrDegenerate(den, D)
		if err != nil {
			return nil, err
		}
		if den.IsZero() {
			return nil, ErrDegenerateState
		}
		y = num.Div(num, den)

		if absDiffLE1(y, yPrev) {
			return y, nil
		}
	}
	return nil, ErrDoesNotConverge
}

// checkU128 fails with ErrBadParameter if x does not fit in 128 bits,
// the boundary check spec.md's "Big integers" note requires at every
// u256->u128 egress point.
func checkU128(x *uint256.Int) error {
	if x.BitLen() > 128 {
		return ErrBadParameter
	}
	return nil
}
