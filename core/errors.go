package core

// errors.go – sentinel error taxonomy for the stableswap pool core.
//
// Every failure kind named by the operation engine is one of the
// sentinels below. Callers use errors.Is to classify a failure; the
// wrapped message (where present) carries call-specific detail.

import (
	"errors"
	"fmt"
)

var (
	// ErrDoesNotConverge is returned by the invariant math when a
	// fixed-point iteration fails to settle within its iteration bound.
	ErrDoesNotConverge = errors.New("stableswap: iteration did not converge")

	// ErrDegenerateState covers division-by-zero and required-positive
	// quantities that are zero (empty pool, zero supply, zero Ann).
	ErrDegenerateState = errors.New("stableswap: degenerate pool state")

	// ErrInvariantNotIncreasing is returned when a deposit fails to
	// strictly increase D.
	ErrInvariantNotIncreasing = errors.New("stableswap: invariant did not increase")

	// ErrSlippageExceeded covers output-below-minimum and
	// burn-above-maximum guards.
	ErrSlippageExceeded = errors.New("stableswap: slippage exceeded")

	// ErrWithdrawalBelowMin is the balanced-withdrawal-specific
	// per-coin slippage guard.
	ErrWithdrawalBelowMin = errors.New("stableswap: withdrawal below minimum")

	// ErrInsufficientBalance means the caller's LP balance is below
	// the amount they are trying to burn.
	ErrInsufficientBalance = errors.New("stableswap: insufficient LP balance")

	// ErrInsufficientPoolBalance means a pool reserve would go
	// negative.
	ErrInsufficientPoolBalance = errors.New("stableswap: insufficient pool balance")

	// ErrUnauthorized is returned when a non-owner calls an
	// owner-only operation.
	ErrUnauthorized = errors.New("stableswap: unauthorized caller")

	// ErrBadParameter is the catch-all for malformed call parameters:
	// i == j, an index outside {0,1}, a parcel that does not match the
	// declared amounts, or a u256 value that does not fit in u128 at an
	// egress boundary.
	ErrBadParameter = errors.New("stableswap: bad parameter")

	// ErrArithmeticOverflow wraps ErrBadParameter: a checked u256
	// operation overflowed, which at the supported parameter ranges
	// (A <= 1e6, balances <= ~1e30) implies an out-of-range operand.
	ErrArithmeticOverflow = fmt.Errorf("%w: arithmetic overflow", ErrBadParameter)

	// ErrAlreadyInitialized wraps ErrBadParameter: Init was called a
	// second time against an already-initialized pool.
	ErrAlreadyInitialized = fmt.Errorf("%w: pool already initialized", ErrBadParameter)

	// ErrNotInitialized is returned by every operation but Init when
	// the pool has not been initialized yet.
	ErrNotInitialized = errors.New("stableswap: pool not initialized")
)

// wrapStorage tags an error surfaced by a Store implementation so
// callers can still unwrap through to the backend's own error via
// errors.Is/errors.As, per the "propagated verbatim" policy.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("stableswap: storage error: %w", err)
}
