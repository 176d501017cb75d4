package core

// engine.go – the Operation Engine: the seven mutating operations
// (Init, AddLiquidity, RemoveLiquidity, RemoveLiquidityImbalance,
// RemoveLiquidityOneCoin, Swap, ClaimAdminFees) spec.md §4.3.1-§4.3.7
// describes, each running inside Engine.atomic.
//
// Grounded on original_source/alkanes/synth-pool/src/lib.rs for
// operation semantics and on core/liquidity_pools.go for Go shape: a
// manager wrapping pool state, one public method per operation, a
// logrus logger recording lifecycle events.

import (
	log "github.com/sirupsen/logrus"

	"github.com/holiman/uint256"
)

// SetLogger overrides the package-level logger the engine writes
// lifecycle lines to. Matches core/liquidity_pools.go's InitAMM(lg,
// ledger) pattern, simplified to a package var since Engine has only
// one construction path here.
var engineLogger = log.StandardLogger()

func SetLogger(lg *log.Logger) { engineLogger = lg }

// Init implements spec.md §4.3.1. A second Init against an already
// initialized pool fails ErrAlreadyInitialized (Open Question 3).
func (e *Engine) Init(ctx CallContext, tokenA, tokenB ID, A, fee, adminFee *uint256.Int, owner ID) error {
	_, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		already, err := ps.Initialized()
		if err != nil {
			return nil, nil, err
		}
		if already {
			return nil, nil, ErrAlreadyInitialized
		}
		if err := checkU128(A); err != nil {
			return nil, nil, err
		}
		if err := checkU128(fee); err != nil {
			return nil, nil, err
		}
		if err := checkU128(adminFee); err != nil {
			return nil, nil, err
		}
		if err := ps.SetCoin(0, tokenA); err != nil {
			return nil, nil, err
		}
		if err := ps.SetCoin(1, tokenB); err != nil {
			return nil, nil, err
		}
		if err := ps.SetA(A); err != nil {
			return nil, nil, err
		}
		if err := ps.SetFee(fee); err != nil {
			return nil, nil, err
		}
		if err := ps.SetAdminFee(adminFee); err != nil {
			return nil, nil, err
		}
		if err := ps.SetOwner(owner); err != nil {
			return nil, nil, err
		}
		if err := ps.SetInitialized(); err != nil {
			return nil, nil, err
		}
		engineLogger.WithFields(log.Fields{
			"token_a": tokenA.String(), "token_b": tokenB.String(), "A": A.String(),
		}).Info("pool initialized")
		return nil, nil, nil
	})
	return err
}

// requireInitialized is the guard spec.md §4.3.8's state-machine note
// asks every operation but Init to apply.
func requireInitialized(ps *PoolState) error {
	ok, err := ps.Initialized()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	return nil
}

// effectiveImbalanceFee computes fee' = fee*N_COINS/(4*(N_COINS-1)),
// the multiplier shared by AddLiquidity step 5 and
// RemoveLiquidityImbalance step 4.
func effectiveImbalanceFee(fee *uint256.Int) (*uint256.Int, error) {
	num, err := checkedMul(fee, nCoins)
	if err != nil {
		return nil, err
	}
	denom := uint256.NewInt(4 * (N_COINS - 1))
	return num.Div(num, denom), nil
}

// applyImbalanceFees mutates newBalances in place per the shared
// distribution spec.md §4.3.2 step 5 and §4.3.4 step 4 both specify:
// for each i, ideal = D1*oldBalances[i]/D0, diff = |ideal-new[i]|,
// fees[i] = fee'*diff/FEE_DENOMINATOR, admin_balances[i] +=
// fees[i]*admin_fee/FEE_DENOMINATOR, new[i] -= fees[i].
func applyImbalanceFees(ps *PoolState, feePrime, adminFee, D0, D1 *uint256.Int, oldBalances, newBalances *[N_COINS]*uint256.Int) error {
	for i := 0; i < N_COINS; i++ {
		ideal, err := mulDivChecked(D1, oldBalances[i], D0)
		if err != nil {
			return err
		}
		var diff uint256.Int
		if ideal.Gt(newBalances[i]) {
			diff.Sub(ideal, newBalances[i])
		} else {
			diff.Sub(newBalances[i], ideal)
		}
		feeI, err := mulDivChecked(feePrime, &diff, feeDenominator)
		if err != nil {
			return err
		}
		adminCut, err := mulDivChecked(feeI, adminFee, feeDenominator)
		if err != nil {
			return err
		}
		prevAdmin, err := ps.AdminBalance(i)
		if err != nil {
			return err
		}
		newAdmin, err := checkedAdd(prevAdmin, adminCut)
		if err != nil {
			return err
		}
		if err := ps.SetAdminBalance(i, newAdmin); err != nil {
			return err
		}
		reduced, err := checkedSub(newBalances[i], feeI)
		if err != nil {
			return err
		}
		newBalances[i] = reduced
	}
	return nil
}

// AddLiquidity implements spec.md §4.3.2.
func (e *Engine) AddLiquidity(ctx CallContext, amounts [N_COINS]*uint256.Int, minMintAmount *uint256.Int) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		anyPositive := false
		for i := 0; i < N_COINS; i++ {
			if err := checkU128(amounts[i]); err != nil {
				return nil, nil, err
			}
			if !amounts[i].IsZero() {
				anyPositive = true
			}
		}
		if !anyPositive {
			return nil, nil, ErrBadParameter
		}
		coins, err := poolCoins(ps)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < N_COINS; i++ {
			total, onlyThis := ctx.incomingTotal(coins[i])
			if total.Cmp(amounts[i]) != 0 {
				return nil, nil, ErrBadParameter
			}
			_ = onlyThis
		}

		A, err := ps.A()
		if err != nil {
			return nil, nil, err
		}
		oldBalances, err := ps.Balances()
		if err != nil {
			return nil, nil, err
		}
		tokenSupply, err := ps.TotalSupply()
		if err != nil {
			return nil, nil, err
		}

		var D0 *uint256.Int
		if tokenSupply.IsZero() {
			D0 = uint256.NewInt(0)
		} else {
			D0, err = GetD(oldBalances, A)
			if err != nil {
				return nil, nil, err
			}
		}

		var newBalances [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			nb, err := checkedAdd(oldBalances[i], amounts[i])
			if err != nil {
				return nil, nil, err
			}
			newBalances[i] = nb
		}

		D1, err := GetD(newBalances, A)
		if err != nil {
			return nil, nil, err
		}
		if !D1.Gt(D0) {
			return nil, nil, ErrInvariantNotIncreasing
		}

		var mintAmount *uint256.Int
		if tokenSupply.IsZero() {
			mintAmount = D1.Clone()
		} else {
			fee, err := ps.Fee()
			if err != nil {
				return nil, nil, err
			}
			adminFee, err := ps.AdminFee()
			if err != nil {
				return nil, nil, err
			}
			feePrime, err := effectiveImbalanceFee(fee)
			if err != nil {
				return nil, nil, err
			}
			if err := applyImbalanceFees(ps, feePrime, adminFee, D0, D1, &oldBalances, &newBalances); err != nil {
				return nil, nil, err
			}
			D2, err := GetD(newBalances, A)
			if err != nil {
				return nil, nil, err
			}
			diff, err := checkedSub(D2, D0)
			if err != nil {
				return nil, nil, err
			}
			mintAmount, err = mulDivChecked(tokenSupply, diff, D0)
			if err != nil {
				return nil, nil, err
			}
		}

		if err := checkU128(mintAmount); err != nil {
			return nil, nil, err
		}
		if mintAmount.Lt(minMintAmount) {
			return nil, nil, ErrSlippageExceeded
		}

		for i := 0; i < N_COINS; i++ {
			if err := ps.SetBalance(i, newBalances[i]); err != nil {
				return nil, nil, err
			}
		}
		if err := mintLP(ps, ctx.Caller, mintAmount); err != nil {
			return nil, nil, err
		}

		engineLogger.WithFields(log.Fields{"minted": mintAmount.String()}).Info("liquidity added")
		return nil, nil, nil
	})
	return parcel, err
}

// RemoveLiquidity implements spec.md §4.3.3: a balanced, fee-free
// withdrawal.
func (e *Engine) RemoveLiquidity(ctx CallContext, amount *uint256.Int, minAmounts [N_COINS]*uint256.Int) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		if err := checkU128(amount); err != nil {
			return nil, nil, err
		}
		callerLP, err := ps.LPBalance(ctx.Caller)
		if err != nil {
			return nil, nil, err
		}
		if callerLP.Lt(amount) {
			return nil, nil, ErrInsufficientBalance
		}
		T, err := ps.TotalSupply()
		if err != nil {
			return nil, nil, err
		}
		if T.IsZero() {
			return nil, nil, ErrDegenerateState
		}
		coins, err := poolCoins(ps)
		if err != nil {
			return nil, nil, err
		}

		var out [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			bal, err := ps.Balance(i)
			if err != nil {
				return nil, nil, err
			}
			outI, err := mulDivChecked(bal, amount, T)
			if err != nil {
				return nil, nil, err
			}
			if err := checkU128(outI); err != nil {
				return nil, nil, err
			}
			if outI.Lt(minAmounts[i]) {
				return nil, nil, ErrWithdrawalBelowMin
			}
			newBal, err := checkedSub(bal, outI)
			if err != nil {
				return nil, nil, err
			}
			if err := ps.SetBalance(i, newBal); err != nil {
				return nil, nil, err
			}
			out[i] = outI
		}

		if err := burnLP(ps, ctx.Caller, amount); err != nil {
			return nil, nil, err
		}

		parcel := make(Parcel, 0, N_COINS)
		for i := 0; i < N_COINS; i++ {
			parcel = append(parcel, Transfer{Coin: coins[i], Amount: out[i]})
		}
		engineLogger.Info("balanced liquidity removed")
		return parcel, nil, nil
	})
	return parcel, err
}

// RemoveLiquidityImbalance implements spec.md §4.3.4.
func (e *Engine) RemoveLiquidityImbalance(ctx CallContext, amounts [N_COINS]*uint256.Int, maxBurnAmount *uint256.Int) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		for i := 0; i < N_COINS; i++ {
			if err := checkU128(amounts[i]); err != nil {
				return nil, nil, err
			}
		}
		A, err := ps.A()
		if err != nil {
			return nil, nil, err
		}
		oldBalances, err := ps.Balances()
		if err != nil {
			return nil, nil, err
		}
		D0, err := GetD(oldBalances, A)
		if err != nil {
			return nil, nil, err
		}

		// persistBalances holds the pre-fee deltas (old - amounts); this
		// is what gets written to the store, per step 7. newBalances is
		// a separate variable carrying the fee-adjusted values used only
		// to compute D2/token_amount, avoiding the aliasing bug that
		// would silently persist the wrong one.
		var persistBalances, newBalances [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			nb, err := checkedSub(oldBalances[i], amounts[i])
			if err != nil {
				return nil, nil, err
			}
			persistBalances[i] = nb
			newBalances[i] = nb.Clone()
		}

		D1, err := GetD(newBalances, A)
		if err != nil {
			return nil, nil, err
		}

		fee, err := ps.Fee()
		if err != nil {
			return nil, nil, err
		}
		adminFee, err := ps.AdminFee()
		if err != nil {
			return nil, nil, err
		}
		feePrime, err := effectiveImbalanceFee(fee)
		if err != nil {
			return nil, nil, err
		}
		if err := applyImbalanceFees(ps, feePrime, adminFee, D0, D1, &oldBalances, &newBalances); err != nil {
			return nil, nil, err
		}

		D2, err := GetD(newBalances, A)
		if err != nil {
			return nil, nil, err
		}
		diff, err := checkedSub(D0, D2)
		if err != nil {
			return nil, nil, err
		}
		T, err := ps.TotalSupply()
		if err != nil {
			return nil, nil, err
		}
		if T.IsZero() {
			return nil, nil, ErrDegenerateState
		}
		tokenAmount, err := mulDivChecked(T, diff, D0)
		if err != nil {
			return nil, nil, err
		}
		if tokenAmount.Gt(maxBurnAmount) {
			return nil, nil, ErrSlippageExceeded
		}

		callerLP, err := ps.LPBalance(ctx.Caller)
		if err != nil {
			return nil, nil, err
		}
		if callerLP.Lt(tokenAmount) {
			return nil, nil, ErrInsufficientBalance
		}

		for i := 0; i < N_COINS; i++ {
			if err := ps.SetBalance(i, persistBalances[i]); err != nil {
				return nil, nil, err
			}
		}
		if err := burnLP(ps, ctx.Caller, tokenAmount); err != nil {
			return nil, nil, err
		}

		coins, err := poolCoins(ps)
		if err != nil {
			return nil, nil, err
		}
		parcel := make(Parcel, 0, N_COINS)
		for i := 0; i < N_COINS; i++ {
			parcel = append(parcel, Transfer{Coin: coins[i], Amount: amounts[i]})
		}
		engineLogger.WithFields(log.Fields{"burned": tokenAmount.String()}).Info("imbalanced liquidity removed")
		return parcel, nil, nil
	})
	return parcel, err
}

// calcWithdrawOneCoin implements _calc_withdraw_one_coin (spec.md
// §4.3.5 steps 1-5), returning dy; the fee-reduced xp used to derive
// it stays local. Shared by RemoveLiquidityOneCoin; kept separate since the
// original source factors it out identically.
func calcWithdrawOneCoin(ps *PoolState, A *uint256.Int, xp [N_COINS]*uint256.Int, tokenAmount *uint256.Int, i int, totalSupply, fee *uint256.Int) (dy *uint256.Int, err error) {
	D0, err := GetD(xp, A)
	if err != nil {
		return nil, err
	}
	if totalSupply.IsZero() {
		return nil, ErrDegenerateState
	}
	burnShare, err := mulDivChecked(tokenAmount, D0, totalSupply)
	if err != nil {
		return nil, err
	}
	D1, err := checkedSub(D0, burnShare)
	if err != nil {
		return nil, err
	}

	newY, err := GetYD(A, i, xp, D1)
	if err != nil {
		return nil, err
	}

	xpReduced := xp
	for j := 0; j < N_COINS; j++ {
		var dxExpected *uint256.Int
		scaled, err := mulDivChecked(xp[j], D1, D0)
		if err != nil {
			return nil, err
		}
		if j == i {
			dxExpected, err = checkedSub(scaled, newY)
			if err != nil {
				return nil, err
			}
		} else {
			dxExpected, err = checkedSub(xp[j], scaled)
			if err != nil {
				return nil, err
			}
		}
		feeAmt, err := mulDivChecked(fee, dxExpected, feeDenominator)
		if err != nil {
			return nil, err
		}
		reduced, err := checkedSub(xpReduced[j], feeAmt)
		if err != nil {
			return nil, err
		}
		xpReduced[j] = reduced
	}

	yReduced, err := GetYD(A, i, xpReduced, D1)
	if err != nil {
		return nil, err
	}
	dyBeforeFloor, err := checkedSub(xpReduced[i], yReduced)
	if err != nil {
		return nil, err
	}
	// the -1 is a deliberate rounding floor, not an off-by-one bug
	dy, err = checkedSub(dyBeforeFloor, oneU256)
	if err != nil {
		return nil, err
	}
	return dy, nil
}

// RemoveLiquidityOneCoin implements spec.md §4.3.5.
func (e *Engine) RemoveLiquidityOneCoin(ctx CallContext, tokenAmount *uint256.Int, i int, minAmount *uint256.Int) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		if i < 0 || i >= N_COINS {
			return nil, nil, ErrBadParameter
		}
		if err := checkU128(tokenAmount); err != nil {
			return nil, nil, err
		}
		callerLP, err := ps.LPBalance(ctx.Caller)
		if err != nil {
			return nil, nil, err
		}
		if callerLP.Lt(tokenAmount) {
			return nil, nil, ErrInsufficientBalance
		}

		A, err := ps.A()
		if err != nil {
			return nil, nil, err
		}
		xp, err := ps.Balances()
		if err != nil {
			return nil, nil, err
		}
		totalSupply, err := ps.TotalSupply()
		if err != nil {
			return nil, nil, err
		}
		fee, err := ps.Fee()
		if err != nil {
			return nil, nil, err
		}

		dy, err := calcWithdrawOneCoin(ps, A, xp, tokenAmount, i, totalSupply, fee)
		if err != nil {
			return nil, nil, err
		}
		if err := checkU128(dy); err != nil {
			return nil, nil, err
		}
		if dy.Lt(minAmount) {
			return nil, nil, ErrSlippageExceeded
		}

		newBal, err := checkedSub(xp[i], dy)
		if err != nil {
			return nil, nil, err
		}
		if err := ps.SetBalance(i, newBal); err != nil {
			return nil, nil, err
		}
		if err := burnLP(ps, ctx.Caller, tokenAmount); err != nil {
			return nil, nil, err
		}

		coin, err := ps.Coin(i)
		if err != nil {
			return nil, nil, err
		}
		engineLogger.WithFields(log.Fields{"dy": dy.String()}).Info("one-coin liquidity removed")
		return Parcel{{Coin: coin, Amount: dy}}, nil, nil
	})
	return parcel, err
}

// Swap implements spec.md §4.3.6.
func (e *Engine) Swap(ctx CallContext, i, j int, dx, minDy *uint256.Int) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		if i == j || i < 0 || i >= N_COINS || j < 0 || j >= N_COINS {
			return nil, nil, ErrBadParameter
		}
		if dx == nil || dx.IsZero() {
			return nil, nil, ErrBadParameter
		}
		if err := checkU128(dx); err != nil {
			return nil, nil, err
		}

		coinI, err := ps.Coin(i)
		if err != nil {
			return nil, nil, err
		}
		total, onlyThis := ctx.incomingTotal(coinI)
		if !onlyThis || total.Cmp(dx) != 0 {
			return nil, nil, ErrBadParameter
		}

		xp, err := ps.Balances()
		if err != nil {
			return nil, nil, err
		}
		A, err := ps.A()
		if err != nil {
			return nil, nil, err
		}
		D, err := GetD(xp, A)
		if err != nil {
			return nil, nil, err
		}

		x, err := checkedAdd(xp[i], dx)
		if err != nil {
			return nil, nil, err
		}
		y, err := GetY(i, j, x, xp, A, D)
		if err != nil {
			return nil, nil, err
		}
		grossDy, err := checkedSub(xp[j], y)
		if err != nil {
			return nil, nil, err
		}

		fee, err := ps.Fee()
		if err != nil {
			return nil, nil, err
		}
		dyFee, err := mulDivChecked(grossDy, fee, feeDenominator)
		if err != nil {
			return nil, nil, err
		}
		dy, err := checkedSub(grossDy, dyFee)
		if err != nil {
			return nil, nil, err
		}
		if err := checkU128(dy); err != nil {
			return nil, nil, err
		}

		adminFee, err := ps.AdminFee()
		if err != nil {
			return nil, nil, err
		}
		if !adminFee.IsZero() {
			adminCut, err := mulDivChecked(dyFee, adminFee, feeDenominator)
			if err != nil {
				return nil, nil, err
			}
			prevAdmin, err := ps.AdminBalance(j)
			if err != nil {
				return nil, nil, err
			}
			newAdmin, err := checkedAdd(prevAdmin, adminCut)
			if err != nil {
				return nil, nil, err
			}
			if err := ps.SetAdminBalance(j, newAdmin); err != nil {
				return nil, nil, err
			}
		}

		if err := ps.SetBalance(i, x); err != nil {
			return nil, nil, err
		}
		newJ, err := checkedSub(xp[j], dy)
		if err != nil {
			return nil, nil, err
		}
		if err := ps.SetBalance(j, newJ); err != nil {
			return nil, nil, err
		}

		if dy.Lt(minDy) {
			return nil, nil, ErrSlippageExceeded
		}

		coinJ, err := ps.Coin(j)
		if err != nil {
			return nil, nil, err
		}
		engineLogger.WithFields(log.Fields{"dx": dx.String(), "dy": dy.String()}).Info("swap")
		return Parcel{{Coin: coinJ, Amount: dy}}, nil, nil
	})
	return parcel, err
}

// ClaimAdminFees implements spec.md §4.3.7.
func (e *Engine) ClaimAdminFees(ctx CallContext) (Parcel, error) {
	parcel, _, err := e.atomic(func(ps *PoolState) (Parcel, []byte, error) {
		if err := requireInitialized(ps); err != nil {
			return nil, nil, err
		}
		owner, err := ps.Owner()
		if err != nil {
			return nil, nil, err
		}
		if ctx.Caller != owner {
			return nil, nil, ErrUnauthorized
		}

		coins, err := poolCoins(ps)
		if err != nil {
			return nil, nil, err
		}
		var parcel Parcel
		for i := 0; i < N_COINS; i++ {
			bal, err := ps.AdminBalance(i)
			if err != nil {
				return nil, nil, err
			}
			if bal.IsZero() {
				continue
			}
			if err := checkU128(bal); err != nil {
				return nil, nil, err
			}
			if err := ps.SetAdminBalance(i, uint256.NewInt(0)); err != nil {
				return nil, nil, err
			}
			parcel = append(parcel, Transfer{Coin: coins[i], Amount: bal})
		}
		engineLogger.Info("admin fees claimed")
		return parcel, nil, nil
	})
	return parcel, err
}

// poolCoins reads both coin ids in one call, used by every operation
// that needs to build an outgoing parcel.
func poolCoins(ps *PoolState) ([N_COINS]ID, error) {
	var out [N_COINS]ID
	for i := 0; i < N_COINS; i++ {
		id, err := ps.Coin(i)
		if err != nil {
			return out, err
		}
		out[i] = id
	}
	return out, nil
}

// mintLP credits amount LP units to holder and bumps total_supply,
// rejecting either resulting figure if it no longer fits u128 (spec.md
// §9: LP/total-supply bookkeeping is range-checked at every boundary).
func mintLP(ps *PoolState, holder ID, amount *uint256.Int) error {
	bal, err := ps.LPBalance(holder)
	if err != nil {
		return err
	}
	newBal, err := checkedAdd(bal, amount)
	if err != nil {
		return err
	}
	if err := checkU128(newBal); err != nil {
		return err
	}
	if err := ps.SetLPBalance(holder, newBal); err != nil {
		return err
	}
	supply, err := ps.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := checkedAdd(supply, amount)
	if err != nil {
		return err
	}
	if err := checkU128(newSupply); err != nil {
		return err
	}
	return ps.SetTotalSupply(newSupply)
}

// burnLP debits amount LP units from holder and shrinks total_supply.
// Callers must already have checked holder's balance >= amount.
func burnLP(ps *PoolState, holder ID, amount *uint256.Int) error {
	bal, err := ps.LPBalance(holder)
	if err != nil {
		return err
	}
	newBal, err := checkedSub(bal, amount)
	if err != nil {
		return err
	}
	if err := ps.SetLPBalance(holder, newBal); err != nil {
		return err
	}
	supply, err := ps.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := checkedSub(supply, amount)
	if err != nil {
		return err
	}
	return ps.SetTotalSupply(newSupply)
}
