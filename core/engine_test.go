package core

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

// newTestPool builds an initialized Engine backed by a fresh MemStore and
// returns it with the two coin ids and the owner, following spec.md §8's
// "concrete end-to-end scenarios" fixture:
// A=100, fee=4_000_000 (4bps), admin_fee=5_000_000_000 (50%).
func newTestPool(t *testing.T) (*Engine, ID, ID, ID) {
	t.Helper()
	store := NewMemStore()
	e := NewEngine(store)
	tokenA := IDFromBytes([]byte("T0"))
	tokenB := IDFromBytes([]byte("T1"))
	owner := IDFromBytes([]byte("owner"))
	err := e.Init(CallContext{Caller: owner}, tokenA, tokenB, uint256.NewInt(100), uint256.NewInt(4_000_000), uint256.NewInt(5_000_000_000), owner)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e, tokenA, tokenB, owner
}

func withIncoming(ctx CallContext, coin ID, amount uint64) CallContext {
	ctx.Incoming = append(ctx.Incoming, Transfer{Coin: coin, Amount: uint256.NewInt(amount)})
	return ctx
}

func TestEngine_InitThenBootstrap(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	lp := owner

	ctx := CallContext{Caller: lp}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)

	_, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	ps := NewPoolState(e.store)
	supply, err := ps.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if supply.Cmp(uint256.NewInt(2_000_000)) != 0 {
		t.Fatalf("total_supply after bootstrap = %s, want 2000000", supply.String())
	}
}

func TestEngine_ReInitFails(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	err := e.Init(CallContext{Caller: owner}, tokenA, tokenB, uint256.NewInt(100), uint256.NewInt(4_000_000), uint256.NewInt(5_000_000_000), owner)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestEngine_BalancedRoundTrip(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	lp := owner
	ctx := CallContext{Caller: lp}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	parcel, err := e.RemoveLiquidity(CallContext{Caller: lp}, uint256.NewInt(2_000_000), [N_COINS]*uint256.Int{uint256.NewInt(0), uint256.NewInt(0)})
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}

	ps := NewPoolState(e.store)
	balances, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if !balances[0].IsZero() || !balances[1].IsZero() {
		t.Fatalf("balances after full balanced withdrawal = %v, want [0 0]", balances)
	}
	supply, err := ps.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if !supply.IsZero() {
		t.Fatalf("total_supply after full withdrawal = %s, want 0", supply.String())
	}
	if len(parcel) != 2 {
		t.Fatalf("outgoing parcel length = %d, want 2", len(parcel))
	}
	want := map[ID]uint64{tokenA: 1_000_000, tokenB: 1_000_000}
	for _, tr := range parcel {
		if tr.Amount.Cmp(uint256.NewInt(want[tr.Coin])) != 0 {
			t.Fatalf("outgoing transfer for %s = %s, want %d", tr.Coin.String(), tr.Amount.String(), want[tr.Coin])
		}
	}
}

func TestEngine_SymmetricSwap(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	lp := owner
	ctx := CallContext{Caller: lp}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	trader := IDFromBytes([]byte("trader"))
	swapCtx := withIncoming(CallContext{Caller: trader}, tokenA, 100_000)
	parcel, err := e.Swap(swapCtx, 0, 1, uint256.NewInt(100_000), uint256.NewInt(1))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if len(parcel) != 1 || parcel[0].Coin != tokenB {
		t.Fatalf("swap outgoing parcel = %v, want single T1 transfer", parcel)
	}
	dy := parcel[0].Amount
	if !dy.Lt(uint256.NewInt(100_000)) {
		t.Fatalf("dy = %s, want < 100000", dy.String())
	}

	ps := NewPoolState(e.store)
	balances, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if balances[0].Cmp(uint256.NewInt(1_100_000)) != 0 {
		t.Fatalf("balances[0] = %s, want 1100000", balances[0].String())
	}
	wantBal1 := new(uint256.Int).Sub(uint256.NewInt(1_000_000), dy)
	if balances[1].Cmp(wantBal1) != 0 {
		t.Fatalf("balances[1] = %s, want %s", balances[1].String(), wantBal1.String())
	}
	adminBal1, err := ps.AdminBalance(1)
	if err != nil {
		t.Fatalf("AdminBalance: %v", err)
	}
	if adminBal1.IsZero() {
		t.Fatal("admin_balances[1] = 0, want > 0 after a fee-bearing swap")
	}
}

func TestEngine_AdminClaim(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	_ = tokenA
	lp := owner
	ctx := CallContext{Caller: lp}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	trader := IDFromBytes([]byte("trader"))
	swapCtx := withIncoming(CallContext{Caller: trader}, tokenA, 100_000)
	if _, err := e.Swap(swapCtx, 0, 1, uint256.NewInt(100_000), uint256.NewInt(1)); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	ps := NewPoolState(e.store)
	wantClaim, err := ps.AdminBalance(1)
	if err != nil {
		t.Fatalf("AdminBalance: %v", err)
	}
	balBefore, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}

	parcel, err := e.ClaimAdminFees(CallContext{Caller: owner})
	if err != nil {
		t.Fatalf("ClaimAdminFees: %v", err)
	}
	if len(parcel) != 1 || parcel[0].Coin != tokenB || parcel[0].Amount.Cmp(wantClaim) != 0 {
		t.Fatalf("claim parcel = %v, want single T1 transfer of %s", parcel, wantClaim.String())
	}

	adminBal0, _ := ps.AdminBalance(0)
	adminBal1, _ := ps.AdminBalance(1)
	if !adminBal0.IsZero() || !adminBal1.IsZero() {
		t.Fatalf("admin_balances after claim = [%s %s], want [0 0]", adminBal0.String(), adminBal1.String())
	}
	balAfter, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if balAfter[0].Cmp(balBefore[0]) != 0 || balAfter[1].Cmp(balBefore[1]) != 0 {
		t.Fatalf("pool balances changed by ClaimAdminFees: before=%v after=%v", balBefore, balAfter)
	}
}

func TestEngine_UnauthorizedClaimFails(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	trader := IDFromBytes([]byte("trader"))
	swapCtx := withIncoming(CallContext{Caller: trader}, tokenA, 100_000)
	if _, err := e.Swap(swapCtx, 0, 1, uint256.NewInt(100_000), uint256.NewInt(1)); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	ps := NewPoolState(e.store)
	adminBefore, _ := ps.AdminBalance(1)

	notOwner := IDFromBytes([]byte("impostor"))
	_, err := e.ClaimAdminFees(CallContext{Caller: notOwner})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ClaimAdminFees by non-owner: got %v, want ErrUnauthorized", err)
	}
	adminAfter, _ := ps.AdminBalance(1)
	if adminAfter.Cmp(adminBefore) != 0 {
		t.Fatal("admin_balances changed despite the unauthorized claim failing")
	}
}

func TestEngine_SlippageGuard(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	ps := NewPoolState(e.store)
	balBefore, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}

	trader := IDFromBytes([]byte("trader"))
	swapCtx := withIncoming(CallContext{Caller: trader}, tokenA, 100_000)
	parcel, err := e.Swap(swapCtx, 0, 1, uint256.NewInt(100_000), uint256.NewInt(99_999_999))
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("Swap with unreachable min_dy: got %v, want ErrSlippageExceeded", err)
	}
	if parcel != nil {
		t.Fatalf("outgoing parcel on a failed swap = %v, want nil", parcel)
	}

	balAfter, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if balAfter[0].Cmp(balBefore[0]) != 0 || balAfter[1].Cmp(balBefore[1]) != 0 {
		t.Fatalf("balances changed despite the slippage-guarded swap failing: before=%v after=%v", balBefore, balAfter)
	}
}

func TestEngine_SwapRejectsZeroDx(t *testing.T) {
	e, tokenA, _, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	_, err := e.Swap(ctx, 0, 1, uint256.NewInt(0), uint256.NewInt(0))
	if !errors.Is(err, ErrBadParameter) {
		t.Fatalf("Swap(dx=0): got %v, want ErrBadParameter", err)
	}
}

func TestEngine_SwapRejectsEqualIndices(t *testing.T) {
	e, tokenA, _, owner := newTestPool(t)
	ctx := withIncoming(CallContext{Caller: owner}, tokenA, 1)
	_, err := e.Swap(ctx, 0, 0, uint256.NewInt(1), uint256.NewInt(0))
	if !errors.Is(err, ErrBadParameter) {
		t.Fatalf("Swap(i==j): got %v, want ErrBadParameter", err)
	}
}

func TestEngine_SwapRejectsMismatchedIncomingParcel(t *testing.T) {
	e, tokenA, _, owner := newTestPool(t)
	// caller claims dx=100 but actually sends 50
	ctx := withIncoming(CallContext{Caller: owner}, tokenA, 50)
	_, err := e.Swap(ctx, 0, 1, uint256.NewInt(100), uint256.NewInt(0))
	if !errors.Is(err, ErrBadParameter) {
		t.Fatalf("Swap with mismatched incoming parcel: got %v, want ErrBadParameter", err)
	}
}

func TestEngine_OperationsRequireInitialization(t *testing.T) {
	e := NewEngine(NewMemStore())
	caller := IDFromBytes([]byte("x"))
	_, err := e.Swap(CallContext{Caller: caller}, 0, 1, uint256.NewInt(1), uint256.NewInt(0))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Swap before Init: got %v, want ErrNotInitialized", err)
	}
	_, err = e.GetVirtualPrice()
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("GetVirtualPrice before Init: got %v, want ErrNotInitialized", err)
	}
}

func TestEngine_VirtualPriceRequiresNonzeroSupply(t *testing.T) {
	e, _, _, _ := newTestPool(t)
	_, err := e.GetVirtualPrice()
	if !errors.Is(err, ErrDegenerateState) {
		t.Fatalf("GetVirtualPrice with total_supply=0: got %v, want ErrDegenerateState", err)
	}
}

func TestEngine_VirtualPriceNonDecreasingAcrossSwap(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	before, err := e.VirtualPrice()
	if err != nil {
		t.Fatalf("VirtualPrice: %v", err)
	}

	trader := IDFromBytes([]byte("trader"))
	swapCtx := withIncoming(CallContext{Caller: trader}, tokenA, 100_000)
	if _, err := e.Swap(swapCtx, 0, 1, uint256.NewInt(100_000), uint256.NewInt(1)); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	after, err := e.VirtualPrice()
	if err != nil {
		t.Fatalf("VirtualPrice: %v", err)
	}
	if after.Lt(before) {
		t.Fatalf("virtual_price decreased across a fee-bearing swap: before=%s after=%s", before.String(), after.String())
	}
}

func TestEngine_RemoveLiquidityOneCoin(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	parcel, err := e.RemoveLiquidityOneCoin(CallContext{Caller: owner}, uint256.NewInt(100_000), 0, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("RemoveLiquidityOneCoin: %v", err)
	}
	if len(parcel) != 1 || parcel[0].Coin != tokenA {
		t.Fatalf("one-coin withdrawal parcel = %v, want single T0 transfer", parcel)
	}
	if parcel[0].Amount.IsZero() {
		t.Fatal("one-coin withdrawal returned dy=0")
	}
}

func TestEngine_RemoveLiquidityInsufficientBalanceFails(t *testing.T) {
	e, tokenA, tokenB, owner := newTestPool(t)
	ctx := CallContext{Caller: owner}
	ctx = withIncoming(ctx, tokenA, 1_000_000)
	ctx = withIncoming(ctx, tokenB, 1_000_000)
	if _, err := e.AddLiquidity(ctx, [N_COINS]*uint256.Int{uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)}, uint256.NewInt(1)); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	poorCaller := IDFromBytes([]byte("poor"))
	_, err := e.RemoveLiquidity(CallContext{Caller: poorCaller}, uint256.NewInt(1), [N_COINS]*uint256.Int{uint256.NewInt(0), uint256.NewInt(0)})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("RemoveLiquidity by an LP holder with zero balance: got %v, want ErrInsufficientBalance", err)
	}
}
