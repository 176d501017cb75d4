package core

// views.go – the three read-only operations spec.md §4.3.8 describes,
// each returning a little-endian byte encoding.
//
// Grounded on core/liquidity_views.go's PoolView/Snapshot read model:
// these are pure reads over a Store, never wrapped in Engine.atomic
// since they perform no writes.

import "github.com/holiman/uint256"

// GetVirtualPrice returns D*PRECISION/total_supply as 32 LE bytes.
// Fails DegenerateState if total_supply == 0.
func (e *Engine) GetVirtualPrice() ([]byte, error) {
	ps := NewPoolState(e.store)
	if err := requireInitialized(ps); err != nil {
		return nil, err
	}
	balances, err := ps.Balances()
	if err != nil {
		return nil, err
	}
	A, err := ps.A()
	if err != nil {
		return nil, err
	}
	supply, err := ps.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply.IsZero() {
		return nil, ErrDegenerateState
	}
	D, err := GetD(balances, A)
	if err != nil {
		return nil, err
	}
	vp, err := mulDivChecked(D, precision, supply)
	if err != nil {
		return nil, err
	}
	return le256(vp), nil
}

// GetBalances returns balances[0] then balances[1], each 32 LE bytes.
func (e *Engine) GetBalances() ([]byte, error) {
	ps := NewPoolState(e.store)
	if err := requireInitialized(ps); err != nil {
		return nil, err
	}
	balances, err := ps.Balances()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 64)
	out = append(out, le256(balances[0])...)
	out = append(out, le256(balances[1])...)
	return out, nil
}

// GetA returns the stored amplification coefficient as 32 LE bytes.
func (e *Engine) GetA() ([]byte, error) {
	ps := NewPoolState(e.store)
	if err := requireInitialized(ps); err != nil {
		return nil, err
	}
	A, err := ps.A()
	if err != nil {
		return nil, err
	}
	return le256(A), nil
}

// VirtualPrice is a convenience wrapper decoding GetVirtualPrice's
// return bytes back into a *uint256.Int, used by the CLI/HTTP host
// harness which works with typed values rather than raw dispatch
// bytes.
func (e *Engine) VirtualPrice() (*uint256.Int, error) {
	b, err := e.GetVirtualPrice()
	if err != nil {
		return nil, err
	}
	return fromLE256(b), nil
}

// BalancesView is the typed counterpart of GetBalances.
func (e *Engine) BalancesView() ([N_COINS]*uint256.Int, error) {
	ps := NewPoolState(e.store)
	if err := requireInitialized(ps); err != nil {
		return [N_COINS]*uint256.Int{}, err
	}
	return ps.Balances()
}

// AView is the typed counterpart of GetA.
func (e *Engine) AView() (*uint256.Int, error) {
	ps := NewPoolState(e.store)
	if err := requireInitialized(ps); err != nil {
		return nil, err
	}
	return ps.A()
}
