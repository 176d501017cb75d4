package core

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestMemStore_GetSetRoundTrip(t *testing.T) {
	m := NewMemStore()
	if v, err := m.Get("/missing"); err != nil || v != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", v, err)
	}
	if err := m.Set("/k", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := m.Get("/k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(v) != 3 || v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Fatalf("Get(/k) = %v, want [1 2 3]", v)
	}
}

func TestMemStore_GetReturnsACopy(t *testing.T) {
	m := NewMemStore()
	_ = m.Set("/k", []byte{1, 2, 3})
	v, _ := m.Get("/k")
	v[0] = 99
	v2, _ := m.Get("/k")
	if v2[0] != 1 {
		t.Fatalf("mutating a Get result leaked into the store: got %v", v2)
	}
}

func TestLE256_RoundTrip(t *testing.T) {
	x, _ := uint256.FromDecimal("123456789012345678901234567890")
	b := le256(x)
	if len(b) != 32 {
		t.Fatalf("le256 length = %d, want 32", len(b))
	}
	got := fromLE256(b)
	if got.Cmp(x) != 0 {
		t.Fatalf("fromLE256(le256(x)) = %s, want %s", got.String(), x.String())
	}
}

func TestFromLE256_EmptyIsZero(t *testing.T) {
	if got := fromLE256(nil); !got.IsZero() {
		t.Fatalf("fromLE256(nil) = %s, want 0", got.String())
	}
	if got := fromLE256([]byte{}); !got.IsZero() {
		t.Fatalf("fromLE256([]byte{}) = %s, want 0", got.String())
	}
}

func TestPoolState_UnsetKeysAreZeroValue(t *testing.T) {
	ps := NewPoolState(NewMemStore())
	A, err := ps.A()
	if err != nil {
		t.Fatalf("A: %v", err)
	}
	if !A.IsZero() {
		t.Fatalf("A on fresh store = %s, want 0", A.String())
	}
	bal, err := ps.Balance(0)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("Balance(0) on fresh store = %s, want 0", bal.String())
	}
	owner, err := ps.Owner()
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if !owner.IsZero() {
		t.Fatalf("Owner on fresh store is non-zero")
	}
}

func TestPoolState_AccessorRoundTrips(t *testing.T) {
	ps := NewPoolState(NewMemStore())

	if err := ps.SetA(uint256.NewInt(100)); err != nil {
		t.Fatalf("SetA: %v", err)
	}
	if A, err := ps.A(); err != nil || A.Cmp(uint256.NewInt(100)) != 0 {
		t.Fatalf("A round trip: got %v, %v", A, err)
	}

	coin := IDFromBytes([]byte("token-a"))
	if err := ps.SetCoin(0, coin); err != nil {
		t.Fatalf("SetCoin: %v", err)
	}
	if got, err := ps.Coin(0); err != nil || got != coin {
		t.Fatalf("Coin round trip: got %v, %v", got, err)
	}

	if err := ps.SetBalance(1, uint256.NewInt(55)); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	balances, err := ps.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if balances[1].Cmp(uint256.NewInt(55)) != 0 {
		t.Fatalf("Balances()[1] = %s, want 55", balances[1].String())
	}

	holder := IDFromBytes([]byte("alice"))
	if err := ps.SetLPBalance(holder, uint256.NewInt(42)); err != nil {
		t.Fatalf("SetLPBalance: %v", err)
	}
	if got, err := ps.LPBalance(holder); err != nil || got.Cmp(uint256.NewInt(42)) != 0 {
		t.Fatalf("LPBalance round trip: got %v, %v", got, err)
	}
}

func TestPoolState_InitializedMarker(t *testing.T) {
	ps := NewPoolState(NewMemStore())
	ok, err := ps.Initialized()
	if err != nil {
		t.Fatalf("Initialized: %v", err)
	}
	if ok {
		t.Fatal("fresh store reports Initialized() = true")
	}
	if err := ps.SetInitialized(); err != nil {
		t.Fatalf("SetInitialized: %v", err)
	}
	ok, err = ps.Initialized()
	if err != nil {
		t.Fatalf("Initialized: %v", err)
	}
	if !ok {
		t.Fatal("Initialized() = false after SetInitialized")
	}
}

func TestTxStore_BuffersUntilCommit(t *testing.T) {
	under := NewMemStore()
	_ = under.Set("/k", []byte{1})

	tx := newTxStore(under)
	if err := tx.Set("/k", []byte{2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, _ := tx.Get("/k")
	if v[0] != 2 {
		t.Fatalf("tx.Get after tx.Set = %v, want [2] (read-your-writes)", v)
	}
	underV, _ := under.Get("/k")
	if underV[0] != 1 {
		t.Fatalf("underlying store mutated before commit: got %v", underV)
	}

	if err := tx.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	underV, _ = under.Get("/k")
	if underV[0] != 2 {
		t.Fatalf("underlying store not updated after commit: got %v", underV)
	}
}
