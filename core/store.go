package core

// store.go – the Pool State Store: a byte-addressable key/value
// capability, an in-memory reference implementation, and a typed
// PoolState façade over the fixed path layout spec.md §4.2 enumerates.
//
// Grounded on core/common_structs.go's StateRW.Get(ns, key)/Set(ns,
// key, val) pair, collapsed to a single namespace since a pool owns
// its entire keyspace.

import (
	"strconv"
	"sync"

	"github.com/holiman/uint256"
)

// Store is the byte key/value capability the Operation Engine is
// parameterized over. A real host supplies one backed by its ledger;
// MemStore is the in-memory reference used by tests and the CLI/HTTP
// host harness.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// MemStore is a sync.RWMutex-guarded in-memory Store, mirroring the
// locking granularity core/liquidity_pools.go's AMM.mu uses around its
// own pool map.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// PoolState is the typed façade over a Store, implementing the exact
// path layout of spec.md §4.2. Reads of unset keys yield the zero
// value of the declared type; writes are unconditional.
type PoolState struct {
	store Store
}

// NewPoolState wraps a Store in the typed path accessors below.
func NewPoolState(s Store) *PoolState {
	return &PoolState{store: s}
}

// le256 little-endian-encodes x into a 32-byte slice, the wire format
// spec.md §4.2 specifies for every u256/u128 path.
func le256(x *uint256.Int) []byte {
	if x == nil {
		x = uint256.NewInt(0)
	}
	be := x.Bytes32()
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = be[31-i]
	}
	return out
}

// fromLE256 decodes a little-endian byte slice back into a u256,
// treating an unset (nil/empty) key as the zero value per spec.md
// §4.2's "reads of unset keys yield the zero value" rule.
func fromLE256(b []byte) *uint256.Int {
	if len(b) == 0 {
		return uint256.NewInt(0)
	}
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(uint256.Int).SetBytes(be)
}

func (ps *PoolState) getU256(key string) (*uint256.Int, error) {
	b, err := ps.store.Get(key)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return fromLE256(b), nil
}

func (ps *PoolState) setU256(key string, v *uint256.Int) error {
	if err := ps.store.Set(key, le256(v)); err != nil {
		return wrapStorage(err)
	}
	return nil
}

func (ps *PoolState) getID(key string) (ID, error) {
	b, err := ps.store.Get(key)
	if err != nil {
		return ID{}, wrapStorage(err)
	}
	if len(b) == 0 {
		return ID{}, nil
	}
	return IDFromBytes(b), nil
}

func (ps *PoolState) setID(key string, id ID) error {
	if err := ps.store.Set(key, id[:]); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// A is the amplification coefficient, stored unscaled (§4.1 of
// SPEC_FULL.md: A_PRECISION lives only inside the math functions).
func (ps *PoolState) A() (*uint256.Int, error) { return ps.getU256("/A") }
func (ps *PoolState) SetA(v *uint256.Int) error { return ps.setU256("/A", v) }

func (ps *PoolState) Fee() (*uint256.Int, error)       { return ps.getU256("/fee") }
func (ps *PoolState) SetFee(v *uint256.Int) error      { return ps.setU256("/fee", v) }
func (ps *PoolState) AdminFee() (*uint256.Int, error)  { return ps.getU256("/admin_fee") }
func (ps *PoolState) SetAdminFee(v *uint256.Int) error { return ps.setU256("/admin_fee", v) }

func (ps *PoolState) Owner() (ID, error)          { return ps.getID("/owner") }
func (ps *PoolState) SetOwner(id ID) error        { return ps.setID("/owner", id) }

func (ps *PoolState) Coin(i int) (ID, error) {
	return ps.getID(coinKey(i))
}

func (ps *PoolState) SetCoin(i int, id ID) error {
	return ps.setID(coinKey(i), id)
}

func (ps *PoolState) Balance(i int) (*uint256.Int, error) {
	return ps.getU256(balanceKey(i))
}

func (ps *PoolState) SetBalance(i int, v *uint256.Int) error {
	return ps.setU256(balanceKey(i), v)
}

func (ps *PoolState) Balances() ([N_COINS]*uint256.Int, error) {
	var out [N_COINS]*uint256.Int
	for i := 0; i < N_COINS; i++ {
		v, err := ps.Balance(i)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func (ps *PoolState) AdminBalance(i int) (*uint256.Int, error) {
	return ps.getU256(adminBalanceKey(i))
}

func (ps *PoolState) SetAdminBalance(i int, v *uint256.Int) error {
	return ps.setU256(adminBalanceKey(i), v)
}

func (ps *PoolState) TotalSupply() (*uint256.Int, error) {
	return ps.getU256("/total_supply")
}

func (ps *PoolState) SetTotalSupply(v *uint256.Int) error {
	return ps.setU256("/total_supply", v)
}

func (ps *PoolState) LPBalance(holder ID) (*uint256.Int, error) {
	return ps.getU256(lpBalanceKey(holder))
}

func (ps *PoolState) SetLPBalance(holder ID, v *uint256.Int) error {
	return ps.setU256(lpBalanceKey(holder), v)
}

// Initialized reports whether Init has successfully run (spec.md §9
// Open Question 3: an explicit marker guarding reinit).
func (ps *PoolState) Initialized() (bool, error) {
	b, err := ps.store.Get("/initialized")
	if err != nil {
		return false, wrapStorage(err)
	}
	return len(b) > 0 && b[0] == 1, nil
}

func (ps *PoolState) SetInitialized() error {
	if err := ps.store.Set("/initialized", []byte{1}); err != nil {
		return wrapStorage(err)
	}
	return nil
}

func coinKey(i int) string         { return "/coins/" + strconv.Itoa(i) }
func balanceKey(i int) string      { return "/balances/" + strconv.Itoa(i) }
func adminBalanceKey(i int) string { return "/admin_balances/" + strconv.Itoa(i) }
func lpBalanceKey(holder ID) string {
	return "/balance/" + holder.String()
}
