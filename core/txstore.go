package core

// txstore.go – buffering transaction wrapper giving every Engine
// operation the "host discards all writes on failure" guarantee spec.md
// §4.3/§7 describes, without a real external host driving rollback.
//
// Grounded on core/liquidity_pools.go's `a.ledger.Snapshot(func() error
// {...})` pattern: a closure runs against the live state, and only on a
// nil return are its effects kept.

// txStore buffers writes in memory and only forwards them to the
// underlying Store once the enclosing call has committed. Reads fall
// through to the buffer first, then the underlying Store, so a call
// sees its own writes before they are flushed.
type txStore struct {
	under   Store
	pending map[string][]byte
}

func newTxStore(under Store) *txStore {
	return &txStore{under: under, pending: make(map[string][]byte)}
}

func (tx *txStore) Get(key string) ([]byte, error) {
	if v, ok := tx.pending[key]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	return tx.under.Get(key)
}

func (tx *txStore) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	tx.pending[key] = v
	return nil
}

// commit flushes every buffered write to the underlying Store.
func (tx *txStore) commit() error {
	for k, v := range tx.pending {
		if err := tx.under.Set(k, v); err != nil {
			return wrapStorage(err)
		}
	}
	return nil
}

// Engine is the Operation Engine: every mutating method wraps its body
// in atomic, and every method (mutating or view) reads pool state
// through the PoolState façade over a Store supplied at construction.
type Engine struct {
	store Store
}

// NewEngine wraps store in an Engine. store is typically a real host's
// ledger-backed Store in production, or a MemStore for tests and the
// local CLI/HTTP host harness.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// atomic runs fn against a buffering view of e's Store and only
// flushes fn's writes if fn returns a nil error, matching
// core/liquidity_pools.go's ledger.Snapshot closure semantics: any
// failure discards every write the closure made.
func (e *Engine) atomic(fn func(ps *PoolState) (Parcel, []byte, error)) (Parcel, []byte, error) {
	tx := newTxStore(e.store)
	ps := NewPoolState(tx)
	parcel, ret, err := fn(ps)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.commit(); err != nil {
		return nil, nil, err
	}
	return parcel, ret, nil
}
