package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/holiman/uint256"

	config "synnergy-stablepool/pkg/config"

	core "synnergy-stablepool/core"
)

func hexDecode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func parseDecimal(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}

// loadStore reads the JSON-encoded MemStore snapshot at path, matching
// the same on-disk shape cmd/cli/pool.go's persistence shim uses.
func loadStore(path string) (*core.MemStore, error) {
	store := core.NewMemStore()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}
	var encoded map[string]string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	for k, v := range encoded {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, err
		}
		if err := store.Set(k, b); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func saveStore(store *core.MemStore, path string, keys []string) error {
	encoded := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := store.Get(k)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		encoded[k] = base64.StdEncoding.EncodeToString(v)
	}
	raw, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

var trackedKeys = []string{
	"/A", "/fee", "/admin_fee", "/owner", "/initialized", "/total_supply",
	"/coins/0", "/coins/1",
	"/balances/0", "/balances/1",
	"/admin_balances/0", "/admin_balances/1",
}

// poolView is the JSON representation returned by GET /api/pool.
type poolView struct {
	Coin0        core.ID `json:"coin0"`
	Coin1        core.ID `json:"coin1"`
	A            string  `json:"a"`
	Fee          string  `json:"fee"`
	AdminFee     string  `json:"admin_fee"`
	Owner        core.ID `json:"owner"`
	Balance0     string  `json:"balance0"`
	Balance1     string  `json:"balance1"`
	AdminBal0    string  `json:"admin_balance0"`
	AdminBal1    string  `json:"admin_balance1"`
	TotalSupply  string  `json:"total_supply"`
	VirtualPrice string  `json:"virtual_price,omitempty"`
}

func buildPoolView(store *core.MemStore) (poolView, error) {
	ps := core.NewPoolState(store)
	var pv poolView
	var err error
	if pv.Coin0, err = ps.Coin(0); err != nil {
		return pv, err
	}
	if pv.Coin1, err = ps.Coin(1); err != nil {
		return pv, err
	}
	A, err := ps.A()
	if err != nil {
		return pv, err
	}
	pv.A = A.String()
	fee, err := ps.Fee()
	if err != nil {
		return pv, err
	}
	pv.Fee = fee.String()
	adminFee, err := ps.AdminFee()
	if err != nil {
		return pv, err
	}
	pv.AdminFee = adminFee.String()
	if pv.Owner, err = ps.Owner(); err != nil {
		return pv, err
	}
	bal0, err := ps.Balance(0)
	if err != nil {
		return pv, err
	}
	pv.Balance0 = bal0.String()
	bal1, err := ps.Balance(1)
	if err != nil {
		return pv, err
	}
	pv.Balance1 = bal1.String()
	adminBal0, err := ps.AdminBalance(0)
	if err != nil {
		return pv, err
	}
	pv.AdminBal0 = adminBal0.String()
	adminBal1, err := ps.AdminBalance(1)
	if err != nil {
		return pv, err
	}
	pv.AdminBal1 = adminBal1.String()
	supply, err := ps.TotalSupply()
	if err != nil {
		return pv, err
	}
	pv.TotalSupply = supply.String()
	return pv, nil
}

// dispatchRequest is the JSON envelope POST /api/dispatch accepts,
// wrapping the opcode dispatch surface core/dispatch.go exposes.
type dispatchRequest struct {
	Caller   string          `json:"caller"`
	Opcode   uint8           `json:"opcode"`
	Args     string          `json:"args_hex"`
	Incoming []incomingEntry `json:"incoming,omitempty"`
}

type incomingEntry struct {
	Coin   string `json:"coin"`
	Amount string `json:"amount"`
}

type dispatchResponse struct {
	Return string          `json:"return_hex,omitempty"`
	Parcel []core.Transfer `json:"outgoing,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func main() {
	logger := log.New()
	core.SetLogger(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatalf("config load: %v", err)
	}

	statePath := cfg.Storage.StatePath
	if statePath == "" {
		statePath = "pool.state.json"
	}
	store, err := loadStore(statePath)
	if err != nil {
		logger.Fatalf("load pool state: %v", err)
	}
	engine := core.NewEngine(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/pool", func(w http.ResponseWriter, _ *http.Request) {
		poolHandler(w, store)
	})
	mux.HandleFunc("/api/dispatch", func(w http.ResponseWriter, r *http.Request) {
		dispatchHandler(w, r, engine, store, statePath)
	})

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:8081"
	}
	logger.Printf("poolserver listening on %s", addr)
	logger.Fatal(http.ListenAndServe(addr, mux))
}

func poolHandler(w http.ResponseWriter, store *core.MemStore) {
	pv, err := buildPoolView(store)
	if err != nil {
		writeErr(w, err)
		return
	}
	if vp, err := core.NewEngine(store).VirtualPrice(); err == nil {
		pv.VirtualPrice = vp.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pv)
}

func dispatchHandler(w http.ResponseWriter, r *http.Request, engine *core.Engine, store *core.MemStore, statePath string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req dispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, err)
		return
	}

	raw, err := hexDecode(req.Args)
	if err != nil {
		writeErr(w, err)
		return
	}
	incoming := make(core.Parcel, 0, len(req.Incoming))
	for _, e := range req.Incoming {
		amt, err := parseDecimal(e.Amount)
		if err != nil {
			writeErr(w, err)
			return
		}
		incoming = append(incoming, core.Transfer{Coin: core.IDFromBytes([]byte(e.Coin)), Amount: amt})
	}
	ctx := core.CallContext{
		Caller:   core.IDFromBytes([]byte(req.Caller)),
		Incoming: incoming,
	}

	parcel, ret, err := engine.Dispatch(ctx, core.Opcode(req.Opcode), raw)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := saveStore(store, statePath, trackedKeys); err != nil {
		writeErr(w, err)
		return
	}

	resp := dispatchResponse{Parcel: parcel}
	if ret != nil {
		resp.Return = hexEncode(ret)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(dispatchResponse{Error: err.Error()})
}
