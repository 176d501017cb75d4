// cmd/cli/pool.go – Cobra CLI glue for the core stableswap pool.
// -----------------------------------------------------------
// Structure of this file
//   • Persistence shim (JSON snapshot of the in-memory Store, since
//     a real host ledger is out of scope here and each CLI invocation
//     is its own process)
//   • Controller (thin orchestrator around core.Engine)
//   • CLI commands – one per operation, declared top-to-bottom
//   • Consolidation – all commands mounted under root "pool" and
//     exported via PoolCmd for import into the main index.
//
// Usage once injected into main root:
//     $ stablepool pool init       <tokenA> <tokenB> <A> <fee> <adminFee> <owner>
//     $ stablepool pool add        <caller> <amount0> <amount1> <minMint>
//     $ stablepool pool remove     <caller> <amount> <min0> <min1>
//     $ stablepool pool remove-imbalance <caller> <amount0> <amount1> <maxBurn>
//     $ stablepool pool remove-one <caller> <tokenAmount> <i> <minAmount>
//     $ stablepool pool swap       <caller> <i> <j> <dx> <minDy>
//     $ stablepool pool claim      <caller>
//     $ stablepool pool price
//     $ stablepool pool balances
//     $ stablepool pool a
// -----------------------------------------------------------
package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	core "synnergy-stablepool/core"
)

//---------------------------------------------------------------------
// Persistence shim – each CLI invocation is its own process, so pool
// state is snapshotted to a JSON file between commands rather than
// held in a long-lived node. Production hosts supply their own Store.
//---------------------------------------------------------------------

func snapshotPath() string {
	if p := os.Getenv("STABLEPOOL_STATE"); p != "" {
		return p
	}
	return "pool.state.json"
}

func loadStore() (*core.MemStore, error) {
	store := core.NewMemStore()
	path := snapshotPath()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pool state: %w", err)
	}
	var encoded map[string]string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("decode pool state: %w", err)
	}
	for k, v := range encoded {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decode pool state key %s: %w", k, err)
		}
		if err := store.Set(k, b); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// saveStore is only possible because MemStore's keyspace is small and
// fully enumerable here; a real host Store would never need this.
func saveStore(store *core.MemStore, keys []string) error {
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
	return os.WriteFile(snapshotPath(), raw, 0o600)
}

// trackedKeys lists every path core/store.go's PoolState can touch, so
// the CLI harness can round-trip a MemStore through its JSON snapshot
// without a native enumeration capability (spec.md §9 explicitly keeps
// the Store capability enumeration-free).
func trackedKeys(holders ...core.ID) []string {
	keys := []string{
		"/A", "/fee", "/admin_fee", "/owner", "/initialized", "/total_supply",
		"/coins/0", "/coins/1",
		"/balances/0", "/balances/1",
		"/admin_balances/0", "/admin_balances/1",
	}
	for _, h := range holders {
		keys = append(keys, "/balance/"+h.String())
	}
	return keys
}

//---------------------------------------------------------------------
// Controller – provides a user-oriented façade, not exposing internals
//---------------------------------------------------------------------

type PoolController struct {
	engine *core.Engine
	store  *core.MemStore
}

func newPoolController() (*PoolController, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}
	return &PoolController{engine: core.NewEngine(store), store: store}, nil
}

func (c *PoolController) persist(holders ...core.ID) error {
	return saveStore(c.store, trackedKeys(holders...))
}

//---------------------------------------------------------------------
// argument parsing helpers
//---------------------------------------------------------------------

func parseID(s string) core.ID { return core.IDFromBytes([]byte(s)) }

func parseU256(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

//---------------------------------------------------------------------
// CLI command declarations
//---------------------------------------------------------------------

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Stableswap pool operations (init, liquidity, swap, admin fees)",
}

var poolInitCmd = &cobra.Command{
	Use:   "init <tokenA> <tokenB> <A> <fee> <adminFee> <owner>",
	Short: "Initialize the pool (may only be called once)",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		A, err := parseU256(args[2])
		if err != nil {
			return err
		}
		fee, err := parseU256(args[3])
		if err != nil {
			return err
		}
		adminFee, err := parseU256(args[4])
		if err != nil {
			return err
		}
		owner := parseID(args[5])
		ctx := core.CallContext{Caller: owner}
		if err := ctrl.engine.Init(ctx, parseID(args[0]), parseID(args[1]), A, fee, adminFee, owner); err != nil {
			return err
		}
		if err := ctrl.persist(); err != nil {
			return err
		}
		zap.L().Sugar().Infow("pool initialized", "owner", owner.String())
		fmt.Println("pool initialized")
		return nil
	},
}

var poolAddCmd = &cobra.Command{
	Use:   "add <caller> <amount0> <amount1> <minMint>",
	Short: "Add liquidity to the pool",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		amt0, err := parseU256(args[1])
		if err != nil {
			return err
		}
		amt1, err := parseU256(args[2])
		if err != nil {
			return err
		}
		minMint, err := parseU256(args[3])
		if err != nil {
			return err
		}
		coin0, _ := ctrl.store.Get("/coins/0")
		coin1, _ := ctrl.store.Get("/coins/1")
		ctx := core.CallContext{
			Caller: caller,
			Incoming: core.Parcel{
				{Coin: core.IDFromBytes(coin0), Amount: amt0},
				{Coin: core.IDFromBytes(coin1), Amount: amt1},
			},
		}
		_, err = ctrl.engine.AddLiquidity(ctx, [core.N_COINS]*uint256.Int{amt0, amt1}, minMint)
		if err != nil {
			return err
		}
		if err := ctrl.persist(caller); err != nil {
			return err
		}
		fmt.Println("liquidity added")
		return nil
	},
}

var poolRemoveCmd = &cobra.Command{
	Use:   "remove <caller> <amount> <min0> <min1>",
	Short: "Remove liquidity in balanced proportion",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		amount, err := parseU256(args[1])
		if err != nil {
			return err
		}
		min0, err := parseU256(args[2])
		if err != nil {
			return err
		}
		min1, err := parseU256(args[3])
		if err != nil {
			return err
		}
		parcel, err := ctrl.engine.RemoveLiquidity(core.CallContext{Caller: caller}, amount, [core.N_COINS]*uint256.Int{min0, min1})
		if err != nil {
			return err
		}
		if err := ctrl.persist(caller); err != nil {
			return err
		}
		printParcel(parcel)
		return nil
	},
}

var poolRemoveImbalanceCmd = &cobra.Command{
	Use:   "remove-imbalance <caller> <amount0> <amount1> <maxBurn>",
	Short: "Remove liquidity in arbitrary proportion",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		amt0, err := parseU256(args[1])
		if err != nil {
			return err
		}
		amt1, err := parseU256(args[2])
		if err != nil {
			return err
		}
		maxBurn, err := parseU256(args[3])
		if err != nil {
			return err
		}
		parcel, err := ctrl.engine.RemoveLiquidityImbalance(core.CallContext{Caller: caller}, [core.N_COINS]*uint256.Int{amt0, amt1}, maxBurn)
		if err != nil {
			return err
		}
		if err := ctrl.persist(caller); err != nil {
			return err
		}
		printParcel(parcel)
		return nil
	},
}

var poolRemoveOneCmd = &cobra.Command{
	Use:   "remove-one <caller> <tokenAmount> <i> <minAmount>",
	Short: "Withdraw liquidity as a single coin",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		tokenAmount, err := parseU256(args[1])
		if err != nil {
			return err
		}
		i, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("coin index: %w", err)
		}
		minAmount, err := parseU256(args[3])
		if err != nil {
			return err
		}
		parcel, err := ctrl.engine.RemoveLiquidityOneCoin(core.CallContext{Caller: caller}, tokenAmount, i, minAmount)
		if err != nil {
			return err
		}
		if err := ctrl.persist(caller); err != nil {
			return err
		}
		printParcel(parcel)
		return nil
	},
}

var poolSwapCmd = &cobra.Command{
	Use:   "swap <caller> <i> <j> <dx> <minDy>",
	Short: "Swap one pooled coin for the other",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("i: %w", err)
		}
		j, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("j: %w", err)
		}
		dx, err := parseU256(args[3])
		if err != nil {
			return err
		}
		minDy, err := parseU256(args[4])
		if err != nil {
			return err
		}
		coinIKey := "/coins/" + strconv.Itoa(i)
		coinIBytes, _ := ctrl.store.Get(coinIKey)
		ctx := core.CallContext{
			Caller:   caller,
			Incoming: core.Parcel{{Coin: core.IDFromBytes(coinIBytes), Amount: dx}},
		}
		parcel, err := ctrl.engine.Swap(ctx, i, j, dx, minDy)
		if err != nil {
			return err
		}
		if err := ctrl.persist(); err != nil {
			return err
		}
		printParcel(parcel)
		return nil
	},
}

var poolClaimCmd = &cobra.Command{
	Use:   "claim <caller>",
	Short: "Claim accrued admin fees (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		caller := parseID(args[0])
		parcel, err := ctrl.engine.ClaimAdminFees(core.CallContext{Caller: caller})
		if err != nil {
			return err
		}
		if err := ctrl.persist(); err != nil {
			return err
		}
		printParcel(parcel)
		return nil
	},
}

var poolPriceCmd = &cobra.Command{
	Use:   "price",
	Short: "Print the current virtual price",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		vp, err := ctrl.engine.VirtualPrice()
		if err != nil {
			return err
		}
		fmt.Println(vp.String())
		return nil
	},
}

var poolBalancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Print the pool's two coin balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		balances, err := ctrl.engine.BalancesView()
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", balances[0].String(), balances[1].String())
		return nil
	},
}

var poolACmd = &cobra.Command{
	Use:   "a",
	Short: "Print the amplification coefficient",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, err := newPoolController()
		if err != nil {
			return err
		}
		A, err := ctrl.engine.AView()
		if err != nil {
			return err
		}
		fmt.Println(A.String())
		return nil
	},
}

func printParcel(parcel core.Parcel) {
	enc, _ := json.MarshalIndent(parcel, "", "  ")
	fmt.Println(string(enc))
}

//---------------------------------------------------------------------
// Consolidation & export
//---------------------------------------------------------------------

func init() {
	poolCmd.AddCommand(
		poolInitCmd,
		poolAddCmd,
		poolRemoveCmd,
		poolRemoveImbalanceCmd,
		poolRemoveOneCmd,
		poolSwapCmd,
		poolClaimCmd,
		poolPriceCmd,
		poolBalancesCmd,
		poolACmd,
	)
}

// PoolCmd is exported for RegisterRoutes: rootCmd.AddCommand(cli.PoolCmd).
var PoolCmd = poolCmd
