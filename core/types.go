package core

// types.go – shared value types for the stableswap pool core: opaque
// identifiers, asset-transfer parcels, and the opcode-dispatch surface
// that a host invokes per call. Mirrors the AlkaneId / AlkaneTransfer /
// AlkaneTransferParcel shapes in original_source/.../lib.rs, generalized
// to a host-agnostic Go type.

import (
	"encoding/hex"

	"github.com/holiman/uint256"
)

// N_COINS is fixed at 2 for this pool; the core never generalizes
// beyond a two-asset pair (spec Non-goals).
const N_COINS = 2

// ID is an opaque 32-byte identifier: used for the pool owner, the two
// pooled coins, and LP holders.
type ID [32]byte

// String renders an ID as hex for logs and CLI output.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// MarshalJSON renders an ID as a hex string, so outgoing parcels print
// legibly from the CLI/HTTP host harness instead of as a raw byte array.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// IDFromBytes builds an ID from a byte slice, left-padding with zeros
// or truncating the high-order bytes if longer than 32.
func IDFromBytes(b []byte) ID {
	var id ID
	if len(b) >= 32 {
		copy(id[:], b[len(b)-32:])
		return id
	}
	copy(id[32-len(b):], b)
	return id
}

// Transfer is a single asset movement: `Amount` units of `Coin`. Every
// Amount here is a u128-range quantity (see math.go's checkU128),
// represented as *uint256.Int for uniformity with the curve's internal
// 256-bit arithmetic.
//
// Incoming transfers are consumed by the host before a call begins;
// outgoing transfers are returned to the host at commit.
type Transfer struct {
	Coin   ID
	Amount *uint256.Int
}

// Parcel is a host-mediated list of asset transfers.
type Parcel []Transfer

// CallContext carries the per-call facts a host provides alongside the
// opcode and its arguments: who is calling, what the pool's own
// identity is (needed to recognize LP transfers arriving as an
// incoming parcel), and what assets arrived with this call.
type CallContext struct {
	Caller   ID
	Self     ID
	Incoming Parcel
}

// incomingTotal sums the incoming amount for a given coin id, and
// reports whether it was the only coin with a nonzero transfer (false
// if any *other* nonzero transfer was also present).
func (c CallContext) incomingTotal(coin ID) (total *uint256.Int, onlyThisCoin bool) {
	total = uint256.NewInt(0)
	onlyThisCoin = true
	for _, t := range c.Incoming {
		if t.Amount == nil || t.Amount.IsZero() {
			continue
		}
		if t.Coin == coin {
			total = new(uint256.Int).Add(total, t.Amount)
		} else {
			onlyThisCoin = false
		}
	}
	return total, onlyThisCoin
}

// Opcode identifies the operation a dispatch call invokes, per the
// host dispatch surface.
type Opcode uint8

const (
	OpInit                     Opcode = 0
	OpAddLiquidity             Opcode = 1
	OpRemoveLiquidity          Opcode = 2
	OpRemoveLiquidityOneCoin   Opcode = 3
	OpRemoveLiquidityImbalance Opcode = 4
	OpSwap                     Opcode = 5
	OpClaimAdminFees           Opcode = 10
	OpGetVirtualPrice          Opcode = 100
	OpGetBalances              Opcode = 101
	OpGetA                     Opcode = 102
)

func (op Opcode) String() string {
	switch op {
	case OpInit:
		return "Init"
	case OpAddLiquidity:
		return "AddLiquidity"
	case OpRemoveLiquidity:
		return "RemoveLiquidity"
	case OpRemoveLiquidityOneCoin:
		return "RemoveLiquidityOneCoin"
	case OpRemoveLiquidityImbalance:
		return "RemoveLiquidityImbalance"
	case OpSwap:
		return "Swap"
	case OpClaimAdminFees:
		return "ClaimAdminFees"
	case OpGetVirtualPrice:
		return "GetVirtualPrice"
	case OpGetBalances:
		return "GetBalances"
	case OpGetA:
		return "GetA"
	default:
		return "Unknown"
	}
}
