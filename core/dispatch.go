package core

// dispatch.go – the opcode-tagged message-dispatch surface spec.md §6
// describes: Dispatch decodes a flat host-provided argument buffer and
// routes to the matching Engine operation.
//
// Grounded on the `#[opcode(N)]`-tagged SynthPoolMessage enum in
// original_source/alkanes/synth-pool/src/lib.rs. spec.md specifies
// argument *types* per opcode but leaves the host-side byte layout
// unspecified ("No CLI, no environment variables, no wire protocol.
// The host provides the runtime."); this file picks one concrete wire
// format so Dispatch is runnable: a flat sequence of 32-byte words, ids
// as their raw 32 bytes and u128 scalars as LE, matching the encoding already used
// for store values (core/store.go's le256) and view returns
// (core/views.go).

import "github.com/holiman/uint256"

const wordSize = 32

// decodeWords splits raw into 32-byte words, failing BadParameter
// unless its length is exactly want words (fewer, more, or a partial
// word all fail).
func decodeWords(raw []byte, want int) ([][]byte, error) {
	if len(raw) != want*wordSize {
		return nil, ErrBadParameter
	}
	words := make([][]byte, want)
	for i := 0; i < want; i++ {
		words[i] = raw[i*wordSize : (i+1)*wordSize]
	}
	return words, nil
}

func wordToID(w []byte) ID { return IDFromBytes(w) }

func wordToU128(w []byte) (*uint256.Int, error) {
	v := fromLE256(w)
	if err := checkU128(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Dispatch decodes raw per op's argument layout (spec.md §6's opcode
// table) and invokes the matching Engine operation. For the three view
// opcodes the returned []byte is the LE-encoded result; for every
// mutation it is nil (return data is empty per §6).
func (e *Engine) Dispatch(ctx CallContext, op Opcode, raw []byte) (Parcel, []byte, error) {
	switch op {
	case OpInit:
		words, err := decodeWords(raw, 6)
		if err != nil {
			return nil, nil, err
		}
		tokenA := wordToID(words[0])
		tokenB := wordToID(words[1])
		A, err := wordToU128(words[2])
		if err != nil {
			return nil, nil, err
		}
		fee, err := wordToU128(words[3])
		if err != nil {
			return nil, nil, err
		}
		adminFee, err := wordToU128(words[4])
		if err != nil {
			return nil, nil, err
		}
		owner := wordToID(words[5])
		err = e.Init(ctx, tokenA, tokenB, A, fee, adminFee, owner)
		return nil, nil, err

	case OpAddLiquidity:
		words, err := decodeWords(raw, 3)
		if err != nil {
			return nil, nil, err
		}
		var amounts [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			amounts[i], err = wordToU128(words[i])
			if err != nil {
				return nil, nil, err
			}
		}
		minMint, err := wordToU128(words[2])
		if err != nil {
			return nil, nil, err
		}
		parcel, err := e.AddLiquidity(ctx, amounts, minMint)
		return parcel, nil, err

	case OpRemoveLiquidity:
		words, err := decodeWords(raw, 3)
		if err != nil {
			return nil, nil, err
		}
		amount, err := wordToU128(words[0])
		if err != nil {
			return nil, nil, err
		}
		var minAmounts [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			minAmounts[i], err = wordToU128(words[1+i])
			if err != nil {
				return nil, nil, err
			}
		}
		parcel, err := e.RemoveLiquidity(ctx, amount, minAmounts)
		return parcel, nil, err

	case OpRemoveLiquidityOneCoin:
		words, err := decodeWords(raw, 3)
		if err != nil {
			return nil, nil, err
		}
		tokenAmount, err := wordToU128(words[0])
		if err != nil {
			return nil, nil, err
		}
		iVal, err := wordToU128(words[1])
		if err != nil {
			return nil, nil, err
		}
		minAmount, err := wordToU128(words[2])
		if err != nil {
			return nil, nil, err
		}
		if !iVal.IsUint64() || iVal.Uint64() >= N_COINS {
			return nil, nil, ErrBadParameter
		}
		parcel, err := e.RemoveLiquidityOneCoin(ctx, tokenAmount, int(iVal.Uint64()), minAmount)
		return parcel, nil, err

	case OpRemoveLiquidityImbalance:
		words, err := decodeWords(raw, 3)
		if err != nil {
			return nil, nil, err
		}
		var amounts [N_COINS]*uint256.Int
		for i := 0; i < N_COINS; i++ {
			amounts[i], err = wordToU128(words[i])
			if err != nil {
				return nil, nil, err
			}
		}
		maxBurn, err := wordToU128(words[2])
		if err != nil {
			return nil, nil, err
		}
		parcel, err := e.RemoveLiquidityImbalance(ctx, amounts, maxBurn)
		return parcel, nil, err

	case OpSwap:
		words, err := decodeWords(raw, 4)
		if err != nil {
			return nil, nil, err
		}
		iVal, err := wordToU128(words[0])
		if err != nil {
			return nil, nil, err
		}
		jVal, err := wordToU128(words[1])
		if err != nil {
			return nil, nil, err
		}
		dx, err := wordToU128(words[2])
		if err != nil {
			return nil, nil, err
		}
		minDy, err := wordToU128(words[3])
		if err != nil {
			return nil, nil, err
		}
		if !iVal.IsUint64() || iVal.Uint64() >= N_COINS || !jVal.IsUint64() || jVal.Uint64() >= N_COINS {
			return nil, nil, ErrBadParameter
		}
		parcel, err := e.Swap(ctx, int(iVal.Uint64()), int(jVal.Uint64()), dx, minDy)
		return parcel, nil, err

	case OpClaimAdminFees:
		if len(raw) != 0 {
			return nil, nil, ErrBadParameter
		}
		parcel, err := e.ClaimAdminFees(ctx)
		return parcel, nil, err

	case OpGetVirtualPrice:
		if len(raw) != 0 {
			return nil, nil, ErrBadParameter
		}
		ret, err := e.GetVirtualPrice()
		return nil, ret, err

	case OpGetBalances:
		if len(raw) != 0 {
			return nil, nil, ErrBadParameter
		}
		ret, err := e.GetBalances()
		return nil, ret, err

	case OpGetA:
		if len(raw) != 0 {
			return nil, nil, ErrBadParameter
		}
		ret, err := e.GetA()
		return nil, ret, err

	default:
		return nil, nil, ErrBadParameter
	}
}
