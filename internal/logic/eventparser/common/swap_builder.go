package common

import (
	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/entity"
)

// PoolID 池子标识：programId-tokenIn-tokenOut
func PoolID(programID, tokenIn, tokenOut string) string {
	return programID + "-" + tokenIn + "-" + tokenOut
}

// SwapID 交易标识，每笔交易至多一条 Swap
func SwapID(signature string) string {
	return "swap-" + signature
}

// BuildSwapEntities 根据命中的 DEX 指令与选出的两条余额变化写入 LiquidityPool / Swap / Token 行。
// 返回写入的 swap id。
func BuildSwapEntities(ctx *ParserContext, match core.DexMatch, spent, received *core.BalanceDelta) string {
	tx := ctx.Tx
	txCtx := tx.TxCtx
	programID := match.ProgramID.String()

	poolID := PoolID(programID, spent.Mint, received.Mint)
	ctx.Tables.Upsert(entity.KindLiquidityPool, poolID).
		Set("protocol", entity.String(programID)).
		Set("inputToken", entity.String(spent.Mint)).
		Set("outputToken", entity.String(received.Mint)).
		Set("reserveIn", entity.Float64(0)).
		Set("reserveOut", entity.Float64(0)).
		Set("volumeIn", entity.Float64(0)).
		Set("volumeOut", entity.Float64(0)).
		Set("createdAtTimestamp", entity.Int64(txCtx.BlockTime)).
		Set("createdAtSlot", entity.Uint64(txCtx.Slot))

	swapID := SwapID(tx.SignatureStr)
	ctx.Tables.Upsert(entity.KindSwap, swapID).
		Set("signature", entity.String(tx.SignatureStr)).
		Set("blockHash", entity.Bytes(txCtx.BlockHash)).
		Set("protocol", entity.String(programID)).
		Set("pool", entity.String(poolID)).
		Set("signer", entity.String(tx.Signer)).
		Set("slot", entity.Uint64(txCtx.Slot)).
		Set("timestamp", entity.Int64(txCtx.BlockTime)).
		Set("tokenIn", entity.String(spent.Mint)).
		Set("tokenOut", entity.String(received.Mint)).
		Set("amountIn", entity.Float64(spent.Amount().InexactFloat64())).
		Set("amountOut", entity.Float64(received.Amount().InexactFloat64())).
		Set("fee", entity.Uint64(tx.Fee))

	upsertToken(ctx.Tables, spent)
	upsertToken(ctx.Tables, received)
	return swapID
}

func upsertToken(tables *entity.Tables, d *core.BalanceDelta) {
	row := tables.Upsert(entity.KindToken, d.Mint).
		Set("mint", entity.String(d.Mint)).
		Set("decimals", entity.Int64(int64(d.Decimals))).
		Set("tokenProgram", entity.String(consts.TokenProgramLabel(d.ProgramID)))
	if sym, ok := consts.KnownTokenSymbol(d.Mint); ok {
		row.Set("symbol", entity.String(sym))
	}
}
