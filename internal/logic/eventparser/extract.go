package eventparser

import (
	"fmt"
	"runtime/debug"

	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/eventparser/common"
	"jupiter-dex-sol/internal/logic/txadapter"
	"jupiter-dex-sol/pkg/logger"
)

// ExtractEntitiesFromTx 对单笔交易执行：指令展开 → DEX 匹配 → 余额变化分析 → 写入实体。
// 返回是否写入了 Swap。panic 会被转换为 error，由调用方决定整个区块失败。
func ExtractEntitiesFromTx(ctx *common.ParserContext) (swapped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[eventparser::ExtractEntitiesFromTx] panic tx=%s: %+v\nstack: %s",
				ctx.TxHashString(), r, debug.Stack())
			err = fmt.Errorf("extract tx %s: panic: %v", ctx.TxHashString(), r)
		}
	}()

	sig := ctx.TxHashString()
	views, malformed := txadapter.FlattenInstructions(ctx.Tx)
	for _, m := range malformed {
		ctx.Observer.MalformedInstruction(sig, m.IxIndex, m.InnerIndex, m.Err)
	}

	match, ok := FindDexMatch(views)
	if !ok {
		ctx.Observer.TxSkipped(sig, core.SkipNoMatch)
		return false, nil
	}
	ctx.Observer.MatchFound(sig, match)

	deltas := common.ComputeBalanceDeltas(ctx.Tx.PreBalances, ctx.Tx.PostBalances)
	ctx.Observer.DeltaComputed(sig, deltas)

	spent, received, reason := common.SelectSwapLegs(deltas)
	if spent == nil || received == nil {
		ctx.Observer.NoSwap(sig, reason)
		return false, nil
	}

	common.BuildSwapEntities(ctx, match, spent, received)
	return true, nil
}
