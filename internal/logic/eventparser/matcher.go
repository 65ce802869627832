package eventparser

import (
	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/core"
)

// MatchInstruction 判断指令是否与已注册的 DEX 程序相关：
// 调用方程序命中注册表，或任一引用账户为注册表中的程序 ID。
// 聚合器常被间接引用，这里允许误报，后续余额分析会过滤掉非兑换交易。
func MatchInstruction(ix *core.AdaptedInstruction) (core.DexMatch, bool) {
	if consts.IsDexProgram(ix.ProgramID) {
		return core.DexMatch{
			ProgramID:  ix.ProgramID,
			IxIndex:    ix.IxIndex,
			InnerIndex: ix.InnerIndex,
		}, true
	}
	for _, account := range ix.Accounts {
		if consts.IsDexProgram(account) {
			return core.DexMatch{
				ProgramID:  account,
				ByAccount:  true,
				IxIndex:    ix.IxIndex,
				InnerIndex: ix.InnerIndex,
			}, true
		}
	}
	return core.DexMatch{}, false
}

// FindDexMatch 按展开顺序返回第一条命中的指令
func FindDexMatch(views []core.AdaptedInstruction) (core.DexMatch, bool) {
	for i := range views {
		if m, ok := MatchInstruction(&views[i]); ok {
			return m, true
		}
	}
	return core.DexMatch{}, false
}
