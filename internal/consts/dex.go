package consts

import "jupiter-dex-sol/internal/pkg/types"

// DexProgram 表示一个已知的 DEX 程序（仅用于分类，不包含任何运行时状态）
type DexProgram struct {
	ProgramID    types.Pubkey
	ProgramIDStr string
	Name         string // 展示名称，如 "Jupiter"
	Label        string // 细分标签，如 "Jupiter Aggregator v6"
	Version      string
}

// dexPrograms 为编译期静态注册表，顺序即 Protocol 行的输出顺序
var dexPrograms = []DexProgram{
	{ProgramID: JupiterV6Program, ProgramIDStr: JupiterV6ProgramStr, Name: "Jupiter", Label: "Jupiter Aggregator v6", Version: "v6"},
	{ProgramID: JupiterV4Program, ProgramIDStr: JupiterV4ProgramStr, Name: "Jupiter", Label: "Jupiter Aggregator v4", Version: "v4"},
	{ProgramID: JupiterLimitOrderProgram, ProgramIDStr: JupiterLimitOrderProgramStr, Name: "Jupiter", Label: "Jupiter Limit Order", Version: "v1"},
	{ProgramID: JupiterDCAProgram, ProgramIDStr: JupiterDCAProgramStr, Name: "Jupiter", Label: "Jupiter DCA", Version: "v1"},
}

// dexIndex 为 ProgramID → 注册表下标的查找表，包初始化后只读
var dexIndex = func() map[types.Pubkey]int {
	m := make(map[types.Pubkey]int, len(dexPrograms))
	for i, p := range dexPrograms {
		m[p.ProgramID] = i
	}
	return m
}()

// LookupDexProgram 查询 ProgramID 是否为已注册的 DEX 程序
func LookupDexProgram(programID types.Pubkey) (DexProgram, bool) {
	i, ok := dexIndex[programID]
	if !ok {
		return DexProgram{}, false
	}
	return dexPrograms[i], true
}

// IsDexProgram 判断地址是否命中注册表
func IsDexProgram(programID types.Pubkey) bool {
	_, ok := dexIndex[programID]
	return ok
}

// DexPrograms 返回注册表的副本（保持注册顺序）
func DexPrograms() []DexProgram {
	list := make([]DexProgram, len(dexPrograms))
	copy(list, dexPrograms)
	return list
}
