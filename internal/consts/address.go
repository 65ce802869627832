package consts

import (
	sdkcommon "github.com/blocto/solana-go-sdk/common"

	"jupiter-dex-sol/internal/pkg/types"
)

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// DEX: Jupiter
	JupiterV6ProgramStr         = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	JupiterV4ProgramStr         = "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"
	JupiterLimitOrderProgramStr = "jupoNjAxXgZ4rjzxzPMP4oxduvQsQtZzyknqvzYNrNu"
	JupiterDCAProgramStr        = "DCA265Vj8a9CEuX1eb1LWRnDT7uK6q1xMipnNyatn23M"

	// 常见报价币
	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Token Program 地址直接复用 SDK 中的定义，避免手抄出错
var (
	TokenProgramStr     = sdkcommon.TokenProgramID.ToBase58()
	TokenProgram2022Str = sdkcommon.Token2022ProgramID.ToBase58()
)

var (
	// DEX Program
	JupiterV6Program         = types.PubkeyFromBase58(JupiterV6ProgramStr)
	JupiterV4Program         = types.PubkeyFromBase58(JupiterV4ProgramStr)
	JupiterLimitOrderProgram = types.PubkeyFromBase58(JupiterLimitOrderProgramStr)
	JupiterDCAProgram        = types.PubkeyFromBase58(JupiterDCAProgramStr)

	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
)

const (
	TokenProgramLabelSPL     = "spl-token"
	TokenProgramLabel2022    = "token-2022"
	TokenProgramLabelUnknown = "unknown"
)

// TokenProgramLabel 将 TokenBalance.ProgramId 映射为可读标签
func TokenProgramLabel(programID string) string {
	switch programID {
	case TokenProgramStr:
		return TokenProgramLabelSPL
	case TokenProgram2022Str:
		return TokenProgramLabel2022
	default:
		return TokenProgramLabelUnknown
	}
}

// knownTokens 常见 mint 的符号与精度，Token 行据此补充 symbol
var knownTokens = map[string]string{
	WSOLMintStr: "WSOL",
	USDCMintStr: "USDC",
	USDTMintStr: "USDT",
}

// KnownTokenSymbol 返回常见 mint 的符号
func KnownTokenSymbol(mint string) (string, bool) {
	sym, ok := knownTokens[mint]
	return sym, ok
}
