package core

import (
	"github.com/shopspring/decimal"

	"jupiter-dex-sol/internal/pkg/types"
)

// TxContext 表示交易所属区块的上下文信息，同一区块内所有交易共享。
type TxContext struct {
	BlockTime  int64  // 区块时间戳（Unix 秒），缺失时为 0
	Slot       uint64 // 当前 Slot（Solana 高度单位）
	ParentSlot uint64 // 父 Slot（用于分叉检测和回滚）
	BlockHash  []byte // 区块哈希原始字节，base58 无法解析时为空
}

// RawInstruction 是未解析索引的指令，ProgramIDIndex / Accounts 都指向 AdaptedTx.AccountKeys。
// 数据源不保证 inner 指令的索引合法，展开时必须做越界检查。
type RawInstruction struct {
	ProgramIDIndex uint32
	Accounts       []byte
	Data           []byte
}

// RawInnerGroup 表示某条主指令触发的 inner 指令组。
type RawInnerGroup struct {
	Index        uint32 // 对应的主指令索引
	Instructions []RawInstruction
}

// AdaptedInstruction 表示一条已解析的主指令或 inner 指令视图。
type AdaptedInstruction struct {
	Seq        int            // 在展开序列中的位置
	IxIndex    uint16         // 主指令索引（从 0 开始）
	InnerIndex uint16         // 主指令本身为 0，inner 指令从 1 开始
	ProgramID  types.Pubkey   // 指令对应的程序 ID
	Accounts   []types.Pubkey // 指令涉及的账户列表，保持原始顺序
	Data       []byte         // 指令原始数据，不做解码
}

// IsInner 是否为 inner 指令
func (ix *AdaptedInstruction) IsInner() bool {
	return ix.InnerIndex > 0
}

// TokenBalance 表示 pre/post 列表中的一条 Token 余额记录。
// Amount 为按 decimals 缩放后的人类可读数量，保持数据源原样，不再二次换算。
type TokenBalance struct {
	AccountIndex uint32
	Mint         string
	Owner        string
	Amount       decimal.Decimal
	Decimals     uint8
	ProgramID    string // Token Program（spl-token / token-2022），可能为空
}

// AdaptedTx 表示已适配的链上交易结构，是实体提取流程的核心输入。
type AdaptedTx struct {
	TxCtx        *TxContext
	TxIndex      uint32
	Signature    []byte // 交易签名（64 字节原始数据）
	SignatureStr string // base58 签名，作为 Swap 的标识
	Signer       string // message 中第一个账户
	Fee          uint64

	AccountKeys []types.Pubkey // message.accountKeys + ALT writable + ALT readonly

	// 原始指令，索引在 FlattenInstructions 中惰性解析
	Instructions []RawInstruction
	InnerGroups  []RawInnerGroup

	PreBalances  []TokenBalance
	PostBalances []TokenBalance
}
