package core

import (
	"github.com/shopspring/decimal"

	"jupiter-dex-sol/internal/pkg/types"
)

// SkipReason 交易被跳过的原因
type SkipReason string

const (
	SkipFailed       SkipReason = "failed"        // Meta.Err 非空
	SkipMissingField SkipReason = "missing_field" // 缺少 meta / transaction / message / signature
	SkipNoMatch      SkipReason = "no_match"      // 没有任何指令命中 DEX 程序
)

// DexMatch 表示命中的 DEX 指令
type DexMatch struct {
	ProgramID  types.Pubkey // 命中的注册表程序 ID
	ByAccount  bool         // true 表示通过账户引用命中，而非直接调用
	IxIndex    uint16
	InnerIndex uint16
}

// Direction 余额变化方向
type Direction uint8

const (
	Spent Direction = iota + 1
	Received
)

func (d Direction) String() string {
	switch d {
	case Spent:
		return "spent"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

// BalanceDelta 表示某个 (mint, owner) 在交易前后的净变化，只有方向明确时才会生成。
type BalanceDelta struct {
	Mint      string
	Owner     string
	Pre       decimal.Decimal
	Post      decimal.Decimal
	Decimals  uint8
	ProgramID string
	Direction Direction
}

// Amount 返回 |pre - post|，恒为非负
func (d BalanceDelta) Amount() decimal.Decimal {
	return d.Pre.Sub(d.Post).Abs()
}

// Observer 在每个决策点被调用，日志与指标都通过它接入，核心逻辑不依赖其输出。
type Observer interface {
	TxSkipped(signature string, reason SkipReason)
	MalformedInstruction(signature string, ixIndex, innerIndex uint16, err error)
	MatchFound(signature string, m DexMatch)
	DeltaComputed(signature string, deltas []BalanceDelta)
	NoSwap(signature string, reason string)
	RowEmitted(kind, id string)
}

// NopObserver 忽略所有通知
type NopObserver struct{}

func (NopObserver) TxSkipped(string, SkipReason)                       {}
func (NopObserver) MalformedInstruction(string, uint16, uint16, error) {}
func (NopObserver) MatchFound(string, DexMatch)                        {}
func (NopObserver) DeltaComputed(string, []BalanceDelta)               {}
func (NopObserver) NoSwap(string, string)                              {}
func (NopObserver) RowEmitted(string, string)                          {}

// MultiObserver 按顺序转发给多个 Observer
type MultiObserver []Observer

func (m MultiObserver) TxSkipped(sig string, reason SkipReason) {
	for _, o := range m {
		o.TxSkipped(sig, reason)
	}
}

func (m MultiObserver) MalformedInstruction(sig string, ixIndex, innerIndex uint16, err error) {
	for _, o := range m {
		o.MalformedInstruction(sig, ixIndex, innerIndex, err)
	}
}

func (m MultiObserver) MatchFound(sig string, match DexMatch) {
	for _, o := range m {
		o.MatchFound(sig, match)
	}
}

func (m MultiObserver) DeltaComputed(sig string, deltas []BalanceDelta) {
	for _, o := range m {
		o.DeltaComputed(sig, deltas)
	}
}

func (m MultiObserver) NoSwap(sig string, reason string) {
	for _, o := range m {
		o.NoSwap(sig, reason)
	}
}

func (m MultiObserver) RowEmitted(kind, id string) {
	for _, o := range m {
		o.RowEmitted(kind, id)
	}
}
