package common

import (
	"github.com/shopspring/decimal"

	"jupiter-dex-sol/internal/logic/core"
)

type balanceKey struct {
	mint  string
	owner string
}

// balanceAgg 累积同一 (mint, owner) 在 pre/post 中的数量
type balanceAgg struct {
	key       balanceKey
	pre       decimal.Decimal
	post      decimal.Decimal
	decimals  uint8
	programID string
}

// ComputeBalanceDeltas 将 pre/post 余额按 (mint, owner) 配对并计算方向：
//   - mint 为空的占位条目丢弃；
//   - 同一列表内 (mint, owner) 重复时数量累加（不是只取第一条配对），缺失一侧视为 0；
//   - pre > post 为 Spent，post > pre 为 Received，相等不产出；
//   - 输出顺序为先扫描 pre、再扫描 post 时的首次出现顺序。
//
// 数量直接使用数据源给出的人类可读值，不按 decimals 换算。
func ComputeBalanceDeltas(pre, post []core.TokenBalance) []core.BalanceDelta {
	aggs := make([]*balanceAgg, 0, len(pre)+len(post))
	index := make(map[balanceKey]*balanceAgg, len(pre)+len(post))

	get := func(tb *core.TokenBalance) *balanceAgg {
		key := balanceKey{mint: tb.Mint, owner: tb.Owner}
		if a, ok := index[key]; ok {
			return a
		}
		a := &balanceAgg{key: key, decimals: tb.Decimals, programID: tb.ProgramID}
		index[key] = a
		aggs = append(aggs, a)
		return a
	}

	for i := range pre {
		if pre[i].Mint == "" {
			continue
		}
		a := get(&pre[i])
		a.pre = a.pre.Add(pre[i].Amount)
	}
	for i := range post {
		if post[i].Mint == "" {
			continue
		}
		a := get(&post[i])
		a.post = a.post.Add(post[i].Amount)
		if a.programID == "" {
			a.programID = post[i].ProgramID
		}
	}

	deltas := make([]core.BalanceDelta, 0, len(aggs))
	for _, a := range aggs {
		var dir core.Direction
		switch a.pre.Cmp(a.post) {
		case 1:
			dir = core.Spent
		case -1:
			dir = core.Received
		default:
			continue
		}
		deltas = append(deltas, core.BalanceDelta{
			Mint:      a.key.mint,
			Owner:     a.key.owner,
			Pre:       a.pre,
			Post:      a.post,
			Decimals:  a.decimals,
			ProgramID: a.programID,
			Direction: dir,
		})
	}
	return deltas
}

// 未选出 swap 的原因
const (
	NoSwapNoSpent    = "no spent balance"
	NoSwapNoReceived = "no received balance"
)

// SelectSwapLegs 按输出顺序选出第一条 Spent 与第一条 Received，不做 mint 或 owner 的推断。
func SelectSwapLegs(deltas []core.BalanceDelta) (spent, received *core.BalanceDelta, reason string) {
	for i := range deltas {
		if deltas[i].Direction == core.Spent {
			spent = &deltas[i]
			break
		}
	}
	if spent == nil {
		return nil, nil, NoSwapNoSpent
	}
	for i := range deltas {
		if deltas[i].Direction == core.Received {
			received = &deltas[i]
			break
		}
	}
	if received == nil {
		return nil, nil, NoSwapNoReceived
	}
	return spent, received, ""
}
