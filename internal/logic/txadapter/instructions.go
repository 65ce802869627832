package txadapter

import (
	"errors"
	"fmt"
	"sort"

	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/pkg/types"
)

var (
	ErrIndexOutOfRange  = errors.New("account index out of range")
	ErrOrphanInnerGroup = errors.New("inner group references unknown top-level instruction")
)

// MalformedInstruction 记录被跳过的指令及原因
type MalformedInstruction struct {
	IxIndex    uint16
	InnerIndex uint16
	Err        error
}

// resolveInstruction 按 accountKeys 解析 program id 与账户列表，任一索引越界即返回错误。
func resolveInstruction(accountKeys []types.Pubkey, raw *core.RawInstruction) (types.Pubkey, []types.Pubkey, error) {
	n := uint32(len(accountKeys))
	if raw.ProgramIDIndex >= n {
		return types.Pubkey{}, nil, fmt.Errorf("%w: program id index %d, keys %d", ErrIndexOutOfRange, raw.ProgramIDIndex, n)
	}
	accounts := make([]types.Pubkey, 0, len(raw.Accounts))
	for _, idx := range raw.Accounts {
		if uint32(idx) >= n {
			return types.Pubkey{}, nil, fmt.Errorf("%w: account index %d, keys %d", ErrIndexOutOfRange, idx, n)
		}
		accounts = append(accounts, accountKeys[idx])
	}
	return accountKeys[raw.ProgramIDIndex], accounts, nil
}

// FlattenInstructions 展开交易中的全部指令：
//   - 先按 message 顺序输出所有主指令（InnerIndex = 0）；
//   - 再按主指令索引输出对应的 inner 指令组（同一索引多组时保持原顺序），组内按顺序，InnerIndex 从 1 开始。
//
// 索引越界的指令被跳过并记入 malformed，不影响其余指令。返回的切片可重复遍历。
func FlattenInstructions(tx *core.AdaptedTx) (views []core.AdaptedInstruction, malformed []MalformedInstruction) {
	innerTotal := 0
	for _, g := range tx.InnerGroups {
		innerTotal += len(g.Instructions)
	}
	views = make([]core.AdaptedInstruction, 0, len(tx.Instructions)+innerTotal)

	emit := func(ixIndex, innerIndex uint16, raw *core.RawInstruction) {
		programID, accounts, err := resolveInstruction(tx.AccountKeys, raw)
		if err != nil {
			malformed = append(malformed, MalformedInstruction{IxIndex: ixIndex, InnerIndex: innerIndex, Err: err})
			return
		}
		views = append(views, core.AdaptedInstruction{
			Seq:        len(views),
			IxIndex:    ixIndex,
			InnerIndex: innerIndex,
			ProgramID:  programID,
			Accounts:   accounts,
			Data:       raw.Data,
		})
	}

	for i := range tx.Instructions {
		emit(uint16(i), 0, &tx.Instructions[i])
	}

	// 数据源通常已按 Index 升序，这里做稳定排序兜底
	order := make([]int, len(tx.InnerGroups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return tx.InnerGroups[order[a]].Index < tx.InnerGroups[order[b]].Index
	})

	for _, gi := range order {
		group := &tx.InnerGroups[gi]
		if int(group.Index) >= len(tx.Instructions) {
			for j := range group.Instructions {
				malformed = append(malformed, MalformedInstruction{
					IxIndex:    uint16(group.Index),
					InnerIndex: uint16(j + 1),
					Err:        fmt.Errorf("%w: index %d", ErrOrphanInnerGroup, group.Index),
				})
			}
			continue
		}
		for j := range group.Instructions {
			emit(uint16(group.Index), uint16(j+1), &group.Instructions[j])
		}
	}
	return views, malformed
}
