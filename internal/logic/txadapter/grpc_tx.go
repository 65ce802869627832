package txadapter

import (
	"errors"
	"fmt"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/shopspring/decimal"

	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/pkg/types"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrTxFailed     = errors.New("transaction failed")
)

// buildFullAccountKeys 构造交易中完整的账户 Pubkey 列表。
// 拼接 message.accountKeys 与 Address Lookup Table 中的 writable / readonly 地址，
// 长度非法的账户记为 InvalidPubkey，渲染时输出 "unknown"。
func buildFullAccountKeys(accountKeys, loadedWritable, loadedReadonly [][]byte) []types.Pubkey {
	total := len(accountKeys) + len(loadedWritable) + len(loadedReadonly)
	pubkeys := make([]types.Pubkey, 0, total)

	for _, part := range [][][]byte{accountKeys, loadedWritable, loadedReadonly} {
		for _, b := range part {
			pk, _ := types.PubkeyFromBytes(b)
			pubkeys = append(pubkeys, pk)
		}
	}
	return pubkeys
}

// parseUiAmount 解析人类可读余额：优先 UiAmountString，其次原始 Amount 按 decimals 缩放，最后 UiAmount。
func parseUiAmount(a *pb.UiTokenAmount) decimal.Decimal {
	if a.UiAmountString != "" {
		if d, err := decimal.NewFromString(a.UiAmountString); err == nil {
			return d
		}
	}
	if a.Amount != "" {
		if d, err := decimal.NewFromString(a.Amount); err == nil {
			return d.Shift(-int32(a.Decimals))
		}
	}
	return decimal.NewFromFloat(a.UiAmount)
}

// buildAdaptedBalances 转换 pre 或 post 列表，保持原始顺序。
// 缺少 UiTokenAmount 的条目被丢弃。
func buildAdaptedBalances(list []*pb.TokenBalance) []core.TokenBalance {
	balances := make([]core.TokenBalance, 0, len(list))
	for _, tb := range list {
		if tb == nil || tb.UiTokenAmount == nil {
			continue
		}
		balances = append(balances, core.TokenBalance{
			AccountIndex: tb.AccountIndex,
			Mint:         tb.Mint,
			Owner:        tb.Owner,
			Amount:       parseUiAmount(tb.UiTokenAmount),
			Decimals:     uint8(tb.UiTokenAmount.Decimals),
			ProgramID:    tb.ProgramId,
		})
	}
	return balances
}

func convertInstruction(programIDIndex uint32, accounts, data []byte) core.RawInstruction {
	return core.RawInstruction{
		ProgramIDIndex: programIDIndex,
		Accounts:       accounts,
		Data:           data,
	}
}

// buildRawInstructions 拷贝主指令与 inner 指令组，索引暂不解析。
func buildRawInstructions(tx *pb.SubscribeUpdateTransactionInfo) ([]core.RawInstruction, []core.RawInnerGroup) {
	rawInstructions := tx.Transaction.Message.Instructions
	instructions := make([]core.RawInstruction, 0, len(rawInstructions))
	for _, inst := range rawInstructions {
		if inst == nil {
			continue
		}
		instructions = append(instructions, convertInstruction(inst.ProgramIdIndex, inst.Accounts, inst.Data))
	}

	rawInners := tx.Meta.InnerInstructions
	groups := make([]core.RawInnerGroup, 0, len(rawInners))
	for _, g := range rawInners {
		if g == nil {
			continue
		}
		group := core.RawInnerGroup{
			Index:        g.Index,
			Instructions: make([]core.RawInstruction, 0, len(g.Instructions)),
		}
		for _, inner := range g.Instructions {
			if inner == nil {
				continue
			}
			group.Instructions = append(group.Instructions, convertInstruction(inner.ProgramIdIndex, inner.Accounts, inner.Data))
		}
		groups = append(groups, group)
	}
	return instructions, groups
}

// CheckGrpcTx 检查交易是否可以进入解析流程：
//   - 缺少 transaction / message / signature / meta 返回 ErrMissingField；
//   - 执行失败（Meta.Err 非空）返回 ErrTxFailed。
func CheckGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) error {
	switch {
	case tx == nil:
		return fmt.Errorf("%w: transaction info", ErrMissingField)
	case tx.Transaction == nil:
		return fmt.Errorf("%w: transaction", ErrMissingField)
	case tx.Transaction.Message == nil:
		return fmt.Errorf("%w: message", ErrMissingField)
	case len(tx.Transaction.Signatures) == 0 || len(tx.Transaction.Signatures[0]) == 0:
		return fmt.Errorf("%w: signature", ErrMissingField)
	case tx.Meta == nil:
		return fmt.Errorf("%w: meta", ErrMissingField)
	case tx.Meta.Err != nil:
		return ErrTxFailed
	}
	return nil
}

// AdaptGrpcTx 将 gRPC 推送的交易数据转换为内部 AdaptedTx 结构。
// 流程：校验 → 构建 accountKeys（含 Address Lookup）→ 拷贝指令 → 转换 Token 余额；panic 会被 recover。
func AdaptGrpcTx(txCtx *core.TxContext, tx *pb.SubscribeUpdateTransactionInfo) (_ *core.AdaptedTx, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("AdaptGrpcTx panic: %v", r)
		}
	}()

	if err := CheckGrpcTx(tx); err != nil {
		return nil, err
	}

	accountKeys := buildFullAccountKeys(
		tx.Transaction.Message.AccountKeys,
		tx.Meta.LoadedWritableAddresses,
		tx.Meta.LoadedReadonlyAddresses,
	)

	// message 中第一个账户即 fee payer / signer
	signer := types.UnknownAddress
	if len(tx.Transaction.Message.AccountKeys) > 0 {
		signer = accountKeys[0].String()
	}

	instructions, innerGroups := buildRawInstructions(tx)

	signature := tx.Transaction.Signatures[0]
	return &core.AdaptedTx{
		TxCtx:        txCtx,
		TxIndex:      uint32(tx.Index),
		Signature:    signature,
		SignatureStr: types.EncodeBytes(signature),
		Signer:       signer,
		Fee:          tx.Meta.Fee,
		AccountKeys:  accountKeys,
		Instructions: instructions,
		InnerGroups:  innerGroups,
		PreBalances:  buildAdaptedBalances(tx.Meta.PreTokenBalances),
		PostBalances: buildAdaptedBalances(tx.Meta.PostTokenBalances),
	}, nil
}

// SignatureOf 尽力渲染交易签名，用于日志与 observer，缺失时返回 "unknown"
func SignatureOf(tx *pb.SubscribeUpdateTransactionInfo) string {
	if tx == nil {
		return types.UnknownAddress
	}
	if tx.Transaction != nil && len(tx.Transaction.Signatures) > 0 {
		return types.EncodeBytes(tx.Transaction.Signatures[0])
	}
	return types.EncodeBytes(tx.Signature)
}
