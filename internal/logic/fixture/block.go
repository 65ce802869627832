// Package fixture 构造测试用的 gRPC 区块与交易。
package fixture

import (
	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"jupiter-dex-sol/internal/pkg/types"
)

// Key 生成以 seed 填充的 32 字节地址
func Key(seed byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed
	}
	return b
}

// Sig 生成以 seed 填充的 64 字节签名
func Sig(seed byte) []byte {
	b := make([]byte, 64)
	for i := range b {
		b[i] = seed
	}
	return b
}

// SigString 返回 Sig(seed) 的 base58 形式
func SigString(seed byte) string {
	return base58.Encode(Sig(seed))
}

// PubkeyBytes 将常量地址转为原始字节
func PubkeyBytes(p types.Pubkey) []byte {
	return append([]byte{}, p[:]...)
}

// TxBuilder 链式构造一笔交易
type TxBuilder struct {
	tx *pb.SubscribeUpdateTransactionInfo
}

func NewTx(sigSeed byte) *TxBuilder {
	sig := Sig(sigSeed)
	return &TxBuilder{tx: &pb.SubscribeUpdateTransactionInfo{
		Signature: sig,
		Transaction: &pb.Transaction{
			Signatures: [][]byte{sig},
			Message: &pb.Message{
				Header: &pb.MessageHeader{NumRequiredSignatures: 1},
			},
		},
		Meta: &pb.TransactionStatusMeta{Fee: 5000},
	}}
}

// Keys 追加 message.accountKeys
func (b *TxBuilder) Keys(keys ...[]byte) *TxBuilder {
	b.tx.Transaction.Message.AccountKeys = append(b.tx.Transaction.Message.AccountKeys, keys...)
	return b
}

// LoadedWritable 追加 ALT writable 地址
func (b *TxBuilder) LoadedWritable(keys ...[]byte) *TxBuilder {
	b.tx.Meta.LoadedWritableAddresses = append(b.tx.Meta.LoadedWritableAddresses, keys...)
	return b
}

// LoadedReadonly 追加 ALT readonly 地址
func (b *TxBuilder) LoadedReadonly(keys ...[]byte) *TxBuilder {
	b.tx.Meta.LoadedReadonlyAddresses = append(b.tx.Meta.LoadedReadonlyAddresses, keys...)
	return b
}

func (b *TxBuilder) Ix(programIdx uint32, accounts ...byte) *TxBuilder {
	b.tx.Transaction.Message.Instructions = append(b.tx.Transaction.Message.Instructions, &pb.CompiledInstruction{
		ProgramIdIndex: programIdx,
		Accounts:       accounts,
		Data:           []byte{byte(len(b.tx.Transaction.Message.Instructions))},
	})
	return b
}

// Inner 追加一组 inner 指令，每个元素为 [programIdx, accounts...]
func (b *TxBuilder) Inner(index uint32, ixs ...[]byte) *TxBuilder {
	group := &pb.InnerInstructions{Index: index}
	for _, ix := range ixs {
		group.Instructions = append(group.Instructions, &pb.InnerInstruction{
			ProgramIdIndex: uint32(ix[0]),
			Accounts:       ix[1:],
		})
	}
	b.tx.Meta.InnerInstructions = append(b.tx.Meta.InnerInstructions, group)
	return b
}

func tokenBalance(mint, owner, amount string, decimals uint32) *pb.TokenBalance {
	return &pb.TokenBalance{
		Mint:  mint,
		Owner: owner,
		UiTokenAmount: &pb.UiTokenAmount{
			UiAmountString: amount,
			Decimals:       decimals,
		},
		ProgramId: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
	}
}

func (b *TxBuilder) Pre(mint, owner, amount string) *TxBuilder {
	b.tx.Meta.PreTokenBalances = append(b.tx.Meta.PreTokenBalances, tokenBalance(mint, owner, amount, 6))
	return b
}

func (b *TxBuilder) Post(mint, owner, amount string) *TxBuilder {
	b.tx.Meta.PostTokenBalances = append(b.tx.Meta.PostTokenBalances, tokenBalance(mint, owner, amount, 6))
	return b
}

// RawPre / RawPost 追加任意 TokenBalance，用于构造缺字段场景
func (b *TxBuilder) RawPre(tb *pb.TokenBalance) *TxBuilder {
	b.tx.Meta.PreTokenBalances = append(b.tx.Meta.PreTokenBalances, tb)
	return b
}

func (b *TxBuilder) RawPost(tb *pb.TokenBalance) *TxBuilder {
	b.tx.Meta.PostTokenBalances = append(b.tx.Meta.PostTokenBalances, tb)
	return b
}

// Failed 标记交易执行失败
func (b *TxBuilder) Failed() *TxBuilder {
	b.tx.Meta.Err = &pb.TransactionError{Err: []byte{1}}
	return b
}

func (b *TxBuilder) Index(i uint64) *TxBuilder {
	b.tx.Index = i
	return b
}

func (b *TxBuilder) Build() *pb.SubscribeUpdateTransactionInfo {
	return b.tx
}

// BlockHashString 返回 Block 使用的 base58 区块哈希
func BlockHashString(slot uint64) string {
	return base58.Encode(Key(byte(slot)))
}

// Block 构造包含给定交易的区块
func Block(slot uint64, blockTime int64, txs ...*pb.SubscribeUpdateTransactionInfo) *pb.SubscribeUpdateBlock {
	for i, tx := range txs {
		if tx != nil {
			tx.Index = uint64(i)
		}
	}
	return &pb.SubscribeUpdateBlock{
		Slot:         slot,
		ParentSlot:   slot - 1,
		Blockhash:    BlockHashString(slot),
		BlockTime:    &pb.UnixTimestamp{Timestamp: blockTime},
		Transactions: txs,
	}
}
