package txadapter

import (
	"errors"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/pkg/types"
	"jupiter-dex-sol/pkg/logger"
)

var ErrNilBlock = errors.New("block is nil")

// ValidateBlock 检查区块顶层结构是否可用
func ValidateBlock(block *pb.SubscribeUpdateBlock) error {
	if block == nil {
		return ErrNilBlock
	}
	return nil
}

// BuildTxContext 构造区块级上下文。
// blockhash 无法解析时只打日志，BlockHash 置空继续处理。
func BuildTxContext(block *pb.SubscribeUpdateBlock) *core.TxContext {
	var blockHash []byte
	if block.Blockhash != "" {
		h, err := types.HashFromBase58(block.Blockhash)
		if err != nil {
			logger.Errorf("[txadapter::BuildTxContext] blockhash 无法解析，使用空值: slot=%d, blockhash=%s, err=%v",
				block.Slot, block.Blockhash, err)
		} else {
			blockHash = h[:]
		}
	}

	var blockTime int64
	if block.BlockTime != nil {
		blockTime = block.BlockTime.Timestamp
	}

	return &core.TxContext{
		BlockTime:  blockTime,
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  blockHash,
	}
}
