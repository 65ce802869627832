package processor

import (
	"errors"
	"fmt"
	"runtime/debug"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"

	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/logic/eventparser"
	"jupiter-dex-sol/internal/logic/eventparser/common"
	"jupiter-dex-sol/internal/logic/txadapter"
	"jupiter-dex-sol/pkg/logger"
	"jupiter-dex-sol/pkg/utils"
)

var (
	// ErrUpstream 表示区块本身不可用，由调用方决定是否重试
	ErrUpstream = errors.New("upstream block unusable")
	// ErrInternal 表示处理过程中发生 panic
	ErrInternal = errors.New("internal processing error")
)

// Processor 将单个区块转换为实体变更集。
// 每次调用使用独立的实体表，区块之间不共享状态，同一区块重复处理结果一致。
// 注入的 Observer 可能被多个 goroutine 同时调用（ProcessBlocks），需自行保证并发安全。
type Processor struct {
	observer core.Observer
}

type Option func(*Processor)

func WithObserver(o core.Observer) Option {
	return func(p *Processor) {
		if o != nil {
			p.observer = o
		}
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{observer: core.NopObserver{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process 处理一个区块，成功时返回完整变更集，失败时不返回任何部分结果。
func (p *Processor) Process(block *pb.SubscribeUpdateBlock) (cs *entity.ChangeSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[processor::Process] panic: %+v\nstack: %s", r, debug.Stack())
			cs, err = nil, fmt.Errorf("%w: panic: %v", ErrInternal, r)
		}
	}()

	if err := txadapter.ValidateBlock(block); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	txCtx := txadapter.BuildTxContext(block)
	tables := entity.NewTables()
	tables.OnRowCreated(p.observer.RowEmitted)

	// Protocol 行与交易无关，每个区块都输出
	common.UpsertProtocols(tables, txCtx)

	for _, rawTx := range block.Transactions {
		tx, err := txadapter.AdaptGrpcTx(txCtx, rawTx)
		if err != nil {
			sig := txadapter.SignatureOf(rawTx)
			switch {
			case errors.Is(err, txadapter.ErrTxFailed):
				p.observer.TxSkipped(sig, core.SkipFailed)
				continue
			case errors.Is(err, txadapter.ErrMissingField):
				p.observer.TxSkipped(sig, core.SkipMissingField)
				continue
			default:
				return nil, fmt.Errorf("%w: slot %d tx %s: %v", ErrInternal, block.Slot, sig, err)
			}
		}

		ctx := common.BuildParserContext(tx, tables, p.observer)
		if _, err := eventparser.ExtractEntitiesFromTx(ctx); err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrInternal, block.Slot, err)
		}
	}

	return tables.ToChangeSet(), nil
}

// BlockResult 批量处理中单个区块的结果
type BlockResult struct {
	Slot      uint64
	ChangeSet *entity.ChangeSet
	Err       error
}

// ProcessBlocks 并发处理多个互不相关的区块，结果顺序与输入一致
func (p *Processor) ProcessBlocks(blocks []*pb.SubscribeUpdateBlock, workers int) []BlockResult {
	return utils.ParallelMap(blocks, workers, func(block *pb.SubscribeUpdateBlock) BlockResult {
		res := BlockResult{}
		if block != nil {
			res.Slot = block.Slot
		}
		res.ChangeSet, res.Err = p.Process(block)
		return res
	})
}
