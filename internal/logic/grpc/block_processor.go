package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jupiter-dex-sol/internal/logic/processor"
	"jupiter-dex-sol/internal/logic/progress"
	"jupiter-dex-sol/internal/mq"
	"jupiter-dex-sol/internal/pkg/types"
	"jupiter-dex-sol/internal/svc"
	"jupiter-dex-sol/internal/utils"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
)

// GapReporter 接收疑似缺失的 slot 区间，由 SlotChecker 实现
type GapReporter interface {
	Submit(from, to uint64)
}

type BlockProcessor struct {
	processor       *processor.Processor
	send            mq.Sender
	progress        *progress.ProgressManager
	gaps            GapReporter // 可为 nil
	topic           string
	partitions      uint32
	dispatchTimeout time.Duration

	blockChan <-chan *pb.SubscribeUpdateBlock // 接收 block 的 channel
	lastSlot  uint64
	ctx       context.Context
	cancel    func(err error)
	logx.Logger
}

func NewBlockProcessor(sc *svc.GrpcServiceContext, blockChan <-chan *pb.SubscribeUpdateBlock, gaps GapReporter) *BlockProcessor {
	kc := sc.Config.KafkaProducerConf
	return newBlockProcessor(
		sc.Processor,
		sc.Sender,
		sc.ProgressManager,
		gaps,
		kc.Topics.EntityChanges,
		uint32(kc.Partitions.EntityChanges),
		time.Duration(sc.Config.TimeConf.SlotDispatchTimeoutMs)*time.Millisecond,
		blockChan,
	)
}

func newBlockProcessor(
	proc *processor.Processor,
	send mq.Sender,
	pm *progress.ProgressManager,
	gaps GapReporter,
	topic string,
	partitions uint32,
	dispatchTimeout time.Duration,
	blockChan <-chan *pb.SubscribeUpdateBlock,
) *BlockProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &BlockProcessor{
		processor:       proc,
		send:            send,
		progress:        pm,
		topic:           topic,
		gaps:            gaps,
		partitions:      partitions,
		dispatchTimeout: dispatchTimeout,
		blockChan:       blockChan,
		Logger:          logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (p *BlockProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return // 退出
		case block, ok := <-p.blockChan:
			if !ok {
				return
			}
			if err := p.procBlock(block); err != nil {
				p.Errorf("slot %d 处理失败: %v", block.GetSlot(), err)
			}
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) Stop() {
	p.cancel(errors.New("service stop"))
}

func (p *BlockProcessor) procBlock(block *pb.SubscribeUpdateBlock) error {
	if block == nil {
		return processor.ErrUpstream
	}
	startTime := time.Now()
	defer func() {
		p.Debugf("区块处理总耗时: %v, slot: %d", time.Since(startTime), block.Slot)
	}()

	p.trackGap(block.Slot)

	blockTime := block.GetBlockTime().GetTimestamp()
	should, err := p.progress.ShouldProcessSlot(p.ctx, block.Slot, progress.EventEntityChanges, blockTime)
	if err != nil {
		// 判重失败不阻塞实时流，按需处理
		p.Errorf("slot %d 判重失败: %v", block.Slot, err)
	} else if !should {
		p.Debugf("slot %d 已处理，跳过", block.Slot)
		return nil
	}

	record := progress.SlotRecord{
		Slot:      block.Slot,
		Source:    progress.SourceGrpc,
		BlockTime: blockTime,
	}

	// 处理或编码失败同样不标记进度，slot 保持可重试
	cs, err := p.processor.Process(block)
	if err != nil {
		return fmt.Errorf("process slot %d: %w", block.Slot, err)
	}

	data, err := utils.EncodeChangeSet(cs)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", block.Slot, err)
	}

	job := &mq.KafkaJob{
		Topic:     p.topic,
		Partition: int32(utils.PartitionHashBytes(blockHashBytes(block.Blockhash), p.partitions)),
		Key:       []byte(fmt.Sprintf("%d", block.Slot)),
		Value:     data,
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.dispatchTimeout)
	_, failed := p.send(ctx, []*mq.KafkaJob{job})
	cancel()
	if len(failed) > 0 {
		// 发送失败不标记进度，重启或补扫时可再次处理
		return fmt.Errorf("send slot %d: %w", block.Slot, failed[0].Err)
	}

	record.Status = progress.SlotProcessed
	record.Changes = len(cs.Changes)
	if err := p.progress.MarkSlotStatus(p.ctx, record); err != nil {
		p.Errorf("slot %d 标记进度失败: %v", block.Slot, err)
	}
	p.Infof("slot %d 完成, txs=%d, changes=%d, bytes=%d",
		block.Slot, len(block.Transactions), len(cs.Changes), len(data))
	return nil
}

// trackGap 发现 slot 跳跃时提交给 SlotChecker 核对是否为空块
func (p *BlockProcessor) trackGap(slot uint64) {
	if p.lastSlot != 0 && slot > p.lastSlot+1 && p.gaps != nil {
		p.gaps.Submit(p.lastSlot+1, slot-1)
	}
	if slot > p.lastSlot {
		p.lastSlot = slot
	}
}

// blockHashBytes 解析失败时返回 nil，分区固定为 0
func blockHashBytes(s string) []byte {
	h, err := types.HashFromBase58(s)
	if err != nil {
		return nil
	}
	return h[:]
}
