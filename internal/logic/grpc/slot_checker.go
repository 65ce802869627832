package grpc

import (
	"context"
	"time"

	"jupiter-dex-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/rpc"
)

const (
	gapCheckDelay    = 30 * time.Second // 留给 RPC 节点追上的时间
	gapQueueLimit    = 200
	getBlocksSpan    = 10000 // 单次 getBlocks 查询的 slot 数上限
	getBlocksRetries = 3
)

// slotGap 是实时流中跳过的闭区间 [From, To]，到 Due 时刻后才核对
type slotGap struct {
	From, To uint64
	Due      time.Time
}

// blockLister 返回 [from, to] 内实际产出区块的 slot 列表
type blockLister func(ctx context.Context, from, to uint64) ([]uint64, error)

// SlotChecker 核对实时流中跳过的 slot：RPC 确认未出块的回调 onEmpty，出过块的告警疑似漏扫
type SlotChecker struct {
	listBlocks blockLister
	onEmpty    func(slot uint64)
	gapCh      chan slotGap
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSlotChecker(endpoint string, onEmpty func(slot uint64)) *SlotChecker {
	client := rpc.NewRpcClient(endpoint)
	return newSlotChecker(func(ctx context.Context, from, to uint64) ([]uint64, error) {
		resp, err := client.GetBlocks(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return resp.Result, nil
	}, onEmpty)
}

func newSlotChecker(list blockLister, onEmpty func(slot uint64)) *SlotChecker {
	ctx, cancel := context.WithCancel(context.Background())
	if onEmpty == nil {
		onEmpty = func(uint64) {}
	}
	return &SlotChecker{
		listBlocks: list,
		onEmpty:    onEmpty,
		gapCh:      make(chan slotGap, gapQueueLimit),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *SlotChecker) Start() {
	go s.run()
}

func (s *SlotChecker) Stop() {
	s.cancel()
}

// Submit 提交待核对的闭区间 [from, to]，队列满时丢弃
func (s *SlotChecker) Submit(from, to uint64) {
	if from > to {
		logger.Warnf("[SlotChecker] invalid slot range: from (%d) > to (%d)", from, to)
		return
	}
	select {
	case s.gapCh <- slotGap{From: from, To: to, Due: s.now().Add(gapCheckDelay)}:
	default:
		logger.Warnf("[SlotChecker] gap queue full, dropped: [%d, %d]", from, to)
	}
}

func (s *SlotChecker) run() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var queue []slotGap
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("[SlotChecker] stopped")
			return
		case g := <-s.gapCh:
			queue = append(queue, g)
		case <-ticker.C:
			queue = s.checkDue(queue)
		}
	}
}

// checkDue 串行核对已到期的区间，返回仍未到期的部分。
// Submit 按时间顺序入队，到期的总在队首。
func (s *SlotChecker) checkDue(queue []slotGap) []slotGap {
	now := s.now()
	n := 0
	for n < len(queue) && !queue[n].Due.After(now) {
		if s.ctx.Err() != nil {
			return queue[n:]
		}
		s.checkGap(queue[n])
		n++
	}
	return queue[n:]
}

// checkGap 按 getBlocksSpan 分段查询，查询失败的分段只告警不判定
func (s *SlotChecker) checkGap(g slotGap) {
	for from := g.From; from <= g.To; from += getBlocksSpan {
		to := min(from+getBlocksSpan-1, g.To)
		produced, err := s.getBlocksWithRetry(from, to)
		if err != nil {
			logger.Warnf("[SlotChecker] getBlocks [%d, %d] failed after retries: %v", from, to, err)
			continue
		}
		seen := make(map[uint64]struct{}, len(produced))
		for _, slot := range produced {
			seen[slot] = struct{}{}
		}
		for slot := from; slot <= to; slot++ {
			if _, ok := seen[slot]; ok {
				logger.Errorf("[SlotChecker] slot %d is missing，疑似漏扫", slot)
				continue
			}
			logger.Infof("[SlotChecker] slot %d is confirmed empty", slot)
			s.onEmpty(slot)
		}
		if to == g.To {
			return
		}
	}
}

func (s *SlotChecker) getBlocksWithRetry(from, to uint64) (blocks []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SlotChecker] panic during getBlocks: %v", r)
			err = context.Canceled
		}
	}()

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(s.ctx, 6*time.Second)
		blocks, err = s.listBlocks(ctx, from, to)
		cancel()
		if err == nil || attempt >= getBlocksRetries || s.ctx.Err() != nil {
			return blocks, err
		}
		select {
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
}
