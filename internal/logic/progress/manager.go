package progress

import (
	"context"
	"time"

	"jupiter-dex-sol/pkg/logger"
)

// StatusStore 高频判重用的状态存储（Redis 实现）
type StatusStore interface {
	GetSlotStatus(ctx context.Context, slot uint64, eventType EventType) (SlotStatus, error)
	MarkSlotStatus(ctx context.Context, slot uint64, eventType EventType, status SlotStatus) error
}

// SlotStore 持久化进度存储（DB 实现）
type SlotStore interface {
	CheckSlotExists(ctx context.Context, slot uint64, eventType EventType) (bool, error)
	BatchInsertSlots(ctx context.Context, slots []*SlotRecord, eventType EventType) error
	DeleteOldSlots(ctx context.Context, eventType EventType, retainDays int) error
}

var allEventTypes = []EventType{EventEntityChanges}

// ProgressManager 统一封装 Redis + DB + 缓存，控制进度判重与写入。
// status / slots 均可为 nil，表示对应存储未启用。
type ProgressManager struct {
	status          StatusStore
	slots           SlotStore
	buffer          *slotBuffer
	recentThreshold time.Duration // 新 block 的判断阈值
	now             func() time.Time
}

func NewProgressManager(status StatusStore, slots SlotStore, recentThresholdSec int) *ProgressManager {
	return &ProgressManager{
		status:          status,
		slots:           slots,
		buffer:          newSlotBuffer(),
		recentThreshold: time.Duration(recentThresholdSec) * time.Second,
		now:             time.Now,
	}
}

// ShouldProcessSlot 用于判断是否需要处理该 slot：
// - 如果 block 是“最近的”，直接处理
// - 否则 Redis 查状态 + fallback 到 DB
func (pm *ProgressManager) ShouldProcessSlot(ctx context.Context, slot uint64, eventType EventType, blockTime int64) (bool, error) {
	if pm.now().Sub(time.Unix(blockTime, 0)) <= pm.recentThreshold {
		return true, nil
	}

	if pm.status != nil {
		status, err := pm.status.GetSlotStatus(ctx, slot, eventType)
		if err != nil {
			return false, err
		}
		switch status {
		case SlotProcessed, SlotInvalid:
			return false, nil
		case SlotPending:
			return true, nil
		}
	}

	if pm.slots == nil {
		return true, nil
	}
	exists, err := pm.slots.CheckSlotExists(ctx, slot, eventType)
	if err != nil {
		return false, err
	}
	if exists {
		if pm.status != nil {
			_ = pm.status.MarkSlotStatus(ctx, slot, eventType, SlotProcessed)
		}
		return false, nil
	}
	return true, nil
}

// MarkSlotStatus 标记某 slot 的处理状态，同时更新 Redis 与 slotBuffer（供后续批量写入 DB）
func (pm *ProgressManager) MarkSlotStatus(ctx context.Context, record SlotRecord) error {
	if record.Status != SlotProcessed && record.Status != SlotInvalid {
		return nil // SlotUnknown / SlotPending 不参与记录
	}

	if pm.status != nil {
		if err := pm.status.MarkSlotStatus(ctx, record.Slot, EventEntityChanges, record.Status); err != nil {
			return err
		}
	}
	if pm.slots != nil {
		pm.buffer.Add(EventEntityChanges, &record)
	}
	return nil
}

// Pending 返回尚未写入 DB 的记录数
func (pm *ProgressManager) Pending() int {
	return pm.buffer.Len()
}

// Flush 将缓冲区写入 DB；失败的记录放回缓冲
func (pm *ProgressManager) Flush(ctx context.Context) error {
	if pm.slots == nil {
		return nil
	}
	var firstErr error
	for et, list := range pm.buffer.Flush() {
		if len(list) == 0 {
			continue
		}
		if err := pm.slots.BatchInsertSlots(ctx, list, et); err != nil {
			logger.Errorf("[ProgressManager] flush %d slots to %s failed: %v", len(list), et.TableName(), err)
			pm.buffer.Requeue(et, list)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// StartFlushLoop 启动后台定时 flush，ctx 结束时做最后一次 flush
func (pm *ProgressManager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = pm.Flush(final)
			cancel()
			return
		case <-ticker.C:
			_ = pm.Flush(ctx)
		}
	}
}

// StartGCLoop 启动后台 GC 清理（每 interval 执行一次，对所有事件类型清理历史 slot 记录）
func (pm *ProgressManager) StartGCLoop(ctx context.Context, interval time.Duration, retainDays int) {
	if pm.slots == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, et := range allEventTypes {
					if err := pm.slots.DeleteOldSlots(ctx, et, retainDays); err != nil {
						logger.Warnf("[ProgressManager] gc %s failed: %v", et.TableName(), err)
					}
				}
			}
		}
	}()
}

// FlushService 将 flush / GC 循环包装为 go-zero Service
type FlushService struct {
	pm            *ProgressManager
	flushInterval time.Duration
	retainDays    int
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewFlushService(pm *ProgressManager, flushInterval time.Duration, retainDays int) *FlushService {
	ctx, cancel := context.WithCancel(context.Background())
	return &FlushService{
		pm:            pm,
		flushInterval: flushInterval,
		retainDays:    retainDays,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

func (s *FlushService) Start() {
	defer close(s.done)
	s.pm.StartGCLoop(s.ctx, time.Hour, s.retainDays)
	s.pm.StartFlushLoop(s.ctx, s.flushInterval)
}

// Stop 等待最后一次 flush 完成
func (s *FlushService) Stop() {
	s.cancel()
	<-s.done
}
