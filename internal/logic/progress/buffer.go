package progress

import (
	"sync"
)

type slotBuffer struct {
	mu     sync.Mutex
	buffer map[EventType][]*SlotRecord
}

func newSlotBuffer() *slotBuffer {
	return &slotBuffer{
		buffer: make(map[EventType][]*SlotRecord),
	}
}

func (b *slotBuffer) Add(eventType EventType, record *SlotRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[eventType] = append(b.buffer[eventType], record)
}

// Flush 取出全部记录并清空缓冲
func (b *slotBuffer) Flush() map[EventType][]*SlotRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = make(map[EventType][]*SlotRecord)
	return flushed
}

// Requeue 将写库失败的记录放回缓冲，下次 flush 重试
func (b *slotBuffer) Requeue(eventType EventType, records []*SlotRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[eventType] = append(records, b.buffer[eventType]...)
}

func (b *slotBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, list := range b.buffer {
		total += len(list)
	}
	return total
}
