package progress

// SlotStatus 表示 slot 的处理状态（统一 Redis 与 DB 编码）
type SlotStatus int

const (
	SlotUnknown   SlotStatus = 0 // Redis 不存在
	SlotProcessed SlotStatus = 1 // 已处理并成功投递
	SlotInvalid   SlotStatus = 2 // 区块不可用或处理失败，跳过
	SlotPending   SlotStatus = 3 // Redis 标记中，暂未完成（仅 Redis 用）
)

// EventType 表示不同类型的进度事件（用于区分 Redis key、表名）
type EventType int

const (
	EventEntityChanges EventType = 0
)

func (et EventType) TableName() string {
	return "progress_entity_slot"
}

func (et EventType) keyPrefix() string {
	switch et {
	case EventEntityChanges:
		return "progress:entity:slot"
	default:
		return "progress:unknown:slot"
	}
}

// Source 表示事件来源模块
const (
	SourceUnknown int16 = 0
	SourceGrpc    int16 = 1
	SourceReplay  int16 = 2
)

func SourceName(src int16) string {
	switch src {
	case SourceGrpc:
		return "grpc"
	case SourceReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// SlotRecord 表示一条待写入 DB 的 slot 记录
type SlotRecord struct {
	Slot      uint64     // Solana slot
	Source    int16      // 来源：1=grpc, 2=replay
	BlockTime int64      // Unix timestamp（秒）
	Status    SlotStatus // 处理状态：1=已处理，2=无效
	Changes   int        // 变更集中的实体行数
}
