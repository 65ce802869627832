package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jupiter-dex-sol/pkg/logger"
)

// DBProgressStore 管理 slot 的 DB 存储，用于服务重启后的进度恢复，不做高频判重。
type DBProgressStore struct {
	db *sql.DB
}

func NewDBProgressStore(db *sql.DB) *DBProgressStore {
	return &DBProgressStore{db: db}
}

// EnsureSchema 建表（若不存在）
func (d *DBProgressStore) EnsureSchema(ctx context.Context, eventType EventType) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		slot       BIGINT PRIMARY KEY,
		source     SMALLINT NOT NULL,
		block_time BIGINT NOT NULL,
		status     SMALLINT NOT NULL,
		changes    INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, eventType.TableName())
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema %s: %w", eventType.TableName(), err)
	}
	return nil
}

// CheckSlotExists 判定某 slot 是否已存在于 DB 中
func (d *DBProgressStore) CheckSlotExists(ctx context.Context, slot uint64, eventType EventType) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE slot = $1`, eventType.TableName())
	var dummy int
	err := d.db.QueryRowContext(ctx, query, int64(slot)).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slot exists error: %w", err)
	}
	return true, nil
}

// BatchInsertSlots 按 batchLimit 分批写入 slot 记录，slot 冲突时更新状态
func (d *DBProgressStore) BatchInsertSlots(ctx context.Context, slots []*SlotRecord, eventType EventType) error {
	const batchLimit = 1000
	for i := 0; i < len(slots); i += batchLimit {
		end := min(i+batchLimit, len(slots))
		query, args := buildInsertQuery(eventType.TableName(), slots[i:end])
		if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %d slots failed: %w", end-i, err)
		}
	}
	return nil
}

// buildInsertQuery 构造批量 upsert 语句，每条记录 5 个参数
func buildInsertQuery(table string, slots []*SlotRecord) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (slot, source, block_time, status, changes, updated_at) VALUES ")

	args := make([]interface{}, 0, len(slots)*5)
	for i, s := range slots {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,CURRENT_TIMESTAMP)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, int64(s.Slot), s.Source, s.BlockTime, int(s.Status), s.Changes)
	}
	sb.WriteString(" ON CONFLICT (slot) DO UPDATE SET status = EXCLUDED.status, changes = EXCLUDED.changes, updated_at = CURRENT_TIMESTAMP")
	return sb.String(), args
}

// slotsPerDay 按每秒约 2.5 个 slot 估算
const slotsPerDay = 24 * 3600 * 5 / 2

// DeleteOldSlots 删除 retainDays 天之前的记录，分批删除避免长事务
func (d *DBProgressStore) DeleteOldSlots(ctx context.Context, eventType EventType, retainDays int) error {
	table := eventType.TableName()
	var latest sql.NullInt64
	if err := d.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT MAX(slot) FROM %s`, table)).Scan(&latest); err != nil {
		return fmt.Errorf("fetch latest slot failed: %w", err)
	}
	retain := int64(retainDays) * slotsPerDay
	if !latest.Valid || latest.Int64 <= retain {
		return nil
	}
	safeSlot := latest.Int64 - retain

	query := fmt.Sprintf(`DELETE FROM %s WHERE slot IN (SELECT slot FROM %s WHERE slot < $1 ORDER BY slot LIMIT $2)`, table, table)
	for {
		res, err := d.db.ExecContext(ctx, query, safeSlot, 1000)
		if err != nil {
			return fmt.Errorf("delete old slots failed: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		logger.Infof("[progress::DeleteOldSlots] deleted %d old rows from %s", n, table)
	}
}
