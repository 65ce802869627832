package common

import (
	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/entity"
)

// UpsertProtocols 为注册表中每个程序写入 Protocol 行，与区块内交易无关
func UpsertProtocols(tables *entity.Tables, txCtx *core.TxContext) {
	for _, p := range consts.DexPrograms() {
		tables.Upsert(entity.KindProtocol, p.ProgramIDStr).
			Set("name", entity.String(p.Name)).
			Set("label", entity.String(p.Label)).
			Set("version", entity.String(p.Version)).
			Set("programId", entity.String(p.ProgramIDStr)).
			Set("lastUpdateSlot", entity.Uint64(txCtx.Slot)).
			Set("lastUpdateTimestamp", entity.Int64(txCtx.BlockTime))
	}
}
