package processor

import (
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/pkg/logger"
)

// LogObserver 将决策点输出为 debug 日志，异常指令输出 warn
type LogObserver struct{}

func (LogObserver) TxSkipped(sig string, reason core.SkipReason) {
	logger.Debugw("tx skipped", "tx", sig, "reason", string(reason))
}

func (LogObserver) MalformedInstruction(sig string, ixIndex, innerIndex uint16, err error) {
	logger.Warnf("[processor] malformed instruction tx=%s ix=%d inner=%d: %v", sig, ixIndex, innerIndex, err)
}

func (LogObserver) MatchFound(sig string, m core.DexMatch) {
	logger.Debugw("dex match", "tx", sig, "program", m.ProgramID.String(), "byAccount", m.ByAccount,
		"ix", m.IxIndex, "inner", m.InnerIndex)
}

func (LogObserver) DeltaComputed(sig string, deltas []core.BalanceDelta) {
	logger.Debugw("balance deltas", "tx", sig, "count", len(deltas))
}

func (LogObserver) NoSwap(sig string, reason string) {
	logger.Debugw("no swap detected", "tx", sig, "reason", reason)
}

func (LogObserver) RowEmitted(kind, id string) {
	logger.Debugw("row emitted", "entity", kind, "id", id)
}
