package common

import (
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/entity"
)

// ParserContext 是单笔交易的实体提取上下文。
// Tables 为区块级共享的实体表，同一区块内的交易串行写入。
type ParserContext struct {
	Tx       *core.AdaptedTx
	Tables   *entity.Tables
	Observer core.Observer
}

// BuildParserContext 构造解析上下文，observer 为空时使用 NopObserver
func BuildParserContext(tx *core.AdaptedTx, tables *entity.Tables, observer core.Observer) *ParserContext {
	if observer == nil {
		observer = core.NopObserver{}
	}
	return &ParserContext{
		Tx:       tx,
		Tables:   tables,
		Observer: observer,
	}
}

// TxHashString 返回交易签名的 base58 形式
func (ctx *ParserContext) TxHashString() string {
	return ctx.Tx.SignatureStr
}
