package replay

import (
	"encoding/binary"
	"fmt"
	"io"

	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/logic/processor"
	"jupiter-dex-sol/internal/utils"

	"github.com/zeromicro/go-zero/core/jsonx"
)

const (
	FormatJSON   = "json"
	FormatBinary = "bin"
)

type blockLine struct {
	Slot      uint64            `json:"slot"`
	Error     string            `json:"error,omitempty"`
	ChangeSet *entity.ChangeSet `json:"change_set,omitempty"`
}

// WriteResults 按输入顺序输出每个区块的结果。
// json: 每行一个对象；bin: 4 字节小端长度 + 编码后的变更集，失败的区块不输出。
func WriteResults(w io.Writer, results []processor.BlockResult, format string) (failed int, err error) {
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
		switch format {
		case FormatJSON:
			line := blockLine{Slot: res.Slot, ChangeSet: res.ChangeSet}
			if res.Err != nil {
				line.Error = res.Err.Error()
			}
			data, err := jsonx.Marshal(line)
			if err != nil {
				return failed, fmt.Errorf("marshal slot %d: %w", res.Slot, err)
			}
			if _, err := w.Write(append(data, '\n')); err != nil {
				return failed, err
			}
		case FormatBinary:
			if res.Err != nil {
				continue
			}
			data, err := utils.EncodeChangeSet(res.ChangeSet)
			if err != nil {
				return failed, fmt.Errorf("encode slot %d: %w", res.Slot, err)
			}
			var size [4]byte
			binary.LittleEndian.PutUint32(size[:], uint32(len(data)))
			if _, err := w.Write(size[:]); err != nil {
				return failed, err
			}
			if _, err := w.Write(data); err != nil {
				return failed, err
			}
		default:
			return failed, fmt.Errorf("unknown output format %q", format)
		}
	}
	return failed, nil
}
