package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"jupiter-dex-sol/internal/logic/entity"
)

// EventTypeEntityChanges 是变更集消息的类型前缀
const EventTypeEntityChanges uint32 = 1

// sf.substreams.v1.EntityChanges 各层级的字段号
const (
	fieldChanges = 1 // EntityChanges.changes

	fieldEntityType = 1 // EntityChange.entity_type
	fieldID         = 2 // EntityChange.id
	fieldFields     = 3 // EntityChange.fields
	fieldOperation  = 4 // EntityChange.operation

	fieldName  = 1 // Field.name
	fieldValue = 2 // Field.value

	valueString = 1
	valueInt64  = 2
	valueDouble = 3
	valueBool   = 4
	valueBytes  = 5
	valueArray  = 6

	arrayValues = 1
)

var ErrBadPrefix = errors.New("codec: bad event type prefix")

// EncodeChangeSet 将变更集编码为带类型前缀的二进制数据：
// - 前 4 字节为事件类型（uint32，小端序）
// - 后续为 EntityChanges 的 protobuf wire 编码
func EncodeChangeSet(cs *entity.ChangeSet) ([]byte, error) {
	buf := make([]byte, 4, 4+len(cs.Changes)*256)
	binary.LittleEndian.PutUint32(buf[:4], EventTypeEntityChanges)

	for i := range cs.Changes {
		msg, err := appendEntityChange(nil, &cs.Changes[i])
		if err != nil {
			return nil, fmt.Errorf("EncodeChangeSet: change %d (%s/%s): %w", i, cs.Changes[i].Entity, cs.Changes[i].ID, err)
		}
		buf = protowire.AppendTag(buf, fieldChanges, protowire.BytesType)
		buf = protowire.AppendBytes(buf, msg)
	}
	return buf, nil
}

func appendEntityChange(b []byte, c *entity.EntityChange) ([]byte, error) {
	b = protowire.AppendTag(b, fieldEntityType, protowire.BytesType)
	b = protowire.AppendString(b, c.Entity)
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, c.ID)
	if c.Operation != entity.OpUnset {
		b = protowire.AppendTag(b, fieldOperation, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.Operation))
	}
	for _, f := range c.Fields {
		fb := protowire.AppendTag(nil, fieldName, protowire.BytesType)
		fb = protowire.AppendString(fb, f.Name)
		if f.Value.IsSet() {
			vb, err := appendValue(nil, f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fb = protowire.AppendTag(fb, fieldValue, protowire.BytesType)
			fb = protowire.AppendBytes(fb, vb)
		}
		b = protowire.AppendTag(b, fieldFields, protowire.BytesType)
		b = protowire.AppendBytes(b, fb)
	}
	return b, nil
}

func appendValue(b []byte, v entity.Value) ([]byte, error) {
	switch v.Kind() {
	case entity.KindString:
		b = protowire.AppendTag(b, valueString, protowire.BytesType)
		b = protowire.AppendString(b, v.AsString())
	case entity.KindInt64:
		b = protowire.AppendTag(b, valueInt64, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.AsInt64()))
	case entity.KindFloat64:
		b = protowire.AppendTag(b, valueDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.AsFloat64()))
	case entity.KindBool:
		b = protowire.AppendTag(b, valueBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(v.AsBool()))
	case entity.KindBytes:
		b = protowire.AppendTag(b, valueBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, v.AsBytes())
	case entity.KindArray:
		var ab []byte
		for _, e := range v.AsArray() {
			eb, err := appendValue(nil, e)
			if err != nil {
				return nil, err
			}
			ab = protowire.AppendTag(ab, arrayValues, protowire.BytesType)
			ab = protowire.AppendBytes(ab, eb)
		}
		b = protowire.AppendTag(b, valueArray, protowire.BytesType)
		b = protowire.AppendBytes(b, ab)
	default:
		return nil, fmt.Errorf("unsupported value kind %d", v.Kind())
	}
	return b, nil
}

// DecodeChangeSet 是 EncodeChangeSet 的逆过程，未知字段会被跳过
func DecodeChangeSet(data []byte) (*entity.ChangeSet, error) {
	if len(data) < 4 || binary.LittleEndian.Uint32(data[:4]) != EventTypeEntityChanges {
		return nil, ErrBadPrefix
	}
	cs := &entity.ChangeSet{}
	err := walkFields(data[4:], func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldChanges || typ != protowire.BytesType {
			return nil
		}
		c, err := decodeEntityChange(v)
		if err != nil {
			return err
		}
		cs.Changes = append(cs.Changes, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("DecodeChangeSet: %w", err)
	}
	return cs, nil
}

// walkFields 遍历一层 protobuf 字段，bytes 类型回调 v，varint / fixed64 回调 n
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return protowire.ParseError(tagLen)
		}
		b = b[tagLen:]

		var (
			v []byte
			n uint64
			m int
		)
		switch typ {
		case protowire.BytesType:
			v, m = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			n, m = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			n, m = protowire.ConsumeFixed64(b)
		default:
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}
	return nil
}

func decodeEntityChange(b []byte) (entity.EntityChange, error) {
	var c entity.EntityChange
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == fieldEntityType && typ == protowire.BytesType:
			c.Entity = string(v)
		case num == fieldID && typ == protowire.BytesType:
			c.ID = string(v)
		case num == fieldOperation && typ == protowire.VarintType:
			c.Operation = entity.Operation(int32(n))
		case num == fieldFields && typ == protowire.BytesType:
			f, err := decodeField(v)
			if err != nil {
				return err
			}
			c.Fields = append(c.Fields, f)
		}
		return nil
	})
	return c, err
}

func decodeField(b []byte) (entity.Field, error) {
	var f entity.Field
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == fieldName && typ == protowire.BytesType:
			f.Name = string(v)
		case num == fieldValue && typ == protowire.BytesType:
			val, err := decodeValue(v)
			if err != nil {
				return err
			}
			f.Value = val
		}
		return nil
	})
	return f, err
}

func decodeValue(b []byte) (entity.Value, error) {
	var out entity.Value
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == valueString && typ == protowire.BytesType:
			out = entity.String(string(v))
		case num == valueInt64 && typ == protowire.VarintType:
			out = entity.Int64(int64(n))
		case num == valueDouble && typ == protowire.Fixed64Type:
			out = entity.Float64(math.Float64frombits(n))
		case num == valueBool && typ == protowire.VarintType:
			out = entity.Bool(protowire.DecodeBool(n))
		case num == valueBytes && typ == protowire.BytesType:
			out = entity.Bytes(v)
		case num == valueArray && typ == protowire.BytesType:
			var elems []entity.Value
			err := walkFields(v, func(num protowire.Number, typ protowire.Type, ev []byte, _ uint64) error {
				if num != arrayValues || typ != protowire.BytesType {
					return nil
				}
				e, err := decodeValue(ev)
				if err != nil {
					return err
				}
				elems = append(elems, e)
				return nil
			})
			if err != nil {
				return err
			}
			out = entity.Array(elems...)
		}
		return nil
	})
	return out, err
}
