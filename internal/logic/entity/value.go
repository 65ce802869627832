package entity

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind 对应 EntityChanges 中 Value 的 oneof 字段号
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindInt64
	KindFloat64
	KindBool
	KindBytes
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "double"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	default:
		return "unset"
	}
}

// Value 是带类型的字段值，零值表示未设置。
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	raw  []byte
	arr  []Value
}

func String(s string) Value   { return Value{kind: KindString, s: s} }
func Int64(i int64) Value     { return Value{kind: KindInt64, i: i} }
func Float64(f float64) Value { return Value{kind: KindFloat64, f: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }

// Bytes 会拷贝入参，避免调用方后续修改影响已写入的行
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

func Array(values ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value{}, values...)}
}

// Uint64 以 int64 存储，超过 MaxInt64 时截断为 MaxInt64
func Uint64(u uint64) Value {
	if u > math.MaxInt64 {
		return Int64(math.MaxInt64)
	}
	return Int64(int64(u))
}

func (v Value) Kind() ValueKind    { return v.kind }
func (v Value) IsSet() bool        { return v.kind != 0 }
func (v Value) AsString() string   { return v.s }
func (v Value) AsInt64() int64     { return v.i }
func (v Value) AsFloat64() float64 { return v.f }
func (v Value) AsBool() bool       { return v.b }
func (v Value) AsBytes() []byte    { return v.raw }
func (v Value) AsArray() []Value   { return v.arr }

// Equal 按类型与内容比较
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt64:
		return v.i == o.i
	case KindFloat64:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String 方便日志输出
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindBytes:
		return "0x" + fmt.Sprintf("%x", v.raw)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return "<unset>"
	}
}

// MarshalJSON 输出 {"<kind>": value}，bytes 使用 base64
func (v Value) MarshalJSON() ([]byte, error) {
	var body string
	switch v.kind {
	case KindString:
		body = strconv.Quote(v.s)
	case KindInt64:
		body = strconv.Quote(strconv.FormatInt(v.i, 10))
	case KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("entity: cannot encode %v as json", v.f)
		}
		body = strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		body = strconv.FormatBool(v.b)
	case KindBytes:
		body = strconv.Quote(base64.StdEncoding.EncodeToString(v.raw))
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			sb.Write(b)
		}
		sb.WriteByte(']')
		body = sb.String()
	default:
		return []byte("null"), nil
	}
	return []byte(`{"` + v.kind.String() + `":` + body + `}`), nil
}
