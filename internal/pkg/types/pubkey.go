package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// UnknownAddress 是无法渲染为 base58 的地址使用的占位字符串
const UnknownAddress = "unknown"

type Pubkey [32]byte

// InvalidPubkey 表示无效地址（全 0xFF），用于承接长度非法的原始账户
var InvalidPubkey = Pubkey{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// String 返回 base58 形式；无效地址返回 UnknownAddress
func (p Pubkey) String() string {
	if p == InvalidPubkey {
		return UnknownAddress
	}
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsValid() bool {
	return p != InvalidPubkey
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 仅用于编译期常量，解析失败直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

func PubkeyFromBytes(b []byte) (Pubkey, error) {
	if len(b) != 32 {
		return InvalidPubkey, fmt.Errorf("invalid pubkey length: got %d, want 32", len(b))
	}
	var p Pubkey
	copy(p[:], b)
	return p, nil
}

// EncodeBytes 将任意签名/地址字节渲染为 base58，空输入返回 UnknownAddress
func EncodeBytes(b []byte) string {
	if len(b) == 0 {
		return UnknownAddress
	}
	return base58.Encode(b)
}
