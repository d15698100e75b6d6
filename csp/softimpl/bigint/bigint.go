package bigint

import (
	"math/big"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// ByteOrder 指定无符号大整数与字节序列之间转换时采用的字节序。
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

/* ------------------------------------------------------------------------------------------ */

// FromBytes 将无符号的字节序列解析为大整数，空序列解析为 0。
func FromBytes(b []byte, order ByteOrder) *big.Int {
	if order == LittleEndian {
		b = reversed(b)
	}
	return new(big.Int).SetBytes(b)
}

// ToBytes 将非负大整数编码为最短的无符号字节序列，0 编码为空序列。
func ToBytes(x *big.Int, order ByteOrder) []byte {
	b := x.Bytes()
	if order == LittleEndian {
		reverseInPlace(b)
	}
	return b
}

// ToFixedBytes 将非负大整数编码为长度恰好为 size 的字节序列，高位补零；数值超出 size 能表示的范围时返回 RangeError。
func ToFixedBytes(x *big.Int, size int, order ByteOrder) ([]byte, error) {
	if x.Sign() < 0 {
		return nil, errors.NewKindError(errors.KindRangeError, "negative integer cannot be encoded as unsigned bytes")
	}
	if (x.BitLen()+7)/8 > size {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "integer of %d bits does not fit in %d bytes", x.BitLen(), size)
	}
	out := make([]byte, size)
	x.FillBytes(out)
	if order == LittleEndian {
		reverseInPlace(out)
	}
	return out, nil
}

// PadLeft 在字节序列左侧补零直到长度为 size，长度已不小于 size 时原样返回。
func PadLeft(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

/* ------------------------------------------------------------------------------------------ */

// ModExp 计算 base^exp mod m，m 必须为正数。
func ModExp(base, exp, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, errors.NewKindError(errors.KindRangeError, "modulus must be positive")
	}
	if exp.Sign() < 0 {
		return nil, errors.NewKindError(errors.KindRangeError, "exponent must not be negative")
	}
	return new(big.Int).Exp(base, exp, m), nil
}

// ModSqrt 计算 x 模素数 p 的平方根，不存在时返回 nil。
func ModSqrt(x, p *big.Int) *big.Int {
	r := new(big.Int).ModSqrt(new(big.Int).Mod(x, p), p)
	return r
}

/* ------------------------------------------------------------------------------------------ */

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

func reverseInPlace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
