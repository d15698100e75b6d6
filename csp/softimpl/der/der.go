package der

import (
	"math/big"

	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

const (
	tagInteger  = 0x02
	tagSequence = 0x30
)

/* ------------------------------------------------------------------------------------------ */

// EncodeSignature 将 (r, s) 编码为 SEQUENCE { INTEGER r, INTEGER s }。
func EncodeSignature(r, s *big.Int) ([]byte, error) {
	if r.Sign() < 0 || s.Sign() < 0 {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "signature components must not be negative")
	}
	body := append(EncodeInteger(r), EncodeInteger(s)...)
	return append(append([]byte{tagSequence}, encodeLength(len(body))...), body...), nil
}

// DecodeSignature 解析 SEQUENCE { INTEGER r, INTEGER s }，不允许尾随数据、负数或非最短编码。
func DecodeSignature(sig []byte) (r, s *big.Int, err error) {
	body, rest, err := readTLV(sig, tagSequence)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) != 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der signature, the error is \"trailing data after sequence\"")
	}
	if r, body, err = readInteger(body); err != nil {
		return nil, nil, err
	}
	if s, body, err = readInteger(body); err != nil {
		return nil, nil, err
	}
	if len(body) != 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der signature, the error is \"trailing data inside sequence\"")
	}
	return r, s, nil
}

// ToP1363 将 DER 签名转换为 r‖s 的定长拼接形式，size 为单个分量的字节长度。
func ToP1363(sig []byte, size int) ([]byte, error) {
	r, s, err := DecodeSignature(sig)
	if err != nil {
		return nil, err
	}
	rb, err := bigint.ToFixedBytes(r, size, bigint.BigEndian)
	if err != nil {
		return nil, err
	}
	sb, err := bigint.ToFixedBytes(s, size, bigint.BigEndian)
	if err != nil {
		return nil, err
	}
	return append(rb, sb...), nil
}

// FromP1363 将 r‖s 形式的签名转换为 DER 编码。
func FromP1363(sig []byte) ([]byte, error) {
	if len(sig) == 0 || len(sig)%2 != 0 {
		return nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "invalid ieee-p1363 signature length %d", len(sig))
	}
	half := len(sig) / 2
	return EncodeSignature(bigint.FromBytes(sig[:half], bigint.BigEndian), bigint.FromBytes(sig[half:], bigint.BigEndian))
}

/* ------------------------------------------------------------------------------------------ */

// EncodeInteger 将非负整数编码为 DER INTEGER，最高位为 1 时前置 0x00 以保持正数语义。
func EncodeInteger(x *big.Int) []byte {
	content := x.Bytes()
	if len(content) == 0 {
		content = []byte{0x00}
	} else if content[0]&0x80 != 0 {
		content = append([]byte{0x00}, content...)
	}
	return append(append([]byte{tagInteger}, encodeLength(len(content))...), content...)
}

func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var buf []byte
	for v := n; v > 0; v >>= 8 {
		buf = append([]byte{byte(v)}, buf...)
	}
	return append([]byte{0x80 | byte(len(buf))}, buf...)
}

func readTLV(b []byte, tag byte) (content, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der, the error is \"truncated element\"")
	}
	if b[0] != tag {
		return nil, nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "failed parsing der, the error is \"expected tag 0x%02x, got 0x%02x\"", tag, b[0])
	}
	length, offset := int(b[1]), 2
	if length&0x80 != 0 {
		n := length & 0x7f
		if n == 0 || n > 4 || len(b) < 2+n {
			return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der, the error is \"invalid length\"")
		}
		if b[2] == 0 {
			return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der, the error is \"non-minimal length\"")
		}
		length = 0
		for _, c := range b[2 : 2+n] {
			length = length<<8 | int(c)
		}
		if length < 0x80 {
			return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der, the error is \"non-minimal length\"")
		}
		offset += n
	}
	if length > len(b)-offset {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der, the error is \"length exceeds input\"")
	}
	return b[offset : offset+length], b[offset+length:], nil
}

func readInteger(b []byte) (*big.Int, []byte, error) {
	content, rest, err := readTLV(b, tagInteger)
	if err != nil {
		return nil, nil, err
	}
	if len(content) == 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der integer, the error is \"empty integer\"")
	}
	if content[0]&0x80 != 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der integer, the error is \"negative integer\"")
	}
	if len(content) > 1 && content[0] == 0 && content[1]&0x80 == 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidEncoding, "failed parsing der integer, the error is \"non-minimal integer\"")
	}
	return new(big.Int).SetBytes(content), rest, nil
}
