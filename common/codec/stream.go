package codec

import "unicode/utf8"

// StringDecoder 将分多次产生的字节序列编码为字符串，保证各次输出拼接后的结果等于一次性编码全部字节的结果。
// base64 按 3 字节分组、utf8 保留不完整的多字节序列、utf16le 保留奇数字节与未配对的高位代理项。
type StringDecoder struct {
	enc     Encoding
	pending []byte
}

func NewStringDecoder(encoding string) (*StringDecoder, error) {
	enc, err := ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &StringDecoder{enc: enc}, nil
}

func (sd *StringDecoder) Encoding() Encoding {
	return sd.enc
}

// Write 编码 b 中可以立即输出的部分，其余部分留待下一次 Write 或 End。
func (sd *StringDecoder) Write(b []byte) string {
	buf := append(sd.pending, b...)
	n := sd.ready(buf)
	out := EncodeAs(buf[:n], sd.enc)
	sd.pending = append([]byte(nil), buf[n:]...)
	return out
}

// End 输出所有剩余的字节。
func (sd *StringDecoder) End() string {
	out := EncodeAs(sd.pending, sd.enc)
	sd.pending = nil
	return out
}

// ready 返回 buf 中可以立即编码的前缀长度。
func (sd *StringDecoder) ready(buf []byte) int {
	switch sd.enc {
	case Base64, Base64URL:
		return len(buf) / 3 * 3
	case UTF8:
		return utf8Boundary(buf)
	case UTF16LE:
		n := len(buf) &^ 1
		if n >= 2 {
			unit := uint16(buf[n-2]) | uint16(buf[n-1])<<8
			if unit >= 0xd800 && unit <= 0xdbff {
				n -= 2
			}
		}
		return n
	default:
		return len(buf)
	}
}

// utf8Boundary 找到 buf 末尾不完整的多字节序列的起始位置。
func utf8Boundary(buf []byte) int {
	for back := 1; back <= 3 && back <= len(buf); back++ {
		i := len(buf) - back
		c := buf[i]
		if c < 0x80 {
			return len(buf)
		}
		if utf8.RuneStart(c) {
			var need int
			switch {
			case c&0xe0 == 0xc0:
				need = 2
			case c&0xf0 == 0xe0:
				need = 3
			case c&0xf8 == 0xf0:
				need = 4
			default:
				return len(buf)
			}
			if need > back {
				return i
			}
			return len(buf)
		}
	}
	return len(buf)
}
