package codec

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/text/encoding/unicode"
)

// Encoding 表示字节序列与字符串之间的文本编码方式。
type Encoding string

const (
	Hex       Encoding = "hex"
	Base64    Encoding = "base64"
	Base64URL Encoding = "base64url"
	Latin1    Encoding = "latin1"
	UTF8      Encoding = "utf8"
	ASCII     Encoding = "ascii"
	UTF16LE   Encoding = "utf16le"
)

var aliases = map[string]Encoding{
	"hex":       Hex,
	"base64":    Base64,
	"base64url": Base64URL,
	"latin1":    Latin1,
	"binary":    Latin1,
	"utf8":      UTF8,
	"utf-8":     UTF8,
	"ascii":     ASCII,
	"utf16le":   UTF16LE,
	"utf-16le":  UTF16LE,
	"ucs2":      UTF16LE,
	"ucs-2":     UTF16LE,
}

// ParseEncoding 将编码名称（大小写不敏感，支持 binary、utf-8、ucs2 等别名）规范化为 Encoding。
func ParseEncoding(name string) (Encoding, error) {
	enc, ok := aliases[strings.ToLower(name)]
	if !ok {
		return "", errors.NewKindErrorf(errors.KindInvalidEncoding, "unknown encoding \"%s\"", name)
	}
	return enc, nil
}

// Encodings 返回所有规范的编码名称。
func Encodings() []Encoding {
	return []Encoding{Hex, Base64, Base64URL, Latin1, UTF8, ASCII, UTF16LE}
}

/* ------------------------------------------------------------------------------------------ */

// Decode 按照 encoding 将字符串解码为字节序列。
func Decode(s string, encoding string) ([]byte, error) {
	enc, err := ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return DecodeAs(s, enc)
}

// DecodeAs 与 Decode 相同，但接收已经规范化的 Encoding。
func DecodeAs(s string, enc Encoding) ([]byte, error) {
	switch enc {
	case Hex:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "failed decoding hex string, the error is \"%s\"", err.Error())
		}
		return b, nil
	case Base64, Base64URL:
		return decodeBase64(s)
	case Latin1, ASCII:
		// ascii 写入时与 latin1 相同，保留每个字符的低 8 位，只有输出时才清除最高位。
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out, nil
	case UTF8:
		return []byte(s), nil
	case UTF16LE:
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(strings.ToValidUTF8(s, "�")))
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "failed encoding utf16le bytes, the error is \"%s\"", err.Error())
		}
		return b, nil
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "unknown encoding \"%s\"", string(enc))
	}
}

// Encode 按照 encoding 将字节序列编码为字符串。
func Encode(b []byte, encoding string) (string, error) {
	enc, err := ParseEncoding(encoding)
	if err != nil {
		return "", err
	}
	return EncodeAs(b, enc), nil
}

// EncodeAs 与 Encode 相同，但接收已经规范化的 Encoding。
func EncodeAs(b []byte, enc Encoding) string {
	switch enc {
	case Hex:
		return hex.EncodeToString(b)
	case Base64:
		return base64.StdEncoding.EncodeToString(b)
	case Base64URL:
		return base64.RawURLEncoding.EncodeToString(b)
	case Latin1:
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes)
	case ASCII:
		out := make([]byte, len(b))
		for i, c := range b {
			out[i] = c & 0x7f
		}
		return string(out)
	case UTF8:
		if utf8.Valid(b) {
			return string(b)
		}
		var sb strings.Builder
		for len(b) > 0 {
			r, size := utf8.DecodeRune(b)
			sb.WriteRune(r)
			b = b[size:]
		}
		return sb.String()
	case UTF16LE:
		if len(b)%2 == 1 {
			b = b[:len(b)-1]
		}
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
		if err != nil {
			return ""
		}
		return string(out)
	default:
		return ""
	}
}

// decodeBase64 同时接受标准字母表与 URL 安全字母表，忽略空白字符，填充字符可有可无。
func decodeBase64(s string) ([]byte, error) {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-':
			sb.WriteByte('+')
		case c == '_':
			sb.WriteByte('/')
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		case c == '=':
			// 填充字符之后的内容被忽略。
			i = len(s)
		default:
			sb.WriteByte(c)
		}
	}
	clean := sb.String()
	if len(clean)%4 == 1 {
		return nil, errors.NewKindError(errors.KindInvalidEncoding, "failed decoding base64 string, the error is \"truncated input\"")
	}
	b, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidEncoding, "failed decoding base64 string, the error is \"%s\"", err.Error())
	}
	return b, nil
}

/* ------------------------------------------------------------------------------------------ */

// DecodeInput 是各引擎在公开边界处理“字节或带编码字符串”输入的统一入口，encoding 为空时按 utf8 处理。
func DecodeInput(s string, encoding string) ([]byte, error) {
	if encoding == "" {
		return []byte(s), nil
	}
	return Decode(s, encoding)
}
