package cipher

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/tsoniclang/tsonic-node-sub000/common/codec"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.cipher", mlog.DebugLevel)

const maxTagLength = 16

/* ------------------------------------------------------------------------------------------ */

// Cipher 是流式对称加解密引擎，同一类型同时用于加密（Cipheriv）与解密（Decipheriv）。
// 非 AEAD 模式在 Update 中尽可能输出结果，AEAD 模式在 Final 之前缓存全部输入。
type Cipher struct {
	suite   *Suite
	decrypt bool

	blockMode cipher.BlockMode
	stream    cipher.Stream
	aead      cipher.AEAD

	iv            []byte
	aad           []byte
	tag           []byte
	authTagLength int
	buffered      []byte
	pending       []byte
	autoPadding   bool

	outEncoding *codec.StringDecoder
	started     bool
	finalized   bool
}

type Option func(*Cipher) error

// WithAuthTagLength 为 AEAD 模式指定认证标签的长度，GCM 可以取 4、8、12 至 16，chacha20-poly1305 可以取 1 至 16。
func WithAuthTagLength(n int) Option {
	return func(c *Cipher) error {
		if !c.suite.AEAD() {
			return errors.NewErrorf("auth tag length is only valid for authenticated ciphers, not %s", c.suite.Name)
		}
		if !validTagLength(c.suite, n) {
			return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid authentication tag length %d for %s", n, c.suite.Name)
		}
		c.authTagLength = n
		return nil
	}
}

func validTagLength(s *Suite, n int) bool {
	if s.Mode == ModeAEAD {
		return n >= 1 && n <= maxTagLength
	}
	return n == 4 || n == 8 || (n >= 12 && n <= maxTagLength)
}

// NewCipheriv 创建加密引擎。
func NewCipheriv(suite *Suite, key, iv []byte, opts ...Option) (*Cipher, error) {
	return newCipher(suite, key, iv, false, opts)
}

// NewDecipheriv 创建解密引擎。
func NewDecipheriv(suite *Suite, key, iv []byte, opts ...Option) (*Cipher, error) {
	return newCipher(suite, key, iv, true, opts)
}

func newCipher(suite *Suite, key, iv []byte, decrypt bool, opts []Option) (*Cipher, error) {
	if suite == nil {
		return nil, errors.NewKindError(errors.KindUnknownAlgorithm, "nil cipher suite")
	}
	if err := suite.validateKeyIV(key, iv); err != nil {
		if errors.KindOf(err) == errors.KindUnsupported {
			logger.Warnf("cipher %s was requested but is not available", suite.Name)
		}
		return nil, err
	}

	c := &Cipher{
		suite:       suite,
		decrypt:     decrypt,
		iv:          append([]byte(nil), iv...),
		autoPadding: true,
	}

	if suite.NewAEAD != nil {
		aead, err := suite.NewAEAD(key)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed creating %s cipher, the error is \"%s\"", suite.Name, err.Error())
		}
		c.aead = aead
	} else {
		block, err := suite.NewBlock(key)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed creating %s cipher, the error is \"%s\"", suite.Name, err.Error())
		}
		switch suite.Mode {
		case ModeECB:
			c.blockMode = newECB(block, decrypt)
		case ModeCBC:
			if decrypt {
				c.blockMode = cipher.NewCBCDecrypter(block, c.iv)
			} else {
				c.blockMode = cipher.NewCBCEncrypter(block, c.iv)
			}
		case ModeCFB:
			if decrypt {
				c.stream = cipher.NewCFBDecrypter(block, c.iv)
			} else {
				c.stream = cipher.NewCFBEncrypter(block, c.iv)
			}
		case ModeOFB:
			c.stream = cipher.NewOFB(block, c.iv)
		case ModeCTR:
			c.stream = cipher.NewCTR(block, c.iv)
		case ModeGCM:
			var aead cipher.AEAD
			var err error
			if len(c.iv) == 12 {
				aead, err = cipher.NewGCM(block)
			} else {
				aead, err = cipher.NewGCMWithNonceSize(block, len(c.iv))
			}
			if err != nil {
				return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "failed creating %s cipher, the error is \"%s\"", suite.Name, err.Error())
			}
			c.aead = aead
		default:
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "cipher mode %s is not supported", suite.Mode)
		}
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cipher) Algorithm() string {
	return c.suite.Name
}

/* ------------------------------------------------------------------------------------------ */

// Update 处理一段输入并返回当前可以输出的结果，AEAD 模式总是返回空切片。
func (c *Cipher) Update(data []byte) ([]byte, error) {
	if c.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "failed updating cipher, the error is \"final already called\"")
	}
	c.started = true

	switch {
	case c.aead != nil:
		c.buffered = append(c.buffered, data...)
		return []byte{}, nil
	case c.stream != nil:
		out := make([]byte, len(data))
		c.stream.XORKeyStream(out, data)
		return out, nil
	default:
		bs := c.suite.BlockSize
		c.pending = append(c.pending, data...)
		n := len(c.pending) / bs * bs
		// 解密且需要去除填充时，最后一个完整分组要留到 Final 中处理。
		if c.decrypt && c.autoPadding && n == len(c.pending) && n > 0 {
			n -= bs
		}
		out := make([]byte, n)
		c.blockMode.CryptBlocks(out, c.pending[:n])
		c.pending = append([]byte(nil), c.pending[n:]...)
		return out, nil
	}
}

// UpdateString 按照 inputEncoding 解码输入（为空时按 utf8 处理），按照 outputEncoding 编码输出。
// 多次调用的输出编码必须相同，各次输出与 FinalString 的输出拼接后等于一次性编码全部输出字节的结果。
func (c *Cipher) UpdateString(data string, inputEncoding, outputEncoding string) (string, error) {
	in, err := codec.DecodeInput(data, inputEncoding)
	if err != nil {
		return "", err
	}
	sd, err := c.stringDecoder(outputEncoding)
	if err != nil {
		return "", err
	}
	out, err := c.Update(in)
	if err != nil {
		return "", err
	}
	return sd.Write(out), nil
}

func (c *Cipher) stringDecoder(outputEncoding string) (*codec.StringDecoder, error) {
	enc, err := codec.ParseEncoding(outputEncoding)
	if err != nil {
		return nil, err
	}
	if c.outEncoding == nil {
		c.outEncoding, _ = codec.NewStringDecoder(string(enc))
	} else if c.outEncoding.Encoding() != enc {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "cannot change output encoding from %s to %s", c.outEncoding.Encoding(), enc)
	}
	return c.outEncoding, nil
}

// Final 结束加解密：非 AEAD 模式处理 PKCS7 填充，AEAD 模式对缓存的全部数据进行认证加密或认证解密。
func (c *Cipher) Final() ([]byte, error) {
	if c.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "failed finalizing cipher, the error is \"final already called\"")
	}
	c.started = true

	switch {
	case c.aead != nil:
		if c.decrypt {
			return c.openAEAD()
		}
		return c.sealAEAD(), nil
	case c.stream != nil:
		c.finalized = true
		return []byte{}, nil
	default:
		return c.finalBlocks()
	}
}

// FinalString 与 Final 相同，但按照 outputEncoding 编码输出。
func (c *Cipher) FinalString(outputEncoding string) (string, error) {
	sd, err := c.stringDecoder(outputEncoding)
	if err != nil {
		return "", err
	}
	out, err := c.Final()
	if err != nil {
		return "", err
	}
	return sd.Write(out) + sd.End(), nil
}

func (c *Cipher) finalBlocks() ([]byte, error) {
	bs := c.suite.BlockSize
	c.finalized = true
	src := c.pending
	c.pending = nil

	if !c.decrypt {
		if c.autoPadding {
			src = pkcs7Padding(src, bs)
		} else if len(src)%bs != 0 {
			return nil, errors.NewErrorf("data not multiple of block length %d", bs)
		}
		out := make([]byte, len(src))
		c.blockMode.CryptBlocks(out, src)
		return out, nil
	}

	if len(src)%bs != 0 {
		return nil, errors.NewKindError(errors.KindAuthenticationFailure, "bad decrypt, the error is \"wrong final block length\"")
	}
	out := make([]byte, len(src))
	c.blockMode.CryptBlocks(out, src)
	if !c.autoPadding {
		return out, nil
	}
	return pkcs7UnPadding(out, bs)
}

func (c *Cipher) tagLength() int {
	if c.authTagLength != 0 {
		return c.authTagLength
	}
	return maxTagLength
}

func (c *Cipher) sealAEAD() []byte {
	c.finalized = true
	sealed := c.aead.Seal(nil, c.iv, c.buffered, c.aad)
	ciphertext := sealed[:len(sealed)-c.aead.Overhead()]
	c.tag = append([]byte(nil), sealed[len(ciphertext):len(ciphertext)+c.tagLength()]...)
	c.buffered = nil
	return ciphertext
}

// openAEAD 对完整长度的认证标签直接使用 Open；对截断的认证标签，利用计数器模式加解密的对称性，
// 先用 Seal 还原明文，再重新计算标签并与给定标签的前缀进行常数时间比较，比较通过之前不会输出明文。
func (c *Cipher) openAEAD() ([]byte, error) {
	c.finalized = true
	ciphertext := c.buffered
	c.buffered = nil

	if c.tag == nil {
		return nil, errors.NewKindError(errors.KindAuthenticationFailure, "unsupported state or unable to authenticate data, the error is \"authentication tag not set\"")
	}

	if len(c.tag) == c.aead.Overhead() {
		plaintext, err := c.aead.Open(nil, c.iv, append(append([]byte(nil), ciphertext...), c.tag...), c.aad)
		if err != nil {
			return nil, errors.NewKindError(errors.KindAuthenticationFailure, "unsupported state or unable to authenticate data")
		}
		return plaintext, nil
	}

	recovered := c.aead.Seal(nil, c.iv, ciphertext, nil)
	plaintext := recovered[:len(ciphertext)]
	resealed := c.aead.Seal(nil, c.iv, plaintext, c.aad)
	expected := resealed[len(plaintext) : len(plaintext)+len(c.tag)]
	if subtle.ConstantTimeCompare(expected, c.tag) != 1 {
		for i := range plaintext {
			plaintext[i] = 0
		}
		return nil, errors.NewKindError(errors.KindAuthenticationFailure, "unsupported state or unable to authenticate data")
	}
	return plaintext, nil
}

/* ------------------------------------------------------------------------------------------ */

// SetAAD 设置附加认证数据，只对 AEAD 模式有效，必须在 Final 之前调用。
func (c *Cipher) SetAAD(aad []byte) error {
	if c.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed setting aad, the error is \"final already called\"")
	}
	if c.aead == nil {
		return errors.NewKindErrorf(errors.KindInvalidArgument, "aad is only valid for authenticated ciphers, not %s", c.suite.Name)
	}
	c.aad = append([]byte(nil), aad...)
	return nil
}

// SetAuthTag 为解密引擎设置认证标签，必须在 Final 之前调用。
func (c *Cipher) SetAuthTag(tag []byte) error {
	if c.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed setting auth tag, the error is \"final already called\"")
	}
	if c.aead == nil || !c.decrypt {
		return errors.NewKindError(errors.KindInvalidArgument, "auth tag can only be set on an authenticated decipher")
	}
	if c.authTagLength != 0 && len(tag) != c.authTagLength {
		return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid authentication tag length %d, expected %d", len(tag), c.authTagLength)
	}
	if !validTagLength(c.suite, len(tag)) {
		return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid authentication tag length %d for %s", len(tag), c.suite.Name)
	}
	c.tag = append([]byte(nil), tag...)
	return nil
}

// GetAuthTag 返回加密引擎计算出的认证标签，只能在 Final 之后调用。
func (c *Cipher) GetAuthTag() ([]byte, error) {
	if c.aead == nil || c.decrypt {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "auth tag is only produced by an authenticated cipher")
	}
	if !c.finalized {
		return nil, errors.NewKindError(errors.KindNotInitialized, "auth tag is only available after final")
	}
	return append([]byte(nil), c.tag...), nil
}

// SetAutoPadding 控制是否自动处理 PKCS7 填充，必须在第一次 Update 或 Final 之前调用。
func (c *Cipher) SetAutoPadding(enabled bool) error {
	if c.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed setting auto padding, the error is \"final already called\"")
	}
	if c.started {
		return errors.NewKindError(errors.KindInvalidArgument, "auto padding must be set before any data is processed")
	}
	c.autoPadding = enabled
	return nil
}
