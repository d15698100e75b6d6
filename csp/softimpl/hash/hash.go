package hash

import (
	"crypto/hmac"
	"encoding"
	"hash"

	"github.com/tsoniclang/tsonic-node-sub000/common/codec"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/crypto/sha3"
)

var logger = mlog.GetLogger("csp.hash", mlog.DebugLevel)

/* ------------------------------------------------------------------------------------------ */

// Hash 是流式摘要引擎：可以多次 Update，只能调用一次 Digest，之后的任何操作都会返回 AlreadyFinalized 错误。
// 同一个 Hash 不能被多个 goroutine 同时使用。
type Hash struct {
	alg          *Algorithm
	h            hash.Hash
	xof          sha3.ShakeHash
	outputLength int
	finalized    bool

	// 摘要状态无法序列化时（md4、ripemd160）保存已写入的数据，复制时重放。
	replay bool
	fed    []byte
}

type Option func(*Hash) error

// WithOutputLength 指定摘要的输出长度，只有可扩展输出函数可以指定与默认长度不同的值。
func WithOutputLength(n int) Option {
	return func(h *Hash) error {
		if n < 0 {
			return errors.NewKindErrorf(errors.KindRangeError, "invalid output length %d", n)
		}
		if !h.alg.XOF() && n != h.alg.OutputLength {
			return errors.NewKindErrorf(errors.KindInvalidArgument, "output length %d is invalid for %s", n, h.alg.Name)
		}
		h.outputLength = n
		return nil
	}
}

func New(alg *Algorithm, opts ...Option) (*Hash, error) {
	if alg == nil {
		return nil, errors.NewKindError(errors.KindUnknownAlgorithm, "nil hash algorithm")
	}
	h := &Hash{alg: alg, outputLength: alg.OutputLength}
	if alg.XOF() {
		h.xof = alg.NewXOF()
	} else {
		h.h = alg.New()
		_, marshalable := h.h.(encoding.BinaryMarshaler)
		h.replay = !marshalable
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hash) Algorithm() string {
	return h.alg.Name
}

func (h *Hash) Update(data []byte) error {
	if h.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed updating hash, the error is \"digest already called\"")
	}
	if h.xof != nil {
		h.xof.Write(data)
	} else {
		h.h.Write(data)
		if h.replay {
			h.fed = append(h.fed, data...)
		}
	}
	return nil
}

// UpdateString 按照 encoding 解码 data 后更新摘要状态，encoding 为空时按 utf8 处理。
func (h *Hash) UpdateString(data string, encoding string) error {
	if h.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed updating hash, the error is \"digest already called\"")
	}
	b, err := codec.DecodeInput(data, encoding)
	if err != nil {
		return err
	}
	return h.Update(b)
}

// Digest 输出摘要，可扩展输出函数输出构造时指定（或默认）长度的字节。
func (h *Hash) Digest() ([]byte, error) {
	return h.DigestN(h.outputLength)
}

// DigestN 输出长度为 n 的摘要，普通摘要算法的 n 必须等于其摘要长度。
func (h *Hash) DigestN(n int) ([]byte, error) {
	if h.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "failed computing digest, the error is \"digest already called\"")
	}
	if n < 0 {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "invalid output length %d", n)
	}
	if h.xof == nil && n != h.alg.OutputLength {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "output length %d is invalid for %s", n, h.alg.Name)
	}
	h.finalized = true
	h.fed = nil
	if h.xof != nil {
		out := make([]byte, n)
		h.xof.Read(out)
		return out, nil
	}
	return h.h.Sum(nil), nil
}

func (h *Hash) DigestString(encoding string) (string, error) {
	enc, err := codec.ParseEncoding(encoding)
	if err != nil {
		return "", err
	}
	out, err := h.Digest()
	if err != nil {
		return "", err
	}
	return codec.EncodeAs(out, enc), nil
}

// Copy 复制出一个拥有相同内部状态的独立引擎，opts 可以为副本指定新的输出长度。
func (h *Hash) Copy(opts ...Option) (*Hash, error) {
	if h.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "failed copying hash, the error is \"digest already called\"")
	}
	cpy := &Hash{alg: h.alg, outputLength: h.outputLength}
	if h.xof != nil {
		cpy.xof = h.xof.Clone()
	} else if h.replay {
		cpy.h = h.alg.New()
		cpy.h.Write(h.fed)
		cpy.replay = true
		cpy.fed = append([]byte(nil), h.fed...)
	} else {
		marshaler, ok := h.h.(encoding.BinaryMarshaler)
		if !ok {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "copying %s state is not supported", h.alg.Name)
		}
		state, err := marshaler.MarshalBinary()
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "failed copying %s state, the error is \"%s\"", h.alg.Name, err.Error())
		}
		cpy.h = h.alg.New()
		unmarshaler, ok := cpy.h.(encoding.BinaryUnmarshaler)
		if !ok {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "copying %s state is not supported", h.alg.Name)
		}
		if err = unmarshaler.UnmarshalBinary(state); err != nil {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "failed copying %s state, the error is \"%s\"", h.alg.Name, err.Error())
		}
	}
	for _, opt := range opts {
		if err := opt(cpy); err != nil {
			return nil, err
		}
	}
	return cpy, nil
}

/* ------------------------------------------------------------------------------------------ */

// Hmac 是流式消息认证码引擎，生命周期与 Hash 相同，但不支持复制。
type Hmac struct {
	alg       *Algorithm
	mac       hash.Hash
	finalized bool
}

func NewHmac(alg *Algorithm, key []byte) (*Hmac, error) {
	if alg == nil {
		return nil, errors.NewKindError(errors.KindUnknownAlgorithm, "nil hash algorithm")
	}
	if alg.XOF() {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "hmac over extendable-output function %s is not supported", alg.Name)
	}
	return &Hmac{alg: alg, mac: hmac.New(alg.New, key)}, nil
}

func (m *Hmac) Algorithm() string {
	return m.alg.Name
}

func (m *Hmac) Update(data []byte) error {
	if m.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed updating hmac, the error is \"digest already called\"")
	}
	m.mac.Write(data)
	return nil
}

func (m *Hmac) UpdateString(data string, encoding string) error {
	if m.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "failed updating hmac, the error is \"digest already called\"")
	}
	b, err := codec.DecodeInput(data, encoding)
	if err != nil {
		return err
	}
	return m.Update(b)
}

func (m *Hmac) Digest() ([]byte, error) {
	if m.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "failed computing hmac, the error is \"digest already called\"")
	}
	m.finalized = true
	return m.mac.Sum(nil), nil
}

func (m *Hmac) DigestString(encoding string) (string, error) {
	enc, err := codec.ParseEncoding(encoding)
	if err != nil {
		return "", err
	}
	out, err := m.Digest()
	if err != nil {
		return "", err
	}
	return codec.EncodeAs(out, enc), nil
}

/* ------------------------------------------------------------------------------------------ */

// Hasher 以一次性的方式提供摘要计算，实现 interfaces.Hasher。
type Hasher struct {
	alg *Algorithm
}

func NewHasher(alg *Algorithm) *Hasher {
	return &Hasher{alg: alg}
}

func (h *Hasher) Hash(msg []byte, opts interfaces.HashOpts) ([]byte, error) {
	var options []Option
	if o, ok := opts.(*Opts); ok && o != nil && o.OutputLength != 0 {
		options = append(options, WithOutputLength(o.OutputLength))
	}
	engine, err := New(h.alg, options...)
	if err != nil {
		return nil, err
	}
	engine.Update(msg)
	return engine.Digest()
}

// GetHash 返回标准库形式的 hash.Hash，可扩展输出函数被包装为输出固定长度的 hash.Hash。
func (h *Hasher) GetHash(opts interfaces.HashOpts) (hash.Hash, error) {
	if !h.alg.XOF() {
		return h.alg.New(), nil
	}
	size := h.alg.OutputLength
	if o, ok := opts.(*Opts); ok && o != nil && o.OutputLength != 0 {
		size = o.OutputLength
	}
	logger.Debugf("wrapping extendable-output function %s as a %d bytes hash", h.alg.Name, size)
	return &xofHash{xof: h.alg.NewXOF(), size: size, blockSize: h.alg.BlockSize}, nil
}

type xofHash struct {
	xof       sha3.ShakeHash
	size      int
	blockSize int
}

func (x *xofHash) Write(p []byte) (int, error) {
	return x.xof.Write(p)
}

func (x *xofHash) Sum(b []byte) []byte {
	out := make([]byte, x.size)
	x.xof.Clone().Read(out)
	return append(b, out...)
}

func (x *xofHash) Reset() {
	x.xof.Reset()
}

func (x *xofHash) Size() int {
	return x.size
}

func (x *xofHash) BlockSize() int {
	return x.blockSize
}
