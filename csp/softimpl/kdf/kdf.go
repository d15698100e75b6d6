package kdf

import (
	"io"

	"github.com/tsoniclang/tsonic-node-sub000/common/task"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

/* ------------------------------------------------------------------------------------------ */

// scrypt 的默认参数。
const (
	DefaultScryptCost            = 16384
	DefaultScryptBlockSize       = 8
	DefaultScryptParallelization = 1
	DefaultScryptMaxMemory       = 32 << 20

	maxHkdfInfoLength = 1024
	maxKeyLength      = 1<<31 - 1
)

func lookupDigest(name string) (*hash.Algorithm, error) {
	alg, err := hash.Lookup(name)
	if err != nil {
		return nil, err
	}
	if alg.XOF() {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "extendable output function %s cannot be used for key derivation", alg.Name)
	}
	return alg, nil
}

func checkKeyLength(keyLen int) error {
	if keyLen < 0 || keyLen > maxKeyLength {
		return errors.NewKindErrorf(errors.KindRangeError, "the derived key length %d is out of range", keyLen)
	}
	return nil
}

/* ------------------------------------------------------------------------------------------ */

// Pbkdf2 按照 RFC 8018 由口令派生 keyLen 字节的密钥。
func Pbkdf2(password, salt []byte, iterations, keyLen int, digest string) ([]byte, error) {
	if iterations < 1 {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "pbkdf2 iterations must be at least 1, but got %d", iterations)
	}
	if err := checkKeyLength(keyLen); err != nil {
		return nil, err
	}
	alg, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, alg.New), nil
}

func Pbkdf2Async(password, salt []byte, iterations, keyLen int, digest string) *task.Task[[]byte] {
	password, salt = clone(password), clone(salt)
	return task.Go(func() ([]byte, error) {
		return Pbkdf2(password, salt, iterations, keyLen, digest)
	})
}

/* ------------------------------------------------------------------------------------------ */

// ScryptOpts 的零值字段使用默认参数。
type ScryptOpts struct {
	Cost            int
	BlockSize       int
	Parallelization int
	MaxMemory       int
}

func (opts *ScryptOpts) normalize() (n, r, p int, err error) {
	n, r, p = DefaultScryptCost, DefaultScryptBlockSize, DefaultScryptParallelization
	maxMemory := DefaultScryptMaxMemory
	if opts != nil {
		if opts.Cost != 0 {
			n = opts.Cost
		}
		if opts.BlockSize != 0 {
			r = opts.BlockSize
		}
		if opts.Parallelization != 0 {
			p = opts.Parallelization
		}
		if opts.MaxMemory != 0 {
			maxMemory = opts.MaxMemory
		}
	}
	if n < 2 || n&(n-1) != 0 {
		return 0, 0, 0, errors.NewKindErrorf(errors.KindRangeError, "scrypt cost %d must be a power of two greater than 1", n)
	}
	if r < 1 || p < 1 {
		return 0, 0, 0, errors.NewKindErrorf(errors.KindRangeError, "invalid scrypt parameters r=%d p=%d", r, p)
	}
	if 128*n*r > maxMemory {
		return 0, 0, 0, errors.NewKindErrorf(errors.KindRangeError, "scrypt memory limit exceeded, %d bytes needed", 128*n*r)
	}
	return n, r, p, nil
}

// Scrypt 按照 RFC 7914 由口令派生 keyLen 字节的密钥，opts 可以是 nil。
func Scrypt(password, salt []byte, keyLen int, opts *ScryptOpts) ([]byte, error) {
	if err := checkKeyLength(keyLen); err != nil {
		return nil, err
	}
	n, r, p, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if keyLen == 0 {
		return []byte{}, nil
	}
	key, err := scrypt.Key(password, salt, n, r, p, keyLen)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "failed deriving scrypt key, the error is \"%s\"", err.Error())
	}
	return key, nil
}

func ScryptAsync(password, salt []byte, keyLen int, opts *ScryptOpts) *task.Task[[]byte] {
	password, salt = clone(password), clone(salt)
	return task.Go(func() ([]byte, error) {
		return Scrypt(password, salt, keyLen, opts)
	})
}

/* ------------------------------------------------------------------------------------------ */

// Hkdf 按照 RFC 5869 派生 keyLen 字节的密钥，keyLen 不能超过摘要长度的 255 倍，info 不能超过 1024 字节。
func Hkdf(digest string, ikm, salt, info []byte, keyLen int) ([]byte, error) {
	alg, err := lookupDigest(digest)
	if err != nil {
		return nil, err
	}
	if err = checkKeyLength(keyLen); err != nil {
		return nil, err
	}
	if keyLen > 255*alg.OutputLength {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "hkdf key length %d exceeds %d for %s", keyLen, 255*alg.OutputLength, alg.Name)
	}
	if len(info) > maxHkdfInfoLength {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "hkdf info must not be longer than %d bytes", maxHkdfInfoLength)
	}
	out := make([]byte, keyLen)
	if _, err = io.ReadFull(hkdf.New(alg.New, ikm, salt, info), out); err != nil {
		return nil, errors.NewErrorf("failed deriving hkdf key, the error is \"%s\"", err.Error())
	}
	return out, nil
}

func HkdfAsync(digest string, ikm, salt, info []byte, keyLen int) *task.Task[[]byte] {
	ikm, salt, info = clone(ikm), clone(salt), clone(info)
	return task.Go(func() ([]byte, error) {
		return Hkdf(digest, ikm, salt, info, keyLen)
	})
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
