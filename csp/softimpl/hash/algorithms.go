package hash

import (
	"crypto"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

/* ------------------------------------------------------------------------------------------ */

// Algorithm 描述一个摘要算法。普通摘要算法只设置 New，可扩展输出函数（SHAKE）只设置 NewXOF。
type Algorithm struct {
	Name string

	New func() hash.Hash

	NewXOF func() sha3.ShakeHash

	// OutputLength 对普通摘要算法而言是摘要长度，对可扩展输出函数而言是默认输出长度。
	OutputLength int

	// BlockSize 是压缩函数的分组长度（字节）。
	BlockSize int

	// CryptoHash 是该算法在标准库中的标识，用于 RSA/ECDSA/DSA 签名，没有对应标识时为 0。
	CryptoHash crypto.Hash
}

// XOF 判断该算法是否是可扩展输出函数。
func (a *Algorithm) XOF() bool {
	return a.NewXOF != nil
}

/* ------------------------------------------------------------------------------------------ */

const (
	MD4        = "md4"
	MD5        = "md5"
	SHA1       = "sha1"
	SHA224     = "sha224"
	SHA256     = "sha256"
	SHA384     = "sha384"
	SHA512     = "sha512"
	SHA512_224 = "sha512-224"
	SHA512_256 = "sha512-256"
	SHA3_224   = "sha3-224"
	SHA3_256   = "sha3-256"
	SHA3_384   = "sha3-384"
	SHA3_512   = "sha3-512"
	SHAKE128   = "shake128"
	SHAKE256   = "shake256"
	BLAKE2b512 = "blake2b512"
	BLAKE2s256 = "blake2s256"
	RIPEMD160  = "ripemd160"
)

func mustBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

func mustBlake2s256() hash.Hash {
	h, _ := blake2s.New256(nil)
	return h
}

// Builtin 返回所有内置的摘要算法。
func Builtin() []*Algorithm {
	return []*Algorithm{
		{Name: MD4, New: md4.New, OutputLength: md4.Size, BlockSize: md4.BlockSize, CryptoHash: crypto.MD4},
		{Name: MD5, New: md5.New, OutputLength: md5.Size, BlockSize: md5.BlockSize, CryptoHash: crypto.MD5},
		{Name: SHA1, New: sha1.New, OutputLength: sha1.Size, BlockSize: sha1.BlockSize, CryptoHash: crypto.SHA1},
		{Name: SHA224, New: sha256.New224, OutputLength: sha256.Size224, BlockSize: sha256.BlockSize, CryptoHash: crypto.SHA224},
		{Name: SHA256, New: sha256.New, OutputLength: sha256.Size, BlockSize: sha256.BlockSize, CryptoHash: crypto.SHA256},
		{Name: SHA384, New: sha512.New384, OutputLength: sha512.Size384, BlockSize: sha512.BlockSize, CryptoHash: crypto.SHA384},
		{Name: SHA512, New: sha512.New, OutputLength: sha512.Size, BlockSize: sha512.BlockSize, CryptoHash: crypto.SHA512},
		{Name: SHA512_224, New: sha512.New512_224, OutputLength: sha512.Size224, BlockSize: sha512.BlockSize, CryptoHash: crypto.SHA512_224},
		{Name: SHA512_256, New: sha512.New512_256, OutputLength: sha512.Size256, BlockSize: sha512.BlockSize, CryptoHash: crypto.SHA512_256},
		{Name: SHA3_224, New: sha3.New224, OutputLength: 28, BlockSize: 144, CryptoHash: crypto.SHA3_224},
		{Name: SHA3_256, New: sha3.New256, OutputLength: 32, BlockSize: 136, CryptoHash: crypto.SHA3_256},
		{Name: SHA3_384, New: sha3.New384, OutputLength: 48, BlockSize: 104, CryptoHash: crypto.SHA3_384},
		{Name: SHA3_512, New: sha3.New512, OutputLength: 64, BlockSize: 72, CryptoHash: crypto.SHA3_512},
		{Name: SHAKE128, NewXOF: sha3.NewShake128, OutputLength: 16, BlockSize: 168},
		{Name: SHAKE256, NewXOF: sha3.NewShake256, OutputLength: 32, BlockSize: 136},
		{Name: BLAKE2b512, New: mustBlake2b512, OutputLength: blake2b.Size, BlockSize: blake2b.BlockSize, CryptoHash: crypto.BLAKE2b_512},
		{Name: BLAKE2s256, New: mustBlake2s256, OutputLength: blake2s.Size, BlockSize: blake2s.BlockSize, CryptoHash: crypto.BLAKE2s_256},
		{Name: RIPEMD160, New: ripemd160.New, OutputLength: ripemd160.Size, BlockSize: ripemd160.BlockSize, CryptoHash: crypto.RIPEMD160},
	}
}

var aliases = map[string]string{
	"sha-1":       SHA1,
	"sha-224":     SHA224,
	"sha-256":     SHA256,
	"sha-384":     SHA384,
	"sha-512":     SHA512,
	"sha512/224":  SHA512_224,
	"sha512/256":  SHA512_256,
	"sha-512/224": SHA512_224,
	"sha-512/256": SHA512_256,
	"ripemd":      RIPEMD160,
	"rmd160":      RIPEMD160,
	"ripemd-160":  RIPEMD160,
}

// Normalize 将摘要算法名称规范化：忽略大小写，去掉签名算法名称中的 "rsa-" 前缀，并解析常见别名。
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "rsa-")
	if alias, ok := aliases[n]; ok {
		return alias
	}
	return n
}

/* ------------------------------------------------------------------------------------------ */

// Opts 实现 interfaces.HashOpts，OutputLength 仅对可扩展输出函数有意义，为 0 时使用默认长度。
type Opts struct {
	Name         string
	OutputLength int
}

func (opts *Opts) Algorithm() string {
	return opts.Name
}

/* ------------------------------------------------------------------------------------------ */

var builtinByName = func() map[string]*Algorithm {
	m := make(map[string]*Algorithm)
	for _, alg := range Builtin() {
		m[alg.Name] = alg
	}
	return m
}()

// Lookup 按照规范化后的名称查找内置摘要算法，找不到时返回 UnknownAlgorithm 错误。
func Lookup(name string) (*Algorithm, error) {
	if alg, ok := builtinByName[Normalize(name)]; ok {
		return alg, nil
	}
	return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "digest method not supported: \"%s\"", name)
}

// LookupCryptoHash 按照标准库的 crypto.Hash 标识查找内置摘要算法。
func LookupCryptoHash(h crypto.Hash) (*Algorithm, error) {
	for _, alg := range Builtin() {
		if alg.CryptoHash != 0 && alg.CryptoHash == h {
			return alg, nil
		}
	}
	return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "digest method not supported: \"%s\"", h.String())
}
