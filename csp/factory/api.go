package factory

import (
	"strings"
	"time"

	"github.com/tsoniclang/tsonic-node-sub000/common/task"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/cipher"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/dh"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/ecdh"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/kdf"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// 以下函数使用默认的提供者创建流式引擎。

func CreateHash(algorithm string, opts ...hash.Option) (*hash.Hash, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateHash(algorithm, opts...)
}

// CreateHmac key 可以是 []byte、string 或者对称密钥的 *keys.KeyObject。
func CreateHmac(algorithm string, key interface{}) (*hash.Hmac, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateHmac(algorithm, key)
}

func CreateCipheriv(algorithm string, key interface{}, iv []byte, opts ...cipher.Option) (*cipher.Cipher, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateCipheriv(algorithm, key, iv, opts...)
}

func CreateDecipheriv(algorithm string, key interface{}, iv []byte, opts ...cipher.Option) (*cipher.Cipher, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateDecipheriv(algorithm, key, iv, opts...)
}

func CreateSign(algorithm string) (*sign.Sign, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateSign(algorithm)
}

func CreateVerify(algorithm string) (*sign.Verify, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateVerify(algorithm)
}

// CreateDiffieHellman 生成 primeLength 位的素数，generator 为 0 时使用 2。
func CreateDiffieHellman(primeLength, generator int) (*dh.DiffieHellman, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateDiffieHellman(primeLength, generator)
}

func CreateDiffieHellmanWithPrime(prime, generator []byte) (*dh.DiffieHellman, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateDiffieHellmanWithPrime(prime, generator)
}

func CreateDiffieHellmanGroup(name string) (*dh.DiffieHellman, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateDiffieHellmanGroup(name)
}

func CreateECDH(curve string) (*ecdh.ECDH, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl.CreateECDH(curve)
}

/* ------------------------------------------------------------------------------------------ */

// CreateSecretKey key 为 string 时按照 encoding 解码，encoding 为空时按 utf8 处理。
func CreateSecretKey(key interface{}, encoding string) (*keys.KeyObject, error) {
	return importKey(key, &keys.KeyImportOpts{Kind: keys.ImportSecret, Encoding: encoding, Temporary: true})
}

// CreatePublicKey key 可以是 PEM 或 DER 数据、私钥对象、证书或者标准库的公钥类型。
func CreatePublicKey(key interface{}) (*keys.KeyObject, error) {
	return importKey(key, &keys.KeyImportOpts{Kind: keys.ImportPublic, Temporary: true})
}

// CreatePrivateKey passphrase 用于解密加密的 PKCS8 容器。
func CreatePrivateKey(key interface{}, passphrase []byte) (*keys.KeyObject, error) {
	return importKey(key, &keys.KeyImportOpts{Kind: keys.ImportPrivate, Passphrase: passphrase, Temporary: true})
}

func importKey(raw interface{}, opts *keys.KeyImportOpts) (*keys.KeyObject, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	key, err := impl.KeyImport(raw, opts)
	if err != nil {
		return nil, err
	}
	return key.(*keys.KeyObject), nil
}

// GenerateKeyPair 生成 typ 类型的密钥对，opts 中未给出的模数长度与曲线取自提供者的配置。
func GenerateKeyPair(typ string, opts *keys.KeyPairOpts) (*keys.KeyPair, error) {
	switch strings.ToLower(typ) {
	case "aes", "hmac":
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "\"%s\" is a secret key type, use GenerateKey instead", typ)
	}
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	key, err := impl.KeyGen(&keys.KeyGenOpts{Type: typ, Pair: opts, Temporary: true})
	if err != nil {
		return nil, err
	}
	private := key.(*keys.KeyObject)
	public, err := keys.CreatePublicKey(private)
	if err != nil {
		return nil, err
	}
	return &keys.KeyPair{Public: public, Private: private}, nil
}

func GenerateKeyPairAsync(typ string, opts *keys.KeyPairOpts) *task.Task[*keys.KeyPair] {
	return goAsync("generate_key_pair", func() (*keys.KeyPair, error) {
		return GenerateKeyPair(typ, opts)
	})
}

// GenerateKey 生成 aes 或 hmac 对称密钥，aes 的 length 为 0 时使用配置中的长度。
func GenerateKey(typ string, length int) (*keys.KeyObject, error) {
	switch strings.ToLower(typ) {
	case "aes", "hmac":
	default:
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown secret key type \"%s\"", typ)
	}
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	key, err := impl.KeyGen(&keys.KeyGenOpts{Type: typ, Length: length, Temporary: true})
	if err != nil {
		return nil, err
	}
	return key.(*keys.KeyObject), nil
}

func GenerateKeyAsync(typ string, length int) *task.Task[*keys.KeyObject] {
	return goAsync("generate_key", func() (*keys.KeyObject, error) {
		return GenerateKey(typ, length)
	})
}

// DiffieHellman 使用 ec、x25519 或 dh 私钥与对方的公钥计算共享秘密。
func DiffieHellman(privateKey, publicKey *keys.KeyObject) ([]byte, error) {
	return keys.DiffieHellman(privateKey, publicKey)
}

/* ------------------------------------------------------------------------------------------ */

// Sign 一次性签名，algorithm 为空时（EdDSA）直接对消息签名。
func Sign(algorithm string, data []byte, key *keys.KeyObject, opts *sign.Opts) ([]byte, error) {
	return sign.SignMessage(algorithm, data, key, opts)
}

func Verify(algorithm string, data []byte, key *keys.KeyObject, signature []byte, opts *sign.Opts) (bool, error) {
	return sign.VerifyMessage(algorithm, data, key, signature, opts)
}

/* ------------------------------------------------------------------------------------------ */

func GetHashes() []string {
	impl, err := provider()
	if err != nil {
		return nil
	}
	return impl.GetHashes()
}

func GetCiphers() []string {
	impl, err := provider()
	if err != nil {
		return nil
	}
	return impl.GetCiphers()
}

func GetCurves() []string {
	impl, err := provider()
	if err != nil {
		return nil
	}
	return impl.GetCurves()
}

/* ------------------------------------------------------------------------------------------ */

func RandomBytes(size int) ([]byte, error) {
	return utils.GetRandomBytes(size)
}

func RandomBytesAsync(size int) *task.Task[[]byte] {
	return goAsync("random_bytes", func() ([]byte, error) {
		return utils.GetRandomBytes(size)
	})
}

// RandomInt 返回 [min, max) 区间内均匀分布的随机整数。
func RandomInt(min, max int64) (int64, error) {
	return utils.RandomInt(min, max)
}

func RandomUUID() (string, error) {
	return utils.RandomUUID()
}

// TimingSafeEqual 长度不同时返回 false，否则以常数时间比较。
func TimingSafeEqual(a, b []byte) bool {
	return utils.TimingSafeEqual(a, b)
}

/* ------------------------------------------------------------------------------------------ */

func Pbkdf2(password, salt []byte, iterations, keyLen int, digest string) ([]byte, error) {
	return kdf.Pbkdf2(password, salt, iterations, keyLen, digest)
}

func Pbkdf2Async(password, salt []byte, iterations, keyLen int, digest string) *task.Task[[]byte] {
	return goAsync("pbkdf2", func() ([]byte, error) {
		return kdf.Pbkdf2(password, salt, iterations, keyLen, digest)
	})
}

func Scrypt(password, salt []byte, keyLen int, opts *kdf.ScryptOpts) ([]byte, error) {
	return kdf.Scrypt(password, salt, keyLen, opts)
}

func ScryptAsync(password, salt []byte, keyLen int, opts *kdf.ScryptOpts) *task.Task[[]byte] {
	return goAsync("scrypt", func() ([]byte, error) {
		return kdf.Scrypt(password, salt, keyLen, opts)
	})
}

func Hkdf(digest string, ikm, salt, info []byte, keyLen int) ([]byte, error) {
	return kdf.Hkdf(digest, ikm, salt, info, keyLen)
}

func HkdfAsync(digest string, ikm, salt, info []byte, keyLen int) *task.Task[[]byte] {
	return goAsync("hkdf", func() ([]byte, error) {
		return kdf.Hkdf(digest, ikm, salt, info, keyLen)
	})
}

/* ------------------------------------------------------------------------------------------ */

func GeneratePrime(bits int, safe bool) ([]byte, error) {
	return dh.GeneratePrime(bits, safe)
}

func GeneratePrimeAsync(bits int, safe bool) *task.Task[[]byte] {
	return goAsync("generate_prime", func() ([]byte, error) {
		return dh.GeneratePrime(bits, safe)
	})
}

// CheckPrime checks 不大于 0 时使用提供者配置中的素性检测轮数。
func CheckPrime(candidate []byte, checks int) bool {
	if checks <= 0 {
		if impl, err := provider(); err == nil {
			checks = impl.Config().PrimeCertainty()
		}
	}
	return dh.CheckPrime(candidate, checks)
}

/* ------------------------------------------------------------------------------------------ */

// goAsync 在默认工作池上执行 fn，并把耗时记录到默认提供者的度量指标中。
func goAsync[T any](operation string, fn func() (T, error)) *task.Task[T] {
	impl, err := provider()
	if err != nil {
		var zero T
		return task.Resolved(zero, err)
	}
	return task.Go(func() (T, error) {
		start := time.Now()
		defer func() {
			impl.TaskFinished(operation, time.Since(start))
		}()
		return fn()
	})
}
