package dh

import (
	"crypto/rand"
	"math/big"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.dh", mlog.DebugLevel)

// VerifyError 中各个标志位的含义。
const (
	CheckPNotPrime         = 0x01
	CheckPNotSafePrime     = 0x02
	UnableToCheckGenerator = 0x04
	NotSuitableGenerator   = 0x08
	DefaultPrimeCertainty  = 20
	DefaultGenerator       = 2
	minimumPrimeLengthBits = 2
)

// DiffieHellman 有限域 Diffie-Hellman 密钥交换引擎，同一个实例只能在一个 goroutine 中使用。
type DiffieHellman struct {
	prime       *big.Int
	generator   *big.Int
	privateKey  *big.Int
	publicKey   *big.Int
	verifyError int
}

/* ------------------------------------------------------------------------------------------ */

// New 根据大端字节序的素数与生成元创建引擎，生成元为空时使用 2。
func New(prime, generator []byte) (*DiffieHellman, error) {
	if len(prime) == 0 {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "failed creating diffie-hellman, the error is \"empty prime\"")
	}
	p := bigint.FromBytes(prime, bigint.BigEndian)
	if p.Cmp(big.NewInt(3)) < 0 {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "failed creating diffie-hellman, the error is \"prime %s is too small\"", p.String())
	}
	g := big.NewInt(DefaultGenerator)
	if len(generator) > 0 {
		g = bigint.FromBytes(generator, bigint.BigEndian)
	}
	if g.Cmp(big.NewInt(2)) < 0 {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "failed creating diffie-hellman, the error is \"generator must be at least 2\"")
	}
	return newEngine(p, g, DefaultPrimeCertainty), nil
}

// NewWithPrimeLength 生成一个 bits 位的概率素数并以 generator 为生成元创建引擎。rand.Prime 固定进行 20 轮
// Miller-Rabin 检测，certainty 大于 0 时候选素数还要通过 certainty 轮检测，同一轮数也用于计算 VerifyError。
func NewWithPrimeLength(bits, generator, certainty int) (*DiffieHellman, error) {
	if bits < minimumPrimeLengthBits {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "failed generating diffie-hellman prime, the error is \"prime length %d is too small\"", bits)
	}
	if generator < 2 {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "failed creating diffie-hellman, the error is \"generator %d must be at least 2\"", generator)
	}
	var p *big.Int
	for {
		candidate, err := rand.Prime(rand.Reader, bits)
		if err != nil {
			return nil, errors.NewErrorf("failed generating diffie-hellman prime, the error is \"%s\"", err.Error())
		}
		if certainty <= 0 || candidate.ProbablyPrime(certainty) {
			p = candidate
			break
		}
	}
	logger.Debugf("Generated a %d-bit diffie-hellman prime.", p.BitLen())
	return newEngine(p, big.NewInt(int64(generator)), certainty), nil
}

func newEngine(p, g *big.Int, certainty int) *DiffieHellman {
	dh := &DiffieHellman{prime: p, generator: g}
	if certainty > 0 {
		dh.verifyError = check(p, g, certainty)
	}
	return dh
}

// check 按照 OpenSSL DH_check 的约定计算参数校验标志。
func check(p, g *big.Int, certainty int) int {
	flags := 0
	if !p.ProbablyPrime(certainty) {
		flags |= CheckPNotPrime
	} else {
		q := new(big.Int).Rsh(p, 1)
		if !q.ProbablyPrime(certainty) {
			flags |= CheckPNotSafePrime
		}
	}
	pMinusOne := new(big.Int).Sub(p, big.NewInt(1))
	if g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(pMinusOne) >= 0 {
		flags |= NotSuitableGenerator
	}
	return flags
}

/* ------------------------------------------------------------------------------------------ */

// GenerateKeys 在私钥不存在时生成与素数等长的随机私钥，然后重新计算公钥，返回补齐到素数长度的公钥。
func (dh *DiffieHellman) GenerateKeys() ([]byte, error) {
	if dh.privateKey == nil {
		x, err := dh.randomExponent()
		if err != nil {
			return nil, err
		}
		dh.privateKey = x
	}
	y, err := bigint.ModExp(dh.generator, dh.privateKey, dh.prime)
	if err != nil {
		return nil, err
	}
	dh.publicKey = y
	return dh.GetPublicKey()
}

func (dh *DiffieHellman) randomExponent() (*big.Int, error) {
	raw, err := utils.GetRandomBytes(dh.PrimeSize())
	if err != nil {
		return nil, errors.NewErrorf("failed generating diffie-hellman private key, the error is \"%s\"", err.Error())
	}
	defer utils.ZeroBytes(raw)
	x := bigint.FromBytes(raw, bigint.BigEndian)
	if x.Cmp(dh.prime) >= 0 {
		x.Mod(x, dh.prime)
	}
	if x.Cmp(big.NewInt(2)) < 0 {
		x.SetInt64(2)
	}
	return x, nil
}

// ComputeSecret 用本方私钥与对方公钥计算共享秘密，结果补齐到素数长度。
func (dh *DiffieHellman) ComputeSecret(peerPublicKey []byte) ([]byte, error) {
	if dh.privateKey == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "failed computing diffie-hellman secret, the error is \"keys have not been generated\"")
	}
	y := bigint.FromBytes(peerPublicKey, bigint.BigEndian)
	if err := dh.validatePublic(y); err != nil {
		return nil, err
	}
	z, err := bigint.ModExp(y, dh.privateKey, dh.prime)
	if err != nil {
		return nil, err
	}
	return bigint.ToFixedBytes(z, dh.PrimeSize(), bigint.BigEndian)
}

func (dh *DiffieHellman) validatePublic(y *big.Int) error {
	pMinusOne := new(big.Int).Sub(dh.prime, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinusOne) >= 0 {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "failed computing diffie-hellman secret, the error is \"supplied key is too small or too large\"")
	}
	return nil
}

/* ------------------------------------------------------------------------------------------ */

// SetPrivateKey 设置私钥并据此重新计算公钥。
func (dh *DiffieHellman) SetPrivateKey(key []byte) error {
	x := bigint.FromBytes(key, bigint.BigEndian)
	if x.Sign() == 0 {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "failed setting diffie-hellman private key, the error is \"private key is zero\"")
	}
	y, err := bigint.ModExp(dh.generator, x, dh.prime)
	if err != nil {
		return err
	}
	dh.privateKey = x
	dh.publicKey = y
	return nil
}

// SetPublicKey 直接设置公钥，不与私钥做一致性检查。
func (dh *DiffieHellman) SetPublicKey(key []byte) error {
	y := bigint.FromBytes(key, bigint.BigEndian)
	if y.Sign() == 0 {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "failed setting diffie-hellman public key, the error is \"public key is zero\"")
	}
	dh.publicKey = y
	return nil
}

func (dh *DiffieHellman) GetPrime() []byte {
	return bigint.ToBytes(dh.prime, bigint.BigEndian)
}

func (dh *DiffieHellman) GetGenerator() []byte {
	return bigint.ToBytes(dh.generator, bigint.BigEndian)
}

func (dh *DiffieHellman) GetPublicKey() ([]byte, error) {
	if dh.publicKey == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "diffie-hellman public key has not been generated")
	}
	return bigint.PadLeft(bigint.ToBytes(dh.publicKey, bigint.BigEndian), dh.PrimeSize()), nil
}

func (dh *DiffieHellman) GetPrivateKey() ([]byte, error) {
	if dh.privateKey == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "diffie-hellman private key has not been generated")
	}
	return bigint.ToBytes(dh.privateKey, bigint.BigEndian), nil
}

// PrimeSize 返回素数的字节长度。
func (dh *DiffieHellman) PrimeSize() int {
	return (dh.prime.BitLen() + 7) / 8
}

// VerifyError 返回创建引擎时对参数进行校验得到的标志位，0 表示参数没有问题。
func (dh *DiffieHellman) VerifyError() int {
	return dh.verifyError
}

/* ------------------------------------------------------------------------------------------ */

// GeneratePrime 生成 bits 位的概率素数，safe 为真时生成安全素数 p = 2q + 1。
func GeneratePrime(bits int, safe bool) ([]byte, error) {
	if bits < minimumPrimeLengthBits {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "failed generating prime, the error is \"prime length %d is too small\"", bits)
	}
	if !safe {
		p, err := rand.Prime(rand.Reader, bits)
		if err != nil {
			return nil, errors.NewErrorf("failed generating prime, the error is \"%s\"", err.Error())
		}
		return bigint.ToBytes(p, bigint.BigEndian), nil
	}
	if bits < 3 {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "failed generating safe prime, the error is \"prime length %d is too small\"", bits)
	}
	for {
		q, err := rand.Prime(rand.Reader, bits-1)
		if err != nil {
			return nil, errors.NewErrorf("failed generating safe prime, the error is \"%s\"", err.Error())
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, big.NewInt(1))
		if p.BitLen() == bits && p.ProbablyPrime(DefaultPrimeCertainty) {
			return bigint.ToBytes(p, bigint.BigEndian), nil
		}
	}
}

// CheckPrime 对大端字节序的候选值进行 checks 轮素性检测，checks 不大于 0 时使用默认轮数。
func CheckPrime(candidate []byte, checks int) bool {
	if checks <= 0 {
		checks = DefaultPrimeCertainty
	}
	return bigint.FromBytes(candidate, bigint.BigEndian).ProbablyPrime(checks)
}
