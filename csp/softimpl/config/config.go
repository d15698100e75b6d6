package config

import (
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// 引擎参数的默认值。
const (
	DefaultPrimeCertainty = 20
	DefaultAuthTagLength  = 16
	DefaultModulusLength  = 2048
)

// Config 保存软件实现的可调参数，零值不可用，需要通过 NewConfig 创建并调用 SetSecurityLevel。
type Config struct {
	hashName       string
	curveName      string
	aesBitLength   int
	primeCertainty int
	authTagLength  int
	modulusLength  int
}

func NewConfig() *Config {
	return &Config{
		primeCertainty: DefaultPrimeCertainty,
		authTagLength:  DefaultAuthTagLength,
		modulusLength:  DefaultModulusLength,
	}
}

// HashName 返回未指定摘要算法时使用的摘要算法名称。
func (c *Config) HashName() string {
	return c.hashName
}

// CurveName 返回未指定曲线时生成椭圆曲线密钥所用的曲线名称。
func (c *Config) CurveName() string {
	return c.curveName
}

func (c *Config) AESBytesLength() int {
	return c.aesBitLength / 8
}

func (c *Config) PrimeCertainty() int {
	return c.primeCertainty
}

func (c *Config) AuthTagLength() int {
	return c.authTagLength
}

func (c *Config) ModulusLength() int {
	return c.modulusLength
}

// SetSecurityLevel 设置哈希函数的安全级别，securityLevel 可取的值包括 256 和 384，hashFamily 可取的值
// 包括 SHA2 和 SHA3。
//
//	SHA2
//		256：sha256，prime256v1
//		384：sha384，secp384r1
//
//	SHA3
//		256：sha3-256，prime256v1
//		384：sha3-384，secp384r1
func (c *Config) SetSecurityLevel(securityLevel int, hashFamily string) error {
	var err error
	switch hashFamily {
	case "SHA2":
		err = setSecurityLevel(c, securityLevel, "sha256", "sha384")
	case "SHA3":
		err = setSecurityLevel(c, securityLevel, "sha3-256", "sha3-384")
	default:
		err = errors.NewErrorf("the supported hash families contain [SHA2, SHA3], but the provided hash family is \"%s\"", hashFamily)
	}

	return err
}

// SetPrimeCertainty 设置有限域 Diffie-Hellman 参数检查时素性测试的轮数，0 表示不检查。
func (c *Config) SetPrimeCertainty(rounds int) error {
	if rounds < 0 {
		return errors.NewKindErrorf(errors.KindRangeError, "prime certainty must not be negative, but got %d", rounds)
	}
	c.primeCertainty = rounds
	return nil
}

// SetAuthTagLength 设置 GCM 默认的认证标签长度。
func (c *Config) SetAuthTagLength(n int) error {
	switch {
	case n == 4 || n == 8 || (n >= 12 && n <= 16):
		c.authTagLength = n
		return nil
	default:
		return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid authentication tag length %d", n)
	}
}

// SetModulusLength 设置生成 RSA 与 DSA 密钥时默认的模长。
func (c *Config) SetModulusLength(bits int) error {
	if bits < 1024 {
		return errors.NewKindErrorf(errors.KindRangeError, "modulus length %d is too small", bits)
	}
	c.modulusLength = bits
	return nil
}

/* ------------------------------------------------------------------------------------------ */

func setSecurityLevel(c *Config, level int, hash256, hash384 string) error {
	var err error
	switch level {
	case 256:
		c.curveName = "prime256v1"
		c.aesBitLength = 256
		c.hashName = hash256
	case 384:
		c.curveName = "secp384r1"
		c.aesBitLength = 256
		c.hashName = hash384
	default:
		err = errors.NewErrorf("security level contains [256, 384], but the provided security level is \"%d\"", level)
	}
	return err
}
