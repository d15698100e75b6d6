package keys

import (
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"strings"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	softdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/dh"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

const (
	DefaultModulusLength  = 2048
	DefaultPublicExponent = 65537
)

// KeyPairOpts 生成密钥对的参数，各算法只读取与之相关的字段。
//
//	rsa       ModulusLength, PublicExponent
//	ec        NamedCurve
//	dsa       ModulusLength, DivisorLength
//	dh        Group，或 Prime 与 Generator，或 PrimeLength 与 Generator
type KeyPairOpts struct {
	ModulusLength  int
	PublicExponent int
	DivisorLength  int
	NamedCurve     string
	Prime          []byte
	PrimeLength    int
	Generator      int
	Group          string
}

// KeyPair 一对公私钥对象。
type KeyPair struct {
	Public  *KeyObject
	Private *KeyObject
}

/* ------------------------------------------------------------------------------------------ */

// GenerateKeyPair 生成 typ 类型的密钥对，typ 取值为 rsa、ec、ed25519、ed448、dsa、dh 与 x25519。
func GenerateKeyPair(typ string, opts *KeyPairOpts) (*KeyPair, error) {
	if opts == nil {
		opts = &KeyPairOpts{}
	}
	var material interface{}
	var err error
	switch strings.ToLower(typ) {
	case RSA:
		material, err = generateRSA(opts)
	case EC:
		material, err = generateEC(opts)
	case Ed25519:
		_, material, err = ed25519.GenerateKey(rand.Reader)
	case Ed448:
		_, material, err = ed448.GenerateKey(rand.Reader)
	case DSA:
		material, err = generateDSA(opts)
	case DH:
		material, err = generateDH(opts)
	case X25519:
		material, err = ecdh.X25519().GenerateKey(rand.Reader)
	default:
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown key pair type \"%s\"", typ)
	}
	if err != nil {
		if errors.KindOf(err) != errors.KindUnspecified {
			return nil, err
		}
		return nil, errors.NewErrorf("failed generating %s key pair, the error is \"%s\"", typ, err.Error())
	}

	priv, err := FromPrivateMaterial(material)
	if err != nil {
		return nil, err
	}
	pub, err := CreatePublicKey(priv)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Generated %s key pair.", priv.asymmetricType)
	return &KeyPair{Public: pub, Private: priv}, nil
}

func generateRSA(opts *KeyPairOpts) (*rsa.PrivateKey, error) {
	bits := opts.ModulusLength
	if bits == 0 {
		bits = DefaultModulusLength
	}
	if opts.PublicExponent != 0 && opts.PublicExponent != DefaultPublicExponent {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "rsa public exponent %d is not supported, only %d is available", opts.PublicExponent, DefaultPublicExponent)
	}
	if bits < 512 {
		return nil, errors.NewKindErrorf(errors.KindRangeError, "rsa modulus length %d is too small", bits)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

func generateEC(opts *KeyPairOpts) (interface{}, error) {
	if opts.NamedCurve == "" {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "namedCurve is required for ec key pairs")
	}
	name := curveName(opts.NamedCurve)
	if curve, ok := ellipticCurves[name]; ok {
		return ecdsa.GenerateKey(curve, rand.Reader)
	}
	if name == "secp256k1" {
		return secp256k1.GeneratePrivateKey()
	}
	return nil, errors.NewKindErrorf(errors.KindUnsupported, "ec key pairs are not available for curve \"%s\"", opts.NamedCurve)
}

// dsaSizes 支持的 (L, N) 组合。
var dsaSizes = map[[2]int]dsa.ParameterSizes{
	{1024, 160}: dsa.L1024N160,
	{2048, 224}: dsa.L2048N224,
	{2048, 256}: dsa.L2048N256,
	{3072, 256}: dsa.L3072N256,
}

func generateDSA(opts *KeyPairOpts) (*dsa.PrivateKey, error) {
	l := opts.ModulusLength
	if l == 0 {
		l = DefaultModulusLength
	}
	n := opts.DivisorLength
	if n == 0 {
		n = 256
		if l < 2048 {
			n = 160
		}
	}
	sizes, ok := dsaSizes[[2]int{l, n}]
	if !ok {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "dsa parameter sizes L=%d N=%d are not supported", l, n)
	}
	priv := &dsa.PrivateKey{}
	if err := dsa.GenerateParameters(&priv.Parameters, rand.Reader, sizes); err != nil {
		return nil, err
	}
	if err := dsa.GenerateKey(priv, rand.Reader); err != nil {
		return nil, err
	}
	return priv, nil
}

func generateDH(opts *KeyPairOpts) (*DHPrivateKey, error) {
	var engine *softdh.DiffieHellman
	var err error
	switch {
	case opts.Group != "":
		if len(opts.Prime) > 0 || opts.PrimeLength > 0 || opts.Generator != 0 {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "group cannot be combined with prime, primeLength or generator")
		}
		engine, err = softdh.NewGroup(opts.Group)
	case len(opts.Prime) > 0:
		var generator []byte
		if opts.Generator != 0 {
			generator = big.NewInt(int64(opts.Generator)).Bytes()
		}
		engine, err = softdh.New(opts.Prime, generator)
	case opts.PrimeLength > 0:
		generator := opts.Generator
		if generator == 0 {
			generator = softdh.DefaultGenerator
		}
		engine, err = softdh.NewWithPrimeLength(opts.PrimeLength, generator, 0)
	default:
		return nil, errors.NewKindError(errors.KindInvalidArgument, "dh key pairs need a group, a prime or a primeLength")
	}
	if err != nil {
		return nil, err
	}
	if _, err = engine.GenerateKeys(); err != nil {
		return nil, err
	}
	x, err := engine.GetPrivateKey()
	if err != nil {
		return nil, err
	}
	defer utils.ZeroBytes(x)
	y, err := engine.GetPublicKey()
	if err != nil {
		return nil, err
	}
	return &DHPrivateKey{
		DHPublicKey: DHPublicKey{
			P: new(big.Int).SetBytes(engine.GetPrime()),
			G: new(big.Int).SetBytes(engine.GetGenerator()),
			Y: new(big.Int).SetBytes(y),
		},
		X: new(big.Int).SetBytes(x),
	}, nil
}

/* ------------------------------------------------------------------------------------------ */

// GenerateKey 生成 aes 或 hmac 对称密钥，bits 为密钥的位数。
// aes 只接受 128、192 与 256；hmac 接受 8 到 2^31-1，不足一个字节的部分被舍去。
func GenerateKey(typ string, bits int) (*KeyObject, error) {
	switch strings.ToLower(typ) {
	case "aes":
		if bits != 128 && bits != 192 && bits != 256 {
			return nil, errors.NewKindErrorf(errors.KindRangeError, "aes key length must be 128, 192 or 256, but got %d", bits)
		}
	case "hmac":
		if bits < 8 || bits > 1<<31-1 {
			return nil, errors.NewKindErrorf(errors.KindRangeError, "hmac key length %d is out of range", bits)
		}
	default:
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown secret key type \"%s\"", typ)
	}
	raw, err := utils.GetRandomBytes(bits / 8)
	if err != nil {
		return nil, err
	}
	key := NewSecretKey(raw)
	utils.ZeroBytes(raw)
	return key, nil
}
