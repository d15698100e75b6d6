package keys

import (
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.keys", mlog.DebugLevel)

// KeyType 区分对称密钥、公钥与私钥。
type KeyType string

const (
	TypeSecret  KeyType = "secret"
	TypePublic  KeyType = "public"
	TypePrivate KeyType = "private"
)

// 非对称密钥的算法类型。
const (
	RSA     = "rsa"
	EC      = "ec"
	Ed25519 = "ed25519"
	Ed448   = "ed448"
	DSA     = "dsa"
	DH      = "dh"
	X25519  = "x25519"
)

// DHPublicKey 有限域 Diffie-Hellman 公钥。
type DHPublicKey struct {
	P *big.Int
	G *big.Int
	Y *big.Int
}

// DHPrivateKey 有限域 Diffie-Hellman 私钥。
type DHPrivateKey struct {
	DHPublicKey
	X *big.Int
}

/* ------------------------------------------------------------------------------------------ */

// KeyObject 是对称密钥、公钥与私钥的统一表示，实现了 interfaces.Key。
// 非对称密钥的底层材料保存在 material 中，具体类型由 asymmetricType 决定：
//
//	rsa       *rsa.PublicKey / *rsa.PrivateKey
//	ec        *ecdsa.PublicKey / *ecdsa.PrivateKey，secp256k1 曲线为 *secp256k1.PublicKey / *secp256k1.PrivateKey
//	ed25519   ed25519.PublicKey / ed25519.PrivateKey
//	ed448     ed448.PublicKey / ed448.PrivateKey
//	dsa       *dsa.PublicKey / *dsa.PrivateKey
//	dh        *DHPublicKey / *DHPrivateKey
//	x25519    *ecdh.PublicKey / *ecdh.PrivateKey
type KeyObject struct {
	keyType        KeyType
	asymmetricType string
	secret         []byte
	material       interface{}
	closed         bool
}

func (key *KeyObject) Type() KeyType {
	return key.keyType
}

// AsymmetricKeyType 返回非对称密钥的算法类型，对称密钥返回空字符串。
func (key *KeyObject) AsymmetricKeyType() string {
	return key.asymmetricType
}

// SymmetricKeySize 返回对称密钥的字节长度。
func (key *KeyObject) SymmetricKeySize() (int, error) {
	if err := key.usable(); err != nil {
		return 0, err
	}
	if key.keyType != TypeSecret {
		return 0, errors.NewKindError(errors.KindInvalidArgument, "symmetric key size is only available for secret keys")
	}
	return len(key.secret), nil
}

// Material 返回非对称密钥的底层材料。
func (key *KeyObject) Material() (interface{}, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	if key.keyType == TypeSecret {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "secret keys have no asymmetric material")
	}
	return key.material, nil
}

// SecretBytes 返回对称密钥字节的副本。
func (key *KeyObject) SecretBytes() ([]byte, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	if key.keyType != TypeSecret {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "only secret keys expose raw bytes")
	}
	return append([]byte(nil), key.secret...), nil
}

func (key *KeyObject) usable() error {
	if key == nil {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "nil key object")
	}
	if key.closed {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "the key object has been closed")
	}
	return nil
}

/* ------------------------------------------------------------------------------------------ */

// Bytes 返回密钥的默认 DER 编码：公钥为 SPKI，私钥为 PKCS8，对称密钥为原始字节。
func (key *KeyObject) Bytes() ([]byte, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	switch key.keyType {
	case TypeSecret:
		return append([]byte(nil), key.secret...), nil
	case TypePublic:
		return marshalSPKI(key.material)
	default:
		return marshalPKCS8(key.material)
	}
}

// SKI 对称密钥返回其 SHA-256 摘要；非对称密钥返回公钥编码的 SHA-256 摘要，椭圆曲线公钥取未压缩点。
func (key *KeyObject) SKI() []byte {
	if key.usable() != nil {
		return nil
	}
	var raw []byte
	switch key.keyType {
	case TypeSecret:
		raw = key.secret
	default:
		pub := key.material
		if key.keyType == TypePrivate {
			pub = publicOf(key.material)
		}
		switch pk := pub.(type) {
		case *ecdsa.PublicKey:
			raw = marshalECPoint(pk)
		case *secp256k1.PublicKey:
			raw = pk.SerializeUncompressed()
		default:
			var err error
			if raw, err = marshalSPKI(pub); err != nil {
				return nil
			}
		}
	}
	sum := sha256.Sum256(raw)
	return sum[:]
}

func (key *KeyObject) Symmetric() bool {
	return key.keyType == TypeSecret
}

// Private 对称密钥与私钥都返回 true。
func (key *KeyObject) Private() bool {
	return key.keyType != TypePublic
}

// PublicKey 返回非对称密钥对应的公钥，公钥返回其自身。
func (key *KeyObject) PublicKey() (interfaces.Key, error) {
	pub, err := CreatePublicKey(key)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

/* ------------------------------------------------------------------------------------------ */

// KeyDetails 非对称密钥的参数详情，未使用的字段为零值。
type KeyDetails struct {
	ModulusLength  int
	PublicExponent *big.Int
	DivisorLength  int
	NamedCurve     string
}

// AsymmetricKeyDetails 返回非对称密钥的参数详情。
func (key *KeyObject) AsymmetricKeyDetails() (*KeyDetails, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	if key.keyType == TypeSecret {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "secret keys have no asymmetric key details")
	}
	pub := key.material
	if key.keyType == TypePrivate {
		pub = publicOf(key.material)
	}
	details := &KeyDetails{}
	switch pk := pub.(type) {
	case *rsa.PublicKey:
		details.ModulusLength = pk.N.BitLen()
		details.PublicExponent = big.NewInt(int64(pk.E))
	case *ecdsa.PublicKey:
		details.NamedCurve = curveName(pk.Curve.Params().Name)
	case *secp256k1.PublicKey:
		details.NamedCurve = "secp256k1"
	case *dsa.PublicKey:
		details.ModulusLength = pk.P.BitLen()
		details.DivisorLength = pk.Q.BitLen()
	case *DHPublicKey:
		details.ModulusLength = pk.P.BitLen()
	}
	return details, nil
}

// Equals 判断两个密钥的类型与内容是否相同，对称密钥使用常数时间比较。
func (key *KeyObject) Equals(other *KeyObject) bool {
	if key.usable() != nil || other.usable() != nil {
		return false
	}
	if key.keyType != other.keyType || key.asymmetricType != other.asymmetricType {
		return false
	}
	if key.keyType == TypeSecret {
		return len(key.secret) == len(other.secret) && subtle.ConstantTimeCompare(key.secret, other.secret) == 1
	}
	a, err := key.Bytes()
	if err != nil {
		return false
	}
	b, err := other.Bytes()
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

/* ------------------------------------------------------------------------------------------ */

// Close 立即清零密钥对象持有的秘密材料，之后对此对象的任何使用都会返回错误。重复调用没有副作用。
func (key *KeyObject) Close() error {
	if key == nil || key.closed {
		return nil
	}
	utils.ZeroBytes(key.secret)
	key.secret = nil
	zeroMaterial(key.material)
	key.material = nil
	key.closed = true
	logger.Debugf("Closed %s key object.", key.keyType)
	return nil
}

// Closed 报告 Close 是否已被调用。
func (key *KeyObject) Closed() bool {
	return key.closed
}

func zeroMaterial(material interface{}) {
	switch k := material.(type) {
	case *rsa.PrivateKey:
		k.D.SetInt64(0)
		for _, p := range k.Primes {
			p.SetInt64(0)
		}
		if k.Precomputed.Dp != nil {
			k.Precomputed.Dp.SetInt64(0)
			k.Precomputed.Dq.SetInt64(0)
			k.Precomputed.Qinv.SetInt64(0)
		}
	case *ecdsa.PrivateKey:
		k.D.SetInt64(0)
	case *secp256k1.PrivateKey:
		k.Zero()
	case ed25519.PrivateKey:
		utils.ZeroBytes(k)
	case ed448.PrivateKey:
		utils.ZeroBytes(k)
	case *dsa.PrivateKey:
		k.X.SetInt64(0)
	case *DHPrivateKey:
		k.X.SetInt64(0)
	case *ecdh.PrivateKey:
		// 标准库不暴露内部缓冲区，只能丢弃引用。
	}
}
