package ecdh

import (
	"math/big"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.ecdh", mlog.DebugLevel)

// ECDH 椭圆曲线 Diffie-Hellman 密钥交换引擎，同一个实例只能在一个 goroutine 中使用。
type ECDH struct {
	curve      *Curve
	privateKey *big.Int
	publicX    *big.Int
	publicY    *big.Int
}

// New 根据曲线名称创建引擎。
func New(curveName string) (*ECDH, error) {
	curve, err := LookupCurve(curveName)
	if err != nil {
		return nil, err
	}
	return &ECDH{curve: curve}, nil
}

func (e *ECDH) Curve() *Curve {
	return e.curve
}

/* ------------------------------------------------------------------------------------------ */

// GenerateKeys 生成新的私钥并返回 format 格式的公钥，format 为空时使用 SPKI DER 格式。
func (e *ECDH) GenerateKeys(format string) ([]byte, error) {
	k, err := RandomScalar(e.curve)
	if err != nil {
		return nil, err
	}
	if err = e.setScalar(k); err != nil {
		return nil, err
	}
	return e.GetPublicKey(format)
}

// RandomScalar 在 [1, n-1] 中均匀地选取一个私钥标量。
func RandomScalar(curve *Curve) (*big.Int, error) {
	n := curve.params.N
	size := curve.OrderSize()
	excess := uint(size*8 - n.BitLen())
	for {
		raw, err := utils.GetRandomBytes(size)
		if err != nil {
			return nil, errors.NewErrorf("failed generating ecdh private key, the error is \"%s\"", err.Error())
		}
		raw[0] &= 0xff >> excess
		k := new(big.Int).SetBytes(raw)
		utils.ZeroBytes(raw)
		if k.Sign() > 0 && k.Cmp(n) < 0 {
			return k, nil
		}
	}
}

func (e *ECDH) setScalar(k *big.Int) error {
	x, y, err := e.curve.PublicPoint(k)
	if err != nil {
		return err
	}
	e.privateKey, e.publicX, e.publicY = k, x, y
	return nil
}

// ComputeSecret 用本方私钥与对方公钥计算共享秘密。对方公钥可以是 SPKI DER 容器，也可以是未压缩、压缩或混合格式的点。
func (e *ECDH) ComputeSecret(peerPublicKey []byte) ([]byte, error) {
	if e.privateKey == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "failed computing ecdh secret, the error is \"keys have not been generated\"")
	}
	x, y, err := e.parsePeer(peerPublicKey)
	if err != nil {
		return nil, err
	}
	return e.curve.SharedSecret(e.privateKey, x, y)
}

func (e *ECDH) parsePeer(peer []byte) (*big.Int, *big.Int, error) {
	if len(peer) > 0 && peer[0] == 0x30 {
		point, err := ParseSPKI(e.curve, peer)
		if err != nil {
			return nil, nil, err
		}
		peer = point
	}
	return e.curve.Unmarshal(peer)
}

/* ------------------------------------------------------------------------------------------ */

// GetPublicKey 返回 format 格式的公钥，format 为空时使用 SPKI DER 格式。
func (e *ECDH) GetPublicKey(format string) ([]byte, error) {
	if e.publicX == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "ecdh public key has not been generated")
	}
	return encodePublic(e.curve, e.publicX, e.publicY, format)
}

// GetPrivateKey 返回补齐到阶的字节长度的私钥标量。
func (e *ECDH) GetPrivateKey() ([]byte, error) {
	if e.privateKey == nil {
		return nil, errors.NewKindError(errors.KindNotInitialized, "ecdh private key has not been generated")
	}
	return bigint.ToFixedBytes(e.privateKey, e.curve.OrderSize(), bigint.BigEndian)
}

// SetPrivateKey 导入私钥标量并重新计算公钥。
func (e *ECDH) SetPrivateKey(key []byte) error {
	k := new(big.Int).SetBytes(key)
	if err := e.curve.checkScalar(k); err != nil {
		return err
	}
	return e.setScalar(k)
}

// SetPublicKey 不受支持，密钥交换只由私钥驱动。
func (e *ECDH) SetPublicKey([]byte) error {
	return errors.NewKindError(errors.KindUnsupported, "ecdh setPublicKey is not supported, set the private key instead")
}

/* ------------------------------------------------------------------------------------------ */

// ConvertKey 把公钥在 SPKI、未压缩、压缩与混合格式之间转换。
func ConvertKey(key []byte, curveName, format string) ([]byte, error) {
	curve, err := LookupCurve(curveName)
	if err != nil {
		return nil, err
	}
	if len(key) > 0 && key[0] == 0x30 {
		if key, err = ParseSPKI(curve, key); err != nil {
			return nil, err
		}
	}
	x, y, err := curve.Unmarshal(key)
	if err != nil {
		return nil, err
	}
	return encodePublic(curve, x, y, format)
}

func encodePublic(curve *Curve, x, y *big.Int, format string) ([]byte, error) {
	switch format {
	case "", FormatSPKI:
		return MarshalSPKI(curve, x, y)
	case FormatUncompressed, FormatCompressed, FormatHybrid:
		return curve.Marshal(x, y, format), nil
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid ecdh public key format \"%s\"", format)
	}
}

// MarshalSPKI 把公钥点编码为 id-ecPublicKey 类型的 SPKI 容器。
func MarshalSPKI(curve *Curve, x, y *big.Int) ([]byte, error) {
	if curve.OID() == nil {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "curve %s has no object identifier, spki export is not available", curve.Name())
	}
	params, err := der.MarshalObjectIdentifier(curve.OID())
	if err != nil {
		return nil, err
	}
	return der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEC, Parameters: params}, curve.Marshal(x, y, FormatUncompressed))
}

// ParseSPKI 从 SPKI 容器中取出公钥点，容器中的曲线必须与 curve 一致。
func ParseSPKI(curve *Curve, spki []byte) ([]byte, error) {
	alg, point, err := der.ParseSPKI(spki)
	if err != nil {
		return nil, err
	}
	if !alg.OID.Equal(der.OIDPublicKeyEC) {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "public key algorithm %s is not an elliptic curve key", alg.OID.String())
	}
	oid, err := der.ParseObjectIdentifier(alg.Parameters)
	if err != nil {
		return nil, err
	}
	if curve.OID() == nil || !oid.Equal(curve.OID()) {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "public key curve %s does not match %s", oid.String(), curve.Name())
	}
	return point, nil
}
