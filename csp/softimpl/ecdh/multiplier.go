package ecdh

import (
	stdecdh "crypto/ecdh"
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// multiplier 为内置曲线提供由底层密码库实现的标量乘法，k 是按阶长度补齐的大端字节串，
// 调用前已经检查过 k 的范围以及点 (x, y) 位于曲线上。
type multiplier interface {
	publicPoint(c *Curve, k []byte) (*big.Int, *big.Int, error)
	sharedSecret(c *Curve, k []byte, x, y *big.Int) ([]byte, error)
}

/* ------------------------------------------------------------------------------------------ */

// nativeMultiplier 使用 crypto/ecdh 的 NIST 曲线。
type nativeMultiplier struct {
	curve stdecdh.Curve
}

func (m nativeMultiplier) publicPoint(c *Curve, k []byte) (*big.Int, *big.Int, error) {
	priv, err := m.curve.NewPrivateKey(k)
	if err != nil {
		return nil, nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed deriving public key, the error is \"%s\"", err.Error())
	}
	return c.Unmarshal(priv.PublicKey().Bytes())
}

func (m nativeMultiplier) sharedSecret(c *Curve, k []byte, x, y *big.Int) ([]byte, error) {
	priv, err := m.curve.NewPrivateKey(k)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed computing ecdh secret, the error is \"%s\"", err.Error())
	}
	pub, err := m.curve.NewPublicKey(c.Marshal(x, y, FormatUncompressed))
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "public key is not valid for specified curve, the error is \"%s\"", err.Error())
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed computing ecdh secret, the error is \"%s\"", err.Error())
	}
	return secret, nil
}

/* ------------------------------------------------------------------------------------------ */

// ellipticMultiplier 用于 crypto/ecdh 没有提供的 P-224。
type ellipticMultiplier struct {
	curve elliptic.Curve
}

func (m ellipticMultiplier) publicPoint(_ *Curve, k []byte) (*big.Int, *big.Int, error) {
	x, y := m.curve.ScalarBaseMult(k)
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed deriving public key, the error is \"point at infinity\"")
	}
	return x, y, nil
}

func (m ellipticMultiplier) sharedSecret(c *Curve, k []byte, x, y *big.Int) ([]byte, error) {
	sx, sy := m.curve.ScalarMult(x, y, k)
	if sx.Sign() == 0 && sy.Sign() == 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed computing ecdh secret, the error is \"point at infinity\"")
	}
	return bigint.ToFixedBytes(sx, c.FieldSize(), bigint.BigEndian)
}

/* ------------------------------------------------------------------------------------------ */

// secp256k1Multiplier 使用 decred 的 secp256k1 实现。
type secp256k1Multiplier struct{}

func (secp256k1Multiplier) publicPoint(c *Curve, k []byte) (*big.Int, *big.Int, error) {
	priv := secp256k1.PrivKeyFromBytes(k)
	return c.Unmarshal(priv.PubKey().SerializeUncompressed())
}

func (secp256k1Multiplier) sharedSecret(c *Curve, k []byte, x, y *big.Int) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(c.Marshal(x, y, FormatUncompressed))
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "public key is not valid for specified curve, the error is \"%s\"", err.Error())
	}
	return secp256k1.GenerateSharedSecret(secp256k1.PrivKeyFromBytes(k), pub), nil
}
