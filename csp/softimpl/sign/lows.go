/*
	ECDSA 签名 (r, s) 与 (r, n-s) 同样有效，签名因此具有延展性。
	把 s 规范化到曲线阶的一半以下可以让每条消息只对应一个签名。
*/

package sign

import (
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

var curveHalfOrders = map[string]*big.Int{
	elliptic.P224().Params().Name: new(big.Int).Rsh(elliptic.P224().Params().N, 1),
	elliptic.P256().Params().Name: new(big.Int).Rsh(elliptic.P256().Params().N, 1),
	elliptic.P384().Params().Name: new(big.Int).Rsh(elliptic.P384().Params().N, 1),
	elliptic.P521().Params().Name: new(big.Int).Rsh(elliptic.P521().Params().N, 1),
	"secp256k1":                   new(big.Int).Rsh(secp256k1.S256().Params().N, 1),
}

// GetCurveHalfOrderAt 返回曲线阶的一半，曲线未知时返回 nil。
func GetCurveHalfOrderAt(curve string) *big.Int {
	half, ok := curveHalfOrders[curve]
	if !ok {
		return nil
	}
	return new(big.Int).Set(half)
}

func IsLowS(curve string, s *big.Int) (bool, error) {
	halfOrder, ok := curveHalfOrders[curve]
	if !ok {
		return false, errors.NewErrorf("curve \"%s\" not recognized", curve)
	}
	return s.Cmp(halfOrder) <= 0, nil
}

// ToLowS 当 s 大于阶的一半时把它替换为 n-s，n 为曲线的阶。
func ToLowS(curve string, n, s *big.Int) (*big.Int, error) {
	lowS, err := IsLowS(curve, s)
	if err != nil {
		return nil, err
	}
	if !lowS {
		return new(big.Int).Sub(n, s), nil
	}
	return s, nil
}

// SignatureToLowS 规范化 DER 编码的签名。
func SignatureToLowS(curve string, n *big.Int, signature []byte) ([]byte, error) {
	r, s, err := der.DecodeSignature(signature)
	if err != nil {
		return nil, err
	}
	if s, err = ToLowS(curve, n, s); err != nil {
		return nil, err
	}
	return der.EncodeSignature(r, s)
}
