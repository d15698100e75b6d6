package ecdh

import (
	stdecdh "crypto/ecdh"
	"crypto/elliptic"
	"encoding/asn1"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// CurveParams 描述短 Weierstrass 曲线 y² = x³ + ax + b (mod p)，用于注入底层密码库没有内置的曲线。
type CurveParams struct {
	Name    string
	Aliases []string
	OID     asn1.ObjectIdentifier
	P       *big.Int
	A       *big.Int
	B       *big.Int
	Gx      *big.Int
	Gy      *big.Int
	N       *big.Int
	H       int
}

// Curve 是注册到引擎中的曲线。内置曲线的标量乘法交给 crypto/ecdh、crypto/elliptic 或 decred secp256k1 完成，
// 只有通过 RegisterCurve 注入的曲线使用通用的仿射坐标运算。
type Curve struct {
	params *CurveParams
	mul    multiplier
}

func (c *Curve) Name() string {
	return c.params.Name
}

func (c *Curve) OID() asn1.ObjectIdentifier {
	return c.params.OID
}

func (c *Curve) Params() *CurveParams {
	return c.params
}

// FieldSize 返回域元素的字节长度。
func (c *Curve) FieldSize() int {
	return (c.params.P.BitLen() + 7) / 8
}

// OrderSize 返回私钥标量的字节长度。
func (c *Curve) OrderSize() int {
	return (c.params.N.BitLen() + 7) / 8
}

/* ------------------------------------------------------------------------------------------ */

// IsOnCurve 判断仿射坐标点是否位于曲线上。
func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	p := c.params.P
	if x == nil || y == nil || x.Sign() < 0 || x.Cmp(p) >= 0 || y.Sign() < 0 || y.Cmp(p) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, p)
	return lhs.Cmp(c.rhs(x)) == 0
}

func (c *Curve) rhs(x *big.Int) *big.Int {
	p := c.params.P
	r := new(big.Int).Mul(x, x)
	r.Mul(r, x)
	ax := new(big.Int).Mul(c.params.A, x)
	r.Add(r, ax)
	r.Add(r, c.params.B)
	return r.Mod(r, p)
}

// add 计算两点之和，nil 横坐标表示无穷远点。
func (c *Curve) add(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	if x1 == nil {
		return x2, y2
	}
	if x2 == nil {
		return x1, y1
	}
	p := c.params.P
	if x1.Cmp(x2) == 0 {
		if y1.Cmp(y2) == 0 && y1.Sign() != 0 {
			return c.double(x1, y1)
		}
		return nil, nil
	}
	num := new(big.Int).Sub(y2, y1)
	den := new(big.Int).Sub(x2, x1)
	den.Mod(den, p)
	lambda := num.Mul(num, den.ModInverse(den, p))
	lambda.Mod(lambda, p)
	return c.finish(lambda, x1, y1, x2)
}

func (c *Curve) double(x, y *big.Int) (*big.Int, *big.Int) {
	if x == nil || y.Sign() == 0 {
		return nil, nil
	}
	p := c.params.P
	num := new(big.Int).Mul(x, x)
	num.Mul(num, big.NewInt(3))
	num.Add(num, c.params.A)
	den := new(big.Int).Lsh(y, 1)
	den.Mod(den, p)
	lambda := num.Mul(num, den.ModInverse(den, p))
	lambda.Mod(lambda, p)
	return c.finish(lambda, x, y, x)
}

func (c *Curve) finish(lambda, x1, y1, x2 *big.Int) (*big.Int, *big.Int) {
	p := c.params.P
	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, x1)
	x3.Sub(x3, x2)
	x3.Mod(x3, p)
	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, y1)
	y3.Mod(y3, p)
	return x3, y3
}

// scalarMult 以从高位到低位的倍加法计算 k·(x, y)，只用于注入的曲线。
func (c *Curve) scalarMult(x, y, k *big.Int) (*big.Int, *big.Int) {
	var rx, ry *big.Int
	for i := k.BitLen() - 1; i >= 0; i-- {
		rx, ry = c.double(rx, ry)
		if k.Bit(i) == 1 {
			rx, ry = c.add(rx, ry, x, y)
		}
	}
	return rx, ry
}

/* ------------------------------------------------------------------------------------------ */

// PublicPoint 计算私钥标量 k 对应的公钥点 k·G。
func (c *Curve) PublicPoint(k *big.Int) (*big.Int, *big.Int, error) {
	if err := c.checkScalar(k); err != nil {
		return nil, nil, err
	}
	if c.mul != nil {
		raw, err := bigint.ToFixedBytes(k, c.OrderSize(), bigint.BigEndian)
		if err != nil {
			return nil, nil, err
		}
		return c.mul.publicPoint(c, raw)
	}
	x, y := c.scalarMult(c.params.Gx, c.params.Gy, k)
	if x == nil {
		return nil, nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed deriving public key, the error is \"point at infinity\"")
	}
	return x, y, nil
}

// SharedSecret 计算 k·(x, y) 的横坐标，结果补齐到域元素的长度。
func (c *Curve) SharedSecret(k, x, y *big.Int) ([]byte, error) {
	if err := c.checkScalar(k); err != nil {
		return nil, err
	}
	if !c.IsOnCurve(x, y) {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "public key is not valid for specified curve")
	}
	if c.mul != nil {
		raw, err := bigint.ToFixedBytes(k, c.OrderSize(), bigint.BigEndian)
		if err != nil {
			return nil, err
		}
		return c.mul.sharedSecret(c, raw, x, y)
	}
	sx, _ := c.scalarMult(x, y, k)
	if sx == nil {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed computing ecdh secret, the error is \"point at infinity\"")
	}
	return bigint.ToFixedBytes(sx, c.FieldSize(), bigint.BigEndian)
}

func (c *Curve) checkScalar(k *big.Int) error {
	if k == nil || k.Sign() <= 0 || k.Cmp(c.params.N) >= 0 {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "private key is not valid for specified curve")
	}
	return nil
}

/* ------------------------------------------------------------------------------------------ */

// 公钥点的编码格式。
const (
	FormatSPKI         = "spki"
	FormatUncompressed = "uncompressed"
	FormatCompressed   = "compressed"
	FormatHybrid       = "hybrid"
)

// Marshal 按照 SEC1 的格式编码公钥点。
func (c *Curve) Marshal(x, y *big.Int, format string) []byte {
	size := c.FieldSize()
	xb := bigint.PadLeft(bigint.ToBytes(x, bigint.BigEndian), size)
	switch format {
	case FormatCompressed:
		return append([]byte{0x02 | byte(y.Bit(0))}, xb...)
	case FormatHybrid:
		out := append([]byte{0x06 | byte(y.Bit(0))}, xb...)
		return append(out, bigint.PadLeft(bigint.ToBytes(y, bigint.BigEndian), size)...)
	default:
		out := append([]byte{0x04}, xb...)
		return append(out, bigint.PadLeft(bigint.ToBytes(y, bigint.BigEndian), size)...)
	}
}

// Unmarshal 解析未压缩、压缩或混合格式的公钥点，并检查点是否位于曲线上。
func (c *Curve) Unmarshal(point []byte) (*big.Int, *big.Int, error) {
	size := c.FieldSize()
	invalid := errors.NewKindError(errors.KindInvalidKeyMaterial, "public key is not valid for specified curve")
	if len(point) == 0 {
		return nil, nil, invalid
	}
	var x, y *big.Int
	switch point[0] {
	case 0x04, 0x06, 0x07:
		if len(point) != 1+2*size {
			return nil, nil, invalid
		}
		x = new(big.Int).SetBytes(point[1 : 1+size])
		y = new(big.Int).SetBytes(point[1+size:])
		if point[0] != 0x04 && y.Bit(0) != uint(point[0]&1) {
			return nil, nil, invalid
		}
	case 0x02, 0x03:
		if len(point) != 1+size {
			return nil, nil, invalid
		}
		x = new(big.Int).SetBytes(point[1:])
		if x.Cmp(c.params.P) >= 0 {
			return nil, nil, invalid
		}
		y = bigint.ModSqrt(c.rhs(x), c.params.P)
		if y == nil {
			return nil, nil, invalid
		}
		if y.Bit(0) != uint(point[0]&1) {
			y.Sub(c.params.P, y)
		}
	default:
		return nil, nil, invalid
	}
	if !c.IsOnCurve(x, y) {
		return nil, nil, invalid
	}
	return x, y, nil
}

/* ------------------------------------------------------------------------------------------ */

var (
	curvesMu sync.RWMutex
	curves   = map[string]*Curve{}
	aliases  = map[string]string{}
)

// RegisterCurve 通过显式的曲线参数注入一条新曲线，名称或别名重复、参数不完整或基点不在曲线上时返回错误。
func RegisterCurve(params *CurveParams) error {
	return register(params, nil)
}

func register(params *CurveParams, mul multiplier) error {
	if params == nil || params.Name == "" || params.P == nil || params.A == nil || params.B == nil ||
		params.Gx == nil || params.Gy == nil || params.N == nil {
		return errors.NewKindError(errors.KindInvalidArgument, "failed registering curve, the error is \"incomplete curve parameters\"")
	}
	c := &Curve{params: params, mul: mul}
	if !c.IsOnCurve(params.Gx, params.Gy) {
		return errors.NewKindErrorf(errors.KindInvalidArgument, "failed registering curve %s, the error is \"base point is not on the curve\"", params.Name)
	}
	if params.H == 0 {
		params.H = 1
	}

	curvesMu.Lock()
	defer curvesMu.Unlock()
	names := append([]string{params.Name}, params.Aliases...)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, exists := aliases[key]; exists {
			return errors.NewKindErrorf(errors.KindInvalidArgument, "failed registering curve, the error is \"curve %s already exists\"", name)
		}
	}
	for _, name := range names {
		aliases[strings.ToLower(name)] = params.Name
	}
	curves[params.Name] = c
	logger.Debugf("Registered elliptic curve %s (%d bits).", params.Name, params.P.BitLen())
	return nil
}

// LookupCurve 根据名称或别名查找曲线，名称不区分大小写。
func LookupCurve(name string) (*Curve, error) {
	curvesMu.RLock()
	defer curvesMu.RUnlock()
	canonical, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "invalid ecdh curve name \"%s\"", name)
	}
	return curves[canonical], nil
}

// LookupCurveByOID 根据曲线的对象标识符查找曲线。
func LookupCurveByOID(oid asn1.ObjectIdentifier) (*Curve, error) {
	curvesMu.RLock()
	defer curvesMu.RUnlock()
	for _, c := range curves {
		if c.params.OID != nil && c.params.OID.Equal(oid) {
			return c, nil
		}
	}
	return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown elliptic curve %s", oid.String())
}

// CurveNames 返回所有已注册曲线的规范名称，按字母顺序排列。
func CurveNames() []string {
	curvesMu.RLock()
	defer curvesMu.RUnlock()
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

/* ------------------------------------------------------------------------------------------ */

func hexInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("invalid curve constant " + s)
	}
	return n
}

// Secp256k1 是 SEC 2 定义的 secp256k1 曲线参数。
func Secp256k1() *CurveParams {
	return &CurveParams{
		Name: "secp256k1",
		OID:  der.OIDCurveSecp256k1,
		P:    hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
		A:    big.NewInt(0),
		B:    big.NewInt(7),
		Gx:   hexInt("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
		Gy:   hexInt("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
		N:    hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
		H:    1,
	}
}

func nistParams(curve elliptic.Curve, name string, oid asn1.ObjectIdentifier, aliases ...string) *CurveParams {
	p := curve.Params()
	return &CurveParams{
		Name:    name,
		Aliases: aliases,
		OID:     oid,
		P:       p.P,
		A:       new(big.Int).Sub(p.P, big.NewInt(3)),
		B:       p.B,
		Gx:      p.Gx,
		Gy:      p.Gy,
		N:       p.N,
		H:       1,
	}
}

func init() {
	builtin := []struct {
		params *CurveParams
		mul    multiplier
	}{
		{nistParams(elliptic.P224(), "secp224r1", asn1.ObjectIdentifier{1, 3, 132, 0, 33}, "P-224"), ellipticMultiplier{elliptic.P224()}},
		{nistParams(elliptic.P256(), "prime256v1", asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}, "secp256r1", "P-256"), nativeMultiplier{stdecdh.P256()}},
		{nistParams(elliptic.P384(), "secp384r1", asn1.ObjectIdentifier{1, 3, 132, 0, 34}, "P-384"), nativeMultiplier{stdecdh.P384()}},
		{nistParams(elliptic.P521(), "secp521r1", asn1.ObjectIdentifier{1, 3, 132, 0, 35}, "P-521"), nativeMultiplier{stdecdh.P521()}},
		{Secp256k1(), secp256k1Multiplier{}},
	}
	for _, b := range builtin {
		if err := register(b.params, b.mul); err != nil {
			panic(err)
		}
	}
}
