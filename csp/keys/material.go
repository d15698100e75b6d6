package keys

import (
	"crypto/dsa"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	softecdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/ecdh"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// FromPublicMaterial 把底层公钥材料包装为 KeyObject，支持的类型见 KeyObject 的说明。
func FromPublicMaterial(material interface{}) (*KeyObject, error) {
	typ, private, err := classify(material)
	if err != nil {
		return nil, err
	}
	if private {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "expected public key material, but got \"%T\"", material)
	}
	return &KeyObject{keyType: TypePublic, asymmetricType: typ, material: material}, nil
}

// FromPrivateMaterial 把底层私钥材料包装为 KeyObject，之后密钥对象拥有这份材料，Close 会将其清零。
func FromPrivateMaterial(material interface{}) (*KeyObject, error) {
	typ, private, err := classify(material)
	if err != nil {
		return nil, err
	}
	if !private {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "expected private key material, but got \"%T\"", material)
	}
	return &KeyObject{keyType: TypePrivate, asymmetricType: typ, material: material}, nil
}

func classify(material interface{}) (string, bool, error) {
	switch k := material.(type) {
	case *rsa.PublicKey:
		return RSA, false, nil
	case *rsa.PrivateKey:
		return RSA, true, nil
	case *ecdsa.PublicKey:
		return EC, false, checkCurve(k.Curve)
	case *ecdsa.PrivateKey:
		return EC, true, checkCurve(k.Curve)
	case *secp256k1.PublicKey:
		return EC, false, nil
	case *secp256k1.PrivateKey:
		return EC, true, nil
	case ed25519.PublicKey:
		return Ed25519, false, checkLength(len(k), ed25519.PublicKeySize, Ed25519)
	case ed25519.PrivateKey:
		return Ed25519, true, checkLength(len(k), ed25519.PrivateKeySize, Ed25519)
	case ed448.PublicKey:
		return Ed448, false, checkLength(len(k), ed448.PublicKeySize, Ed448)
	case ed448.PrivateKey:
		return Ed448, true, checkLength(len(k), ed448.PrivateKeySize, Ed448)
	case *dsa.PublicKey:
		return DSA, false, nil
	case *dsa.PrivateKey:
		return DSA, true, nil
	case *DHPublicKey:
		return DH, false, nil
	case *DHPrivateKey:
		return DH, true, nil
	case *ecdh.PublicKey:
		if k.Curve() != ecdh.X25519() {
			return "", false, errors.NewKindError(errors.KindUnsupported, "only x25519 keys are supported as ecdh key material, use ecdsa keys for other curves")
		}
		return X25519, false, nil
	case *ecdh.PrivateKey:
		if k.Curve() != ecdh.X25519() {
			return "", false, errors.NewKindError(errors.KindUnsupported, "only x25519 keys are supported as ecdh key material, use ecdsa keys for other curves")
		}
		return X25519, true, nil
	default:
		return "", false, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "unsupported key material \"%T\"", material)
	}
}

func checkCurve(curve elliptic.Curve) error {
	if _, ok := ellipticCurves[curveName(curve.Params().Name)]; !ok {
		return errors.NewKindErrorf(errors.KindUnsupported, "unsupported elliptic curve \"%s\"", curve.Params().Name)
	}
	return nil
}

func checkLength(got, want int, typ string) error {
	if got != want {
		return errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid %s key length %d, expected %d", typ, got, want)
	}
	return nil
}

// publicOf 从私钥材料推导公钥材料，公钥材料原样返回。
func publicOf(material interface{}) interface{} {
	switch k := material.(type) {
	case *rsa.PrivateKey:
		return &k.PublicKey
	case *ecdsa.PrivateKey:
		return &k.PublicKey
	case *secp256k1.PrivateKey:
		return k.PubKey()
	case ed25519.PrivateKey:
		return k.Public().(ed25519.PublicKey)
	case ed448.PrivateKey:
		return append(ed448.PublicKey(nil), k[ed448.SeedSize:]...)
	case *dsa.PrivateKey:
		return &k.PublicKey
	case *DHPrivateKey:
		pub := k.DHPublicKey
		return &pub
	case *ecdh.PrivateKey:
		return k.PublicKey()
	default:
		return material
	}
}

/* ------------------------------------------------------------------------------------------ */

// ellipticCurves 保存 crypto/ecdsa 支持的曲线，键为规范的曲线名称。
var ellipticCurves = map[string]elliptic.Curve{
	"secp224r1":  elliptic.P224(),
	"prime256v1": elliptic.P256(),
	"secp384r1":  elliptic.P384(),
	"secp521r1":  elliptic.P521(),
}

// curveName 把任意曲线名称或别名转换为规范名称，未注册的名称原样返回。
func curveName(name string) string {
	c, err := softecdh.LookupCurve(name)
	if err != nil {
		return name
	}
	return c.Name()
}

func marshalECPoint(pub *ecdsa.PublicKey) []byte {
	size := (pub.Curve.Params().BitSize + 7) / 8
	out := append([]byte{0x04}, bigint.PadLeft(pub.X.Bytes(), size)...)
	return append(out, bigint.PadLeft(pub.Y.Bytes(), size)...)
}

/* ------------------------------------------------------------------------------------------ */

func marshalSPKI(material interface{}) ([]byte, error) {
	var out []byte
	var err error
	switch k := material.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey, *ecdh.PublicKey:
		out, err = x509.MarshalPKIXPublicKey(k)
	case *secp256k1.PublicKey:
		params, perr := der.MarshalObjectIdentifier(der.OIDCurveSecp256k1)
		if perr != nil {
			return nil, perr
		}
		return der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEC, Parameters: params}, k.SerializeUncompressed())
	case ed448.PublicKey:
		return der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEd448}, k)
	case *dsa.PublicKey:
		params, perr := der.MarshalIntegerSequence(k.P, k.Q, k.G)
		if perr != nil {
			return nil, perr
		}
		return der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyDSA, Parameters: params}, der.EncodeInteger(k.Y))
	case *DHPublicKey:
		params, perr := der.MarshalIntegerSequence(k.P, k.G)
		if perr != nil {
			return nil, perr
		}
		return der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyDH, Parameters: params}, der.EncodeInteger(k.Y))
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "cannot encode \"%T\" as spki", material)
	}
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed marshaling spki public key, the error is \"%s\"", err.Error())
	}
	return out, nil
}

func marshalPKCS8(material interface{}) ([]byte, error) {
	var out []byte
	var err error
	switch k := material.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey, *ecdh.PrivateKey:
		out, err = x509.MarshalPKCS8PrivateKey(k)
	case *secp256k1.PrivateKey:
		params, perr := der.MarshalObjectIdentifier(der.OIDCurveSecp256k1)
		if perr != nil {
			return nil, perr
		}
		sec1, perr := der.MarshalECPrivateKey(k.Serialize(), nil, k.PubKey().SerializeUncompressed())
		if perr != nil {
			return nil, perr
		}
		return der.MarshalPKCS8(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEC, Parameters: params}, sec1)
	case ed448.PrivateKey:
		seed, perr := der.MarshalOctetString(k.Seed())
		if perr != nil {
			return nil, perr
		}
		return der.MarshalPKCS8(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEd448}, seed)
	case *dsa.PrivateKey:
		params, perr := der.MarshalIntegerSequence(k.P, k.Q, k.G)
		if perr != nil {
			return nil, perr
		}
		return der.MarshalPKCS8(der.AlgorithmIdentifier{OID: der.OIDPublicKeyDSA, Parameters: params}, der.EncodeInteger(k.X))
	case *DHPrivateKey:
		params, perr := der.MarshalIntegerSequence(k.P, k.G)
		if perr != nil {
			return nil, perr
		}
		return der.MarshalPKCS8(der.AlgorithmIdentifier{OID: der.OIDPublicKeyDH, Parameters: params}, der.EncodeInteger(k.X))
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "cannot encode \"%T\" as pkcs8", material)
	}
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed marshaling pkcs8 private key, the error is \"%s\"", err.Error())
	}
	return out, nil
}

func marshalSEC1(material interface{}) ([]byte, error) {
	switch k := material.(type) {
	case *ecdsa.PrivateKey:
		out, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed marshaling sec1 private key, the error is \"%s\"", err.Error())
		}
		return out, nil
	case *secp256k1.PrivateKey:
		return der.MarshalECPrivateKey(k.Serialize(), der.OIDCurveSecp256k1, k.PubKey().SerializeUncompressed())
	default:
		return nil, errors.NewKindError(errors.KindInvalidArgument, "sec1 encoding is only available for ec private keys")
	}
}

/* ------------------------------------------------------------------------------------------ */

func parseSPKI(raw []byte) (interface{}, error) {
	if pub, err := x509.ParsePKIXPublicKey(raw); err == nil {
		return pub, nil
	}
	alg, key, err := der.ParseSPKI(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case alg.OID.Equal(der.OIDPublicKeyEC):
		oid, err := der.ParseObjectIdentifier(alg.Parameters)
		if err != nil {
			return nil, err
		}
		if !oid.Equal(der.OIDCurveSecp256k1) {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "unsupported elliptic curve %s", oid.String())
		}
		pub, err := secp256k1.ParsePubKey(key)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed parsing secp256k1 public key, the error is \"%s\"", err.Error())
		}
		return pub, nil
	case alg.OID.Equal(der.OIDPublicKeyEd448):
		if len(key) != ed448.PublicKeySize {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid ed448 public key length %d", len(key))
		}
		return ed448.PublicKey(append([]byte(nil), key...)), nil
	case alg.OID.Equal(der.OIDPublicKeyDSA):
		params, err := der.ParseIntegerSequence(alg.Parameters)
		if err != nil || len(params) != 3 {
			return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid dsa parameters")
		}
		y, err := der.ParseInteger(key)
		if err != nil {
			return nil, err
		}
		return &dsa.PublicKey{Parameters: dsa.Parameters{P: params[0], Q: params[1], G: params[2]}, Y: y}, nil
	case alg.OID.Equal(der.OIDPublicKeyDH):
		params, err := der.ParseIntegerSequence(alg.Parameters)
		if err != nil || len(params) < 2 {
			return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid diffie-hellman parameters")
		}
		y, err := der.ParseInteger(key)
		if err != nil {
			return nil, err
		}
		return &DHPublicKey{P: params[0], G: params[1], Y: y}, nil
	default:
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "unsupported public key algorithm %s", alg.OID.String())
	}
}

func parsePKCS8(raw []byte) (interface{}, error) {
	if priv, err := x509.ParsePKCS8PrivateKey(raw); err == nil {
		return priv, nil
	}
	alg, key, err := der.ParsePKCS8(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case alg.OID.Equal(der.OIDPublicKeyEC):
		oid, err := der.ParseObjectIdentifier(alg.Parameters)
		if err != nil {
			return nil, err
		}
		if !oid.Equal(der.OIDCurveSecp256k1) {
			return nil, errors.NewKindErrorf(errors.KindUnsupported, "unsupported elliptic curve %s", oid.String())
		}
		scalar, _, err := der.ParseECPrivateKey(key)
		if err != nil {
			return nil, err
		}
		return newSecp256k1Private(scalar)
	case alg.OID.Equal(der.OIDPublicKeyEd448):
		seed, err := der.ParseOctetString(key)
		if err != nil {
			return nil, err
		}
		if len(seed) != ed448.SeedSize {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid ed448 seed length %d", len(seed))
		}
		return ed448.NewKeyFromSeed(seed), nil
	case alg.OID.Equal(der.OIDPublicKeyDSA):
		params, err := der.ParseIntegerSequence(alg.Parameters)
		if err != nil || len(params) != 3 {
			return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid dsa parameters")
		}
		x, err := der.ParseInteger(key)
		if err != nil {
			return nil, err
		}
		p, q, g := params[0], params[1], params[2]
		return &dsa.PrivateKey{
			PublicKey: dsa.PublicKey{Parameters: dsa.Parameters{P: p, Q: q, G: g}, Y: new(big.Int).Exp(g, x, p)},
			X:         x,
		}, nil
	case alg.OID.Equal(der.OIDPublicKeyDH):
		params, err := der.ParseIntegerSequence(alg.Parameters)
		if err != nil || len(params) < 2 {
			return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid diffie-hellman parameters")
		}
		x, err := der.ParseInteger(key)
		if err != nil {
			return nil, err
		}
		p, g := params[0], params[1]
		return &DHPrivateKey{DHPublicKey: DHPublicKey{P: p, G: g, Y: new(big.Int).Exp(g, x, p)}, X: x}, nil
	default:
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "unsupported private key algorithm %s", alg.OID.String())
	}
}

// parseSEC1 解析 SEC1 ECPrivateKey，NIST 曲线交给 crypto/x509，secp256k1 使用 secp256k1 库。
func parseSEC1(raw []byte) (interface{}, error) {
	if priv, err := x509.ParseECPrivateKey(raw); err == nil {
		return priv, nil
	}
	scalar, oid, err := der.ParseECPrivateKey(raw)
	if err != nil {
		return nil, err
	}
	if oid == nil || !oid.Equal(der.OIDCurveSecp256k1) {
		return nil, errors.NewKindError(errors.KindUnsupported, "unsupported elliptic curve in sec1 private key")
	}
	return newSecp256k1Private(scalar)
}

// parseDSATraditional 解析 OpenSSL 传统格式的 DSA 私钥 SEQUENCE { 0, p, q, g, y, x }。
func parseDSATraditional(raw []byte) (interface{}, error) {
	ints, err := der.ParseIntegerSequence(raw)
	if err != nil {
		return nil, err
	}
	if len(ints) != 6 || ints[0].Sign() != 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid dsa private key structure")
	}
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{Parameters: dsa.Parameters{P: ints[1], Q: ints[2], G: ints[3]}, Y: ints[4]},
		X:         ints[5],
	}, nil
}

func marshalDSATraditional(k *dsa.PrivateKey) ([]byte, error) {
	return der.MarshalIntegerSequence(big.NewInt(0), k.P, k.Q, k.G, k.Y, k.X)
}

func newSecp256k1Private(scalar []byte) (*secp256k1.PrivateKey, error) {
	k := new(big.Int).SetBytes(scalar)
	if k.Sign() == 0 || k.Cmp(secp256k1.S256().Params().N) >= 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid secp256k1 private key scalar")
	}
	return secp256k1.PrivKeyFromBytes(scalar), nil
}
