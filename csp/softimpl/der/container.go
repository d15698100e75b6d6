package der

import (
	"encoding/asn1"
	"math/big"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// AlgorithmIdentifier 是 PKCS8 与 SPKI 容器中的算法标识，Parameters 保存参数的原始 DER 编码，可以为空。
type AlgorithmIdentifier struct {
	OID        asn1.ObjectIdentifier
	Parameters []byte
}

var (
	OIDPublicKeyRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OIDPublicKeyEC      = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	OIDPublicKeyDSA     = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	OIDPublicKeyDH      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 3, 1}
	OIDPublicKeyX25519  = asn1.ObjectIdentifier{1, 3, 101, 110}
	OIDPublicKeyEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
	OIDPublicKeyEd448   = asn1.ObjectIdentifier{1, 3, 101, 113}

	OIDCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

func invalidContainer(name, reason string) error {
	return errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed parsing %s container, the error is \"%s\"", name, reason)
}

/* ------------------------------------------------------------------------------------------ */

// ParsePKCS8 定位 PKCS8 PrivateKeyInfo 中的算法标识与私钥字节。
func ParsePKCS8(der []byte) (AlgorithmIdentifier, []byte, error) {
	input := cryptobyte.String(der)
	var info cryptobyte.String
	if !input.ReadASN1(&info, cbasn1.SEQUENCE) || !input.Empty() {
		return AlgorithmIdentifier{}, nil, invalidContainer("pkcs8", "malformed sequence")
	}
	var version int64
	if !info.ReadASN1Integer(&version) || version > 1 {
		return AlgorithmIdentifier{}, nil, invalidContainer("pkcs8", "unsupported version")
	}
	alg, err := readAlgorithm(&info, "pkcs8")
	if err != nil {
		return AlgorithmIdentifier{}, nil, err
	}
	var key cryptobyte.String
	if !info.ReadASN1(&key, cbasn1.OCTET_STRING) {
		return AlgorithmIdentifier{}, nil, invalidContainer("pkcs8", "missing private key")
	}
	return alg, []byte(key), nil
}

// MarshalPKCS8 构造版本为 0 的 PKCS8 PrivateKeyInfo。
func MarshalPKCS8(alg AlgorithmIdentifier, key []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		addAlgorithm(b, alg)
		b.AddASN1OctetString(key)
	})
	return build(&b, "pkcs8")
}

// ParseSPKI 定位 SubjectPublicKeyInfo 中的算法标识与公钥字节。
func ParseSPKI(der []byte) (AlgorithmIdentifier, []byte, error) {
	input := cryptobyte.String(der)
	var info cryptobyte.String
	if !input.ReadASN1(&info, cbasn1.SEQUENCE) || !input.Empty() {
		return AlgorithmIdentifier{}, nil, invalidContainer("spki", "malformed sequence")
	}
	alg, err := readAlgorithm(&info, "spki")
	if err != nil {
		return AlgorithmIdentifier{}, nil, err
	}
	var bits asn1.BitString
	if !info.ReadASN1BitString(&bits) || bits.BitLength%8 != 0 || !info.Empty() {
		return AlgorithmIdentifier{}, nil, invalidContainer("spki", "malformed public key bit string")
	}
	return alg, bits.Bytes, nil
}

// MarshalSPKI 构造 SubjectPublicKeyInfo。
func MarshalSPKI(alg AlgorithmIdentifier, key []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addAlgorithm(b, alg)
		b.AddASN1BitString(key)
	})
	return build(&b, "spki")
}

func readAlgorithm(s *cryptobyte.String, name string) (AlgorithmIdentifier, error) {
	var seq cryptobyte.String
	var alg AlgorithmIdentifier
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) || !seq.ReadASN1ObjectIdentifier(&alg.OID) {
		return AlgorithmIdentifier{}, invalidContainer(name, "malformed algorithm identifier")
	}
	if !seq.Empty() {
		alg.Parameters = append([]byte(nil), seq...)
	}
	return alg, nil
}

func addAlgorithm(b *cryptobyte.Builder, alg AlgorithmIdentifier) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(alg.OID)
		if len(alg.Parameters) != 0 {
			b.AddBytes(alg.Parameters)
		}
	})
}

func build(b *cryptobyte.Builder, name string) ([]byte, error) {
	out, err := b.Bytes()
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed marshaling %s container, the error is \"%s\"", name, err.Error())
	}
	return out, nil
}

/* ------------------------------------------------------------------------------------------ */

// ParseIntegerSequence 解析 SEQUENCE { INTEGER... }，例如 DSA 参数 (p, q, g) 与 DH 参数 (p, g)。
func ParseIntegerSequence(der []byte) ([]*big.Int, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, invalidContainer("integer sequence", "malformed sequence")
	}
	var out []*big.Int
	for !seq.Empty() {
		x := new(big.Int)
		if !seq.ReadASN1Integer(x) {
			return nil, invalidContainer("integer sequence", "malformed integer")
		}
		out = append(out, x)
	}
	return out, nil
}

// MarshalIntegerSequence 编码 SEQUENCE { INTEGER... }。
func MarshalIntegerSequence(xs ...*big.Int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, x := range xs {
			b.AddASN1BigInt(x)
		}
	})
	return build(&b, "integer sequence")
}

// ParseInteger 解析单个 DER INTEGER，用于 DSA/DH 的公钥与私钥。
func ParseInteger(der []byte) (*big.Int, error) {
	input := cryptobyte.String(der)
	x := new(big.Int)
	if !input.ReadASN1Integer(x) || !input.Empty() {
		return nil, invalidContainer("integer", "malformed integer")
	}
	return x, nil
}

// ParseOctetString 解析单个 DER OCTET STRING，用于 EdDSA/X25519 的 PKCS8 私钥。
func ParseOctetString(der []byte) ([]byte, error) {
	input := cryptobyte.String(der)
	var out cryptobyte.String
	if !input.ReadASN1(&out, cbasn1.OCTET_STRING) || !input.Empty() {
		return nil, invalidContainer("octet string", "malformed octet string")
	}
	return []byte(out), nil
}

// MarshalOctetString 编码单个 DER OCTET STRING。
func MarshalOctetString(data []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1OctetString(data)
	return build(&b, "octet string")
}

// MarshalObjectIdentifier 编码单个 DER OBJECT IDENTIFIER，用作算法参数。
func MarshalObjectIdentifier(oid asn1.ObjectIdentifier) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	return build(&b, "object identifier")
}

// ParseObjectIdentifier 解析单个 DER OBJECT IDENTIFIER。
func ParseObjectIdentifier(der []byte) (asn1.ObjectIdentifier, error) {
	input := cryptobyte.String(der)
	var oid asn1.ObjectIdentifier
	if !input.ReadASN1ObjectIdentifier(&oid) || !input.Empty() {
		return nil, invalidContainer("object identifier", "malformed object identifier")
	}
	return oid, nil
}

/* ------------------------------------------------------------------------------------------ */

// MarshalECPrivateKey 构造 SEC1 ECPrivateKey，curve 为空时省略曲线参数（嵌入 PKCS8 时的做法），public 为空时省略公钥。
func MarshalECPrivateKey(private []byte, curve asn1.ObjectIdentifier, public []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1OctetString(private)
		if curve != nil {
			b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(curve)
			})
		}
		if public != nil {
			b.AddASN1(cbasn1.Tag(1).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1BitString(public)
			})
		}
	})
	return build(&b, "sec1")
}

// ParseECPrivateKey 解析 SEC1 ECPrivateKey，返回私钥标量字节与可选的曲线标识。
func ParseECPrivateKey(der []byte) ([]byte, asn1.ObjectIdentifier, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	var version int64
	var private cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(&version) || version != 1 ||
		!seq.ReadASN1(&private, cbasn1.OCTET_STRING) {
		return nil, nil, invalidContainer("sec1", "malformed ec private key")
	}
	var curve asn1.ObjectIdentifier
	var params cryptobyte.String
	var hasParams bool
	if !seq.ReadOptionalASN1(&params, &hasParams, cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, nil, invalidContainer("sec1", "malformed curve parameters")
	}
	if hasParams && !params.ReadASN1ObjectIdentifier(&curve) {
		return nil, nil, invalidContainer("sec1", "curve parameters must be a named curve")
	}
	return []byte(private), curve, nil
}
