package keys

import (
	"crypto/x509"
	"encoding/pem"

	"github.com/tsoniclang/tsonic-node-sub000/common/codec"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"go.step.sm/crypto/pemutil"
)

// PEM 块的类型。
const (
	pemPublicKey           = "PUBLIC KEY"
	pemRSAPublicKey        = "RSA PUBLIC KEY"
	pemCertificate         = "CERTIFICATE"
	pemPrivateKey          = "PRIVATE KEY"
	pemEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	pemRSAPrivateKey       = "RSA PRIVATE KEY"
	pemECPrivateKey        = "EC PRIVATE KEY"
	pemDSAPrivateKey       = "DSA PRIVATE KEY"
)

/* ------------------------------------------------------------------------------------------ */

// NewSecretKey 复制 key 并创建对称密钥对象，空密钥是合法的。
func NewSecretKey(key []byte) *KeyObject {
	return &KeyObject{keyType: TypeSecret, secret: append([]byte{}, key...)}
}

// NewSecretKeyFromString 按照 encoding 解码字符串并创建对称密钥对象，encoding 为空时按 utf8 处理。
func NewSecretKeyFromString(key, encoding string) (*KeyObject, error) {
	raw, err := codec.DecodeInput(key, encoding)
	if err != nil {
		return nil, err
	}
	defer utils.ZeroBytes(raw)
	return NewSecretKey(raw), nil
}

/* ------------------------------------------------------------------------------------------ */

// CreatePublicKey 从私钥对象推导公钥对象，无需重新提供密钥材料；公钥对象原样返回。
func CreatePublicKey(key *KeyObject) (*KeyObject, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	switch key.keyType {
	case TypePublic:
		return key, nil
	case TypePrivate:
		return &KeyObject{keyType: TypePublic, asymmetricType: key.asymmetricType, material: publicOf(key.material)}, nil
	default:
		return nil, errors.NewKindError(errors.KindInvalidArgument, "cannot create a public key from a secret key")
	}
}

// ParsePublicKey 从 PEM 或 DER 数据中导入公钥，支持 SPKI、PKCS1 与 X.509 证书。
// 如果数据是私钥，则导入私钥并推导出对应的公钥。
func ParsePublicKey(data []byte) (*KeyObject, error) {
	if len(data) == 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed parsing public key, the error is \"empty key data\"")
	}
	if utils.IsPEM(data) {
		block, _ := pem.Decode(data)
		switch block.Type {
		case pemPublicKey:
			return wrapPublic(parseSPKI(block.Bytes))
		case pemRSAPublicKey:
			return wrapPublic(x509.ParsePKCS1PublicKey(block.Bytes))
		case pemCertificate:
			return parseCertificate(block.Bytes)
		default:
			priv, err := ParsePrivateKey(data, nil)
			if err != nil {
				return nil, err
			}
			return CreatePublicKey(priv)
		}
	}

	if pub, err := parseSPKI(data); err == nil {
		return wrapPublic(pub, nil)
	}
	if pub, err := x509.ParsePKCS1PublicKey(data); err == nil {
		return wrapPublic(pub, nil)
	}
	if key, err := parseCertificate(data); err == nil {
		return key, nil
	}
	priv, err := ParsePrivateKey(data, nil)
	if err != nil {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed parsing public key, the error is \"unrecognized key format\"")
	}
	return CreatePublicKey(priv)
}

func parseCertificate(raw []byte) (*KeyObject, error) {
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed parsing certificate, the error is \"%s\"", err.Error())
	}
	return FromPublicMaterial(cert.PublicKey)
}

func wrapPublic(material interface{}, err error) (*KeyObject, error) {
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed parsing public key, the error is \"%s\"", err.Error())
	}
	return FromPublicMaterial(material)
}

/* ------------------------------------------------------------------------------------------ */

// ParsePrivateKey 从 PEM 或 DER 数据中导入私钥，支持 PKCS8（包括口令加密的 PKCS8）、PKCS1、SEC1 与 OpenSSL 传统格式的 DSA 私钥。
func ParsePrivateKey(data []byte, passphrase []byte) (*KeyObject, error) {
	if len(data) == 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed parsing private key, the error is \"empty key data\"")
	}
	if utils.IsPEM(data) {
		block, _ := pem.Decode(data)
		material, err := parsePrivatePEM(block, passphrase)
		if err != nil {
			return nil, err
		}
		return FromPrivateMaterial(material)
	}

	parsers := []func([]byte) (interface{}, error){
		parsePKCS8,
		func(raw []byte) (interface{}, error) { return x509.ParsePKCS1PrivateKey(raw) },
		parseSEC1,
		parseDSATraditional,
	}
	for _, parse := range parsers {
		if material, err := parse(data); err == nil {
			return FromPrivateMaterial(material)
		}
	}
	if len(passphrase) > 0 {
		material, err := decryptPKCS8(data, passphrase)
		if err != nil {
			return nil, err
		}
		return FromPrivateMaterial(material)
	}
	return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed parsing private key, the error is \"unrecognized key format\"")
}

func parsePrivatePEM(block *pem.Block, passphrase []byte) (interface{}, error) {
	var material interface{}
	var err error
	switch block.Type {
	case pemPrivateKey:
		material, err = parsePKCS8(block.Bytes)
	case pemEncryptedPrivateKey:
		if len(passphrase) == 0 {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "passphrase required for encrypted key")
		}
		return decryptPKCS8(block.Bytes, passphrase)
	case pemRSAPrivateKey:
		material, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemECPrivateKey:
		material, err = parseSEC1(block.Bytes)
	case pemDSAPrivateKey:
		material, err = parseDSATraditional(block.Bytes)
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "unsupported pem block type \"%s\"", block.Type)
	}
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed parsing %s, the error is \"%s\"", block.Type, err.Error())
	}
	return material, nil
}

func decryptPKCS8(data, passphrase []byte) (interface{}, error) {
	plain, err := pemutil.DecryptPKCS8PrivateKey(data, passphrase)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "bad decrypt, the error is \"%s\"", err.Error())
	}
	defer utils.ZeroBytes(plain)
	return parsePKCS8(plain)
}
