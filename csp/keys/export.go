package keys

import (
	"crypto/dsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"go.step.sm/crypto/pemutil"
)

// 导出格式与容器类型。
const (
	FormatPEM = "pem"
	FormatDER = "der"

	EncodingPKCS1 = "pkcs1"
	EncodingPKCS8 = "pkcs8"
	EncodingSPKI  = "spki"
	EncodingSEC1  = "sec1"
)

// ExportOpts 密钥导出参数。Format 为空时取 pem，Type 为空时公钥取 spki、私钥取 pkcs8。
// Cipher 与 Passphrase 同时给出时私钥以口令加密的 PKCS8 容器导出。
type ExportOpts struct {
	Format     string
	Type       string
	Cipher     string
	Passphrase []byte
}

// pemCiphers 加密 PKCS8 可用的对称算法。
var pemCiphers = map[string]x509.PEMCipher{
	"aes-128-cbc":  x509.PEMCipherAES128,
	"aes128":       x509.PEMCipherAES128,
	"aes-192-cbc":  x509.PEMCipherAES192,
	"aes192":       x509.PEMCipherAES192,
	"aes-256-cbc":  x509.PEMCipherAES256,
	"aes256":       x509.PEMCipherAES256,
	"des-ede3-cbc": x509.PEMCipher3DES,
	"des3":         x509.PEMCipher3DES,
	"des-cbc":      x509.PEMCipherDES,
}

/* ------------------------------------------------------------------------------------------ */

// Export 按照 opts 导出密钥。opts 为 nil 时公钥导出 SPKI PEM，私钥导出 PKCS8 PEM，对称密钥导出原始字节。
func (key *KeyObject) Export(opts *ExportOpts) ([]byte, error) {
	if err := key.usable(); err != nil {
		return nil, err
	}
	if key.keyType == TypeSecret {
		return append([]byte(nil), key.secret...), nil
	}
	if opts == nil {
		opts = &ExportOpts{}
	}
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatPEM
	}
	if format != FormatPEM && format != FormatDER {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid key export format \"%s\"", opts.Format)
	}
	if key.keyType == TypePublic {
		if opts.Cipher != "" || len(opts.Passphrase) > 0 {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "public keys cannot be exported with a passphrase")
		}
		return key.exportPublic(format, strings.ToLower(opts.Type))
	}
	return key.exportPrivate(format, strings.ToLower(opts.Type), opts.Cipher, opts.Passphrase)
}

func (key *KeyObject) exportPublic(format, typ string) ([]byte, error) {
	var raw []byte
	var blockType string
	var err error
	switch typ {
	case "", EncodingSPKI:
		raw, err = marshalSPKI(key.material)
		blockType = pemPublicKey
	case EncodingPKCS1:
		pub, ok := key.material.(*rsa.PublicKey)
		if !ok {
			return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "pkcs1 export is only available for rsa keys, not %s", key.asymmetricType)
		}
		raw = x509.MarshalPKCS1PublicKey(pub)
		blockType = pemRSAPublicKey
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid public key export type \"%s\"", typ)
	}
	if err != nil {
		return nil, err
	}
	return encodeExport(format, blockType, raw), nil
}

func (key *KeyObject) exportPrivate(format, typ, cipherName string, passphrase []byte) ([]byte, error) {
	encrypt := cipherName != "" || len(passphrase) > 0
	if encrypt && (cipherName == "" || len(passphrase) == 0) {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "cipher and passphrase must be given together")
	}

	var raw []byte
	var blockType string
	var err error
	switch typ {
	case "", EncodingPKCS8:
		raw, err = marshalPKCS8(key.material)
		blockType = pemPrivateKey
	case EncodingPKCS1:
		switch k := key.material.(type) {
		case *rsa.PrivateKey:
			raw = x509.MarshalPKCS1PrivateKey(k)
			blockType = pemRSAPrivateKey
		case *dsa.PrivateKey:
			// DSA 没有 PKCS1 结构，沿用 OpenSSL 的传统格式。
			raw, err = marshalDSATraditional(k)
			blockType = pemDSAPrivateKey
		default:
			return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "pkcs1 export is only available for rsa keys, not %s", key.asymmetricType)
		}
	case EncodingSEC1:
		raw, err = marshalSEC1(key.material)
		blockType = pemECPrivateKey
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid private key export type \"%s\"", typ)
	}
	if err != nil {
		return nil, err
	}
	if !encrypt {
		return encodeExport(format, blockType, raw), nil
	}
	defer utils.ZeroBytes(raw)

	if blockType != pemPrivateKey {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "passphrase encryption is only available for pkcs8 export, not %s", typ)
	}
	alg, ok := pemCiphers[strings.ToLower(cipherName)]
	if !ok {
		return nil, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown cipher \"%s\" for key encryption", cipherName)
	}
	block, err := pemutil.EncryptPKCS8PrivateKey(rand.Reader, raw, passphrase, alg)
	if err != nil {
		return nil, errors.NewErrorf("failed encrypting pkcs8 private key, the error is \"%s\"", err.Error())
	}
	if format == FormatDER {
		return block.Bytes, nil
	}
	return pem.EncodeToMemory(block), nil
}

func encodeExport(format, blockType string, raw []byte) []byte {
	if format == FormatDER {
		return raw
	}
	return utils.DERToPEM(blockType, raw)
}
