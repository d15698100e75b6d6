package keys

import (
	"crypto/x509"
	"strings"

	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// 密钥导入算法的名称。
const (
	ImportSecret  = "SECRET"
	ImportPublic  = "PUBLIC"
	ImportPrivate = "PRIVATE"
)

/* ------------------------------------------------------------------------------------------ */

// KeyGenOpts 描述 CSP.KeyGen 生成的密钥：Type 为 aes、hmac 时生成 Length 位的对称密钥，其余类型生成密钥对并返回私钥。
type KeyGenOpts struct {
	Type      string
	Length    int
	Pair      *KeyPairOpts
	Temporary bool
}

func (opts *KeyGenOpts) Algorithm() string {
	return strings.ToLower(opts.Type)
}

// Ephemeral 如果此方法在调用时返回 true，则生成的密钥不会存储到密钥库中。
func (opts *KeyGenOpts) Ephemeral() bool {
	return opts.Temporary
}

// KeyImportOpts 描述 CSP.KeyImport 导入的密钥，Kind 取 ImportSecret、ImportPublic 或 ImportPrivate。
type KeyImportOpts struct {
	Kind       string
	Encoding   string
	Passphrase []byte
	Temporary  bool
}

func (opts *KeyImportOpts) Algorithm() string {
	return opts.Kind
}

func (opts *KeyImportOpts) Ephemeral() bool {
	return opts.Temporary
}

/* ------------------------------------------------------------------------------------------ */

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// KeyGen opts 必须是 *KeyGenOpts。
func (*Generator) KeyGen(opts interfaces.KeyGenOpts) (interfaces.Key, error) {
	o, ok := opts.(*KeyGenOpts)
	if !ok {
		return nil, errors.NewErrorf("invalid key gen opts, expected *keys.KeyGenOpts, but got \"%T\"", opts)
	}
	switch o.Algorithm() {
	case "aes", "hmac":
		return asKey(GenerateKey(o.Type, o.Length))
	default:
		pair, err := GenerateKeyPair(o.Type, o.Pair)
		if err != nil {
			return nil, err
		}
		return pair.Private, nil
	}
}

/* ------------------------------------------------------------------------------------------ */

type SecretImporter struct{}

func NewSecretImporter() *SecretImporter {
	return &SecretImporter{}
}

// KeyImport raw 可以是 []byte，或者按照 opts 中的编码解读的 string。
func (*SecretImporter) KeyImport(raw interface{}, opts interfaces.KeyImportOpts) (interfaces.Key, error) {
	switch r := raw.(type) {
	case []byte:
		return NewSecretKey(r), nil
	case string:
		var encoding string
		if o, ok := opts.(*KeyImportOpts); ok {
			encoding = o.Encoding
		}
		return asKey(NewSecretKeyFromString(r, encoding))
	default:
		return nil, errors.NewErrorf("invalid raw material, expected bytes or string, but got \"%T\"", raw)
	}
}

/* ------------------------------------------------------------------------------------------ */

type PublicImporter struct{}

func NewPublicImporter() *PublicImporter {
	return &PublicImporter{}
}

// KeyImport raw 可以是 PEM 或 DER 数据、*KeyObject（私钥则推导公钥）、*x509.Certificate 或标准库的公钥类型。
func (*PublicImporter) KeyImport(raw interface{}, opts interfaces.KeyImportOpts) (interfaces.Key, error) {
	switch r := raw.(type) {
	case []byte:
		return asKey(ParsePublicKey(r))
	case string:
		return asKey(ParsePublicKey([]byte(r)))
	case *KeyObject:
		return asKey(CreatePublicKey(r))
	case *x509.Certificate:
		return asKey(FromPublicMaterial(r.PublicKey))
	default:
		return asKey(FromPublicMaterial(raw))
	}
}

/* ------------------------------------------------------------------------------------------ */

type PrivateImporter struct{}

func NewPrivateImporter() *PrivateImporter {
	return &PrivateImporter{}
}

// KeyImport raw 可以是 PEM 或 DER 数据，加密的 PKCS8 需要在 opts 中提供口令；也可以是标准库的私钥类型。
func (*PrivateImporter) KeyImport(raw interface{}, opts interfaces.KeyImportOpts) (interfaces.Key, error) {
	var passphrase []byte
	if o, ok := opts.(*KeyImportOpts); ok {
		passphrase = o.Passphrase
	}
	switch r := raw.(type) {
	case []byte:
		return asKey(ParsePrivateKey(r, passphrase))
	case string:
		return asKey(ParsePrivateKey([]byte(r), passphrase))
	default:
		return asKey(FromPrivateMaterial(raw))
	}
}

// asKey 避免把 nil 的 *KeyObject 包装成非 nil 的接口值。
func asKey(key *KeyObject, err error) (interfaces.Key, error) {
	if err != nil {
		return nil, err
	}
	return key, nil
}
