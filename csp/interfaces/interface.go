package interfaces

import (
	"hash"
)

/* ------------------------------------------------------------------------------------------ */

// CSP 定义密码服务提供者的一次性（非流式）操作接口，流式的引擎由具体实现额外提供。
type CSP interface {
	// KeyGen 根据提供的密钥生成选项，生成一个密钥。
	KeyGen(opts KeyGenOpts) (key Key, err error)

	// KeyImport 给定一个密钥的原始数据，根据此原始数据导入一个密钥。
	KeyImport(raw interface{}, opts KeyImportOpts) (key Key, err error)

	// GetKey 给定密钥的主体标识符，返回此密钥本身。
	GetKey(ski []byte) (key Key, err error)

	// Hash 给定消息，计算此消息的哈希值。
	Hash(msg []byte, opts HashOpts) ([]byte, error)

	// GetHash 根据给定的哈希选项，返回特定的哈希函数。
	GetHash(opts HashOpts) (hash.Hash, error)

	// Sign 给定私钥与消息，计算签名，消息的摘要算法由 opts 指定。
	Sign(key Key, msg []byte, opts SignerOpts) (signature []byte, err error)

	// Verify 给定公钥（或私钥）、签名与消息，验证签名的正确性。
	Verify(key Key, signature []byte, msg []byte, opts SignerOpts) (valid bool, err error)

	// Encrypt 给定对称密钥、明文，计算密文。
	Encrypt(key Key, plaintext []byte, opts EncrypterOpts) (ciphertext []byte, err error)

	// Decrypt 给定对称密钥、密文，计算明文。
	Decrypt(key Key, ciphertext []byte, opts DecrypterOpts) (plaintext []byte, err error)
}

/* ------------------------------------------------------------------------------------------ */

// Key 所有密钥对象都必须实现此接口。
type Key interface {
	// Bytes 返回密钥的默认 DER 编码：公钥为 SPKI，私钥为 PKCS8，对称密钥为原始字节。
	Bytes() ([]byte, error)

	// SKI 返回密钥的主体密钥标识符。
	SKI() []byte

	// Symmetric 如果此密钥是对称密钥，则此方法返回 true，否则返回 false。
	Symmetric() bool

	// Private 如果此密钥是私钥，则此方法返回 true，否则返回 false。
	Private() bool

	// PublicKey 只有非对称密钥才能调用此方法返回公钥。
	PublicKey() (Key, error)
}

/* ------------------------------------------------------------------------------------------ */

type KeyStore interface {
	ReadOnly() bool

	GetKey(ski []byte) (Key, error)

	StoreKey(key Key) error
}

/* ------------------------------------------------------------------------------------------ */

type KeyGenOpts interface {
	// Algorithm 返回密钥生成算法的名称。
	Algorithm() string

	// Ephemeral 如果新生成的密钥不需要存储到密钥库中，则此算法返回 true，否则返回 false。
	Ephemeral() bool
}

/* ------------------------------------------------------------------------------------------ */

type KeyImportOpts interface {
	// Algorithm 返回密钥导入算法的名称。
	Algorithm() string

	// Ephemeral 如果导入的密钥不需要存储到密钥库中，则返回 true，否则返回 false。
	Ephemeral() bool
}

/* ------------------------------------------------------------------------------------------ */

type HashOpts interface {
	// Algorithm 返回哈希算法的名称。
	Algorithm() string
}

/* ------------------------------------------------------------------------------------------ */

type SignerOpts interface {
	// Algorithm 返回签名所用摘要算法的名称，EdDSA 签名不使用摘要算法，可以返回空字符串。
	Algorithm() string
}

/* ------------------------------------------------------------------------------------------ */

type EncrypterOpts interface {
	// Algorithm 返回对称加密算法的名称，例如 aes-256-gcm。
	Algorithm() string
}

/* ------------------------------------------------------------------------------------------ */

type DecrypterOpts interface {
	// Algorithm 返回对称解密算法的名称，例如 aes-256-gcm。
	Algorithm() string
}
