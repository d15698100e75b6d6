package tlsca

import (
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
)

/* ------------------------------------------------------------------------------------------ */

const (
	TLS = "TLS"
)

type TLSCAGenOpts struct {
	// Level 目前支持 256 和 384 两个安全级别，椭圆曲线密钥分别使用 prime256v1 与 secp384r1，
	// RSA 密钥分别使用 2048 与 3072 位的模长。
	Level int

	// KeyType 证书密钥的算法类型，可取 ec、rsa 与 ed25519，为空时取 ec。
	KeyType string
}

func (opts *TLSCAGenOpts) SecurityLevel() int {
	return opts.Level
}

func (opts *TLSCAGenOpts) Algorithm() string {
	return TLS
}

func (opts *TLSCAGenOpts) keyType() string {
	if opts.KeyType == "" {
		return keys.EC
	}
	return opts.KeyType
}
