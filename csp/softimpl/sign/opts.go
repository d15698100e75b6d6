package sign

import "strings"

/* ------------------------------------------------------------------------------------------ */

// RSA 的填充方式。
const (
	PaddingPKCS1 = "pkcs1"
	PaddingPSS   = "pss"
)

// PSS 盐长度的特殊取值，与 OpenSSL 的 RSA_PSS_SALTLEN_* 常量一致，0 表示默认值：签名时取最大长度，验证时自动识别。
const (
	SaltLengthDigest = -1
	SaltLengthMax    = -2
)

// DSA 与 ECDSA 签名的编码方式。
const (
	EncodingDER   = "der"
	EncodingP1363 = "ieee-p1363"
)

// Opts 实现 interfaces.SignerOpts。Hash 为空表示不使用摘要算法，只有 EdDSA 签名可以这样做。
type Opts struct {
	Hash        string
	Padding     string
	SaltLength  int
	DSAEncoding string

	// LowS 为 true 时 ECDSA 签名的 s 被规范化到曲线阶的一半以下。
	LowS bool
}

func (opts *Opts) Algorithm() string {
	return opts.Hash
}

func (opts *Opts) padding() string {
	if opts == nil || opts.Padding == "" {
		return PaddingPKCS1
	}
	return strings.ToLower(opts.Padding)
}

func (opts *Opts) encoding() string {
	if opts == nil || opts.DSAEncoding == "" {
		return EncodingDER
	}
	return strings.ToLower(opts.DSAEncoding)
}

func (opts *Opts) saltLength() int {
	if opts == nil {
		return 0
	}
	return opts.SaltLength
}

func (opts *Opts) lowS() bool {
	return opts != nil && opts.LowS
}
