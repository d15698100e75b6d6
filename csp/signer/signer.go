package signer

import (
	"crypto"
	"crypto/rsa"
	"io"

	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// signer 把私钥 KeyObject 适配为 crypto.Signer，可以直接交给 x509 与 tls 使用。
type signer struct {
	sk *keys.KeyObject
	pk crypto.PublicKey
}

func NewSigner(key *keys.KeyObject) (crypto.Signer, error) {
	if key == nil {
		return nil, errors.NewError("the private key of the signer must be specified")
	}
	if key.Type() != keys.TypePrivate {
		return nil, errors.NewErrorf("the signer requires a private key, but got a %s key", key.Type())
	}

	pub, err := keys.CreatePublicKey(key)
	if err != nil {
		return nil, err
	}
	material, err := pub.Material()
	if err != nil {
		return nil, err
	}

	return &signer{sk: key, pk: material}, nil
}

func (s *signer) Public() crypto.PublicKey {
	return s.pk
}

// Sign 对摘要签名，opts.HashFunc() 为 0 时 digest 是 EdDSA 的原始消息，*rsa.PSSOptions 选择 PSS 填充。
// 随机数来源固定为 crypto/rand，random 参数被忽略。
func (s *signer) Sign(random io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	var alg *hash.Algorithm
	if opts != nil && opts.HashFunc() != 0 {
		var err error
		if alg, err = hash.LookupCryptoHash(opts.HashFunc()); err != nil {
			return nil, err
		}
	}

	signOpts := &sign.Opts{}
	if alg != nil {
		signOpts.Hash = alg.Name
	}
	if pss, ok := opts.(*rsa.PSSOptions); ok {
		signOpts.Padding = sign.PaddingPSS
		signOpts.SaltLength = pss.SaltLength
	}

	return sign.SignDigest(s.sk, alg, digest, signOpts)
}
