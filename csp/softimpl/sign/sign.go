package sign

import (
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	gohash "hash"
	"strings"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	k1ecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/tsoniclang/tsonic-node-sub000/common/codec"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.sign", mlog.DebugLevel)

/* ------------------------------------------------------------------------------------------ */

// engine 是签名与验签共用的流式状态：有摘要算法时增量计算摘要，否则缓存原始消息（EdDSA）。
type engine struct {
	alg       *hash.Algorithm
	digest    gohash.Hash
	message   []byte
	finalized bool
}

// signatureDigest 把 "RSA-SHA256"、"ecdsa-with-SHA256"、"sha256WithRSAEncryption" 等签名算法名称还原为摘要算法名称。
func signatureDigest(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ecdsa-with-")
	n = strings.TrimPrefix(n, "dsa-with-")
	n = strings.TrimSuffix(n, "withrsaencryption")
	return n
}

func newEngine(algorithm string) (engine, error) {
	if algorithm == "" {
		return engine{}, nil
	}
	alg, err := hash.Lookup(signatureDigest(algorithm))
	if err != nil {
		return engine{}, errors.NewKindErrorf(errors.KindUnknownAlgorithm, "invalid digest for signature: \"%s\"", algorithm)
	}
	if alg.XOF() {
		return engine{}, errors.NewKindErrorf(errors.KindUnsupported, "extendable output function %s cannot be used for signatures", alg.Name)
	}
	return engine{alg: alg, digest: alg.New()}, nil
}

// Algorithm 返回规范的摘要算法名称，直接对消息签名时返回空字符串。
func (e *engine) Algorithm() string {
	if e.alg == nil {
		return ""
	}
	return e.alg.Name
}

func (e *engine) update(data []byte) error {
	if e.finalized {
		return errors.NewKindError(errors.KindAlreadyFinalized, "signature engine has already been finalized")
	}
	if e.digest != nil {
		e.digest.Write(data)
	} else {
		e.message = append(e.message, data...)
	}
	return nil
}

func (e *engine) updateString(data, encoding string) error {
	raw, err := codec.DecodeInput(data, encoding)
	if err != nil {
		return err
	}
	return e.update(raw)
}

// finish 返回摘要或原始消息，之后引擎进入终止状态。
func (e *engine) finish() ([]byte, error) {
	if e.finalized {
		return nil, errors.NewKindError(errors.KindAlreadyFinalized, "signature engine has already been finalized")
	}
	e.finalized = true
	if e.digest != nil {
		return e.digest.Sum(nil), nil
	}
	msg := e.message
	e.message = nil
	return msg, nil
}

/* ------------------------------------------------------------------------------------------ */

// Sign 流式签名引擎：可以多次 Update，只能调用一次 Sign。同一个实例不能被多个 goroutine 同时使用。
type Sign struct {
	engine
}

// NewSign algorithm 为摘要算法名称，EdDSA 签名需要传入空字符串。
func NewSign(algorithm string) (*Sign, error) {
	e, err := newEngine(algorithm)
	if err != nil {
		return nil, err
	}
	return &Sign{engine: e}, nil
}

func (s *Sign) Update(data []byte) error {
	return s.update(data)
}

func (s *Sign) UpdateString(data, encoding string) error {
	return s.updateString(data, encoding)
}

// Sign 用私钥对已经写入的数据签名，opts 可以是 nil。
func (s *Sign) Sign(key *keys.KeyObject, opts *Opts) ([]byte, error) {
	payload, err := s.finish()
	if err != nil {
		return nil, err
	}
	return signPayload(key, s.alg, payload, opts)
}

// SignString 签名并按照 encoding 编码签名。
func (s *Sign) SignString(key *keys.KeyObject, opts *Opts, encoding string) (string, error) {
	sig, err := s.Sign(key, opts)
	if err != nil {
		return "", err
	}
	return codec.Encode(sig, encoding)
}

/* ------------------------------------------------------------------------------------------ */

// Verify 流式验签引擎：可以多次 Update，只能调用一次 Verify。
type Verify struct {
	engine
}

func NewVerify(algorithm string) (*Verify, error) {
	e, err := newEngine(algorithm)
	if err != nil {
		return nil, err
	}
	return &Verify{engine: e}, nil
}

func (v *Verify) Update(data []byte) error {
	return v.update(data)
}

func (v *Verify) UpdateString(data, encoding string) error {
	return v.updateString(data, encoding)
}

// Verify 验证签名。签名不匹配或者结构非法时返回 false，只有密钥不可用时才返回错误。
// key 可以是公钥，也可以是私钥（使用其公钥部分）。
func (v *Verify) Verify(key *keys.KeyObject, signature []byte, opts *Opts) (bool, error) {
	payload, err := v.finish()
	if err != nil {
		return false, err
	}
	return verifyPayload(key, v.alg, payload, signature, opts)
}

// VerifyString 按照 encoding 解码签名后验证，签名无法解码时返回错误。
func (v *Verify) VerifyString(key *keys.KeyObject, signature, encoding string, opts *Opts) (bool, error) {
	sig, err := codec.Decode(signature, encoding)
	if err != nil {
		return false, err
	}
	return v.Verify(key, sig, opts)
}

/* ------------------------------------------------------------------------------------------ */

func requireDigest(alg *hash.Algorithm, typ string) error {
	if alg == nil {
		return errors.NewKindErrorf(errors.KindInvalidArgument, "a digest algorithm is required for %s signatures", typ)
	}
	return nil
}

func requireRaw(alg *hash.Algorithm, typ string) error {
	if alg != nil {
		return errors.NewKindErrorf(errors.KindUnsupported, "%s signatures are computed over the raw message, the digest %s must not be set", typ, alg.Name)
	}
	return nil
}

// truncate 取摘要最左边的 size 个字节。
func truncate(digest []byte, size int) []byte {
	if len(digest) > size {
		return digest[:size]
	}
	return digest
}

func signPayload(key *keys.KeyObject, alg *hash.Algorithm, payload []byte, opts *Opts) ([]byte, error) {
	if key == nil {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "invalid key, nil key")
	}
	if key.Type() != keys.TypePrivate {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "signing requires a private key, but got a %s key", key.Type())
	}
	material, err := key.Material()
	if err != nil {
		return nil, err
	}

	switch k := material.(type) {
	case *rsa.PrivateKey:
		if err = requireDigest(alg, keys.RSA); err != nil {
			return nil, err
		}
		return signRSA(k, alg, payload, opts)
	case *ecdsa.PrivateKey:
		if err = requireDigest(alg, keys.EC); err != nil {
			return nil, err
		}
		sig, err := ecdsa.SignASN1(rand.Reader, k, payload)
		if err != nil {
			return nil, errors.NewErrorf("failed signing with ecdsa, the error is \"%s\"", err.Error())
		}
		params := k.Curve.Params()
		if opts.lowS() {
			if sig, err = SignatureToLowS(params.Name, params.N, sig); err != nil {
				return nil, err
			}
		}
		return encodeSignature(sig, (params.BitSize+7)/8, opts)
	case *secp256k1.PrivateKey:
		if err = requireDigest(alg, keys.EC); err != nil {
			return nil, err
		}
		sig := k1ecdsa.Sign(k, truncate(payload, 32))
		return encodeSignature(sig.Serialize(), 32, opts)
	case *dsa.PrivateKey:
		if err = requireDigest(alg, keys.DSA); err != nil {
			return nil, err
		}
		size := (k.Q.BitLen() + 7) / 8
		r, s, err := dsa.Sign(rand.Reader, k, truncate(payload, size))
		if err != nil {
			return nil, errors.NewErrorf("failed signing with dsa, the error is \"%s\"", err.Error())
		}
		sig, err := der.EncodeSignature(r, s)
		if err != nil {
			return nil, err
		}
		return encodeSignature(sig, size, opts)
	case ed25519.PrivateKey:
		if err = requireRaw(alg, keys.Ed25519); err != nil {
			return nil, err
		}
		return ed25519.Sign(k, payload), nil
	case ed448.PrivateKey:
		if err = requireRaw(alg, keys.Ed448); err != nil {
			return nil, err
		}
		return ed448.Sign(k, payload, ""), nil
	default:
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "%s keys cannot be used for signatures", key.AsymmetricKeyType())
	}
}

func signRSA(k *rsa.PrivateKey, alg *hash.Algorithm, digest []byte, opts *Opts) ([]byte, error) {
	var sig []byte
	var err error
	switch opts.padding() {
	case PaddingPKCS1:
		sig, err = rsa.SignPKCS1v15(rand.Reader, k, alg.CryptoHash, digest)
	case PaddingPSS:
		var pss *rsa.PSSOptions
		if pss, err = pssOptions(alg, opts.saltLength()); err != nil {
			return nil, err
		}
		sig, err = rsa.SignPSS(rand.Reader, k, alg.CryptoHash, digest, pss)
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid rsa padding \"%s\"", opts.Padding)
	}
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "failed signing with rsa and %s, the error is \"%s\"", alg.Name, err.Error())
	}
	return sig, nil
}

func pssOptions(alg *hash.Algorithm, saltLength int) (*rsa.PSSOptions, error) {
	opts := &rsa.PSSOptions{Hash: alg.CryptoHash}
	switch {
	case saltLength == 0 || saltLength == SaltLengthMax:
		opts.SaltLength = rsa.PSSSaltLengthAuto
	case saltLength == SaltLengthDigest:
		opts.SaltLength = rsa.PSSSaltLengthEqualsHash
	case saltLength > 0:
		opts.SaltLength = saltLength
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid pss salt length %d", saltLength)
	}
	return opts, nil
}

// encodeSignature 按照 opts 把 DER 签名转换为输出编码，size 为 r 与 s 在 IEEE P1363 编码中各自的长度。
func encodeSignature(sig []byte, size int, opts *Opts) ([]byte, error) {
	switch opts.encoding() {
	case EncodingDER:
		return sig, nil
	case EncodingP1363:
		return der.ToP1363(sig, size)
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid dsaEncoding \"%s\"", opts.DSAEncoding)
	}
}

// decodeSignature 把输入签名还原为 DER 编码，结构非法时返回 false。
func decodeSignature(sig []byte, size int, opts *Opts) ([]byte, bool, error) {
	switch opts.encoding() {
	case EncodingDER:
		return sig, true, nil
	case EncodingP1363:
		if len(sig) != 2*size {
			return nil, false, nil
		}
		out, err := der.FromP1363(sig)
		if err != nil {
			return nil, false, nil
		}
		return out, true, nil
	default:
		return nil, false, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid dsaEncoding \"%s\"", opts.DSAEncoding)
	}
}

/* ------------------------------------------------------------------------------------------ */

func verifyPayload(key *keys.KeyObject, alg *hash.Algorithm, payload, signature []byte, opts *Opts) (bool, error) {
	if key == nil {
		return false, errors.NewKindError(errors.KindInvalidArgument, "invalid key, nil key")
	}
	if key.Type() == keys.TypeSecret {
		return false, errors.NewKindError(errors.KindInvalidArgument, "verifying requires a public or private key, but got a secret key")
	}
	pub, err := keys.CreatePublicKey(key)
	if err != nil {
		return false, err
	}
	material, err := pub.Material()
	if err != nil {
		return false, err
	}

	switch k := material.(type) {
	case *rsa.PublicKey:
		if err = requireDigest(alg, keys.RSA); err != nil {
			return false, err
		}
		switch opts.padding() {
		case PaddingPKCS1:
			return rsa.VerifyPKCS1v15(k, alg.CryptoHash, payload, signature) == nil, nil
		case PaddingPSS:
			pss, err := pssOptions(alg, opts.saltLength())
			if err != nil {
				return false, err
			}
			return rsa.VerifyPSS(k, alg.CryptoHash, payload, signature, pss) == nil, nil
		default:
			return false, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid rsa padding \"%s\"", opts.Padding)
		}
	case *ecdsa.PublicKey:
		if err = requireDigest(alg, keys.EC); err != nil {
			return false, err
		}
		params := k.Curve.Params()
		sig, ok, err := decodeSignature(signature, (params.BitSize+7)/8, opts)
		if !ok {
			return false, err
		}
		if opts.lowS() {
			_, s, err := der.DecodeSignature(sig)
			if err != nil {
				return false, nil
			}
			if low, err := IsLowS(params.Name, s); err != nil || !low {
				return false, nil
			}
		}
		return ecdsa.VerifyASN1(k, payload, sig), nil
	case *secp256k1.PublicKey:
		if err = requireDigest(alg, keys.EC); err != nil {
			return false, err
		}
		sig, ok, err := decodeSignature(signature, 32, opts)
		if !ok {
			return false, err
		}
		parsed, err := k1ecdsa.ParseDERSignature(sig)
		if err != nil {
			return false, nil
		}
		return parsed.Verify(truncate(payload, 32), k), nil
	case *dsa.PublicKey:
		if err = requireDigest(alg, keys.DSA); err != nil {
			return false, err
		}
		size := (k.Q.BitLen() + 7) / 8
		sig, ok, err := decodeSignature(signature, size, opts)
		if !ok {
			return false, err
		}
		r, s, err := der.DecodeSignature(sig)
		if err != nil {
			return false, nil
		}
		return dsa.Verify(k, truncate(payload, size), r, s), nil
	case ed25519.PublicKey:
		if err = requireRaw(alg, keys.Ed25519); err != nil {
			return false, err
		}
		return ed25519.Verify(k, payload, signature), nil
	case ed448.PublicKey:
		if err = requireRaw(alg, keys.Ed448); err != nil {
			return false, err
		}
		return ed448.Verify(k, payload, signature, ""), nil
	default:
		return false, errors.NewKindErrorf(errors.KindUnsupported, "%s keys cannot be used for signatures", key.AsymmetricKeyType())
	}
}

/* ------------------------------------------------------------------------------------------ */

// SignMessage 一次性签名，algorithm 为空时只能使用 EdDSA 密钥。
func SignMessage(algorithm string, data []byte, key *keys.KeyObject, opts *Opts) ([]byte, error) {
	s, err := NewSign(algorithm)
	if err != nil {
		return nil, err
	}
	if err = s.Update(data); err != nil {
		return nil, err
	}
	return s.Sign(key, opts)
}

// VerifyMessage 一次性验签。
func VerifyMessage(algorithm string, data []byte, key *keys.KeyObject, signature []byte, opts *Opts) (bool, error) {
	v, err := NewVerify(algorithm)
	if err != nil {
		return false, err
	}
	if err = v.Update(data); err != nil {
		return false, err
	}
	return v.Verify(key, signature, opts)
}

// SignWithMaterial 从 PEM 或 DER 私钥数据中导入密钥后签名，导入的密钥在返回前被关闭。
// 格式依次尝试 PKCS8、PKCS1 (RSA)、SEC1 (EC) 与 OpenSSL 传统格式的 DSA 私钥。
func SignWithMaterial(algorithm string, data, material, passphrase []byte, opts *Opts) ([]byte, error) {
	key, err := keys.ParsePrivateKey(material, passphrase)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	logger.Debugf("Imported %s private key for signing.", key.AsymmetricKeyType())
	return SignMessage(algorithm, data, key, opts)
}

// VerifyWithMaterial 从 PEM 或 DER 公钥（或私钥、证书）数据中导入密钥后验签。
func VerifyWithMaterial(algorithm string, data, material, signature []byte, opts *Opts) (bool, error) {
	key, err := keys.ParsePublicKey(material)
	if err != nil {
		return false, err
	}
	return VerifyMessage(algorithm, data, key, signature, opts)
}

// SignDigest 对调用方已经计算好的摘要签名，alg 为 nil 时 digest 被视为 EdDSA 的原始消息。
func SignDigest(key *keys.KeyObject, alg *hash.Algorithm, digest []byte, opts *Opts) ([]byte, error) {
	if alg != nil && len(digest) != alg.OutputLength {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "digest length %d does not match %s", len(digest), alg.Name)
	}
	return signPayload(key, alg, digest, opts)
}

// VerifyDigest 是 SignDigest 对应的验签操作。
func VerifyDigest(key *keys.KeyObject, alg *hash.Algorithm, digest, signature []byte, opts *Opts) (bool, error) {
	if alg != nil && len(digest) != alg.OutputLength {
		return false, errors.NewKindErrorf(errors.KindInvalidArgument, "digest length %d does not match %s", len(digest), alg.Name)
	}
	return verifyPayload(key, alg, digest, signature, opts)
}
