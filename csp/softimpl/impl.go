package softimpl

import (
	"hash"
	"sort"
	"time"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	softcipher "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/cipher"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/config"
	softdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/dh"
	softecdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/ecdh"
	softhash "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.softimpl", mlog.DebugLevel)

/* ------------------------------------------------------------------------------------------ */

// SoftCSPImpl 是软件实现的密码服务提供者。所有注册表以规范化后的算法名称为键，
// 在创建时一次性注册完毕，之后只读，因此可以被多个 goroutine 同时使用。
//
//	KeyGenerators  密钥类型（aes、hmac、rsa、ec ...）
//	KeyImporters   导入类型（SECRET、PUBLIC、PRIVATE）
//	Encrypters     对称加密算法名称
//	Decrypters     对称加密算法名称
//	Signers        非对称密钥类型（rsa、ec、dsa、ed25519、ed448）
//	Verifiers      非对称密钥类型
//	Hashers        摘要算法名称
type SoftCSPImpl struct {
	keyStore interfaces.KeyStore
	conf     *config.Config
	metrics  *Metrics

	KeyGenerators map[string]interfaces.KeyGenerator
	KeyImporters  map[string]interfaces.KeyImporter
	Encrypters    map[string]interfaces.Encrypter
	Decrypters    map[string]interfaces.Decrypter
	Signers       map[string]interfaces.Signer
	Verifiers     map[string]interfaces.Verifier
	Hashers       map[string]interfaces.Hasher

	hashes  map[string]*softhash.Algorithm
	ciphers map[string]*softcipher.Suite
}

func NewSoftCSPImpl(ks interfaces.KeyStore, conf *config.Config, m *Metrics) (*SoftCSPImpl, error) {
	if ks == nil {
		return nil, errors.NewError("invalid key store, nil key store")
	}
	if conf == nil {
		return nil, errors.NewError("invalid config, nil config")
	}
	if m == nil {
		m = NewMetrics(nil)
	}

	impl := &SoftCSPImpl{
		keyStore:      ks,
		conf:          conf,
		metrics:       m,
		KeyGenerators: make(map[string]interfaces.KeyGenerator),
		KeyImporters:  make(map[string]interfaces.KeyImporter),
		Encrypters:    make(map[string]interfaces.Encrypter),
		Decrypters:    make(map[string]interfaces.Decrypter),
		Signers:       make(map[string]interfaces.Signer),
		Verifiers:     make(map[string]interfaces.Verifier),
		Hashers:       make(map[string]interfaces.Hasher),
		hashes:        make(map[string]*softhash.Algorithm),
		ciphers:       make(map[string]*softcipher.Suite),
	}

	return impl, nil
}

func (impl *SoftCSPImpl) Config() *config.Config {
	return impl.conf
}

// TaskFinished 记录一次异步任务的耗时。
func (impl *SoftCSPImpl) TaskFinished(operation string, elapsed time.Duration) {
	impl.metrics.taskFinished(operation, elapsed)
}

/* ------------------------------------------------------------------------------------------ */

func (impl *SoftCSPImpl) KeyGen(opts interfaces.KeyGenOpts) (interfaces.Key, error) {
	if opts == nil {
		return nil, errors.NewError("invalid option, nil option")
	}

	kg, found := impl.KeyGenerators[opts.Algorithm()]
	if !found {
		return nil, impl.metrics.failed("keygen", errors.NewKindErrorf(errors.KindUnknownAlgorithm, "cannot find out the key generator for the algorithm \"%s\"", opts.Algorithm()))
	}

	key, err := kg.KeyGen(impl.withDefaults(opts))
	if err != nil {
		return nil, impl.metrics.failed("keygen", errors.NewKindErrorf(errors.KindOf(err), "failed generating key with algorithm \"%s\", the error is \"%s\"", opts.Algorithm(), err.Error()))
	}
	impl.metrics.KeysGenerated.With("type", opts.Algorithm()).Add(1)

	if !opts.Ephemeral() {
		return key, impl.keyStore.StoreKey(key)
	}

	return key, nil
}

// withDefaults 为 *keys.KeyGenOpts 补全配置中的默认参数，不修改调用方的选项。
func (impl *SoftCSPImpl) withDefaults(opts interfaces.KeyGenOpts) interfaces.KeyGenOpts {
	o, ok := opts.(*keys.KeyGenOpts)
	if !ok {
		return opts
	}
	filled := *o
	pair := &keys.KeyPairOpts{}
	if o.Pair != nil {
		*pair = *o.Pair
	}
	switch o.Algorithm() {
	case "aes":
		if filled.Length == 0 {
			filled.Length = impl.conf.AESBytesLength() * 8
		}
	case keys.RSA, keys.DSA:
		if pair.ModulusLength == 0 {
			pair.ModulusLength = impl.conf.ModulusLength()
		}
	case keys.EC:
		if pair.NamedCurve == "" {
			pair.NamedCurve = impl.conf.CurveName()
		}
	}
	filled.Pair = pair
	return &filled
}

func (impl *SoftCSPImpl) KeyImport(raw interface{}, opts interfaces.KeyImportOpts) (interfaces.Key, error) {
	if raw == nil {
		return nil, errors.NewError("invalid raw material, nil raw material")
	}
	if opts == nil {
		return nil, errors.NewError("invalid option, nil option")
	}

	ki, found := impl.KeyImporters[opts.Algorithm()]
	if !found {
		return nil, impl.metrics.failed("import", errors.NewErrorf("cannot find out the key importer for the algorithm \"%s\"", opts.Algorithm()))
	}

	key, err := ki.KeyImport(raw, opts)
	if err != nil {
		return nil, impl.metrics.failed("import", errors.NewKindErrorf(errors.KindOf(err), "failed importing key with algorithm \"%s\", the error is \"%s\"", opts.Algorithm(), err.Error()))
	}

	if !opts.Ephemeral() {
		return key, impl.keyStore.StoreKey(key)
	}

	return key, nil
}

func (impl *SoftCSPImpl) GetKey(ski []byte) (interfaces.Key, error) {
	return impl.keyStore.GetKey(ski)
}

/* ------------------------------------------------------------------------------------------ */

// hashName 选项为空或者没有给出算法名称时使用配置中的默认摘要算法。
func (impl *SoftCSPImpl) hashName(opts interfaces.HashOpts) string {
	if opts == nil || opts.Algorithm() == "" {
		return impl.conf.HashName()
	}
	return softhash.Normalize(opts.Algorithm())
}

func (impl *SoftCSPImpl) Hash(msg []byte, opts interfaces.HashOpts) ([]byte, error) {
	name := impl.hashName(opts)
	hasher, found := impl.Hashers[name]
	if !found {
		return nil, impl.metrics.failed("hash", errors.NewKindErrorf(errors.KindUnknownAlgorithm, "cannot find out the hash function \"%s\"", name))
	}

	digest, err := hasher.Hash(msg, opts)
	if err != nil {
		return nil, impl.metrics.failed("hash", err)
	}

	return digest, nil
}

func (impl *SoftCSPImpl) GetHash(opts interfaces.HashOpts) (hash.Hash, error) {
	name := impl.hashName(opts)
	hasher, found := impl.Hashers[name]
	if !found {
		return nil, impl.metrics.failed("hash", errors.NewKindErrorf(errors.KindUnknownAlgorithm, "cannot find out the hash function \"%s\"", name))
	}

	return hasher.GetHash(opts)
}

/* ------------------------------------------------------------------------------------------ */

func asymmetricType(key interfaces.Key) (string, error) {
	k, ok := key.(*keys.KeyObject)
	if !ok || k == nil {
		return "", errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid key, expected *keys.KeyObject, but got \"%T\"", key)
	}
	return k.AsymmetricKeyType(), nil
}

// Sign 对消息签名，摘要算法由 opts 给出，opts 为 nil 时 RSA、ECDSA 与 DSA 使用配置中的默认摘要算法。
func (impl *SoftCSPImpl) Sign(key interfaces.Key, msg []byte, opts interfaces.SignerOpts) ([]byte, error) {
	if key == nil {
		return nil, errors.NewErrorf("invalid key, nil key")
	}

	typ, err := asymmetricType(key)
	if err != nil {
		return nil, err
	}
	signer, found := impl.Signers[typ]
	if !found {
		return nil, impl.metrics.failed("sign", errors.NewKindErrorf(errors.KindUnsupported, "cannot find out the signer for the key \"%s\"", typ))
	}

	sig, err := signer.Sign(key, msg, impl.signerOpts(typ, opts))
	return sig, impl.metrics.failed("sign", err)
}

func (impl *SoftCSPImpl) Verify(key interfaces.Key, sig, msg []byte, opts interfaces.SignerOpts) (bool, error) {
	if key == nil {
		return false, errors.NewErrorf("invalid key, nil key")
	}

	if len(sig) == 0 {
		return false, errors.NewError("invalid signature, nil signature")
	}

	typ, err := asymmetricType(key)
	if err != nil {
		return false, err
	}
	verifier, found := impl.Verifiers[typ]
	if !found {
		return false, impl.metrics.failed("verify", errors.NewKindErrorf(errors.KindUnsupported, "cannot find out the verifier for the key \"%s\"", typ))
	}

	valid, err := verifier.Verify(key, sig, msg, impl.signerOpts(typ, opts))
	return valid, impl.metrics.failed("verify", err)
}

func (impl *SoftCSPImpl) signerOpts(typ string, opts interfaces.SignerOpts) interfaces.SignerOpts {
	if opts != nil || typ == keys.Ed25519 || typ == keys.Ed448 {
		return opts
	}
	return &sign.Opts{Hash: impl.conf.HashName()}
}

/* ------------------------------------------------------------------------------------------ */

func cipherName(opts interface{ Algorithm() string }) string {
	if opts == nil {
		return ""
	}
	return softcipher.Normalize(opts.Algorithm())
}

// Encrypt 对称加密，算法由 opts 给出，AEAD 模式没有指定认证标签长度时使用配置中的默认长度。
func (impl *SoftCSPImpl) Encrypt(key interfaces.Key, plaintext []byte, opts interfaces.EncrypterOpts) ([]byte, error) {
	if key == nil {
		return nil, errors.NewErrorf("invalid key, nil key")
	}
	if opts == nil {
		return nil, errors.NewError("invalid option, nil option")
	}

	name := cipherName(opts)
	encrypter, found := impl.Encrypters[name]
	if !found {
		return nil, impl.metrics.failed("encrypt", impl.unknownCipher(opts.Algorithm()))
	}

	ciphertext, err := encrypter.Encrypt(key, plaintext, impl.cipherOpts(name, opts))
	return ciphertext, impl.metrics.failed("encrypt", err)
}

func (impl *SoftCSPImpl) Decrypt(key interfaces.Key, ciphertext []byte, opts interfaces.DecrypterOpts) ([]byte, error) {
	if key == nil {
		return nil, errors.NewErrorf("invalid key, nil key")
	}
	if opts == nil {
		return nil, errors.NewError("invalid option, nil option")
	}

	name := cipherName(opts)
	decrypter, found := impl.Decrypters[name]
	if !found {
		return nil, impl.metrics.failed("decrypt", impl.unknownCipher(opts.Algorithm()))
	}

	plaintext, err := decrypter.Decrypt(key, ciphertext, impl.cipherOpts(name, opts))
	return plaintext, impl.metrics.failed("decrypt", err)
}

func (impl *SoftCSPImpl) cipherOpts(name string, opts interface{ Algorithm() string }) *softcipher.Opts {
	o, ok := opts.(*softcipher.Opts)
	if !ok {
		o = &softcipher.Opts{Name: opts.Algorithm()}
	} else if o == nil {
		o = &softcipher.Opts{}
	}
	if suite := impl.ciphers[name]; suite != nil && suite.AEAD() && o.AuthTagLength == 0 {
		filled := *o
		filled.AuthTagLength = impl.conf.AuthTagLength()
		return &filled
	}
	return o
}

func (impl *SoftCSPImpl) unknownCipher(name string) error {
	return errors.NewKindErrorf(errors.KindUnknownAlgorithm, "unknown cipher \"%s\"", name)
}

/* ------------------------------------------------------------------------------------------ */

// RegisterWidget 以 name 为键注册组件，组件的类型决定它所属的注册表。重复注册同一个名称、
// 空名称与 nil 组件都会返回错误。*hash.Algorithm 与 *cipher.Suite 同时注册一次性的组件与流式引擎。
func RegisterWidget(impl *SoftCSPImpl, name string, w interface{}) error {
	if impl == nil {
		return errors.NewError("invalid provider, nil provider")
	}
	if name == "" {
		return errors.NewError("invalid widget name, empty name")
	}
	if w == nil {
		return errors.NewError("invalid widget, nil widget")
	}

	switch ww := w.(type) {
	case *softhash.Algorithm:
		if ww == nil {
			return errors.NewError("invalid widget, nil hash algorithm")
		}
		if _, exists := impl.hashes[name]; exists {
			return duplicated("hash", name)
		}
		impl.hashes[name] = ww
		impl.Hashers[name] = softhash.NewHasher(ww)
	case *softcipher.Suite:
		if ww == nil {
			return errors.NewError("invalid widget, nil cipher suite")
		}
		if _, exists := impl.ciphers[name]; exists {
			return duplicated("cipher", name)
		}
		impl.ciphers[name] = ww
		impl.Encrypters[name] = softcipher.NewEncrypter(ww)
		impl.Decrypters[name] = softcipher.NewDecrypter(ww)
	case interfaces.KeyGenerator:
		if _, exists := impl.KeyGenerators[name]; exists {
			return duplicated("key generator", name)
		}
		impl.KeyGenerators[name] = ww
	case interfaces.KeyImporter:
		if _, exists := impl.KeyImporters[name]; exists {
			return duplicated("key importer", name)
		}
		impl.KeyImporters[name] = ww
	case interfaces.Signer:
		if _, exists := impl.Signers[name]; exists {
			return duplicated("signer", name)
		}
		impl.Signers[name] = ww
	case interfaces.Verifier:
		if _, exists := impl.Verifiers[name]; exists {
			return duplicated("verifier", name)
		}
		impl.Verifiers[name] = ww
	case interfaces.Encrypter:
		if _, exists := impl.Encrypters[name]; exists {
			return duplicated("encrypter", name)
		}
		impl.Encrypters[name] = ww
	case interfaces.Decrypter:
		if _, exists := impl.Decrypters[name]; exists {
			return duplicated("decrypter", name)
		}
		impl.Decrypters[name] = ww
	case interfaces.Hasher:
		if _, exists := impl.Hashers[name]; exists {
			return duplicated("hasher", name)
		}
		impl.Hashers[name] = ww
	default:
		return errors.NewErrorf("widget type \"%T\" is not recognized", w)
	}
	logger.Debugf("Registered %T as \"%s\".", w, name)
	return nil
}

func duplicated(kind, name string) error {
	return errors.NewErrorf("the %s \"%s\" has already been registered", kind, name)
}

/* ------------------------------------------------------------------------------------------ */

// CreateHash 创建流式摘要引擎，opts 用于为可扩展输出函数指定输出长度。
func (impl *SoftCSPImpl) CreateHash(algorithm string, opts ...softhash.Option) (*softhash.Hash, error) {
	alg, ok := impl.hashes[softhash.Normalize(algorithm)]
	if !ok {
		return nil, impl.metrics.failed("create_hash", errors.NewKindErrorf(errors.KindUnknownAlgorithm, "digest method not supported: \"%s\"", algorithm))
	}
	h, err := softhash.New(alg, opts...)
	if err != nil {
		return nil, impl.metrics.failed("create_hash", err)
	}
	impl.metrics.engineCreated("hash", alg.Name)
	return h, nil
}

// CreateHmac key 可以是 []byte、按照 UTF-8 解读的 string，或者对称密钥的 *keys.KeyObject。
func (impl *SoftCSPImpl) CreateHmac(algorithm string, key interface{}) (*softhash.Hmac, error) {
	alg, ok := impl.hashes[softhash.Normalize(algorithm)]
	if !ok {
		return nil, impl.metrics.failed("create_hmac", errors.NewKindErrorf(errors.KindUnknownAlgorithm, "invalid digest: \"%s\"", algorithm))
	}
	raw, err := secretMaterial(key)
	if err != nil {
		return nil, impl.metrics.failed("create_hmac", err)
	}
	m, err := softhash.NewHmac(alg, raw)
	if err != nil {
		return nil, impl.metrics.failed("create_hmac", err)
	}
	impl.metrics.engineCreated("hmac", alg.Name)
	return m, nil
}

// CreateCipheriv 创建流式加密引擎，AEAD 模式没有指定认证标签长度时使用配置中的默认长度。
func (impl *SoftCSPImpl) CreateCipheriv(algorithm string, key interface{}, iv []byte, opts ...softcipher.Option) (*softcipher.Cipher, error) {
	return impl.createCipher("cipheriv", algorithm, key, iv, opts, softcipher.NewCipheriv)
}

// CreateDecipheriv 创建流式解密引擎。AEAD 模式没有指定认证标签长度时以 SetAuthTag 给出的标签长度为准。
func (impl *SoftCSPImpl) CreateDecipheriv(algorithm string, key interface{}, iv []byte, opts ...softcipher.Option) (*softcipher.Cipher, error) {
	return impl.createCipher("decipheriv", algorithm, key, iv, opts, softcipher.NewDecipheriv)
}

func (impl *SoftCSPImpl) createCipher(kind, algorithm string, key interface{}, iv []byte, opts []softcipher.Option, create func(*softcipher.Suite, []byte, []byte, ...softcipher.Option) (*softcipher.Cipher, error)) (*softcipher.Cipher, error) {
	suite, ok := impl.ciphers[softcipher.Normalize(algorithm)]
	if !ok {
		return nil, impl.metrics.failed("create_"+kind, impl.unknownCipher(algorithm))
	}
	raw, err := secretMaterial(key)
	if err != nil {
		return nil, impl.metrics.failed("create_"+kind, err)
	}
	if kind == "cipheriv" && suite.AEAD() {
		// 默认长度放在最前面，调用方给出的 WithAuthTagLength 会覆盖它。
		opts = append([]softcipher.Option{softcipher.WithAuthTagLength(impl.conf.AuthTagLength())}, opts...)
	}
	c, err := create(suite, raw, iv, opts...)
	if err != nil {
		return nil, impl.metrics.failed("create_"+kind, err)
	}
	impl.metrics.engineCreated(kind, suite.Name)
	return c, nil
}

func secretMaterial(key interface{}) ([]byte, error) {
	switch k := key.(type) {
	case []byte:
		return k, nil
	case string:
		return []byte(k), nil
	case *keys.KeyObject:
		return k.SecretBytes()
	default:
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "invalid key, expected bytes, string or secret key object, but got \"%T\"", key)
	}
}

func (impl *SoftCSPImpl) CreateSign(algorithm string) (*sign.Sign, error) {
	s, err := sign.NewSign(algorithm)
	if err != nil {
		return nil, impl.metrics.failed("create_sign", err)
	}
	impl.metrics.engineCreated("sign", digestLabel(s.Algorithm()))
	return s, nil
}

func (impl *SoftCSPImpl) CreateVerify(algorithm string) (*sign.Verify, error) {
	v, err := sign.NewVerify(algorithm)
	if err != nil {
		return nil, impl.metrics.failed("create_verify", err)
	}
	impl.metrics.engineCreated("verify", digestLabel(v.Algorithm()))
	return v, nil
}

// digestLabel 直接对消息签名（EdDSA）的引擎没有摘要算法。
func digestLabel(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

// CreateDiffieHellman 生成 primeLength 位的素数并创建有限域密钥交换引擎，素性检测的轮数取自配置。
func (impl *SoftCSPImpl) CreateDiffieHellman(primeLength, generator int) (*softdh.DiffieHellman, error) {
	if generator == 0 {
		generator = softdh.DefaultGenerator
	}
	engine, err := softdh.NewWithPrimeLength(primeLength, generator, impl.conf.PrimeCertainty())
	if err != nil {
		return nil, impl.metrics.failed("create_diffie_hellman", err)
	}
	impl.metrics.engineCreated("diffie_hellman", "custom")
	return engine, nil
}

// CreateDiffieHellmanWithPrime 使用给定的素数与生成元（大端字节序）创建有限域密钥交换引擎。
func (impl *SoftCSPImpl) CreateDiffieHellmanWithPrime(prime, generator []byte) (*softdh.DiffieHellman, error) {
	engine, err := softdh.New(prime, generator)
	if err != nil {
		return nil, impl.metrics.failed("create_diffie_hellman", err)
	}
	impl.metrics.engineCreated("diffie_hellman", "custom")
	return engine, nil
}

func (impl *SoftCSPImpl) CreateDiffieHellmanGroup(name string) (*softdh.DiffieHellman, error) {
	engine, err := softdh.NewGroup(name)
	if err != nil {
		return nil, impl.metrics.failed("create_diffie_hellman_group", err)
	}
	impl.metrics.engineCreated("diffie_hellman", name)
	return engine, nil
}

// CreateECDH curve 为空时使用配置中的默认曲线。
func (impl *SoftCSPImpl) CreateECDH(curve string) (*softecdh.ECDH, error) {
	if curve == "" {
		curve = impl.conf.CurveName()
	}
	engine, err := softecdh.New(curve)
	if err != nil {
		return nil, impl.metrics.failed("create_ecdh", err)
	}
	impl.metrics.engineCreated("ecdh", engine.Curve().Name())
	return engine, nil
}

/* ------------------------------------------------------------------------------------------ */

// GetHashes 返回已注册的摘要算法名称，按字典序排列。
func (impl *SoftCSPImpl) GetHashes() []string {
	names := make([]string, 0, len(impl.hashes))
	for name := range impl.hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetCiphers 返回已注册并且可以使用的对称加密算法名称，按字典序排列。
func (impl *SoftCSPImpl) GetCiphers() []string {
	names := make([]string, 0, len(impl.ciphers))
	for name, suite := range impl.ciphers {
		if suite.Unsupported == "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (impl *SoftCSPImpl) GetCurves() []string {
	names := softecdh.CurveNames()
	sort.Strings(names)
	return names
}
