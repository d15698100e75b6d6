package factory_test

import (
	"encoding/hex"
	stderrors "errors"
	"os"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/config/configtest"
	"github.com/tsoniclang/tsonic-node-sub000/csp/factory"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func initDefault(t *testing.T) {
	require.NoError(t, factory.InitCSPFactoryWithOpts(factory.DefaultOpts()))
}

func TestCreateCSP(t *testing.T) {
	configtest.SetDevConfigPath(t)
	opts, err := factory.ReadConfig()
	require.NoError(t, err)
	opts.KeyStorePath = t.TempDir()

	require.NoError(t, factory.InitCSPFactoryWithOpts(opts))
	defer initDefault(t)

	csp, err := factory.GetCSP()
	require.NoError(t, err)

	ecdsaSK256, err := csp.KeyGen(&keys.KeyGenOpts{Type: keys.EC})
	require.NoError(t, err)
	ecdsaPK256, err := ecdsaSK256.PublicKey()
	require.NoError(t, err)

	entries, err := os.ReadDir(opts.KeyStorePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stored, err := csp.GetKey(ecdsaSK256.SKI())
	require.NoError(t, err)
	require.True(t, stored.Private())

	msg := []byte("权限系统")
	digest, err := csp.Hash(msg, &hash.Opts{Name: "sha256"})
	require.NoError(t, err)
	require.Len(t, digest, 32)

	sig, err := csp.Sign(ecdsaSK256, msg, nil)
	require.NoError(t, err)

	isValid, err := csp.Verify(ecdsaPK256, sig, msg, nil)
	require.NoError(t, err)
	require.True(t, isValid)
}

func TestInitCSPFactory(t *testing.T) {
	initDefault(t)

	require.Error(t, factory.InitCSPFactoryWithOpts(nil))

	opts := factory.DefaultOpts()
	opts.Kind = "hsm"
	require.Error(t, factory.InitCSPFactoryWithOpts(opts))

	opts = factory.DefaultOpts()
	opts.Metrics = "statsd"
	require.Error(t, factory.InitCSPFactoryWithOpts(opts))

	opts = factory.DefaultOpts()
	opts.SecurityLevel = 512
	require.Error(t, factory.InitCSPFactoryWithOpts(opts))

	opts = factory.DefaultOpts()
	opts.AuthTagLength = 10
	require.Error(t, factory.InitCSPFactoryWithOpts(opts))

	// 失败的初始化不会替换已有的提供者。
	h, err := factory.CreateHash("sha256")
	require.NoError(t, err)
	require.NotNil(t, h)

	opts = factory.DefaultOpts()
	opts.Kind = "SW"
	opts.SecurityLevel = 384
	opts.HashFamily = "SHA3"
	opts.Metrics = "prometheus"
	opts.AsyncWorkers = 2
	require.NoError(t, factory.InitCSPFactoryWithOpts(opts))
	defer initDefault(t)

	pair, err := factory.GenerateKeyPair(keys.EC, nil)
	require.NoError(t, err)
	details, err := pair.Public.AsymmetricKeyDetails()
	require.NoError(t, err)
	require.Equal(t, "secp384r1", details.NamedCurve)

	csp, err := factory.GetCSP()
	require.NoError(t, err)
	digest, err := csp.Hash([]byte("abc"), nil)
	require.NoError(t, err)
	require.Len(t, digest, 48)

	_, err = factory.GeneratePrimeAsync(32, false).Wait()
	require.NoError(t, err)
	count, err := testutil.GatherAndCount(prom.DefaultGatherer, "csp_task_duration_seconds")
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 1)
}

func TestStreamingSurface(t *testing.T) {
	initDefault(t)

	h, err := factory.CreateHash("SHA256")
	require.NoError(t, err)
	require.NoError(t, h.UpdateString("Hello, World!", "utf8"))
	out, err := h.DigestString("hex")
	require.NoError(t, err)
	require.Equal(t, "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f", out)

	m, err := factory.CreateHmac("sha256", "key")
	require.NoError(t, err)
	require.NoError(t, m.Update([]byte("The quick brown fox jumps over the lazy dog")))
	out, err = m.DigestString("hex")
	require.NoError(t, err)
	require.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", out)

	key, err := factory.GenerateKey("aes", 256)
	require.NoError(t, err)
	iv, err := factory.RandomBytes(16)
	require.NoError(t, err)

	c, err := factory.CreateCipheriv("aes-256-cbc", key, iv)
	require.NoError(t, err)
	first, err := c.Update([]byte("a message longer than one block"))
	require.NoError(t, err)
	last, err := c.Final()
	require.NoError(t, err)

	d, err := factory.CreateDecipheriv("aes-256-cbc", key, iv)
	require.NoError(t, err)
	p1, err := d.Update(append(first, last...))
	require.NoError(t, err)
	p2, err := d.Final()
	require.NoError(t, err)
	require.Equal(t, "a message longer than one block", string(append(p1, p2...)))

	_, err = factory.CreateCipheriv("aes-256-zzz", key, iv)
	require.True(t, stderrors.Is(err, errors.ErrUnknownAlgorithm))

	pair, err := factory.GenerateKeyPair(keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	require.NoError(t, err)
	s, err := factory.CreateSign("RSA-SHA256")
	require.NoError(t, err)
	require.NoError(t, s.Update([]byte("data")))
	sig, err := s.Sign(pair.Private, nil)
	require.NoError(t, err)
	v, err := factory.CreateVerify("RSA-SHA256")
	require.NoError(t, err)
	require.NoError(t, v.Update([]byte("data")))
	ok, err := v.Verify(pair.Public, sig, nil)
	require.NoError(t, err)
	require.True(t, ok)

	a, err := factory.CreateECDH("secp256k1")
	require.NoError(t, err)
	b, err := factory.CreateECDH("secp256k1")
	require.NoError(t, err)
	pa, err := a.GenerateKeys("")
	require.NoError(t, err)
	pb, err := b.GenerateKeys("")
	require.NoError(t, err)
	sa, err := a.ComputeSecret(pb)
	require.NoError(t, err)
	sb, err := b.ComputeSecret(pa)
	require.NoError(t, err)
	require.Equal(t, sa, sb)

	g, err := factory.CreateDiffieHellmanGroup("modp14")
	require.NoError(t, err)
	require.Equal(t, 256, g.PrimeSize())
	custom, err := factory.CreateDiffieHellmanWithPrime(g.GetPrime(), []byte{2})
	require.NoError(t, err)
	require.Equal(t, g.GetPrime(), custom.GetPrime())
	small, err := factory.CreateDiffieHellman(64, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, small.GetGenerator())
}

func TestKeyObjectSurface(t *testing.T) {
	initDefault(t)

	secret, err := factory.CreateSecretKey("000102", "hex")
	require.NoError(t, err)
	size, err := secret.SymmetricKeySize()
	require.NoError(t, err)
	require.Equal(t, 3, size)

	task := factory.GenerateKeyPairAsync(keys.Ed25519, nil)
	pair, err := task.Wait()
	require.NoError(t, err)

	pem, err := pair.Private.Export(nil)
	require.NoError(t, err)
	private, err := factory.CreatePrivateKey(pem, nil)
	require.NoError(t, err)
	public, err := factory.CreatePublicKey(private)
	require.NoError(t, err)
	require.True(t, public.Equals(pair.Public))

	sig, err := factory.Sign("", []byte("data"), private, nil)
	require.NoError(t, err)
	ok, err := factory.Verify("", []byte("data"), public, sig, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = factory.Sign("sha256", []byte("data"), private, &sign.Opts{})
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))

	_, err = factory.GenerateKeyPair("aes", nil)
	require.True(t, stderrors.Is(err, errors.ErrUnknownAlgorithm))
	_, err = factory.GenerateKey(keys.RSA, 2048)
	require.True(t, stderrors.Is(err, errors.ErrUnknownAlgorithm))

	aes, err := factory.GenerateKeyAsync("aes", 0).Wait()
	require.NoError(t, err)
	size, err = aes.SymmetricKeySize()
	require.NoError(t, err)
	require.Equal(t, 32, size)

	x1, err := factory.GenerateKeyPair(keys.X25519, nil)
	require.NoError(t, err)
	x2, err := factory.GenerateKeyPair(keys.X25519, nil)
	require.NoError(t, err)
	s1, err := factory.DiffieHellman(x1.Private, x2.Public)
	require.NoError(t, err)
	s2, err := factory.DiffieHellman(x2.Private, x1.Public)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}

func TestUtilitySurface(t *testing.T) {
	initDefault(t)

	require.Contains(t, factory.GetHashes(), "sha512")
	require.Contains(t, factory.GetCiphers(), "des-ede3-cbc")
	require.Contains(t, factory.GetCurves(), "secp384r1")

	n, err := factory.RandomInt(10, 20)
	require.NoError(t, err)
	require.True(t, n >= 10 && n < 20)
	_, err = factory.RandomInt(5, 5)
	require.True(t, stderrors.Is(err, errors.ErrRangeError))

	id, err := factory.RandomUUID()
	require.NoError(t, err)
	require.Len(t, id, 36)
	require.Equal(t, byte('4'), id[14])

	raw, err := factory.RandomBytesAsync(24).Wait()
	require.NoError(t, err)
	require.Len(t, raw, 24)

	require.True(t, factory.TimingSafeEqual([]byte("abc"), []byte("abc")))
	require.False(t, factory.TimingSafeEqual([]byte("abc"), []byte("abd")))
	require.False(t, factory.TimingSafeEqual([]byte("abc"), []byte("abcd")))

	dk, err := factory.Pbkdf2([]byte("password"), []byte("salt"), 1, 20, "sha1")
	require.NoError(t, err)
	require.Equal(t, "0c60c80f961f0e71f3a9b524af6012062fe037a6", hex.EncodeToString(dk))
	dkAsync, err := factory.Pbkdf2Async([]byte("password"), []byte("salt"), 1, 20, "sha1").Wait()
	require.NoError(t, err)
	require.Equal(t, dk, dkAsync)

	sk, err := factory.ScryptAsync([]byte("password"), []byte("salt"), 32, nil).Wait()
	require.NoError(t, err)
	require.Len(t, sk, 32)

	hk, err := factory.Hkdf("sha256", []byte("ikm"), []byte("salt"), []byte("info"), 42)
	require.NoError(t, err)
	require.Len(t, hk, 42)

	prime, err := factory.GeneratePrimeAsync(64, false).Wait()
	require.NoError(t, err)
	require.True(t, factory.CheckPrime(prime, 0))
	safe, err := factory.GeneratePrime(32, true)
	require.NoError(t, err)
	require.True(t, factory.CheckPrime(safe, 10))
	require.False(t, factory.CheckPrime([]byte{0x0f}, 0))
}
