package ecdh_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	stderrors "errors"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/ecdh"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func TestSymmetryOnEveryCurve(t *testing.T) {
	for _, name := range ecdh.CurveNames() {
		alice, err := ecdh.New(name)
		require.NoError(t, err)
		bob, err := ecdh.New(name)
		require.NoError(t, err)

		alicePub, err := alice.GenerateKeys(ecdh.FormatHybrid)
		require.NoError(t, err)
		bobPub, err := bob.GenerateKeys(ecdh.FormatCompressed)
		require.NoError(t, err)

		s1, err := alice.ComputeSecret(bobPub)
		require.NoError(t, err, name)
		s2, err := bob.ComputeSecret(alicePub)
		require.NoError(t, err, name)
		require.Equal(t, s1, s2, name)
		require.Len(t, s1, alice.Curve().FieldSize())

		raw, err := alice.GetPublicKey(ecdh.FormatUncompressed)
		require.NoError(t, err)
		s3, err := bob.ComputeSecret(raw)
		require.NoError(t, err)
		require.Equal(t, s1, s3)
	}
}

func TestCurveNamesAndAliases(t *testing.T) {
	names := ecdh.CurveNames()
	for _, want := range []string{"prime256v1", "secp224r1", "secp256k1", "secp384r1", "secp521r1"} {
		require.Contains(t, names, want)
	}
	for alias, canonical := range map[string]string{"P-256": "prime256v1", "secp256r1": "prime256v1", "p-384": "secp384r1", "P-521": "secp521r1", "SECP256K1": "secp256k1"} {
		c, err := ecdh.LookupCurve(alias)
		require.NoError(t, err)
		require.Equal(t, canonical, c.Name())
	}
	_, err := ecdh.New("curve25519-ish")
	require.True(t, stderrors.Is(err, errors.ErrUnknownAlgorithm))
}

func TestSecp256k1MatchesLibrary(t *testing.T) {
	params := secp256k1.S256().Params()
	injected := ecdh.Secp256k1()
	require.Equal(t, 0, params.P.Cmp(injected.P))
	require.Equal(t, 0, params.N.Cmp(injected.N))
	require.Equal(t, 0, params.Gx.Cmp(injected.Gx))
	require.Equal(t, 0, params.Gy.Cmp(injected.Gy))

	alice, err := ecdh.New("secp256k1")
	require.NoError(t, err)
	_, err = alice.GenerateKeys("")
	require.NoError(t, err)
	alicePriv, err := alice.GetPrivateKey()
	require.NoError(t, err)
	alicePub, err := alice.GetPublicKey(ecdh.FormatUncompressed)
	require.NoError(t, err)

	libPriv := secp256k1.PrivKeyFromBytes(alicePriv)
	require.Equal(t, libPriv.PubKey().SerializeUncompressed(), alicePub)

	bobPriv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	expected := secp256k1.GenerateSharedSecret(bobPriv, libPriv.PubKey())

	secret, err := alice.ComputeSecret(bobPriv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	require.Equal(t, expected, secret)
}

func TestP224MatchesElliptic(t *testing.T) {
	c, err := ecdh.LookupCurve("secp224r1")
	require.NoError(t, err)
	k := big.NewInt(0xdeadbeef)
	x, y, err := c.PublicPoint(k)
	require.NoError(t, err)
	ex, ey := elliptic.P224().ScalarBaseMult(k.Bytes())
	require.Equal(t, 0, x.Cmp(ex))
	require.Equal(t, 0, y.Cmp(ey))
}

func TestSPKIMatchesX509(t *testing.T) {
	alice, err := ecdh.New("prime256v1")
	require.NoError(t, err)
	spki, err := alice.GenerateKeys(ecdh.FormatSPKI)
	require.NoError(t, err)

	parsed, err := x509.ParsePKIXPublicKey(spki)
	require.NoError(t, err)
	pub, ok := parsed.(*ecdsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, elliptic.P256(), pub.Curve)

	peer, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	peerSPKI, err := x509.MarshalPKIXPublicKey(&peer.PublicKey)
	require.NoError(t, err)
	peerECDH, err := peer.ECDH()
	require.NoError(t, err)
	alicePoint, err := alice.GetPublicKey(ecdh.FormatUncompressed)
	require.NoError(t, err)
	alicePubECDH, err := peerECDH.Curve().NewPublicKey(alicePoint)
	require.NoError(t, err)
	expected, err := peerECDH.ECDH(alicePubECDH)
	require.NoError(t, err)

	secret, err := alice.ComputeSecret(peerSPKI)
	require.NoError(t, err)
	require.Equal(t, expected, secret)

	other, err := ecdh.New("secp384r1")
	require.NoError(t, err)
	_, err = other.GenerateKeys("")
	require.NoError(t, err)
	_, err = other.ComputeSecret(peerSPKI)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
}

func TestPrivateKeyImport(t *testing.T) {
	a, err := ecdh.New("secp256k1")
	require.NoError(t, err)
	_, err = a.GenerateKeys("")
	require.NoError(t, err)
	priv, err := a.GetPrivateKey()
	require.NoError(t, err)
	pub, err := a.GetPublicKey("")
	require.NoError(t, err)

	b, err := ecdh.New("secp256k1")
	require.NoError(t, err)
	require.NoError(t, b.SetPrivateKey(priv))
	pub2, err := b.GetPublicKey("")
	require.NoError(t, err)
	require.Equal(t, pub, pub2)

	require.True(t, stderrors.Is(b.SetPrivateKey([]byte{0}), errors.ErrInvalidKeyMaterial))
	require.True(t, stderrors.Is(b.SetPrivateKey(bytesOf(0xff, 32)), errors.ErrInvalidKeyMaterial))
	require.True(t, stderrors.Is(b.SetPublicKey(pub), errors.ErrUnsupported))
}

func TestStateAndInputErrors(t *testing.T) {
	e, err := ecdh.New("prime256v1")
	require.NoError(t, err)
	_, err = e.ComputeSecret([]byte{4})
	require.True(t, stderrors.Is(err, errors.ErrNotInitialized))
	_, err = e.GetPublicKey("")
	require.True(t, stderrors.Is(err, errors.ErrNotInitialized))

	_, err = e.GenerateKeys("")
	require.NoError(t, err)
	_, err = e.ComputeSecret(append([]byte{4}, bytesOf(1, 64)...))
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
	_, err = e.ComputeSecret([]byte{5, 1, 2})
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
	_, err = e.GetPublicKey("pem")
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
}

func TestConvertKey(t *testing.T) {
	e, err := ecdh.New("secp384r1")
	require.NoError(t, err)
	compressed, err := e.GenerateKeys(ecdh.FormatCompressed)
	require.NoError(t, err)
	require.Len(t, compressed, 49)

	uncompressed, err := ecdh.ConvertKey(compressed, "secp384r1", ecdh.FormatUncompressed)
	require.NoError(t, err)
	want, err := e.GetPublicKey(ecdh.FormatUncompressed)
	require.NoError(t, err)
	require.Equal(t, want, uncompressed)

	hybrid, err := ecdh.ConvertKey(uncompressed, "secp384r1", ecdh.FormatHybrid)
	require.NoError(t, err)
	back, err := ecdh.ConvertKey(hybrid, "secp384r1", ecdh.FormatCompressed)
	require.NoError(t, err)
	require.Equal(t, compressed, back)

	spki, err := ecdh.ConvertKey(compressed, "P-384", "")
	require.NoError(t, err)
	want, err = e.GetPublicKey("")
	require.NoError(t, err)
	require.Equal(t, want, spki)
}

func TestRegisterCurve(t *testing.T) {
	require.Error(t, ecdh.RegisterCurve(ecdh.Secp256k1()))
	require.Error(t, ecdh.RegisterCurve(&ecdh.CurveParams{Name: "broken"}))

	bad := ecdh.Secp256k1()
	bad.Name = "secp256k1-typo"
	bad.Gy = new(big.Int).Add(bad.Gy, big.NewInt(1))
	require.Error(t, ecdh.RegisterCurve(bad))

	// 与 secp256k1 参数相同但名称不同、没有对象标识符的曲线。
	custom := ecdh.Secp256k1()
	custom.Name = "k1-without-oid"
	custom.OID = nil
	require.NoError(t, ecdh.RegisterCurve(custom))
	e, err := ecdh.New("k1-without-oid")
	require.NoError(t, err)
	_, err = e.GenerateKeys("")
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))
	pub, err := e.GetPublicKey(ecdh.FormatUncompressed)
	require.NoError(t, err)
	require.Len(t, pub, 65)

	// 注入的曲线走通用的仿射坐标运算，结果与 decred 的 secp256k1 一致。
	c, err := ecdh.LookupCurve("k1-without-oid")
	require.NoError(t, err)
	k := big.NewInt(0x1234567)
	x, y, err := c.PublicPoint(k)
	require.NoError(t, err)
	expected := secp256k1.PrivKeyFromBytes(k.Bytes()).PubKey()
	require.Equal(t, expected.SerializeUncompressed(), c.Marshal(x, y, ecdh.FormatUncompressed))

	peer, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	px, py, err := c.Unmarshal(peer.PubKey().SerializeUncompressed())
	require.NoError(t, err)
	secret, err := c.SharedSecret(k, px, py)
	require.NoError(t, err)
	require.Equal(t, secp256k1.GenerateSharedSecret(peer, expected), secret)
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
