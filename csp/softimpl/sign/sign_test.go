package sign_test

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	k1ecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var message = []byte("Hello, World!")

func pair(t *testing.T, typ string, opts *keys.KeyPairOpts) *keys.KeyPair {
	p, err := keys.GenerateKeyPair(typ, opts)
	require.NoError(t, err)
	return p
}

func flip(sig []byte) []byte {
	out := append([]byte(nil), sig...)
	out[len(out)/2] ^= 0x01
	return out
}

func TestRoundTripAndByteFlip(t *testing.T) {
	rsaPair := pair(t, keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	cases := []struct {
		name      string
		digest    string
		pair      *keys.KeyPair
		opts      *sign.Opts
		sigLength int
	}{
		{"rsa-pkcs1", "RSA-SHA256", rsaPair, nil, 128},
		{"rsa-pss", "sha256", rsaPair, &sign.Opts{Padding: sign.PaddingPSS}, 128},
		{"rsa-pss-digest-salt", "sha384", rsaPair, &sign.Opts{Padding: sign.PaddingPSS, SaltLength: sign.SaltLengthDigest}, 128},
		{"ecdsa-p256", "sha256", pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "P-256"}), nil, 0},
		{"ecdsa-p384-p1363", "sha384", pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "P-384"}), &sign.Opts{DSAEncoding: sign.EncodingP1363}, 96},
		{"ecdsa-p521-p1363", "sha512", pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "P-521"}), &sign.Opts{DSAEncoding: sign.EncodingP1363}, 132},
		{"ecdsa-secp256k1", "sha256", pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "secp256k1"}), nil, 0},
		{"ecdsa-secp256k1-p1363", "sha512", pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "secp256k1"}), &sign.Opts{DSAEncoding: sign.EncodingP1363}, 64},
		{"dsa", "sha256", pair(t, keys.DSA, &keys.KeyPairOpts{ModulusLength: 1024}), nil, 0},
		{"dsa-p1363", "sha1", pair(t, keys.DSA, &keys.KeyPairOpts{ModulusLength: 1024}), &sign.Opts{DSAEncoding: sign.EncodingP1363}, 40},
		{"ed25519", "", pair(t, keys.Ed25519, nil), nil, 64},
		{"ed448", "", pair(t, keys.Ed448, nil), nil, 114},
	}

	for _, c := range cases {
		sig, err := sign.SignMessage(c.digest, message, c.pair.Private, c.opts)
		require.NoError(t, err, c.name)
		if c.sigLength > 0 {
			require.Len(t, sig, c.sigLength, c.name)
		}

		ok, err := sign.VerifyMessage(c.digest, message, c.pair.Public, sig, c.opts)
		require.NoError(t, err, c.name)
		require.True(t, ok, c.name)

		ok, err = sign.VerifyMessage(c.digest, message, c.pair.Private, sig, c.opts)
		require.NoError(t, err, c.name)
		require.True(t, ok, c.name)

		ok, err = sign.VerifyMessage(c.digest, message, c.pair.Public, flip(sig), c.opts)
		require.NoError(t, err, c.name)
		require.False(t, ok, c.name)

		ok, err = sign.VerifyMessage(c.digest, []byte("Hello, World?"), c.pair.Public, sig, c.opts)
		require.NoError(t, err, c.name)
		require.False(t, ok, c.name)

		ok, err = sign.VerifyMessage(c.digest, message, c.pair.Public, sig[:len(sig)-1], c.opts)
		require.NoError(t, err, c.name)
		require.False(t, ok, c.name)
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	p := pair(t, keys.Ed25519, nil)
	s, err := sign.NewSign("")
	require.NoError(t, err)
	require.NoError(t, s.Update([]byte("Hello, ")))
	require.NoError(t, s.UpdateString("576f726c6421", "hex"))
	streamed, err := s.Sign(p.Private, nil)
	require.NoError(t, err)

	oneShot, err := sign.SignMessage("", message, p.Private, nil)
	require.NoError(t, err)
	require.Equal(t, oneShot, streamed)

	rsaPair := pair(t, keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	v, err := sign.NewVerify("sha256WithRSAEncryption")
	require.NoError(t, err)
	sig, err := sign.SignMessage("sha256", message, rsaPair.Private, nil)
	require.NoError(t, err)
	require.NoError(t, v.Update(message[:5]))
	require.NoError(t, v.Update(message[5:]))
	ok, err := v.VerifyString(rsaPair.Public, hex.EncodeToString(sig), "hex", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInteropWithLibraries(t *testing.T) {
	rsaPair := pair(t, keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	sig, err := sign.SignMessage("RSA-SHA256", message, rsaPair.Private, nil)
	require.NoError(t, err)
	material, err := rsaPair.Public.Material()
	require.NoError(t, err)
	digest := sha256.Sum256(message)
	require.NoError(t, rsa.VerifyPKCS1v15(material.(*rsa.PublicKey), crypto.SHA256, digest[:], sig))

	k1 := pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "secp256k1"})
	sig, err = sign.SignMessage("sha256", message, k1.Private, nil)
	require.NoError(t, err)
	parsed, err := k1ecdsa.ParseDERSignature(sig)
	require.NoError(t, err)
	material, err = k1.Public.Material()
	require.NoError(t, err)
	require.True(t, parsed.Verify(digest[:], material.(*secp256k1.PublicKey)))
}

func TestLowS(t *testing.T) {
	p := pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "prime256v1"})
	half := sign.GetCurveHalfOrderAt("P-256")
	require.NotNil(t, half)
	for i := 0; i < 8; i++ {
		sig, err := sign.SignMessage("sha256", message, p.Private, &sign.Opts{LowS: true})
		require.NoError(t, err)
		ok, err := sign.VerifyMessage("sha256", message, p.Public, sig, &sign.Opts{LowS: true})
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Nil(t, sign.GetCurveHalfOrderAt("brainpoolP256r1"))
}

func TestStateErrors(t *testing.T) {
	p := pair(t, keys.Ed25519, nil)
	s, err := sign.NewSign("")
	require.NoError(t, err)
	require.NoError(t, s.Update(message))
	_, err = s.Sign(p.Private, nil)
	require.NoError(t, err)
	require.True(t, stderrors.Is(s.Update(message), errors.ErrAlreadyFinalized))
	_, err = s.Sign(p.Private, nil)
	require.True(t, stderrors.Is(err, errors.ErrAlreadyFinalized))

	v, err := sign.NewVerify("")
	require.NoError(t, err)
	_, err = v.Verify(p.Public, make([]byte, 64), nil)
	require.NoError(t, err)
	require.True(t, stderrors.Is(v.Update(message), errors.ErrAlreadyFinalized))
	_, err = v.Verify(p.Public, make([]byte, 64), nil)
	require.True(t, stderrors.Is(err, errors.ErrAlreadyFinalized))
}

func TestArgumentErrors(t *testing.T) {
	_, err := sign.NewSign("sha0")
	require.True(t, stderrors.Is(err, errors.ErrUnknownAlgorithm))
	_, err = sign.NewVerify("shake256")
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))

	ed := pair(t, keys.Ed25519, nil)
	_, err = sign.SignMessage("sha256", message, ed.Private, nil)
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))

	ec := pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "P-256"})
	_, err = sign.SignMessage("", message, ec.Private, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
	_, err = sign.SignMessage("sha256", message, ec.Public, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
	_, err = sign.SignMessage("sha256", message, ec.Private, &sign.Opts{DSAEncoding: "asn1"})
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))

	_, err = sign.VerifyMessage("sha256", message, keys.NewSecretKey([]byte("k")), []byte{1}, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))

	x := pair(t, keys.X25519, nil)
	_, err = sign.SignMessage("", message, x.Private, nil)
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))

	rsaPair := pair(t, keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	_, err = sign.SignMessage("sha256", message, rsaPair.Private, &sign.Opts{Padding: "oaep"})
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))

	v, err := sign.NewVerify("sha256")
	require.NoError(t, err)
	_, err = v.VerifyString(rsaPair.Public, "not hex", "hex", nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidEncoding))

	require.NoError(t, ec.Private.Close())
	_, err = sign.SignMessage("sha256", message, ec.Private, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
}

func TestWithMaterial(t *testing.T) {
	for _, typ := range []string{keys.RSA, keys.EC, keys.DSA} {
		opts := &keys.KeyPairOpts{ModulusLength: 1024, NamedCurve: "P-256"}
		p := pair(t, typ, opts)
		exportType := keys.EncodingPKCS1
		if typ == keys.EC {
			exportType = keys.EncodingSEC1
		}
		privDER, err := p.Private.Export(&keys.ExportOpts{Format: keys.FormatDER, Type: exportType})
		require.NoError(t, err, typ)
		pubPEM, err := p.Public.Export(nil)
		require.NoError(t, err, typ)

		sig, err := sign.SignWithMaterial("sha256", message, privDER, nil, nil)
		require.NoError(t, err, typ)
		ok, err := sign.VerifyWithMaterial("sha256", message, pubPEM, sig, nil)
		require.NoError(t, err, typ)
		require.True(t, ok, typ)
	}

	p := pair(t, keys.Ed448, nil)
	encrypted, err := p.Private.Export(&keys.ExportOpts{Cipher: "aes-256-cbc", Passphrase: []byte("pw")})
	require.NoError(t, err)
	sig, err := sign.SignWithMaterial("", message, encrypted, []byte("pw"), nil)
	require.NoError(t, err)
	ok, err := sign.VerifyMessage("", message, p.Public, sig, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = sign.SignWithMaterial("sha256", message, []byte("garbage"), nil, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
}

func TestProviderWidgets(t *testing.T) {
	p := pair(t, keys.EC, &keys.KeyPairOpts{NamedCurve: "secp384r1"})
	sig, err := sign.NewSigner().Sign(p.Private, message, &sign.Opts{Hash: "sha384", DSAEncoding: sign.EncodingP1363})
	require.NoError(t, err)
	require.Len(t, sig, 96)
	ok, err := sign.NewVerifier().Verify(p.Public, sig, message, &sign.Opts{Hash: "sha384", DSAEncoding: sign.EncodingP1363})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = sign.NewSigner().Sign(nil, message, nil)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
}
