package signer_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/signer"
)

func TestSignerRSA(t *testing.T) {
	pair, err := keys.GenerateKeyPair(keys.RSA, &keys.KeyPairOpts{ModulusLength: 1024})
	require.NoError(t, err)
	s, err := signer.NewSigner(pair.Private)
	require.NoError(t, err)

	pub, ok := s.Public().(*rsa.PublicKey)
	require.True(t, ok)

	digest := sha256.Sum256([]byte("hello"))
	sig, err := s.Sign(rand.Reader, digest[:], crypto.SHA256)
	require.NoError(t, err)
	require.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig))

	pssOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
	sig, err = s.Sign(rand.Reader, digest[:], pssOpts)
	require.NoError(t, err)
	require.NoError(t, rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOpts))

	_, err = s.Sign(rand.Reader, digest[:16], crypto.SHA256)
	require.Error(t, err)
}

func TestSignerECDSAAndEd25519(t *testing.T) {
	pair, err := keys.GenerateKeyPair(keys.EC, &keys.KeyPairOpts{NamedCurve: "P-384"})
	require.NoError(t, err)
	s, err := signer.NewSigner(pair.Private)
	require.NoError(t, err)
	digest := sha512.Sum384([]byte("hello"))
	sig, err := s.Sign(rand.Reader, digest[:], crypto.SHA384)
	require.NoError(t, err)
	require.True(t, ecdsa.VerifyASN1(s.Public().(*ecdsa.PublicKey), digest[:], sig))

	pair, err = keys.GenerateKeyPair(keys.Ed25519, nil)
	require.NoError(t, err)
	s, err = signer.NewSigner(pair.Private)
	require.NoError(t, err)
	msg := []byte("raw message")
	sig, err = s.Sign(rand.Reader, msg, crypto.Hash(0))
	require.NoError(t, err)
	require.True(t, ed25519.Verify(s.Public().(ed25519.PublicKey), msg, sig))
}

func TestNewSignerErrors(t *testing.T) {
	_, err := signer.NewSigner(nil)
	require.Error(t, err)

	pair, err := keys.GenerateKeyPair(keys.Ed25519, nil)
	require.NoError(t, err)
	_, err = signer.NewSigner(pair.Public)
	require.Error(t, err)
	_, err = signer.NewSigner(keys.NewSecretKey([]byte("secret")))
	require.Error(t, err)
}
