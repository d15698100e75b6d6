package der_test

import (
	stderrors "errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/der"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func TestEncodeSignatureLeadingZero(t *testing.T) {
	r := big.NewInt(0x80)
	s := big.NewInt(0x7f)
	sig, err := der.EncodeSignature(r, s)
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0x07, 0x02, 0x02, 0x00, 0x80, 0x02, 0x01, 0x7f}, sig)

	r2, s2, err := der.DecodeSignature(sig)
	require.NoError(t, err)
	require.Equal(t, 0, r.Cmp(r2))
	require.Equal(t, 0, s.Cmp(s2))

	zero, err := der.EncodeSignature(big.NewInt(0), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0x06, 0x02, 0x01, 0x00, 0x02, 0x01, 0x01}, zero)
}

func TestEncodeSignatureLongForm(t *testing.T) {
	r := new(big.Int).Lsh(big.NewInt(1), 1023)
	s := new(big.Int).Lsh(big.NewInt(1), 100)
	sig, err := der.EncodeSignature(r, s)
	require.NoError(t, err)
	require.Equal(t, byte(0x81), sig[1])

	r2, s2, err := der.DecodeSignature(sig)
	require.NoError(t, err)
	require.Equal(t, 0, r.Cmp(r2))
	require.Equal(t, 0, s.Cmp(s2))
}

func TestDecodeSignatureRejectsMalformed(t *testing.T) {
	for _, sig := range [][]byte{
		{},
		{0x31, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01},
		{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01, 0x00},
		{0x30, 0x06, 0x02, 0x01, 0x81, 0x02, 0x01, 0x01},
		{0x30, 0x07, 0x02, 0x02, 0x00, 0x01, 0x02, 0x01, 0x01},
		{0x30, 0x09, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01},
	} {
		_, _, err := der.DecodeSignature(sig)
		require.True(t, stderrors.Is(err, errors.ErrInvalidEncoding), "%x", sig)
	}
}

func TestP1363(t *testing.T) {
	sig, err := der.EncodeSignature(big.NewInt(0x0102), big.NewInt(0xff))
	require.NoError(t, err)

	raw, err := der.ToP1363(sig, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 2, 0, 0, 0, 0xff}, raw)

	back, err := der.FromP1363(raw)
	require.NoError(t, err)
	require.Equal(t, sig, back)

	_, err = der.FromP1363([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestContainers(t *testing.T) {
	params, err := der.MarshalIntegerSequence(big.NewInt(23), big.NewInt(11), big.NewInt(4))
	require.NoError(t, err)
	alg := der.AlgorithmIdentifier{OID: der.OIDPublicKeyDSA, Parameters: params}

	pkcs8, err := der.MarshalPKCS8(alg, []byte{0x02, 0x01, 0x03})
	require.NoError(t, err)
	gotAlg, key, err := der.ParsePKCS8(pkcs8)
	require.NoError(t, err)
	require.True(t, gotAlg.OID.Equal(der.OIDPublicKeyDSA))
	require.Equal(t, params, gotAlg.Parameters)
	x, err := der.ParseInteger(key)
	require.NoError(t, err)
	require.Equal(t, int64(3), x.Int64())

	ints, err := der.ParseIntegerSequence(gotAlg.Parameters)
	require.NoError(t, err)
	require.Len(t, ints, 3)
	require.Equal(t, int64(11), ints[1].Int64())

	spki, err := der.MarshalSPKI(der.AlgorithmIdentifier{OID: der.OIDPublicKeyEd448}, []byte{1, 2, 3})
	require.NoError(t, err)
	gotAlg, key, err = der.ParseSPKI(spki)
	require.NoError(t, err)
	require.True(t, gotAlg.OID.Equal(der.OIDPublicKeyEd448))
	require.Nil(t, gotAlg.Parameters)
	require.Equal(t, []byte{1, 2, 3}, key)

	_, _, err = der.ParseSPKI(pkcs8)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))

	oct, err := der.MarshalOctetString([]byte{9, 9})
	require.NoError(t, err)
	inner, err := der.ParseOctetString(oct)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9}, inner)

	oidBytes, err := der.MarshalObjectIdentifier(der.OIDCurveSecp256k1)
	require.NoError(t, err)
	oid, err := der.ParseObjectIdentifier(oidBytes)
	require.NoError(t, err)
	require.True(t, oid.Equal(der.OIDCurveSecp256k1))
}
