package bigint_test

import (
	stderrors "errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/bigint"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func TestByteOrder(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03}
	require.Equal(t, int64(0x010203), bigint.FromBytes(b, bigint.BigEndian).Int64())
	require.Equal(t, int64(0x030201), bigint.FromBytes(b, bigint.LittleEndian).Int64())
	require.Equal(t, []byte{0x01, 0x02, 0x03}, b)

	x := big.NewInt(0x0a0b)
	require.Equal(t, []byte{0x0a, 0x0b}, bigint.ToBytes(x, bigint.BigEndian))
	require.Equal(t, []byte{0x0b, 0x0a}, bigint.ToBytes(x, bigint.LittleEndian))
	require.Empty(t, bigint.ToBytes(big.NewInt(0), bigint.BigEndian))
}

func TestToFixedBytes(t *testing.T) {
	out, err := bigint.ToFixedBytes(big.NewInt(0x0102), 4, bigint.BigEndian)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 2}, out)

	out, err = bigint.ToFixedBytes(big.NewInt(0x0102), 4, bigint.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 1, 0, 0}, out)

	_, err = bigint.ToFixedBytes(big.NewInt(0x010203), 2, bigint.BigEndian)
	require.True(t, stderrors.Is(err, errors.ErrRangeError))

	require.Equal(t, []byte{0, 0, 7}, bigint.PadLeft([]byte{7}, 3))
}

func TestModExp(t *testing.T) {
	r, err := bigint.ModExp(big.NewInt(4), big.NewInt(13), big.NewInt(497))
	require.NoError(t, err)
	require.Equal(t, int64(445), r.Int64())

	_, err = bigint.ModExp(big.NewInt(4), big.NewInt(13), big.NewInt(0))
	require.Error(t, err)

	s := bigint.ModSqrt(big.NewInt(4), big.NewInt(7))
	require.NotNil(t, s)
	require.Equal(t, int64(4), new(big.Int).Mod(new(big.Int).Mul(s, s), big.NewInt(7)).Int64())
	require.Nil(t, bigint.ModSqrt(big.NewInt(3), big.NewInt(7)))
}
