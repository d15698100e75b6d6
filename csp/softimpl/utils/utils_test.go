package utils_test

import (
	stderrors "errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func TestPEM(t *testing.T) {
	p := utils.SecretToPEM([]byte{1, 2, 3})
	require.True(t, utils.IsPEM(p))
	raw, err := utils.PEMToSecret(p)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw)

	_, err = utils.PEMToDER(p, "PUBLIC KEY")
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))

	_, err = utils.PEMToDER([]byte("not pem"))
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
	require.False(t, utils.IsPEM([]byte{0x30, 0x03}))
}

func TestRandom(t *testing.T) {
	b, err := utils.GetRandomBytes(32)
	require.NoError(t, err)
	require.Len(t, b, 32)

	b, err = utils.GetRandomBytes(0)
	require.NoError(t, err)
	require.Empty(t, b)

	for i := 0; i < 100; i++ {
		n, err := utils.RandomInt(-5, 5)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(-5))
		require.Less(t, n, int64(5))
	}
	_, err = utils.RandomInt(3, 3)
	require.True(t, stderrors.Is(err, errors.ErrRangeError))
	_, err = utils.RandomInt(0, 1<<50)
	require.True(t, stderrors.Is(err, errors.ErrRangeError))

	id, err := utils.RandomUUID()
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`), id)
}

func TestTimingSafeEqual(t *testing.T) {
	require.True(t, utils.TimingSafeEqual([]byte("abc"), []byte("abc")))
	require.False(t, utils.TimingSafeEqual([]byte("abc"), []byte("abd")))
	require.False(t, utils.TimingSafeEqual([]byte("abc"), []byte("abcd")))
	require.True(t, utils.TimingSafeEqual(nil, []byte{}))

	// 首字节不同与末字节不同走的是同一条比较路径，结果只取决于是否完全相等。
	a := make([]byte, 1024)
	early := append([]byte(nil), a...)
	early[0] = 1
	late := append([]byte(nil), a...)
	late[1023] = 1
	require.False(t, utils.TimingSafeEqual(a, early))
	require.False(t, utils.TimingSafeEqual(a, late))
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	utils.ZeroBytes(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
