package cipher_test

import (
	"bytes"
	"encoding/hex"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/cipher"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

func lookup(t *testing.T, name string) *cipher.Suite {
	t.Helper()
	name = cipher.Normalize(name)
	for _, s := range cipher.Builtin() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("cipher %s not found", name)
	return nil
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func run(t *testing.T, c *cipher.Cipher, chunks ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, chunk := range chunks {
		part, err := c.Update(chunk)
		require.NoError(t, err)
		out = append(out, part...)
	}
	final, err := c.Final()
	require.NoError(t, err)
	return append(out, final...)
}

func TestRoundTripAllSuites(t *testing.T) {
	messages := [][]byte{
		{},
		[]byte("short"),
		bytes.Repeat([]byte("0123456789abcdef"), 5),
		bytes.Repeat([]byte{0xa5}, 1000),
	}
	for _, suite := range cipher.Builtin() {
		if suite.Unsupported != "" {
			continue
		}
		key := bytes.Repeat([]byte{0x11}, suite.KeySize)
		iv := bytes.Repeat([]byte{0x22}, suite.IVSize)
		for _, msg := range messages {
			enc, err := cipher.NewCipheriv(suite, key, iv)
			require.NoError(t, err, suite.Name)
			half := len(msg) / 2
			ct := run(t, enc, msg[:half], msg[half:])

			dec, err := cipher.NewDecipheriv(suite, key, iv)
			require.NoError(t, err, suite.Name)
			if suite.AEAD() {
				tag, err := enc.GetAuthTag()
				require.NoError(t, err)
				require.Len(t, tag, 16)
				require.NoError(t, dec.SetAuthTag(tag))
			}
			third := len(ct) / 3
			pt := run(t, dec, ct[:third], ct[third:2*third], ct[2*third:])
			require.Equal(t, msg, pt, suite.Name)
		}
	}
}

func TestNISTVectors(t *testing.T) {
	key := unhex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	pt := unhex(t, "6bc1bee22e409f96e93d7e117393172a")

	ecb, err := cipher.NewCipheriv(lookup(t, "aes-128-ecb"), key, nil)
	require.NoError(t, err)
	require.NoError(t, ecb.SetAutoPadding(false))
	require.Equal(t, "3ad77bb40d7a3660a89ecaf32466ef97", hex.EncodeToString(run(t, ecb, pt)))

	cbc, err := cipher.NewCipheriv(lookup(t, "aes-128-cbc"), key, unhex(t, "000102030405060708090a0b0c0d0e0f"))
	require.NoError(t, err)
	require.NoError(t, cbc.SetAutoPadding(false))
	require.Equal(t, "7649abac8119b246cee98e9b12e9197d", hex.EncodeToString(run(t, cbc, pt)))

	ctr, err := cipher.NewCipheriv(lookup(t, "aes-128-ctr"), key, unhex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff"))
	require.NoError(t, err)
	require.Equal(t, "874d6191b620e3261bef6864990db6ce", hex.EncodeToString(run(t, ctr, pt)))

	gcm, err := cipher.NewCipheriv(lookup(t, "aes-128-gcm"), make([]byte, 16), make([]byte, 12))
	require.NoError(t, err)
	out, err := gcm.Update(make([]byte, 16))
	require.NoError(t, err)
	require.Empty(t, out)
	out, err = gcm.Final()
	require.NoError(t, err)
	require.Equal(t, "0388dace60b6a392f328c2b971b2fe78", hex.EncodeToString(out))
	tag, err := gcm.GetAuthTag()
	require.NoError(t, err)
	require.Equal(t, "ab6e47d42cec13bdf53a67b21257bddf", hex.EncodeToString(tag))
}

func TestCTRIsNotECB(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 16)
	iv := bytes.Repeat([]byte{2}, 16)
	msg := bytes.Repeat([]byte{3}, 32)

	ctr, err := cipher.NewCipheriv(lookup(t, "aes-128-ctr"), key, iv)
	require.NoError(t, err)
	ct := run(t, ctr, msg)
	require.Len(t, ct, 32)
	require.NotEqual(t, ct[:16], ct[16:])
}

func TestGCMAuthenticationFailure(t *testing.T) {
	suite := lookup(t, "aes-256-gcm")
	key := bytes.Repeat([]byte{7}, 32)
	iv := bytes.Repeat([]byte{9}, 12)

	enc, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, enc.SetAAD([]byte("header")))
	ct := run(t, enc, []byte("attack at dawn"))
	tag, err := enc.GetAuthTag()
	require.NoError(t, err)

	tampered := append([]byte(nil), tag...)
	tampered[0] ^= 1
	dec, err := cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, dec.SetAAD([]byte("header")))
	require.NoError(t, dec.SetAuthTag(tampered))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	_, err = dec.Final()
	require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure))

	dec, err = cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, dec.SetAAD([]byte("other")))
	require.NoError(t, dec.SetAuthTag(tag))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	_, err = dec.Final()
	require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure))

	dec, err = cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	_, err = dec.Update(ct)
	require.NoError(t, err)
	_, err = dec.Final()
	require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure))
}

func TestTruncatedTags(t *testing.T) {
	for _, c := range []struct {
		name   string
		length int
	}{{"aes-128-gcm", 4}, {"aes-128-gcm", 8}, {"aes-192-gcm", 12}, {"chacha20-poly1305", 1}, {"chacha20-poly1305", 10}} {
		suite := lookup(t, c.name)
		key := bytes.Repeat([]byte{3}, suite.KeySize)
		iv := bytes.Repeat([]byte{4}, 12)
		msg := []byte("truncated authentication tags still authenticate")

		enc, err := cipher.NewCipheriv(suite, key, iv, cipher.WithAuthTagLength(c.length))
		require.NoError(t, err)
		require.NoError(t, enc.SetAAD([]byte("aad")))
		ct := run(t, enc, msg)
		tag, err := enc.GetAuthTag()
		require.NoError(t, err)
		require.Len(t, tag, c.length)

		dec, err := cipher.NewDecipheriv(suite, key, iv)
		require.NoError(t, err)
		require.NoError(t, dec.SetAAD([]byte("aad")))
		require.NoError(t, dec.SetAuthTag(tag))
		require.Equal(t, msg, run(t, dec, ct))

		tag[len(tag)-1] ^= 0x80
		dec, err = cipher.NewDecipheriv(suite, key, iv)
		require.NoError(t, err)
		require.NoError(t, dec.SetAAD([]byte("aad")))
		require.NoError(t, dec.SetAuthTag(tag))
		_, err = dec.Update(ct)
		require.NoError(t, err)
		_, err = dec.Final()
		require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure), c.name)
	}

	_, err := cipher.NewCipheriv(lookup(t, "aes-128-gcm"), make([]byte, 16), make([]byte, 12), cipher.WithAuthTagLength(5))
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))

	dec, err := cipher.NewDecipheriv(lookup(t, "aes-128-gcm"), make([]byte, 16), make([]byte, 12))
	require.NoError(t, err)
	require.True(t, stderrors.Is(dec.SetAuthTag(make([]byte, 3)), errors.ErrInvalidArgument))
}

func TestGCMVariableIV(t *testing.T) {
	suite := lookup(t, "aes-128-gcm")
	key := bytes.Repeat([]byte{5}, 16)
	iv := bytes.Repeat([]byte{6}, 16)

	enc, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	ct := run(t, enc, []byte("sixteen byte iv"))
	tag, err := enc.GetAuthTag()
	require.NoError(t, err)

	dec, err := cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, dec.SetAuthTag(tag))
	require.Equal(t, []byte("sixteen byte iv"), run(t, dec, ct))
}

func TestLifecycleErrors(t *testing.T) {
	suite := lookup(t, "aes-128-cbc")
	key := make([]byte, 16)
	iv := make([]byte, 16)

	c, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	require.True(t, stderrors.Is(c.SetAAD([]byte("x")), errors.ErrInvalidArgument))
	_, err = c.GetAuthTag()
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
	_, err = c.Final()
	require.NoError(t, err)

	_, err = c.Update([]byte("late"))
	require.True(t, stderrors.Is(err, errors.ErrAlreadyFinalized))
	_, err = c.Final()
	require.True(t, stderrors.Is(err, errors.ErrAlreadyFinalized))

	gcm, err := cipher.NewCipheriv(lookup(t, "aes-128-gcm"), key, make([]byte, 12))
	require.NoError(t, err)
	_, err = gcm.GetAuthTag()
	require.True(t, stderrors.Is(err, errors.ErrNotInitialized))
	require.True(t, stderrors.Is(gcm.SetAuthTag(make([]byte, 16)), errors.ErrInvalidArgument))

	_, err = cipher.NewCipheriv(suite, make([]byte, 15), iv)
	require.True(t, stderrors.Is(err, errors.ErrInvalidKeyMaterial))
	_, err = cipher.NewCipheriv(suite, key, make([]byte, 8))
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
	_, err = cipher.NewCipheriv(lookup(t, "rc2-cbc"), key, make([]byte, 8))
	require.True(t, stderrors.Is(err, errors.ErrUnsupported))
}

func TestPaddingBehaviour(t *testing.T) {
	suite := lookup(t, "aes-128-cbc")
	key := make([]byte, 16)
	iv := make([]byte, 16)

	enc, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	out, err := enc.Update(make([]byte, 20))
	require.NoError(t, err)
	require.Len(t, out, 16)
	final, err := enc.Final()
	require.NoError(t, err)
	require.Len(t, final, 16)

	noPad, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, noPad.SetAutoPadding(false))
	_, err = noPad.Update(make([]byte, 20))
	require.NoError(t, err)
	_, err = noPad.Final()
	require.Error(t, err)

	late, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	_, err = late.Update([]byte("x"))
	require.NoError(t, err)
	require.Error(t, late.SetAutoPadding(false))

	dec, err := cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	_, err = dec.Update(append(out, final...)[:31])
	require.NoError(t, err)
	_, err = dec.Final()
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad decrypt")
	require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure))

	// 明文最后一个字节为 0 时去填充失败。
	zeros, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	require.NoError(t, zeros.SetAutoPadding(false))
	block, err := zeros.Update(make([]byte, 16))
	require.NoError(t, err)
	rest, err := zeros.Final()
	require.NoError(t, err)
	dec, err = cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	_, err = dec.Update(append(block, rest...))
	require.NoError(t, err)
	_, err = dec.Final()
	require.True(t, stderrors.Is(err, errors.ErrAuthenticationFailure))
	require.False(t, stderrors.Is(err, errors.ErrInvalidArgument))
}

func TestStringVariants(t *testing.T) {
	suite := lookup(t, "aes-256-cbc")
	key := bytes.Repeat([]byte{8}, 32)
	iv := bytes.Repeat([]byte{9}, 16)
	msg := "a message that spans multiple cipher blocks, with ünïcödé"

	enc, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	part, err := enc.UpdateString(msg, "utf8", "base64")
	require.NoError(t, err)
	rest, err := enc.FinalString("base64")
	require.NoError(t, err)
	_, err = enc.FinalString("hex")
	require.Error(t, err)

	dec, err := cipher.NewDecipheriv(suite, key, iv)
	require.NoError(t, err)
	p1, err := dec.UpdateString(part+rest, "base64", "utf8")
	require.NoError(t, err)
	p2, err := dec.FinalString("utf8")
	require.NoError(t, err)
	require.Equal(t, msg, p1+p2)

	mixed, err := cipher.NewCipheriv(suite, key, iv)
	require.NoError(t, err)
	_, err = mixed.UpdateString("abc", "", "hex")
	require.NoError(t, err)
	_, err = mixed.UpdateString("abc", "", "base64")
	require.True(t, stderrors.Is(err, errors.ErrInvalidArgument))
}

/* ------------------------------------------------------------------------------------------ */

type secretKey []byte

func (k secretKey) Bytes() ([]byte, error)              { return []byte(k), nil }
func (k secretKey) SKI() []byte                         { return nil }
func (k secretKey) Symmetric() bool                     { return true }
func (k secretKey) Private() bool                       { return true }
func (k secretKey) PublicKey() (interfaces.Key, error) { return nil, errors.NewError("secret key") }

func TestEncrypterDecrypter(t *testing.T) {
	for _, name := range []string{"aes-128-cbc", "aes-256-gcm", "des-ede3-cbc", "chacha20-poly1305", "aes-192-ctr", "des-ede"} {
		suite := lookup(t, name)
		key := secretKey(bytes.Repeat([]byte{0x42}, suite.KeySize))
		msg := []byte("one-shot encryption through the provider interface")

		opts := &cipher.Opts{Name: name, AAD: []byte("context")}
		if !suite.AEAD() {
			opts.AAD = nil
		}
		ct, err := cipher.NewEncrypter(suite).Encrypt(key, msg, opts)
		require.NoError(t, err, name)
		pt, err := cipher.NewDecrypter(suite).Decrypt(key, ct, opts)
		require.NoError(t, err, name)
		require.Equal(t, msg, pt, name)

		ct2, err := cipher.NewEncrypter(suite).Encrypt(key, msg, opts)
		require.NoError(t, err)
		if suite.IVSize > 0 {
			require.NotEqual(t, ct, ct2, name)
		}
	}

	suite := lookup(t, "aes-128-gcm")
	key := secretKey(bytes.Repeat([]byte{1}, 16))
	ct, err := cipher.NewEncrypter(suite).Encrypt(key, []byte("m"), &cipher.Opts{AuthTagLength: 8})
	require.NoError(t, err)
	require.Len(t, ct, 12+1+8)
	_, err = cipher.NewDecrypter(suite).Decrypt(key, ct, &cipher.Opts{AuthTagLength: 16})
	require.Error(t, err)
	pt, err := cipher.NewDecrypter(suite).Decrypt(key, ct, &cipher.Opts{AuthTagLength: 8})
	require.NoError(t, err)
	require.Equal(t, []byte("m"), pt)

	// 值为 nil 的 *cipher.Opts 按默认选项处理。
	var none *cipher.Opts
	ct, err = cipher.NewEncrypter(suite).Encrypt(key, []byte("m"), none)
	require.NoError(t, err)
	require.Len(t, ct, 12+1+16)
	pt, err = cipher.NewDecrypter(suite).Decrypt(key, ct, none)
	require.NoError(t, err)
	require.Equal(t, []byte("m"), pt)
}
