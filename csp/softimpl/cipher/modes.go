package cipher

import (
	"bytes"
	"crypto/cipher"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// ecb 以电子密码本模式逐块加解密，实现 cipher.BlockMode。
type ecb struct {
	b       cipher.Block
	decrypt bool
}

func newECB(b cipher.Block, decrypt bool) cipher.BlockMode {
	return &ecb{b: b, decrypt: decrypt}
}

func (e *ecb) BlockSize() int {
	return e.b.BlockSize()
}

func (e *ecb) CryptBlocks(dst, src []byte) {
	bs := e.b.BlockSize()
	if len(src)%bs != 0 {
		panic("crypto/cipher: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("crypto/cipher: output smaller than input")
	}
	for len(src) > 0 {
		if e.decrypt {
			e.b.Decrypt(dst[:bs], src[:bs])
		} else {
			e.b.Encrypt(dst[:bs], src[:bs])
		}
		src = src[bs:]
		dst = dst[bs:]
	}
}

/* ------------------------------------------------------------------------------------------ */

// pkcs7Padding 补全字节切片，使其长度达到 blockSize 的倍数。
func pkcs7Padding(src []byte, blockSize int) []byte {
	padding := blockSize - len(src)%blockSize
	padtext := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(src, padtext...)
}

func pkcs7UnPadding(src []byte, blockSize int) ([]byte, error) {
	size := len(src)
	if size == 0 || size%blockSize != 0 {
		return nil, errors.NewKindError(errors.KindAuthenticationFailure, "bad decrypt, the error is \"wrong final block length\"")
	}
	padding := int(src[size-1])

	if padding > blockSize || padding == 0 {
		return nil, errors.NewKindErrorf(errors.KindAuthenticationFailure, "bad decrypt, the error is \"the padded byte should be less than %d and larger than 0\"", blockSize+1)
	}

	pad := src[size-padding:]
	for i := 0; i < padding; i++ {
		if pad[i] != byte(padding) {
			return nil, errors.NewKindErrorf(errors.KindAuthenticationFailure, "bad decrypt, the error is \"invalid padding, pad[%d] != %d\"", i, padding)
		}
	}

	return src[:size-padding], nil
}
