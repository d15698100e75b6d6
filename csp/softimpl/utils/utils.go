package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/pem"
	"math/big"

	"github.com/google/uuid"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// PEM

// PEMToDER 解码 PEM 数据，wantTypes 不为空时要求 PEM 块的类型属于其中之一。
func PEMToDER(raw []byte, wantTypes ...string) (*pem.Block, error) {
	if len(raw) == 0 {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "invalid PEM, nil PEM")
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "failed decoding PEM")
	}

	if len(wantTypes) == 0 {
		return block, nil
	}
	for _, t := range wantTypes {
		if block.Type == t {
			return block, nil
		}
	}
	return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "unexpected PEM block type \"%s\"", block.Type)
}

func DERToPEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

// IsPEM 判断数据是否以 PEM 的边界行开头（允许前置空白）。
func IsPEM(raw []byte) bool {
	block, _ := pem.Decode(raw)
	return block != nil
}

/* ------------------------------------------------------------------------------------------ */

// SECRET KEY

func PEMToSecret(raw []byte) ([]byte, error) {
	block, err := PEMToDER(raw, "SECRET KEY")
	if err != nil {
		return nil, err
	}
	return block.Bytes, nil
}

func SecretToPEM(raw []byte) []byte {
	return DERToPEM("SECRET KEY", raw)
}

/* ------------------------------------------------------------------------------------------ */

func GetRandomBytes(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.NewKindError(errors.KindRangeError, "the size of the random bytes must not be negative")
	}

	buffer := make([]byte, size)

	n, err := rand.Read(buffer)
	if err != nil {
		return nil, errors.NewErrorf("cannot generate random bytes, the error is \"%s\"", err.Error())
	}

	if n != size {
		return nil, errors.NewErrorf("want to generate \"%d\" bytes, but got \"%d\"", size, n)
	}

	return buffer, nil
}

// maxRandomIntRange 是 RandomInt 允许的最大取值范围 2^48。
const maxRandomIntRange = 1 << 48

// RandomInt 返回均匀分布在 [min, max) 之间的随机整数。
func RandomInt(min, max int64) (int64, error) {
	if max <= min {
		return 0, errors.NewKindErrorf(errors.KindRangeError, "the max (%d) must be greater than the min (%d)", max, min)
	}
	span := new(big.Int).Sub(big.NewInt(max), big.NewInt(min))
	if span.Cmp(big.NewInt(maxRandomIntRange)) > 0 {
		return 0, errors.NewKindErrorf(errors.KindRangeError, "the range max - min must be at most 2^48, but got %s", span.String())
	}
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, errors.NewErrorf("cannot generate random integer, the error is \"%s\"", err.Error())
	}
	return min + n.Int64(), nil
}

// RandomUUID 返回随机生成的第 4 版 UUID。
func RandomUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.NewErrorf("cannot generate uuid, the error is \"%s\"", err.Error())
	}
	return id.String(), nil
}

/* ------------------------------------------------------------------------------------------ */

// TimingSafeEqual 以与首个不同字节位置无关的时间比较两个字节切片，长度不同时直接返回 false。
func TimingSafeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ZeroBytes 将字节切片的内容全部覆盖为 0。
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
