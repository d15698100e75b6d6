package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
	"strings"

	"github.com/tsoniclang/tsonic-node-sub000/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

/* ------------------------------------------------------------------------------------------ */

type Mode string

const (
	ModeECB  Mode = "ecb"
	ModeCBC  Mode = "cbc"
	ModeCFB  Mode = "cfb"
	ModeOFB  Mode = "ofb"
	ModeCTR  Mode = "ctr"
	ModeGCM  Mode = "gcm"
	ModeAEAD Mode = "aead"
)

// Suite 描述一个对称加密算法：分组密码族、密钥长度、初始向量长度与工作模式。
type Suite struct {
	Name    string
	Family  string
	KeySize int
	// IVSize 为 0 表示该模式不使用初始向量，GCM 的 IVSize 是推荐长度，实际可以接受任意非零长度。
	IVSize    int
	BlockSize int
	Mode      Mode

	NewBlock func(key []byte) (cipher.Block, error)
	NewAEAD  func(key []byte) (cipher.AEAD, error)

	// Unsupported 非空时表示该算法名称可以被识别，但是没有可用的底层实现。
	Unsupported string
}

// AEAD 判断该算法是否是带认证的加密模式。
func (s *Suite) AEAD() bool {
	return s.Mode == ModeGCM || s.Mode == ModeAEAD
}

// Streaming 判断该算法是否以流的方式工作，不需要填充。
func (s *Suite) Streaming() bool {
	return s.Mode == ModeCFB || s.Mode == ModeOFB || s.Mode == ModeCTR
}

/* ------------------------------------------------------------------------------------------ */

// newTripleDES 接受 24 字节的三密钥或 16 字节的双密钥（K1‖K2‖K1）。
func newTripleDES(key []byte) (cipher.Block, error) {
	if len(key) == 16 {
		k := make([]byte, 24)
		copy(k, key)
		copy(k[16:], key[:8])
		return des.NewTripleDESCipher(k)
	}
	return des.NewTripleDESCipher(key)
}

func newChaCha20Poly1305(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

var blockModes = []Mode{ModeECB, ModeCBC, ModeCFB, ModeOFB}

// Builtin 返回所有内置的对称加密算法。
func Builtin() []*Suite {
	var suites []*Suite

	for _, bits := range []int{128, 192, 256} {
		for _, mode := range []Mode{ModeECB, ModeCBC, ModeCFB, ModeOFB, ModeCTR, ModeGCM} {
			s := &Suite{
				Name:      fmt.Sprintf("aes-%d-%s", bits, mode),
				Family:    "aes",
				KeySize:   bits / 8,
				IVSize:    aes.BlockSize,
				BlockSize: aes.BlockSize,
				Mode:      mode,
				NewBlock:  aes.NewCipher,
			}
			switch mode {
			case ModeECB:
				s.IVSize = 0
			case ModeGCM:
				s.IVSize = 12
			}
			suites = append(suites, s)
		}
	}

	for _, mode := range blockModes {
		s := &Suite{Name: "des-" + string(mode), Family: "des", KeySize: 8, IVSize: des.BlockSize, BlockSize: des.BlockSize, Mode: mode, NewBlock: des.NewCipher}
		if mode == ModeECB {
			s.IVSize = 0
		}
		suites = append(suites, s)
	}

	for _, family := range []struct {
		prefix  string
		keySize int
	}{{"des-ede3", 24}, {"des-ede", 16}} {
		for _, mode := range blockModes {
			name := family.prefix + "-" + string(mode)
			ivSize := des.BlockSize
			if mode == ModeECB {
				// des-ede3 与 des-ede 本身即表示 ECB 模式。
				name = family.prefix
				ivSize = 0
			}
			suites = append(suites, &Suite{Name: name, Family: family.prefix, KeySize: family.keySize, IVSize: ivSize, BlockSize: des.BlockSize, Mode: mode, NewBlock: newTripleDES})
		}
	}

	suites = append(suites, &Suite{
		Name:      "chacha20-poly1305",
		Family:    "chacha20-poly1305",
		KeySize:   chacha20poly1305.KeySize,
		IVSize:    chacha20poly1305.NonceSize,
		BlockSize: 1,
		Mode:      ModeAEAD,
		NewAEAD:   newChaCha20Poly1305,
	})

	for _, rc2 := range []struct {
		name    string
		keySize int
		mode    Mode
	}{{"rc2-cbc", 16, ModeCBC}, {"rc2-ecb", 16, ModeECB}, {"rc2-cfb", 16, ModeCFB}, {"rc2-ofb", 16, ModeOFB}, {"rc2-40-cbc", 5, ModeCBC}, {"rc2-64-cbc", 8, ModeCBC}} {
		suites = append(suites, &Suite{Name: rc2.name, Family: "rc2", KeySize: rc2.keySize, IVSize: 8, BlockSize: 8, Mode: rc2.mode, Unsupported: "no rc2 block cipher primitive is available"})
	}

	return suites
}

var aliases = map[string]string{
	"aes128":        "aes-128-cbc",
	"aes192":        "aes-192-cbc",
	"aes256":        "aes-256-cbc",
	"des":           "des-cbc",
	"des3":          "des-ede3-cbc",
	"des-ede3-ecb":  "des-ede3",
	"des-ede-ecb":   "des-ede",
	"id-aes128-gcm": "aes-128-gcm",
	"id-aes192-gcm": "aes-192-gcm",
	"id-aes256-gcm": "aes-256-gcm",
	"rc2":           "rc2-cbc",
}

// Normalize 将算法名称规范化为 <family>-<keysize>-<mode> 形式的小写名称。
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[n]; ok {
		return alias
	}
	return n
}

/* ------------------------------------------------------------------------------------------ */

func (s *Suite) validateKeyIV(key, iv []byte) error {
	if s.Unsupported != "" {
		return errors.NewKindErrorf(errors.KindUnsupported, "cipher %s is not supported, the error is \"%s\"", s.Name, s.Unsupported)
	}
	if len(key) != s.KeySize {
		return errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid key length %d for %s, expected %d", len(key), s.Name, s.KeySize)
	}
	switch {
	case s.Mode == ModeGCM:
		if len(iv) == 0 {
			return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid initialization vector length 0 for %s", s.Name)
		}
	case len(iv) != s.IVSize:
		return errors.NewKindErrorf(errors.KindInvalidArgument, "invalid initialization vector length %d for %s, expected %d", len(iv), s.Name, s.IVSize)
	}
	return nil
}
