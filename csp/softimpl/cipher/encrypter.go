package cipher

import (
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

// Opts 实现 interfaces.EncrypterOpts 与 interfaces.DecrypterOpts。
// 加密时 IV 为空则随机生成初始向量并放在密文前面，解密时 IV 为空则从密文前部读取初始向量。
// AEAD 模式的认证标签附加在密文末尾。
type Opts struct {
	Name          string
	IV            []byte
	AAD           []byte
	AuthTagLength int
}

func (opts *Opts) Algorithm() string {
	return opts.Name
}

func (opts *Opts) options() []Option {
	if opts.AuthTagLength == 0 {
		return nil
	}
	return []Option{WithAuthTagLength(opts.AuthTagLength)}
}

/* ------------------------------------------------------------------------------------------ */

type Encrypter struct {
	suite *Suite
}

func NewEncrypter(suite *Suite) *Encrypter {
	return &Encrypter{suite: suite}
}

// Encrypt 此方法的第三个参数 EncrypterOpts 要么是 *Opts，要么是 nil。
func (encrypter *Encrypter) Encrypt(key interfaces.Key, plaintext []byte, opts interfaces.EncrypterOpts) ([]byte, error) {
	raw, err := symmetricBytes(key)
	if err != nil {
		return nil, err
	}
	o, err := toOpts(opts)
	if err != nil {
		return nil, err
	}

	iv := o.IV
	var prefix []byte
	if iv == nil && encrypter.suite.IVSize > 0 {
		if iv, err = utils.GetRandomBytes(encrypter.suite.IVSize); err != nil {
			return nil, errors.NewErrorf("failed getting initial vector, the error is \"%s\"", err.Error())
		}
		prefix = iv
	}

	c, err := NewCipheriv(encrypter.suite, raw, iv, o.options()...)
	if err != nil {
		return nil, err
	}
	if o.AAD != nil {
		if err = c.SetAAD(o.AAD); err != nil {
			return nil, err
		}
	}
	body, err := c.Update(plaintext)
	if err != nil {
		return nil, err
	}
	final, err := c.Final()
	if err != nil {
		return nil, err
	}

	out := append(append(append([]byte(nil), prefix...), body...), final...)
	if encrypter.suite.AEAD() {
		tag, _ := c.GetAuthTag()
		out = append(out, tag...)
	}
	return out, nil
}

/* ------------------------------------------------------------------------------------------ */

type Decrypter struct {
	suite *Suite
}

func NewDecrypter(suite *Suite) *Decrypter {
	return &Decrypter{suite: suite}
}

// Decrypt 此方法的第三个参数 DecrypterOpts 要么是 *Opts，要么是 nil。
func (decrypter *Decrypter) Decrypt(key interfaces.Key, ciphertext []byte, opts interfaces.DecrypterOpts) ([]byte, error) {
	raw, err := symmetricBytes(key)
	if err != nil {
		return nil, err
	}
	o, err := toOpts(opts)
	if err != nil {
		return nil, err
	}

	iv := o.IV
	if iv == nil && decrypter.suite.IVSize > 0 {
		if len(ciphertext) < decrypter.suite.IVSize {
			return nil, errors.NewErrorf("invalid ciphertext, the length of the ciphertext must be at least \"%d\"", decrypter.suite.IVSize)
		}
		iv = ciphertext[:decrypter.suite.IVSize]
		ciphertext = ciphertext[decrypter.suite.IVSize:]
	}

	c, err := NewDecipheriv(decrypter.suite, raw, iv, o.options()...)
	if err != nil {
		return nil, err
	}
	if decrypter.suite.AEAD() {
		tagLength := maxTagLength
		if o.AuthTagLength != 0 {
			tagLength = o.AuthTagLength
		}
		if len(ciphertext) < tagLength {
			return nil, errors.NewKindError(errors.KindAuthenticationFailure, "invalid ciphertext, the authentication tag is missing")
		}
		if err = c.SetAuthTag(ciphertext[len(ciphertext)-tagLength:]); err != nil {
			return nil, err
		}
		ciphertext = ciphertext[:len(ciphertext)-tagLength]
		if o.AAD != nil {
			if err = c.SetAAD(o.AAD); err != nil {
				return nil, err
			}
		}
	}
	body, err := c.Update(ciphertext)
	if err != nil {
		return nil, err
	}
	final, err := c.Final()
	if err != nil {
		return nil, err
	}
	return append(body, final...), nil
}

/* ------------------------------------------------------------------------------------------ */

func toOpts(opts interface{}) (*Opts, error) {
	switch o := opts.(type) {
	case nil:
		return &Opts{}, nil
	case *Opts:
		if o == nil {
			return &Opts{}, nil
		}
		return o, nil
	default:
		return nil, errors.NewErrorf("cipher option \"%T\" is not recognized", opts)
	}
}

func symmetricBytes(key interfaces.Key) ([]byte, error) {
	if key == nil || !key.Symmetric() {
		return nil, errors.NewKindError(errors.KindInvalidKeyMaterial, "symmetric encryption requires a secret key")
	}
	raw, err := key.Bytes()
	if err != nil {
		return nil, err
	}
	return raw, nil
}
