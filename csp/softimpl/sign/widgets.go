package sign

import (
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

type Signer struct{}

func NewSigner() *Signer {
	return &Signer{}
}

// Sign 此方法传入的第一个参数必须是私钥 *keys.KeyObject，opts 为 *Opts 时读取其中的填充与编码设置，否则只读取摘要算法名称。
func (*Signer) Sign(key interfaces.Key, msg []byte, opts interfaces.SignerOpts) ([]byte, error) {
	ko, err := keyObject(key)
	if err != nil {
		return nil, err
	}
	o := toOpts(opts)
	return SignMessage(o.Hash, msg, ko, o)
}

/* ------------------------------------------------------------------------------------------ */

type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify 此方法传入的第一个参数必须是 *keys.KeyObject，公钥或私钥均可。
func (*Verifier) Verify(key interfaces.Key, signature, msg []byte, opts interfaces.SignerOpts) (bool, error) {
	ko, err := keyObject(key)
	if err != nil {
		return false, err
	}
	o := toOpts(opts)
	return VerifyMessage(o.Hash, msg, ko, signature, o)
}

/* ------------------------------------------------------------------------------------------ */

func keyObject(key interfaces.Key) (*keys.KeyObject, error) {
	ko, ok := key.(*keys.KeyObject)
	if !ok || ko == nil {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "invalid key, expected *keys.KeyObject, but got \"%T\"", key)
	}
	return ko, nil
}

func toOpts(opts interfaces.SignerOpts) *Opts {
	switch o := opts.(type) {
	case *Opts:
		if o != nil {
			return o
		}
	case nil:
	default:
		return &Opts{Hash: o.Algorithm()}
	}
	return &Opts{}
}
