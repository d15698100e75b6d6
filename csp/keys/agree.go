package keys

import (
	"crypto/ecdh"
	"crypto/ecdsa"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	softdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/dh"
	softecdh "github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/ecdh"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// DiffieHellman 用本方私钥与对方公钥计算共享秘密，两者必须是同一类型、同一组参数的 ec、x25519 或 dh 密钥。
func DiffieHellman(privateKey, publicKey *KeyObject) ([]byte, error) {
	if err := privateKey.usable(); err != nil {
		return nil, err
	}
	if err := publicKey.usable(); err != nil {
		return nil, err
	}
	if privateKey.keyType != TypePrivate {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "diffie-hellman needs a private key on the local side")
	}
	if publicKey.keyType == TypeSecret {
		return nil, errors.NewKindError(errors.KindInvalidArgument, "diffie-hellman needs a public key on the peer side")
	}
	if privateKey.asymmetricType != publicKey.asymmetricType {
		return nil, errors.NewKindErrorf(errors.KindInvalidArgument, "incompatible key types for diffie-hellman: %s and %s", privateKey.asymmetricType, publicKey.asymmetricType)
	}
	peer := publicKey.material
	if publicKey.keyType == TypePrivate {
		peer = publicOf(peer)
	}

	switch priv := privateKey.material.(type) {
	case *ecdsa.PrivateKey:
		pub, ok := peer.(*ecdsa.PublicKey)
		if !ok || pub.Curve != priv.Curve {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "keys are on different curves")
		}
		curve, err := softecdh.LookupCurve(curveName(priv.Curve.Params().Name))
		if err != nil {
			return nil, err
		}
		return curve.SharedSecret(priv.D, pub.X, pub.Y)
	case *secp256k1.PrivateKey:
		pub, ok := peer.(*secp256k1.PublicKey)
		if !ok {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "keys are on different curves")
		}
		return secp256k1.GenerateSharedSecret(priv, pub), nil
	case *ecdh.PrivateKey:
		pub, ok := peer.(*ecdh.PublicKey)
		if !ok || pub.Curve() != priv.Curve() {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "keys are on different curves")
		}
		secret, err := priv.ECDH(pub)
		if err != nil {
			return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "failed computing x25519 secret, the error is \"%s\"", err.Error())
		}
		return secret, nil
	case *DHPrivateKey:
		pub, ok := peer.(*DHPublicKey)
		if !ok || priv.P.Cmp(pub.P) != 0 || priv.G.Cmp(pub.G) != 0 {
			return nil, errors.NewKindError(errors.KindInvalidArgument, "diffie-hellman keys use different groups")
		}
		engine, err := softdh.New(priv.P.Bytes(), priv.G.Bytes())
		if err != nil {
			return nil, err
		}
		if err = engine.SetPrivateKey(priv.X.Bytes()); err != nil {
			return nil, err
		}
		return engine.ComputeSecret(pub.Y.Bytes())
	default:
		return nil, errors.NewKindErrorf(errors.KindUnsupported, "diffie-hellman is not available for %s keys", privateKey.asymmetricType)
	}
}
