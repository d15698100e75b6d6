package keystore

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/utils"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.keystore", mlog.DebugLevel)

/* ------------------------------------------------------------------------------------------ */

const (
	key = "key"
	sk  = "sk"
	pk  = "pk"

	// 设置了口令时私钥以该算法加密后落盘。
	storeCipher = "aes-256-cbc"
)

/* ------------------------------------------------------------------------------------------ */

type fileBasedKeyStore struct {
	path       string
	readOnly   bool
	passphrase []byte
	mutex      *sync.Mutex
}

// NewFileBasedKeyStore 创建基于文件的密钥仓库，每个密钥以 "<ski>_<后缀>" 的文件名保存为 PEM 文件：
//
//	sk   私钥，PKCS8 容器，passphrase 非空时以口令加密
//	pk   公钥，SPKI 容器
//	key  对称密钥
func NewFileBasedKeyStore(path string, passphrase []byte, readOnly bool) (interfaces.KeyStore, error) {
	if len(path) == 0 {
		return nil, errors.NewError("the file path to store the keys is not specified")
	}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err = os.MkdirAll(path, os.FileMode(0755)); err != nil {
			return nil, errors.NewErrorf("cannot create a directory for key store at \"%s\", the error is \"%s\"", path, err.Error())
		}
	}

	return &fileBasedKeyStore{
		path:       path,
		readOnly:   readOnly,
		passphrase: append([]byte(nil), passphrase...),
		mutex:      &sync.Mutex{},
	}, nil
}

func (ks *fileBasedKeyStore) ReadOnly() bool {
	return ks.readOnly
}

func (ks *fileBasedKeyStore) GetKey(ski []byte) (interfaces.Key, error) {
	if len(ski) == 0 {
		return nil, errors.NewError("invalid subject key identifier, nil subject key identifier")
	}

	ks.mutex.Lock()
	defer ks.mutex.Unlock()

	suffix := ks.getSuffix(hex.EncodeToString(ski))

	keyPath := filepath.Join(ks.path, hex.EncodeToString(ski)+"_"+suffix)
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.NewErrorf("cannot get the key \"%s\", the error is \"%s\"", keyPath, err.Error())
	}

	switch suffix {
	case sk:
		privateKey, err := keys.ParsePrivateKey(raw, ks.passphrase)
		if err != nil {
			return nil, errors.NewErrorf("cannot get the private key at \"%s\", the error is \"%s\"", keyPath, err.Error())
		}
		return privateKey, nil
	case pk:
		publicKey, err := keys.ParsePublicKey(raw)
		if err != nil {
			return nil, errors.NewErrorf("cannot get the public key at \"%s\", the error is \"%s\"", keyPath, err.Error())
		}
		return publicKey, nil
	case key:
		secret, err := utils.PEMToSecret(raw)
		if err != nil {
			return nil, errors.NewErrorf("cannot get the secret key at \"%s\", the error is \"%s\"", keyPath, err.Error())
		}
		return keys.NewSecretKey(secret), nil
	default:
		return nil, errors.NewErrorf("cannot search for the key at \"%s\"", keyPath)
	}
}

func (ks *fileBasedKeyStore) StoreKey(k interfaces.Key) error {
	if ks.readOnly {
		return errors.NewError("the read-only key store cannot be overwritten")
	}

	kk, ok := k.(*keys.KeyObject)
	if !ok || kk == nil {
		return errors.NewErrorf("cannot store the key, because the type of the provided key is \"%T\", cannot recognized this type of the key", k)
	}
	if kk.Closed() {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "cannot store a closed key")
	}

	var (
		suffix string
		raw    []byte
		err    error
	)
	switch kk.Type() {
	case keys.TypeSecret:
		suffix = key
		var secret []byte
		if secret, err = kk.SecretBytes(); err == nil {
			raw = utils.SecretToPEM(secret)
			utils.ZeroBytes(secret)
		}
	case keys.TypePrivate:
		suffix = sk
		opts := &keys.ExportOpts{Format: keys.FormatPEM, Type: keys.EncodingPKCS8}
		if len(ks.passphrase) > 0 {
			opts.Cipher = storeCipher
			opts.Passphrase = ks.passphrase
		}
		raw, err = kk.Export(opts)
	default:
		suffix = pk
		raw, err = kk.Export(&keys.ExportOpts{Format: keys.FormatPEM, Type: keys.EncodingSPKI})
	}
	if err != nil {
		return errors.NewErrorf("cannot store the %s key, the error is \"%s\"", kk.Type(), err.Error())
	}

	ks.mutex.Lock()
	defer ks.mutex.Unlock()

	keyPath := filepath.Join(ks.path, hex.EncodeToString(kk.SKI())+"_"+suffix)
	if err = os.WriteFile(keyPath, raw, os.FileMode(0600)); err != nil {
		return errors.NewErrorf("cannot store the %s key, the error is \"%s\"", kk.Type(), err.Error())
	}
	logger.Debugf("Stored %s key at \"%s\".", kk.Type(), keyPath)
	return nil
}

/* ------------------------------------------------------------------------------------------ */

// getSuffix 私钥与其公钥拥有相同的 SKI，两者同时存在时优先返回私钥。
func (ks *fileBasedKeyStore) getSuffix(skiStr string) string {
	files, _ := os.ReadDir(ks.path)
	found := ""
	for _, file := range files {
		if !strings.HasPrefix(file.Name(), skiStr+"_") {
			continue
		}
		switch {
		case strings.HasSuffix(file.Name(), "_"+sk):
			return sk
		case strings.HasSuffix(file.Name(), "_"+pk):
			found = pk
		case strings.HasSuffix(file.Name(), "_"+key):
			found = key
		}
	}
	return found
}

/* ------------------------------------------------------------------------------------------ */

type inMemoryKeyStore struct {
	keys  map[string]*keys.KeyObject
	mutex sync.RWMutex
}

// NewInMemoryKeyStore 创建只存在于内存中的密钥仓库，临时密钥以及测试使用。
func NewInMemoryKeyStore() interfaces.KeyStore {
	return &inMemoryKeyStore{keys: make(map[string]*keys.KeyObject)}
}

func (ks *inMemoryKeyStore) ReadOnly() bool {
	return false
}

func (ks *inMemoryKeyStore) GetKey(ski []byte) (interfaces.Key, error) {
	if len(ski) == 0 {
		return nil, errors.NewError("invalid subject key identifier, nil subject key identifier")
	}
	ks.mutex.RLock()
	defer ks.mutex.RUnlock()
	k, ok := ks.keys[hex.EncodeToString(ski)]
	if !ok {
		return nil, errors.NewErrorf("cannot find the key with ski \"%x\"", ski)
	}
	if k.Closed() {
		return nil, errors.NewKindErrorf(errors.KindInvalidKeyMaterial, "the key with ski \"%x\" has been closed", ski)
	}
	return k, nil
}

func (ks *inMemoryKeyStore) StoreKey(k interfaces.Key) error {
	kk, ok := k.(*keys.KeyObject)
	if !ok || kk == nil {
		return errors.NewErrorf("cannot store the key, because the type of the provided key is \"%T\", cannot recognized this type of the key", k)
	}
	ski := kk.SKI()
	if ski == nil {
		return errors.NewKindError(errors.KindInvalidKeyMaterial, "cannot store a closed key")
	}
	ks.mutex.Lock()
	defer ks.mutex.Unlock()
	id := hex.EncodeToString(ski)
	// 私钥不会被对应的公钥覆盖。
	if existing, ok := ks.keys[id]; ok && existing.Type() == keys.TypePrivate && kk.Type() == keys.TypePublic && !existing.Closed() {
		return nil
	}
	ks.keys[id] = kk
	return nil
}
