package factory

import (
	"strings"
	"sync"

	"github.com/tsoniclang/tsonic-node-sub000/common/metrics"
	"github.com/tsoniclang/tsonic-node-sub000/common/metrics/disabled"
	"github.com/tsoniclang/tsonic-node-sub000/common/metrics/prometheus"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/common/task"
	"github.com/tsoniclang/tsonic-node-sub000/csp/interfaces"
	"github.com/tsoniclang/tsonic-node-sub000/csp/keys"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/cipher"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/config"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/hash"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/keystore"
	"github.com/tsoniclang/tsonic-node-sub000/csp/softimpl/sign"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

var logger = mlog.GetLogger("csp.factory", mlog.DebugLevel)

var (
	defaultFactory *CSPFactory
	factoryMutex   sync.Mutex
)

type CSPFactory struct {
	opts *FactoryOpts
	csp  *softimpl.SoftCSPImpl
}

// InitCSPFactoryWithOpts 按照 opts 创建默认的密码服务提供者。再次调用时可以修改除 Kind 以外的配置，
// 新的提供者创建成功后才会替换旧的提供者。
func InitCSPFactoryWithOpts(opts *FactoryOpts) error {
	if opts == nil {
		return errors.NewError("invalid factory options, nil options")
	}

	factoryMutex.Lock()
	defer factoryMutex.Unlock()

	if defaultFactory != nil && !strings.EqualFold(opts.Kind, defaultFactory.opts.Kind) {
		return errors.NewErrorf("once the csp factory's kind is specified, it can not be changed from %s to %s", defaultFactory.opts.Kind, opts.Kind)
	}

	impl, err := createSoftBasedCSP(opts)
	if err != nil {
		return err
	}
	copied := *opts
	defaultFactory = &CSPFactory{opts: &copied, csp: impl}
	logger.Infof("Initialized the %s crypto service provider, security level %d, hash family %s.", opts.Kind, opts.SecurityLevel, opts.HashFamily)
	return nil
}

func GetCSP() (interfaces.CSP, error) {
	impl, err := provider()
	if err != nil {
		return nil, err
	}
	return impl, nil
}

// provider 返回默认的提供者，工厂尚未初始化时使用 DefaultOpts 初始化。
func provider() (*softimpl.SoftCSPImpl, error) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()

	if defaultFactory != nil {
		return defaultFactory.csp, nil
	}
	opts := DefaultOpts()
	impl, err := createSoftBasedCSP(opts)
	if err != nil {
		return nil, err
	}
	defaultFactory = &CSPFactory{opts: opts, csp: impl}
	logger.Debug("The csp factory was not initialized, using the default options.")
	return impl, nil
}

/* ------------------------------------------------------------------------------------------ */

func createSoftBasedCSP(opts *FactoryOpts) (*softimpl.SoftCSPImpl, error) {
	switch strings.ToLower(opts.Kind) {
	case "sw":
	default:
		return nil, errors.NewErrorf("unknown crypto service provider mode \"%s\"", opts.Kind)
	}

	var ks interfaces.KeyStore
	var err error
	if opts.KeyStorePath == "" {
		ks = keystore.NewInMemoryKeyStore()
	} else if ks, err = keystore.NewFileBasedKeyStore(opts.KeyStorePath, []byte(opts.KeyStorePassphrase), opts.ReadOnly); err != nil {
		return nil, errors.NewErrorf("cannot create crypto service provider based on soft ware, the error is \"%s\"", err.Error())
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, errors.NewKindErrorf(errors.KindOf(err), "cannot create crypto service provider based on soft ware, the error is \"%s\"", err.Error())
	}

	mp, err := metricsProvider(opts.Metrics)
	if err != nil {
		return nil, err
	}

	softImpl, err := softimpl.NewSoftCSPImpl(ks, cfg, softimpl.NewMetrics(mp))
	if err != nil {
		return nil, errors.NewErrorf("cannot create crypto service provider based on soft ware, the error is \"%s\"", err.Error())
	}

	if err = registerWidgets(softImpl); err != nil {
		return nil, err
	}

	if opts.AsyncWorkers > 0 {
		task.SetDefaultPool(task.NewPool(opts.AsyncWorkers))
	}

	return softImpl, nil
}

func newConfig(opts *FactoryOpts) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.SetSecurityLevel(opts.SecurityLevel, opts.HashFamily); err != nil {
		return nil, err
	}
	if opts.DHPrimeCertainty != 0 {
		if err := cfg.SetPrimeCertainty(opts.DHPrimeCertainty); err != nil {
			return nil, err
		}
	}
	if opts.AuthTagLength != 0 {
		if err := cfg.SetAuthTagLength(opts.AuthTagLength); err != nil {
			return nil, err
		}
	}
	if opts.ModulusLength != 0 {
		if err := cfg.SetModulusLength(opts.ModulusLength); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func metricsProvider(name string) (metrics.Provider, error) {
	switch strings.ToLower(name) {
	case "", "disabled":
		return &disabled.Provider{}, nil
	case "prometheus":
		return &prometheus.Provider{}, nil
	default:
		return nil, errors.NewErrorf("unknown metrics provider \"%s\"", name)
	}
}

func registerWidgets(impl *softimpl.SoftCSPImpl) error {
	// Hash
	for _, alg := range hash.Builtin() {
		if err := softimpl.RegisterWidget(impl, alg.Name, alg); err != nil {
			return err
		}
	}

	// Encrypt & Decrypt
	for _, suite := range cipher.Builtin() {
		if err := softimpl.RegisterWidget(impl, suite.Name, suite); err != nil {
			return err
		}
	}

	// Key Gen
	for _, typ := range []string{"aes", "hmac", keys.RSA, keys.EC, keys.Ed25519, keys.Ed448, keys.DSA, keys.DH, keys.X25519} {
		if err := softimpl.RegisterWidget(impl, typ, keys.NewGenerator()); err != nil {
			return err
		}
	}

	// Key Import
	importers := map[string]interfaces.KeyImporter{
		keys.ImportSecret:  keys.NewSecretImporter(),
		keys.ImportPublic:  keys.NewPublicImporter(),
		keys.ImportPrivate: keys.NewPrivateImporter(),
	}
	for name, importer := range importers {
		if err := softimpl.RegisterWidget(impl, name, importer); err != nil {
			return err
		}
	}

	// Sign & Verify
	for _, typ := range []string{keys.RSA, keys.EC, keys.DSA, keys.Ed25519, keys.Ed448} {
		if err := softimpl.RegisterWidget(impl, typ, sign.NewSigner()); err != nil {
			return err
		}
		if err := softimpl.RegisterWidget(impl, typ, sign.NewVerifier()); err != nil {
			return err
		}
	}

	return nil
}
