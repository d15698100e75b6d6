package factory

import (
	"path/filepath"

	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
	"github.com/tsoniclang/tsonic-node-sub000/config"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// FactoryOpts 对应配置文件中的 csp 一节，零值字段使用软件实现的默认参数。
type FactoryOpts struct {
	Kind               string `json:"kind" yaml:"Kind"`
	KeyStorePath       string `json:"key_store_path" yaml:"KeyStorePath"`
	KeyStorePassphrase string `json:"key_store_passphrase" yaml:"KeyStorePassphrase"`
	SecurityLevel      int    `json:"security_level" yaml:"SecurityLevel"`
	HashFamily         string `json:"hash_family" yaml:"HashFamily"`
	ReadOnly           bool   `json:"read_only" yaml:"ReadOnly"`
	Metrics            string `json:"metrics" yaml:"Metrics"`
	DHPrimeCertainty   int    `json:"dh_prime_certainty" yaml:"DHPrimeCertainty"`
	AuthTagLength      int    `json:"auth_tag_length" yaml:"AuthTagLength"`
	ModulusLength      int    `json:"modulus_length" yaml:"ModulusLength"`
	AsyncWorkers       int    `json:"async_workers" yaml:"AsyncWorkers"`
}

// DefaultOpts 返回密钥只保存在内存中、不记录度量指标的软件实现配置。
func DefaultOpts() *FactoryOpts {
	return &FactoryOpts{
		Kind:          "sw",
		SecurityLevel: 256,
		HashFamily:    "SHA2",
		Metrics:       "disabled",
	}
}

// ReadConfig 按照 config.InitViper 的规则找到 core.yaml，读取其中的 csp 一节，并按照 log 一节调整日志。
// 相对的 KeyStorePath 以配置文件所在目录为基准。
func ReadConfig() (*FactoryOpts, error) {
	return ReadConfigFrom("", "")
}

// ReadConfigFrom 从 dir 目录中名为 name 的配置文件读取配置，dir 为空时与 ReadConfig 相同。
func ReadConfigFrom(dir, name string) (*FactoryOpts, error) {
	v, err := config.Load(dir, name)
	if err != nil {
		return nil, err
	}

	opts := DefaultOpts()
	if err = v.UnmarshalKey("csp", opts); err != nil {
		return nil, errors.NewErrorf("cannot read config file, the error is \"%s\"", err.Error())
	}
	if opts.KeyStorePath != "" {
		config.TranslatePathInPlace(filepath.Dir(v.ConfigFileUsed()), &opts.KeyStorePath)
	}

	logCfg := mlog.Config{}
	if err = v.UnmarshalKey("log", &logCfg); err != nil {
		return nil, errors.NewErrorf("cannot read log config, the error is \"%s\"", err.Error())
	}
	if err = mlog.Configure(logCfg); err != nil {
		return nil, errors.NewErrorf("failed configuring logger, the error is \"%s\"", err.Error())
	}

	return opts, nil
}
