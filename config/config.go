package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

/* ------------------------------------------------------------------------------------------ */

const (
	// OfficialPath 是系统级配置文件的默认存放目录。
	OfficialPath = "/etc/tsonic/crypto"

	// ConfigPathEnv 若设置了该环境变量，则只在其指向的目录中寻找配置文件。
	ConfigPathEnv = "CSP_CONFIG_PATH"

	// DefaultConfigName 是默认配置文件的名字（不含扩展名）。
	DefaultConfigName = "core"
)

func dirExists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.IsDir()
}

func AddConfigPath(v *viper.Viper, path string) {
	if v != nil {
		v.AddConfigPath(path)
	} else {
		viper.AddConfigPath(path)
	}
}

// TranslatePath 判断给定的路径（第二个参数）是否是绝对路径，若是，直接返回此路径，否则返回
// base/path。
func TranslatePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// TranslatePathInPlace 判断给定的路径（第二个参数）是否是绝对路径，若是，不做任何处理，否则
// 让第二个参数 path = base/path。
func TranslatePathInPlace(base string, path *string) {
	*path = TranslatePath(base, *path)
}

// GetPath 读取全局 viper 中 key 对应的路径，相对路径以配置文件所在目录为基准。
func GetPath(key string) string {
	path := viper.GetString(key)
	if path == "" {
		return ""
	}

	return TranslatePath(filepath.Dir(viper.ConfigFileUsed()), path)
}

// InitViper 为 viper 设置配置文件的搜索路径与文件名，v 为空时作用于全局 viper。
func InitViper(v *viper.Viper, configName string) error {
	altPath := os.Getenv(ConfigPathEnv)
	if altPath != "" {
		if !dirExists(altPath) {
			return errors.NewErrorf("%s %s does not exist", ConfigPathEnv, altPath)
		}

		AddConfigPath(v, altPath)
	} else {
		AddConfigPath(v, "./")

		if dirExists(OfficialPath) {
			AddConfigPath(v, OfficialPath)
		}
	}

	if configName == "" {
		configName = DefaultConfigName
	}
	if v != nil {
		v.SetConfigName(configName)
	} else {
		viper.SetConfigName(configName)
	}

	return nil
}

// Load 在 dir 目录（为空时按照 InitViper 的规则搜索）中读取名为 name 的 yaml 配置文件。
func Load(dir, name string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if dir != "" {
		if !dirExists(dir) {
			return nil, errors.NewErrorf("config directory %s does not exist", dir)
		}
		v.AddConfigPath(dir)
		if name == "" {
			name = DefaultConfigName
		}
		v.SetConfigName(name)
	} else if err := InitViper(v, name); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewErrorf("failed reading config file, the error is \"%s\"", err.Error())
	}
	return v, nil
}
