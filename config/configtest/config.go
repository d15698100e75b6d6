package configtest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/tsoniclang/tsonic-node-sub000/config"
	"github.com/tsoniclang/tsonic-node-sub000/errors"
)

// AddDevConfigPath 将存放项目的默认配置文件的路径添加到 viper 中。
func AddDevConfigPath(v *viper.Viper) {
	devPath := GetDevConfigDir()
	if v != nil {
		v.AddConfigPath(devPath)
	} else {
		viper.AddConfigPath(devPath)
	}
}

func GetDevConfigDir() string {
	path, err := sourceDevConfigDir()
	if err != nil {
		panic(err)
	}
	return path
}

// SetDevConfigPath 让当前测试通过环境变量使用项目自带的 sampleconfig 目录。
func SetDevConfigPath(t *testing.T) {
	t.Helper()
	t.Setenv(config.ConfigPathEnv, GetDevConfigDir())
}

/* ------------------------------------------------------------------------------------------ */

// sourceDevConfigDir 从本文件所在位置向上查找 sampleconfig 目录。
func sourceDevConfigDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.NewError("failed locating configtest source file")
	}

	dir := filepath.Dir(file)
	for {
		devPath := filepath.Join(dir, "sampleconfig")
		if dirExists(devPath) {
			return devPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.NewErrorf("failed finding sampleconfig directory above %s", filepath.Dir(file))
		}
		dir = parent
	}
}

func dirExists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.IsDir()
}
