package configtest

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestSourceDevConfigDir(t *testing.T) {
	devPath, err := sourceDevConfigDir()
	require.NoError(t, err)
	require.Equal(t, "sampleconfig", filepath.Base(devPath))
}

func TestAddDevConfigPath(t *testing.T) {
	v := viper.New()
	AddDevConfigPath(v)
	v.SetConfigName("core")
	require.NoError(t, v.ReadInConfig())
	require.Equal(t, "sw", v.GetString("csp.kind"))
}
