package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestConfigDirExists(t *testing.T) {
	tmpF := os.TempDir()
	exists := dirExists(tmpF)
	require.True(t, exists)

	tmpF = "/blah-" + time.Now().Format(time.RFC3339)
	exists = dirExists(tmpF)
	require.False(t, exists)
}

func TestConfigInitViper(t *testing.T) {
	v := viper.New()
	err := InitViper(v, "")
	require.NoError(t, err)

	err = InitViper(nil, "")
	require.NoError(t, err)

	t.Setenv(ConfigPathEnv, "/blah-"+time.Now().Format(time.RFC3339))
	err = InitViper(viper.New(), "")
	require.Error(t, err)
}

func TestConfigGetPath(t *testing.T) {
	path := GetPath("foo")
	require.Empty(t, path)

	viper.Set("testpath", "/test/config.yaml")
	path = GetPath("testpath")
	require.Equal(t, "/test/config.yaml", path)
}

func TestConfigTranslatePathInPlace(t *testing.T) {
	path := "bar"
	TranslatePathInPlace(OfficialPath, &path)
	require.Equal(t, OfficialPath+"/bar", path)

	path = "/bar"
	TranslatePathInPlace(OfficialPath, &path)
	require.Equal(t, "/bar", path)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := []byte("csp:\n  Kind: sw\n  HashFamily: SHA2\n  SecurityLevel: 256\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yaml"), content, 0600))

	v, err := Load(dir, "")
	require.NoError(t, err)
	require.Equal(t, "sw", v.GetString("csp.kind"))
	require.Equal(t, 256, v.GetInt("csp.securitylevel"))

	_, err = Load(filepath.Join(dir, "missing"), "")
	require.Error(t, err)

	_, err = Load(dir, "absent")
	require.Error(t, err)
}
