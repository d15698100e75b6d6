package mlog_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tsoniclang/tsonic-node-sub000/common/mlog"
)

func TestLog(t *testing.T) {
	l := mlog.GetLogger("test-module", mlog.DebugLevel, true)
	l.Debug("哈哈哈哈哈哈👌")
	l.Debugf("%s 哈哈哈哈哈哈👌", "7671236")
	l.Info("哈哈哈哈哈哈👌")
	l.Infof("%s 哈哈哈哈哈哈👌", "7671236")
	l.Warn("哈哈哈哈哈哈👌")
	l.Warnf("%s 哈哈哈哈哈哈👌", "7671236")
	l.Error("哈哈哈哈哈哈👌")
	l.Errorf("%s 哈哈哈哈哈哈👌", "7671236")
	l.Panic("哈哈哈哈哈哈👌")
	l.Panicf("%s 哈哈哈哈哈哈👌", "7671236")

	kv := l.With("engine", "cipher")
	require.Equal(t, kv, l.With("engine", "cipher"))
	kv.Info("with context")
}

func TestConfigureWritesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, mlog.Configure(mlog.Config{Level: "debug", DirPath: dir, SingleFileMaxSize: 1024}))
	defer mlog.SetLevel(mlog.InfoLevel)
	require.Equal(t, mlog.DebugLevel, mlog.GetLevel())

	l := mlog.GetLogger("csp.dh", mlog.DebugLevel)
	l.Warn("prime generation took long")
	require.NoError(t, l.Stop())

	files, err := os.ReadDir(filepath.Join(dir, mlog.WarnLevel.String()))
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestAsync(t *testing.T) {
	names := []string{"hash", "cipher", "dh", "ecdh", "sign", "keys"}
	wg := &sync.WaitGroup{}
	wg.Add(len(names))

	process := func(l mlog.Logger) {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			l.Debug("abcdefghijklmnopqrstuvwxyz1234567890")
			l.Infof("%s abcdefghijklmnopqrstuvwxyz1234567890", "engine")
			l.Warn("abcdefghijklmnopqrstuvwxyz1234567890")
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		}
	}

	for _, name := range names {
		go process(mlog.GetLogger(name, mlog.DebugLevel, true))
	}
	wg.Wait()
}

func Benchmark(b *testing.B) {
	l1 := mlog.GetLogger("peer1", mlog.DebugLevel, true)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l1.Debug("abcdefghijklmnopqrstuvwxyz1234567890")
	}
}
