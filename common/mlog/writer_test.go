package mlog

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func createRandomEntry() *entry {
	r := rand.Intn(5)
	return newEntry(now(), "csp.hash", Level(r+1), "digest computed", "alg=sha256", true)
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	mfw, err := NewMultiFileWriter(dir, 4096)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, mfw.WriteEntry(createRandomEntry()))
	}
	require.NoError(t, mfw.Close())

	for _, lvl := range allLevels {
		files, err := os.ReadDir(filepath.Join(dir, lvl.String()))
		require.NoError(t, err)
		require.NotEmpty(t, files)
	}
}

func TestFileWriterResume(t *testing.T) {
	dir := t.TempDir()
	mfw, err := NewMultiFileWriter(dir, 0)
	require.NoError(t, err)
	require.NoError(t, mfw.WriteEntry(newEntry(now(), "csp", InfoLevel, "first", "", false)))
	require.NoError(t, mfw.Close())

	mfw, err = NewMultiFileWriter(dir, 0)
	require.NoError(t, err)
	fw := mfw.(*multiFileWriter).writers[InfoLevel.String()]
	require.Equal(t, uint32(1), fw.num)
	require.NotZero(t, fw.alreadyWritten)
	require.NoError(t, mfw.Close())
}

func TestNilWriter(t *testing.T) {
	mfw, err := NewMultiFileWriter(t.TempDir(), 0)
	require.NoError(t, err)
	mfw.(*multiFileWriter).writers[DebugLevel.String()] = nil
	require.NoError(t, mfw.WriteEntry(newEntry(now(), "csp", DebugLevel, "dropped", "", false)))
}
