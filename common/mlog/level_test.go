package mlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, WarnLevel, ParseLevel("warn"))
	require.Equal(t, NaN, ParseLevel("verbose"))
	require.Equal(t, "panic", PanicLevel.String())
	require.Contains(t, ErrorLevel.ColorString(), "error")
}
