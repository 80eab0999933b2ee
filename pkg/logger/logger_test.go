package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init("debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitWithOptionsFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, InitWithOptions(Options{Level: "chatty", Development: true}))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("sessions").Info("module test", TokenFingerprint("abcdef0123456789abcdef"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "sessions", entries[0].ContextMap()["module"])
	require.Equal(t, "abcdef012345", entries[0].ContextMap()["token_fp"])
}
