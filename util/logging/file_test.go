package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/relaynet/gatewayd/util/logging"
)

func TestWithFile_WritesToBothOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	core, logs := observer.New(zapcore.DebugLevel)

	log, closeFile := logging.WithFile(zap.New(core), path, zapcore.InfoLevel)

	log.Debug("not in file")
	log.Info("started parcel collection subprocess", zap.Uint64("generation", 1))
	require.NoError(t, log.Sync())
	require.NoError(t, closeFile())

	assert.Equal(t, 2, logs.Len())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"started parcel collection subprocess"`)
	assert.Contains(t, string(content), `"generation":1`)
	assert.NotContains(t, string(content), "not in file")
}
