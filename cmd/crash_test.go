package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func recordExit(t *testing.T) *[]int {
	t.Helper()

	codes := &[]int{}
	previous := exit
	exit = func(code int) {
		*codes = append(*codes, code)
	}
	t.Cleanup(func() {
		exit = previous
	})

	return codes
}

func TestRecoverCrash_LogsFatalAndExitsWith128(t *testing.T) {
	codes := recordExit(t)
	var out bytes.Buffer

	func() {
		defer recoverCrash(zapcore.AddSync(&out))
		panic("boom")
	}()

	assert.Equal(t, []int{128}, *codes)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "fatal", entry["level"])
	assert.Equal(t, "unexpected failure", entry["msg"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Equal(t, "gatewayd", entry["app"])
}

func TestRecoverCrash_NoPanicDoesNotExit(t *testing.T) {
	codes := recordExit(t)
	var out bytes.Buffer

	func() {
		defer recoverCrash(zapcore.AddSync(&out))
	}()

	assert.Empty(t, *codes)
	assert.Zero(t, out.Len())
}

func TestRun_ExitsWithOneOnUsageError(t *testing.T) {
	codes := recordExit(t)

	run(context.Background(), []string{appName, "--no-such-flag"})

	assert.Equal(t, []int{1}, *codes)
}
