package cmd

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// crashExitCode is the exit code of a process brought down by a failure
// nothing else handled.
const crashExitCode = 128

const sentryFlushTimeout = 2 * time.Second

var exit = os.Exit

// terminate flushes pending sentry events and exits with code.
func terminate(code int) {
	sentry.Flush(sentryFlushTimeout)
	exit(code)
}

type exitHook int

func (code exitHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	terminate(int(code))
}

// recoverCrash must be deferred. It reports a panic to sentry, logs it at
// fatal level to out and exits with crashExitCode.
func recoverCrash(out zapcore.WriteSyncer) {
	r := recover()
	if r == nil {
		return
	}

	sentry.CurrentHub().Recover(r)

	log := zap.New(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), out, zap.DebugLevel),
		zap.WithFatalHook(exitHook(crashExitCode)),
		zap.Fields(zap.String("app", appName)),
	)

	log.Fatal("unexpected failure", zap.Any("panic", r), zap.Stack("stacktrace"))
}
