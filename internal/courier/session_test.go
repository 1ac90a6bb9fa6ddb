package courier_test

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/relaynet/gatewayd/internal/courier"
)

// MARK: - fakes

type fakeTransport struct {
	mu       sync.Mutex
	events   []string
	closes   []courier.CloseStatus
	writeErr error
	gate     chan struct{}
}

func (f *fakeTransport) WriteMessage(ctx context.Context, data []byte) error {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	f.events = append(f.events, "write:"+string(data))

	return nil
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, fmt.Sprintf("close:%d", code))
	f.closes = append(f.closes, courier.CloseStatus{Code: code, Reason: reason})

	return nil
}

func (f *fakeTransport) recorded() ([]string, []courier.CloseStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.events...), append([]courier.CloseStatus(nil), f.closes...)
}

// fakeReporter is a sentry transport keeping the events it is sent.
type fakeReporter struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (f *fakeReporter) Flush(time.Duration) bool { return true }

func (f *fakeReporter) Configure(sentry.ClientOptions) {}

func (f *fakeReporter) SendEvent(event *sentry.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, event)
}

func (f *fakeReporter) sent() []*sentry.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*sentry.Event(nil), f.events...)
}

func stages(items ...courier.Stage) iter.Seq2[courier.Stage, error] {
	return func(yield func(courier.Stage, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func failing(err error, before ...courier.Stage) iter.Seq2[courier.Stage, error] {
	return func(yield func(courier.Stage, error) bool) {
		for _, item := range before {
			if !yield(item, nil) {
				return
			}
		}
		yield("", err)
	}
}

func createSession(transport courier.Transport) (*courier.Session, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return courier.NewSession(transport, courier.SessionParams{
		Log: zap.New(core),
	}), logs
}

func createReportingSession(t *testing.T, transport courier.Transport) (*courier.Session, *fakeReporter) {
	t.Helper()

	reporter := &fakeReporter{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: reporter})
	require.NoError(t, err)

	return courier.NewSession(transport, courier.SessionParams{
		Hub: sentry.NewHub(client, sentry.NewScope()),
		Log: zap.NewNop(),
	}), reporter
}

// MARK: - tests

func TestSession_Run_CompletesWithNormalClosure(t *testing.T) {
	transport := &fakeTransport{}
	session, _ := createSession(transport)

	status := session.Run(context.Background(), stages(
		courier.StageCollection,
		courier.StageWait,
		courier.StageDelivery,
	))

	assert.Equal(t, courier.CloseStatus{Code: courier.CloseNormal}, status)

	events, closes := transport.recorded()
	assert.Equal(t, []string{
		"write:COLLECTION",
		"write:WAIT",
		"write:DELIVERY",
		"close:1000",
	}, events)
	assert.Equal(t, []courier.CloseStatus{{Code: 1000, Reason: ""}}, closes)
}

func TestSession_Run_EmptySequenceClosesNormally(t *testing.T) {
	transport := &fakeTransport{}
	session, _ := createSession(transport)

	status := session.Run(context.Background(), stages())

	assert.Equal(t, courier.CloseNormal, status.Code)
	_, closes := transport.recorded()
	assert.Len(t, closes, 1)
}

func TestSession_Run_ClosesOnlyAfterLastWriteFlushed(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	session, _ := createSession(transport)

	done := make(chan courier.CloseStatus, 1)
	go func() {
		done <- session.Run(context.Background(), stages(courier.StageDelivery))
	}()

	// the write is pending, so the transport must still be open
	time.Sleep(20 * time.Millisecond)
	_, closes := transport.recorded()
	assert.Empty(t, closes)

	close(transport.gate)

	assert.Equal(t, courier.CloseNormal, (<-done).Code)
	events, _ := transport.recorded()
	assert.Equal(t, []string{"write:DELIVERY", "close:1000"}, events)
}

func TestSession_Run_AppliesBackpressure(t *testing.T) {
	transport := &fakeTransport{gate: make(chan struct{})}
	session, _ := createSession(transport)

	var mu sync.Mutex
	produced := 0
	seq := func(yield func(courier.Stage, error) bool) {
		for _, stage := range []courier.Stage{courier.StageCollection, courier.StageWait} {
			mu.Lock()
			produced++
			mu.Unlock()
			if !yield(stage, nil) {
				return
			}
		}
	}

	done := make(chan courier.CloseStatus, 1)
	go func() {
		done <- session.Run(context.Background(), seq)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, produced)
	mu.Unlock()

	close(transport.gate)
	<-done

	mu.Lock()
	assert.Equal(t, 2, produced)
	mu.Unlock()
}

func TestSession_Run_UnregisteredGateway(t *testing.T) {
	transport := &fakeTransport{}
	session, logs := createSession(transport)

	status := session.Run(context.Background(), failing(courier.ErrUnregisteredGateway))

	assert.Equal(t, courier.CloseStatus{
		Code:   4000,
		Reason: "Gateway is not yet registered",
	}, status)
	_, closes := transport.recorded()
	assert.Equal(t, []courier.CloseStatus{status}, closes)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).
		FilterMessage("aborting courier sync because gateway is unregistered").Len())
}

func TestSession_Run_DisconnectedFromCourier(t *testing.T) {
	transport := &fakeTransport{}
	session, logs := createSession(transport)

	err := fmt.Errorf("%w: connection refused", courier.ErrDisconnectedFromCourier)
	status := session.Run(context.Background(), failing(err, courier.StageCollection))

	assert.Equal(t, courier.CloseStatus{
		Code:   4001,
		Reason: "Device is not connected to a courier",
	}, status)
	events, _ := transport.recorded()
	assert.Equal(t, []string{"write:COLLECTION", "close:4001"}, events)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).
		FilterMessage("aborting courier sync because device is not connected to a courier").Len())
}

func TestSession_Run_UnexpectedError(t *testing.T) {
	transport := &fakeTransport{}
	session, logs := createSession(transport)

	status := session.Run(context.Background(), failing(assert.AnError))

	assert.Equal(t, courier.CloseStatus{
		Code:   1011,
		Reason: "Internal server error",
	}, status)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).
		FilterMessage("unexpected error when syncing with courier")
	require.Equal(t, 1, errorLogs.Len())
	assert.Equal(t, assert.AnError.Error(), errorLogs.All()[0].ContextMap()["error"])
}

func TestSession_Run_WriteFailureIsInternalError(t *testing.T) {
	transport := &fakeTransport{writeErr: assert.AnError}
	session, _ := createSession(transport)

	status := session.Run(context.Background(), stages(courier.StageCollection, courier.StageWait))

	assert.Equal(t, courier.CloseInternalError, status.Code)
	events, closes := transport.recorded()
	assert.Equal(t, []string{"close:1011"}, events)
	assert.Len(t, closes, 1)
}

func TestSession_Run_PanicIsInternalError(t *testing.T) {
	transport := &fakeTransport{}
	session, _ := createSession(transport)

	seq := func(yield func(courier.Stage, error) bool) {
		if !yield(courier.StageCollection, nil) {
			return
		}
		panic("boom")
	}

	status := session.Run(context.Background(), seq)

	assert.Equal(t, courier.CloseInternalError, status.Code)
	events, _ := transport.recorded()
	assert.Equal(t, []string{"write:COLLECTION", "close:1011"}, events)
}

func TestSession_Run_ReportsUnexpectedError(t *testing.T) {
	transport := &fakeTransport{}
	session, reporter := createReportingSession(t, transport)

	status := session.Run(context.Background(), failing(assert.AnError))
	require.Equal(t, courier.CloseInternalError, status.Code)

	events := reporter.sent()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, assert.AnError.Error(), events[0].Exception[0].Value)
	assert.Equal(t, "courier_sync", events[0].Tags["component"])
}

func TestSession_Run_ReportsPanic(t *testing.T) {
	transport := &fakeTransport{}
	session, reporter := createReportingSession(t, transport)

	seq := func(yield func(courier.Stage, error) bool) {
		panic("boom")
	}

	status := session.Run(context.Background(), seq)
	require.Equal(t, courier.CloseInternalError, status.Code)

	events := reporter.sent()
	require.Len(t, events, 1)
	assert.Equal(t, sentry.LevelFatal, events[0].Level)
	assert.Equal(t, "boom", events[0].Message)
}

func TestSession_Run_ExpectedFailuresAreNotReported(t *testing.T) {
	for _, err := range []error{courier.ErrUnregisteredGateway, courier.ErrDisconnectedFromCourier} {
		t.Run(err.Error(), func(t *testing.T) {
			session, reporter := createReportingSession(t, &fakeTransport{})

			session.Run(context.Background(), failing(err))

			assert.Empty(t, reporter.sent())
		})
	}
}
