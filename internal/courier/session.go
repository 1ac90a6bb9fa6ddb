package courier

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/metrics"
)

const (
	CloseNormal                  = 1000
	CloseInternalError           = 1011
	CloseUnregisteredGateway     = 4000
	CloseDisconnectedFromCourier = 4001
)

// Transport is the persistent connection a sync session is streamed to.
type Transport interface {
	// WriteMessage returns once data has been flushed to the peer.
	WriteMessage(ctx context.Context, data []byte) error

	// Close terminates the connection with the given code and reason.
	Close(code int, reason string) error
}

// CloseStatus is the code and reason a session closed its transport with.
type CloseStatus struct {
	Code   int
	Reason string
}

var internalError = CloseStatus{
	Code:   CloseInternalError,
	Reason: "Internal server error",
}

type SessionParams struct {
	// Metrics is optional.
	Metrics *metrics.Metrics

	// Hub receives unexpected failures. Defaults to the global hub.
	Hub *sentry.Hub

	Log *zap.Logger
}

// Session streams one courier sync to one transport. A session is single
// use: Run must be called at most once.
type Session struct {
	transport Transport
	closeOnce sync.Once

	metrics *metrics.Metrics
	hub     *sentry.Hub
	log     *zap.Logger
}

func NewSession(transport Transport, params SessionParams) *Session {
	hub := params.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "courier_sync")
	})

	return &Session{
		transport: transport,
		metrics:   params.Metrics,
		hub:       hub,
		log:       params.Log.Named("courier_sync"),
	}
}

// Run writes every stage produced by stages to the transport, in order,
// and closes the transport exactly once when the sequence ends. The next
// stage is only produced after the previous one has been written.
func (s *Session) Run(ctx context.Context, stages iter.Seq2[Stage, error]) (status CloseStatus) {
	defer func() {
		if r := recover(); r != nil {
			s.hub.RecoverWithContext(ctx, r)
			s.log.Error("courier sync panicked", zap.Any("panic", r))

			status = internalError
			s.close(status)
		}
	}()

	var failure error
	for stage, err := range stages {
		if err != nil {
			failure = err
			break
		}

		if err := s.transport.WriteMessage(ctx, []byte(stage)); err != nil {
			failure = fmt.Errorf("failed to write sync stage: %w", err)
			break
		}

		s.log.Debug("sent sync stage", zap.Stringer("stage", stage))
	}

	status = s.classify(failure)
	s.close(status)

	return status
}

func (s *Session) classify(err error) CloseStatus {
	switch {
	case err == nil:
		s.log.Info("courier sync completed")
		return CloseStatus{Code: CloseNormal}
	case errors.Is(err, ErrUnregisteredGateway):
		s.log.Warn("aborting courier sync because gateway is unregistered")
		return CloseStatus{
			Code:   CloseUnregisteredGateway,
			Reason: "Gateway is not yet registered",
		}
	case errors.Is(err, ErrDisconnectedFromCourier):
		s.log.Warn("aborting courier sync because device is not connected to a courier")
		return CloseStatus{
			Code:   CloseDisconnectedFromCourier,
			Reason: "Device is not connected to a courier",
		}
	default:
		s.log.Error("unexpected error when syncing with courier", zap.Error(err))
		s.hub.CaptureException(err)
		return internalError
	}
}

func (s *Session) close(status CloseStatus) {
	s.closeOnce.Do(func() {
		s.metrics.ObserveSyncSession(status.Code)

		if err := s.transport.Close(status.Code, status.Reason); err != nil {
			s.log.Warn("failed to close transport",
				zap.Int("code", status.Code),
				zap.Error(err),
			)
		}
	})
}
