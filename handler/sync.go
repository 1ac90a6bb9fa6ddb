package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/courier"
	"github.com/relaynet/gatewayd/internal/metrics"
	"github.com/relaynet/gatewayd/internal/transport"
)

type CourierSyncHandlerParams struct {
	fx.In

	Syncer courier.Syncer

	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

// CourierSyncHandler streams one courier sync per websocket connection.
type CourierSyncHandler struct {
	syncer  courier.Syncer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewCourierSyncHandler(params CourierSyncHandlerParams) *CourierSyncHandler {
	return &CourierSyncHandler{
		syncer:  params.Syncer,
		metrics: params.Metrics,
		log:     params.Log,
	}
}

func (h *CourierSyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("session_id", uuid.NewString()))

	conn, err := transport.Upgrade(w, r, log)
	if err != nil {
		log.Debug("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// stop producing stages once the client is gone
	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	session := courier.NewSession(conn, courier.SessionParams{
		Metrics: h.metrics,
		Log:     log,
	})

	status := session.Run(ctx, h.syncer.Sync(ctx))

	log.Debug("courier sync connection closed", zap.Int("code", status.Code))
}
