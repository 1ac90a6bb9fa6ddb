package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/collection"
	"github.com/relaynet/gatewayd/internal/transport"
)

type ConnectionStatusHandlerParams struct {
	fx.In

	Supervisor collection.Supervisor
	Log        *zap.Logger
}

// ConnectionStatusHandler forwards the connectivity statuses of the parcel
// collection subprocess to a websocket client, one text frame each.
type ConnectionStatusHandler struct {
	supervisor collection.Supervisor
	log        *zap.Logger
}

func NewConnectionStatusHandler(params ConnectionStatusHandlerParams) *ConnectionStatusHandler {
	return &ConnectionStatusHandler{
		supervisor: params.Supervisor,
		log:        params.Log,
	}
}

func (h *ConnectionStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := transport.Upgrade(w, r, h.log)
	if err != nil {
		h.log.Debug("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for status := range h.supervisor.StreamStatus(ctx) {
		if err := conn.WriteMessage(ctx, []byte(status)); err != nil {
			h.log.Debug("failed to send connection status", zap.Error(err))
			break
		}
	}

	if err := conn.Close(websocket.CloseNormalClosure, ""); err != nil {
		h.log.Debug("failed to close connection", zap.Error(err))
	}
}
