package handler

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/collection"
)

type RestartHandlerParams struct {
	fx.In

	Supervisor collection.Supervisor
	Log        *zap.Logger
}

// RestartHandler restarts the parcel collection subprocess, e.g. after the
// gateway registered with a new relay.
type RestartHandler struct {
	supervisor collection.Supervisor
	log        *zap.Logger
}

func NewRestartHandler(params RestartHandlerParams) *RestartHandler {
	return &RestartHandler{
		supervisor: params.Supervisor,
		log:        params.Log,
	}
}

func (h *RestartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.supervisor.Restart(r.Context()); err != nil {
		h.log.Error("failed to restart parcel collection", zap.Error(err))
		http.Error(w, "failed to restart parcel collection", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
