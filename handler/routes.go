package handler

import (
	"net/http"

	"github.com/relaynet/gatewayd/internal/server"
)

// ControlPrefix is the path prefix of every control plane endpoint.
const ControlPrefix = "/_control"

func NewCourierSyncRoute(auth *Authenticator, handler *CourierSyncHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("GET "+ControlPrefix+"/courier-sync", auth.Wrap(handler))
}

func NewConnectionStatusRoute(auth *Authenticator, handler *ConnectionStatusHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("GET "+ControlPrefix+"/connection-status", auth.Wrap(handler))
}

func NewRestartRoute(auth *Authenticator, handler *RestartHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("POST "+ControlPrefix+"/parcel-collection/restart", auth.Wrap(handler))
}

func NewHealthRoute() server.HttpHandlerResult {
	return server.AsHttpHandler("GET /health", http.HandlerFunc(HealthHandler))
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
