package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Authenticator only lets requests carrying the control plane token through.
// The token is read from the auth query parameter, which websocket clients
// in browsers can set, or from a bearer Authorization header.
type Authenticator struct {
	token string
	log   *zap.Logger
}

func NewAuthenticator(token string, log *zap.Logger) *Authenticator {
	if token == "" {
		log.Warn("no auth token configured, control endpoints will reject all requests")
	}

	return &Authenticator{
		token: token,
		log:   log,
	}
}

func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(r) {
			a.log.Debug("unauthorized request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authorized(r *http.Request) bool {
	if a.token == "" {
		return false
	}

	token := r.URL.Query().Get("auth")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}
