package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/server"
)

func TestHttpServer_ServesRegisteredHandlers(t *testing.T) {
	result := server.AsHttpHandler("GET /health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	s := server.NewHttpServer(server.HttpServerParams{
		Context:  context.Background(),
		Config:   server.HttpConfig{Host: "127.0.0.1", Port: 0},
		Handlers: []*server.HttpHandler{result.Handler},
		Logger:   zap.NewNop(),
	})

	listener, err := s.Listen(context.Background())
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(listener)
	}()

	res, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-served)
}

func TestHttpServer_ListenFailsWhenAddressIsTaken(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	port := taken.Addr().(*net.TCPAddr).Port

	s := server.NewHttpServer(server.HttpServerParams{
		Context: context.Background(),
		Config:  server.HttpConfig{Host: "127.0.0.1", Port: port},
		Logger:  zap.NewNop(),
	})

	_, err = s.Listen(context.Background())
	assert.ErrorContains(t, err, "failed to listen")
}
