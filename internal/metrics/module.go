package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/relaynet/gatewayd/internal/server"
)

func Module() fx.Option {
	return fx.Module("metrics",
		// provide a dedicated registry
		fx.Provide(prometheus.NewRegistry),
		// provide metrics
		fx.Provide(func(registry *prometheus.Registry) *Metrics {
			return New(registry)
		}),
		// provide metrics route
		fx.Provide(NewRoute),
	)
}

func NewRoute(registry *prometheus.Registry) server.HttpHandlerResult {
	return server.AsHttpHandler("/metrics", Handler(registry))
}
