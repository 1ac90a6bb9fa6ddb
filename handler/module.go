package handler

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/config"
)

func Module() fx.Option {
	return fx.Module("handler",
		// provide authenticator
		fx.Provide(func(cfg config.Config, log *zap.Logger) *Authenticator {
			return NewAuthenticator(cfg.Auth.Token, log)
		}),
		// provide handlers
		fx.Provide(NewCourierSyncHandler),
		fx.Provide(NewConnectionStatusHandler),
		fx.Provide(NewRestartHandler),
		// provide routes
		fx.Provide(NewCourierSyncRoute),
		fx.Provide(NewConnectionStatusRoute),
		fx.Provide(NewRestartRoute),
		fx.Provide(NewHealthRoute),
	)
}
