// Package reactorfx wires a reactor.Reactor into an fx application.
//
// The module provides *reactor.Reactor from a supplied reactor.Config and
// reactor.Handler, starts it with the application and disposes it on stop.
// If a *metrics.Collector is also provided, it wraps the handler and joins
// the protocol log chain. A fatal listener error shuts the application down.
package reactorfx

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/metrics"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

// Module is the fx module for the reactor.
var Module = fx.Module("reactor",
	fx.Provide(NewReactor),
	fx.Invoke(registerLifecycle),
)

// Params are the dependencies of NewReactor.
type Params struct {
	fx.In

	Config    reactor.Config
	Handler   reactor.Handler
	Collector *metrics.Collector `optional:"true"`
	Logger    *slog.Logger       `optional:"true"`
}

// NewReactor builds a reactor from fx-provided dependencies.
func NewReactor(p Params) (*reactor.Reactor, error) {
	config := p.Config
	handler := p.Handler

	if config.Logger == nil {
		config.Logger = p.Logger
	}
	if p.Collector != nil {
		handler = p.Collector.Wrap(handler)
		config.ProtocolLogger = log.NewMultiLogger(config.ProtocolLogger, p.Collector)
	}

	return reactor.New(config, handler)
}

type lifecycleParams struct {
	fx.In

	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
	Reactor    *reactor.Reactor
	Logger     *slog.Logger `optional:"true"`
}

func registerLifecycle(p lifecycleParams) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// The start context expires with the start timeout, so the
			// reactor gets its own.
			if err := p.Reactor.Start(context.Background()); err != nil {
				return err
			}

			go func() {
				if err := p.Reactor.Wait(); err != nil {
					logger.Error("reactor failed", "error", err)
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			return p.Reactor.Dispose()
		},
	})
}
