package main

import (
	"log/slog"

	"github.com/mash-protocol/reactor-go/pkg/peer"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

// echoHandler writes every received envelope back to its sender.
type echoHandler struct {
	logger *slog.Logger
}

func newEchoHandler(logger *slog.Logger) *echoHandler {
	return &echoHandler{logger: logger}
}

func (h *echoHandler) Connected(p peer.Identity) {
	h.logger.Info("peer connected", "peer", p)
}

func (h *echoHandler) Disconnected(p peer.Identity, err *reactor.ConnectionError) {
	attrs := []any{"peer", p, "type", err.Type}
	if err.Cause != nil {
		attrs = append(attrs, "error", err.Cause)
	}
	h.logger.Info("peer disconnected", attrs...)
}

func (h *echoHandler) Received(env reactor.Envelope, ch *reactor.ResponseChannel) {
	h.logger.Debug("received", "peer", env.Origin, "bytes", env.Length)
	if err := ch.Send(env.Data); err != nil {
		h.logger.Warn("echo failed", "peer", env.Origin, "error", err)
	}
}

var _ reactor.Handler = (*echoHandler)(nil)
