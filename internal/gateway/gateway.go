// Package gateway exposes the tool core over HTTP: a catalog endpoint, direct
// tool invocation, chat-message processing, a WebSocket event feed, and
// Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/perch-panel/perch/internal/config"
	"github.com/perch-panel/perch/internal/format"
	"github.com/perch-panel/perch/internal/tool"
	"github.com/perch-panel/perch/internal/toolcall"
)

// Gateway is the HTTP front of the tool core.
type Gateway struct {
	config    config.GatewayConfig
	logger    *slog.Logger
	registry  *tool.Registry
	parser    *toolcall.Parser
	formatter *format.Formatter
	events    *EventBus
	metrics   *Metrics
	server    *http.Server
	startedAt time.Time
}

// New creates a Gateway over the given registry. The returned gateway's
// EventBus can be handed to the audit recorder so tool activity reaches
// WebSocket subscribers.
func New(cfg config.GatewayConfig, registry *tool.Registry, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		parser:    toolcall.NewParser(logger),
		formatter: format.New(),
		events:    NewEventBus(logger),
		metrics:   NewMetrics(),
	}
}

// Events returns the gateway's event bus.
func (g *Gateway) Events() *EventBus { return g.events }

// Start binds the listener and serves in the background. It returns once the
// listener is bound, so a failed bind surfaces immediately.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully and closes the event bus.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	g.events.Close()
	return g.server.Shutdown(shutdownCtx)
}
