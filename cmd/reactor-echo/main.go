// Command reactor-echo runs a TCP reactor that echoes every byte it receives.
//
// It is the reference host for the reactor package and shows the complete
// wiring:
//   - CLI flags with optional YAML or TOML configuration file
//   - Structured logging
//   - Protocol event capture to a CBOR file (see reactor-log)
//   - Prometheus metrics endpoint
//   - mDNS advertisement of the listener
//   - Interactive operator console
//
// Usage:
//
//	reactor-echo [flags]
//
// Flags:
//
//	-config string          Configuration file path (.yaml, .yml or .toml)
//	-address string         Bind address (empty for all interfaces)
//	-port int               Listen port (default 7400)
//	-buffer-size int        Per-connection read buffer size (default 8192)
//	-loop string            Notification loop: inline, serial (default "inline")
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-protocol-log string    File path for protocol event logging (CBOR format)
//	-metrics-addr string    Serve Prometheus metrics on this address
//	-mdns                   Advertise the listener over mDNS
//	-interactive            Run the interactive console
//
// Examples:
//
//	# Echo on port 7400 with debug logging
//	reactor-echo -log-level debug
//
//	# Capture protocol events and expose metrics
//	reactor-echo -protocol-log /tmp/echo.rlog -metrics-addr :9400
//
//	# Load settings from a file, override the port
//	reactor-echo -config /etc/reactor/echo.yaml -port 7500
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mash-protocol/reactor-go/cmd/reactor-echo/interactive"
	"github.com/mash-protocol/reactor-go/pkg/discovery"
	"github.com/mash-protocol/reactor-go/pkg/eventloop"
	"github.com/mash-protocol/reactor-go/pkg/log"
	"github.com/mash-protocol/reactor-go/pkg/metrics"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var console *interactive.Console
	var logOutput io.Writer = os.Stderr
	if cfg.Interactive {
		console, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start console: %v\n", err)
			os.Exit(1)
		}
		// Route log output through readline to avoid interfering with input
		logOutput = console.Stdout()
	}

	logger := newLogger(cfg.LogLevel, logOutput)
	if err := run(ctx, cfg, logger, console); err != nil {
		logger.Error("reactor-echo failed", "error", err)
		os.Exit(1)
	}
}

// run starts the reactor and its companions and blocks until ctx is done,
// the console quits, or something fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger, console *interactive.Console) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Protocol event sinks
	collector := metrics.NewCollector(metrics.DefaultNamespace)
	sinks := []log.Logger{collector}
	if cfg.ProtocolLog != "" {
		fileLogger, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fileLogger.Close()
		sinks = append(sinks, fileLogger)
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog)
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	var loop eventloop.Loop = eventloop.Inline{}
	if cfg.Loop == LoopSerial {
		serial := eventloop.NewSerial(logger)
		defer serial.Close()
		loop = serial
	}

	r, err := reactor.New(reactor.Config{
		Address:        cfg.Address,
		Port:           cfg.Port,
		BufferSize:     cfg.BufferSize,
		Loop:           loop,
		Logger:         logger,
		ProtocolLogger: log.NewMultiLogger(sinks...),
		AcceptBackoff:  cfg.AcceptBackoff,
	}, collector.Wrap(newEchoHandler(logger)))
	if err != nil {
		return err
	}
	if err := r.Start(ctx); err != nil {
		return err
	}
	logger.Info("listening", "addr", r.Addr().String(), "loop", cfg.Loop)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.Wait()
	})
	g.Go(func() error {
		<-gctx.Done()
		return r.Dispose()
	})

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := collector.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		startMetricsServer(gctx, g, cfg.MetricsAddr, reg, logger)
	}

	if cfg.MDNS.Enabled {
		instance := cfg.MDNS.Instance
		hostname, _ := os.Hostname()
		if instance == "" {
			instance = "reactor-" + hostname
		}
		advertiser := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: cfg.MDNS.Interface,
			TTL:       discovery.DefaultTTL,
		})
		announcer := discovery.NewAnnouncer(advertiser, r, instance, hostname)
		announcer.SetLogger(logger)
		g.Go(func() error {
			// Advertisement failures are not fatal to the reactor.
			if err := announcer.Run(gctx, cfg.MDNS.Refresh); err != nil {
				logger.Warn("mDNS advertisement stopped", "error", err)
			}
			return nil
		})
	}

	if console != nil {
		console.SetBrowser(discovery.NewMDNSBrowser(discovery.BrowserConfig{
			Interface: cfg.MDNS.Interface,
			Logger:    logger,
		}))
		g.Go(func() error {
			console.Run(gctx, r)
			cancel()
			return nil
		})
	}

	return g.Wait()
}

func startMetricsServer(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("metrics endpoint", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
