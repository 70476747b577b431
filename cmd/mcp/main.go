package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"freeco-signals/internal/app"
	"freeco-signals/internal/config"
	mcpserver "freeco-signals/internal/mcp"
	"freeco-signals/internal/metrics"
	"freeco-signals/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMCPHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB
	mqttClientSuffix                 = "mcp"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	fatalf            = log.Fatalf
	initTracerFunc    = tracing.InitTracer
	buildPipelineFunc = app.Build
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	runStdioFunc      = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		fatalf("invalid configuration: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		fatalf("failed to initialize tracer: %v", err)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Metrics stay in-process; the MCP server exposes no /metrics endpoint.
	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, metrics.New(prometheus.NewRegistry()),
		app.WithMQTTClientSuffix(mqttClientSuffix))
	if err != nil {
		fatalf("failed to build signal pipeline: %v", err)
		return
	}
	defer pipeline.Close()

	// A generate call may wait on both providers before publishing.
	cycleTimeout := 2*cfg.AITimeout() + 30*time.Second
	mcpSrv := newMCPServerFunc(tracer, signalPipeline(cfg, tracer, pipeline, cycleTimeout), mcpserver.ServerConfig{
		Pair:           cfg.TradingPair,
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		CycleTimeout:   cycleTimeout,
	})

	transport := strings.ToLower(strings.TrimSpace(cfg.MCPTransport))
	switch transport {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			fatalf("mcp http server failed: %v", err)
		}
	default:
		fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

// signalPipeline routes signals_generate to the signal server when one is
// configured so a single cycle guard serialises every publish.
func signalPipeline(cfg *config.Config, tracer trace.Tracer, pipeline *app.Pipeline, timeout time.Duration) mcpserver.SignalPipeline {
	if cfg.MCPSignalServerURL == "" {
		log.Println("MCP_SIGNAL_SERVER_URL not set, signals_generate runs cycles in this process")
		return pipeline.Signals
	}
	log.Printf("signals_generate delegates to %s", cfg.MCPSignalServerURL)
	remote := mcpserver.NewRemoteCycles(tracer, cfg.MCPSignalServerURL, &http.Client{Timeout: timeout})
	return mcpserver.WithCycles(pipeline.Signals, remote)
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	if !cfg.MCPHTTPEnabled {
		return fmt.Errorf("MCP_HTTP_ENABLED must be true when MCP_TRANSPORT=http")
	}
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Printf("MCP HTTP server listening on %s", addr)
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
