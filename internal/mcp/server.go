package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultCycleTimeout   = 90 * time.Second
)

// ServerConfig bounds request handling. CycleTimeout applies to tools that run
// a full analysis cycle, which can wait on two provider calls.
type ServerConfig struct {
	Pair           string
	RequestTimeout time.Duration
	CycleTimeout   time.Duration
}

func NewServer(tracer trace.Tracer, pipeline SignalPipeline, cfg ServerConfig) *sdkmcp.Server {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	cycleTimeout := cfg.CycleTimeout
	if cycleTimeout < requestTimeout {
		cycleTimeout = max(requestTimeout, defaultCycleTimeout)
	}

	instructions := "Use these tools/resources to read AI trading signals, inspect the market snapshot, and trigger an analysis cycle."
	if pair := strings.TrimSpace(cfg.Pair); pair != "" {
		instructions = "Signals cover " + pair + ". " + instructions
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "freeco-signals-mcp",
		Version: "1.0.0",
	}, &sdkmcp.ServerOptions{
		Instructions: instructions,
		Logger:       slog.Default(),
	})

	srv.AddReceivingMiddleware(timeoutMiddleware(requestTimeout, cycleTimeout))
	if tracer != nil {
		srv.AddReceivingMiddleware(tracingMiddleware(tracer))
	}

	registerTools(srv, pipeline)
	registerResources(srv, pipeline)
	return srv
}

func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	base := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return wrapHTTPHandler(base, cfg)
}

func timeoutMiddleware(timeout, cycleTimeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			limit := timeout
			if runsCycle(req) {
				limit = cycleTimeout
			}
			if limit <= 0 {
				return next(ctx, method, req)
			}
			timeoutCtx, cancel := context.WithTimeout(ctx, limit)
			defer cancel()
			return next(timeoutCtx, method, req)
		}
	}
}

func tracingMiddleware(tracer trace.Tracer) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			spanName := mcpSpanName(method, req)
			ctx, span := tracer.Start(ctx, spanName)
			span.SetAttributes(attribute.String("mcp.method", method))
			defer span.End()

			if callReq, ok := req.(*sdkmcp.CallToolRequest); ok {
				span.SetAttributes(attribute.String("mcp.tool", strings.TrimSpace(callReq.Params.Name)))
			}
			if readReq, ok := req.(*sdkmcp.ReadResourceRequest); ok {
				span.SetAttributes(attribute.String("mcp.resource.uri", strings.TrimSpace(readReq.Params.URI)))
			}

			result, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
			}
			return result, err
		}
	}
}

// runsCycle reports whether req triggers a full produce, analyze and publish cycle.
func runsCycle(req sdkmcp.Request) bool {
	callReq, ok := req.(*sdkmcp.CallToolRequest)
	return ok && strings.TrimSpace(callReq.Params.Name) == generateToolName
}

func mcpSpanName(method string, req sdkmcp.Request) string {
	switch method {
	case "tools/call":
		if callReq, ok := req.(*sdkmcp.CallToolRequest); ok {
			name := strings.TrimSpace(callReq.Params.Name)
			if name != "" {
				return "mcp.tool." + strings.ReplaceAll(name, "/", ".")
			}
		}
		return "mcp.tool.call"
	case "resources/read":
		return "mcp.resource.read"
	default:
		return "mcp." + strings.ReplaceAll(method, "/", ".")
	}
}
