package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"freeco-signals/internal/app"
	"freeco-signals/internal/bot"
	"freeco-signals/internal/config"
	"freeco-signals/internal/handler"
	"freeco-signals/internal/job"
	"freeco-signals/internal/metrics"
	"freeco-signals/internal/service"
	"freeco-signals/internal/stream"
	"freeco-signals/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	fatalf                 = log.Fatalf
	initTracerFunc         = tracing.InitTracer
	buildPipelineFunc      = app.Build
	startTelegramBotFunc   = bot.StartTelegramBot
	startSignalPollerFunc  = func(p *job.SignalPoller, ctx context.Context) { go p.Start(ctx) }
	startRetentionFunc     = func(j *job.SignalRetention, ctx context.Context) { go j.Start(ctx) }
	startHubFunc           = func(h *stream.Hub, ctx context.Context) { go h.Run(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           FREECO Signals API
// @version         1.0
// @description     AI trading signals for FREECO/CHF with history, market data and Jupiter quotes.

// @host      localhost:8080
// @BasePath  /
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, recorder)
	if err != nil {
		fatalf("failed to build signal pipeline: %v", err)
		return
	}
	defer pipeline.Close()

	log.Printf("Signal generator starting for %s, publishing to %s every %s",
		cfg.TradingPair, cfg.SignalTopic(), cfg.SignalInterval())

	// Push every recorded signal to websocket clients and Telegram subscribers
	hub := stream.NewHub()
	startHubFunc(hub, ctx)
	pipeline.Signals.AddNotifier(service.NotifierFunc(hub.Broadcast))

	if alerts := startTelegramBotFunc(cfg.TelegramBotToken, pipeline.Signals); alerts != nil {
		pipeline.Signals.AddNotifier(alerts)
	}

	// Background jobs stop on ctx cancel
	startSignalPollerFunc(job.NewSignalPoller(tracer, pipeline.Signals, cfg.SignalInterval()), ctx)
	if pipeline.SignalRepo != nil {
		startRetentionFunc(job.NewSignalRetention(tracer, pipeline.SignalRepo, cfg.SignalRetention()), ctx)
	}

	var snapshots handler.SnapshotReader
	if pipeline.Store != nil {
		snapshots = pipeline.Store
	}
	h := handler.New(tracer, pipeline.Signals, pipeline.Trades, snapshots, hub, recorder.Handler())

	r := newRouterFunc()
	r.Use(otelgin.Middleware("freeco-signals"), handler.CORS())
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddr(cfg),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down signal generator...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func httpAddr(cfg *config.Config) string {
	return fmt.Sprintf(":%d", cfg.HTTPPort)
}
