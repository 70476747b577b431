package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/chart"
	"freeco-signals/internal/domain"
	"freeco-signals/internal/service"

	_ "freeco-signals/docs"
)

// SnapshotReader serves the last cached market snapshot.
type SnapshotReader interface {
	LastSnapshot(ctx context.Context) (domain.MarketSnapshot, bool, error)
}

type Handler struct {
	tracer        trace.Tracer
	signalService *service.SignalService
	tradeService  *service.TradeService
	snapshots     SnapshotReader
	charts        *chart.Renderer
	stream        http.Handler
	metrics       http.Handler
	startedAt     time.Time
	now           func() time.Time
}

func New(
	tracer trace.Tracer,
	signalService *service.SignalService,
	tradeService *service.TradeService,
	snapshots SnapshotReader,
	stream http.Handler,
	metrics http.Handler,
) *Handler {
	return &Handler{
		tracer:        tracer,
		signalService: signalService,
		tradeService:  tradeService,
		snapshots:     snapshots,
		charts:        chart.NewRenderer(),
		stream:        stream,
		metrics:       metrics,
		startedAt:     time.Now(),
		now:           time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/status", h.GetStatus)
	r.GET("/api/signals", h.GetSignals)
	r.GET("/api/signals/latest", h.GetLatestSignal)
	r.GET("/api/signals/chart.png", h.GetSignalChart)
	r.POST("/api/signals/generate", h.GenerateSignal)
	r.GET("/api/market", h.GetMarket)
	r.GET("/api/quote", h.GetQuote)
	r.POST("/api/trade/execute", h.ExecuteTrade)
	r.GET("/api/trades", h.GetTrades)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.stream != nil {
		r.GET("/api/signals/stream", gin.WrapH(h.stream))
	}
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// CORS allows browser dashboards on any origin to read the API.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	return cors.New(cfg)
}

// Health godoc
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(now.Sub(h.startedAt) / time.Second),
		"timestamp":      now.UTC().Format(time.RFC3339),
	})
}

// GetStatus godoc
// @Summary      Pipeline status
// @Description  Running flag, configured providers and sinks, cycle counters and the last signal
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.Status
// @Failure      503  {object}  map[string]string
// @Router       /api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}
	c.JSON(http.StatusOK, h.signalService.Status())
}
