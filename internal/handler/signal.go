package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/repository"
	"freeco-signals/internal/service"
)

// GetSignals godoc
// @Summary      Get published signals
// @Description  Returns recent signals, newest first, optionally filtered by action
// @Tags         signals
// @Produce      json
// @Param        action  query  string  false  "BUY, SELL or HOLD"
// @Param        limit   query  int     false  "Number of signals (default 20, max 100)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/signals [get]
func (h *Handler) GetSignals(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	filter, msg := signalFilterFromQuery(c, repository.DefaultSignalLimit)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if filter.Action != "" {
		span.SetAttributes(attribute.String("action", string(filter.Action)))
	}

	signals, err := h.signalService.ListSignals(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

// GetLatestSignal godoc
// @Summary      Latest published signal
// @Tags         signals
// @Produce      json
// @Success      200  {object}  domain.SignalRecord
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/latest [get]
func (h *Handler) GetLatestSignal(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest-signal")
	defer span.End()

	rec, ok, err := h.signalService.LatestSignal(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signal published yet"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GenerateSignal godoc
// @Summary      Run one signal cycle now
// @Description  Fails with 409 while a scheduled cycle is still running
// @Tags         signals
// @Produce      json
// @Success      200  {object}  domain.SignalRecord
// @Failure      409  {object}  map[string]string
// @Router       /api/signals/generate [post]
func (h *Handler) GenerateSignal(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.generate-signal")
	defer span.End()

	rec, err := h.signalService.RunCycle(ctx)
	if errors.Is(err, service.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetMarket godoc
// @Summary      Last market snapshot
// @Tags         market
// @Produce      json
// @Success      200  {object}  domain.MarketSnapshot
// @Router       /api/market [get]
func (h *Handler) GetMarket(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market")
	defer span.End()

	if h.snapshots != nil {
		snap, ok, err := h.snapshots.LastSnapshot(ctx)
		if err == nil && ok {
			c.JSON(http.StatusOK, snap)
			return
		}
	}
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market data unavailable"})
		return
	}
	c.JSON(http.StatusOK, h.signalService.Snapshot(ctx))
}

// signalFilterFromQuery reads action and limit query params. A non-empty
// message means the request is invalid.
func signalFilterFromQuery(c *gin.Context, defaultLimit int) (domain.SignalFilter, string) {
	filter := domain.SignalFilter{Limit: defaultLimit}
	if raw := strings.TrimSpace(c.Query("action")); raw != "" {
		action, ok := domain.ParseAction(raw)
		if !ok {
			return filter, "action must be one of BUY, SELL, HOLD"
		}
		filter.Action = action
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > repository.MaxSignalLimit {
			return filter, "limit must be between 1 and 100"
		}
		filter.Limit = n
	}
	return filter, ""
}
