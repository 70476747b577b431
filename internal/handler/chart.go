package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"freeco-signals/internal/chart"
)

const defaultChartLimit = 60

// GetSignalChart godoc
// @Summary      Signal history chart
// @Description  PNG of recent snapshot prices with a marker per signal and confidence bars
// @Tags         signals
// @Produce      png
// @Param        action  query  string  false  "BUY, SELL or HOLD"
// @Param        limit   query  int     false  "Number of signals (default 60, max 100)"  default(60)
// @Success      200  {file}    binary
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/signals/chart.png [get]
func (h *Handler) GetSignalChart(c *gin.Context) {
	if h.signalService == nil || h.charts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal-chart")
	defer span.End()

	filter, msg := signalFilterFromQuery(c, defaultChartLimit)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	signals, err := h.signalService.ListSignals(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("signals.count", len(signals)))

	data, err := h.charts.RenderSignalHistory(signals)
	if errors.Is(err, chart.ErrNotEnoughSignals) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, chart.MimeType, data)
}
