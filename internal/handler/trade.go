package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"freeco-signals/internal/provider"
	"freeco-signals/internal/repository"
	"freeco-signals/internal/service"
)

// GetQuote godoc
// @Summary      Jupiter swap quote
// @Tags         trade
// @Produce      json
// @Param        inputMint    query  string  true   "Input token mint"
// @Param        outputMint   query  string  true   "Output token mint"
// @Param        amount       query  int     true   "Amount in base units"
// @Param        slippageBps  query  int     false  "Slippage in basis points (default 50)"
// @Success      200  {object}  domain.Quote
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/quote [get]
func (h *Handler) GetQuote(c *gin.Context) {
	if h.tradeService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-quote")
	defer span.End()

	amount, err := strconv.ParseUint(strings.TrimSpace(c.Query("amount")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		return
	}
	slippage := provider.DefaultSlippageBps
	if raw := strings.TrimSpace(c.Query("slippageBps")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "slippageBps must be an integer"})
			return
		}
		slippage = n
	}

	quote, err := h.tradeService.Quote(ctx, service.TradeRequest{
		InputMint:   strings.TrimSpace(c.Query("inputMint")),
		OutputMint:  strings.TrimSpace(c.Query("outputMint")),
		Amount:      amount,
		SlippageBps: slippage,
	})
	if err != nil {
		c.JSON(tradeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ExecuteTrade godoc
// @Summary      Build an unsigned swap transaction
// @Description  Quotes and requests an unsigned Jupiter swap transaction for the configured wallet
// @Tags         trade
// @Accept       json
// @Produce      json
// @Param        request  body  service.TradeRequest  true  "Swap request"
// @Success      200  {object}  domain.Trade
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/trade/execute [post]
func (h *Handler) ExecuteTrade(c *gin.Context) {
	if h.tradeService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.execute-trade")
	defer span.End()

	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.SlippageBps == 0 {
		req.SlippageBps = provider.DefaultSlippageBps
	}

	trade, err := h.tradeService.Execute(ctx, req)
	if err != nil {
		status := tradeErrorStatus(err)
		if trade.ID != 0 {
			c.JSON(status, gin.H{"error": err.Error(), "trade": trade})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trade)
}

// GetTrades godoc
// @Summary      Trade history
// @Tags         trade
// @Produce      json
// @Param        limit  query  int  false  "Number of trades (default 20, max 100)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/trades [get]
func (h *Handler) GetTrades(c *gin.Context) {
	if h.tradeService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trades")
	defer span.End()

	limit := repository.DefaultSignalLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > repository.MaxSignalLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	trades, err := h.tradeService.ListTrades(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

func tradeErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidTradeRequest):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrNoWallet):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
