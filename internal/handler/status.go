package handler

import (
	"github.com/gin-gonic/gin"

	"stockbot/internal/broker"
	"stockbot/internal/config"
	"stockbot/internal/trader"
)

type StatusHandler struct {
	Broker   broker.Broker
	Engine   *trader.Engine
	Strategy config.StrategyConfig
	Trading  config.TradingConfig
}

func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/status", h.status)
}

func (h *StatusHandler) status(c *gin.Context) {
	out := gin.H{
		"symbols":               h.Trading.Symbols,
		"poll_interval":         h.Trading.PollInterval.String(),
		"max_concurrent_trades": h.Strategy.MaxConcurrentTrades,
		"reversal_exit":         h.Strategy.ReversalExit,
	}
	if h.Engine != nil {
		out["open_positions"] = len(h.Engine.Snapshot())
	}
	if h.Broker != nil {
		if open, err := h.Broker.IsMarketOpen(c.Request.Context()); err == nil {
			out["market_open"] = open
		}
		if cash, err := h.Broker.CashBalance(c.Request.Context()); err == nil {
			out["cash"] = cash
		}
	}
	Ok(c, out, nil)
}
