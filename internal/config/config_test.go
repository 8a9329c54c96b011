package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml", true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Strategy.LongProbThreshold != 0.58 {
		t.Fatalf("long_prob_threshold = %v, want 0.58", cfg.Strategy.LongProbThreshold)
	}
	if cfg.Strategy.LongReturnThreshold != 0.002 {
		t.Fatalf("long_return_threshold = %v, want 0.002", cfg.Strategy.LongReturnThreshold)
	}
	if cfg.Strategy.ShortProbThreshold != 0.25 {
		t.Fatalf("short_prob_threshold = %v, want 0.25", cfg.Strategy.ShortProbThreshold)
	}
	if cfg.Strategy.ShortReturnThreshold != -0.0065 {
		t.Fatalf("short_return_threshold = %v, want -0.0065", cfg.Strategy.ShortReturnThreshold)
	}
	if cfg.Strategy.StopLossPct != 0.06 || cfg.Strategy.TakeProfitPct != 0.10 {
		t.Fatalf("exit pcts = %v/%v, want 0.06/0.10", cfg.Strategy.StopLossPct, cfg.Strategy.TakeProfitPct)
	}
	if cfg.Strategy.PositionSizeFraction != 0.10 {
		t.Fatalf("position_size_fraction = %v, want 0.10", cfg.Strategy.PositionSizeFraction)
	}
	if cfg.Strategy.Cooldown != 0 {
		t.Fatalf("cooldown = %v, want 0", cfg.Strategy.Cooldown)
	}
	if cfg.Strategy.MaxConcurrentTrades != 1000 {
		t.Fatalf("max_concurrent_trades = %d, want 1000", cfg.Strategy.MaxConcurrentTrades)
	}
	if cfg.Strategy.ReversalExit {
		t.Fatal("reversal_exit defaults on, want off")
	}
	if cfg.Trading.PollInterval != 60*time.Second {
		t.Fatalf("poll_interval = %v, want 60s", cfg.Trading.PollInterval)
	}
	if len(cfg.Trading.Symbols) != 18 || cfg.Trading.Symbols[0] != "AAPL" {
		t.Fatalf("symbols = %v, want the 18-symbol watchlist", cfg.Trading.Symbols)
	}
	if cfg.MarketData.BarLimit != 400 {
		t.Fatalf("bar_limit = %d, want 400", cfg.MarketData.BarLimit)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr = %q, want :8080", cfg.Server.HTTPAddr)
	}
}
