package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	Stream     StreamConfig     `mapstructure:"stream"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Models     ModelsConfig     `mapstructure:"models"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type BrokerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	KeyIDEnv  string        `mapstructure:"key_id_env"`
	SecretEnv string        `mapstructure:"secret_env"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type MarketDataConfig struct {
	BarLimit    int           `mapstructure:"bar_limit"`
	MaxPriceAge time.Duration `mapstructure:"max_price_age"`
}

type ModelsConfig struct {
	ClassifierPath string `mapstructure:"classifier_path"`
	RegressorPath  string `mapstructure:"regressor_path"`
	SchemaPath     string `mapstructure:"schema_path"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
}

// StrategyConfig is the single source for every threshold the decision
// engine consults; no call site carries its own copy.
type StrategyConfig struct {
	LongProbThreshold    float64       `mapstructure:"long_prob_threshold"`
	LongReturnThreshold  float64       `mapstructure:"long_return_threshold"`
	ShortProbThreshold   float64       `mapstructure:"short_prob_threshold"`
	ShortReturnThreshold float64       `mapstructure:"short_return_threshold"`
	StopLossPct          float64       `mapstructure:"stop_loss_pct"`
	TakeProfitPct        float64       `mapstructure:"take_profit_pct"`
	PositionSizeFraction float64       `mapstructure:"position_size_fraction"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	MaxConcurrentTrades  int           `mapstructure:"max_concurrent_trades"`
	ReversalExit         bool          `mapstructure:"reversal_exit"`
}

type TradingConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Symbols      []string      `mapstructure:"symbols"`
}

type LedgerConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

type SnapshotConfig struct {
	PositionRefresh time.Duration `mapstructure:"position_refresh"`
	EquityInterval  time.Duration `mapstructure:"equity_interval"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("broker.base_url", "https://paper-api.alpaca.markets")
	v.SetDefault("broker.key_id_env", "STOCKBOT_BROKER_KEY_ID")
	v.SetDefault("broker.secret_env", "STOCKBOT_BROKER_SECRET")
	v.SetDefault("broker.timeout", "15s")
	v.SetDefault("stream.enabled", false)
	v.SetDefault("stream.url", "wss://stream.data.alpaca.markets/v2/iex")
	v.SetDefault("market_data.bar_limit", 400)
	v.SetDefault("market_data.max_price_age", "30s")
	v.SetDefault("models.classifier_path", "models/classifier.onnx")
	v.SetDefault("models.regressor_path", "models/regressor.onnx")
	v.SetDefault("models.schema_path", "models/features.json")
	v.SetDefault("models.ort_library_path", "")
	v.SetDefault("strategy.long_prob_threshold", 0.58)
	v.SetDefault("strategy.long_return_threshold", 0.002)
	v.SetDefault("strategy.short_prob_threshold", 0.25)
	v.SetDefault("strategy.short_return_threshold", -0.0065)
	v.SetDefault("strategy.stop_loss_pct", 0.06)
	v.SetDefault("strategy.take_profit_pct", 0.10)
	v.SetDefault("strategy.position_size_fraction", 0.10)
	v.SetDefault("strategy.cooldown", "0s")
	v.SetDefault("strategy.max_concurrent_trades", 1000)
	v.SetDefault("strategy.reversal_exit", false)
	v.SetDefault("trading.poll_interval", "60s")
	v.SetDefault("trading.symbols", []string{
		"AAPL", "MSFT", "SMCI", "AMD", "GOOGL", "META",
		"AMZN", "INMD", "NFLX", "NVDA", "TSLA", "BABA",
		"INTC", "CSCO", "QCOM", "AVGO", "TXN", "MU",
	})
	v.SetDefault("ledger.csv_path", "")
	v.SetDefault("snapshot.position_refresh", "30s")
	v.SetDefault("snapshot.equity_interval", "1h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
