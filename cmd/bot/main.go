package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockbot/internal/broker/alpaca"
	"stockbot/internal/config"
	cronrunner "stockbot/internal/cron"
	"stockbot/internal/db"
	"stockbot/internal/handler"
	"stockbot/internal/ledger"
	"stockbot/internal/logger"
	"stockbot/internal/marketdata"
	"stockbot/internal/marketdata/yahoo"
	"stockbot/internal/model"
	gormrepository "stockbot/internal/repository/gorm"
	"stockbot/internal/service"
	tradesignal "stockbot/internal/signal"
	"stockbot/internal/trader"
)

func main() {
	cfgPath := os.Getenv("STOCKBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("STOCKBOT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}
	store := gormrepository.New(dbConn.Gorm)

	keyID := strings.TrimSpace(os.Getenv(cfg.Broker.KeyIDEnv))
	secret := strings.TrimSpace(os.Getenv(cfg.Broker.SecretEnv))
	if keyID == "" || secret == "" {
		logger.Fatal("broker credentials missing",
			zap.String("key_env", cfg.Broker.KeyIDEnv),
			zap.String("secret_env", cfg.Broker.SecretEnv),
		)
	}
	brokerClient := alpaca.NewClient(&http.Client{Timeout: cfg.Broker.Timeout}, cfg.Broker.BaseURL, keyID, secret)

	if err := model.Initialize(cfg.Models.ORTLibraryPath); err != nil {
		logger.Fatal("onnxruntime init failed", zap.Error(err))
	}
	defer model.Shutdown()

	schema, err := model.LoadSchema(cfg.Models.SchemaPath)
	if err != nil {
		logger.Fatal("feature schema load failed", zap.Error(err))
	}
	classifier, err := model.NewClassifier(cfg.Models.ClassifierPath, schema)
	if err != nil {
		logger.Fatal("classifier load failed", zap.Error(err))
	}
	defer classifier.Close()
	regressor, err := model.NewRegressor(cfg.Models.RegressorPath, schema)
	if err != nil {
		logger.Fatal("regressor load failed", zap.Error(err))
	}
	defer regressor.Close()

	priceCache := marketdata.NewPriceCache()
	market := &marketdata.Cached{
		Cache:    priceCache,
		Fallback: &yahoo.Provider{},
		MaxAge:   cfg.MarketData.MaxPriceAge,
	}

	evaluator := &tradesignal.Evaluator{
		Classifier: classifier,
		Regressor:  regressor,
		Strategy:   cfg.Strategy,
	}
	tradeLedger := &ledger.Ledger{
		Repo:    store,
		CSVPath: cfg.Ledger.CSVPath,
		Logger:  logger,
	}
	engine := &trader.Engine{
		Broker:    brokerClient,
		Market:    market,
		Evaluator: evaluator,
		Ledger:    tradeLedger,
		Repo:      store,
		Logger:    logger,
		Strategy:  cfg.Strategy,
		Trading:   cfg.Trading,
		BarLimit:  cfg.MarketData.BarLimit,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	tradeHandler := &handler.TradeHandler{Repo: store}
	tradeHandler.Register(router)
	positionHandler := &handler.PositionHandler{Engine: engine, Repo: store}
	positionHandler.Register(router)
	equityHandler := &handler.EquityHandler{Repo: store}
	equityHandler.Register(router)
	statusHandler := &handler.StatusHandler{
		Broker:   brokerClient,
		Engine:   engine,
		Strategy: cfg.Strategy,
		Trading:  cfg.Trading,
	}
	statusHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Stream.Enabled {
		stream := &alpaca.Stream{
			URL:     cfg.Stream.URL,
			KeyID:   keyID,
			Secret:  secret,
			Symbols: cfg.Trading.Symbols,
			Cache:   priceCache,
			Logger:  logger,
		}
		go func() {
			if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price stream stopped", zap.Error(err))
			}
		}()
	}

	positionSync := &service.PositionSyncService{Repo: store, Market: market, Logger: logger}
	equitySnapshot := &service.EquitySnapshotService{
		Repo:   store,
		Broker: brokerClient,
		Engine: engine,
		Logger: logger,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if _, err := cronRunner.Add("@every "+cfg.Snapshot.PositionRefresh.String(), func(ctx context.Context) {
		if err := positionSync.RefreshOpenPositionPrices(ctx); err != nil {
			logger.Warn("position price refresh failed", zap.Error(err))
		}
	}); err != nil {
		logger.Warn("cron register position refresh failed", zap.Error(err))
	}
	if _, err := cronRunner.Add("@every "+cfg.Snapshot.EquityInterval.String(), func(ctx context.Context) {
		if err := equitySnapshot.SnapshotEquity(ctx); err != nil {
			logger.Warn("equity snapshot failed", zap.Error(err))
		}
	}); err != nil {
		logger.Warn("cron register equity snapshot failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("trading engine stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
