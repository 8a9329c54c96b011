package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockbot/internal/backtest"
	"stockbot/internal/config"
	"stockbot/internal/logger"
	"stockbot/internal/marketdata"
	"stockbot/internal/model"
	tradesignal "stockbot/internal/signal"
)

func main() {
	var (
		cfgPath = flag.String("config", "config/config.yaml", "config file path")
		symbol  = flag.String("symbol", "", "symbol to replay (required)")
		barsCSV = flag.String("bars", "", "CSV file of 1-minute bars (required)")
		cash    = flag.Float64("cash", 100000, "starting cash")
	)
	flag.Parse()
	if *symbol == "" || *barsCSV == "" {
		flag.Usage()
		os.Exit(2)
	}

	envOnly := os.Getenv("STOCKBOT_ENV_ONLY") == "1"
	cfg, err := config.Load(*cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

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

	bars, err := readBarsCSV(*barsCSV)
	if err != nil {
		logger.Fatal("bars load failed", zap.Error(err), zap.String("path", *barsCSV))
	}
	logger.Info("bars loaded", zap.String("symbol", *symbol), zap.Int("count", len(bars)))

	runner := &backtest.Runner{
		Evaluator: &tradesignal.Evaluator{
			Classifier: classifier,
			Regressor:  regressor,
			Strategy:   cfg.Strategy,
		},
		Strategy:    cfg.Strategy,
		InitialCash: decimal.NewFromFloat(*cash),
		Logger:      logger,
	}
	result, err := runner.Run(*symbol, bars)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	for _, trade := range result.Trades {
		fmt.Printf("%s  %-6s %-5s %-5s qty=%-6d price=%-10s %s\n",
			trade.Time.Format(time.RFC3339),
			trade.Symbol, trade.Action, trade.Direction,
			trade.Quantity, trade.Price.StringFixed(2), trade.Reason,
		)
	}
	fmt.Printf("\ntrades=%d wins=%d losses=%d cash %s -> %s (%s%%)\n",
		len(result.Trades), result.Wins, result.Losses,
		result.InitialCash.StringFixed(2), result.FinalCash.StringFixed(2),
		result.ReturnPct().Mul(decimal.NewFromInt(100)).StringFixed(2),
	)
}

// readBarsCSV parses rows of timestamp,open,high,low,close,volume with an
// optional header line. Timestamps are RFC3339.
func readBarsCSV(path string) ([]marketdata.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var bars []marketdata.Bar
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			if len(bars) == 0 {
				continue // header
			}
			return nil, fmt.Errorf("bad timestamp %q: %w", record[0], err)
		}
		vals := make([]float64, 5)
		for i := 1; i < 6; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q: %w", record[i], err)
			}
			vals[i-1] = v
		}
		bars = append(bars, marketdata.Bar{
			Time:   ts.UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars in %s", path)
	}
	return bars, nil
}
