package features

import (
	"errors"
	"math"
	"strconv"

	"stockbot/internal/marketdata"
)

// Row is one fixed-width named feature vector. Models look features up by
// name, never by position.
type Row map[string]float64

// Table holds feature rows for a bar series. Rows[i] belongs to
// bars[Start+i]; bars before Start lack enough history for a complete row.
type Table struct {
	Start int
	Rows  []Row
}

var rollingWindows = []int{5, 10, 30, 60, 120, 390}

const (
	rsiPeriod   = 14
	macdFast    = 12
	macdSlow    = 26
	macdSignal  = 9
	bollPeriod  = 20
	bollStdDevs = 2.0
	lagCount    = 5
	countWindow = 5
)

// MinBars is the shortest series that yields one complete feature row.
const MinBars = 391

var ErrInsufficientHistory = errors.New("not enough bars for a feature row")

// Build computes the full engineered feature table for a bar series:
// VWAP, simple and log returns, rolling mean/std/returns, lagged closes,
// RSI, MACD, Bollinger bands, OBV, time-of-day fields and a trade-count
// proxy. The set and names match what the models were trained on.
func Build(bars []marketdata.Bar) (Table, error) {
	if len(bars) < MinBars {
		return Table{}, ErrInsufficientHistory
	}

	n := len(bars)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	vwap := cumulativeVWAP(bars)
	rsi := wilderRSI(closes, rsiPeriod)
	macdLine, signalLine := macd(closes)
	bbHigh, bbLow := bollinger(closes, bollPeriod, bollStdDevs)
	obv := onBalanceVolume(closes, volumes)

	start := MinBars - 1
	rows := make([]Row, 0, n-start)
	for i := start; i < n; i++ {
		b := bars[i]
		row := Row{
			"open":   b.Open,
			"high":   b.High,
			"low":    b.Low,
			"close":  b.Close,
			"volume": b.Volume,

			"vwap":       vwap[i],
			"return_1m":  pctChange(closes, i, 1),
			"log_return": math.Log(closes[i] / closes[i-1]),

			"rsi":         rsi[i],
			"macd":        macdLine[i],
			"macd_signal": signalLine[i],
			"bb_high":     bbHigh[i],
			"bb_low":      bbLow[i],
			"obv":         obv[i],

			"minute":      float64(b.Time.Minute()),
			"hour":        float64(b.Time.Hour()),
			"day_of_week": float64(int(b.Time.Weekday())),

			"trade_count": tradeCountProxy(closes, i, countWindow),
		}
		for _, w := range rollingWindows {
			row[name("close_mean_", w)] = mean(closes[i-w+1 : i+1])
			row[name("close_std_", w)] = stddev(closes[i-w+1 : i+1])
			row[name("return_", w)] = pctChange(closes, i, w)
		}
		for lag := 1; lag <= lagCount; lag++ {
			row[name("lag_close_", lag)] = closes[i-lag]
		}
		rows = append(rows, row)
	}
	return Table{Start: start, Rows: rows}, nil
}

// Latest returns the feature row for the most recent bar.
func Latest(bars []marketdata.Bar) (Row, error) {
	table, err := Build(bars)
	if err != nil {
		return nil, err
	}
	return table.Rows[len(table.Rows)-1], nil
}

func name(prefix string, w int) string {
	return prefix + strconv.Itoa(w)
}

func cumulativeVWAP(bars []marketdata.Bar) []float64 {
	out := make([]float64, len(bars))
	var pvSum, vSum float64
	for i, b := range bars {
		pvSum += b.Close * b.Volume
		vSum += b.Volume
		if vSum > 0 {
			out[i] = pvSum / vSum
		} else {
			out[i] = b.Close
		}
	}
	return out
}

func pctChange(values []float64, i, periods int) float64 {
	prev := values[i-periods]
	if prev == 0 {
		return 0
	}
	return (values[i] - prev) / prev
}

func mean(window []float64) float64 {
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// stddev is the sample standard deviation, matching pandas' rolling std.
func stddev(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	m := mean(window)
	var sq float64
	for _, v := range window {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(window)-1))
}

// wilderRSI computes the classic Wilder-smoothed relative strength index.
func wilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) <= period {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func macd(closes []float64) (line, signal []float64) {
	fast := ema(closes, macdFast)
	slow := ema(closes, macdSlow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal = ema(line, macdSignal)
	return line, signal
}

func ema(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func bollinger(closes []float64, period int, k float64) (high, low []float64) {
	high = make([]float64, len(closes))
	low = make([]float64, len(closes))
	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]
		m := mean(window)
		sd := stddev(window)
		high[i] = m + k*sd
		low[i] = m - k*sd
	}
	return high, low
}

func onBalanceVolume(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// tradeCountProxy counts price changes over the trailing window, a stand-in
// for per-bar trade counts the data feed does not carry.
func tradeCountProxy(closes []float64, i, window int) float64 {
	count := 0.0
	for j := i - window + 1; j <= i; j++ {
		if closes[j] != closes[j-1] {
			count++
		}
	}
	return count
}
