// Package indicator wraps go-talib with length guards. talib indexes past
// the input when it is shorter than the period, so every call checks the
// length first and reports an undefined value instead.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// EMA returns the last exponential moving average over period closes
func EMA(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period {
		return 0, false
	}
	return lastValid(talib.Ema(closes, period))
}

// RSI returns the last Wilder RSI
func RSI(closes []float64, period int) (float64, bool) {
	if period < 2 || len(closes) <= period {
		return 0, false
	}
	return lastValid(talib.Rsi(closes, period))
}

// ATR returns the last Wilder average true range; non-positive is undefined
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period < 1 || n <= period || len(highs) != n || len(lows) != n {
		return 0, false
	}
	v, ok := lastValid(talib.Atr(highs, lows, closes, period))
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func lastValid(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
