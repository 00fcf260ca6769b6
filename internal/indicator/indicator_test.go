package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linear(n int, start, step float64) (highs, lows, closes []float64) {
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		closes = append(closes, c)
		highs = append(highs, c+1)
		lows = append(lows, c-1)
	}
	return
}

func TestEMA(t *testing.T) {
	_, _, closes := linear(60, 100, 0)
	v, ok := EMA(closes, 50)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)

	_, ok = EMA(closes[:10], 50)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	_, _, closes := linear(60, 100, 0.5)
	v, ok := RSI(closes, 14)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)

	_, ok = RSI(closes[:14], 14)
	assert.False(t, ok)
}

func TestATR(t *testing.T) {
	highs, lows, closes := linear(60, 100, 0.5)
	v, ok := ATR(highs, lows, closes, 14)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)

	_, ok = ATR(highs[:14], lows[:14], closes[:14], 14)
	assert.False(t, ok)

	// zero range
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	_, ok = ATR(flat, flat, flat, 14)
	assert.False(t, ok)
}
