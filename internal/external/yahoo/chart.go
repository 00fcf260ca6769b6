package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/diamond/internal/contracts"
)

// FetchHistory fetches daily bars for symbol over period ("5d", "6mo", "1y").
// Bars with any missing OHLC value are dropped.
func (c *Client) FetchHistory(ctx context.Context, symbol string, period string) (*contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")
	params.Set("includePrePost", "false")

	fullURL := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(c.Ticker(symbol)), params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewSymbolError(symbol, contracts.KindFetch, err)
	}

	series, err := parseChart(symbol, body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   series.Len(),
	}).Debug("Fetched history")

	return series, nil
}

// parseChart converts a v8 chart payload into a PriceSeries
func parseChart(symbol string, body []byte) (*contracts.PriceSeries, error) {
	if !gjson.ValidBytes(body) {
		return nil, contracts.NewSymbolError(symbol, contracts.KindParse, fmt.Errorf("invalid json"))
	}

	root := gjson.GetBytes(body, "chart")
	if desc := root.Get("error.description"); desc.Exists() && desc.String() != "" {
		return nil, contracts.NewSymbolError(symbol, contracts.KindFetch, fmt.Errorf("yahoo: %s", desc.String()))
	}

	result := root.Get("result.0")
	if !result.Exists() {
		return nil, contracts.NewSymbolError(symbol, contracts.KindEmpty, contracts.ErrNoData)
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	series := &contracts.PriceSeries{Symbol: symbol, Bars: make([]contracts.Bar, 0, len(timestamps))}
	for i, ts := range timestamps {
		o, okO := valueAt(opens, i)
		h, okH := valueAt(highs, i)
		l, okL := valueAt(lows, i)
		cl, okC := valueAt(closes, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		v, _ := valueAt(volumes, i)

		series.Bars = append(series.Bars, contracts.Bar{
			Date:   time.Unix(ts.Int(), 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: v,
		})
	}

	if len(series.Bars) == 0 {
		return nil, contracts.NewSymbolError(symbol, contracts.KindEmpty, contracts.ErrNoData)
	}
	return series, nil
}

func valueAt(values []gjson.Result, i int) (float64, bool) {
	if i >= len(values) || values[i].Type != gjson.Number {
		return 0, false
	}
	v := values[i].Float()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
