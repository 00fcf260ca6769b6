package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/diamond/internal/contracts"
)

// FetchFundamentals fetches trailing P/E, debt-to-equity and sector.
// Missing fields come back as 0 / "Unknown"; only transport and payload
// errors are returned.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (*contracts.Fundamentals, error) {
	params := url.Values{}
	params.Set("modules", "summaryDetail,financialData,assetProfile")

	fullURL := fmt.Sprintf("%s/%s?%s", c.summaryURL, url.PathEscape(c.Ticker(symbol)), params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, contracts.NewSymbolError(symbol, contracts.KindFetch, err)
	}

	return parseQuoteSummary(symbol, body, time.Now())
}

func parseQuoteSummary(symbol string, body []byte, now time.Time) (*contracts.Fundamentals, error) {
	if !gjson.ValidBytes(body) {
		return nil, contracts.NewSymbolError(symbol, contracts.KindParse, fmt.Errorf("invalid json"))
	}

	result := gjson.GetBytes(body, "quoteSummary.result.0")
	if !result.Exists() {
		return nil, contracts.NewSymbolError(symbol, contracts.KindEmpty, contracts.ErrNoData)
	}

	sector := strings.TrimSpace(result.Get("assetProfile.sector").String())
	if sector == "" {
		sector = contracts.UnknownSector
	}

	return &contracts.Fundamentals{
		Symbol:       symbol,
		PE:           rawNumber(result, "summaryDetail.trailingPE"),
		DebtToEquity: rawNumber(result, "financialData.debtToEquity"),
		Sector:       sector,
		UpdatedAt:    now,
	}, nil
}

// rawNumber reads {"raw": x, "fmt": "..."} or a bare number, 0 when absent
func rawNumber(result gjson.Result, path string) float64 {
	v := result.Get(path)
	if raw := v.Get("raw"); raw.Exists() {
		return raw.Float()
	}
	if v.Type == gjson.Number {
		return v.Float()
	}
	return 0
}
